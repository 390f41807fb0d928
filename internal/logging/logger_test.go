package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, logrus.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, logrus.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("nonsense"))
}

func TestNewUsesExplicitLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	l := New("debug", true)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	_, isJSON := l.Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)
}

func TestNewFallsBackToEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	assert.Equal(t, logrus.WarnLevel, New("", false).GetLevel())
}

func TestValidLevel(t *testing.T) {
	assert.True(t, ValidLevel("Info"))
	assert.True(t, ValidLevel("warning"))
	assert.False(t, ValidLevel("verbose"))
	assert.False(t, ValidLevel(""))
}
