package util

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDomain(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"example.com", "example.com", true},
		{"  example.com  ", "example.com", true},
		{"HTTPS://example.com/", "example.com", true},
		{"http://www.example.com//", "www.example.com", true},
		{"", "", false},
		{"   ", "", false},
		{"exa mple.com", "", false},
		{"https://", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizeDomain(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Join our team", CleanText("  Join our \n\t team "))
	assert.Equal(t, "", CleanText(" \n "))
}

func TestResolveHref(t *testing.T) {
	base, err := url.Parse("https://example.com")
	require.NoError(t, err)

	cases := []struct {
		href string
		want string
		ok   bool
	}{
		{"/careers", "https://example.com/careers", true},
		{"jobs", "https://example.com/jobs", true},
		{"https://jobs.example.org/", "https://jobs.example.org/", true},
		{"//cdn.example.com/careers", "https://cdn.example.com/careers", true},
		{"mailto:jobs@example.com", "", false},
		{"javascript:void(0)", "", false},
		{"http://[::1", "", false},
	}
	for _, tc := range cases {
		got, ok := ResolveHref(base, tc.href)
		assert.Equal(t, tc.ok, ok, tc.href)
		assert.Equal(t, tc.want, got, tc.href)
	}
}

func TestHostLimiterSpacesSameHost(t *testing.T) {
	hl := NewHostLimiter(50*time.Millisecond, 1)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, hl.Wait(ctx, "Example.com"))
	require.NoError(t, hl.Wait(ctx, "other.com"))
	assert.Less(t, time.Since(start), 40*time.Millisecond, "different hosts must not wait on each other")

	require.NoError(t, hl.Wait(ctx, "example.com"))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestHostLimiterHonoursContext(t *testing.T) {
	hl := NewHostLimiter(time.Hour, 1)
	require.NoError(t, hl.Wait(context.Background(), "example.com"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, hl.Wait(ctx, "example.com"))
}

func TestPacerWaitsAfterDone(t *testing.T) {
	ctx := context.Background()
	p := NewPacer(50 * time.Millisecond)

	start := time.Now()
	require.NoError(t, p.Wait(ctx))
	assert.Less(t, time.Since(start), 20*time.Millisecond, "first unit starts immediately")

	time.Sleep(80 * time.Millisecond) // a unit slower than the gap
	p.Done()
	end := time.Now()
	require.NoError(t, p.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(end), 45*time.Millisecond)
}

func TestPacerHonoursContext(t *testing.T) {
	p := NewPacer(time.Hour)
	p.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	assert.ErrorIs(t, p.Wait(ctx), context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)

	zero := NewPacer(0)
	zero.Done()
	require.NoError(t, zero.Wait(context.Background()))

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	assert.Error(t, zero.Wait(cancelled))
}
