package httpapi

import (
	"database/sql"
	"sync/atomic"

	"careerscan-engine/internal/config"
	"careerscan-engine/internal/events"
	"careerscan-engine/internal/metrics"

	"github.com/sirupsen/logrus"
)

type Deps struct {
	DB *sql.DB

	Hub *events.Hub

	// Atomic stores
	CfgVal *atomic.Value // stores config.Config

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	Runs    *RunManager
	Metrics *metrics.Collector
	Log     logrus.FieldLogger
}
