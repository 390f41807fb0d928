package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"careerscan-engine/internal/batch"
	"careerscan-engine/internal/config"
	"careerscan-engine/internal/events"
	"careerscan-engine/internal/httpapi"
	"careerscan-engine/internal/logging"
	"careerscan-engine/internal/metrics"
	"careerscan-engine/internal/scheduler"
	"careerscan-engine/internal/scrape"
	"careerscan-engine/internal/store"

	"github.com/sirupsen/logrus"
)

func main() {
	boot := logging.New("", false)
	config.LoadEnv(boot)

	// Engine data dir: use env if provided, else local folder.
	dataDir := config.GetEnv(config.EnvDataDir, ".")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		boot.Fatal(err)
	}

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		boot.Fatalf("config bootstrap failed: %v", err)
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		cfg, err := config.Load(userCfgPath)
		if err != nil {
			return cfg, err
		}
		cfg.App.DataDir = dataDir
		config.ApplyEnv(&cfg)
		cfg, v := config.NormalizeAndValidate(cfg)
		if !v.OK() {
			return cfg, fmt.Errorf("invalid config: %v", v.Errors)
		}
		for _, w := range v.Warnings {
			boot.Warnf("config: %s", w)
		}
		return cfg, nil
	}
	cfg, err := loadCfg()
	if err != nil {
		boot.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfgVal.Store(cfg)

	log := logging.New(cfg.Log.Level, cfg.Log.JSON)

	dbPath := filepath.Join(dataDir, "careerscan.db")
	db, err := store.Open(dbPath)
	if err != nil {
		log.Fatalf("open db failed (%s): %v", dbPath, err)
	}
	defer db.Close()

	hub := events.NewHub()
	m := metrics.New()

	runs := httpapi.NewRunManager(httpapi.RunManagerConfig{
		DB:     db.Pool,
		Hub:    hub,
		CfgVal: &cfgVal,
		NewResolver: func(c config.Config) batch.Resolver {
			return scrape.NewResolver(scrape.NewFetcher(c.FetcherConfig()), m, log)
		},
		Metrics: m,
		Log:     log,
	})

	if n, err := runs.FailStale(context.Background()); err != nil {
		log.WithError(err).Warn("mark stale runs failed")
	} else if n > 0 {
		log.WithField("runs", n).Warn("marked interrupted runs as failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go scheduler.Every(ctx, log, cfg.SweepInterval(), "retention", func(ctx context.Context) error {
		return sweepRuns(ctx, db, cfgVal.Load().(config.Config), log)
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}
	log.WithFields(logrus.Fields{"addr": "http://" + addr, "db": dbPath, "config": userCfgPath}).Info("engine listening")

	srv := &http.Server{
		Handler: httpapi.Handler(httpapi.Deps{
			DB:          db.Pool,
			Hub:         hub,
			CfgVal:      &cfgVal,
			UserCfgPath: userCfgPath,
			LoadCfg:     loadCfg,
			Runs:        runs,
			Metrics:     m,
			Log:         log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server stopped")
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if err := runs.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("runs still active at shutdown")
	}
}

// sweepRuns deletes expired run history and the result files it points to.
func sweepRuns(ctx context.Context, db *store.DB, cfg config.Config, log logrus.FieldLogger) error {
	if cfg.Retention.Days <= 0 {
		return nil
	}
	deleted, err := store.CleanupOldRuns(ctx, db.Pool, cfg.RetentionAge())
	if err != nil {
		return err
	}
	for _, r := range deleted {
		if r.OutputPath == "" {
			continue
		}
		if err := os.Remove(r.OutputPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.WithError(err).WithField("path", r.OutputPath).Warn("[retention] remove result failed")
		}
	}
	if len(deleted) > 0 {
		log.WithField("runs", len(deleted)).Info("[retention] swept")
	}
	return nil
}
