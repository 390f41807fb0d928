package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"careerscan-engine/internal/batch"
	"careerscan-engine/internal/config"
	"careerscan-engine/internal/domain"
	"careerscan-engine/internal/events"
	"careerscan-engine/internal/export"
	"careerscan-engine/internal/metrics"
	"careerscan-engine/internal/scrape/util"
	"careerscan-engine/internal/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrShuttingDown = errors.New("run manager is shutting down")

// ResolverFactory builds the resolver for one run from the config current at start.
type ResolverFactory func(cfg config.Config) batch.Resolver

type RunManagerConfig struct {
	DB          *sql.DB
	Hub         *events.Hub
	CfgVal      *atomic.Value // stores config.Config
	NewResolver ResolverFactory
	Metrics     *metrics.Collector
	Log         logrus.FieldLogger
}

type activeRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// RunManager starts batch runs in the background, one goroutine per run,
// and persists each outcome once the run stops.
type RunManager struct {
	cfg RunManagerConfig

	mu      sync.Mutex
	active  map[string]*activeRun
	closed  bool
	wg      sync.WaitGroup
	baseCtx context.Context
	stopAll context.CancelFunc
}

func NewRunManager(c RunManagerConfig) *RunManager {
	if c.Log == nil {
		c.Log = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RunManager{
		cfg:     c,
		active:  map[string]*activeRun{},
		baseCtx: ctx,
		stopAll: cancel,
	}
}

// Start records a new run and processes orgs in the background.
func (m *RunManager) Start(ctx context.Context, reqID, source string, orgs []domain.Organization) (store.Run, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return store.Run{}, ErrShuttingDown
	}
	runID := uuid.NewString()
	runCtx, cancel := context.WithCancel(m.baseCtx)
	m.active[runID] = &activeRun{cancel: cancel, done: make(chan struct{})}
	m.wg.Add(1)
	m.mu.Unlock()

	cfg := m.cfg.CfgVal.Load().(config.Config)
	total := domain.Pairs(orgs)

	run, err := store.CreateRun(ctx, m.cfg.DB, runID, source, total)
	if err != nil {
		m.finish(runID)
		return store.Run{}, err
	}

	m.cfg.Hub.Publish(events.MakeRunEvent(reqID, runID, events.TypeRunStarted, 1, events.RunStarted{
		Source: source,
		Total:  total,
	}))

	go func() {
		defer m.finish(runID)
		m.execute(runCtx, reqID, run, cfg, orgs)
	}()
	return run, nil
}

func (m *RunManager) finish(runID string) {
	m.mu.Lock()
	if a, ok := m.active[runID]; ok {
		a.cancel()
		close(a.done)
		delete(m.active, runID)
	}
	m.mu.Unlock()
	m.wg.Done()
}

func (m *RunManager) execute(ctx context.Context, reqID string, run store.Run, cfg config.Config, orgs []domain.Organization) {
	log := m.cfg.Log.WithFields(logrus.Fields{"run_id": run.ID, "source": run.Source})

	var hosts *util.HostLimiter
	if cfg.HostInterval() > 0 {
		hosts = util.NewHostLimiter(cfg.HostInterval(), 1)
	}

	runner := batch.New(m.cfg.NewResolver(cfg), batch.Options{
		Workers: cfg.Batch.Workers,
		Pace:    cfg.Pace(),
		Hosts:   hosts,
		Logger:  log,
		Metrics: m.cfg.Metrics,
		OnLog: func(l domain.LogLine) {
			m.cfg.Hub.Publish(events.MakeRunEvent(reqID, run.ID, events.TypeLog, 1, events.LogData{
				Index:   l.Index,
				Company: l.Company,
				Domain:  l.Domain,
				Line:    l.Text,
			}))
		},
	})

	out := runner.Run(ctx, orgs)

	status := store.RunCompleted
	if out.Cancelled {
		status = store.RunCancelled
	}

	var runErr error
	outputPath, err := m.writeResults(run.ID, cfg, out.Rows)
	if err != nil {
		status = store.RunFailed
		runErr = err
		outputPath = ""
		log.WithError(err).Error("[run] write results failed")
	}

	persistCtx := context.WithoutCancel(ctx)
	if err := store.SaveOutcome(persistCtx, m.cfg.DB, run.ID, out, status, outputPath, runErr); err != nil {
		log.WithError(err).Error("[run] save outcome failed")
	}

	m.cfg.Metrics.Run(string(status))

	finished := events.RunFinished{
		Status:    string(status),
		Total:     out.Total,
		Found:     out.Found,
		Completed: len(out.Rows),
	}
	if runErr != nil {
		finished.Error = runErr.Error()
	}
	m.cfg.Hub.Publish(events.MakeRunEvent(reqID, run.ID, events.TypeRunFinished, 1, finished))

	log.WithFields(logrus.Fields{
		"status": status,
		"rows":   len(out.Rows),
		"found":  out.Found,
		"output": outputPath,
	}).Info("[run] finished")
}

func (m *RunManager) writeResults(runID string, cfg config.Config, rows []domain.Row) (string, error) {
	format, err := export.ParseFormat(cfg.Export.Format)
	if err != nil {
		return "", err
	}
	dir := cfg.ResultsPath()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.%s", runID, format))
	if err := export.SaveAtomic(path, rows, format); err != nil {
		return "", err
	}
	return path, nil
}

// Cancel stops dispatching new pairs for runID. Pairs already being
// resolved still finish and are kept in the result.
func (m *RunManager) Cancel(runID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.active[runID]
	if ok {
		a.cancel()
	}
	return ok
}

// WaitRun blocks until runID is no longer active. Unknown or finished
// runs return immediately.
func (m *RunManager) WaitRun(ctx context.Context, runID string) error {
	m.mu.Lock()
	a, ok := m.active[runID]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *RunManager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Wait blocks until every started run has been persisted.
func (m *RunManager) Wait() { m.wg.Wait() }

// Shutdown refuses new runs, cancels the active ones and waits for them
// to be persisted or for ctx to expire.
func (m *RunManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.stopAll()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FailStale marks runs persisted as running that this manager does not own,
// which happens when the engine stopped mid-run. Call it before serving.
func (m *RunManager) FailStale(ctx context.Context) (int, error) {
	runs, err := store.ListRuns(ctx, m.cfg.DB, 1000)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range runs {
		if r.Status != store.RunRunning {
			continue
		}
		m.mu.Lock()
		_, owned := m.active[r.ID]
		m.mu.Unlock()
		if owned {
			continue
		}
		if err := store.FailRun(ctx, m.cfg.DB, r.ID, errors.New("engine stopped before the run finished")); err != nil {
			return n, err
		}
		m.cfg.Metrics.Run(string(store.RunFailed))
		n++
	}
	return n, nil
}
