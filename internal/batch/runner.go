package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"careerscan-engine/internal/domain"
	"careerscan-engine/internal/logging"
	"careerscan-engine/internal/metrics"
	"careerscan-engine/internal/scrape"
	"careerscan-engine/internal/scrape/util"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultWorkers = 4
	DefaultPace    = time.Second
)

type Resolver interface {
	Resolve(ctx context.Context, domain string) (scrape.Resolution, error)
}

type Options struct {
	Workers int
	// Pace is the courtesy delay a worker observes after each unit completes,
	// before it starts its next one.
	Pace time.Duration
	// Hosts, when set, additionally spaces requests to the same domain across workers.
	Hosts   *util.HostLimiter
	Logger  logrus.FieldLogger
	Metrics *metrics.Collector
	// OnLog receives every progress line as it is emitted. It is called from
	// worker goroutines and must be safe for concurrent use.
	OnLog func(domain.LogLine)
}

type Runner struct {
	resolver Resolver
	opts     Options
}

func New(r Resolver, opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Pace < 0 {
		opts.Pace = 0
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Runner{resolver: r, opts: opts}
}

// Progress lines shown to the user, one announcing each pair and one with its outcome.
const notFoundLine = "❌ " + domain.NotFound

func searchLine(company, dom string) string {
	return fmt.Sprintf("🔍 Searching %s - %s...", company, dom)
}

func foundLine(link string) string { return "✅ Found: " + link }

type unit struct {
	index int
	org   domain.Organization
	dom   string
}

// collector is the one shared mutable structure: rows are written into
// their index slot, log lines are appended under the mutex.
type collector struct {
	mu    sync.Mutex
	rows  []domain.Row
	done  []bool
	logs  []domain.LogLine
	onLog func(domain.LogLine)
}

func (c *collector) log(u unit, text string) {
	line := domain.LogLine{Index: u.index, Company: u.org.Name, Domain: u.dom, Text: text}
	c.mu.Lock()
	c.logs = append(c.logs, line)
	c.mu.Unlock()
	if c.onLog != nil {
		c.onLog(line)
	}
}

func (c *collector) put(idx int, row domain.Row) {
	c.mu.Lock()
	c.rows[idx] = row
	c.done[idx] = true
	c.mu.Unlock()
}

// Run resolves every (organization, domain) pair and returns one row per
// pair in input order. It never fails: a pair whose resolution errors or
// panics is recorded as not found. When ctx is cancelled no new pairs are
// started; pairs already in flight finish and the outcome holds only the
// completed rows, still in input order, with Cancelled set.
func (r *Runner) Run(ctx context.Context, orgs []domain.Organization) domain.Outcome {
	units := flatten(orgs)
	col := &collector{
		rows:  make([]domain.Row, len(units)),
		done:  make([]bool, len(units)),
		onLog: r.opts.OnLog,
	}

	workers := r.opts.Workers
	if workers > len(units) {
		workers = len(units)
	}

	work := make(chan unit)
	var g errgroup.Group

	for i := 0; i < workers; i++ {
		wlog := r.opts.Logger.WithField("worker", i)
		g.Go(func() error {
			pacer := util.NewPacer(r.opts.Pace)
			for u := range work {
				if err := pacer.Wait(ctx); err != nil {
					continue
				}
				r.process(ctx, wlog, col, u)
				pacer.Done()
			}
			return nil
		})
	}

	go func() {
		defer close(work)
		for _, u := range units {
			if ctx.Err() != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case work <- u:
			}
		}
	}()

	_ = g.Wait()

	out := domain.Outcome{Logs: col.logs, Total: len(units)}
	for i, ok := range col.done {
		if !ok {
			continue
		}
		row := col.rows[i]
		if row.Found() {
			out.Found++
		}
		out.Rows = append(out.Rows, row)
	}
	out.Cancelled = len(out.Rows) < len(units)
	if out.Rows == nil {
		out.Rows = []domain.Row{}
	}
	r.opts.Logger.WithFields(logrus.Fields{
		"rows": len(out.Rows), "total": out.Total, "found": out.Found, "cancelled": out.Cancelled,
	}).Info("[batch] done")
	return out
}

func (r *Runner) process(ctx context.Context, wlog logrus.FieldLogger, col *collector, u unit) {
	ulog := wlog.WithFields(logrus.Fields{"index": u.index, "company": u.org.Name, "domain": u.dom})

	col.log(u, searchLine(u.org.Name, u.dom))
	ulog.Info("[batch] searching")

	r.opts.Metrics.WorkerBusy(1)
	defer r.opts.Metrics.WorkerBusy(-1)

	start := time.Now()
	link, outcome := r.resolveSafely(ctx, ulog, u.dom)
	r.opts.Metrics.Resolution(outcome, time.Since(start))

	row := domain.Row{
		ID:             u.org.ID,
		CompanyName:    u.org.Name,
		Domain:         u.dom,
		CareersPageURL: domain.NotFound,
	}
	if link != "" {
		row.CareersPageURL = link
		col.log(u, foundLine(link))
	} else {
		col.log(u, notFoundLine)
	}
	ulog.WithFields(logrus.Fields{"outcome": outcome, "url": link}).Info("[batch] resolved")
	col.put(u.index, row)
}

// resolveSafely runs one resolution detached from batch cancellation, so an
// in-flight fetch ends through its own timeout rather than being recorded as
// a miss. Errors and panics become a miss.
func (r *Runner) resolveSafely(ctx context.Context, log logrus.FieldLogger, dom string) (link, outcome string) {
	if r.opts.Hosts != nil {
		if host, ok := util.NormalizeDomain(dom); ok {
			_ = r.opts.Hosts.Wait(context.WithoutCancel(ctx), host)
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Error("[batch] resolver panic")
			link, outcome = "", "fault"
		}
	}()

	res, err := r.resolver.Resolve(context.WithoutCancel(ctx), dom)
	if err != nil {
		log.WithError(err).Warn("[batch] resolve failed")
		return "", "fault"
	}
	if !res.Found {
		return "", string(res.Outcome)
	}
	return res.URL, string(res.Outcome)
}

func flatten(orgs []domain.Organization) []unit {
	units := make([]unit, 0, domain.Pairs(orgs))
	for _, o := range orgs {
		for _, d := range o.Domains {
			units = append(units, unit{index: len(units), org: o, dom: d})
		}
	}
	return units
}
