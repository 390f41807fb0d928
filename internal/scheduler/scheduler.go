package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type Task func(ctx context.Context) error

// Every runs task immediately and then on each tick until ctx is done.
// Runs never overlap; a tick that fires during a slow run is skipped.
func Every(ctx context.Context, log logrus.FieldLogger, interval time.Duration, name string, task Task) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	run := func() {
		if err := task(ctx); err != nil && ctx.Err() == nil {
			log.WithField("task", name).WithError(err).Warn("[scheduler] task failed")
		}
	}

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}
