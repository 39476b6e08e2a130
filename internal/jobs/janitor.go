package jobs

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Janitor sweeps the registry on a cron schedule, evicting subjobs that have
// been terminal with no subscribers for longer than the retention window.
// Without it a long-running process accumulates finished jobs forever.
type Janitor struct {
	registry *Registry
	cron     *cron.Cron
	retain   time.Duration
	logger   arbor.ILogger
}

// NewJanitor wires an eviction sweep for registry. schedule is a cron
// expression (e.g. "@every 1m"); retain is how long terminal state is kept
// after the last subscriber is gone.
func NewJanitor(registry *Registry, schedule string, retain time.Duration, logger arbor.ILogger) (*Janitor, error) {
	j := &Janitor{
		registry: registry,
		cron:     cron.New(),
		retain:   retain,
		logger:   logger,
	}
	if _, err := j.cron.AddFunc(schedule, j.sweep); err != nil {
		return nil, fmt.Errorf("invalid eviction schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Start begins scheduled sweeps.
func (j *Janitor) Start() {
	j.logger.Info().Str("retain", j.retain.String()).Msg("Job eviction janitor started")
	j.cron.Start()
}

// Stop halts scheduling and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

func (j *Janitor) sweep() {
	j.registry.Evict(j.retain)
}
