// Package scheduler runs the periodic background sync of the daemon.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/innerpath/client-core/internal/api/metrics"
	"github.com/innerpath/client-core/internal/core/ports"
)

// Syncer is what a sync run drives: the session refresh and the data reload.
type Syncer interface {
	Authenticated() bool
	RefreshSession(ctx context.Context) ports.Result
	LoadAllData(ctx context.Context) ports.Result
}

// Scheduler refreshes the session and reloads domain data on a cron
// schedule. Runs never overlap; a run still in progress skips the next.
type Scheduler struct {
	cron    *cron.Cron
	syncer  Syncer
	timeout time.Duration
	log     zerolog.Logger
}

// New parses spec (standard cron or descriptors such as "@every 5m").
func New(spec string, syncer Syncer, timeout time.Duration, log zerolog.Logger) (*Scheduler, error) {
	log = log.With().Str("component", "scheduler").Logger()
	s := &Scheduler{
		syncer:  syncer,
		timeout: timeout,
		log:     log,
	}
	s.cron = cron.New(cron.WithChain(
		cron.Recover(cronLogger{log}),
		cron.SkipIfStillRunning(cronLogger{log}),
	))
	if _, err := s.cron.AddFunc(spec, func() { s.Run(context.Background()) }); err != nil {
		return nil, fmt.Errorf("scheduler: invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("entries", len(s.cron.Entries())).Msg("sync scheduler started")
}

// Stop stops scheduling and waits for a running sync to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn().Msg("sync still running at shutdown")
	}
}

// Run performs one sync: refresh the session, then reload the data when the
// session survived. Signed-out runs are skipped.
func (s *Scheduler) Run(ctx context.Context) {
	if !s.syncer.Authenticated() {
		metrics.SyncRunsTotal.WithLabelValues("session", "skipped").Inc()
		metrics.SyncRunsTotal.WithLabelValues("data", "skipped").Inc()
		return
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if !s.step(ctx, "session", s.syncer.RefreshSession) || !s.syncer.Authenticated() {
		metrics.SyncRunsTotal.WithLabelValues("data", "skipped").Inc()
		return
	}
	s.step(ctx, "data", s.syncer.LoadAllData)
}

func (s *Scheduler) step(ctx context.Context, job string, fn func(context.Context) ports.Result) bool {
	start := time.Now()
	res := fn(ctx)
	metrics.SyncDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())

	if !res.Success {
		metrics.SyncRunsTotal.WithLabelValues(job, "error").Inc()
		s.log.Warn().Str("job", job).Str("error", res.Message).Msg("sync step failed")
		return false
	}
	metrics.SyncRunsTotal.WithLabelValues(job, "ok").Inc()
	s.log.Debug().Str("job", job).Dur("took", time.Since(start)).Msg("sync step done")
	return true
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
