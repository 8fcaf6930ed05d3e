// Package scheduler runs the periodic health and sync cycles.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSpec runs a job once an hour.
const DefaultSpec = "@hourly"

// Job is one scheduled unit of work. The context is cancelled on Stop.
type Job func(ctx context.Context) error

// Scheduler drives named jobs. Tests substitute their own.
type Scheduler interface {
	Add(name, spec string, job Job) error
	Start()
	Stop()
}

// ValidateSpec checks a standard cron expression or descriptor such as @hourly
func ValidateSpec(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// CronScheduler runs jobs on robfig/cron. A run that is still going when
// its next tick fires causes that tick to be skipped.
type CronScheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func New(logger *zap.Logger) *CronScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger: logger.Sugar()}
	ctx, cancel := context.WithCancel(context.Background())
	return &CronScheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]cron.EntryID),
	}
}

func (s *CronScheduler) Add(name, spec string, job Job) error {
	if spec == "" {
		spec = DefaultSpec
	}
	id, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, name, err)
	}

	s.mu.Lock()
	s.entries[name] = id
	s.mu.Unlock()

	s.logger.Info("Scheduled job", zap.String("job", name), zap.String("spec", spec))
	return nil
}

func (s *CronScheduler) run(name string, job Job) {
	start := time.Now()
	err := job(s.ctx)
	if err != nil {
		s.logger.Warn("Scheduled job failed",
			zap.String("job", name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return
	}
	s.logger.Debug("Scheduled job finished",
		zap.String("job", name),
		zap.Duration("elapsed", time.Since(start)))
}

// Next reports when a job fires next. Zero before Start or for unknown jobs.
func (s *CronScheduler) Next(name string) time.Time {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

func (s *CronScheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return
func (s *CronScheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// cronLogger routes cron's own logging into zap
type cronLogger struct {
	logger *zap.SugaredLogger
}

// Info is dropped: cron reports every wake and tick through it.
func (l cronLogger) Info(string, ...interface{}) {}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
