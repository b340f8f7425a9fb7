package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs named periodic jobs on a cron engine. A job that is still
// running when its next tick fires is skipped.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger
}

// NewScheduler builds a stopped scheduler.
func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	adapter := cronLogger{log: logger.Sugar()}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter))),
		entries: make(map[string]cron.EntryID),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}
}

// Every registers job to run every interval. Intervals are rounded down to
// whole seconds. The returned func removes the job. Registering an existing
// name replaces the previous job.
func (s *Scheduler) Every(name string, interval time.Duration, job func(context.Context)) (func(), error) {
	if interval < time.Second {
		return nil, fmt.Errorf("schedule %s: interval %v is below one second", name, interval)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[name]; ok {
		s.cron.Remove(existing)
	}
	id := s.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		job(s.ctx)
	}))
	s.entries[name] = id
	s.logger.Debug("job scheduled", zap.String("job", name), zap.Duration("interval", interval))

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if current, ok := s.entries[name]; ok && current == id {
			s.cron.Remove(id)
			delete(s.entries, name)
		}
	}, nil
}

// Jobs returns the names of the registered jobs.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	return names
}

// Start begins firing jobs in the background.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler started")
	s.cron.Start()
}

// Stop cancels job contexts and waits for running jobs to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// cronLogger adapts zap to the cron.Logger interface.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
