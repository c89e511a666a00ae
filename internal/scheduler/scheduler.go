// Package scheduler triggers reconciliation runs on a cron spec.
package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	cron "github.com/robfig/cron/v3"

	"healthwatch/pkg/logx"
)

type Config struct {
	// Spec is a cron expression or descriptor (e.g. "@every 5m").
	Spec     string
	Timezone string
}

// Service runs one job on a cron schedule. Ticks that arrive while the
// previous run is still in flight are skipped, not queued: the next tick
// sees the same world and the dedup gate makes reruns cheap anyway.
type Service struct {
	mu   sync.Mutex
	cfg  Config
	loc  *time.Location
	c    *cron.Cron
	job  func(ctx context.Context) error
	log  logx.Logger
	busy atomic.Bool

	parser cron.Parser
}

func New(cfg Config, job func(ctx context.Context) error, log logx.Logger) (*Service, error) {
	if job == nil {
		return nil, errors.New("scheduler: job is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	spec := strings.TrimSpace(cfg.Spec)
	if spec == "" {
		return nil, errors.New("scheduler: spec is required")
	}
	if _, err := parser.Parse(spec); err != nil {
		return nil, err
	}

	loc := time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		var err error
		if loc, err = time.LoadLocation(tz); err != nil {
			return nil, err
		}
	}
	return &Service{cfg: cfg, loc: loc, job: job, log: log, parser: parser}, nil
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	c := cron.New(cron.WithParser(s.parser), cron.WithLocation(s.loc))
	if _, err := c.AddFunc(strings.TrimSpace(s.cfg.Spec), func() { s.tick(ctx) }); err != nil {
		return err
	}
	c.Start()
	s.c = c
	s.log.Info("scheduler started",
		logx.String("spec", strings.TrimSpace(s.cfg.Spec)),
		logx.String("tz", s.loc.String()),
	)
	return nil
}

// Stop halts the trigger and waits for an in-flight run to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return
	}
	<-s.c.Stop().Done()
	s.c = nil
	s.log.Info("scheduler stopped")
}

func (s *Service) tick(ctx context.Context) {
	if !s.busy.CompareAndSwap(false, true) {
		s.log.Warn("previous run still in progress; skipping tick")
		return
	}
	defer s.busy.Store(false)

	if ctx.Err() != nil {
		return
	}
	started := time.Now()
	if err := s.job(ctx); err != nil {
		s.log.Error("run failed", logx.Err(err), logx.Duration("elapsed", time.Since(started)))
		return
	}
	s.log.Debug("run finished", logx.Duration("elapsed", time.Since(started)))
}
