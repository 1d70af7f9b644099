package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/civicgrid/resident-portal/pkg/logger"
)

const defaultInterval = time.Hour

type runRecorder interface {
	ObserveRun(job string, took time.Duration, err error)
}

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  runRecorder
	Interval time.Duration
}

// Service runs every registered job once per interval. Only the worker
// holding the lock runs a cycle; the others skip it.
type Service struct {
	logg     *logger.Logger
	jobs     *Registry
	lock     Lock
	recorder runRecorder
	interval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Lock == nil:
		return nil, errors.New("lock required")
	}
	svc := &Service{
		logg:     params.Logger,
		jobs:     params.Registry,
		lock:     params.Lock,
		recorder: params.Metrics,
		interval: params.Interval,
	}
	if svc.jobs == nil {
		svc.jobs = &Registry{}
	}
	if svc.interval <= 0 {
		svc.interval = defaultInterval
	}
	return svc, nil
}

func (s *Service) Interval() time.Duration { return s.interval }

// Run starts a cycle immediately, then one per tick, until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.runCycle(ctx); err != nil {
			s.logg.Error(ctx, "cron.cycle.failed", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runCycle returns an error only when the lock could not be consulted; job
// failures are logged and counted, and never stop later jobs.
func (s *Service) runCycle(ctx context.Context) error {
	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !acquired {
		s.logg.Info(ctx, "cron.cycle.skipped")
		return nil
	}
	defer s.release(ctx)

	for _, job := range s.jobs.Jobs() {
		s.runJob(ctx, job)
	}
	return nil
}

func (s *Service) release(ctx context.Context) {
	if err := s.lock.Release(ctx); err != nil {
		s.logg.Error(ctx, "cron.lock.release_failed", err)
	}
}

func (s *Service) runJob(ctx context.Context, job Job) {
	name := job.Name()
	ctx = s.logg.WithField(ctx, "job", name)

	started := time.Now()
	err := job.Run(ctx)
	took := time.Since(started)

	if s.recorder != nil {
		s.recorder.ObserveRun(name, took, err)
	}
	ctx = s.logg.WithField(ctx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "cron.job.failed", err)
		return
	}
	s.logg.Info(ctx, "cron.job.complete")
}
