package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const JobSessionPurge = "session_purge"

// Purger removes stale session records older than cutoff.
type Purger interface {
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

type Service struct {
	Log    *zap.Logger
	queue  chan job
	purger Purger
	every  time.Duration
}

type job struct {
	Type string
	Run  func(context.Context) (int64, error)
}

func New(log *zap.Logger, purger Purger, every time.Duration) *Service {
	return &Service{
		Log:    log,
		queue:  make(chan job, 16),
		purger: purger,
		every:  every,
	}
}

// Start runs the worker and the purge schedule until ctx is done.
func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.purger != nil && s.every > 0 {
		go s.schedulePurge(ctx, s.every)
	}
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (int64, error)) bool {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
		return true
	default:
		s.Log.Warn("job queue full", zap.String("jobType", jobType))
		return false
	}
}

// PurgeNow runs one purge synchronously.
func (s *Service) PurgeNow(ctx context.Context) (int64, error) {
	return s.runJob(ctx, s.purgeJob())
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			_, _ = s.runJob(ctx, j)
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (int64, error) {
	start := time.Now()
	n, err := j.Run(ctx)
	if err != nil {
		s.Log.Warn("job run failed", zap.String("jobType", j.Type), zap.Error(err))
		return n, err
	}
	s.Log.Info("job run completed",
		zap.String("jobType", j.Type),
		zap.Int64("affected", n),
		zap.Duration("duration", time.Since(start)),
	)
	return n, nil
}

func (s *Service) purgeJob() job {
	return job{Type: JobSessionPurge, Run: func(ctx context.Context) (int64, error) {
		return s.purger.Purge(ctx, time.Now())
	}}
}

func (s *Service) schedulePurge(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j := s.purgeJob()
			s.Enqueue(j.Type, j.Run)
		}
	}
}
