package worker

import (
	"context"
	"fmt"
	"time"

	"udm-tms-service/internal/util"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// BatchMetricsRefresher recomputes batch defect metrics
type BatchMetricsRefresher interface {
	RefreshBatchMetrics(ctx context.Context) (int, error)
}

// Scheduler runs periodic maintenance jobs
type Scheduler struct {
	cron      *cron.Cron
	refresher BatchMetricsRefresher
	timeout   time.Duration
	logger    *zap.Logger
}

// NewScheduler creates a scheduler that refreshes batch metrics on the given cron spec
func NewScheduler(spec string, refresher BatchMetricsRefresher) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(),
		refresher: refresher,
		timeout:   time.Minute,
		logger:    util.GetLogger(),
	}

	if _, err := s.cron.AddFunc(spec, s.refreshBatchMetrics); err != nil {
		return nil, fmt.Errorf("invalid batch stats schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler", zap.Int("jobs", len(s.cron.Entries())))
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) refreshBatchMetrics() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.refresher.RefreshBatchMetrics(ctx)
	if err != nil {
		s.logger.Error("Batch metrics refresh failed", zap.Error(err))
		return
	}
	s.logger.Debug("Batch metrics refreshed", zap.Int("batches", n))
}
