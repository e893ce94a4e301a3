package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"udm-tms-service/internal/seed"
	"udm-tms-service/internal/store"
	"udm-tms-service/internal/util"

	"go.uber.org/zap"
)

const (
	seedLockKey = "seed"
	seedLockTTL = 2 * time.Minute
)

// ErrSeedInProgress is returned when another seed run holds the lock
var ErrSeedInProgress = errors.New("seed already in progress")

// SeedService resets the store to the demo fixture set
type SeedService struct {
	store  *store.Store
	cache  ComponentCache
	locker Locker
	logger *zap.Logger
	now    func() time.Time
}

// NewSeedService creates a new seed service
func NewSeedService(store *store.Store, cache ComponentCache, locker Locker) *SeedService {
	return &SeedService{
		store:  store,
		cache:  cache,
		locker: locker,
		logger: util.GetLogger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run deletes every traceability record and loads the fixtures in one transaction
func (s *SeedService) Run(ctx context.Context) (*seed.Summary, error) {
	ctx, span := util.StartSpan(ctx, "SeedService.Run")
	defer span.End()

	token, err := s.locker.AcquireLock(ctx, seedLockKey, seedLockTTL)
	if err != nil {
		util.SeedRunsTotal.WithLabelValues("error").Inc()
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to acquire seed lock: %w", err)
	}
	if token == "" {
		util.SeedRunsTotal.WithLabelValues("locked").Inc()
		return nil, ErrSeedInProgress
	}
	defer func() {
		if err := s.locker.ReleaseLock(context.Background(), seedLockKey, token); err != nil {
			s.logger.Warn("Failed to release seed lock", zap.Error(err))
		}
	}()

	var summary *seed.Summary
	err = s.store.InTx(ctx, func(tx *store.Store) error {
		if err := tx.ResetTraceabilityData(ctx); err != nil {
			return err
		}
		summary, err = seed.Load(ctx, tx, s.now())
		return err
	})
	if err != nil {
		util.SeedRunsTotal.WithLabelValues("error").Inc()
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to seed database: %w", err)
	}

	s.cache.Flush(ctx)
	util.SeedRunsTotal.WithLabelValues("success").Inc()

	s.logger.Info("Database seeded",
		zap.Int("vendors", summary.Vendors),
		zap.Int("batches", summary.Batches),
		zap.Int("components", summary.Components),
		zap.Int("marks", summary.Marks),
		zap.Int("inspections", summary.Inspections),
		zap.Int("assets", summary.Assets))

	return summary, nil
}
