package service

import (
	"context"
	"errors"
	"fmt"

	"udm-tms-service/internal/models"
	"udm-tms-service/internal/store"
	"udm-tms-service/internal/util"

	"go.uber.org/zap"
)

// DefectMonitor reacts to traceability events: it raises an alert for every
// failing inspection read, flags fitments of components from batches with
// reported defects, and keeps the batch defect-rate gauge current
type DefectMonitor struct {
	store  *store.Store
	cache  ComponentCache
	logger *zap.Logger
}

// NewDefectMonitor creates a new defect monitor
func NewDefectMonitor(store *store.Store, cache ComponentCache) *DefectMonitor {
	return &DefectMonitor{
		store:  store,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// handleOnce runs fn unless the event was already processed, then records it
func (m *DefectMonitor) handleOnce(ctx context.Context, event models.BaseEvent, fn func() error) error {
	processed, err := m.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		m.logger.Info("Event already processed",
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.EventType))
		return nil
	}

	if err := fn(); err != nil {
		return err
	}

	if err := m.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		m.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	return nil
}

// HandleInspectionRecorded handles InspectionRecorded events; replays are ignored
func (m *DefectMonitor) HandleInspectionRecorded(ctx context.Context, event *models.InspectionRecordedEvent) error {
	ctx, span := util.StartSpan(ctx, "DefectMonitor.HandleInspectionRecorded",
		util.AttrInspID.String(event.InspectionID))
	defer span.End()

	return m.handleOnce(ctx, event.BaseEvent, func() error {
		batches := map[string]string{}
		for _, read := range event.Reads {
			if !models.IsFailingStatus(read.Status) {
				continue
			}

			util.DefectAlertsTotal.WithLabelValues(read.Status).Inc()
			m.cache.Evict(ctx, read.RID)

			detail, err := m.store.GetComponentDetail(ctx, read.RID)
			if errors.Is(err, store.ErrNotFound) {
				m.logger.Warn("Defect reported for unknown component", zap.String("rid", read.RID))
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to get component %s: %w", read.RID, err)
			}

			m.logger.Warn("Defect reported",
				zap.String("inspection_id", read.InspectionID),
				zap.String("rid", read.RID),
				zap.String("status", read.Status),
				zap.Float64("confidence", read.Confidence),
				zap.String("batch_id", detail.Batch.BatchID),
				zap.String("vendor_id", detail.Vendor.VendorID),
				zap.String("asset_id", event.AssetID))

			batches[detail.Batch.ID] = detail.Batch.BatchID
		}

		for ref, batchID := range batches {
			if _, err := m.refreshBatchRate(ctx, ref, batchID); err != nil {
				return err
			}
		}
		return nil
	})
}

// HandleReceiptProcessed drops cached views of the received components and
// refreshes the defect rate of the receiving batch
func (m *DefectMonitor) HandleReceiptProcessed(ctx context.Context, event *models.ReceiptProcessedEvent) error {
	ctx, span := util.StartSpan(ctx, "DefectMonitor.HandleReceiptProcessed",
		util.AttrGRN.String(event.GRNNumber),
		util.AttrBatchID.String(event.BatchID))
	defer span.End()

	return m.handleOnce(ctx, event.BaseEvent, func() error {
		m.cache.Evict(ctx, event.RIDs...)

		batch, err := m.store.GetBatchByBatchID(ctx, event.BatchID)
		if errors.Is(err, store.ErrNotFound) {
			m.logger.Warn("Receipt for unknown batch", zap.String("batch_id", event.BatchID))
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get batch %s: %w", event.BatchID, err)
		}

		_, err = m.refreshBatchRate(ctx, batch.ID, batch.BatchID)
		return err
	})
}

// HandleComponentFitted flags fitments of components whose batch already has
// failing inspections on record
func (m *DefectMonitor) HandleComponentFitted(ctx context.Context, event *models.ComponentFittedEvent) error {
	ctx, span := util.StartSpan(ctx, "DefectMonitor.HandleComponentFitted",
		util.AttrRID.String(event.RID),
		util.AttrAssetID.String(event.AssetID))
	defer span.End()

	return m.handleOnce(ctx, event.BaseEvent, func() error {
		detail, err := m.store.GetComponentDetail(ctx, event.RID)
		if errors.Is(err, store.ErrNotFound) {
			m.logger.Warn("Fitment of unknown component", zap.String("rid", event.RID))
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get component %s: %w", event.RID, err)
		}

		stats, err := m.refreshBatchRate(ctx, detail.Batch.ID, detail.Batch.BatchID)
		if err != nil {
			return err
		}
		if stats.DefectCount == 0 {
			return nil
		}

		util.SuspectFitmentsTotal.WithLabelValues(detail.Batch.BatchID).Inc()
		m.logger.Warn("Component from batch with reported defects fitted",
			zap.String("fitment_record_id", event.FitmentRecordID),
			zap.String("rid", event.RID),
			zap.String("asset_id", event.AssetID),
			zap.String("batch_id", detail.Batch.BatchID),
			zap.Int("defect_count", stats.DefectCount))
		return nil
	})
}

// refreshBatchRate recomputes one batch's defect statistics and updates its gauge
func (m *DefectMonitor) refreshBatchRate(ctx context.Context, ref, batchID string) (*models.DefectStats, error) {
	stats, err := m.store.GetBatchDefectStats(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to compute defect stats of %s: %w", batchID, err)
	}
	rate := DefectRatePercent(stats.DefectCount, stats.TotalComponents)
	util.BatchDefectRate.WithLabelValues(batchID).Set(rate)

	m.logger.Info("Batch defect rate updated",
		zap.String("batch_id", batchID),
		zap.Int("defect_count", stats.DefectCount),
		zap.Float64("defect_rate_percent", rate))
	return stats, nil
}
