package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"udm-tms-service/internal/models"
	"udm-tms-service/internal/store"
	"udm-tms-service/internal/util"

	"go.uber.org/zap"
)

// UDMService serves the procurement side: components, receipts and batches
type UDMService struct {
	store        *store.Store
	cache        ComponentCache
	publisher    EventPublisher
	historyLimit int
	defaultDepot string
	logger       *zap.Logger
	now          func() time.Time
}

// NewUDMService creates a new UDM service
func NewUDMService(
	store *store.Store,
	cache ComponentCache,
	publisher EventPublisher,
	historyLimit int,
	defaultDepot string,
) *UDMService {
	return &UDMService{
		store:        store,
		cache:        cache,
		publisher:    publisher,
		historyLimit: historyLimit,
		defaultDepot: defaultDepot,
		logger:       util.GetLogger(),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// VendorView is the public shape of a vendor
type VendorView struct {
	VendorID      string `json:"vendor_id"`
	Name          string `json:"name"`
	Contact       string `json:"contact"`
	UDMVendorCode string `json:"udm_vendor_code"`
}

// BatchSummary is the public shape of a batch inside a component view
type BatchSummary struct {
	BatchID               string    `json:"batch_id"`
	LotNo                 string    `json:"lot_no"`
	PONumber              string    `json:"po_number"`
	QuantityInBatch       int       `json:"quantity_in_batch"`
	MfgDate               time.Time `json:"mfg_date"`
	ExpiryOrWarrantyYears int       `json:"expiry_or_warranty_years"`
}

// MarkingView is the latest marking attempt of a component
type MarkingView struct {
	EngraverModel string            `json:"engraver_model"`
	MarkTimestamp time.Time         `json:"mark_timestamp"`
	QRImageURL    string            `json:"qr_image_url"`
	MarkStatus    string            `json:"mark_status"`
	MarkParams    models.MarkParams `json:"mark_params"`
}

// InspectionSummary is one entry of a component's inspection history
type InspectionSummary struct {
	InspectionID string    `json:"inspection_id"`
	InspectorID  string    `json:"inspector_id"`
	Date         time.Time `json:"date"`
	Status       string    `json:"status"`
	Notes        string    `json:"notes"`
	Confidence   float64   `json:"confidence"`
}

// ComponentView is the denormalized component detail
type ComponentView struct {
	RID               string              `json:"rid"`
	ComponentType     string              `json:"component_type"`
	Material          string              `json:"material"`
	Vendor            VendorView          `json:"vendor"`
	Batch             BatchSummary        `json:"batch"`
	Marking           *MarkingView        `json:"marking"`
	Procurement       models.Procurement  `json:"procurement"`
	Warranty          models.Warranty     `json:"warranty"`
	InspectionHistory []InspectionSummary `json:"inspection_history"`
	UDMLinks          models.UDMLinks     `json:"udm_links"`
}

// BatchView is a batch with its vendor and defect statistics
type BatchView struct {
	BatchSummary
	Vendor              VendorView `json:"vendor"`
	TotalComponents     int        `json:"total_components"`
	DefectCount         int        `json:"defect_count"`
	DefectiveComponents int        `json:"defective_components"`
	DefectRatePercent   float64    `json:"defect_rate_percent"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// ReceiptRequest is a goods receipt note
type ReceiptRequest struct {
	GRNNumber string        `json:"grn_number"`
	PONumber  string        `json:"po_number"`
	VendorID  string        `json:"vendor_id"`
	BatchID   string        `json:"batch_id"`
	Items     []ReceiptItem `json:"items"`
}

// ReceiptItem is one received component of a receipt
type ReceiptItem struct {
	RID           string `json:"rid"`
	ReceivedDate  string `json:"received_date"`
	InvoiceNumber string `json:"invoice_number"`
	ReceivedBy    string `json:"received_by"`
}

// ReceiptResponse acknowledges a processed receipt
type ReceiptResponse struct {
	Status         string    `json:"status"`
	GRNID          string    `json:"grn_id"`
	CreatedAt      time.Time `json:"created_at"`
	ProcessedItems int       `json:"processed_items"`
}

// DefectRatePercent returns 100*defects/total rounded to two decimals, or 0 for an empty batch
func DefectRatePercent(defectCount, totalComponents int) float64 {
	if totalComponents <= 0 {
		return 0
	}
	rate := float64(defectCount) / float64(totalComponents) * 100
	return math.Round(rate*100) / 100
}

// GetComponent returns the component detail view for a RID
func (s *UDMService) GetComponent(ctx context.Context, rid string) (*ComponentView, error) {
	ctx, span := util.StartSpan(ctx, "UDMService.GetComponent", util.AttrRID.String(rid))
	defer span.End()

	start := time.Now()
	defer func() {
		util.ComponentLookupLatency.Observe(time.Since(start).Seconds())
	}()

	if view, ok := s.cache.Get(ctx, rid); ok {
		util.ComponentCacheRequestsTotal.WithLabelValues("hit").Inc()
		return view, nil
	}
	util.ComponentCacheRequestsTotal.WithLabelValues("miss").Inc()

	detail, err := s.store.GetComponentDetail(ctx, rid)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Component with RID %s not found", rid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get component: %w", err)
	}

	mark, err := s.store.GetLatestMark(ctx, detail.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get marking: %w", err)
	}

	inspections, err := s.store.GetInspectionHistory(ctx, detail.ID, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get inspection history: %w", err)
	}

	view := &ComponentView{
		RID:               detail.RID,
		ComponentType:     detail.ComponentType,
		Material:          detail.Material,
		Vendor:            vendorView(detail.Vendor),
		Batch:             batchSummary(detail.Batch),
		Procurement:       detail.Procurement,
		Warranty:          detail.Warranty,
		UDMLinks:          detail.UDMLinks,
		InspectionHistory: make([]InspectionSummary, 0, len(inspections)),
	}

	if mark != nil {
		view.Marking = &MarkingView{
			EngraverModel: mark.EngraverModel,
			MarkTimestamp: mark.MarkTimestamp,
			QRImageURL:    mark.QRImageURL,
			MarkStatus:    mark.MarkStatus,
			MarkParams:    mark.MarkParams,
		}
	}

	for _, in := range inspections {
		view.InspectionHistory = append(view.InspectionHistory, InspectionSummary{
			InspectionID: in.InspectionID,
			InspectorID:  in.InspectorID,
			Date:         in.Date,
			Status:       in.Status,
			Notes:        in.Notes,
			Confidence:   in.Confidence,
		})
	}

	s.cache.Set(ctx, view)
	return view, nil
}

// ProcessReceipt records a goods receipt against the components it lists
func (s *UDMService) ProcessReceipt(ctx context.Context, req *ReceiptRequest) (*ReceiptResponse, error) {
	ctx, span := util.StartSpan(ctx, "UDMService.ProcessReceipt", util.AttrGRN.String(req.GRNNumber))
	defer span.End()

	if req.GRNNumber == "" || req.PONumber == "" || req.VendorID == "" || req.BatchID == "" || req.Items == nil {
		return nil, &ValidationError{Message: "Missing required fields: grn_number, po_number, vendor_id, batch_id, items"}
	}

	if _, err := s.store.GetVendorByVendorID(ctx, req.VendorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("Vendor %s not found", req.VendorID)
		}
		return nil, fmt.Errorf("failed to get vendor: %w", err)
	}

	if _, err := s.store.GetBatchByBatchID(ctx, req.BatchID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("Batch %s not found", req.BatchID)
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	now := s.now()
	updates := make(map[string]models.Procurement, len(req.Items))
	order := make([]string, 0, len(req.Items))

	for _, item := range req.Items {
		if item.RID == "" {
			continue
		}

		grnDate := now
		if item.ReceivedDate != "" {
			d, err := parseDate("received_date", item.ReceivedDate)
			if err != nil {
				return nil, err
			}
			grnDate = d
		}

		invoice := item.InvoiceNumber
		if invoice == "" {
			invoice = generateInvoiceNumber()
		}

		depot := item.ReceivedBy
		if depot == "" {
			depot = s.defaultDepot
		}

		grn := req.GRNNumber
		if _, seen := updates[item.RID]; !seen {
			order = append(order, item.RID)
		}
		updates[item.RID] = models.Procurement{
			GRNNumber:       &grn,
			GRNDate:         &grnDate,
			InvoiceNumber:   &invoice,
			ReceivedByDepot: &depot,
		}
	}

	var updated []string
	err := s.store.InTx(ctx, func(tx *store.Store) error {
		updated = make([]string, 0, len(order))
		for _, rid := range order {
			ok, err := tx.UpdateComponentProcurement(ctx, rid, updates[rid])
			if err != nil {
				return fmt.Errorf("failed to update procurement of %s: %w", rid, err)
			}
			if !ok {
				s.logger.Debug("Receipt item references unknown component", zap.String("rid", rid))
				continue
			}
			updated = append(updated, rid)
		}
		return nil
	})
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	s.cache.Evict(ctx, updated...)
	util.ReceiptsProcessedTotal.Inc()
	util.ReceiptItemsUpdatedTotal.Add(float64(len(updated)))

	s.logger.Info("Receipt processed",
		zap.String("grn_number", req.GRNNumber),
		zap.String("batch_id", req.BatchID),
		zap.Int("items", len(req.Items)),
		zap.Int("updated", len(updated)))

	event := &models.ReceiptProcessedEvent{
		BaseEvent:      newEventBase(models.EventTypeReceiptProcessed, now),
		GRNNumber:      req.GRNNumber,
		PONumber:       req.PONumber,
		VendorID:       req.VendorID,
		BatchID:        req.BatchID,
		RIDs:           updated,
		ItemsInReceipt: len(req.Items),
	}
	if err := s.publisher.PublishReceiptProcessed(ctx, event); err != nil {
		util.EventPublishFailuresTotal.WithLabelValues(event.EventType).Inc()
		s.logger.Error("Failed to publish ReceiptProcessed event", zap.Error(err))
	}

	return &ReceiptResponse{
		Status:         "success",
		GRNID:          req.GRNNumber,
		CreatedAt:      now,
		ProcessedItems: len(req.Items),
	}, nil
}

// generateInvoiceNumber returns INV-<10000..109998>
func generateInvoiceNumber() string {
	return fmt.Sprintf("INV-%d", rand.Intn(99999)+10000)
}

// GetBatch returns a batch with its vendor and defect statistics
func (s *UDMService) GetBatch(ctx context.Context, batchID string) (*BatchView, error) {
	ctx, span := util.StartSpan(ctx, "UDMService.GetBatch", util.AttrBatchID.String(batchID))
	defer span.End()

	batch, err := s.store.GetBatchByBatchID(ctx, batchID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Batch %s not found", batchID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	stats, err := s.store.GetBatchDefectStats(ctx, batch.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute defect stats: %w", err)
	}

	rate := DefectRatePercent(stats.DefectCount, stats.TotalComponents)
	util.BatchDefectRate.WithLabelValues(batch.BatchID).Set(rate)

	return &BatchView{
		BatchSummary:        batchSummary(batch.Batch),
		Vendor:              vendorView(batch.Vendor),
		TotalComponents:     stats.TotalComponents,
		DefectCount:         stats.DefectCount,
		DefectiveComponents: stats.DefectiveComponents,
		DefectRatePercent:   rate,
		CreatedAt:           batch.CreatedAt,
		UpdatedAt:           batch.UpdatedAt,
	}, nil
}

// RefreshBatchMetrics recomputes the defect rate gauge of every batch and returns how many were updated
func (s *UDMService) RefreshBatchMetrics(ctx context.Context) (int, error) {
	ctx, span := util.StartSpan(ctx, "UDMService.RefreshBatchMetrics")
	defer span.End()

	batches, err := s.store.ListBatches(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list batches: %w", err)
	}

	for _, b := range batches {
		stats, err := s.store.GetBatchDefectStats(ctx, b.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to compute defect stats of %s: %w", b.BatchID, err)
		}
		util.BatchDefectRate.WithLabelValues(b.BatchID).Set(DefectRatePercent(stats.DefectCount, stats.TotalComponents))
	}

	return len(batches), nil
}

func vendorView(v models.Vendor) VendorView {
	return VendorView{
		VendorID:      v.VendorID,
		Name:          v.Name,
		Contact:       v.Contact,
		UDMVendorCode: v.UDMVendorCode,
	}
}

func batchSummary(b models.Batch) BatchSummary {
	return BatchSummary{
		BatchID:               b.BatchID,
		LotNo:                 b.LotNo,
		PONumber:              b.PONumber,
		QuantityInBatch:       b.QuantityInBatch,
		MfgDate:               b.MfgDate,
		ExpiryOrWarrantyYears: b.ExpiryOrWarrantyYears,
	}
}
