package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"udm-tms-service/internal/models"
	"udm-tms-service/internal/store"
	"udm-tms-service/internal/util"

	"go.uber.org/zap"
)

// TMSService serves the track management side: assets, fitments and inspections
type TMSService struct {
	store     *store.Store
	cache     ComponentCache
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewTMSService creates a new TMS service
func NewTMSService(store *store.Store, cache ComponentCache, publisher EventPublisher) *TMSService {
	return &TMSService{
		store:     store,
		cache:     cache,
		publisher: publisher,
		logger:    util.GetLogger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// FittedComponentView is one fitment of an asset
type FittedComponentView struct {
	FitmentID     string          `json:"fitment_id"`
	RID           string          `json:"rid"`
	ComponentType string          `json:"component_type"`
	Material      string          `json:"material"`
	FitmentDate   time.Time       `json:"fitment_date"`
	FittedBy      string          `json:"fitted_by"`
	Location      models.Location `json:"location"`
	Notes         string          `json:"notes"`
}

// AssetView is an asset with its fitted components
type AssetView struct {
	AssetID               string                `json:"asset_id"`
	AssetType             string                `json:"asset_type"`
	Location              models.Location       `json:"location"`
	InstalledDate         time.Time             `json:"installed_date"`
	Status                string                `json:"status"`
	FittedComponents      []FittedComponentView `json:"fitted_components"`
	TotalFittedComponents int                   `json:"total_fitted_components"`
	LastUpdated           time.Time             `json:"last_updated"`
}

// FitmentRequest records a component installed on an asset
type FitmentRequest struct {
	RID         string           `json:"rid"`
	FitmentDate string           `json:"fitment_date"`
	FittedBy    string           `json:"fitted_by"`
	Location    *models.Location `json:"location"`
	Notes       string           `json:"notes"`
}

// FitmentResponse acknowledges a recorded fitment
type FitmentResponse struct {
	Status          string    `json:"status"`
	FitmentRecordID string    `json:"fitment_record_id"`
	AssetID         string    `json:"asset_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// InspectionRequest is one inspection submission covering several components
type InspectionRequest struct {
	InspectionID   string          `json:"inspection_id"`
	InspectorID    string          `json:"inspector_id"`
	Date           string          `json:"date"`
	ComponentReads []ComponentRead `json:"component_reads"`
	Photos         []string        `json:"photos"`
	GPS            *models.GPS     `json:"gps"`
	Connectivity   string          `json:"connectivity"`
	Synced         bool            `json:"synced"`
}

// ComponentRead is the observation of one component in a submission
type ComponentRead struct {
	RID        string   `json:"rid"`
	Status     string   `json:"status"`
	Notes      string   `json:"notes"`
	Confidence *float64 `json:"confidence"`
}

// InspectionRecordView identifies a stored inspection
type InspectionRecordView struct {
	ID           string `json:"id"`
	InspectionID string `json:"inspection_id"`
	ComponentRID string `json:"component_rid"`
	Status       string `json:"status"`
}

// SkippedRead is a read that produced no inspection
type SkippedRead struct {
	RID    string `json:"rid"`
	Reason string `json:"reason"`
}

// InspectionResponse acknowledges an inspection submission
type InspectionResponse struct {
	Status              string                 `json:"status"`
	InspectionID        string                 `json:"inspection_id"`
	AssetID             string                 `json:"asset_id"`
	ProcessedComponents int                    `json:"processed_components"`
	InspectionRecords   []InspectionRecordView `json:"inspection_records"`
	Skipped             []SkippedRead          `json:"skipped"`
	CreatedAt           time.Time              `json:"created_at"`
}

// InspectionQuery filters the inspection listing
type InspectionQuery struct {
	ComponentRID string
	Limit        int
	Offset       int
}

// InspectionListItem is an inspection with its component summary
type InspectionListItem struct {
	InspectionID string                  `json:"inspection_id"`
	Component    models.ComponentSummary `json:"component"`
	InspectorID  string                  `json:"inspector_id"`
	Date         time.Time               `json:"date"`
	Status       string                  `json:"status"`
	Notes        string                  `json:"notes"`
	PhotoURLs    []string                `json:"photo_urls"`
	GPS          models.GPS              `json:"gps"`
	Connectivity string                  `json:"connectivity"`
	Synced       bool                    `json:"synced"`
	Confidence   float64                 `json:"confidence"`
	CreatedAt    time.Time               `json:"created_at"`
}

// InspectionQueryParams echoes the filters of a listing
type InspectionQueryParams struct {
	ComponentRID string `json:"componentRid,omitempty"`
}

// InspectionList is a page of inspections
type InspectionList struct {
	Inspections []InspectionListItem  `json:"inspections"`
	TotalFound  int                   `json:"total_found"`
	Limit       int                   `json:"limit"`
	Offset      int                   `json:"offset"`
	QueryParams InspectionQueryParams `json:"query_params"`
}

// GetAsset returns an asset with its fitted components
func (s *TMSService) GetAsset(ctx context.Context, assetID string) (*AssetView, error) {
	ctx, span := util.StartSpan(ctx, "TMSService.GetAsset", util.AttrAssetID.String(assetID))
	defer span.End()

	asset, err := s.getAsset(ctx, s.store, assetID)
	if err != nil {
		return nil, err
	}

	fitted, err := s.store.ListFittedComponents(ctx, asset.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fitted components: %w", err)
	}

	view := &AssetView{
		AssetID:          asset.AssetID,
		AssetType:        asset.AssetType,
		Location:         asset.Location,
		InstalledDate:    asset.InstalledDate,
		Status:           asset.Status,
		FittedComponents: make([]FittedComponentView, 0, len(fitted)),
		LastUpdated:      s.now(),
	}

	for _, f := range fitted {
		view.FittedComponents = append(view.FittedComponents, FittedComponentView{
			FitmentID:     f.FitmentRecordID,
			RID:           f.Component.RID,
			ComponentType: f.Component.ComponentType,
			Material:      f.Component.Material,
			FitmentDate:   f.FitmentDate,
			FittedBy:      f.FittedBy,
			Location:      f.Location,
			Notes:         f.Notes,
		})
	}
	view.TotalFittedComponents = len(view.FittedComponents)

	return view, nil
}

// RecordFitment records the installation of a component on an asset
func (s *TMSService) RecordFitment(ctx context.Context, assetID string, req *FitmentRequest) (*FitmentResponse, error) {
	ctx, span := util.StartSpan(ctx, "TMSService.RecordFitment", util.AttrAssetID.String(assetID))
	defer span.End()

	if req.RID == "" || req.FitmentDate == "" || req.FittedBy == "" {
		return nil, &ValidationError{Message: "Missing required fields: rid, fitment_date, fitted_by"}
	}

	fitmentDate, err := parseDate("fitment_date", req.FitmentDate)
	if err != nil {
		return nil, err
	}

	now := s.now()
	fitment := &models.Fitment{
		FitmentRecordID: fmt.Sprintf("FIT-%d", now.UnixMilli()),
		FitmentDate:     fitmentDate,
		FittedBy:        req.FittedBy,
		Notes:           req.Notes,
		CreatedAt:       now,
	}

	err = s.store.InTx(ctx, func(tx *store.Store) error {
		asset, err := s.getAsset(ctx, tx, assetID)
		if err != nil {
			return err
		}

		component, err := tx.GetComponentByRID(ctx, req.RID)
		if errors.Is(err, store.ErrNotFound) {
			return notFound("Component with RID %s not found", req.RID)
		}
		if err != nil {
			return fmt.Errorf("failed to get component: %w", err)
		}

		fitment.AssetRef = asset.ID
		fitment.ComponentRef = component.ID
		fitment.Location = asset.Location
		if req.Location != nil {
			fitment.Location = *req.Location
		}

		if err := tx.CreateFitment(ctx, fitment); err != nil {
			return fmt.Errorf("failed to create fitment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.FitmentsRecordedTotal.Inc()
	s.logger.Info("Fitment recorded",
		zap.String("fitment_record_id", fitment.FitmentRecordID),
		zap.String("asset_id", assetID),
		zap.String("rid", req.RID))

	event := &models.ComponentFittedEvent{
		BaseEvent:       newEventBase(models.EventTypeComponentFitted, now),
		FitmentRecordID: fitment.FitmentRecordID,
		AssetID:         assetID,
		RID:             req.RID,
		FittedBy:        req.FittedBy,
		FitmentDate:     fitmentDate,
	}
	if err := s.publisher.PublishComponentFitted(ctx, event); err != nil {
		util.EventPublishFailuresTotal.WithLabelValues(event.EventType).Inc()
		s.logger.Error("Failed to publish ComponentFitted event", zap.Error(err))
	}

	return &FitmentResponse{
		Status:          "ok",
		FitmentRecordID: fitment.FitmentRecordID,
		AssetID:         assetID,
		CreatedAt:       now,
	}, nil
}

// RecordInspection stores one inspection per known component of a submission.
// Reads naming an unknown RID are skipped and reported.
func (s *TMSService) RecordInspection(ctx context.Context, assetID string, req *InspectionRequest) (*InspectionResponse, error) {
	ctx, span := util.StartSpan(ctx, "TMSService.RecordInspection",
		util.AttrAssetID.String(assetID),
		util.AttrInspID.String(req.InspectionID))
	defer span.End()

	if req.InspectionID == "" || req.InspectorID == "" || req.Date == "" || req.ComponentReads == nil {
		return nil, &ValidationError{Message: "Missing required fields: inspection_id, inspector_id, date, component_reads"}
	}

	date, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}

	gps := models.GPS{}
	if req.GPS != nil {
		gps = *req.GPS
	}
	connectivity := req.Connectivity
	if connectivity == "" {
		connectivity = models.ConnectivityOffline
	}

	resp := &InspectionResponse{
		Status:            "success",
		InspectionID:      req.InspectionID,
		AssetID:           assetID,
		InspectionRecords: []InspectionRecordView{},
		Skipped:           []SkippedRead{},
	}
	reads := make([]models.InspectionReadData, 0, len(req.ComponentReads))

	err = s.store.InTx(ctx, func(tx *store.Store) error {
		if _, err := s.getAsset(ctx, tx, assetID); err != nil {
			return err
		}

		for _, read := range req.ComponentReads {
			component, err := tx.GetComponentByRID(ctx, read.RID)
			if errors.Is(err, store.ErrNotFound) {
				s.logger.Warn("Component not found, skipping read",
					zap.String("inspection_id", req.InspectionID),
					zap.String("rid", read.RID))
				resp.Skipped = append(resp.Skipped, SkippedRead{
					RID:    read.RID,
					Reason: fmt.Sprintf("Component with RID %s not found", read.RID),
				})
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to get component %s: %w", read.RID, err)
			}

			status := read.Status
			if status == "" {
				status = models.InspectionStatusOK
			}
			confidence := 1.0
			if read.Confidence != nil {
				confidence = *read.Confidence
			}

			inspection := &models.Inspection{
				InspectionID: fmt.Sprintf("%s-%s", req.InspectionID, read.RID),
				ComponentRef: component.ID,
				InspectorID:  req.InspectorID,
				Date:         date,
				Status:       status,
				Notes:        read.Notes,
				PhotoURLs:    models.StringList(req.Photos),
				GPS:          gps,
				Connectivity: connectivity,
				Synced:       req.Synced,
				Confidence:   confidence,
			}
			if err := tx.CreateInspection(ctx, inspection); err != nil {
				return fmt.Errorf("failed to create inspection %s: %w", inspection.InspectionID, err)
			}

			resp.InspectionRecords = append(resp.InspectionRecords, InspectionRecordView{
				ID:           inspection.ID,
				InspectionID: inspection.InspectionID,
				ComponentRID: read.RID,
				Status:       inspection.Status,
			})
			reads = append(reads, models.InspectionReadData{
				InspectionID: inspection.InspectionID,
				RID:          read.RID,
				Status:       inspection.Status,
				Confidence:   inspection.Confidence,
			})
		}
		return nil
	})
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	now := s.now()
	resp.ProcessedComponents = len(resp.InspectionRecords)
	resp.CreatedAt = now

	rids := make([]string, 0, len(reads))
	for _, r := range reads {
		rids = append(rids, r.RID)
		util.InspectionsRecordedTotal.WithLabelValues(r.Status).Inc()
	}
	s.cache.Evict(ctx, rids...)
	util.InspectionReadsSkippedTotal.Add(float64(len(resp.Skipped)))

	s.logger.Info("Inspection recorded",
		zap.String("inspection_id", req.InspectionID),
		zap.String("asset_id", assetID),
		zap.Int("processed", resp.ProcessedComponents),
		zap.Int("skipped", len(resp.Skipped)))

	event := &models.InspectionRecordedEvent{
		BaseEvent:    newEventBase(models.EventTypeInspectionRecorded, now),
		InspectionID: req.InspectionID,
		AssetID:      assetID,
		InspectorID:  req.InspectorID,
		Reads:        reads,
	}
	if err := s.publisher.PublishInspectionRecorded(ctx, event); err != nil {
		util.EventPublishFailuresTotal.WithLabelValues(event.EventType).Inc()
		s.logger.Error("Failed to publish InspectionRecorded event", zap.Error(err))
	}

	return resp, nil
}

// ListInspections returns inspections newest first, optionally for one component
func (s *TMSService) ListInspections(ctx context.Context, q InspectionQuery) (*InspectionList, error) {
	ctx, span := util.StartSpan(ctx, "TMSService.ListInspections")
	defer span.End()

	filter := models.InspectionFilter{Limit: q.Limit, Offset: q.Offset}

	if q.ComponentRID != "" {
		component, err := s.store.GetComponentByRID(ctx, q.ComponentRID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("Component with RID %s not found", q.ComponentRID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get component: %w", err)
		}
		filter.ComponentRef = component.ID
	}

	inspections, err := s.store.ListInspections(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}

	list := &InspectionList{
		Inspections: make([]InspectionListItem, 0, len(inspections)),
		Limit:       q.Limit,
		Offset:      q.Offset,
		QueryParams: InspectionQueryParams{ComponentRID: q.ComponentRID},
	}
	for _, in := range inspections {
		list.Inspections = append(list.Inspections, InspectionListItem{
			InspectionID: in.InspectionID,
			Component:    in.Component,
			InspectorID:  in.InspectorID,
			Date:         in.Date,
			Status:       in.Status,
			Notes:        in.Notes,
			PhotoURLs:    in.PhotoURLs,
			GPS:          in.GPS,
			Connectivity: in.Connectivity,
			Synced:       in.Synced,
			Confidence:   in.Confidence,
			CreatedAt:    in.CreatedAt,
		})
	}
	list.TotalFound = len(list.Inspections)

	return list, nil
}

// getAsset looks an asset up through st, which may be bound to a transaction
func (s *TMSService) getAsset(ctx context.Context, st *store.Store, assetID string) (*models.Asset, error) {
	asset, err := st.GetAssetByAssetID(ctx, assetID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Asset %s not found", assetID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return asset, nil
}
