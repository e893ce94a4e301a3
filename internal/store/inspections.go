package store

import (
	"context"
	"math"

	"udm-tms-service/internal/models"
)

const inspectionColumns = `
	i.id, i.inspection_id, i.component_ref, i.inspector_id, i.date, i.status, i.notes,
	i.photo_urls, i.gps_lat, i.gps_lon, i.connectivity, i.synced, i.confidence,
	i.created_at, i.updated_at`

// CreateInspection inserts an inspection record
func (s *Store) CreateInspection(ctx context.Context, in *models.Inspection) error {
	if in.ID == "" {
		in.ID = newID()
	}
	if in.PhotoURLs == nil {
		in.PhotoURLs = models.StringList{}
	}
	ts := now()
	in.CreatedAt, in.UpdatedAt = ts, ts

	_, err := s.exec(ctx, `
		INSERT INTO inspections (id, inspection_id, component_ref, inspector_id, date, status, notes,
			photo_urls, gps_lat, gps_lon, connectivity, synced, confidence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.InspectionID, in.ComponentRef, in.InspectorID, in.Date.UTC(), in.Status, in.Notes,
		in.PhotoURLs, in.Lat, in.Lon, in.Connectivity, in.Synced, in.Confidence, in.CreatedAt, in.UpdatedAt)
	return err
}

// GetInspectionHistory retrieves the latest inspections of a component, newest first
func (s *Store) GetInspectionHistory(ctx context.Context, componentRef string, limit int) ([]models.Inspection, error) {
	inspections := []models.Inspection{}
	err := s.selectAll(ctx, &inspections, `
		SELECT `+inspectionColumns+`
		FROM inspections i
		WHERE i.component_ref = ?
		ORDER BY i.date DESC, i.created_at DESC
		LIMIT ?`, componentRef, limit)
	return inspections, err
}

// ListInspections retrieves inspections with their component summary, newest first.
// A non-positive limit returns every row after the offset.
func (s *Store) ListInspections(ctx context.Context, filter models.InspectionFilter) ([]models.InspectionWithComponent, error) {
	query := `
		SELECT ` + inspectionColumns + `,
			c.rid AS "component.rid", c.component_type AS "component.component_type",
			c.material AS "component.material"
		FROM inspections i
		JOIN components c ON c.id = i.component_ref`
	args := []interface{}{}

	if filter.ComponentRef != "" {
		query += " WHERE i.component_ref = ?"
		args = append(args, filter.ComponentRef)
	}

	query += " ORDER BY i.date DESC, i.created_at DESC"

	limit, offset := filter.Limit, filter.Offset
	if limit <= 0 {
		limit = math.MaxInt32
	}
	if offset < 0 {
		offset = 0
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	inspections := []models.InspectionWithComponent{}
	err := s.selectAll(ctx, &inspections, query, args...)
	return inspections, err
}
