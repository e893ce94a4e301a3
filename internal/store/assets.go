package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"udm-tms-service/internal/models"
)

// CreateAsset inserts an asset
func (s *Store) CreateAsset(ctx context.Context, a *models.Asset) error {
	if a.ID == "" {
		a.ID = newID()
	}
	ts := now()
	a.CreatedAt, a.UpdatedAt = ts, ts

	_, err := s.exec(ctx, `
		INSERT INTO assets (id, asset_id, asset_type, zone, division, km_marker,
			installed_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.AssetID, a.AssetType, a.Zone, a.Division, a.KMMarker,
		a.InstalledDate.UTC(), a.Status, a.CreatedAt, a.UpdatedAt)
	return err
}

// GetAssetByAssetID retrieves an asset by its business key
func (s *Store) GetAssetByAssetID(ctx context.Context, assetID string) (*models.Asset, error) {
	var a models.Asset
	err := s.get(ctx, &a, `
		SELECT id, asset_id, asset_type, zone, division, km_marker, installed_date, status,
			created_at, updated_at
		FROM assets
		WHERE asset_id = ?`, assetID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("asset %s: %w", assetID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateFitment inserts a fitment record
func (s *Store) CreateFitment(ctx context.Context, f *models.Fitment) error {
	if f.ID == "" {
		f.ID = newID()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now()
	}

	_, err := s.exec(ctx, `
		INSERT INTO fitments (id, fitment_record_id, asset_ref, component_ref, fitment_date,
			fitted_by, zone, division, km_marker, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.FitmentRecordID, f.AssetRef, f.ComponentRef, f.FitmentDate.UTC(),
		f.FittedBy, f.Zone, f.Division, f.KMMarker, f.Notes, f.CreatedAt.UTC())
	return err
}

// ListFittedComponents retrieves the fitments of an asset in the order they were recorded
func (s *Store) ListFittedComponents(ctx context.Context, assetRef string) ([]models.FittedComponent, error) {
	fitted := []models.FittedComponent{}
	err := s.selectAll(ctx, &fitted, `
		SELECT f.id, f.fitment_record_id, f.asset_ref, f.component_ref, f.fitment_date, f.fitted_by,
			f.zone, f.division, f.km_marker, f.notes, f.created_at,
			c.rid AS "component.rid", c.component_type AS "component.component_type",
			c.material AS "component.material"
		FROM fitments f
		JOIN components c ON c.id = f.component_ref
		WHERE f.asset_ref = ?
		ORDER BY f.created_at, f.fitment_record_id`, assetRef)
	return fitted, err
}
