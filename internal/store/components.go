package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"udm-tms-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const componentColumns = `
	c.id, c.rid, c.component_type, c.material, c.batch_ref,
	c.grn_number, c.grn_date, c.invoice_number, c.received_by_depot,
	c.warranty_start, c.warranty_end, c.warranty_terms,
	c.udm_record_url, c.tms_asset_link, c.created_at, c.updated_at`

const batchColumns = `
	b.id, b.batch_id, b.lot_no, b.po_number, b.quantity_in_batch, b.mfg_date,
	b.expiry_or_warranty_years, b.vendor_ref, b.created_at, b.updated_at`

const vendorColumns = `
	v.id, v.vendor_id, v.name, v.contact, v.udm_vendor_code, v.created_at, v.updated_at`

// CreateVendor inserts a vendor
func (s *Store) CreateVendor(ctx context.Context, vendor *models.Vendor) error {
	if vendor.ID == "" {
		vendor.ID = newID()
	}
	ts := now()
	vendor.CreatedAt, vendor.UpdatedAt = ts, ts

	_, err := s.exec(ctx, `
		INSERT INTO vendors (id, vendor_id, name, contact, udm_vendor_code, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		vendor.ID, vendor.VendorID, vendor.Name, vendor.Contact, vendor.UDMVendorCode,
		vendor.CreatedAt, vendor.UpdatedAt)
	return err
}

// GetVendorByVendorID retrieves a vendor by its business key
func (s *Store) GetVendorByVendorID(ctx context.Context, vendorID string) (*models.Vendor, error) {
	var vendor models.Vendor
	err := s.get(ctx, &vendor, "SELECT "+vendorColumns+" FROM vendors v WHERE v.vendor_id = ?", vendorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("vendor %s: %w", vendorID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

// CreateBatch inserts a batch
func (s *Store) CreateBatch(ctx context.Context, batch *models.Batch) error {
	if batch.ID == "" {
		batch.ID = newID()
	}
	ts := now()
	batch.CreatedAt, batch.UpdatedAt = ts, ts

	_, err := s.exec(ctx, `
		INSERT INTO batches (id, batch_id, lot_no, po_number, quantity_in_batch, mfg_date,
			expiry_or_warranty_years, vendor_ref, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		batch.ID, batch.BatchID, batch.LotNo, batch.PONumber, batch.QuantityInBatch, batch.MfgDate.UTC(),
		batch.ExpiryOrWarrantyYears, batch.VendorRef, batch.CreatedAt, batch.UpdatedAt)
	return err
}

// GetBatchByBatchID retrieves a batch with its vendor
func (s *Store) GetBatchByBatchID(ctx context.Context, batchID string) (*models.BatchWithVendor, error) {
	var batch models.BatchWithVendor
	err := s.get(ctx, &batch, `
		SELECT `+batchColumns+`,
			v.id AS "vendor.id", v.vendor_id AS "vendor.vendor_id", v.name AS "vendor.name",
			v.contact AS "vendor.contact", v.udm_vendor_code AS "vendor.udm_vendor_code",
			v.created_at AS "vendor.created_at", v.updated_at AS "vendor.updated_at"
		FROM batches b
		JOIN vendors v ON v.id = b.vendor_ref
		WHERE b.batch_id = ?`, batchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("batch %s: %w", batchID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// ListBatches retrieves all batches
func (s *Store) ListBatches(ctx context.Context) ([]models.Batch, error) {
	var batches []models.Batch
	err := s.selectAll(ctx, &batches, "SELECT "+batchColumns+" FROM batches b ORDER BY b.batch_id")
	return batches, err
}

// GetBatchDefectStats counts the components of a batch and the inspections
// of those components whose status is in the failing set. Inspections are
// counted per event, so one component can contribute several defects.
func (s *Store) GetBatchDefectStats(ctx context.Context, batchRef string) (*models.DefectStats, error) {
	var stats models.DefectStats

	if err := s.get(ctx, &stats.TotalComponents,
		"SELECT COUNT(*) FROM components WHERE batch_ref = ?", batchRef); err != nil {
		return nil, fmt.Errorf("failed to count components: %w", err)
	}

	query, args, err := sqlx.In(`
		SELECT COUNT(*) AS defect_count, COUNT(DISTINCT i.component_ref) AS defective_components
		FROM inspections i
		JOIN components c ON c.id = i.component_ref
		WHERE c.batch_ref = ? AND i.status IN (?)`,
		batchRef, models.FailingInspectionStatuses)
	if err != nil {
		return nil, err
	}

	var counts struct {
		DefectCount         int `db:"defect_count"`
		DefectiveComponents int `db:"defective_components"`
	}
	if err := s.get(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to count defects: %w", err)
	}

	stats.DefectCount = counts.DefectCount
	stats.DefectiveComponents = counts.DefectiveComponents
	return &stats, nil
}

// CreateComponent inserts a component
func (s *Store) CreateComponent(ctx context.Context, c *models.Component) error {
	if c.ID == "" {
		c.ID = newID()
	}
	ts := now()
	c.CreatedAt, c.UpdatedAt = ts, ts

	_, err := s.exec(ctx, `
		INSERT INTO components (id, rid, component_type, material, batch_ref,
			grn_number, grn_date, invoice_number, received_by_depot,
			warranty_start, warranty_end, warranty_terms,
			udm_record_url, tms_asset_link, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.RID, c.ComponentType, c.Material, c.BatchRef,
		c.GRNNumber, utcPtr(c.GRNDate), c.InvoiceNumber, c.ReceivedByDepot,
		utcPtr(c.WarrantyStart), utcPtr(c.WarrantyEnd), c.WarrantyTerms,
		c.UDMRecordURL, c.TMSAssetLink, c.CreatedAt, c.UpdatedAt)
	return err
}

// GetComponentByRID retrieves a component by RID
func (s *Store) GetComponentByRID(ctx context.Context, rid string) (*models.Component, error) {
	var c models.Component
	err := s.get(ctx, &c, "SELECT "+componentColumns+" FROM components c WHERE c.rid = ?", rid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("component %s: %w", rid, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetComponentDetail retrieves a component with its batch and the batch's vendor
func (s *Store) GetComponentDetail(ctx context.Context, rid string) (*models.ComponentDetail, error) {
	var detail models.ComponentDetail
	err := s.get(ctx, &detail, `
		SELECT `+componentColumns+`,
			b.id AS "batch.id", b.batch_id AS "batch.batch_id", b.lot_no AS "batch.lot_no",
			b.po_number AS "batch.po_number", b.quantity_in_batch AS "batch.quantity_in_batch",
			b.mfg_date AS "batch.mfg_date", b.expiry_or_warranty_years AS "batch.expiry_or_warranty_years",
			b.vendor_ref AS "batch.vendor_ref", b.created_at AS "batch.created_at", b.updated_at AS "batch.updated_at",
			v.id AS "vendor.id", v.vendor_id AS "vendor.vendor_id", v.name AS "vendor.name",
			v.contact AS "vendor.contact", v.udm_vendor_code AS "vendor.udm_vendor_code",
			v.created_at AS "vendor.created_at", v.updated_at AS "vendor.updated_at"
		FROM components c
		JOIN batches b ON b.id = c.batch_ref
		JOIN vendors v ON v.id = b.vendor_ref
		WHERE c.rid = ?`, rid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("component %s: %w", rid, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// UpdateComponentProcurement overwrites the procurement sub-record of a component.
// It reports whether a component with the RID exists.
func (s *Store) UpdateComponentProcurement(ctx context.Context, rid string, p models.Procurement) (bool, error) {
	n, err := s.exec(ctx, `
		UPDATE components
		SET grn_number = ?, grn_date = ?, invoice_number = ?, received_by_depot = ?, updated_at = ?
		WHERE rid = ?`,
		p.GRNNumber, utcPtr(p.GRNDate), p.InvoiceNumber, p.ReceivedByDepot, now(), rid)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateMark inserts a marking attempt
func (s *Store) CreateMark(ctx context.Context, m *models.Mark) error {
	if m.ID == "" {
		m.ID = newID()
	}
	ts := now()
	m.CreatedAt, m.UpdatedAt = ts, ts

	_, err := s.exec(ctx, `
		INSERT INTO marks (id, mark_attempt_id, component_ref, engraver_model, mark_timestamp,
			qr_image_url, mark_status, power_pct, speed_mm_s, depth_mm, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.MarkAttemptID, m.ComponentRef, m.EngraverModel, m.MarkTimestamp.UTC(),
		m.QRImageURL, m.MarkStatus, m.PowerPct, m.SpeedMMS, m.DepthMM, m.CreatedAt, m.UpdatedAt)
	return err
}

// GetLatestMark retrieves the most recent marking attempt of a component.
// It returns nil without error when the component was never marked.
func (s *Store) GetLatestMark(ctx context.Context, componentRef string) (*models.Mark, error) {
	var m models.Mark
	err := s.get(ctx, &m, `
		SELECT id, mark_attempt_id, component_ref, engraver_model, mark_timestamp, qr_image_url,
			mark_status, power_pct, speed_mm_s, depth_mm, created_at, updated_at
		FROM marks
		WHERE component_ref = ?
		ORDER BY mark_timestamp DESC, created_at DESC
		LIMIT 1`, componentRef)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
