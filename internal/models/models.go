package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Vendor supplies batches of components
type Vendor struct {
	ID            string    `db:"id" json:"-"`
	VendorID      string    `db:"vendor_id" json:"vendor_id"`
	Name          string    `db:"name" json:"name"`
	Contact       string    `db:"contact" json:"contact"`
	UDMVendorCode string    `db:"udm_vendor_code" json:"udm_vendor_code"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Batch is a manufacturing lot from one vendor
type Batch struct {
	ID                    string    `db:"id" json:"-"`
	BatchID               string    `db:"batch_id" json:"batch_id"`
	LotNo                 string    `db:"lot_no" json:"lot_no"`
	PONumber              string    `db:"po_number" json:"po_number"`
	QuantityInBatch       int       `db:"quantity_in_batch" json:"quantity_in_batch"`
	MfgDate               time.Time `db:"mfg_date" json:"mfg_date"`
	ExpiryOrWarrantyYears int       `db:"expiry_or_warranty_years" json:"expiry_or_warranty_years"`
	VendorRef             string    `db:"vendor_ref" json:"-"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// BatchWithVendor is a batch joined with its vendor
type BatchWithVendor struct {
	Batch
	Vendor Vendor `db:"vendor"`
}

// Procurement is the goods-receipt sub-record of a component
type Procurement struct {
	GRNNumber       *string    `db:"grn_number" json:"grn_number,omitempty"`
	GRNDate         *time.Time `db:"grn_date" json:"grn_date,omitempty"`
	InvoiceNumber   *string    `db:"invoice_number" json:"invoice_number,omitempty"`
	ReceivedByDepot *string    `db:"received_by_depot" json:"received_by_depot,omitempty"`
}

// Warranty is the warranty sub-record of a component
type Warranty struct {
	WarrantyStart *time.Time `db:"warranty_start" json:"warranty_start,omitempty"`
	WarrantyEnd   *time.Time `db:"warranty_end" json:"warranty_end,omitempty"`
	WarrantyTerms *string    `db:"warranty_terms" json:"warranty_terms,omitempty"`
}

// UDMLinks points to the external UDM and TMS records of a component
type UDMLinks struct {
	UDMRecordURL *string `db:"udm_record_url" json:"udm_record_url,omitempty"`
	TMSAssetLink *string `db:"tms_asset_link" json:"tms_asset_link,omitempty"`
}

// Component is a single traceable track fitting, keyed by RID
type Component struct {
	ID            string `db:"id" json:"-"`
	RID           string `db:"rid" json:"rid"`
	ComponentType string `db:"component_type" json:"component_type"`
	Material      string `db:"material" json:"material"`
	BatchRef      string `db:"batch_ref" json:"-"`
	Procurement   `json:"procurement"`
	Warranty      `json:"warranty"`
	UDMLinks      `json:"udm_links"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// ComponentDetail is a component joined with its batch and vendor
type ComponentDetail struct {
	Component
	Batch  Batch  `db:"batch"`
	Vendor Vendor `db:"vendor"`
}

// MarkParams are the laser settings of a marking attempt
type MarkParams struct {
	PowerPct float64 `db:"power_pct" json:"power_pct"`
	SpeedMMS float64 `db:"speed_mm_s" json:"speed_mm_s"`
	DepthMM  float64 `db:"depth_mm" json:"depth_mm"`
}

// Mark is a laser-engraving attempt on a component
type Mark struct {
	ID            string    `db:"id" json:"-"`
	MarkAttemptID string    `db:"mark_attempt_id" json:"mark_attempt_id"`
	ComponentRef  string    `db:"component_ref" json:"-"`
	EngraverModel string    `db:"engraver_model" json:"engraver_model"`
	MarkTimestamp time.Time `db:"mark_timestamp" json:"mark_timestamp"`
	QRImageURL    string    `db:"qr_image_url" json:"qr_image_url"`
	MarkStatus    string    `db:"mark_status" json:"mark_status"`
	MarkParams    `json:"mark_params"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// GPS is a latitude/longitude pair
type GPS struct {
	Lat float64 `db:"gps_lat" json:"lat"`
	Lon float64 `db:"gps_lon" json:"lon"`
}

// Inspection is one field inspection of one component
type Inspection struct {
	ID           string     `db:"id" json:"id"`
	InspectionID string     `db:"inspection_id" json:"inspection_id"`
	ComponentRef string     `db:"component_ref" json:"-"`
	InspectorID  string     `db:"inspector_id" json:"inspector_id"`
	Date         time.Time  `db:"date" json:"date"`
	Status       string     `db:"status" json:"status"`
	Notes        string     `db:"notes" json:"notes"`
	PhotoURLs    StringList `db:"photo_urls" json:"photo_urls"`
	GPS          `json:"gps"`
	Connectivity string    `db:"connectivity" json:"connectivity"`
	Synced       bool      `db:"synced" json:"synced"`
	Confidence   float64   `db:"confidence" json:"confidence"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ComponentSummary identifies a component in list views
type ComponentSummary struct {
	RID           string `db:"rid" json:"rid"`
	ComponentType string `db:"component_type" json:"component_type"`
	Material      string `db:"material" json:"material"`
}

// InspectionWithComponent is an inspection joined with its component summary
type InspectionWithComponent struct {
	Inspection
	Component ComponentSummary `db:"component"`
}

// InspectionFilter narrows an inspection listing
type InspectionFilter struct {
	ComponentRef string
	Limit        int
	Offset       int
}

// Location places an asset or fitment on the network
type Location struct {
	Zone     string `db:"zone" json:"zone"`
	Division string `db:"division" json:"division"`
	KMMarker string `db:"km_marker" json:"km_marker"`
}

// Asset is a physical track section components are fitted to
type Asset struct {
	ID            string    `db:"id" json:"-"`
	AssetID       string    `db:"asset_id" json:"asset_id"`
	AssetType     string    `db:"asset_type" json:"asset_type"`
	Location      `json:"location"`
	InstalledDate time.Time `db:"installed_date" json:"installed_date"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Fitment records a component installed on an asset
type Fitment struct {
	ID              string    `db:"id" json:"-"`
	FitmentRecordID string    `db:"fitment_record_id" json:"fitment_record_id"`
	AssetRef        string    `db:"asset_ref" json:"-"`
	ComponentRef    string    `db:"component_ref" json:"-"`
	FitmentDate     time.Time `db:"fitment_date" json:"fitment_date"`
	FittedBy        string    `db:"fitted_by" json:"fitted_by"`
	Location        `json:"location"`
	Notes           string    `db:"notes" json:"notes"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// FittedComponent is a fitment joined with its component summary
type FittedComponent struct {
	Fitment
	Component ComponentSummary `db:"component"`
}

// DefectStats are the raw defect counts of a batch
type DefectStats struct {
	TotalComponents     int `db:"total_components"`
	DefectCount         int `db:"defect_count"`
	DefectiveComponents int `db:"defective_components"`
}

// Mark statuses
const (
	MarkStatusOK     = "OK"
	MarkStatusFailed = "FAILED"
	MarkStatusRetry  = "RETRY"
)

// Inspection statuses
const (
	InspectionStatusOK        = "OK"
	InspectionStatusDefective = "DEFECTIVE"
	InspectionStatusMissing   = "MISSING"
	InspectionStatusDamaged   = "DAMAGED"
)

// FailingInspectionStatuses count towards a batch defect rate
var FailingInspectionStatuses = []string{InspectionStatusDefective, InspectionStatusDamaged}

// IsFailingStatus reports whether an inspection status counts as a defect
func IsFailingStatus(status string) bool {
	for _, s := range FailingInspectionStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Connectivity modes of the inspecting device
const (
	ConnectivityOnline  = "online"
	ConnectivityOffline = "offline"
)

// StringList is an ordered list stored as a JSON array in a text column
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *StringList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}

	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode string list: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*l = out
	return nil
}
