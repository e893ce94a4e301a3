package models

import "time"

// Event types
const (
	EventTypeReceiptProcessed   = "RECEIPT_PROCESSED"
	EventTypeComponentFitted    = "COMPONENT_FITTED"
	EventTypeInspectionRecorded = "INSPECTION_RECORDED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ReceiptProcessedEvent published when a GRN is recorded
type ReceiptProcessedEvent struct {
	BaseEvent
	GRNNumber      string   `json:"grn_number"`
	PONumber       string   `json:"po_number"`
	VendorID       string   `json:"vendor_id"`
	BatchID        string   `json:"batch_id"`
	RIDs           []string `json:"rids"`
	ItemsInReceipt int      `json:"items_in_receipt"`
}

// ComponentFittedEvent published when a component is fitted to an asset
type ComponentFittedEvent struct {
	BaseEvent
	FitmentRecordID string    `json:"fitment_record_id"`
	AssetID         string    `json:"asset_id"`
	RID             string    `json:"rid"`
	FittedBy        string    `json:"fitted_by"`
	FitmentDate     time.Time `json:"fitment_date"`
}

// InspectionRecordedEvent published when an inspection submission is stored
type InspectionRecordedEvent struct {
	BaseEvent
	InspectionID string               `json:"inspection_id"`
	AssetID      string               `json:"asset_id"`
	InspectorID  string               `json:"inspector_id"`
	Reads        []InspectionReadData `json:"reads"`
}

// InspectionReadData represents one stored read in events
type InspectionReadData struct {
	InspectionID string  `json:"inspection_id"`
	RID          string  `json:"rid"`
	Status       string  `json:"status"`
	Confidence   float64 `json:"confidence"`
}
