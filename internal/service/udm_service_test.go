package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"udm-tms-service/internal/models"
	"udm-tms-service/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefectRatePercent(t *testing.T) {
	tests := []struct {
		name    string
		defects int
		total   int
		want    float64
	}{
		{"empty batch", 3, 0, 0},
		{"no defects", 0, 4, 0},
		{"quarter", 1, 4, 25},
		{"rounded", 1, 3, 33.33},
		{"per event can exceed 100", 5, 2, 250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefectRatePercent(tt.defects, tt.total))
		})
	}
}

func TestGetComponent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.udm.GetComponent(ctx, "RID2025-00001234")
	require.NoError(t, err)

	assert.Equal(t, "Elastic Rail Clip", view.ComponentType)
	assert.Equal(t, "VEND-0098", view.Vendor.VendorID)
	assert.Equal(t, "B-2309", view.Batch.BatchID)
	require.NotNil(t, view.Marking)
	assert.Equal(t, models.MarkStatusFailed, view.Marking.MarkStatus)
	require.Len(t, view.InspectionHistory, 1)
	assert.Equal(t, "INS-2025-0914-01", view.InspectionHistory[0].InspectionID)
	require.NotNil(t, view.UDMLinks.UDMRecordURL)
	assert.Equal(t, "https://ireps.gov.in/udm/records/RID2025-00001234", *view.UDMLinks.UDMRecordURL)

	cached, ok := f.cache.Get(ctx, "RID2025-00001234")
	assert.True(t, ok)
	assert.Equal(t, view, cached)
}

func TestGetComponentWithoutMark(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	existing, err := f.store.GetComponentByRID(ctx, "RID2025-00001234")
	require.NoError(t, err)
	require.NoError(t, f.store.CreateComponent(ctx, &models.Component{
		RID:           "RID2025-NEW",
		ComponentType: "Track Plate",
		Material:      "Alloy Steel",
		BatchRef:      existing.BatchRef,
	}))

	view, err := f.udm.GetComponent(ctx, "RID2025-NEW")
	require.NoError(t, err)
	assert.Nil(t, view.Marking)
	assert.Empty(t, view.InspectionHistory)
	assert.Nil(t, view.Procurement.GRNNumber)
}

func TestGetComponentNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.udm.GetComponent(context.Background(), "RID-MISSING")
	requireNotFound(t, err, "Component with RID RID-MISSING not found")
}

func TestProcessReceiptValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.udm.ProcessReceipt(ctx, &ReceiptRequest{
		GRNNumber: "GRN-1", PONumber: "PO-1", VendorID: "VEND-0098", BatchID: "B-2309",
	})
	requireValidation(t, err, "Missing required fields: grn_number, po_number, vendor_id, batch_id, items")

	_, err = f.udm.ProcessReceipt(ctx, &ReceiptRequest{
		PONumber: "PO-1", VendorID: "VEND-0098", BatchID: "B-2309", Items: []ReceiptItem{},
	})
	requireValidation(t, err, "Missing required fields: grn_number, po_number, vendor_id, batch_id, items")

	_, err = f.udm.ProcessReceipt(ctx, &ReceiptRequest{
		GRNNumber: "GRN-1", PONumber: "PO-1", VendorID: "VEND-0098", BatchID: "B-2309",
		Items: []ReceiptItem{{RID: "RID2025-00001234", ReceivedDate: "yesterday"}},
	})
	requireValidation(t, err, "Invalid received_date: yesterday")
}

func TestProcessReceiptUnknownVendorOrBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.udm.ProcessReceipt(ctx, &ReceiptRequest{
		GRNNumber: "GRN-1", PONumber: "PO-1", VendorID: "VEND-9999", BatchID: "B-2309", Items: []ReceiptItem{},
	})
	requireNotFound(t, err, "Vendor VEND-9999 not found")

	_, err = f.udm.ProcessReceipt(ctx, &ReceiptRequest{
		GRNNumber: "GRN-1", PONumber: "PO-1", VendorID: "VEND-0098", BatchID: "B-0000", Items: []ReceiptItem{},
	})
	requireNotFound(t, err, "Batch B-0000 not found")
}

func TestProcessReceiptRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2025, time.October, 1, 12, 0, 0, 0, time.UTC)
	f.udm.now = func() time.Time { return now }

	// warm the cache so the eviction is observable
	_, err := f.udm.GetComponent(ctx, "RID2025-00001235")
	require.NoError(t, err)

	resp, err := f.udm.ProcessReceipt(ctx, &ReceiptRequest{
		GRNNumber: "GRN-77001",
		PONumber:  "PO-IR-2024-790",
		VendorID:  "VEND-0098",
		BatchID:   "B-2309",
		Items: []ReceiptItem{
			{RID: "RID2025-00001235", ReceivedDate: "2025-09-30", InvoiceNumber: "INV-555", ReceivedBy: "DEPOT-PUNE-01"},
			{RID: "RID2025-00001236"},
			{RID: "RID-UNKNOWN"},
			{},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "GRN-77001", resp.GRNID)
	assert.Equal(t, 4, resp.ProcessedItems)
	assert.Equal(t, now, resp.CreatedAt)

	assert.Contains(t, f.cache.evicted, "RID2025-00001235")
	_, cached := f.cache.Get(ctx, "RID2025-00001235")
	assert.False(t, cached)

	first, err := f.udm.GetComponent(ctx, "RID2025-00001235")
	require.NoError(t, err)
	assert.Equal(t, "GRN-77001", *first.Procurement.GRNNumber)
	assert.True(t, first.Procurement.GRNDate.Equal(time.Date(2025, time.September, 30, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "INV-555", *first.Procurement.InvoiceNumber)
	assert.Equal(t, "DEPOT-PUNE-01", *first.Procurement.ReceivedByDepot)

	second, err := f.udm.GetComponent(ctx, "RID2025-00001236")
	require.NoError(t, err)
	assert.Equal(t, "GRN-77001", *second.Procurement.GRNNumber)
	assert.True(t, second.Procurement.GRNDate.Equal(now))
	assert.Regexp(t, `^INV-\d{5,6}$`, *second.Procurement.InvoiceNumber)
	assert.Equal(t, "DEPOT-DEFAULT", *second.Procurement.ReceivedByDepot)

	require.Len(t, f.publisher.receipts, 1)
	assert.ElementsMatch(t, []string{"RID2025-00001235", "RID2025-00001236"}, f.publisher.receipts[0].RIDs)
	assert.Equal(t, 4, f.publisher.receipts[0].ItemsInReceipt)
}

func TestGetBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.udm.GetBatch(ctx, "B-2309")
	require.NoError(t, err)
	assert.Equal(t, "L-2309-01", view.LotNo)
	assert.Equal(t, "ABC Forgings Pvt Ltd", view.Vendor.Name)
	assert.Equal(t, 4, view.TotalComponents)
	assert.Equal(t, 1, view.DefectCount)
	assert.Equal(t, 1, view.DefectiveComponents)
	assert.Equal(t, 25.0, view.DefectRatePercent)

	_, err = f.udm.GetBatch(ctx, "UNKNOWN-ID")
	requireNotFound(t, err, "Batch UNKNOWN-ID not found")
}

func TestGetBatchWithoutComponents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	vendor, err := f.store.GetVendorByVendorID(ctx, "VEND-0102")
	require.NoError(t, err)
	require.NoError(t, f.store.CreateBatch(ctx, &models.Batch{
		BatchID:               "B-EMPTY",
		LotNo:                 "L-0",
		PONumber:              "PO-0",
		QuantityInBatch:       10,
		MfgDate:               time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		ExpiryOrWarrantyYears: 1,
		VendorRef:             vendor.ID,
	}))

	view, err := f.udm.GetBatch(ctx, "B-EMPTY")
	require.NoError(t, err)
	assert.Equal(t, 0, view.TotalComponents)
	assert.Equal(t, 0.0, view.DefectRatePercent)
}

func TestRefreshBatchMetrics(t *testing.T) {
	f := newFixture(t)

	n, err := f.udm.RefreshBatchMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestProcessReceiptRollsBackOnStoreFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	storetest.RejectComponentUpdates(t, f.store, "RID2025-00001236")

	_, err := f.udm.ProcessReceipt(ctx, &ReceiptRequest{
		GRNNumber: "GRN-99001",
		PONumber:  "PO-IR-2024-789",
		VendorID:  "VEND-0098",
		BatchID:   "B-2309",
		Items: []ReceiptItem{
			{RID: "RID2025-00001235", ReceivedDate: "2025-10-02"},
			{RID: "RID2025-00001236", ReceivedDate: "2025-10-02"},
		},
	})
	require.Error(t, err)
	var ve *ValidationError
	assert.False(t, errors.As(err, &ve))

	// the first item's update was rolled back with the failing one
	view, err := f.udm.GetComponent(ctx, "RID2025-00001235")
	require.NoError(t, err)
	assert.Equal(t, "GRN-55878", *view.Procurement.GRNNumber)
	assert.Empty(t, f.publisher.receipts)
}
