package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"udm-tms-service/internal/models"
	"udm-tms-service/internal/store"
	"udm-tms-service/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreRejectsUnknownDriver(t *testing.T) {
	_, err := store.NewStore("mysql", "whatever")
	assert.Error(t, err)
}

func TestComponentDetailJoinsBatchAndVendor(t *testing.T) {
	st, _ := storetest.Seeded(t)
	ctx := context.Background()

	detail, err := st.GetComponentDetail(ctx, "RID2025-00001234")
	require.NoError(t, err)

	assert.Equal(t, "Elastic Rail Clip", detail.ComponentType)
	assert.Equal(t, "B-2309", detail.Batch.BatchID)
	assert.Equal(t, "VEND-0098", detail.Vendor.VendorID)
	require.NotNil(t, detail.GRNNumber)
	assert.Equal(t, "GRN-55877", *detail.GRNNumber)
	require.NotNil(t, detail.WarrantyEnd)
	assert.True(t, detail.WarrantyEnd.Equal(time.Date(2027, time.August, 15, 0, 0, 0, 0, time.UTC)))

	_, err = st.GetComponentDetail(ctx, "RID-NOPE")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestDuplicateRIDRejected(t *testing.T) {
	st, _ := storetest.Seeded(t)
	ctx := context.Background()

	existing, err := st.GetComponentByRID(ctx, "RID2025-00001234")
	require.NoError(t, err)

	err = st.CreateComponent(ctx, &models.Component{
		RID:           "RID2025-00001234",
		ComponentType: "Rail Joint",
		Material:      "Carbon Steel",
		BatchRef:      existing.BatchRef,
	})
	assert.Error(t, err)
}

func TestLatestMarkPicksNewestTimestamp(t *testing.T) {
	st, _ := storetest.Seeded(t)
	ctx := context.Background()

	c, err := st.GetComponentByRID(ctx, "RID2025-00001235")
	require.NoError(t, err)

	require.NoError(t, st.CreateMark(ctx, &models.Mark{
		MarkAttemptID: "MARK-RETRY-1",
		ComponentRef:  c.ID,
		EngraverModel: "HanFiber-50W",
		MarkTimestamp: time.Date(2025, time.October, 1, 8, 0, 0, 0, time.UTC),
		QRImageURL:    "https://cdn.example.com/marks/retry.jpg",
		MarkStatus:    models.MarkStatusRetry,
	}))

	latest, err := st.GetLatestMark(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "MARK-RETRY-1", latest.MarkAttemptID)
	assert.Equal(t, models.MarkStatusRetry, latest.MarkStatus)
}

func TestLatestMarkNoneRecorded(t *testing.T) {
	st := storetest.New(t)

	latest, err := st.GetLatestMark(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, latest)
}

func TestBatchDefectStats(t *testing.T) {
	st, _ := storetest.Seeded(t)
	ctx := context.Background()

	b1, err := st.GetBatchByBatchID(ctx, "B-2309")
	require.NoError(t, err)
	assert.Equal(t, "ABC Forgings Pvt Ltd", b1.Vendor.Name)

	stats, err := st.GetBatchDefectStats(ctx, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalComponents)
	assert.Equal(t, 1, stats.DefectCount)
	assert.Equal(t, 1, stats.DefectiveComponents)

	b2, err := st.GetBatchByBatchID(ctx, "B-2310")
	require.NoError(t, err)

	stats, err = st.GetBatchDefectStats(ctx, b2.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalComponents)
	assert.Equal(t, 1, stats.DefectCount)
}

func TestDefectStatsCountEveryFailingInspection(t *testing.T) {
	st, _ := storetest.Seeded(t)
	ctx := context.Background()

	c, err := st.GetComponentByRID(ctx, "RID2025-00001237")
	require.NoError(t, err)

	require.NoError(t, st.CreateInspection(ctx, &models.Inspection{
		InspectionID: "INS-REPEAT-1",
		ComponentRef: c.ID,
		InspectorID:  "ENG-500",
		Date:         time.Date(2025, time.October, 2, 9, 0, 0, 0, time.UTC),
		Status:       models.InspectionStatusDamaged,
		Connectivity: models.ConnectivityOffline,
		Confidence:   0.9,
	}))

	stats, err := st.GetBatchDefectStats(ctx, c.BatchRef)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DefectCount)
	assert.Equal(t, 1, stats.DefectiveComponents)
}

func TestInspectionHistoryNewestFirst(t *testing.T) {
	st, _ := storetest.Seeded(t)
	ctx := context.Background()

	c, err := st.GetComponentByRID(ctx, "RID2025-00001234")
	require.NoError(t, err)

	for i, day := range []int{1, 3, 2} {
		require.NoError(t, st.CreateInspection(ctx, &models.Inspection{
			InspectionID: "INS-HIST-" + string(rune('A'+i)),
			ComponentRef: c.ID,
			InspectorID:  "ENG-431",
			Date:         time.Date(2025, time.October, day, 10, 0, 0, 0, time.UTC),
			Status:       models.InspectionStatusOK,
			Connectivity: models.ConnectivityOnline,
			Confidence:   1,
		}))
	}

	history, err := st.GetInspectionHistory(ctx, c.ID, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "INS-HIST-B", history[0].InspectionID)
	assert.Equal(t, "INS-HIST-C", history[1].InspectionID)
	assert.Empty(t, history[0].PhotoURLs)
}

func TestListInspectionsPaging(t *testing.T) {
	st, _ := storetest.Seeded(t)
	ctx := context.Background()

	all, err := st.ListInspections(ctx, models.InspectionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 8)
	assert.NotEmpty(t, all[0].Component.RID)
	assert.Len(t, all[0].PhotoURLs, 2)

	page, err := st.ListInspections(ctx, models.InspectionFilter{Limit: 3, Offset: 6})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	c, err := st.GetComponentByRID(ctx, "RID2025-00001239")
	require.NoError(t, err)

	filtered, err := st.ListInspections(ctx, models.InspectionFilter{ComponentRef: c.ID, Limit: 50})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, models.InspectionStatusDamaged, filtered[0].Status)
	assert.Equal(t, "RID2025-00001239", filtered[0].Component.RID)
	assert.InDelta(t, 18.5204, filtered[0].Lat, 1e-9)
}

func TestFitmentsListedInRecordOrder(t *testing.T) {
	st, _ := storetest.Seeded(t)
	ctx := context.Background()

	asset, err := st.GetAssetByAssetID(ctx, "ASSET-44523")
	require.NoError(t, err)
	assert.Equal(t, "KM-123.45", asset.KMMarker)

	fitted, err := st.ListFittedComponents(ctx, asset.ID)
	require.NoError(t, err)
	assert.Empty(t, fitted)

	base := time.Date(2025, time.October, 5, 12, 0, 0, 0, time.UTC)
	for i, rid := range []string{"RID2025-00001236", "RID2025-00001234"} {
		c, err := st.GetComponentByRID(ctx, rid)
		require.NoError(t, err)
		require.NoError(t, st.CreateFitment(ctx, &models.Fitment{
			FitmentRecordID: "FIT-" + rid,
			AssetRef:        asset.ID,
			ComponentRef:    c.ID,
			FitmentDate:     base,
			FittedBy:        "ENG-431",
			Location:        asset.Location,
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
		}))
	}

	fitted, err = st.ListFittedComponents(ctx, asset.ID)
	require.NoError(t, err)
	require.Len(t, fitted, 2)
	assert.Equal(t, "RID2025-00001236", fitted[0].Component.RID)
	assert.Equal(t, "Sleeper Bolt", fitted[0].Component.ComponentType)
	assert.Equal(t, "WR", fitted[1].Zone)

	_, err = st.GetAssetByAssetID(ctx, "ASSET-00000")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestUpdateComponentProcurement(t *testing.T) {
	st, _ := storetest.Seeded(t)
	ctx := context.Background()

	grn, inv, depot := "GRN-1", "INV-2", "DEPOT-X"
	date := time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC)

	ok, err := st.UpdateComponentProcurement(ctx, "RID2025-00001240", models.Procurement{
		GRNNumber: &grn, GRNDate: &date, InvoiceNumber: &inv, ReceivedByDepot: &depot,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	c, err := st.GetComponentByRID(ctx, "RID2025-00001240")
	require.NoError(t, err)
	assert.Equal(t, "GRN-1", *c.GRNNumber)
	assert.True(t, c.GRNDate.Equal(date))

	ok, err = st.UpdateComponentProcurement(ctx, "RID-UNKNOWN", models.Procurement{GRNNumber: &grn})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInTxRollsBack(t *testing.T) {
	st, _ := storetest.Seeded(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := st.InTx(ctx, func(tx *store.Store) error {
		if err := tx.ResetTraceabilityData(ctx); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = st.GetComponentByRID(ctx, "RID2025-00001234")
	assert.NoError(t, err)
}

func TestResetThenReseed(t *testing.T) {
	st, _ := storetest.Seeded(t)
	ctx := context.Background()

	require.NoError(t, st.MarkEventProcessed(ctx, "evt-1", models.EventTypeInspectionRecorded))
	require.NoError(t, st.ResetTraceabilityData(ctx))

	_, err := st.GetComponentByRID(ctx, "RID2025-00001234")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	processed, err := st.IsEventProcessed(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, processed)

	// marking twice is a no-op
	assert.NoError(t, st.MarkEventProcessed(ctx, "evt-1", models.EventTypeInspectionRecorded))
}
