// Package seed loads the demo fixture set of vendors, batches, components,
// marks, inspections and assets.
package seed

import (
	"context"
	"fmt"
	"time"

	"udm-tms-service/internal/models"
	"udm-tms-service/internal/store"
)

// Summary counts the records a seed run created
type Summary struct {
	Vendors     int      `json:"vendors"`
	Batches     int      `json:"batches"`
	Components  int      `json:"components"`
	Marks       int      `json:"marks"`
	Inspections int      `json:"inspections"`
	Assets      int      `json:"assets"`
	RIDs        []string `json:"rids"`
}

var (
	componentTypes = []string{"Elastic Rail Clip", "Rail Joint", "Sleeper Bolt", "Track Plate"}
	materials      = []string{"Spring Steel", "Carbon Steel", "Alloy Steel", "Stainless Steel"}
	engraverModels = []string{"HanFiber-50W", "LaserMark-30W", "FiberLase-40W"}
	inspectorIDs   = []string{"ENG-431", "ENG-432", "ENG-433", "ENG-434"}
	readStatuses   = []string{"OK", "OK", "OK", "DEFECTIVE", "OK", "DAMAGED", "OK", "OK"}
	gpsPoints      = []models.GPS{
		{Lat: 19.0760, Lon: 72.8777}, // Mumbai
		{Lat: 18.5204, Lon: 73.8567}, // Pune
		{Lat: 28.7041, Lon: 77.1025}, // Delhi
		{Lat: 22.5726, Lon: 88.3639}, // Kolkata
	}
)

const componentCount = 8

// Load inserts the fixture set through st. It does not clear existing rows;
// callers reset the store first, normally inside the same transaction.
func Load(ctx context.Context, st *store.Store, ts time.Time) (*Summary, error) {
	sum := &Summary{}

	vendors := []*models.Vendor{
		{VendorID: "VEND-0098", Name: "ABC Forgings Pvt Ltd", Contact: "+91-98765XXXXX", UDMVendorCode: "UDM-V-0098"},
		{VendorID: "VEND-0102", Name: "XYZ Steel Industries", Contact: "+91-87654XXXXX", UDMVendorCode: "UDM-V-0102"},
	}
	for _, v := range vendors {
		if err := st.CreateVendor(ctx, v); err != nil {
			return nil, fmt.Errorf("failed to create vendor %s: %w", v.VendorID, err)
		}
	}
	sum.Vendors = len(vendors)

	batches := []*models.Batch{
		{
			BatchID:               "B-2309",
			LotNo:                 "L-2309-01",
			PONumber:              "PO-IR-2024-789",
			QuantityInBatch:       10000,
			MfgDate:               date(2025, time.August, 15),
			ExpiryOrWarrantyYears: 2,
			VendorRef:             vendors[0].ID,
		},
		{
			BatchID:               "B-2310",
			LotNo:                 "L-2310-01",
			PONumber:              "PO-IR-2024-790",
			QuantityInBatch:       5000,
			MfgDate:               date(2025, time.September, 1),
			ExpiryOrWarrantyYears: 3,
			VendorRef:             vendors[1].ID,
		},
	}
	for _, b := range batches {
		if err := st.CreateBatch(ctx, b); err != nil {
			return nil, fmt.Errorf("failed to create batch %s: %w", b.BatchID, err)
		}
	}
	sum.Batches = len(batches)

	components := make([]*models.Component, 0, componentCount)
	for i := 0; i < componentCount; i++ {
		rid := fmt.Sprintf("RID2025-%08d", 1234+i)
		batch, depot := batches[0], "DEPOT-MUM-01"
		if i >= 4 {
			batch, depot = batches[1], "DEPOT-PUNE-01"
		}

		c := &models.Component{
			RID:           rid,
			ComponentType: componentTypes[i%len(componentTypes)],
			Material:      materials[i%len(materials)],
			BatchRef:      batch.ID,
			Procurement: models.Procurement{
				GRNNumber:       strPtr(fmt.Sprintf("GRN-%d", 55877+i)),
				GRNDate:         timePtr(date(2025, time.August, 20)),
				InvoiceNumber:   strPtr(fmt.Sprintf("INV-%d", 99881+i)),
				ReceivedByDepot: strPtr(depot),
			},
			Warranty: models.Warranty{
				WarrantyStart: timePtr(date(2025, time.August, 15)),
				WarrantyEnd:   timePtr(date(2027, time.August, 15)),
				WarrantyTerms: strPtr("Manufacturing defects only"),
			},
			UDMLinks: models.UDMLinks{
				UDMRecordURL: strPtr("https://ireps.gov.in/udm/records/" + rid),
				TMSAssetLink: strPtr(fmt.Sprintf("https://tms.ir/asset/ASSET-%d", 44523+i)),
			},
		}
		if err := st.CreateComponent(ctx, c); err != nil {
			return nil, fmt.Errorf("failed to create component %s: %w", rid, err)
		}
		components = append(components, c)
		sum.RIDs = append(sum.RIDs, rid)
	}
	sum.Components = len(components)

	markedAt := time.Date(2025, time.September, 14, 11, 23, 45, 0, time.UTC)
	for i, c := range components {
		status := models.MarkStatusOK
		if i%7 == 0 {
			status = models.MarkStatusFailed
		}
		m := &models.Mark{
			MarkAttemptID: fmt.Sprintf("MARK-%d", ts.UnixMilli()+int64(i)),
			ComponentRef:  c.ID,
			EngraverModel: engraverModels[i%len(engraverModels)],
			MarkTimestamp: markedAt,
			QRImageURL:    fmt.Sprintf("https://cdn.example.com/marks/%s_after.jpg", c.RID),
			MarkStatus:    status,
			MarkParams: models.MarkParams{
				PowerPct: float64(65 + i%10),
				SpeedMMS: float64(1000 + i%200),
				DepthMM:  0.15 + float64(i)*0.01,
			},
		}
		if err := st.CreateMark(ctx, m); err != nil {
			return nil, fmt.Errorf("failed to create mark for %s: %w", c.RID, err)
		}
		sum.Marks++
	}

	inspectedAt := time.Date(2025, time.September, 14, 14, 22, 0, 0, time.UTC)
	for i, c := range components {
		status := readStatuses[i]
		notes, confidence := "No visible wear or damage", 0.95+float64(i%5)*0.01
		switch status {
		case models.InspectionStatusDefective:
			notes, confidence = "Minor surface scratches detected", 0.85+float64(i%10)*0.01
		case models.InspectionStatusDamaged:
			notes, confidence = "Significant damage requiring replacement", 0.85+float64(i%10)*0.01
		}

		connectivity := models.ConnectivityOffline
		if i%3 == 0 {
			connectivity = models.ConnectivityOnline
		}

		in := &models.Inspection{
			InspectionID: fmt.Sprintf("INS-2025-0914-%02d", i+1),
			ComponentRef: c.ID,
			InspectorID:  inspectorIDs[i%len(inspectorIDs)],
			Date:         inspectedAt,
			Status:       status,
			Notes:        notes,
			PhotoURLs: models.StringList{
				fmt.Sprintf("https://cdn.example.com/inspections/%s_photo1.jpg", c.RID),
				fmt.Sprintf("https://cdn.example.com/inspections/%s_photo2.jpg", c.RID),
			},
			GPS:          gpsPoints[i%len(gpsPoints)],
			Connectivity: connectivity,
			Synced:       i%3 == 0,
			Confidence:   confidence,
		}
		if err := st.CreateInspection(ctx, in); err != nil {
			return nil, fmt.Errorf("failed to create inspection for %s: %w", c.RID, err)
		}
		sum.Inspections++
	}

	assets := []*models.Asset{
		{
			AssetID:       "ASSET-44523",
			AssetType:     "Railway Track Section",
			Location:      models.Location{Zone: "WR", Division: "Mumbai", KMMarker: "KM-123.45"},
			InstalledDate: date(2024, time.January, 15),
			Status:        "ACTIVE",
		},
		{
			AssetID:       "ASSET-44524",
			AssetType:     "Railway Bridge Section",
			Location:      models.Location{Zone: "CR", Division: "Pune", KMMarker: "KM-89.23"},
			InstalledDate: date(2024, time.February, 20),
			Status:        "ACTIVE",
		},
	}
	for _, a := range assets {
		if err := st.CreateAsset(ctx, a); err != nil {
			return nil, fmt.Errorf("failed to create asset %s: %w", a.AssetID, err)
		}
	}
	sum.Assets = len(assets)

	return sum, nil
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string {
	return &s
}

func timePtr(t time.Time) *time.Time {
	return &t
}
