package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"udm-tms-service/internal/models"
	"udm-tms-service/internal/store"
	"udm-tms-service/internal/store/storetest"

	"github.com/stretchr/testify/require"
)

// memCache is an in-process ComponentCache that records evictions
type memCache struct {
	mu      sync.Mutex
	views   map[string]*ComponentView
	evicted []string
	flushed int
}

func newMemCache() *memCache {
	return &memCache{views: map[string]*ComponentView{}}
}

func (c *memCache) Get(_ context.Context, rid string) (*ComponentView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.views[rid]
	return v, ok
}

func (c *memCache) Set(_ context.Context, view *ComponentView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views[view.RID] = view
}

func (c *memCache) Evict(_ context.Context, rids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rid := range rids {
		delete(c.views, rid)
		c.evicted = append(c.evicted, rid)
	}
}

func (c *memCache) Flush(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views = map[string]*ComponentView{}
	c.flushed++
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	receipts    []*models.ReceiptProcessedEvent
	fitments    []*models.ComponentFittedEvent
	inspections []*models.InspectionRecordedEvent
}

func (p *recordingPublisher) PublishReceiptProcessed(_ context.Context, e *models.ReceiptProcessedEvent) error {
	p.receipts = append(p.receipts, e)
	return nil
}

func (p *recordingPublisher) PublishComponentFitted(_ context.Context, e *models.ComponentFittedEvent) error {
	p.fitments = append(p.fitments, e)
	return nil
}

func (p *recordingPublisher) PublishInspectionRecorded(_ context.Context, e *models.InspectionRecordedEvent) error {
	p.inspections = append(p.inspections, e)
	return nil
}

type fixture struct {
	store     *store.Store
	cache     *memCache
	publisher *recordingPublisher
	udm       *UDMService
	tms       *TMSService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, _ := storetest.Seeded(t)
	f := &fixture{
		store:     st,
		cache:     newMemCache(),
		publisher: &recordingPublisher{},
	}
	f.udm = NewUDMService(st, f.cache, f.publisher, 10, "DEPOT-DEFAULT")
	f.tms = NewTMSService(st, f.cache, f.publisher)
	f.tms.now = steppingClock(time.Date(2025, time.October, 10, 9, 0, 0, 0, time.UTC))
	return f
}

// steppingClock returns a clock that advances one second per call
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(time.Second)
		return t
	}
}

func requireNotFound(t *testing.T, err error, message string) {
	t.Helper()
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, message, nf.Message)
}

func requireValidation(t *testing.T, err error, message string) {
	t.Helper()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, message, ve.Message)
}
