package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"udm-tms-service/internal/models"
	"udm-tms-service/internal/redisclient"
	"udm-tms-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ComponentCache holds rendered component detail views keyed by RID.
// Implementations are best-effort: failures are logged, never returned.
type ComponentCache interface {
	Get(ctx context.Context, rid string) (*ComponentView, bool)
	Set(ctx context.Context, view *ComponentView)
	Evict(ctx context.Context, rids ...string)
	Flush(ctx context.Context)
}

// EventPublisher publishes traceability events
type EventPublisher interface {
	PublishReceiptProcessed(ctx context.Context, event *models.ReceiptProcessedEvent) error
	PublishComponentFitted(ctx context.Context, event *models.ComponentFittedEvent) error
	PublishInspectionRecorded(ctx context.Context, event *models.InspectionRecordedEvent) error
}

// Locker hands out named, expiring, token-guarded locks
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

const componentKeyPrefix = "component:"

// RedisComponentCache stores component views as JSON in Redis
type RedisComponentCache struct {
	client *redisclient.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisComponentCache creates a new Redis backed component cache
func NewRedisComponentCache(client *redisclient.Client, ttl time.Duration) *RedisComponentCache {
	return &RedisComponentCache{
		client: client,
		ttl:    ttl,
		logger: util.GetLogger(),
	}
}

func (c *RedisComponentCache) Get(ctx context.Context, rid string) (*ComponentView, bool) {
	var view ComponentView
	err := c.client.GetJSON(ctx, componentKeyPrefix+rid, &view)
	if errors.Is(err, redisclient.ErrCacheMiss) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("Component cache read failed", zap.String("rid", rid), zap.Error(err))
		return nil, false
	}
	return &view, true
}

func (c *RedisComponentCache) Set(ctx context.Context, view *ComponentView) {
	if err := c.client.SetJSON(ctx, componentKeyPrefix+view.RID, view, c.ttl); err != nil {
		c.logger.Warn("Component cache write failed", zap.String("rid", view.RID), zap.Error(err))
	}
}

func (c *RedisComponentCache) Evict(ctx context.Context, rids ...string) {
	keys := make([]string, 0, len(rids))
	for _, rid := range rids {
		keys = append(keys, componentKeyPrefix+rid)
	}
	if err := c.client.Delete(ctx, keys...); err != nil {
		c.logger.Warn("Component cache eviction failed", zap.Strings("rids", rids), zap.Error(err))
	}
}

func (c *RedisComponentCache) Flush(ctx context.Context) {
	n, err := c.client.DeletePattern(ctx, componentKeyPrefix+"*")
	if err != nil {
		c.logger.Warn("Component cache flush failed", zap.Error(err))
		return
	}
	c.logger.Debug("Component cache flushed", zap.Int("keys", n))
}

// NoopCache never holds anything
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (*ComponentView, bool) { return nil, false }
func (NoopCache) Set(context.Context, *ComponentView)                {}
func (NoopCache) Evict(context.Context, ...string)                   {}
func (NoopCache) Flush(context.Context)                              {}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) PublishReceiptProcessed(context.Context, *models.ReceiptProcessedEvent) error {
	return nil
}

func (NoopPublisher) PublishComponentFitted(context.Context, *models.ComponentFittedEvent) error {
	return nil
}

func (NoopPublisher) PublishInspectionRecorded(context.Context, *models.InspectionRecordedEvent) error {
	return nil
}

// LocalLocker is an in-process Locker for single-instance deployments
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]localLock
}

type localLock struct {
	token   string
	expires time.Time
}

// NewLocalLocker creates a new in-process locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]localLock)}
}

func (l *LocalLocker) AcquireLock(_ context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if held, ok := l.locks[key]; ok && time.Now().Before(held.expires) {
		return "", nil
	}

	token := uuid.New().String()
	l.locks[key] = localLock{token: token, expires: time.Now().Add(ttl)}
	return token, nil
}

func (l *LocalLocker) ReleaseLock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// a stale token never frees a lock taken over by someone else
	if held, ok := l.locks[key]; ok && held.token == token {
		delete(l.locks, key)
	}
	return nil
}

func newEventBase(eventType string, ts time.Time) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: ts,
	}
}
