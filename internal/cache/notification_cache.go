package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"ngabarin/realtime/internal/models"
)

const (
	NotificationTTL   = 24 * time.Hour
	NotificationLimit = 100
)

// NotificationCache holds the most recent notifications of each user
type NotificationCache struct {
	kv    KV
	ttl   time.Duration
	limit int
}

// NewNotificationCache creates a notification cache. A nil kv disables caching.
func NewNotificationCache(kv KV, ttl time.Duration, limit int) *NotificationCache {
	if ttl <= 0 {
		ttl = NotificationTTL
	}
	if limit <= 0 {
		limit = NotificationLimit
	}
	return &NotificationCache{kv: kv, ttl: ttl, limit: limit}
}

func notificationKey(userID string) string {
	return fmt.Sprintf("notifications:%s", userID)
}

// Enabled reports whether a cache tier is configured
func (nc *NotificationCache) Enabled() bool {
	return nc != nil && nc.kv != nil
}

// Limit is the number of most recent entries the cache keeps
func (nc *NotificationCache) Limit() int {
	if nc == nil {
		return NotificationLimit
	}
	return nc.limit
}

// Get returns the cached list. ok is false on a miss.
func (nc *NotificationCache) Get(ctx context.Context, userID string) ([]models.Notification, bool, error) {
	if !nc.Enabled() {
		return nil, false, nil
	}
	data, err := nc.kv.Get(ctx, notificationKey(userID))
	if err != nil {
		return nil, false, err
	}
	if data == nil {
		return nil, false, nil
	}

	var list []models.Notification
	if err := msgpack.Unmarshal(data, &list); err != nil {
		return nil, false, err
	}
	if list == nil {
		list = []models.Notification{}
	}
	return list, true, nil
}

// Put writes the list, keeping only the most recent entries, and refreshes the TTL
func (nc *NotificationCache) Put(ctx context.Context, userID string, list []models.Notification) error {
	if !nc.Enabled() {
		return nil
	}
	data, err := msgpack.Marshal(Trim(list, nc.limit))
	if err != nil {
		return err
	}
	return nc.kv.Set(ctx, notificationKey(userID), data, nc.ttl)
}

// Evict removes the user's cached list
func (nc *NotificationCache) Evict(ctx context.Context, userID string) error {
	if !nc.Enabled() {
		return nil
	}
	return nc.kv.Delete(ctx, notificationKey(userID))
}

// Trim drops the oldest entries so that at most limit remain
func Trim(list []models.Notification, limit int) []models.Notification {
	if limit <= 0 || len(list) <= limit {
		return list
	}
	return list[len(list)-limit:]
}
