// Package notify delivers user notifications through a cache-first store.
package notify

import (
	"context"
	"hash/fnv"
	"sync"

	"ngabarin/realtime/internal/cache"
	"ngabarin/realtime/internal/logger"
	"ngabarin/realtime/internal/metrics"
	"ngabarin/realtime/internal/models"
	"ngabarin/realtime/internal/repository"
)

const lockStripes = 64

// Store keeps the durable per-user list authoritative and mirrors its most
// recent entries in the cache. Cache failures are logged and never returned.
//
// Writes and cache refills of one user are serialized so the cached list
// never drops an entry the durable list holds.
type Store struct {
	durable repository.NotificationRepositoryInterface
	cache   *cache.NotificationCache
	locks   [lockStripes]sync.Mutex
}

func NewStore(durable repository.NotificationRepositoryInterface, nc *cache.NotificationCache) *Store {
	return &Store{durable: durable, cache: nc}
}

// Record appends n to the user's list
func (s *Store) Record(ctx context.Context, userID string, n models.Notification) error {
	unlock := s.lock(userID)
	defer unlock()

	if err := s.durable.Append(ctx, userID, n); err != nil {
		return err
	}
	if !s.cache.Enabled() {
		return nil
	}

	list, ok, err := s.cache.Get(ctx, userID)
	if err != nil {
		s.cacheFailed("read", userID, err)
		s.invalidate(ctx, userID)
		return nil
	}
	if ok {
		list = append(list, n)
	} else {
		// the durable list already holds n
		list, err = s.durable.List(ctx, userID)
		if err != nil {
			logger.Warn("notification_backfill_failed", "user_id", userID, "error", err)
			return nil
		}
	}

	if err := s.cache.Put(ctx, userID, list); err != nil {
		s.cacheFailed("write", userID, err)
		s.invalidate(ctx, userID)
	}
	return nil
}

// Fetch returns the user's notifications, oldest first. Unknown users get an empty list.
func (s *Store) Fetch(ctx context.Context, userID string) ([]models.Notification, error) {
	unlock := s.lock(userID)
	defer unlock()

	if s.cache.Enabled() {
		list, ok, err := s.cache.Get(ctx, userID)
		switch {
		case err != nil:
			s.cacheFailed("read", userID, err)
		case ok:
			metrics.NotificationCache.WithLabelValues("hit").Inc()
			return list, nil
		default:
			metrics.NotificationCache.WithLabelValues("miss").Inc()
		}
	}

	list, err := s.durable.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Notification{}
	}

	if len(list) > 0 {
		if err := s.cache.Put(ctx, userID, list); err != nil {
			s.cacheFailed("write", userID, err)
		}
		list = cache.Trim(list, s.cache.Limit())
	}
	return list, nil
}

// MarkSeen empties the user's list
func (s *Store) MarkSeen(ctx context.Context, userID string) error {
	return s.Clear(ctx, userID)
}

// Clear evicts the cached list and empties the durable one. Clearing an empty list succeeds.
func (s *Store) Clear(ctx context.Context, userID string) error {
	unlock := s.lock(userID)
	defer unlock()

	if err := s.cache.Evict(ctx, userID); err != nil {
		s.cacheFailed("evict", userID, err)
	}
	return s.durable.Clear(ctx, userID)
}

// invalidate drops a cached list that may be missing the latest entry
func (s *Store) invalidate(ctx context.Context, userID string) {
	if err := s.cache.Evict(ctx, userID); err != nil {
		s.cacheFailed("evict", userID, err)
	}
}

func (s *Store) lock(userID string) func() {
	h := fnv.New32a()
	h.Write([]byte(userID))
	mu := &s.locks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

func (s *Store) cacheFailed(op, userID string, err error) {
	metrics.NotificationCache.WithLabelValues("failure").Inc()
	logger.Warn("notification_cache_"+op+"_failed", "user_id", userID, "error", err)
}
