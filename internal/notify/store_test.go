package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ngabarin/realtime/internal/cache"
	"ngabarin/realtime/internal/models"
	"ngabarin/realtime/internal/testutil"
)

func newStore(t *testing.T) (*Store, *testutil.Store, *testutil.KV) {
	t.Helper()
	db := testutil.NewStore()
	db.AddUser(models.User{ID: "u1", Username: "alice"})
	kv := testutil.NewKV()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	kv.Now = func() time.Time { return fixed }
	return NewStore(db.NotificationRepo(), cache.NewNotificationCache(kv, 0, 0)), db, kv
}

func note(id string) models.Notification {
	return models.Notification{
		ID:        id,
		Type:      models.NotificationMessage,
		Title:     "New message",
		Body:      "hello",
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestRecordThenFetchFromCache(t *testing.T) {
	store, db, kv := newStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, "u1", note("n1")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Record(ctx, "u1", note("n2")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !kv.Has("notifications:u1") {
		t.Fatal("expected cache entry after record")
	}
	if ttl := kv.TTL("notifications:u1"); ttl != cache.NotificationTTL {
		t.Errorf("cache ttl = %v, want %v", ttl, cache.NotificationTTL)
	}

	listCalls := db.Calls["Notification.List"]
	got, err := store.Fetch(ctx, "u1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if db.Calls["Notification.List"] != listCalls {
		t.Error("expected fetch to be served from cache")
	}
	if len(got) != 2 || got[1].ID != "n2" {
		t.Fatalf("unexpected list: %+v", got)
	}
	if !got[1].CreatedAt.Equal(note("n2").CreatedAt) {
		t.Errorf("createdAt = %v", got[1].CreatedAt)
	}
}

func TestFetchAfterEvictionFallsBackAndBackfills(t *testing.T) {
	store, db, kv := newStore(t)
	ctx := context.Background()

	_ = store.Record(ctx, "u1", note("n1"))
	_ = kv.Delete(ctx, "notifications:u1")

	got, err := store.Fetch(ctx, "u1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 1 || got[0].ID != "n1" {
		t.Fatalf("unexpected list: %+v", got)
	}
	if db.Calls["Notification.List"] == 0 {
		t.Error("expected durable read on cache miss")
	}
	if !kv.Has("notifications:u1") {
		t.Error("expected cache to be repopulated")
	}
}

func TestRecordOnCacheMissBackfillsFromDurable(t *testing.T) {
	store, _, kv := newStore(t)
	ctx := context.Background()

	_ = store.Record(ctx, "u1", note("n1"))
	_ = kv.Delete(ctx, "notifications:u1")
	_ = store.Record(ctx, "u1", note("n2"))

	got, _ := store.Fetch(ctx, "u1")
	if len(got) != 2 || got[0].ID != "n1" || got[1].ID != "n2" {
		t.Fatalf("unexpected list: %+v", got)
	}
}

func TestCacheFailureDoesNotFailRecord(t *testing.T) {
	store, db, kv := newStore(t)
	kv.Down = true
	ctx := context.Background()

	if err := store.Record(ctx, "u1", note("n1")); err != nil {
		t.Fatalf("Record with cache down: %v", err)
	}
	if n := len(db.Notifications("u1")); n != 1 {
		t.Fatalf("durable list length = %d, want 1", n)
	}

	got, err := store.Fetch(ctx, "u1")
	if err != nil {
		t.Fatalf("Fetch with cache down: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected durable fallback, got %+v", got)
	}
}

func TestDurableFailureFailsRecord(t *testing.T) {
	store, db, kv := newStore(t)
	db.Fail["Notification.Append"] = 1

	if err := store.Record(context.Background(), "u1", note("n1")); err == nil {
		t.Fatal("expected error when durable append fails")
	}
	if kv.Has("notifications:u1") {
		t.Error("cache must not be written when the durable write fails")
	}
}

func TestFetchUnknownUserReturnsEmptyList(t *testing.T) {
	store, _, _ := newStore(t)

	got, err := store.Fetch(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", got)
	}
}

func TestClearAndMarkSeenAreIdempotent(t *testing.T) {
	store, db, kv := newStore(t)
	ctx := context.Background()
	_ = store.Record(ctx, "u1", note("n1"))

	for _, op := range []func(context.Context, string) error{store.MarkSeen, store.Clear, store.Clear} {
		if err := op(ctx, "u1"); err != nil {
			t.Fatalf("clear: %v", err)
		}
	}
	if kv.Has("notifications:u1") {
		t.Error("expected cache entry to be evicted")
	}
	if n := len(db.Notifications("u1")); n != 0 {
		t.Errorf("durable list length = %d, want 0", n)
	}
}

func TestCacheKeepsMostRecent(t *testing.T) {
	store, db, _ := newStore(t)
	ctx := context.Background()

	for i := 0; i < cache.NotificationLimit+5; i++ {
		_ = store.Record(ctx, "u1", note(fmt.Sprintf("n%d", i)))
	}

	got, _ := store.Fetch(ctx, "u1")
	if len(got) != cache.NotificationLimit {
		t.Fatalf("cached length = %d, want %d", len(got), cache.NotificationLimit)
	}
	if got[0].ID != "n5" {
		t.Errorf("oldest cached = %s, want n5", got[0].ID)
	}
	if n := len(db.Notifications("u1")); n != cache.NotificationLimit+5 {
		t.Errorf("durable list length = %d, want unbounded", n)
	}
}

func TestStoreWithoutCache(t *testing.T) {
	db := testutil.NewStore()
	db.AddUser(models.User{ID: "u1"})
	store := NewStore(db.NotificationRepo(), cache.NewNotificationCache(nil, 0, 0))
	ctx := context.Background()

	if err := store.Record(ctx, "u1", note("n1")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, err := store.Fetch(ctx, "u1")
	if err != nil || len(got) != 1 {
		t.Fatalf("Fetch = %+v, %v", got, err)
	}
}

// slowKV delays reads so concurrent writers interleave
type slowKV struct {
	*testutil.KV
	delay   time.Duration
	failSet bool
}

func (k *slowKV) Get(ctx context.Context, key string) ([]byte, error) {
	time.Sleep(k.delay)
	return k.KV.Get(ctx, key)
}

func (k *slowKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if k.failSet {
		return errors.New("write failed")
	}
	return k.KV.Set(ctx, key, value, ttl)
}

func ids(list []models.Notification) []string {
	out := make([]string, 0, len(list))
	for _, n := range list {
		out = append(out, n.ID)
	}
	return out
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestConcurrentRecordsKeepCacheComplete(t *testing.T) {
	db := testutil.NewStore()
	db.AddUser(models.User{ID: "u1", Username: "alice"})
	kv := &slowKV{KV: testutil.NewKV(), delay: time.Millisecond}
	store := NewStore(db.NotificationRepo(), cache.NewNotificationCache(kv, 0, 0))
	ctx := context.Background()

	if err := store.Record(ctx, "u1", note("seed")); err != nil {
		t.Fatalf("Record: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := store.Record(ctx, "u1", note(fmt.Sprintf("n%d", i))); err != nil {
				t.Errorf("Record: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, err := store.Fetch(ctx, "u1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	durable := ids(db.Notifications("u1"))
	if len(durable) != 21 {
		t.Fatalf("durable list length = %d, want 21", len(durable))
	}
	if !sameIDs(ids(got), durable) {
		t.Errorf("fetched %v, durable list holds %v", ids(got), durable)
	}
}

func TestConcurrentRecordAndFetchAfterEviction(t *testing.T) {
	db := testutil.NewStore()
	db.AddUser(models.User{ID: "u1", Username: "alice"})
	kv := &slowKV{KV: testutil.NewKV(), delay: time.Millisecond}
	store := NewStore(db.NotificationRepo(), cache.NewNotificationCache(kv, 0, 0))
	ctx := context.Background()

	_ = store.Record(ctx, "u1", note("seed"))
	_ = kv.Delete(ctx, "notifications:u1")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = store.Record(ctx, "u1", note(fmt.Sprintf("n%d", i)))
		}(i)
		go func() {
			defer wg.Done()
			_, _ = store.Fetch(ctx, "u1")
		}()
	}
	wg.Wait()

	got, _ := store.Fetch(ctx, "u1")
	durable := ids(db.Notifications("u1"))
	if !sameIDs(ids(got), durable) {
		t.Errorf("fetched %v, durable list holds %v", ids(got), durable)
	}
}

func TestCacheWriteFailureDropsStaleEntry(t *testing.T) {
	db := testutil.NewStore()
	db.AddUser(models.User{ID: "u1", Username: "alice"})
	kv := &slowKV{KV: testutil.NewKV()}
	store := NewStore(db.NotificationRepo(), cache.NewNotificationCache(kv, 0, 0))
	ctx := context.Background()

	_ = store.Record(ctx, "u1", note("n1"))
	kv.failSet = true
	if err := store.Record(ctx, "u1", note("n2")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if kv.Has("notifications:u1") {
		t.Fatal("expected stale cache entry to be evicted")
	}

	kv.failSet = false
	got, _ := store.Fetch(ctx, "u1")
	if !sameIDs(ids(got), []string{"n1", "n2"}) {
		t.Errorf("fetched %v, want [n1 n2]", ids(got))
	}
}
