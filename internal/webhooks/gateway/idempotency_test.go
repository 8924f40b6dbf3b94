package gatewaywebhook

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type memoryIdempotencyStore struct {
	mu     sync.Mutex
	keys   map[string]time.Duration
	setErr error
}

func newMemoryStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{keys: map[string]time.Duration{}}
}

func (m *memoryIdempotencyStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return false, m.setErr
	}
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = ttl
	return true, nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "tm:idempotency:" + scope + ":" + id
}

func (m *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

func TestIdempotencyGuardMarksFirstDelivery(t *testing.T) {
	store := newMemoryStore()
	guard, err := NewIdempotencyGuard(store, time.Hour)
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}

	seen, err := guard.CheckAndMark(context.Background(), "OR1:tx1")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if seen {
		t.Fatalf("first delivery must not be treated as duplicate")
	}
	if ttl := store.keys["tm:idempotency:gateway-webhook:OR1:tx1"]; ttl != time.Hour {
		t.Fatalf("expected key stored with ttl 1h, got %v", ttl)
	}

	seen, err = guard.CheckAndMark(context.Background(), "OR1:tx1")
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if !seen {
		t.Fatalf("second delivery must be a duplicate")
	}
}

func TestIdempotencyGuardReleaseAllowsRedelivery(t *testing.T) {
	guard, err := NewIdempotencyGuard(newMemoryStore(), time.Hour)
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	ctx := context.Background()
	if _, err := guard.CheckAndMark(ctx, "OR1:tx1"); err != nil {
		t.Fatalf("check: %v", err)
	}
	if err := guard.Release(ctx, "OR1:tx1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	seen, err := guard.CheckAndMark(ctx, "OR1:tx1")
	if err != nil {
		t.Fatalf("check after release: %v", err)
	}
	if seen {
		t.Fatalf("released key should be claimable again")
	}
}

func TestIdempotencyGuardErrors(t *testing.T) {
	if _, err := NewIdempotencyGuard(nil, time.Hour); err == nil {
		t.Fatalf("expected nil store to fail")
	}
	if _, err := NewIdempotencyGuard(newMemoryStore(), -time.Second); err == nil {
		t.Fatalf("expected negative ttl to fail")
	}

	store := newMemoryStore()
	store.setErr = errors.New("redis down")
	guard, _ := NewIdempotencyGuard(store, time.Hour)
	if _, err := guard.CheckAndMark(context.Background(), "OR1:tx1"); err == nil {
		t.Fatalf("expected store error to propagate")
	}
	if _, err := guard.CheckAndMark(context.Background(), ""); err == nil {
		t.Fatalf("expected empty key to fail")
	}
}
