package cache

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

// setupRedisStore starts an in-process Redis and connects a RedisStore
// to it. The returned cleanup closes both.
func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	store, err := NewRedisStore(context.Background(), mr.Addr(), "", 0)
	if err != nil {
		mr.Close()
		t.Fatalf("NewRedisStore() error = %v", err)
	}

	cleanup := func() {
		_ = store.Close()
		mr.Close()
	}
	return store, mr, cleanup
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	if _, err := NewRedisStore(context.Background(), addr, "", 0); err == nil {
		t.Error("NewRedisStore() with no server should fail the ping")
	}
}

func TestNewRedisStore_Auth(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()
	mr.RequireAuth("secret")

	if _, err := NewRedisStore(context.Background(), mr.Addr(), "wrong", 0); err == nil {
		t.Error("NewRedisStore() with wrong password should fail")
	}

	store, err := NewRedisStore(context.Background(), mr.Addr(), "secret", 0)
	if err != nil {
		t.Fatalf("NewRedisStore() with correct password error = %v", err)
	}
	defer store.Close()

	if err := store.Set(context.Background(), "key", []byte("value"), 0); err != nil {
		t.Errorf("Set() error = %v", err)
	}
}

func TestRedisStore_GetMiss(t *testing.T) {
	store, _, cleanup := setupRedisStore(t)
	defer cleanup()

	_, err := store.Get(context.Background(), "absent")
	if !errors.Is(err, ErrMiss) {
		t.Errorf("Get() error = %v, want ErrMiss", err)
	}
}

func TestRedisStore_SetGet(t *testing.T) {
	store, _, cleanup := setupRedisStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := store.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(got, []byte("value")) {
		t.Errorf("Get() = %q, want %q", got, "value")
	}
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	store, mr, cleanup := setupRedisStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.Set(ctx, "key", []byte("value"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	mr.FastForward(30 * time.Second)
	if _, err := store.Get(ctx, "key"); err != nil {
		t.Errorf("Get() before expiry error = %v, want nil", err)
	}

	mr.FastForward(time.Minute)
	if _, err := store.Get(ctx, "key"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get() after expiry error = %v, want ErrMiss", err)
	}
}

func TestRedisStore_NoExpiry(t *testing.T) {
	store, mr, cleanup := setupRedisStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.Set(ctx, "key", []byte("value"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	mr.FastForward(1000 * time.Hour)
	if _, err := store.Get(ctx, "key"); err != nil {
		t.Errorf("Get() with no expiry error = %v, want nil", err)
	}
}

func TestRedisStore_Delete(t *testing.T) {
	store, _, cleanup := setupRedisStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.Set(ctx, "key", []byte("value"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "key"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get() after delete error = %v, want ErrMiss", err)
	}

	if err := store.Delete(ctx, "absent"); err != nil {
		t.Errorf("Delete() of absent key error = %v", err)
	}
}

func TestRedisStore_GetAfterClose(t *testing.T) {
	store, _, cleanup := setupRedisStore(t)
	cleanup()

	// A closed store surfaces a backend error, not a miss.
	_, err := store.Get(context.Background(), "key")
	if err == nil || errors.Is(err, ErrMiss) {
		t.Errorf("Get() on closed store error = %v, want backend error", err)
	}
}
