package userlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestNoopAlwaysAcquires(t *testing.T) {
	var l Locker = Noop{}
	for i := 0; i < 3; i++ {
		release, err := l.Acquire(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("acquire: %v", err)
		}
		release()
	}
}

func TestLockKeyUsesHashTag(t *testing.T) {
	if got := lockKey("abc"); got != "monety:lock:{abc}" {
		t.Fatalf("lock key got %q", got)
	}
}

func TestTokensAreUnique(t *testing.T) {
	a, err := newToken()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	b, _ := newToken()
	if a == b || len(a) != 32 {
		t.Fatalf("unexpected tokens %q %q", a, b)
	}
}

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *Redis) {
	t.Helper()
	m := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return m, NewRedis(rdb, 2*time.Second)
}

func TestRedisLockAcquireRelease(t *testing.T) {
	m, l := newMiniRedis(t)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "user-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !m.Exists(lockKey("user-1")) {
		t.Fatalf("lock key not set")
	}
	if ttl := m.TTL(lockKey("user-1")); ttl <= 0 || ttl > 2*time.Second {
		t.Fatalf("unexpected ttl %s", ttl)
	}
	if _, err := l.Acquire(ctx, "user-1"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	other, err := l.Acquire(ctx, "user-2")
	if err != nil {
		t.Fatalf("other user must not be blocked: %v", err)
	}
	other()

	release()
	if m.Exists(lockKey("user-1")) {
		t.Fatalf("release must delete the key")
	}
	again, err := l.Acquire(ctx, "user-1")
	if err != nil {
		t.Fatalf("re-acquire: %v", err)
	}
	again()
}

func TestRedisLockStaleReleaseKeepsNewOwner(t *testing.T) {
	m, l := newMiniRedis(t)
	ctx := context.Background()

	stale, err := l.Acquire(ctx, "user-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	m.FastForward(3 * time.Second)

	fresh, err := l.Acquire(ctx, "user-1")
	if err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}
	owner, err := m.Get(lockKey("user-1"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	stale()
	got, err := m.Get(lockKey("user-1"))
	if err != nil || got != owner {
		t.Fatalf("expired holder released the new lock: %q %v", got, err)
	}
	fresh()
	if m.Exists(lockKey("user-1")) {
		t.Fatalf("owner release must delete the key")
	}
}

func TestRedisAcquireReportsConnectionErrors(t *testing.T) {
	m, l := newMiniRedis(t)
	m.Close()
	if _, err := l.Acquire(context.Background(), "user-1"); err == nil || errors.Is(err, ErrBusy) {
		t.Fatalf("expected a connection error, got %v", err)
	}
}

func TestConnect(t *testing.T) {
	m := miniredis.RunT(t)
	rdb, err := Connect(context.Background(), "redis://"+m.Addr()+"/0")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	_ = rdb.Close()

	if _, err := Connect(context.Background(), "not a url"); err == nil {
		t.Fatalf("expected parse error")
	}
}
