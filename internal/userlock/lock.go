package userlock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrBusy means another request currently holds the user's lock.
var ErrBusy = errors.New("request in progress for this user")

// Locker serializes money-moving requests per user across API replicas.
// The database stays the source of truth; the lock only sheds duplicate
// concurrent submissions early.
type Locker interface {
	Acquire(ctx context.Context, userID string) (release func(), err error)
}

type Noop struct{}

func (Noop) Acquire(context.Context, string) (func(), error) { return func() {}, nil }

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

type Redis struct {
	rdb     redis.UniversalClient
	ttl     time.Duration
	release *redis.Script
}

func NewRedis(rdb redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Redis{rdb: rdb, ttl: ttl, release: redis.NewScript(releaseScript)}
}

func lockKey(userID string) string { return fmt.Sprintf("monety:lock:{%s}", userID) }

func (l *Redis) Acquire(ctx context.Context, userID string) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	key := lockKey(userID)
	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire user lock: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}
	return func() {
		// the caller's context may already be done
		rctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = l.release.Run(rctx, l.rdb, []string{key}, token).Err()
	}, nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = time.Second
	opts.ReadTimeout = 400 * time.Millisecond
	opts.WriteTimeout = 400 * time.Millisecond
	opts.OnConnect = func(ctx context.Context, cn *redis.Conn) error {
		_ = cn.ClientSetName(ctx, "monety-api").Err()
		return nil
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
