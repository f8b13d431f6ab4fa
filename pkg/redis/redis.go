package redis

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

var NilError = goredis.Nil

// ErrDecode marks a stored value that GetJSON could not decode.
var ErrDecode = errors.New("stored value is not valid JSON")

type Options = goredis.UniversalOptions

// RedisAdapter is a key-prefixed view over one shared connection.
type RedisAdapter interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, key string) error
	Exist(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Ping(ctx context.Context) error

	// Scope returns a view whose keys live under the current prefix plus
	// prefix. Closing a scoped view is a no-op.
	Scope(prefix string) RedisAdapter
	Prefix() string
	Close() error
}

type adapter struct {
	conn   goredis.UniversalClient
	name   string
	prefix string
	owner  bool
}

var (
	poolMu sync.Mutex
	pool   = map[string]*adapter{}
)

// NewRedisAdapter opens the connection registered under name, or returns the
// one already open. keysPrefix applies to every key of the returned view.
func NewRedisAdapter(name string, keysPrefix string, opts *goredis.UniversalOptions) (RedisAdapter, error) {
	poolMu.Lock()
	defer poolMu.Unlock()

	if open, ok := pool[name]; ok {
		if open.prefix == keysPrefix {
			return open, nil
		}
		return open.scoped(keysPrefix), nil
	}

	c := goredis.NewUniversalClient(opts)
	if err := c.Ping(context.Background()).Err(); err != nil {
		_ = c.Close()
		return nil, errors.Wrapf(err, "redis %q unreachable", name)
	}

	a := &adapter{conn: c, name: name, prefix: keysPrefix, owner: true}
	pool[name] = a
	return a, nil
}

func (a *adapter) key(k string) string {
	return a.prefix + k
}

func (a *adapter) scoped(prefix string) *adapter {
	return &adapter{conn: a.conn, name: a.name, prefix: prefix}
}

func (a *adapter) Scope(prefix string) RedisAdapter {
	return a.scoped(a.prefix + prefix)
}

func (a *adapter) Prefix() string {
	return a.prefix
}

func (a *adapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return a.conn.Set(ctx, a.key(key), value, ttl).Err()
}

func (a *adapter) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return a.conn.SetNX(ctx, a.key(key), value, ttl).Result()
}

func (a *adapter) Get(ctx context.Context, key string) ([]byte, error) {
	return a.conn.Get(ctx, a.key(key)).Bytes()
}

func (a *adapter) Del(ctx context.Context, key string) error {
	return a.conn.Del(ctx, a.key(key)).Err()
}

func (a *adapter) Exist(ctx context.Context, key string) (int64, error) {
	return a.conn.Exists(ctx, a.key(key)).Result()
}

func (a *adapter) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return a.conn.Expire(ctx, a.key(key), ttl).Result()
}

func (a *adapter) Ping(ctx context.Context) error {
	return a.conn.Ping(ctx).Err()
}

// Close closes the shared connection when called on the view NewRedisAdapter
// opened it with, and drops it from the pool.
func (a *adapter) Close() error {
	if !a.owner {
		return nil
	}
	poolMu.Lock()
	if pool[a.name] == a {
		delete(pool, a.name)
	}
	poolMu.Unlock()
	return a.conn.Close()
}

// SetJSON stores v encoded as JSON.
func SetJSON(ctx context.Context, r RedisAdapter, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	return r.Set(ctx, key, b, ttl)
}

// GetJSON decodes the value under key into dst. A missing key returns
// NilError, an undecodable value ErrDecode; both work with errors.Is.
func GetJSON(ctx context.Context, r RedisAdapter, key string, dst any) error {
	b, err := r.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return errors.Wrapf(ErrDecode, "%s: %v", key, err)
	}
	return nil
}
