package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/billing-console/internal/session"
	"github.com/nimasrn/billing-console/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func setupService(t *testing.T) (*miniredis.Miniredis, *Service) {
	t.Helper()
	mr := miniredis.RunT(t)
	adapter, err := redis.NewRedisAdapter("idem-"+t.Name(), "test:", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Close() })
	return mr, NewService(adapter, DefaultConfig())
}

func TestService_AcquireCompleteReplay(t *testing.T) {
	mr, s := setupService(t)
	ctx := context.Background()

	lease, replay, err := s.Acquire(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, lease)
	assert.Nil(t, replay)
	assert.True(t, mr.Exists("test:idem:lock:k1"))

	_, _, err = s.Acquire(ctx, "k1")
	assert.ErrorIs(t, err, ErrInFlight)

	require.NoError(t, lease.Complete(ctx, Response{Status: 200, Body: []byte(`{"ok":true}`)}))
	assert.False(t, mr.Exists("test:idem:lock:k1"))
	assert.Equal(t, 24*time.Hour, mr.TTL("test:idem:done:k1"))

	assert.True(t, mr.Exists("test:idem:done:k1"))

	lease, replay, err = s.Acquire(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, lease)
	require.NotNil(t, replay)
	assert.Equal(t, 200, replay.Status)
	assert.JSONEq(t, `{"ok":true}`, string(replay.Body))
}

func TestService_ReleaseAllowsRetry(t *testing.T) {
	mr, s := setupService(t)
	ctx := context.Background()

	lease, _, err := s.Acquire(ctx, "k2")
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))
	require.NoError(t, lease.Release(ctx))

	lease, replay, err := s.Acquire(ctx, "k2")
	require.NoError(t, err)
	assert.NotNil(t, lease)
	assert.Nil(t, replay)
	require.NoError(t, lease.Release(ctx))
	assert.False(t, mr.Exists("test:idem:done:k2"))
}

func TestService_LockExpires(t *testing.T) {
	mr, s := setupService(t)
	ctx := context.Background()

	_, _, err := s.Acquire(ctx, "k3")
	require.NoError(t, err)

	mr.FastForward(DefaultConfig().LockTTL + time.Second)

	lease, _, err := s.Acquire(ctx, "k3")
	require.NoError(t, err)
	assert.NotNil(t, lease)
}

func TestService_UnreadableMarker(t *testing.T) {
	mr, s := setupService(t)
	require.NoError(t, mr.Set("test:idem:done:k5", "not json"))

	lease, replay, err := s.Acquire(context.Background(), "k5")
	assert.ErrorIs(t, err, ErrReplayDecode)
	assert.Nil(t, lease)
	assert.Nil(t, replay)
	assert.False(t, mr.Exists("test:idem:lock:k5"))
}

func TestService_EmptyKey(t *testing.T) {
	_, s := setupService(t)

	_, _, err := s.Acquire(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestService_StoreDown(t *testing.T) {
	mr, s := setupService(t)
	mr.Close()

	_, _, err := s.Acquire(context.Background(), "k4")
	assert.ErrorIs(t, err, ErrLockAcquire)
}

func newRequest(key string) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI("/api/v1/reminders")

	// Init attaches a server, which the redis client needs for ctx.Done.
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	ctx.Request.Header.Set(session.HeaderName, "session-a")
	if key != "" {
		ctx.Request.Header.Set(HeaderKey, key)
	}
	return ctx
}

func TestMiddleware_ReplaysSuccess(t *testing.T) {
	_, s := setupService(t)
	calls := 0
	h := s.Middleware(func(ctx *fasthttp.RequestCtx) {
		calls++
		ctx.Response.Header.Set("Content-Type", "application/json")
		ctx.Response.SetBodyString(`{"notice":"sent"}`)
	})

	first := newRequest("abc")
	h(first)
	assert.Equal(t, fasthttp.StatusOK, first.Response.StatusCode())
	assert.Empty(t, first.Response.Header.Peek(HeaderReplayed))

	second := newRequest("abc")
	h(second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "true", string(second.Response.Header.Peek(HeaderReplayed)))
	assert.JSONEq(t, `{"notice":"sent"}`, string(second.Response.Body()))
}

func TestMiddleware_DoesNotStoreFailures(t *testing.T) {
	_, s := setupService(t)
	calls := 0
	h := s.Middleware(func(ctx *fasthttp.RequestCtx) {
		calls++
		ctx.Response.SetStatusCode(fasthttp.StatusBadGateway)
	})

	h(newRequest("abc"))
	h(newRequest("abc"))
	assert.Equal(t, 2, calls)
}

func TestMiddleware_WithoutHeaderPassesThrough(t *testing.T) {
	_, s := setupService(t)
	calls := 0
	h := s.Middleware(func(ctx *fasthttp.RequestCtx) { calls++ })

	h(newRequest(""))
	h(newRequest(""))
	assert.Equal(t, 2, calls)
}

func TestMiddleware_InFlightConflict(t *testing.T) {
	_, s := setupService(t)
	req := newRequest("busy")
	key := scopedKey("session-a", fasthttp.MethodPost, "/api/v1/reminders", "busy")

	lease, _, err := s.Acquire(context.Background(), key)
	require.NoError(t, err)
	defer lease.Release(context.Background())

	called := false
	s.Middleware(func(ctx *fasthttp.RequestCtx) { called = true })(req)

	assert.False(t, called)
	assert.Equal(t, fasthttp.StatusConflict, req.Response.StatusCode())
}

func TestScopedKey_SeparatesSessionsAndRoutes(t *testing.T) {
	base := scopedKey("s1", "POST", "/a", "k")
	assert.Equal(t, base, scopedKey("s1", "POST", "/a", "k"))
	assert.NotEqual(t, base, scopedKey("s2", "POST", "/a", "k"))
	assert.NotEqual(t, base, scopedKey("s1", "POST", "/b", "k"))
	assert.NotEqual(t, base, scopedKey("s1", "POST", "/a", "k2"))
}
