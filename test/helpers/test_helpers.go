package helpers

import (
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/nimasrn/billing-console/internal/sandbox"
	"github.com/nimasrn/billing-console/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// SetupTestRedis starts a miniredis and connects an adapter under a name
// unique to the test, so the adapter cache never hands back a closed client.
func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	t.Helper()
	mr := miniredis.RunT(t)

	connName := fmt.Sprintf("test-%d", time.Now().UnixNano())
	adapter, err := redis.NewRedisAdapter(connName, "test:", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Close() })

	return mr, adapter
}

// StartSandbox serves an empty fake billing API and returns its store and
// the base URL to hand to the gateway client.
func StartSandbox(t *testing.T, apiKey string) (*sandbox.Store, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := sandbox.NewStore()
	srv := httptest.NewServer(sandbox.SetupRouter(sandbox.NewHandler(store, apiKey, zerolog.Nop())))
	t.Cleanup(srv.Close)
	return store, srv.URL + "/api/v3"
}
