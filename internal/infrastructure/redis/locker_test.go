package redis

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

func getRedisClient(t *testing.T) *goredis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis no disponible: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestLocker_ExclusionMutua(t *testing.T) {
	client := getRedisClient(t)
	l := NewLocker(client, 5*time.Second, 5*time.Second, logger.NewNop())
	key := "test:" + uuid.NewString()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, key)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			maxSeen = max(maxSeen, inside)
			mu.Unlock()
			time.Sleep(2 * time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)

	exists, err := client.Exists(ctx, lockKeyPrefix+key).Result()
	require.NoError(t, err)
	assert.Zero(t, exists, "la clave se borra al liberar")
}

func TestLocker_TimeoutSiLaClaveEstaTomada(t *testing.T) {
	client := getRedisClient(t)
	l := NewLocker(client, 5*time.Second, 30*time.Millisecond, logger.NewNop())
	key := "test:" + uuid.NewString()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, key)
	require.NoError(t, err)
	defer unlock()

	_, err = l.Lock(ctx, key)
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
}

func TestLocker_NoLiberaUnBloqueoAjeno(t *testing.T) {
	client := getRedisClient(t)
	l := NewLocker(client, 20*time.Millisecond, time.Second, logger.NewNop())
	key := "test:" + uuid.NewString()
	ctx := context.Background()

	stale, err := l.Lock(ctx, key)
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond) // expira el TTL

	l.ttl = 5 * time.Second
	fresh, err := l.Lock(ctx, key)
	require.NoError(t, err)
	defer fresh()

	stale()
	exists, err := client.Exists(ctx, lockKeyPrefix+key).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists, "el token viejo no borra el bloqueo vigente")
}
