// Package redis bloqueo por clave compartido entre réplicas del servicio.
package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/inventario-ledger/internal/application/ledger"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

const (
	lockKeyPrefix  = "lock:"
	minRetryDelay  = 5 * time.Millisecond
	maxRetryDelay  = 200 * time.Millisecond
	releaseTimeout = 2 * time.Second
)

// Borra la clave solo si sigue guardando el token de quien la tomó:
// un bloqueo expirado y retomado por otro no se libera por error.
var releaseScript = goredis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

var _ ledger.KeyLocker = (*Locker)(nil)

// Locker bloqueo SET NX PX con token aleatorio por adquisición.
// TTL acota la vida de un bloqueo cuyo dueño murió; Wait es la espera máxima antes de ErrLockTimeout.
type Locker struct {
	client *goredis.Client
	ttl    time.Duration
	wait   time.Duration
	log    *logger.Logger
}

// NewClient abre el cliente y verifica la conexión.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewLocker construye el bloqueador distribuido.
func NewLocker(client *goredis.Client, ttl, wait time.Duration, log *logger.Logger) *Locker {
	return &Locker{client: client, ttl: ttl, wait: wait, log: log.Component("redis_locker")}
}

// Lock reintenta SET NX con espera exponencial hasta obtener la clave, agotar Wait o cancelar ctx.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	rkey := lockKeyPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)
	delay := minRetryDelay

	for {
		ok, err := l.client.SetNX(ctx, rkey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", domain.ErrLockTimeout, key)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, maxRetryDelay)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// La liberación no depende del ctx de la petición: si ya se canceló, la clave igual debe borrarse.
			rctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			n, err := releaseScript.Run(rctx, l.client, []string{rkey}, token).Int()
			if err != nil {
				l.log.Warn().Err(err).Str("key", key).Msg("no se pudo liberar el bloqueo; expirará por TTL")
				return
			}
			if n == 0 {
				l.log.Warn().Str("key", key).Dur("ttl", l.ttl).Msg("el bloqueo expiró antes de liberarse")
			}
		})
	}, nil
}
