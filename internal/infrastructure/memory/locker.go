package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
)

// KeyedMutex exclusión mutua por clave dentro del proceso.
// Cada clave tiene un semáforo de capacidad 1 con contador de referencias; la entrada se libera
// cuando nadie la usa, así el mapa no crece con claves históricas.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
	wait  time.Duration
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

// NewKeyedMutex construye el bloqueador por clave. wait es la espera máxima por el turno
// antes de ErrLockTimeout; cero espera solo a ctx.
func NewKeyedMutex(wait time.Duration) *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock), wait: wait}
}

// Lock espera el turno de la clave, agotar wait o la cancelación de ctx.
// La función devuelta libera el bloqueo; llamarla más de una vez no tiene efecto.
func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{sem: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	var timeout <-chan time.Time
	if k.wait > 0 {
		timer := time.NewTimer(k.wait)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		k.release(key, l)
		return nil, ctx.Err()
	case <-timeout:
		k.release(key, l)
		return nil, fmt.Errorf("%w: %s", domain.ErrLockTimeout, key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.sem
			k.release(key, l)
		})
	}, nil
}

func (k *KeyedMutex) release(key string, l *keyLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}

// size número de claves vivas (tests).
func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
