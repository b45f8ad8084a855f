package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// OTPLocker serializa la verificacion de codigos por clave.
type OTPLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type memoryLockEntry struct {
	sem  chan struct{}
	refs int
}

type memoryOTPLocker struct {
	mu    sync.Mutex
	locks map[string]*memoryLockEntry
}

// NewMemoryOTPLocker crea un locker valido dentro de un solo proceso.
func NewMemoryOTPLocker() OTPLocker {
	return &memoryOTPLocker{
		locks: make(map[string]*memoryLockEntry),
	}
}

func (l *memoryOTPLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &memoryLockEntry{sem: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.sem
			l.release(key, entry)
		})
	}, nil
}

func (l *memoryOTPLocker) release(key string, entry *memoryLockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
}

// El token evita liberar un lock que ya expiro y tomo otro proceso.
const redisUnlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

type redisLockClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisOTPLocker struct {
	client  redisLockClient
	ttl     time.Duration
	maxWait time.Duration
	retry   time.Duration
	prefix  string
}

// NewRedisOTPLocker crea un lock distribuido sobre SET NX PX.
// ttl acota cuanto puede retener el lock un proceso caido.
func NewRedisOTPLocker(client *redis.Client, ttl, maxWait time.Duration) OTPLocker {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if maxWait <= 0 {
		maxWait = 3 * time.Second
	}
	return &redisOTPLocker{
		client:  client,
		ttl:     ttl,
		maxWait: maxWait,
		retry:   25 * time.Millisecond,
		prefix:  "lock:",
	}
}

func (l *redisOTPLocker) Lock(ctx context.Context, key string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	redisKey := l.prefix + key
	token := uuid.NewString()
	backoff := l.retry

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() { l.unlock(redisKey, token) }, nil
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		if backoff < 200*time.Millisecond {
			backoff *= 2
		}
	}
}

func (l *redisOTPLocker) unlock(redisKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	// Si falla, el TTL libera la clave.
	_ = l.client.Eval(ctx, redisUnlockScript, []string{redisKey}, token).Err()
}
