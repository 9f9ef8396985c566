package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLocked = errors.New("resource is locked")

type Lock struct {
	Key   string
	token string
}

type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error)
	Release(ctx context.Context, l *Lock) error
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client *redis.Client
	prefix string
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client, prefix: "checkout_lock:"}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.prefix+key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLocked
	}
	return &Lock{Key: key, token: token}, nil
}

// Release only deletes the key while it still holds this lock's token, so an
// expired lock taken over by another holder stays in place.
func (l *RedisLocker) Release(ctx context.Context, lk *Lock) error {
	if lk == nil {
		return nil
	}
	return releaseScript.Run(ctx, l.client, []string{l.prefix + lk.Key}, lk.token).Err()
}

type memoryLock struct {
	token     string
	expiresAt time.Time
}

type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]memoryLock
	now   func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]memoryLock), now: time.Now}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (*Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if current, ok := l.locks[key]; ok && now.Before(current.expiresAt) {
		return nil, ErrLocked
	}

	token := uuid.NewString()
	l.locks[key] = memoryLock{token: token, expiresAt: now.Add(ttl)}
	return &Lock{Key: key, token: token}, nil
}

func (l *MemoryLocker) Release(_ context.Context, lk *Lock) error {
	if lk == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if current, ok := l.locks[lk.Key]; ok && current.token == lk.token {
		delete(l.locks, lk.Key)
	}
	return nil
}
