package surface

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-checkout/app/factory"
)

const (
	surfaceStateOpen   = "open"
	surfaceStateClosed = "closed"
)

// RedisRegistry shares surface state between replicas so that the replica
// receiving the storefront report need not be the one running the session.
type RedisRegistry struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger logrus.FieldLogger
}

func NewRedisRegistry(client *redis.Client, ttl time.Duration) *RedisRegistry {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisRegistry{
		client: client,
		prefix: "checkout:surface:",
		ttl:    ttl,
		logger: factory.NewModuleLogger("surface_registry"),
	}
}

func (r *RedisRegistry) Open(ctx context.Context, url string) (*Handle, error) {
	id := uuid.NewString()
	url = strings.TrimSpace(url)

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(id), surfaceStateOpen, r.ttl)
	pipe.Set(ctx, r.urlKey(id), url, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	return &Handle{ID: id, URL: url}, nil
}

func (r *RedisRegistry) IsClosed(ctx context.Context, h *Handle) bool {
	if h == nil {
		return false
	}

	state, err := r.client.Get(ctx, r.key(h.ID)).Result()
	if errors.Is(err, redis.Nil) {
		return true
	}
	if err != nil {
		r.logger.WithError(err).WithField("surface_id", h.ID).Warn("Surface state lookup failed")
		return false
	}
	return state == surfaceStateClosed
}

func (r *RedisRegistry) Close(ctx context.Context, h *Handle) error {
	if h == nil {
		return nil
	}
	return r.client.Del(ctx, r.key(h.ID), r.urlKey(h.ID)).Err()
}

func (r *RedisRegistry) Lookup(ctx context.Context, id string) (*Handle, error) {
	url, err := r.client.Get(ctx, r.urlKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSurfaceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &Handle{ID: id, URL: url}, nil
}

func (r *RedisRegistry) MarkClosed(ctx context.Context, id string) error {
	err := r.client.SetArgs(ctx, r.key(id), surfaceStateClosed, redis.SetArgs{
		Mode:    "XX",
		KeepTTL: true,
	}).Err()
	if errors.Is(err, redis.Nil) {
		return ErrSurfaceNotFound
	}
	return err
}

func (r *RedisRegistry) key(id string) string {
	return r.prefix + id
}

func (r *RedisRegistry) urlKey(id string) string {
	return r.prefix + id + ":url"
}
