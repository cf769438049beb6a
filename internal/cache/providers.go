// Package cache keeps provider summaries in redis so booking does not hit the
// database for every fee snapshot.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"medibook-server/internal/models"
	"medibook-server/internal/repository"
)

const summaryKeyPrefix = "provider:summary:"

var cacheTracer = otel.Tracer("medibook/cache/providers")

// ProviderStore is the provider persistence wrapped by CachedProviders.
type ProviderStore interface {
	LookupProvider(ctx context.Context, id string) (*models.ProviderSummary, error)
	FindProvider(ctx context.Context, id string) (*models.Provider, error)
	AppendReview(ctx context.Context, p *models.Provider, review *models.Review, rating float64) error
	UpdateProviderProfile(ctx context.Context, id string, update repository.ProviderProfileUpdate) (*models.Provider, error)
	TopRatedProviders(ctx context.Context, limit int) ([]models.Provider, error)
	SearchProviders(ctx context.Context, filter repository.ProviderFilter, skip, limit int) ([]models.Provider, error)
	CountProviders(ctx context.Context, filter repository.ProviderFilter) (int64, error)
}

// CachedProviders serves LookupProvider from redis and invalidates the cached
// summary on every write that changes it. Redis errors fall through to the
// wrapped store.
type CachedProviders struct {
	ProviderStore
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewCachedProviders wraps store with a redis read-through cache.
func NewCachedProviders(store ProviderStore, client *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedProviders {
	return &CachedProviders{
		ProviderStore: store,
		client:        client,
		ttl:           ttl,
		log:           log,
	}
}

// LookupProvider returns the cached summary, loading and caching it on a miss.
func (c *CachedProviders) LookupProvider(ctx context.Context, id string) (*models.ProviderSummary, error) {
	ctx, span := cacheTracer.Start(ctx, "cache.provider_summary")
	defer span.End()
	span.SetAttributes(attribute.String("provider.id", id))

	raw, err := c.client.Get(ctx, summaryKey(id)).Bytes()
	switch {
	case err == nil:
		var summary models.ProviderSummary
		if jsonErr := json.Unmarshal(raw, &summary); jsonErr == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return &summary, nil
		}
		c.log.Warn().Str("provider_id", id).Msg("discarding unreadable cached provider summary")
	case !errors.Is(err, redis.Nil):
		c.log.Warn().Err(err).Str("provider_id", id).Msg("provider cache read failed")
	}

	span.SetAttributes(attribute.Bool("cache.hit", false))
	summary, err := c.ProviderStore.LookupProvider(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(summary); err == nil {
		if err := c.client.Set(ctx, summaryKey(id), payload, c.ttl).Err(); err != nil {
			c.log.Warn().Err(err).Str("provider_id", id).Msg("provider cache write failed")
		}
	}
	return summary, nil
}

// AppendReview delegates and drops the cached summary, whose rating is now stale.
func (c *CachedProviders) AppendReview(ctx context.Context, p *models.Provider, review *models.Review, rating float64) error {
	if err := c.ProviderStore.AppendReview(ctx, p, review, rating); err != nil {
		return err
	}
	c.invalidate(ctx, p.ID)
	return nil
}

// UpdateProviderProfile delegates and drops the cached summary so the next
// booking snapshots the new fee.
func (c *CachedProviders) UpdateProviderProfile(ctx context.Context, id string, update repository.ProviderProfileUpdate) (*models.Provider, error) {
	provider, err := c.ProviderStore.UpdateProviderProfile(ctx, id, update)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, id)
	return provider, nil
}

func (c *CachedProviders) invalidate(ctx context.Context, id string) {
	if err := c.client.Del(ctx, summaryKey(id)).Err(); err != nil {
		c.log.Warn().Err(err).Str("provider_id", id).Msg("provider cache invalidation failed")
	}
}

func summaryKey(id string) string {
	return summaryKeyPrefix + id
}
