package appointments

import (
	"context"
	"errors"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"medibook-server/internal/models"
	"medibook-server/internal/repository"
)

const defaultRatingAttempts = 3

var ratingTracer = otel.Tracer("medibook/appointments/rating")

// AverageRating is the arithmetic mean of every review rating, recomputed
// from the full history. It is 0 when there are no reviews.
func AverageRating(reviews []models.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews))
}

// RatingAggregator appends reviews to providers and keeps their rating equal
// to the mean of all reviews.
type RatingAggregator struct {
	providers ProviderStore
	attempts  int
}

// NewRatingAggregator creates a RatingAggregator that retries a lost race up
// to attempts times in total.
func NewRatingAggregator(providers ProviderStore, attempts int) *RatingAggregator {
	if attempts < 1 {
		attempts = defaultRatingAttempts
	}
	return &RatingAggregator{providers: providers, attempts: attempts}
}

// Apply appends review to the provider and stores the recomputed rating as
// one versioned write, reloading the provider when another writer got there
// first. It returns the provider as committed.
func (g *RatingAggregator) Apply(ctx context.Context, providerID string, review models.Review) (*models.Provider, error) {
	ctx, span := ratingTracer.Start(ctx, "rating.apply")
	defer span.End()
	span.SetAttributes(
		attribute.String("provider.id", providerID),
		attribute.Int("review.rating", review.Rating),
	)

	for attempt := 1; ; attempt++ {
		span.SetAttributes(attribute.Int("rating.attempts", attempt))

		provider, err := g.providers.FindProvider(ctx, providerID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}

		r := review
		rating := AverageRating(append(slices.Clone(provider.Reviews), r))

		err = g.providers.AppendReview(ctx, provider, &r, rating)
		if err == nil {
			span.SetAttributes(attribute.Float64("provider.rating", rating))
			return provider, nil
		}
		if !errors.Is(err, repository.ErrConflict) || attempt >= g.attempts {
			span.RecordError(err)
			return nil, err
		}
	}
}
