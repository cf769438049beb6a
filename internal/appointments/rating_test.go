package appointments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"medibook-server/internal/models"
	"medibook-server/internal/repository"
)

type mockProviderStore struct {
	mock.Mock
}

func (m *mockProviderStore) LookupProvider(ctx context.Context, id string) (*models.ProviderSummary, error) {
	args := m.Called(ctx, id)
	summary, _ := args.Get(0).(*models.ProviderSummary)
	return summary, args.Error(1)
}

func (m *mockProviderStore) FindProvider(ctx context.Context, id string) (*models.Provider, error) {
	args := m.Called(ctx, id)
	provider, _ := args.Get(0).(*models.Provider)
	return provider, args.Error(1)
}

func (m *mockProviderStore) AppendReview(ctx context.Context, p *models.Provider, review *models.Review, rating float64) error {
	args := m.Called(ctx, p, review, rating)
	return args.Error(0)
}

func reviews(ratings ...int) []models.Review {
	out := make([]models.Review, 0, len(ratings))
	for _, r := range ratings {
		out = append(out, models.Review{Rating: r})
	}
	return out
}

func TestAverageRating(t *testing.T) {
	assert.Equal(t, 0.0, AverageRating(nil))
	assert.Equal(t, 5.0, AverageRating(reviews(5)))
	assert.Equal(t, 4.0, AverageRating(reviews(4, 5, 3)))
	assert.InDelta(t, 3.6667, AverageRating(reviews(4, 5, 2)), 0.0001)
}

func TestRatingAggregatorRetriesConflict(t *testing.T) {
	ctx := context.Background()
	store := new(mockProviderStore)
	stale := &models.Provider{Reviews: reviews(4, 5), Version: 1}
	stale.ID = "prov-1"
	fresh := &models.Provider{Reviews: reviews(4, 5), Version: 2}
	fresh.ID = "prov-1"

	store.On("FindProvider", ctx, "prov-1").Return(stale, nil).Once()
	store.On("FindProvider", ctx, "prov-1").Return(fresh, nil).Once()
	store.On("AppendReview", ctx, stale, mock.AnythingOfType("*models.Review"), 4.0).Return(repository.ErrConflict).Once()
	store.On("AppendReview", ctx, fresh, mock.AnythingOfType("*models.Review"), 4.0).Return(nil).Once()

	got, err := NewRatingAggregator(store, 3).Apply(ctx, "prov-1", models.Review{Rating: 3})
	require.NoError(t, err)
	assert.Same(t, fresh, got)
	store.AssertExpectations(t)
}

func TestRatingAggregatorGivesUp(t *testing.T) {
	ctx := context.Background()
	store := new(mockProviderStore)
	provider := &models.Provider{Version: 1}

	store.On("FindProvider", ctx, "prov-1").Return(provider, nil)
	store.On("AppendReview", ctx, provider, mock.Anything, 5.0).Return(repository.ErrConflict)

	_, err := NewRatingAggregator(store, 2).Apply(ctx, "prov-1", models.Review{Rating: 5})
	assert.ErrorIs(t, err, repository.ErrConflict)
	store.AssertNumberOfCalls(t, "AppendReview", 2)
}

func TestRatingAggregatorDoesNotRetryOtherErrors(t *testing.T) {
	ctx := context.Background()
	store := new(mockProviderStore)
	provider := &models.Provider{Version: 1}
	boom := errors.New("connection reset")

	store.On("FindProvider", ctx, "prov-1").Return(provider, nil)
	store.On("AppendReview", ctx, provider, mock.Anything, 2.0).Return(boom)

	_, err := NewRatingAggregator(store, 3).Apply(ctx, "prov-1", models.Review{Rating: 2})
	assert.ErrorIs(t, err, boom)
	store.AssertNumberOfCalls(t, "AppendReview", 1)
}

func TestRatingAggregatorConcurrentReviews(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	provider := &models.Provider{Name: "Dr. Lee", Email: "lee@clinic.test"}
	require.NoError(t, store.CreateProvider(ctx, provider))

	const writers = 10
	agg := NewRatingAggregator(store, writers+1)

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := agg.Apply(ctx, provider.ID, models.Review{
				PatientID: fmt.Sprintf("patient-%d", i),
				Rating:    i%5 + 1,
				Date:      time.Now(),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := store.FindProvider(ctx, provider.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Reviews, writers)
	assert.Equal(t, AverageRating(stored.Reviews), stored.Rating)
	assert.Equal(t, 3.0, stored.Rating)
}
