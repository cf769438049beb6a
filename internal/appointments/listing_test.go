package appointments

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medibook-server/internal/models"
)

func TestListPaginationPartitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for day := 1; day <= 7; day++ {
		f.book(t, fmt.Sprintf("2025-04-%02d", day))
	}

	seen := make(map[string]bool)
	for page := 1; page <= 3; page++ {
		got, err := f.svc.ListForPatient(ctx, f.patient, ListQuery{Page: page, Limit: 3})
		require.NoError(t, err)
		assert.Equal(t, int64(7), got.Total)
		assert.Equal(t, 3, got.TotalPages)
		assert.Equal(t, page, got.CurrentPage)
		assert.Equal(t, len(got.Appointments), got.Count)
		for _, a := range got.Appointments {
			assert.False(t, seen[a.ID], "appointment %s listed twice", a.ID)
			seen[a.ID] = true
		}
	}
	assert.Len(t, seen, 7)

	past, err := f.svc.ListForPatient(ctx, f.patient, ListQuery{Page: 4, Limit: 3})
	require.NoError(t, err)
	assert.Empty(t, past.Appointments)
	assert.NotNil(t, past.Appointments)
}

func TestListOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, "2025-04-02")
	f.book(t, "2025-04-05")
	f.book(t, "2025-04-03")

	patientPage, err := f.svc.ListForPatient(ctx, f.patient, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-04-05", "2025-04-03", "2025-04-02"}, dates(patientPage))

	providerPage, err := f.svc.ListForProvider(ctx, f.provider, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-04-02", "2025-04-03", "2025-04-05"}, dates(providerPage))
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.book(t, "2025-04-02")
	f.book(t, "2025-04-02")
	f.book(t, "2025-04-03")
	_, err := f.svc.UpdateStatus(ctx, f.provider, first.ID, StatusInput{Status: models.StatusConfirmed})
	require.NoError(t, err)

	byDay, err := f.svc.ListForProvider(ctx, f.provider, ListQuery{Date: "2025-04-02"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), byDay.Total)

	confirmed, err := f.svc.ListAll(ctx, f.admin, ListQuery{Status: "confirmed"})
	require.NoError(t, err)
	require.Equal(t, int64(1), confirmed.Total)
	assert.Equal(t, first.ID, confirmed.Appointments[0].ID)

	// Patients cannot filter by date.
	all, err := f.svc.ListForPatient(ctx, f.patient, ListQuery{Date: "2025-04-02"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)

	_, err = f.svc.ListAll(ctx, f.admin, ListQuery{Status: "pending"})
	assert.Equal(t, KindValidation, KindOf(err))
	_, err = f.svc.ListForProvider(ctx, f.provider, ListQuery{Date: "April 2nd"})
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestListScopesToCaller(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, "2025-04-02")

	other, err := f.svc.ListForPatient(ctx, f.other, ListQuery{})
	require.NoError(t, err)
	assert.Zero(t, other.Total)
	assert.Zero(t, other.TotalPages)

	_, err = f.svc.ListAll(ctx, f.patient, ListQuery{})
	assert.Equal(t, KindForbidden, KindOf(err))
	_, err = f.svc.ListForProvider(ctx, f.patient, ListQuery{})
	assert.Equal(t, KindForbidden, KindOf(err))
	_, err = f.svc.ListForPatient(ctx, f.provider, ListQuery{})
	assert.Equal(t, KindForbidden, KindOf(err))
}

func TestPagingDefaults(t *testing.T) {
	f := newFixture(t)

	page, limit := f.svc.paging(ListQuery{})
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, limit)

	page, limit = f.svc.paging(ListQuery{Page: -2, Limit: 1000})
	assert.Equal(t, 1, page)
	assert.Equal(t, 100, limit)

	page, limit = f.svc.paging(ListQuery{Page: math.MaxInt, Limit: 2})
	assert.Equal(t, math.MaxInt/2, page)
	assert.Equal(t, 2, limit)
}

func TestListHugePage(t *testing.T) {
	f := newFixture(t)
	f.book(t, "2025-04-01")
	f.book(t, "2025-04-02")

	var got *Page
	require.NotPanics(t, func() {
		var err error
		got, err = f.svc.ListForPatient(context.Background(), f.patient, ListQuery{Page: 4611686018427387905, Limit: 2})
		require.NoError(t, err)
	})
	assert.Empty(t, got.Appointments)
	assert.NotNil(t, got.Appointments)
	assert.Equal(t, int64(2), got.Total)
	assert.Equal(t, 1, got.TotalPages)
}

func dates(p *Page) []string {
	out := make([]string, 0, len(p.Appointments))
	for _, a := range p.Appointments {
		out = append(out, a.AppointmentDate.Format("2006-01-02"))
	}
	return out
}
