package appointments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 5, 17, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{"2025-05-17", " 2025-05-17 ", "2025-05-17T15:04:05Z", "2025-05-17T23:30:00+02:00"} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDate("17/05/2025")
	assert.Error(t, err)
}

func TestDayRange(t *testing.T) {
	start, end := DayRange(time.Date(2025, 5, 17, 13, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 5, 17, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 5, 17, 23, 59, 59, int(999*time.Millisecond), time.UTC), end)
}
