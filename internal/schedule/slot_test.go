package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/logobot/internal/apperr"
)

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"2025-06-01": "2025-06-01",
		" 2025-6-1 ": "2025-06-01",
		"01.06.2025": "2025-06-01",
		"1.6.2025":   "2025-06-01",
	}
	for in, want := range cases {
		got, err := NormalizeDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	for _, bad := range []string{"", "2025-13-01", "tomorrow", "2025/06/01"} {
		_, err := NormalizeDate(bad)
		assert.Equal(t, apperr.CodeUsage, apperr.CodeOf(err), bad)
	}
}

func TestNormalizeTime(t *testing.T) {
	got, err := NormalizeTime("9:00")
	require.NoError(t, err)
	assert.Equal(t, "09:00", got)

	for _, bad := range []string{"", "25:00", "9", "09:60"} {
		_, err := NormalizeTime(bad)
		assert.Equal(t, apperr.CodeUsage, apperr.CodeOf(err), bad)
	}
}

func TestHours(t *testing.T) {
	h := Hours{}
	require.NoError(t, h.Normalize())
	times := h.Times()
	assert.Len(t, times, 11)
	assert.Equal(t, "09:00", times[0])
	assert.Equal(t, "19:00", times[10])

	h = Hours{First: "9:00", Last: "10:00", Step: 30}
	require.NoError(t, h.Normalize())
	assert.Equal(t, []string{"09:00", "09:30", "10:00"}, h.Times())

	bad := []Hours{
		{First: "12:00", Last: "10:00"},
		{First: "x"},
		{Step: 1},
	}
	for _, b := range bad {
		assert.Error(t, b.Normalize())
	}
}
