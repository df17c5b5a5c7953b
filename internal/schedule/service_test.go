package schedule_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/logobot/internal/apperr"
	"github.com/m3rciful/logobot/internal/schedule"
	"github.com/m3rciful/logobot/internal/storage"
	"github.com/m3rciful/logobot/internal/storage/storagetest"
)

func newService(t *testing.T, today string) *schedule.Service {
	t.Helper()
	now, err := time.ParseInLocation(schedule.DateLayout, today, time.Local)
	require.NoError(t, err)
	return schedule.NewService(storage.NewScheduleStore(storagetest.Open(t)), func() time.Time { return now })
}

func TestPublishAndAvailable(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, "2025-05-30")

	n, err := svc.PublishSlots(ctx, "2025-06-01", []string{"10:00", "09:00"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	times, err := svc.Available(ctx, "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00"}, times)

	n, err = svc.PublishSlots(ctx, "2025-06-01", []string{"9:00", "10:00", "10:00"})
	require.NoError(t, err)
	assert.Zero(t, n)
	slots, err := svc.Appointments(ctx)
	require.NoError(t, err)
	assert.Len(t, slots, 2)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, "2025-05-30")
	_, err := svc.PublishSlots(ctx, "2025-06-01", []string{"09:00", "10:00"})
	require.NoError(t, err)

	_, ok, err := svc.Cancel(ctx, "2025-06-01", "09:00")
	require.NoError(t, err)
	assert.True(t, ok)
	times, err := svc.Available(ctx, "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00"}, times)

	_, ok, err = svc.Cancel(ctx, "2025-06-01", "09:00")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCancelBookedReturnsOccupant(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, "2025-05-30")
	_, err := svc.PublishSlots(ctx, "2025-06-01", []string{"11:00"})
	require.NoError(t, err)
	require.NoError(t, svc.Book(ctx, "2025-06-01", "11:00", 222))

	slot, ok, err := svc.Cancel(ctx, "2025-06-01", "11:00")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, schedule.Booked, slot.Status)
	require.NotNil(t, slot.Occupant)
	assert.Equal(t, int64(222), *slot.Occupant)
}

func TestBook(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, "2025-05-30")
	_, err := svc.PublishSlots(ctx, "2025-06-01", []string{"09:00", "10:00"})
	require.NoError(t, err)

	require.NoError(t, svc.Book(ctx, "2025-06-01", "09:00", 222))
	assert.ErrorIs(t, svc.Book(ctx, "2025-06-01", "09:00", 333), schedule.ErrSlotUnavailable)
	assert.ErrorIs(t, svc.Book(ctx, "2025-06-02", "09:00", 333), schedule.ErrSlotUnavailable)

	times, err := svc.Available(ctx, "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00"}, times)
}

func TestAppointmentsFromToday(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, "2025-06-02")
	for _, d := range []string{"2025-06-01", "2025-06-03", "2025-06-02"} {
		_, err := svc.PublishSlots(ctx, d, []string{"12:00", "09:00"})
		require.NoError(t, err)
	}

	slots, err := svc.Appointments(ctx)
	require.NoError(t, err)
	var got []string
	for _, s := range slots {
		got = append(got, s.Date+" "+s.Time)
	}
	assert.Equal(t, []string{
		"2025-06-02 09:00", "2025-06-02 12:00",
		"2025-06-03 09:00", "2025-06-03 12:00",
	}, got)
}

func TestMalformedInput(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, "2025-05-30")

	_, err := svc.PublishSlots(ctx, "June 1st", []string{"09:00"})
	assert.Equal(t, apperr.CodeUsage, apperr.CodeOf(err))
	_, err = svc.PublishSlots(ctx, "2025-06-01", []string{"9am"})
	assert.Equal(t, apperr.CodeUsage, apperr.CodeOf(err))
	_, err = svc.PublishSlots(ctx, "2025-06-01", nil)
	assert.Equal(t, apperr.CodeUsage, apperr.CodeOf(err))
	_, _, err = svc.Cancel(ctx, "2025-06-01", "25:00")
	assert.Equal(t, apperr.CodeUsage, apperr.CodeOf(err))
}
