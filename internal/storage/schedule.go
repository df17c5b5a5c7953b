package storage

import (
	"context"
	"database/sql"
	"errors"

	coredatabase "github.com/m3rciful/logobot/core/database"
	"github.com/m3rciful/logobot/internal/schedule"
)

// ScheduleStore implements schedule.Store.
type ScheduleStore struct {
	h *coredatabase.Handle
}

// NewScheduleStore binds schedule_slots to h.
func NewScheduleStore(h *coredatabase.Handle) *ScheduleStore {
	return &ScheduleStore{h: h}
}

const slotColumns = `slot_date, slot_time, status, occupant_user_id`

func (s *ScheduleStore) InsertSlots(ctx context.Context, date string, times []string) (int, error) {
	var added int
	err := s.h.Transact(ctx, "schedule.insert", func(q coredatabase.Execer) error {
		added = 0
		for _, t := range times {
			n, err := exec(ctx, q, `INSERT INTO schedule_slots (slot_date, slot_time, status)
VALUES (?, ?, ?)
ON CONFLICT (slot_date, slot_time) DO NOTHING`, date, t, schedule.Available)
			if err != nil {
				return err
			}
			added += int(n)
		}
		return nil
	})
	return added, err
}

func (s *ScheduleStore) AvailableTimes(ctx context.Context, date string) ([]string, error) {
	var times []string
	err := s.h.Read(ctx, "schedule.available", func(q coredatabase.Execer) error {
		times = times[:0]
		return q.SelectContext(ctx, &times, q.Rebind(`SELECT slot_time FROM schedule_slots
WHERE slot_date = ? AND status = ? ORDER BY slot_time`), date, schedule.Available)
	})
	return times, err
}

func (s *ScheduleStore) SlotsFrom(ctx context.Context, date string) ([]schedule.Slot, error) {
	var slots []schedule.Slot
	err := s.h.Read(ctx, "schedule.list", func(q coredatabase.Execer) error {
		slots = slots[:0]
		return q.SelectContext(ctx, &slots, q.Rebind(`SELECT `+slotColumns+` FROM schedule_slots
WHERE slot_date >= ? ORDER BY slot_date, slot_time`), date)
	})
	return slots, err
}

func (s *ScheduleStore) Delete(ctx context.Context, date, tm string) (schedule.Slot, bool, error) {
	var (
		slot  schedule.Slot
		found bool
	)
	err := s.h.Transact(ctx, "schedule.delete", func(q coredatabase.Execer) error {
		found = false
		err := q.GetContext(ctx, &slot, q.Rebind(`SELECT `+slotColumns+` FROM schedule_slots
WHERE slot_date = ? AND slot_time = ?`), date, tm)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		n, err := exec(ctx, q, `DELETE FROM schedule_slots WHERE slot_date = ? AND slot_time = ?`, date, tm)
		found = n > 0
		return err
	})
	return slot, found, err
}

func (s *ScheduleStore) Book(ctx context.Context, date, tm string, userID int64) (bool, error) {
	var booked bool
	err := s.h.Transact(ctx, "schedule.book", func(q coredatabase.Execer) error {
		n, err := exec(ctx, q, `UPDATE schedule_slots SET status = ?, occupant_user_id = ?
WHERE slot_date = ? AND slot_time = ? AND status = ?`, schedule.Booked, userID, date, tm, schedule.Available)
		booked = n > 0
		return err
	})
	return booked, err
}

var _ schedule.Store = (*ScheduleStore)(nil)
