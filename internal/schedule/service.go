package schedule

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/m3rciful/logobot/core/logger"
	"github.com/m3rciful/logobot/internal/apperr"
)

// ErrSlotUnavailable is returned by Book when the slot is missing or already taken.
var ErrSlotUnavailable = apperr.New(apperr.CodeConflict, "slot is not available")

// Store persists slots. Dates and times are already normalized.
type Store interface {
	// InsertSlots inserts the missing times as available and returns how many were new.
	InsertSlots(ctx context.Context, date string, times []string) (int, error)
	AvailableTimes(ctx context.Context, date string) ([]string, error)
	// SlotsFrom returns every slot on or after date ordered by date then time.
	SlotsFrom(ctx context.Context, date string) ([]Slot, error)
	// Delete removes a slot and returns it as it was.
	Delete(ctx context.Context, date, time string) (Slot, bool, error)
	// Book flips an available slot to booked. It reports false when no available slot matched.
	Book(ctx context.Context, date, time string, userID int64) (bool, error)
}

// Service validates input and forwards to a Store.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService builds a Service. now defaults to time.Now.
func NewService(store Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

// Today returns the local date in DateLayout.
func (s *Service) Today() string {
	return s.now().Format(DateLayout)
}

// PublishSlots offers times on date. Existing slots are left untouched.
func (s *Service) PublishSlots(ctx context.Context, date string, times []string) (int, error) {
	d, err := NormalizeDate(date)
	if err != nil {
		return 0, err
	}
	if len(times) == 0 {
		return 0, apperr.Usagef("no times selected")
	}
	seen := make(map[string]struct{}, len(times))
	norm := make([]string, 0, len(times))
	for _, t := range times {
		nt, err := NormalizeTime(t)
		if err != nil {
			return 0, err
		}
		if _, dup := seen[nt]; dup {
			continue
		}
		seen[nt] = struct{}{}
		norm = append(norm, nt)
	}
	sort.Strings(norm)

	added, err := s.store.InsertSlots(ctx, d, norm)
	if err != nil {
		return 0, err
	}
	logger.SVCSchedule.InfoContext(ctx, "slots published",
		slog.String("event", "schedule.publish"),
		slog.String("date", d),
		slog.Int("slots", len(norm)),
		slog.Int("count", added),
	)
	return added, nil
}

// Available returns the free times on date in ascending order.
func (s *Service) Available(ctx context.Context, date string) ([]string, error) {
	d, err := NormalizeDate(date)
	if err != nil {
		return nil, err
	}
	return s.store.AvailableTimes(ctx, d)
}

// Appointments returns every slot from today on, booked or not.
func (s *Service) Appointments(ctx context.Context) ([]Slot, error) {
	return s.store.SlotsFrom(ctx, s.Today())
}

// Cancel deletes a slot whatever its status. A missing slot yields false and no error.
// The removed slot is returned so the caller can tell its occupant.
func (s *Service) Cancel(ctx context.Context, date, tm string) (Slot, bool, error) {
	d, err := NormalizeDate(date)
	if err != nil {
		return Slot{}, false, err
	}
	t, err := NormalizeTime(tm)
	if err != nil {
		return Slot{}, false, err
	}
	slot, ok, err := s.store.Delete(ctx, d, t)
	if err != nil {
		return Slot{}, false, err
	}
	logger.SVCSchedule.InfoContext(ctx, "slot cancelled",
		slog.String("event", "schedule.cancel"),
		slog.String("date", d),
		slog.String("time", t),
		slog.Bool("found", ok),
	)
	return slot, ok, nil
}

// Book reserves an available slot for userID.
func (s *Service) Book(ctx context.Context, date, tm string, userID int64) error {
	d, err := NormalizeDate(date)
	if err != nil {
		return err
	}
	t, err := NormalizeTime(tm)
	if err != nil {
		return err
	}
	if userID <= 0 {
		return apperr.Usagef("user id must be positive")
	}
	ok, err := s.store.Book(ctx, d, t, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSlotUnavailable
	}
	logger.SVCSchedule.InfoContext(ctx, "slot booked",
		slog.String("event", "schedule.book"),
		slog.String("date", d),
		slog.String("time", t),
		slog.Int64("target_user_id", userID),
	)
	return nil
}
