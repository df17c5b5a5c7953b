// Package schedule keeps the appointment slots an admin publishes.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/logobot/internal/apperr"
)

// Canonical layouts stored in the database.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Status of a slot.
type Status string

const (
	Available Status = "available"
	Booked    Status = "booked"
)

// Slot is one bookable (date, time) pair.
type Slot struct {
	Date     string `db:"slot_date"`
	Time     string `db:"slot_time"`
	Status   Status `db:"status"`
	Occupant *int64 `db:"occupant_user_id"`
}

var dateLayouts = []string{
	DateLayout,
	"2006-1-2",
	"02.01.2006",
	"2.1.2006",
}

// ParseDate accepts YYYY-MM-DD and the dotted day-first form admins type by hand.
func ParseDate(input string) (time.Time, error) {
	s := strings.TrimSpace(input)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Usagef("bad date %q, want YYYY-MM-DD", input)
}

// NormalizeDate returns input in DateLayout.
func NormalizeDate(input string) (string, error) {
	t, err := ParseDate(input)
	if err != nil {
		return "", err
	}
	return t.Format(DateLayout), nil
}

// NormalizeTime returns input in TimeLayout. "9:00" becomes "09:00".
func NormalizeTime(input string) (string, error) {
	t, err := time.Parse(TimeLayout, strings.TrimSpace(input))
	if err != nil {
		return "", apperr.Usagef("bad time %q, want HH:MM", input)
	}
	return t.Format(TimeLayout), nil
}

// Hours describes the working day offered in the slot picker.
type Hours struct {
	First string `yaml:"first" envconfig:"SCHEDULE_FIRST"`
	Last  string `yaml:"last" envconfig:"SCHEDULE_LAST"`
	Step  int    `yaml:"step_minutes" envconfig:"SCHEDULE_STEP_MINUTES"`
}

// DefaultHours is 09:00 to 19:00 every hour.
var DefaultHours = Hours{First: "09:00", Last: "19:00", Step: 60}

// Normalize fills defaults and validates the range.
func (h *Hours) Normalize() error {
	if h.First == "" {
		h.First = DefaultHours.First
	}
	if h.Last == "" {
		h.Last = DefaultHours.Last
	}
	if h.Step == 0 {
		h.Step = DefaultHours.Step
	}
	first, err := NormalizeTime(h.First)
	if err != nil {
		return fmt.Errorf("schedule.first: %w", err)
	}
	last, err := NormalizeTime(h.Last)
	if err != nil {
		return fmt.Errorf("schedule.last: %w", err)
	}
	if last < first {
		return fmt.Errorf("schedule.last %s is before schedule.first %s", last, first)
	}
	if h.Step < 5 || h.Step > 240 {
		return fmt.Errorf("schedule.step_minutes must be between 5 and 240")
	}
	h.First, h.Last = first, last
	return nil
}

// Times lists every slot start from First through Last.
func (h Hours) Times() []string {
	first, err1 := time.Parse(TimeLayout, h.First)
	last, err2 := time.Parse(TimeLayout, h.Last)
	if err1 != nil || err2 != nil || h.Step <= 0 {
		return nil
	}
	var out []string
	for t := first; !t.After(last); t = t.Add(time.Duration(h.Step) * time.Minute) {
		out = append(out, t.Format(TimeLayout))
	}
	return out
}
