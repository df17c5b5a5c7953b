// Package action defines every inline-button action the bot understands.
//
// An Action travels as a telebot unique key plus payload. Decode is the only
// place where payloads are parsed; handlers receive the typed value.
package action

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the button's unique key.
type Kind string

const (
	CheckSubscription Kind = "chk_sub"
	RequestAccess     Kind = "req_access"
	Approve           Kind = "approve"
	Deny              Kind = "deny"
	Revoke            Kind = "revoke"

	CalendarMonth Kind = "cal_nav"
	CalendarDay   Kind = "cal_day"
	ToggleTime    Kind = "slot_tgl"
	ConfirmSlots  Kind = "slot_ok"
	CancelSlot    Kind = "slot_del"
	Abort         Kind = "abort"
	Noop          Kind = "noop"

	Category   Kind = "ex_cat"
	Refresh    Kind = "ex_more"
	Video      Kind = "ex_vid"
	Categories Kind = "ex_back"

	TaskStart Kind = "task_go"
	TaskStop  Kind = "task_stop"

	Panel Kind = "panel"
)

// Kinds lists every known kind.
var Kinds = []Kind{
	CheckSubscription, RequestAccess, Approve, Deny, Revoke,
	CalendarMonth, CalendarDay, ToggleTime, ConfirmSlots, CancelSlot, Abort, Noop,
	Category, Refresh, Video, Categories,
	TaskStart, TaskStop,
	Panel,
}

// ErrUnknown is returned for keys outside Kinds.
var ErrUnknown = errors.New("action: unknown kind")

// Action is a decoded button press. Only the fields used by Kind are set.
type Action struct {
	Kind     Kind
	UserID   int64
	Date     string
	Time     string
	Category string
	Index    int
	TaskID   int64
	// Section names an admin panel screen.
	Section string
}

const sep = "|"

// Data returns the unique key and payload for a telebot button.
func (a Action) Data() (string, string) {
	var payload string
	switch a.Kind {
	case Approve, Deny, Revoke:
		payload = strconv.FormatInt(a.UserID, 10)
	case CalendarMonth, CalendarDay:
		payload = a.Date
	case ToggleTime:
		payload = a.Time
	case CancelSlot:
		payload = a.Date + sep + a.Time
	case Category, Refresh:
		payload = a.Category
	case Video:
		payload = a.Category + sep + strconv.Itoa(a.Index)
	case TaskStart, TaskStop:
		payload = strconv.FormatInt(a.TaskID, 10)
	case Panel:
		payload = a.Section
	case CheckSubscription, RequestAccess, ConfirmSlots, Abort, Noop, Categories:
	}
	return string(a.Kind), payload
}

// Decode parses a unique key and payload back into an Action.
func Decode(unique, payload string) (Action, error) {
	a := Action{Kind: Kind(strings.TrimSpace(unique))}
	var err error
	switch a.Kind {
	case CheckSubscription, RequestAccess, ConfirmSlots, Abort, Noop, Categories:
	case Approve, Deny, Revoke:
		a.UserID, err = parseID(payload)
	case CalendarMonth, CalendarDay:
		a.Date, err = nonEmpty(payload)
	case ToggleTime:
		a.Time, err = nonEmpty(payload)
	case CancelSlot:
		a.Date, a.Time, err = pair(payload)
	case Category, Refresh:
		a.Category, err = nonEmpty(payload)
	case Video:
		var idx string
		if a.Category, idx, err = pair(payload); err == nil {
			a.Index, err = strconv.Atoi(idx)
			if err == nil && a.Index < 0 {
				err = errors.New("negative index")
			}
		}
	case TaskStart, TaskStop:
		a.TaskID, err = parseID(payload)
	case Panel:
		a.Section, err = nonEmpty(payload)
	default:
		return Action{}, fmt.Errorf("%w: %q", ErrUnknown, unique)
	}
	if err != nil {
		return Action{}, fmt.Errorf("action %s: bad payload %q: %w", a.Kind, payload, err)
	}
	return a, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, errors.New("id must be positive")
	}
	return id, nil
}

func nonEmpty(s string) (string, error) {
	if s = strings.TrimSpace(s); s == "" {
		return "", errors.New("empty payload")
	}
	return s, nil
}

func pair(s string) (string, string, error) {
	a, b, ok := strings.Cut(s, sep)
	if !ok || a == "" || b == "" {
		return "", "", errors.New("want two fields")
	}
	return a, b, nil
}
