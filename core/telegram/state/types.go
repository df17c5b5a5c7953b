package state

import tele "gopkg.in/telebot.v4"

// State names one step of a dialogue.
type State string

// StateIdle means no dialogue is active.
const StateIdle State = "idle"

// Session is the dialogue state of one user plus scratch values.
type Session struct {
	State State
	Data  map[string]any
}

// Manager tracks sessions and owns the handler of each state.
type Manager interface {
	Handle(st State, h tele.HandlerFunc)

	SetState(userID int64, st State)
	GetState(userID int64) State
	InProgress(userID int64) bool

	SetTemp(userID int64, key string, value any)
	GetTemp(userID int64, key string) (any, bool)
	// UpdateTemp replaces an existing scratch value with fn(old) while holding
	// the session lock. It reports false and skips fn when the value is missing.
	// fn must not modify old in place; readers may still hold it.
	UpdateTemp(userID int64, key string, fn func(old any) any) bool
	// Clear ends the dialogue and drops its scratch values.
	Clear(userID int64)

	ManagerHandler(c tele.Context) error
}

// Temp reads a scratch value of type T.
func Temp[T any](m Manager, userID int64, key string) (T, bool) {
	var zero T
	v, ok := m.GetTemp(userID, key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
