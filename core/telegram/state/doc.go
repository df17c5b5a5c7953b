// Package state keeps per-user dialogue state in memory and dispatches free
// text to the handler registered for the user's current state.
package state
