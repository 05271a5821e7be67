package task

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition is returned when a status change is not permitted by
// the task lifecycle.
var ErrIllegalTransition = errors.New("illegal task status transition")

// CanTransition reports whether a task in status from may move to status to.
//
//	submitted      -> working | input-required | completed | canceled | failed
//	working        -> input-required | completed | canceled | failed
//	input-required -> working | completed | canceled | failed
//
// Terminal states accept nothing. Staying in the same state is always
// allowed and is a no-op. StatusUnknown is never a valid source or target.
func CanTransition(from, to Status) bool {
	if from == StatusUnknown || to == StatusUnknown {
		return false
	}
	if from == to {
		return true
	}
	if from.IsTerminal() {
		return false
	}
	switch to {
	case StatusSubmitted:
		return false
	case StatusWorking:
		return from == StatusSubmitted || from == StatusInputRequired
	case StatusInputRequired:
		return from == StatusSubmitted || from == StatusWorking
	default:
		return to.IsTerminal()
	}
}

// Transition validates and returns the next status.
func Transition(from, to Status) (Status, error) {
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return to, nil
}
