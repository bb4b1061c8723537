// Package lifecycle owns the order status machine. Every status change in the
// system goes through Advance, so an unreachable target is rejected here
// rather than trusted from the caller.
package lifecycle

import (
	"errors"
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// statusCompleted only ever appears in historical reporting data; orders
// cannot reach it.
const statusCompleted = "completed"

var (
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrUnknownStatus     = errors.New("unknown order status")
)

type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrIllegalTransition
}

// forward is the happy path; cancellation is reachable from any non-terminal state.
var forward = map[Status]Status{
	StatusPending:   StatusConfirmed,
	StatusConfirmed: StatusPreparing,
	StatusPreparing: StatusReady,
	StatusReady:     StatusDelivered,
}

var transitions = buildTransitions()

func buildTransitions() map[Status]map[Status]struct{} {
	set := make(map[Status]map[Status]struct{}, len(forward))
	for from, to := range forward {
		set[from] = map[Status]struct{}{
			to:              {},
			StatusCancelled: {},
		}
	}
	return set
}

var all = []Status{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusDelivered,
	StatusCancelled,
}

func All() []Status {
	out := make([]Status, len(all))
	copy(out, all)
	return out
}

func Parse(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	for _, st := range all {
		if st == s {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Next is the following status in the forward chain, false for terminal states.
func Next(s Status) (Status, bool) {
	next, ok := forward[s]
	return next, ok
}

// Allowed lists the targets reachable from s, forward step first.
func Allowed(s Status) []Status {
	next, ok := forward[s]
	if !ok {
		return nil
	}
	return []Status{next, StatusCancelled}
}

func CanTransition(from, to Status) bool {
	targets, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

// Advance returns the new status or a *TransitionError when to is not
// reachable from from in a single step.
func Advance(from, to Status) (Status, error) {
	if !from.Valid() {
		return from, fmt.Errorf("%w: %q", ErrUnknownStatus, from)
	}
	if !to.Valid() {
		return from, fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if !CanTransition(from, to) {
		return from, &TransitionError{From: from, To: to}
	}
	return to, nil
}

// CountsAsRevenue reports whether an order in this stored status is included
// in revenue totals. "completed" is accepted for rows written by older reporting code.
func CountsAsRevenue(status string) bool {
	switch strings.ToLower(status) {
	case string(StatusDelivered), string(StatusReady), statusCompleted:
		return true
	}
	return false
}
