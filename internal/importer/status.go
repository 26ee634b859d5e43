package importer

import (
	"fmt"
	"sort"
)

// Status is the lifecycle state of an import. The allowed moves form a
// small state machine; anything outside the transition table (such as
// completed -> processing) is rejected rather than silently applied.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// transitions lists the permitted from -> to moves. failed is reachable
// from any non-terminal state because retry exhaustion can strike while
// an import is still queued; processing -> processing covers a retried
// attempt re-entering the pipeline.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusProcessing, StatusCompleted, StatusFailed},
	StatusCompleted:  {},
	StatusFailed:     {},
}

// Valid reports whether s is one of the four lifecycle states.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether s permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether the move s -> next is permitted.
func (s Status) CanTransitionTo(next Status) bool {
	for _, to := range transitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// Transition returns next when s -> next is a permitted move, or the
// unchanged status and an *InvalidTransitionError otherwise.
func (s Status) Transition(next Status) (Status, error) {
	if !s.CanTransitionTo(next) {
		return s, &InvalidTransitionError{From: s, To: next}
	}
	return next, nil
}

// TransitionSources returns, sorted, the states permitted to move to
// next. The store uses this to guard status updates in SQL.
func TransitionSources(next Status) []string {
	var froms []string
	for from, tos := range transitions {
		for _, to := range tos {
			if to == next {
				froms = append(froms, string(from))
			}
		}
	}
	sort.Strings(froms)
	return froms
}

// InvalidTransitionError reports a lifecycle move outside the
// transition table.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid import status transition %s -> %s", e.From, e.To)
}
