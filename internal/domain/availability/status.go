package availability

import (
	"fmt"
	"strings"
	"time"
)

var statusTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusInProcess, StatusCancelled},
	StatusConfirmed: {StatusPending, StatusInProcess, StatusCancelled},
	StatusInProcess: {StatusCompleted, StatusCancelled},
	StatusCompleted: nil,
	StatusCancelled: nil,
}

func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether a reservation may move from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseStatus accepts the API spelling and the dashboard's Spanish labels.
func ParseStatus(raw string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending", "pendiente":
		return StatusPending, nil
	case "confirmed", "confirmada":
		return StatusConfirmed, nil
	case "in_process", "en_proceso":
		return StatusInProcess, nil
	case "completed", "completada":
		return StatusCompleted, nil
	case "cancelled", "canceled", "cancelada":
		return StatusCancelled, nil
	default:
		return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", raw)}
	}
}

func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "reservation", "reserva":
		return KindReservation, nil
	case "block", "bloqueo", "bloqueado":
		return KindBlock, nil
	default:
		return "", &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", raw)}
	}
}

// Transition moves a reservation through its lifecycle. Cancelled and
// completed reservations are final.
func (iv *Interval) Transition(next Status, now time.Time) error {
	if iv.Kind != KindReservation {
		return fmt.Errorf("%w: blocks have no status", ErrInvalidTransition)
	}
	if !next.Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", next)}
	}
	if iv.Status == next {
		return nil
	}
	if !iv.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, iv.Status, next)
	}
	previous := iv.Status
	iv.Status = next
	iv.UpdatedAt = now.UTC()
	iv.Record(IntervalStatusChanged{Interval: iv.snapshot(), Previous: previous, At: iv.UpdatedAt})
	return nil
}

func (iv *Interval) Cancel(now time.Time) error {
	return iv.Transition(StatusCancelled, now)
}
