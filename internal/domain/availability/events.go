package availability

import (
	"time"

	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/daterange"
)

// Interval events are keyed by property so consumers see one property's
// changes in order.

type IntervalCreated struct {
	Interval Interval
	At       time.Time
}

func (e IntervalCreated) EventName() string     { return "interval.created" }
func (e IntervalCreated) AggregateID() string   { return string(e.Interval.PropertyID) }
func (e IntervalCreated) OccurredAt() time.Time { return e.At }

type IntervalRescheduled struct {
	Interval Interval
	Previous daterange.DateRange
	At       time.Time
}

func (e IntervalRescheduled) EventName() string     { return "interval.rescheduled" }
func (e IntervalRescheduled) AggregateID() string   { return string(e.Interval.PropertyID) }
func (e IntervalRescheduled) OccurredAt() time.Time { return e.At }

type IntervalStatusChanged struct {
	Interval Interval
	Previous Status
	At       time.Time
}

func (e IntervalStatusChanged) EventName() string     { return "interval.status_changed" }
func (e IntervalStatusChanged) AggregateID() string   { return string(e.Interval.PropertyID) }
func (e IntervalStatusChanged) OccurredAt() time.Time { return e.At }

type IntervalUpdated struct {
	Interval Interval
	At       time.Time
}

func (e IntervalUpdated) EventName() string     { return "interval.updated" }
func (e IntervalUpdated) AggregateID() string   { return string(e.Interval.PropertyID) }
func (e IntervalUpdated) OccurredAt() time.Time { return e.At }

type IntervalDeleted struct {
	Interval Interval
	At       time.Time
}

func (e IntervalDeleted) EventName() string     { return "interval.deleted" }
func (e IntervalDeleted) AggregateID() string   { return string(e.Interval.PropertyID) }
func (e IntervalDeleted) OccurredAt() time.Time { return e.At }

type OverlapRejected struct {
	PropertyID  PropertyID
	CompanyID   string
	Candidate   daterange.DateRange
	Conflicting Ref
	At          time.Time
}

func (e OverlapRejected) EventName() string     { return "interval.overlap_rejected" }
func (e OverlapRejected) AggregateID() string   { return string(e.PropertyID) }
func (e OverlapRejected) OccurredAt() time.Time { return e.At }

func OverlapRejectedEvent(candidate Interval, conflict *ConflictError, at time.Time) OverlapRejected {
	return OverlapRejected{
		PropertyID:  candidate.PropertyID,
		CompanyID:   candidate.CompanyID,
		Candidate:   candidate.Range,
		Conflicting: conflict.Conflicting(),
		At:          at.UTC(),
	}
}
