package availability

import (
	"fmt"
	"strings"
	"time"

	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/daterange"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/events"
)

type IntervalID string

type PropertyID string

type Kind string

const (
	KindReservation Kind = "reservation"
	KindBlock       Kind = "block"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusInProcess Status = "in_process"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// DefaultBlockType is used when a block is created without a category.
const DefaultBlockType = "mantenimiento"

// Ref identifies an interval. Ids are only unique within a kind.
type Ref struct {
	Kind Kind
	ID   IntervalID
}

func (r Ref) IsZero() bool { return r.ID == "" }

func (r Ref) String() string { return string(r.Kind) + "/" + string(r.ID) }

// Interval is a reservation or a block occupying [Range.Start, Range.End)
// of one property.
type Interval struct {
	ID          IntervalID
	PropertyID  PropertyID
	CompanyID   string
	Kind        Kind
	Status      Status
	BlockType   string
	Range       daterange.DateRange
	Label       string
	Description string
	Total       int64
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	events.EventRecorder
}

type CreateParams struct {
	ID          IntervalID
	PropertyID  PropertyID
	CompanyID   string
	Kind        Kind
	Status      Status
	BlockType   string
	Range       daterange.DateRange
	Label       string
	Description string
	Total       int64
	Now         time.Time
}

// NewInterval validates the params and records an IntervalCreated event.
func NewInterval(params CreateParams) (*Interval, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, &ValidationError{Field: "id", Reason: "required"}
	}
	now := params.Now.UTC()
	iv := &Interval{
		ID:          params.ID,
		PropertyID:  PropertyID(strings.TrimSpace(string(params.PropertyID))),
		CompanyID:   strings.TrimSpace(params.CompanyID),
		Kind:        params.Kind,
		Status:      params.Status,
		BlockType:   strings.TrimSpace(params.BlockType),
		Range:       params.Range,
		Label:       strings.TrimSpace(params.Label),
		Description: strings.TrimSpace(params.Description),
		Total:       params.Total,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	switch iv.Kind {
	case KindReservation:
		if iv.Status == "" {
			iv.Status = StatusPending
		}
		iv.BlockType = ""
	case KindBlock:
		iv.Status = ""
		if iv.BlockType == "" {
			iv.BlockType = DefaultBlockType
		}
	}
	if err := iv.Validate(); err != nil {
		return nil, err
	}
	iv.Record(IntervalCreated{Interval: iv.snapshot(), At: now})
	return iv, nil
}

func (iv Interval) Ref() Ref { return Ref{Kind: iv.Kind, ID: iv.ID} }

// Active reports whether the interval occupies its property. Only cancelled
// reservations are inactive; blocks are always active.
func (iv Interval) Active() bool {
	if iv.Kind == KindBlock {
		return true
	}
	return iv.Status != StatusCancelled
}

func (iv Interval) Nights() int { return iv.Range.Nights() }

// Validate checks the candidate shape before any overlap evaluation.
func (iv Interval) Validate() error {
	if strings.TrimSpace(string(iv.PropertyID)) == "" {
		return &ValidationError{Field: "property_id", Reason: "required"}
	}
	switch iv.Kind {
	case KindReservation:
		if !iv.Status.Valid() {
			return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", iv.Status)}
		}
	case KindBlock:
	default:
		return &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", iv.Kind)}
	}
	if iv.Range.Start.IsZero() {
		return &ValidationError{Field: "start", Reason: "required"}
	}
	if iv.Range.End.IsZero() {
		return &ValidationError{Field: "end", Reason: "required"}
	}
	if !iv.Range.End.After(iv.Range.Start) {
		return &ValidationError{Field: "end", Reason: "must be after start"}
	}
	return nil
}

// Reschedule moves the interval to a new range. Overlap checks are the
// caller's responsibility.
func (iv *Interval) Reschedule(r daterange.DateRange, now time.Time) error {
	if err := r.Validate(); err != nil {
		return &ValidationError{Field: "end", Reason: "must be after start"}
	}
	if r == iv.Range {
		return nil
	}
	previous := iv.Range
	iv.Range = r
	iv.UpdatedAt = now.UTC()
	iv.Record(IntervalRescheduled{Interval: iv.snapshot(), Previous: previous, At: iv.UpdatedAt})
	return nil
}

// Details are the descriptive fields an edit may change without touching
// occupancy. Nil fields are left as they are.
type Details struct {
	Label       *string
	Description *string
	BlockType   *string
	Total       *int64
}

func (d Details) IsZero() bool {
	return d.Label == nil && d.Description == nil && d.BlockType == nil && d.Total == nil
}

// Amend applies d and records IntervalUpdated when anything changed.
func (iv *Interval) Amend(d Details, now time.Time) error {
	changed := false
	if d.Label != nil && strings.TrimSpace(*d.Label) != iv.Label {
		iv.Label = strings.TrimSpace(*d.Label)
		changed = true
	}
	if d.Description != nil && strings.TrimSpace(*d.Description) != iv.Description {
		iv.Description = strings.TrimSpace(*d.Description)
		changed = true
	}
	if d.BlockType != nil {
		if iv.Kind != KindBlock {
			return &ValidationError{Field: "block_type", Reason: "only blocks have a type"}
		}
		bt := strings.TrimSpace(*d.BlockType)
		if bt == "" {
			bt = DefaultBlockType
		}
		if bt != iv.BlockType {
			iv.BlockType = bt
			changed = true
		}
	}
	if d.Total != nil {
		if *d.Total < 0 {
			return &ValidationError{Field: "total", Reason: "must not be negative"}
		}
		if *d.Total != iv.Total {
			iv.Total = *d.Total
			changed = true
		}
	}
	if !changed {
		return nil
	}
	iv.UpdatedAt = now.UTC()
	iv.Record(IntervalUpdated{Interval: iv.snapshot(), At: iv.UpdatedAt})
	return nil
}

// MarkDeleted records the deletion; the repository removes the interval.
func (iv *Interval) MarkDeleted(now time.Time) {
	iv.UpdatedAt = now.UTC()
	iv.Record(IntervalDeleted{Interval: iv.snapshot(), At: iv.UpdatedAt})
}

// Snapshot returns a copy without pending events.
func (iv Interval) Snapshot() Interval { return iv.snapshot() }

func (iv Interval) snapshot() Interval {
	out := iv
	out.EventRecorder = events.EventRecorder{}
	return out
}
