package availability

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/outbox"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/uow"
	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/engine"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/daterange"
)

// IntervalInput is a reservation or block as submitted by a client. End is
// exclusive, the checkout day.
type IntervalInput struct {
	Kind        string
	PropertyID  string
	Status      string
	BlockType   string
	Start       time.Time
	End         time.Time
	Label       string
	Description string
	Total       int64
}

func (in IntervalInput) Validate() error {
	if _, err := domainavailability.ParseKind(in.Kind); err != nil {
		return err
	}
	if strings.TrimSpace(in.PropertyID) == "" {
		return &domainavailability.ValidationError{Field: "property_id", Reason: "required"}
	}
	if in.Status != "" {
		if _, err := domainavailability.ParseStatus(in.Status); err != nil {
			return err
		}
	}
	if in.Start.IsZero() {
		return &domainavailability.ValidationError{Field: "start", Reason: "required"}
	}
	if in.End.IsZero() {
		return &domainavailability.ValidationError{Field: "end", Reason: "required"}
	}
	if !daterange.Day(in.End).After(daterange.Day(in.Start)) {
		return &domainavailability.ValidationError{Field: "end", Reason: "must be after start"}
	}
	if in.Total < 0 {
		return &domainavailability.ValidationError{Field: "total", Reason: "must not be negative"}
	}
	return nil
}

// build turns the input into a new interval, defaults applied.
func (in IntervalInput) build(id domainavailability.IntervalID, companyID string, now time.Time) (*domainavailability.Interval, error) {
	kind, err := domainavailability.ParseKind(in.Kind)
	if err != nil {
		return nil, err
	}
	var status domainavailability.Status
	if in.Status != "" {
		if status, err = domainavailability.ParseStatus(in.Status); err != nil {
			return nil, err
		}
	}
	return domainavailability.NewInterval(domainavailability.CreateParams{
		ID:          id,
		PropertyID:  domainavailability.PropertyID(in.PropertyID),
		CompanyID:   companyID,
		Kind:        kind,
		Status:      status,
		BlockType:   in.BlockType,
		Range:       daterange.DateRange{Start: daterange.Day(in.Start), End: daterange.Day(in.End)},
		Label:       in.Label,
		Description: in.Description,
		Total:       in.Total,
		Now:         now,
	})
}

// WriteDeps are the collaborators every write handler needs.
type WriteDeps struct {
	UoWFactory uow.UoWFactory
	Engine     engine.AvailabilityEngine
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      domainavailability.Clock
	Logger     *slog.Logger
}

func (s WriteDeps) engine() engine.AvailabilityEngine {
	if s.Engine != nil {
		return s.Engine
	}
	return engine.New(s.Clock)
}

func (s WriteDeps) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s WriteDeps) encoder() outbox.EventEncoder {
	if s.Encoder != nil {
		return s.Encoder
	}
	return outbox.JSONEventEncoder{}
}

// publish moves the aggregate's pending events into the outbox.
func (s WriteDeps) publish(ctx context.Context, iv *domainavailability.Interval) error {
	return outbox.RecordDomainEvents(ctx, s.Outbox, s.encoder(), iv.DrainEvents())
}

// checkStored validates candidate against a fresh read of its property.
// Callers hold the property lock.
func (s WriteDeps) checkStored(ctx context.Context, unit uow.UnitOfWork, candidate domainavailability.Interval, exclude domainavailability.Ref) error {
	existing, err := unit.Intervals().Window(ctx, domainavailability.WindowQuery{
		PropertyID: candidate.PropertyID,
		Range:      candidate.Range,
	})
	if err != nil {
		return err
	}
	if err := s.engine().Validate(candidate, existing, exclude); err != nil {
		s.logRejection(candidate, err)
		return err
	}
	return nil
}

func (s WriteDeps) logRejection(candidate domainavailability.Interval, err error) {
	conflict, ok := domainavailability.AsConflict(err)
	if !ok || s.Logger == nil {
		return
	}
	ev := domainavailability.OverlapRejectedEvent(candidate, conflict, s.now())
	s.Logger.Info(ev.EventName(),
		"property_id", ev.PropertyID,
		"company_id", ev.CompanyID,
		"candidate", ev.Candidate.String(),
		"conflicting", ev.Conflicting.String(),
		"overlap", conflict.Overlap.String())
}

func newIntervalID() domainavailability.IntervalID {
	return domainavailability.IntervalID(ulid.Make().String())
}

// ownedProperty loads id and hides properties of other companies.
func ownedProperty(ctx context.Context, unit uow.UnitOfWork, companyID string, id domainavailability.PropertyID) (*domainavailability.Property, error) {
	p, err := unit.Properties().ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if companyID != "" && p.CompanyID != "" && p.CompanyID != companyID {
		return nil, domainavailability.ErrPropertyNotFound
	}
	return p, nil
}

// candidateProperty is ownedProperty for a submitted interval: a property
// the company can not see makes the candidate invalid.
func candidateProperty(ctx context.Context, unit uow.UnitOfWork, companyID string, id domainavailability.PropertyID) (*domainavailability.Property, error) {
	p, err := ownedProperty(ctx, unit, companyID, id)
	if errors.Is(err, domainavailability.ErrPropertyNotFound) {
		return nil, &domainavailability.ValidationError{Field: "property_id", Reason: "unknown property"}
	}
	return p, err
}

// lockedInterval finds ref, locks its property and reads it again so the
// caller works on the state every other writer has committed.
func lockedInterval(ctx context.Context, unit uow.UnitOfWork, companyID string, ref domainavailability.Ref) (*domainavailability.Interval, error) {
	current, err := unit.Intervals().ByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if companyID != "" && current.CompanyID != "" && current.CompanyID != companyID {
		return nil, domainavailability.ErrIntervalNotFound
	}
	if err := unit.LockProperty(ctx, current.PropertyID); err != nil {
		return nil, err
	}
	fresh, err := unit.Intervals().ByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if fresh.PropertyID != current.PropertyID {
		return nil, domainavailability.ErrConcurrentUpdate
	}
	return fresh, nil
}

func parseRef(kind, id string) (domainavailability.Ref, error) {
	k, err := domainavailability.ParseKind(kind)
	if err != nil {
		return domainavailability.Ref{}, err
	}
	if strings.TrimSpace(id) == "" {
		return domainavailability.Ref{}, &domainavailability.ValidationError{Field: "id", Reason: "required"}
	}
	return domainavailability.Ref{Kind: k, ID: domainavailability.IntervalID(strings.TrimSpace(id))}, nil
}

