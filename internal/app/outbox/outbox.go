package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/dto"
	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/daterange"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/events"
)

// EventRecord is a domain event serialized for relay.
type EventRecord struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Payload    []byte            `json:"payload"`
	OccurredAt time.Time         `json:"occurred_at"`
	Aggregate  string            `json:"aggregate"`
	Headers    map[string]string `json:"headers"`
}

// Outbox receives records inside the writer's unit of work. Flush runs after
// commit.
type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

const (
	HeaderCompanyID  = "company_id"
	HeaderPropertyID = "property_id"
)

// IntervalEventData is the payload of every interval.* event.
type IntervalEventData struct {
	Interval       dto.Interval `json:"interval"`
	PreviousStart  string       `json:"previous_start,omitempty"`
	PreviousEnd    string       `json:"previous_end,omitempty"`
	PreviousStatus string       `json:"previous_status,omitempty"`
}

type JSONEventEncoder struct {
	IDGenerator func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	data, companyID := eventData(ev)
	payload, err := json.Marshal(data)
	if err != nil {
		return EventRecord{}, fmt.Errorf("outbox: encode %s: %w", ev.EventName(), err)
	}
	idGen := e.IDGenerator
	if idGen == nil {
		idGen = uuid.NewString
	}
	headers := map[string]string{HeaderPropertyID: ev.AggregateID()}
	if companyID != "" {
		headers[HeaderCompanyID] = companyID
	}
	return EventRecord{
		ID:         idGen(),
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt(),
		Aggregate:  ev.AggregateID(),
		Headers:    headers,
	}, nil
}

func eventData(ev events.DomainEvent) (any, string) {
	switch e := ev.(type) {
	case domainavailability.IntervalCreated:
		return IntervalEventData{Interval: dto.MapInterval(e.Interval)}, e.Interval.CompanyID
	case domainavailability.IntervalRescheduled:
		return IntervalEventData{
			Interval:      dto.MapInterval(e.Interval),
			PreviousStart: daterange.Format(e.Previous.Start),
			PreviousEnd:   daterange.Format(e.Previous.End),
		}, e.Interval.CompanyID
	case domainavailability.IntervalStatusChanged:
		return IntervalEventData{
			Interval:       dto.MapInterval(e.Interval),
			PreviousStatus: string(e.Previous),
		}, e.Interval.CompanyID
	case domainavailability.IntervalUpdated:
		return IntervalEventData{Interval: dto.MapInterval(e.Interval)}, e.Interval.CompanyID
	case domainavailability.IntervalDeleted:
		return IntervalEventData{Interval: dto.MapInterval(e.Interval)}, e.Interval.CompanyID
	default:
		return ev, ""
	}
}

// RecordDomainEvents encodes evs into box. A nil box drops them.
func RecordDomainEvents(ctx context.Context, box Outbox, encoder EventEncoder, evs []events.DomainEvent) error {
	if box == nil || len(evs) == 0 {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, ev := range evs {
		rec, err := encoder.Encode(ev)
		if err != nil {
			return err
		}
		if err := box.Add(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
