package dto

import (
	"fmt"
	"time"

	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/daterange"
)

// Interval is a reservation or block as exposed over the API. Dates are
// YYYY-MM-DD and End is exclusive.
type Interval struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	PropertyID  string    `json:"property_id"`
	CompanyID   string    `json:"company_id,omitempty"`
	Status      string    `json:"status,omitempty"`
	BlockType   string    `json:"block_type,omitempty"`
	Start       string    `json:"start"`
	End         string    `json:"end"`
	Nights      int       `json:"nights"`
	Label       string    `json:"label,omitempty"`
	Description string    `json:"description,omitempty"`
	Total       int64     `json:"total,omitempty"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

type Property struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	City      string `json:"city,omitempty"`
	CompanyID string `json:"company_id,omitempty"`
}

type Window struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Days      int    `json:"days"`
	Signature string `json:"signature"`
}

// Availability is the answer to the Disponibilidad query: every property row
// plus the active intervals touching the window.
type Availability struct {
	Window     Window     `json:"window"`
	Properties []Property `json:"properties"`
	Intervals  []Interval `json:"intervals"`
	Cities     []string   `json:"cities"`
}

type IntervalResult struct {
	Interval Interval `json:"interval"`
}

type DeleteResult struct {
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// Conflict explains why a candidate was rejected.
type Conflict struct {
	PropertyID            string `json:"property_id"`
	ConflictingIntervalID string `json:"conflicting_interval_id"`
	ConflictingKind       string `json:"conflicting_kind"`
	OverlapStart          string `json:"overlap_start"`
	OverlapEnd            string `json:"overlap_end"`
}

type CheckResult struct {
	OK       bool      `json:"ok"`
	Conflict *Conflict `json:"conflict,omitempty"`
}

func MapInterval(iv domainavailability.Interval) Interval {
	return Interval{
		ID:          string(iv.ID),
		Kind:        string(iv.Kind),
		PropertyID:  string(iv.PropertyID),
		CompanyID:   iv.CompanyID,
		Status:      string(iv.Status),
		BlockType:   iv.BlockType,
		Start:       daterange.Format(iv.Range.Start),
		End:         daterange.Format(iv.Range.End),
		Nights:      iv.Nights(),
		Label:       iv.Label,
		Description: iv.Description,
		Total:       iv.Total,
		Version:     iv.Version,
		CreatedAt:   iv.CreatedAt,
		UpdatedAt:   iv.UpdatedAt,
	}
}

func MapIntervals(items []domainavailability.Interval) []Interval {
	out := make([]Interval, 0, len(items))
	for _, iv := range items {
		out = append(out, MapInterval(iv))
	}
	return out
}

func MapProperty(p domainavailability.Property) Property {
	return Property{ID: string(p.ID), Name: p.Name, City: p.City, CompanyID: p.CompanyID}
}

func MapProperties(items []domainavailability.Property) []Property {
	out := make([]Property, 0, len(items))
	for _, p := range items {
		out = append(out, MapProperty(p))
	}
	return out
}

func MapConflict(c *domainavailability.ConflictError) *Conflict {
	if c == nil {
		return nil
	}
	return &Conflict{
		PropertyID:            string(c.PropertyID),
		ConflictingIntervalID: string(c.ConflictingID),
		ConflictingKind:       string(c.ConflictingKind),
		OverlapStart:          daterange.Format(c.Overlap.Start),
		OverlapEnd:            daterange.Format(c.Overlap.End),
	}
}

// ToDomain parses the wire form back into an interval.
func (d Interval) ToDomain() (domainavailability.Interval, error) {
	kind, err := domainavailability.ParseKind(d.Kind)
	if err != nil {
		return domainavailability.Interval{}, err
	}
	start, err := daterange.ParseDate(d.Start)
	if err != nil {
		return domainavailability.Interval{}, fmt.Errorf("interval %s start: %w", d.ID, err)
	}
	end, err := daterange.ParseDate(d.End)
	if err != nil {
		return domainavailability.Interval{}, fmt.Errorf("interval %s end: %w", d.ID, err)
	}
	iv := domainavailability.Interval{
		ID:          domainavailability.IntervalID(d.ID),
		PropertyID:  domainavailability.PropertyID(d.PropertyID),
		CompanyID:   d.CompanyID,
		Kind:        kind,
		BlockType:   d.BlockType,
		Range:       daterange.DateRange{Start: start, End: end},
		Label:       d.Label,
		Description: d.Description,
		Total:       d.Total,
		Version:     d.Version,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if kind == domainavailability.KindReservation {
		status, err := domainavailability.ParseStatus(d.Status)
		if err != nil {
			return domainavailability.Interval{}, err
		}
		iv.Status = status
	}
	return iv, nil
}

func (d Property) ToDomain() domainavailability.Property {
	return domainavailability.Property{
		ID:        domainavailability.PropertyID(d.ID),
		Name:      d.Name,
		City:      d.City,
		CompanyID: d.CompanyID,
	}
}
