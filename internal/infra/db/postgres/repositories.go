package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/daterange"
)

const intervalColumns = `kind, id, property_id, company_id, status, block_type, start_date, end_date,
	label, description, total, version, created_at, updated_at`

type IntervalRepository struct {
	q querier
}

func (r IntervalRepository) Window(ctx context.Context, wq domainavailability.WindowQuery) ([]domainavailability.Interval, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if wq.CompanyID != "" {
		where = append(where, "company_id IN ("+arg(wq.CompanyID)+", '')")
	}
	if wq.PropertyID != "" {
		where = append(where, "property_id = "+arg(string(wq.PropertyID)))
	}
	if !wq.Range.IsZero() {
		where = append(where, "start_date < "+arg(daterange.Format(wq.Range.End))+"::date")
		where = append(where, "end_date > "+arg(daterange.Format(wq.Range.Start))+"::date")
	}
	if !wq.IncludeCancelled {
		where = append(where, "status <> "+arg(string(domainavailability.StatusCancelled)))
	}
	query := "SELECT " + intervalColumns + " FROM intervals"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_date, kind, id"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domainavailability.Interval, 0)
	for rows.Next() {
		iv, err := scanInterval(rows)
		if err != nil {
			return nil, err
		}
		if wq.Matches(iv) {
			out = append(out, iv)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	domainavailability.SortIntervals(out)
	return out, nil
}

func (r IntervalRepository) ByRef(ctx context.Context, ref domainavailability.Ref) (*domainavailability.Interval, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+intervalColumns+" FROM intervals WHERE kind = $1 AND id = $2",
		string(ref.Kind), string(ref.ID))
	iv, err := scanInterval(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainavailability.ErrIntervalNotFound
		}
		return nil, err
	}
	return &iv, nil
}

// Save inserts new intervals and updates existing ones only at the version
// they were read at.
func (r IntervalRepository) Save(ctx context.Context, iv *domainavailability.Interval) error {
	next := iv.Version + 1
	args := []any{
		string(iv.Kind), string(iv.ID), string(iv.PropertyID), iv.CompanyID, string(iv.Status), iv.BlockType,
		daterange.Format(iv.Range.Start), daterange.Format(iv.Range.End),
		iv.Label, iv.Description, iv.Total, next, iv.CreatedAt.UTC(), iv.UpdatedAt.UTC(),
	}
	if iv.Version == 0 {
		_, err := r.q.ExecContext(ctx, `INSERT INTO intervals (`+intervalColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7::date, $8::date, $9, $10, $11, $12, $13, $14)`, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return domainavailability.ErrConcurrentUpdate
			}
			return asConcurrentUpdate(err)
		}
		iv.Version = next
		return nil
	}
	res, err := r.q.ExecContext(ctx, `UPDATE intervals SET
			property_id = $3, company_id = $4, status = $5, block_type = $6,
			start_date = $7::date, end_date = $8::date, label = $9, description = $10,
			total = $11, version = $12, created_at = $13, updated_at = $14
		WHERE kind = $1 AND id = $2 AND version = $15`, append(args, iv.Version)...)
	if err != nil {
		return asConcurrentUpdate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domainavailability.ErrConcurrentUpdate
	}
	iv.Version = next
	return nil
}

func (r IntervalRepository) Delete(ctx context.Context, ref domainavailability.Ref) error {
	res, err := r.q.ExecContext(ctx, "DELETE FROM intervals WHERE kind = $1 AND id = $2", string(ref.Kind), string(ref.ID))
	if err != nil {
		return asConcurrentUpdate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domainavailability.ErrIntervalNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInterval(s scanner) (domainavailability.Interval, error) {
	var (
		iv                           domainavailability.Interval
		kind, propertyID, id, status string
		start, end                   time.Time
	)
	err := s.Scan(&kind, &id, &propertyID, &iv.CompanyID, &status, &iv.BlockType, &start, &end,
		&iv.Label, &iv.Description, &iv.Total, &iv.Version, &iv.CreatedAt, &iv.UpdatedAt)
	if err != nil {
		return domainavailability.Interval{}, err
	}
	iv.Kind = domainavailability.Kind(kind)
	iv.ID = domainavailability.IntervalID(id)
	iv.PropertyID = domainavailability.PropertyID(propertyID)
	iv.Status = domainavailability.Status(status)
	iv.Range = daterange.DateRange{Start: daterange.Day(start), End: daterange.Day(end)}
	return iv, nil
}

type PropertyRepository struct {
	q querier
}

func (r PropertyRepository) ByID(ctx context.Context, id domainavailability.PropertyID) (*domainavailability.Property, error) {
	var p domainavailability.Property
	var pid string
	err := r.q.QueryRowContext(ctx, "SELECT id, company_id, name, city FROM properties WHERE id = $1", string(id)).
		Scan(&pid, &p.CompanyID, &p.Name, &p.City)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainavailability.ErrPropertyNotFound
		}
		return nil, err
	}
	p.ID = domainavailability.PropertyID(pid)
	return &p, nil
}

// List narrows by company in SQL; the remaining filters run in memory so the
// rules match the other stores.
func (r PropertyRepository) List(ctx context.Context, filter domainavailability.PropertyFilter) ([]domainavailability.Property, error) {
	f := filter.Normalized()
	query := "SELECT id, company_id, name, city FROM properties"
	var args []any
	if f.CompanyID != "" {
		query += " WHERE company_id = $1"
		args = append(args, f.CompanyID)
	}
	query += " ORDER BY name, id"
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domainavailability.Property
	for rows.Next() {
		var p domainavailability.Property
		var pid string
		if err := rows.Scan(&pid, &p.CompanyID, &p.Name, &p.City); err != nil {
			return nil, err
		}
		p.ID = domainavailability.PropertyID(pid)
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := domainavailability.FilterProperties(items, filter)
	domainavailability.SortProperties(out)
	return out, nil
}

func (r PropertyRepository) Save(ctx context.Context, p *domainavailability.Property) error {
	if p == nil || p.ID == "" {
		return &domainavailability.ValidationError{Field: "property_id", Reason: "required"}
	}
	_, err := r.q.ExecContext(ctx, `INSERT INTO properties (id, company_id, name, city) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET company_id = EXCLUDED.company_id, name = EXCLUDED.name, city = EXCLUDED.city`,
		string(p.ID), p.CompanyID, p.Name, p.City)
	return err
}

var _ domainavailability.Repository = IntervalRepository{}
var _ domainavailability.PropertyRepository = PropertyRepository{}
