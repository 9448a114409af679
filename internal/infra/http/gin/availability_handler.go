package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/commands"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/dto"
	availabilityapp "github.com/andresg0412/waiwahost-plataforma/internal/app/handlers/availability"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/queries"
	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/daterange"
	"github.com/andresg0412/waiwahost-plataforma/internal/infra/obs"
)

const idempotencyHeader = "Idempotency-Key"

type AvailabilityHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

// intervalRequest is the body of create and check. Dates are YYYY-MM-DD and
// end is the checkout day.
type intervalRequest struct {
	Kind        string `json:"kind"`
	PropertyID  string `json:"property_id"`
	Status      string `json:"status"`
	BlockType   string `json:"block_type"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Total       int64  `json:"total"`
}

type checkRequest struct {
	intervalRequest
	ExcludeKind string `json:"exclude_kind"`
	ExcludeID   string `json:"exclude_id"`
}

type editRequest struct {
	Start           *string `json:"start"`
	End             *string `json:"end"`
	Status          *string `json:"status"`
	BlockType       *string `json:"block_type"`
	Label           *string `json:"label"`
	Description     *string `json:"description"`
	Total           *int64  `json:"total"`
	ExpectedVersion int64   `json:"expected_version"`
}

func (h AvailabilityHandler) Window(c *gin.Context) {
	if h.Queries == nil {
		h.respondWithError(c, http.StatusServiceUnavailable, errors.New("queries bus unavailable"))
		return
	}
	params, err := windowParams(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	query := availabilityapp.GetAvailabilityQuery{WindowParams: params, Filter: propertyFilter(c)}
	result, err := queries.Ask[availabilityapp.GetAvailabilityQuery, dto.Availability](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Grid(c *gin.Context) {
	if h.Queries == nil {
		h.respondWithError(c, http.StatusServiceUnavailable, errors.New("queries bus unavailable"))
		return
	}
	params, err := windowParams(c)
	if err != nil {
		h.handleError(c, err)
		return
	}
	today, err := optionalDate("today", c.Query("today"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	query := availabilityapp.GetGridQuery{
		WindowParams: params,
		Filter:       propertyFilter(c),
		Status:       strings.TrimSpace(c.Query("status")),
		Today:        today,
	}
	result, err := queries.Ask[availabilityapp.GetGridQuery, dto.Grid](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Check answers 200 when the candidate fits and 409 with the conflict when it
// does not.
func (h AvailabilityHandler) Check(c *gin.Context) {
	if h.Queries == nil {
		h.respondWithError(c, http.StatusServiceUnavailable, errors.New("queries bus unavailable"))
		return
	}
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondWithError(c, http.StatusBadRequest, err)
		return
	}
	input, err := req.input()
	if err != nil {
		h.handleError(c, err)
		return
	}
	query := availabilityapp.CheckIntervalQuery{
		CompanyID:   companyID(c),
		Input:       input,
		ExcludeKind: strings.TrimSpace(req.ExcludeKind),
		ExcludeID:   strings.TrimSpace(req.ExcludeID),
	}
	result, err := queries.Ask[availabilityapp.CheckIntervalQuery, dto.CheckResult](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if !result.OK {
		c.JSON(http.StatusConflict, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Create(c *gin.Context) {
	if h.Commands == nil {
		h.respondWithError(c, http.StatusServiceUnavailable, errors.New("commands bus unavailable"))
		return
	}
	var req intervalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondWithError(c, http.StatusBadRequest, err)
		return
	}
	input, err := req.input()
	if err != nil {
		h.handleError(c, err)
		return
	}
	cmd := availabilityapp.CreateIntervalCommand{
		CompanyID:       companyID(c),
		Input:           input,
		IdempotencyKeyV: strings.TrimSpace(c.GetHeader(idempotencyHeader)),
	}
	result, err := commands.Dispatch[availabilityapp.CreateIntervalCommand, dto.IntervalResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h AvailabilityHandler) Edit(c *gin.Context) {
	if h.Commands == nil {
		h.respondWithError(c, http.StatusServiceUnavailable, errors.New("commands bus unavailable"))
		return
	}
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondWithError(c, http.StatusBadRequest, err)
		return
	}
	cmd := availabilityapp.EditIntervalCommand{
		CompanyID:       companyID(c),
		Kind:            strings.TrimSpace(c.Param("kind")),
		ID:              strings.TrimSpace(c.Param("id")),
		Status:          req.Status,
		ExpectedVersion: req.ExpectedVersion,
		IdempotencyKeyV: strings.TrimSpace(c.GetHeader(idempotencyHeader)),
		Details: domainavailability.Details{
			Label:       req.Label,
			Description: req.Description,
			BlockType:   req.BlockType,
			Total:       req.Total,
		},
	}
	var err error
	if cmd.Start, err = optionalDatePtr("start", req.Start); err != nil {
		h.handleError(c, err)
		return
	}
	if cmd.End, err = optionalDatePtr("end", req.End); err != nil {
		h.handleError(c, err)
		return
	}
	result, err := commands.Dispatch[availabilityapp.EditIntervalCommand, dto.IntervalResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Delete(c *gin.Context) {
	if h.Commands == nil {
		h.respondWithError(c, http.StatusServiceUnavailable, errors.New("commands bus unavailable"))
		return
	}
	cmd := availabilityapp.DeleteIntervalCommand{
		CompanyID:       companyID(c),
		Kind:            strings.TrimSpace(c.Param("kind")),
		ID:              strings.TrimSpace(c.Param("id")),
		IdempotencyKeyV: strings.TrimSpace(c.GetHeader(idempotencyHeader)),
	}
	result, err := commands.Dispatch[availabilityapp.DeleteIntervalCommand, dto.DeleteResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) handleError(c *gin.Context, err error) {
	if conflict, ok := domainavailability.AsConflict(err); ok {
		h.logFailure(c, http.StatusConflict, err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "conflict": dto.MapConflict(conflict)})
		return
	}
	switch {
	case errors.Is(err, domainavailability.ErrIntervalNotFound),
		errors.Is(err, domainavailability.ErrPropertyNotFound):
		h.respondWithError(c, http.StatusNotFound, err)
	case errors.Is(err, domainavailability.ErrConcurrentUpdate):
		h.respondWithError(c, http.StatusConflict, err)
	case errors.Is(err, domainavailability.ErrInvalidInterval),
		errors.Is(err, domainavailability.ErrInvalidTransition),
		errors.Is(err, daterange.ErrInvalidDate),
		errors.Is(err, daterange.ErrInvalidRange):
		h.respondWithError(c, http.StatusBadRequest, err)
	default:
		h.respondWithError(c, http.StatusInternalServerError, err)
	}
}

func (h AvailabilityHandler) respondWithError(c *gin.Context, status int, err error) {
	h.logFailure(c, status, err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h AvailabilityHandler) logFailure(c *gin.Context, status int, err error) {
	logger := obs.LoggerFrom(c.Request.Context(), h.Logger)
	if logger == nil {
		return
	}
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.Log(c.Request.Context(), level, "availability request failed",
		"status", status,
		"error", err,
		"route", c.FullPath())
}

func (r intervalRequest) input() (availabilityapp.IntervalInput, error) {
	start, err := optionalDate("start", r.Start)
	if err != nil {
		return availabilityapp.IntervalInput{}, err
	}
	end, err := optionalDate("end", r.End)
	if err != nil {
		return availabilityapp.IntervalInput{}, err
	}
	return availabilityapp.IntervalInput{
		Kind:        strings.TrimSpace(r.Kind),
		PropertyID:  strings.TrimSpace(r.PropertyID),
		Status:      strings.TrimSpace(r.Status),
		BlockType:   r.BlockType,
		Start:       start,
		End:         end,
		Label:       r.Label,
		Description: r.Description,
		Total:       r.Total,
	}, nil
}

func windowParams(c *gin.Context) (availabilityapp.WindowParams, error) {
	var (
		params availabilityapp.WindowParams
		err    error
	)
	if params.Start, err = optionalDate("start", c.Query("start")); err != nil {
		return params, err
	}
	if params.End, err = optionalDate("end", c.Query("end")); err != nil {
		return params, err
	}
	if raw := strings.TrimSpace(c.Query("days")); raw != "" {
		days, convErr := strconv.Atoi(raw)
		if convErr != nil || days <= 0 {
			return params, &domainavailability.ValidationError{Field: "days", Reason: "must be a positive integer"}
		}
		params.Days = days
	}
	return params, nil
}

func propertyFilter(c *gin.Context) domainavailability.PropertyFilter {
	return domainavailability.PropertyFilter{
		CompanyID:  companyID(c),
		PropertyID: domainavailability.PropertyID(strings.TrimSpace(c.Query("propertyId"))),
		City:       c.Query("city"),
		Search:     c.Query("search"),
	}.Normalized()
}

func companyID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(obs.CompanyHeader))
}

// optionalDate parses a YYYY-MM-DD value; empty yields the zero time.
func optionalDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := daterange.ParseDate(raw)
	if err != nil {
		return time.Time{}, &domainavailability.ValidationError{Field: field, Reason: err.Error()}
	}
	return t, nil
}

func optionalDatePtr(field string, raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	t, err := optionalDate(field, *raw)
	if err != nil {
		return nil, err
	}
	if t.IsZero() {
		return nil, &domainavailability.ValidationError{Field: field, Reason: "required"}
	}
	return &t, nil
}

var _ AvailabilityHTTP = AvailabilityHandler{}
