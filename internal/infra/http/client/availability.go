package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/andresg0412/waiwahost-plataforma/internal/app/dto"
	"github.com/andresg0412/waiwahost-plataforma/internal/app/navigator"
	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/daterange"
)

const (
	availabilityPath = "/api/v1/availability"
	companyHeader    = "X-Company-ID"
	defaultTimeout   = 5 * time.Second
)

var ErrNotConfigured = errors.New("availability client: base url not configured")

// AvailabilityClient loads windows from the availability API. It satisfies
// navigator.Fetcher.
type AvailabilityClient struct {
	BaseURL   string
	CompanyID string
	Client    *http.Client
	Timeout   time.Duration
	Logger    *slog.Logger
}

func (c *AvailabilityClient) Fetch(ctx context.Context, q navigator.Query) (navigator.Result, error) {
	if c == nil || strings.TrimSpace(c.BaseURL) == "" {
		return navigator.Result{}, ErrNotConfigured
	}
	httpClient := c.Client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := strings.TrimRight(c.BaseURL, "/") + availabilityPath + "?" + windowValues(q).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return navigator.Result{}, err
	}
	req.Header.Set("Accept", "application/json")
	companyID := c.CompanyID
	if companyID == "" {
		companyID = q.Filter.CompanyID
	}
	if companyID != "" {
		req.Header.Set(companyHeader, companyID)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			err = fmt.Errorf("availability client: timeout (%s): %w", c.BaseURL, err)
		} else {
			err = fmt.Errorf("availability client: service unavailable (%s): %w", c.BaseURL, err)
		}
		c.logError("availability request failed", err)
		return navigator.Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("availability client: service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		c.logError("availability returned error", err)
		return navigator.Result{}, err
	}

	var payload dto.Availability
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logError("availability decode failed", err)
		return navigator.Result{}, fmt.Errorf("availability client: decode: %w", err)
	}
	return toResult(payload)
}

func windowValues(q navigator.Query) url.Values {
	values := url.Values{}
	values.Set("start", daterange.Format(q.Window.Start))
	values.Set("days", strconv.Itoa(q.Window.Days))
	if q.Filter.PropertyID != "" {
		values.Set("propertyId", string(q.Filter.PropertyID))
	}
	if q.Filter.City != "" {
		values.Set("city", q.Filter.City)
	}
	if q.Filter.Search != "" {
		values.Set("search", q.Filter.Search)
	}
	return values
}

func toResult(payload dto.Availability) (navigator.Result, error) {
	out := navigator.Result{
		Properties: make([]domainavailability.Property, 0, len(payload.Properties)),
		Intervals:  make([]domainavailability.Interval, 0, len(payload.Intervals)),
	}
	for _, p := range payload.Properties {
		out.Properties = append(out.Properties, p.ToDomain())
	}
	for _, item := range payload.Intervals {
		iv, err := item.ToDomain()
		if err != nil {
			return navigator.Result{}, fmt.Errorf("availability client: %w", err)
		}
		out.Intervals = append(out.Intervals, iv)
	}
	return out, nil
}

func (c *AvailabilityClient) logError(msg string, err error) {
	if c.Logger != nil {
		c.Logger.Error(msg, "error", err, "base_url", c.BaseURL)
	}
}

var _ navigator.Fetcher = (*AvailabilityClient)(nil)
