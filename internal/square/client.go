// Package square is a thin client for the Square Bookings, Team and Catalog
// APIs plus an adapter exposing it as a booking.Provider.
package square

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/dannytrann/pearly-nail-salon-next/pkg/logging"
)

const (
	ProductionBaseURL = "https://connect.squareup.com"
	SandboxBaseURL    = "https://connect.squareupsandbox.com"
	DefaultAPIVersion = "2025-01-23"

	defaultTimeout  = 15 * time.Second
	teamMemberLimit = 100
)

var tracer = otel.Tracer("pearly.internal.square")

// Client calls Square's REST API with bearer auth and a client-side rate limit.
type Client struct {
	baseURL     string
	accessToken string
	version     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *logging.Logger
}

// NewClient constructs a client against the sandbox or production host.
func NewClient(accessToken string, sandbox bool, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	base := ProductionBaseURL
	if sandbox {
		base = SandboxBaseURL
	}
	return &Client{
		baseURL:     base,
		accessToken: strings.TrimSpace(accessToken),
		version:     DefaultAPIVersion,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		limiter:     rate.NewLimiter(rate.Limit(10), 20),
		logger:      logger,
	}
}

// WithBaseURL overrides the API host (tests, proxies).
func (c *Client) WithBaseURL(baseURL string) *Client {
	if strings.TrimSpace(baseURL) != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// WithVersion pins the Square-Version header.
func (c *Client) WithVersion(version string) *Client {
	if strings.TrimSpace(version) != "" {
		c.version = version
	}
	return c
}

// WithRateLimit replaces the outbound limiter. rps <= 0 disables limiting.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.limiter = nil
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// WithHTTPClient swaps the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// AvailabilitySearch is the input to SearchAvailability.
type AvailabilitySearch struct {
	LocationID string
	StartAt    time.Time
	EndAt      time.Time
	Segments   []SegmentFilter
}

// SearchAvailability returns bookable start times in [StartAt, EndAt].
func (c *Client) SearchAvailability(ctx context.Context, in AvailabilitySearch) ([]Availability, error) {
	ctx, span := tracer.Start(ctx, "square.search_availability", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("square.location_id", in.LocationID),
		attribute.Int("square.segments", len(in.Segments)),
	)

	req := searchAvailabilityRequest{Query: availabilityQuery{Filter: availabilityFilter{
		LocationID: in.LocationID,
		StartAtRange: startAtRange{
			StartAt: in.StartAt.UTC().Format(time.RFC3339),
			EndAt:   in.EndAt.UTC().Format(time.RFC3339),
		},
		SegmentFilters: in.Segments,
	}}}

	var resp searchAvailabilityResponse
	if err := c.do(ctx, "search availability", http.MethodPost, "/v2/bookings/availability/search", req, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search availability failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("square.availabilities", len(resp.Availabilities)))
	return resp.Availabilities, nil
}

// SearchTeamMembers lists active team members at a location, following cursors.
func (c *Client) SearchTeamMembers(ctx context.Context, locationID string) ([]TeamMember, error) {
	ctx, span := tracer.Start(ctx, "square.search_team_members", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	req := searchTeamMembersRequest{
		Query: teamMemberQuery{Filter: teamMemberFilter{Status: "ACTIVE"}},
		Limit: teamMemberLimit,
	}
	if locationID != "" {
		req.Query.Filter.LocationIDs = []string{locationID}
	}

	var out []TeamMember
	for {
		var resp searchTeamMembersResponse
		if err := c.do(ctx, "search team members", http.MethodPost, "/v2/team-members/search", req, &resp); err != nil {
			span.RecordError(err)
			return nil, err
		}
		out = append(out, resp.TeamMembers...)
		if resp.Cursor == "" {
			break
		}
		req.Cursor = resp.Cursor
	}
	span.SetAttributes(attribute.Int("square.team_members", len(out)))
	return out, nil
}

// SearchServiceItems lists appointment-service catalog items, following cursors.
func (c *Client) SearchServiceItems(ctx context.Context) ([]CatalogObject, error) {
	ctx, span := tracer.Start(ctx, "square.search_catalog_items", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	req := searchCatalogItemsRequest{ProductTypes: []string{"APPOINTMENTS_SERVICE"}}
	var out []CatalogObject
	for {
		var resp searchCatalogItemsResponse
		if err := c.do(ctx, "search catalog items", http.MethodPost, "/v2/catalog/search-catalog-items", req, &resp); err != nil {
			span.RecordError(err)
			return nil, err
		}
		out = append(out, resp.Items...)
		if resp.Cursor == "" {
			break
		}
		req.Cursor = resp.Cursor
	}
	span.SetAttributes(attribute.Int("square.items", len(out)))
	return out, nil
}

// ListCategories maps catalog category ids to names.
func (c *Client) ListCategories(ctx context.Context) (map[string]string, error) {
	req := searchCatalogObjectsRequest{ObjectTypes: []string{"CATEGORY"}}
	out := make(map[string]string)
	for {
		var resp searchCatalogObjectsResponse
		if err := c.do(ctx, "search categories", http.MethodPost, "/v2/catalog/search", req, &resp); err != nil {
			return nil, err
		}
		for _, obj := range resp.Objects {
			if obj.CategoryData != nil && !obj.IsDeleted {
				out[obj.ID] = obj.CategoryData.Name
			}
		}
		if resp.Cursor == "" {
			break
		}
		req.Cursor = resp.Cursor
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("square: %s: rate limit: %w", op, err)
		}
	}

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("square: %s: marshal request: %w", op, err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("square: %s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Square-Version", c.version)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("square: %s: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("square: %s: read response: %w", op, err)
	}
	c.logger.Debug("square request",
		"operation", op,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	var envelope struct {
		Errors []Error `json:"errors"`
	}
	_ = json.Unmarshal(respBody, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || len(envelope.Errors) > 0 {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return &APIError{StatusCode: resp.StatusCode, Operation: op, Errors: envelope.Errors, Body: msg}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("square: %s: decode response: %w", op, err)
	}
	return nil
}
