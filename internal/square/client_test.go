package square

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dannytrann/pearly-nail-salon-next/pkg/logging"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("test-token", true, logging.New("error")).WithBaseURL(srv.URL).WithRateLimit(0, 0)
}

func TestNewClientPicksHost(t *testing.T) {
	assert.Equal(t, SandboxBaseURL, NewClient("t", true, nil).baseURL)
	assert.Equal(t, ProductionBaseURL, NewClient("t", false, nil).baseURL)
}

func TestSearchAvailabilitySendsFilter(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/bookings/availability/search", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, DefaultAPIVersion, r.Header.Get("Square-Version"))

		var body searchAvailabilityRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "LOC1", body.Query.Filter.LocationID)
		assert.Equal(t, "2025-03-14T07:00:00Z", body.Query.Filter.StartAtRange.StartAt)
		require.Len(t, body.Query.Filter.SegmentFilters, 1)
		assert.Equal(t, []string{"TM1"}, body.Query.Filter.SegmentFilters[0].TeamMemberIDFilter.Any)

		_, _ = w.Write([]byte(`{"availabilities":[{"start_at":"2025-03-14T17:00:00Z","location_id":"LOC1","appointment_segments":[{"duration_minutes":60,"service_variation_id":"VAR1","team_member_id":"TM1"}]}]}`))
	})

	start := time.Date(2025, 3, 14, 7, 0, 0, 0, time.UTC)
	got, err := client.SearchAvailability(context.Background(), AvailabilitySearch{
		LocationID: "LOC1",
		StartAt:    start,
		EndAt:      start.Add(24 * time.Hour),
		Segments:   []SegmentFilter{{ServiceVariationID: "VAR1", TeamMemberIDFilter: &teamMemberIDFilter{Any: []string{"TM1"}}}},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "TM1", got[0].AppointmentSegments[0].TeamMemberID)
}

func TestSearchTeamMembersFollowsCursor(t *testing.T) {
	page := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body searchTeamMembersRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"LOC1"}, body.Query.Filter.LocationIDs)
		assert.Equal(t, "ACTIVE", body.Query.Filter.Status)
		page++
		if page == 1 {
			assert.Empty(t, body.Cursor)
			_, _ = w.Write([]byte(`{"team_members":[{"id":"TM1","given_name":"Kim","status":"ACTIVE"}],"cursor":"next"}`))
			return
		}
		assert.Equal(t, "next", body.Cursor)
		_, _ = w.Write([]byte(`{"team_members":[{"id":"TM2","given_name":"Tan","status":"ACTIVE"}]}`))
	})

	got, err := client.SearchTeamMembers(context.Background(), "LOC1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "TM2", got[1].ID)
	assert.Equal(t, 2, page)
}

func TestDoReturnsAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"category":"INVALID_REQUEST_ERROR","code":"BAD_REQUEST","detail":"Service variation is not bookable by customers."}]}`))
	})

	_, err := client.SearchAvailability(context.Background(), AvailabilitySearch{LocationID: "LOC1"})
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Service variation is not bookable by customers.", apiErr.NotBookableDetail())
	assert.Contains(t, err.Error(), "BAD_REQUEST")
}

func TestDoTruncatesUnstructuredBody(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write(long)
	})

	_, err := client.SearchTeamMembers(context.Background(), "")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Len(t, apiErr.Body, 300)
	assert.Empty(t, apiErr.NotBookableDetail())
}

func TestRateLimitHonorsContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}).WithRateLimit(0.001, 1)

	ctx := context.Background()
	_, err := client.SearchTeamMembers(ctx, "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = client.SearchTeamMembers(ctx, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}
