package aeroperk_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeroperk/mcp-server/internal/models"
	"github.com/aeroperk/mcp-server/internal/testutil"
	"github.com/aeroperk/mcp-server/pkg/aeroperk"
)

func newClient(t *testing.T) (*aeroperk.Client, *testutil.FakeBackend) {
	t.Helper()
	backend := testutil.NewFakeBackend(t)
	return aeroperk.NewClient(backend.URL()), backend
}

func TestNewClientDefaults(t *testing.T) {
	c := aeroperk.NewClient("")
	assert.Equal(t, aeroperk.DefaultBaseURL, c.BaseURL())

	c = aeroperk.NewClient("https://example.test/api/")
	assert.Equal(t, "https://example.test/api", c.BaseURL())
}

func TestCreateRequestUnwrapsEnvelope(t *testing.T) {
	client, backend := newClient(t)
	backend.AddUser("sender-token", testutil.FakeUser(models.RoleSender))

	req, err := client.CreateRequest(context.Background(), "sender-token", models.CreateRequestInput{
		Title:          "Laptop delivery",
		PickupAddress:  "Seattle, USA",
		DropoffAddress: "São Paulo, Brazil",
		Reward:         150,
	})
	require.NoError(t, err)
	assert.Len(t, req.ID, 24)
	assert.Equal(t, "Laptop delivery", req.Title)
	assert.Equal(t, "Seattle", req.PickupAddress.City)
	assert.Equal(t, "Brazil", req.DropoffAddress.Country)
	assert.Equal(t, models.RequestStatusOpen, req.Status)

	calls := backend.CallsTo(http.MethodPost, "/v1/requests")
	require.Len(t, calls, 1)
	assert.Equal(t, "Bearer sender-token", calls[0].Authorization)

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal(calls[0].Body, &sent))
	assert.Equal(t, "Seattle, USA", sent["pickupAddress"])
	assert.NotContains(t, sent, "shortDescription")
}

func TestSearchDriverRoutesAnonymousWithFilters(t *testing.T) {
	client, backend := newClient(t)
	backend.SetRoutes([]models.DriverRoute{testutil.FakeRoute(), testutil.FakeRoute()}, 7)

	maxPrice := 12.5
	result, err := client.SearchDriverRoutes(context.Background(), "", models.RouteSearchParams{
		OriginCity:  "Seattle",
		VehicleType: "air",
		MaxPrice:    &maxPrice,
		Page:        1,
		Limit:       5,
	})
	require.NoError(t, err)
	assert.Len(t, result.Routes, 2)
	require.NotNil(t, result.Pagination)
	assert.Equal(t, 7, result.Pagination.Total)

	calls := backend.CallsTo(http.MethodGet, "/v1/driver-routes")
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].Authorization, "anonymous search must not send a credential")

	q, err := url.ParseQuery(calls[0].Query)
	require.NoError(t, err)
	assert.Equal(t, "Seattle", q.Get("originCity"))
	assert.Equal(t, "air", q.Get("vehicleType"))
	assert.Equal(t, "12.5", q.Get("maxPrice"))
	assert.Equal(t, "5", q.Get("limit"))
	assert.False(t, q.Has("destinationCity"))
}

func TestSearchDriverRoutesEnvelopeShapes(t *testing.T) {
	route := testutil.FakeRoute()

	tests := []struct {
		name string
		data interface{}
	}{
		{"bare array", []models.DriverRoute{route}},
		{"routes key", map[string]interface{}{"routes": []models.DriverRoute{route}}},
		{"driverRoutes key", map[string]interface{}{"driverRoutes": []models.DriverRoute{route}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, backend := newClient(t)
			backend.Handle("GET /v1/driver-routes", func(w http.ResponseWriter, r *http.Request) {
				testutil.WriteData(w, http.StatusOK, tt.data)
			})

			result, err := client.SearchDriverRoutes(context.Background(), "", models.RouteSearchParams{})
			require.NoError(t, err)
			require.Len(t, result.Routes, 1)
			assert.Equal(t, route.ID, result.Routes[0].ID)
			assert.Equal(t, route.DriverID.Driver.FirstName, result.Routes[0].DriverID.Driver.FirstName)
		})
	}
}

func TestGetUserProfile(t *testing.T) {
	client, backend := newClient(t)
	user := testutil.FakeUser(models.RoleDriver)
	backend.AddUser("driver-token", user)

	got, err := client.GetUserProfile(context.Background(), "driver-token")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, user.Email, got.Email)
	assert.Empty(t, got.AccessToken)

	_, err = client.GetUserProfile(context.Background(), "unknown")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, aeroperk.StatusCode(err))
	assert.Equal(t, "Invalid or expired token", aeroperk.ErrorMessage(err))
}

func TestAssignDriverSendsNote(t *testing.T) {
	client, backend := newClient(t)
	user := testutil.FakeUser(models.RoleDriver)
	backend.AddUser("driver-token", user)
	requestID := testutil.FakeObjectID()

	req, err := client.AssignDriver(context.Background(), "driver-token", requestID, "On my way")
	require.NoError(t, err)
	assert.Equal(t, requestID, req.ID)

	calls := backend.CallsTo(http.MethodPost, "/v1/requests/"+requestID+"/assign")
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"note":"On my way"}`, string(calls[0].Body))
}

func TestGetRequestAndRoute(t *testing.T) {
	client, backend := newClient(t)
	route := testutil.FakeRoute()
	backend.Handle("GET /v1/requests/abc", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteData(w, http.StatusOK, map[string]interface{}{
			"request": map[string]interface{}{"_id": "abc", "title": "Books", "reward": 20, "status": "OPEN"},
		})
	})
	backend.Handle("GET /v1/driver-routes/"+route.ID, func(w http.ResponseWriter, r *http.Request) {
		// no wrapper key: data is the entity itself
		testutil.WriteData(w, http.StatusOK, route)
	})

	req, err := client.GetRequest(context.Background(), "t", "abc")
	require.NoError(t, err)
	assert.Equal(t, "Books", req.Title)
	assert.Equal(t, float64(20), req.Reward)

	got, err := client.GetDriverRoute(context.Background(), "t", route.ID)
	require.NoError(t, err)
	assert.Equal(t, route.Origin.City, got.Origin.City)
}

func TestListRequests(t *testing.T) {
	client, backend := newClient(t)
	backend.Handle("GET /v1/requests", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "OPEN", r.URL.Query().Get("status"))
		testutil.WriteData(w, http.StatusOK, []map[string]interface{}{
			{"_id": "1", "title": "a"},
			{"_id": "2", "title": "b"},
		})
	})

	list, err := client.ListRequests(context.Background(), "t", models.ListRequestsParams{Status: "OPEN"})
	require.NoError(t, err)
	assert.Len(t, list.Requests, 2)
	assert.Nil(t, list.Pagination)
}

func TestAPIErrorShapes(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantCode    string
	}{
		{
			name:        "top-level message",
			status:      http.StatusConflict,
			body:        `{"success":false,"message":"Request already assigned"}`,
			wantMessage: "Request already assigned",
		},
		{
			name:        "nested error object",
			status:      http.StatusBadRequest,
			body:        `{"success":false,"error":{"message":"Reward too low","code":"VALIDATION"}}`,
			wantMessage: "Reward too low",
			wantCode:    "VALIDATION",
		},
		{
			name:        "error string",
			status:      http.StatusForbidden,
			body:        `{"success":false,"error":"Drivers only"}`,
			wantMessage: "Drivers only",
		},
		{
			name:        "no body",
			status:      http.StatusBadGateway,
			body:        ``,
			wantMessage: "Bad Gateway",
		},
		{
			name:        "success false on 200",
			status:      http.StatusOK,
			body:        `{"success":false,"message":"Not allowed right now"}`,
			wantMessage: "Not allowed right now",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, backend := newClient(t)
			backend.Handle("POST /v1/requests/*", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.AssignDriver(context.Background(), "t", testutil.FakeObjectID(), "")
			require.Error(t, err)

			var apiErr *aeroperk.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, tt.wantCode, apiErr.Code)
		})
	}
}

func TestTimeoutIsNotAnAPIError(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.SetDelay(time.Second)
	client := aeroperk.NewClient(backend.URL(), aeroperk.WithTimeout(50*time.Millisecond))

	_, err := client.SearchDriverRoutes(context.Background(), "", models.RouteSearchParams{})
	require.Error(t, err)
	assert.Equal(t, 0, aeroperk.StatusCode(err))

	var transportErr *aeroperk.TransportError
	require.True(t, errors.As(err, &transportErr), "got %T", err)
	assert.True(t, transportErr.Timeout)
	assert.Contains(t, err.Error(), "search driver routes")

	msg := aeroperk.ErrorMessage(err)
	assert.Equal(t, "AeroPerk API timed out", msg)
	assert.NotContains(t, msg, backend.URL())
	assert.NotContains(t, msg, "/v1/driver-routes")
}

func TestUnreachableBackendHidesURL(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()
	client := aeroperk.NewClient(baseURL, aeroperk.WithTimeout(time.Second))

	_, err := client.GetUserProfile(context.Background(), "token")
	require.Error(t, err)

	var transportErr *aeroperk.TransportError
	require.True(t, errors.As(err, &transportErr), "got %T", err)
	assert.False(t, transportErr.Timeout)
	assert.Equal(t, "AeroPerk API is unreachable", aeroperk.ErrorMessage(err))
}

func TestCancelledCall(t *testing.T) {
	client, _ := newClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetUserProfile(ctx, "token")
	require.Error(t, err)
	assert.Equal(t, "AeroPerk API request was cancelled", aeroperk.ErrorMessage(err))
}

func TestTokenIsPerCall(t *testing.T) {
	client, backend := newClient(t)
	backend.AddUser("a", testutil.FakeUser(models.RoleSender))
	backend.AddUser("b", testutil.FakeUser(models.RoleDriver))

	_, err := client.GetUserProfile(context.Background(), "a")
	require.NoError(t, err)
	_, err = client.SearchDriverRoutes(context.Background(), "", models.RouteSearchParams{})
	require.NoError(t, err)
	_, err = client.GetUserProfile(context.Background(), "b")
	require.NoError(t, err)

	calls := backend.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "Bearer a", calls[0].Authorization)
	assert.Empty(t, calls[1].Authorization)
	assert.Equal(t, "Bearer b", calls[2].Authorization)
}
