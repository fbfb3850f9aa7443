// Package aeroperk is a typed client for the AeroPerk marketplace REST API.
//
// The client carries no credentials. Every operation takes the caller's bearer
// token as an argument, so one Client can safely serve concurrent requests made
// on behalf of different users.
package aeroperk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aeroperk/mcp-server/internal/models"
)

const (
	// DefaultBaseURL is the production API
	DefaultBaseURL = "https://api.aeroperk.com/api"
	// DefaultTimeout bounds every backend call
	DefaultTimeout = 15 * time.Second

	maxResponseBytes = 4 << 20
)

// Client talks to the AeroPerk API. It is immutable after construction.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-call timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient creates a client for baseURL (DefaultBaseURL when empty)
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client is bound to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ==================== requests ====================

// CreateRequest posts a new delivery request
func (c *Client) CreateRequest(ctx context.Context, token string, in models.CreateRequestInput) (*models.DeliveryRequest, error) {
	var out models.DeliveryRequest
	if err := c.do(ctx, token, http.MethodPost, "/v1/requests", nil, in, "request", &out); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return &out, nil
}

// GetRequest fetches one delivery request
func (c *Client) GetRequest(ctx context.Context, token, requestID string) (*models.DeliveryRequest, error) {
	var out models.DeliveryRequest
	path := "/v1/requests/" + url.PathEscape(requestID)
	if err := c.do(ctx, token, http.MethodGet, path, nil, nil, "request", &out); err != nil {
		return nil, fmt.Errorf("get request %s: %w", requestID, err)
	}
	return &out, nil
}

// ListRequests lists delivery requests visible to the caller
func (c *Client) ListRequests(ctx context.Context, token string, p models.ListRequestsParams) (*models.RequestList, error) {
	q := url.Values{}
	setInt(q, "page", p.Page)
	setInt(q, "limit", p.Limit)
	setString(q, "status", p.Status)
	setString(q, "sort", p.Sort)

	var out models.RequestList
	if err := c.do(ctx, token, http.MethodGet, "/v1/requests", q, nil, "", &out); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return &out, nil
}

// ==================== driver routes ====================

// SearchDriverRoutes searches published driver routes. token may be empty for anonymous browsing.
func (c *Client) SearchDriverRoutes(ctx context.Context, token string, p models.RouteSearchParams) (*models.RouteSearchResult, error) {
	q := url.Values{}
	setString(q, "originCity", p.OriginCity)
	setString(q, "destinationCity", p.DestinationCity)
	setString(q, "originCountry", p.OriginCountry)
	setString(q, "destinationCountry", p.DestinationCountry)
	setString(q, "dateFrom", p.DateFrom)
	setString(q, "dateTo", p.DateTo)
	setString(q, "vehicleType", p.VehicleType)
	if p.MaxPrice != nil {
		q.Set("maxPrice", strconv.FormatFloat(*p.MaxPrice, 'f', -1, 64))
	}
	setInt(q, "page", p.Page)
	setInt(q, "limit", p.Limit)

	var out models.RouteSearchResult
	if err := c.do(ctx, token, http.MethodGet, "/v1/driver-routes", q, nil, "", &out); err != nil {
		return nil, fmt.Errorf("search driver routes: %w", err)
	}
	return &out, nil
}

// GetDriverRoute fetches one driver route
func (c *Client) GetDriverRoute(ctx context.Context, token, routeID string) (*models.DriverRoute, error) {
	var out models.DriverRoute
	path := "/v1/driver-routes/" + url.PathEscape(routeID)
	if err := c.do(ctx, token, http.MethodGet, path, nil, nil, "driverRoute", &out); err != nil {
		return nil, fmt.Errorf("get driver route %s: %w", routeID, err)
	}
	return &out, nil
}

// ==================== assignment ====================

// AssignDriver assigns the token's owner as driver of the request
func (c *Client) AssignDriver(ctx context.Context, token, requestID, note string) (*models.DeliveryRequest, error) {
	body := struct {
		Note string `json:"note,omitempty"`
	}{Note: note}

	var out models.DeliveryRequest
	path := "/v1/requests/" + url.PathEscape(requestID) + "/assign"
	if err := c.do(ctx, token, http.MethodPost, path, nil, body, "request", &out); err != nil {
		return nil, fmt.Errorf("assign driver to %s: %w", requestID, err)
	}
	return &out, nil
}

// ==================== users ====================

// GetUserProfile returns the profile the token belongs to. It doubles as token validation.
func (c *Client) GetUserProfile(ctx context.Context, token string) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, token, http.MethodGet, "/v1/users/profile", nil, nil, "user", &out); err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	return &out, nil
}

// do issues one call and decodes the envelope's data into out.
// key names the optional wrapper inside data, e.g. {"data": {"request": {...}}}.
func (c *Client) do(ctx context.Context, token, method, path string, query url.Values, body interface{}, key string, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := logrus.WithContext(ctx).WithFields(logrus.Fields{
		"method": method,
		"path":   path,
	})

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Warn("AeroPerk API request failed")
		return newTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return newTransportError(fmt.Errorf("read response: %w", err))
	}

	log = log.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	})

	var env envelope
	var decodeErr error
	if len(bytes.TrimSpace(raw)) > 0 {
		decodeErr = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newAPIError(resp.StatusCode, &env)
		log.WithField("message", apiErr.Message).Warn("AeroPerk API error")
		return apiErr
	}
	if decodeErr != nil {
		log.WithError(decodeErr).Warn("AeroPerk API returned an unreadable body")
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if env.Success != nil && !*env.Success {
		apiErr := newAPIError(resp.StatusCode, &env)
		log.WithField("message", apiErr.Message).Warn("AeroPerk API reported failure")
		return apiErr
	}
	log.Debug("AeroPerk API call completed")

	data := unwrap(env.Data, key)
	if out == nil || isNull(data) {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// envelope is the backend's response wrapper
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

// unwrap returns data[key] when data is an object holding a non-null key, otherwise data itself.
func unwrap(data json.RawMessage, key string) json.RawMessage {
	if key == "" || isNull(data) {
		return data
	}
	trimmed := bytes.TrimSpace(data)
	if trimmed[0] != '{' {
		return data
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return data
	}
	if inner, ok := fields[key]; ok && !isNull(inner) {
		return inner
	}
	return data
}

func isNull(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func setString(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func setInt(q url.Values, key string, value int) {
	if value > 0 {
		q.Set(key, strconv.Itoa(value))
	}
}
