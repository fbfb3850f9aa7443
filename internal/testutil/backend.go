// Package testutil provides an in-process fake of the AeroPerk REST API.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/aeroperk/mcp-server/internal/models"
)

// Call is one request received by the fake
type Call struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	Body          []byte
}

// Token returns the bearer token of the call, or ""
func (c Call) Token() string {
	return strings.TrimPrefix(c.Authorization, "Bearer ")
}

// FakeBackend serves the subset of the AeroPerk API the server uses.
// Users are keyed by token; Routes is what every search returns.
type FakeBackend struct {
	Server *httptest.Server

	mu        sync.Mutex
	calls     []Call
	users     map[string]*models.User
	routes    []models.DriverRoute
	total     int
	overrides map[string]http.HandlerFunc
	delay     time.Duration
	nextID    int
}

// NewFakeBackend starts a fake that is closed when t finishes
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()
	f := &FakeBackend{
		users:     make(map[string]*models.User),
		overrides: make(map[string]http.HandlerFunc),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the base URL to hand to aeroperk.NewClient
func (f *FakeBackend) URL() string {
	return f.Server.URL
}

// AddUser makes token resolve to user
func (f *FakeBackend) AddUser(token string, user *models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[token] = user
}

// SetRoutes sets the search result. total is the reported pagination total; 0 omits pagination.
func (f *FakeBackend) SetRoutes(routes []models.DriverRoute, total int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes = routes
	f.total = total
}

// Handle replaces the default behaviour for "METHOD /path". The path may end
// in "/*" to match any suffix.
func (f *FakeBackend) Handle(pattern string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides[pattern] = h
}

// SetDelay slows every response down by d
func (f *FakeBackend) SetDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// Calls returns a copy of every request received so far
func (f *FakeBackend) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsTo returns the calls whose path starts with prefix
func (f *FakeBackend) CallsTo(method, prefix string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method == method && strings.HasPrefix(c.Path, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	call := Call{
		Method:        r.Method,
		Path:          r.URL.Path,
		Query:         r.URL.RawQuery,
		Authorization: r.Header.Get("Authorization"),
		Body:          body,
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	delay := f.delay
	override := f.lookupOverride(r.Method, r.URL.Path)
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if override != nil {
		override(w, r)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v1/users/profile":
		f.profile(w, call)
	case r.Method == http.MethodPost && r.URL.Path == "/v1/requests":
		f.createRequest(w, call)
	case r.Method == http.MethodGet && r.URL.Path == "/v1/driver-routes":
		f.searchRoutes(w)
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/v1/requests/") && strings.HasSuffix(r.URL.Path, "/assign"):
		f.assign(w, call)
	default:
		WriteError(w, http.StatusNotFound, "Route not found")
	}
}

func (f *FakeBackend) lookupOverride(method, path string) http.HandlerFunc {
	if h, ok := f.overrides[method+" "+path]; ok {
		return h
	}
	for pattern, h := range f.overrides {
		if prefix, ok := strings.CutSuffix(pattern, "/*"); ok && strings.HasPrefix(method+" "+path, prefix+"/") {
			return h
		}
	}
	return nil
}

func (f *FakeBackend) userFor(call Call) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[call.Token()]
}

func (f *FakeBackend) profile(w http.ResponseWriter, call Call) {
	user := f.userFor(call)
	if user == nil {
		WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	WriteData(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (f *FakeBackend) createRequest(w http.ResponseWriter, call Call) {
	if f.userFor(call) == nil {
		WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	var in models.CreateRequestInput
	if err := json.Unmarshal(call.Body, &in); err != nil {
		WriteError(w, http.StatusBadRequest, "Malformed body")
		return
	}

	f.mu.Lock()
	f.nextID++
	id := fmt.Sprintf("%024x", 0x65a000000000+f.nextID)
	f.mu.Unlock()

	WriteData(w, http.StatusCreated, map[string]interface{}{
		"request": models.DeliveryRequest{
			ID:               id,
			Title:            in.Title,
			PickupAddress:    geocode(in.PickupAddress),
			DropoffAddress:   geocode(in.DropoffAddress),
			Reward:           in.Reward,
			ShortDescription: in.ShortDescription,
			Deadline:         in.Deadline,
			Status:           models.RequestStatusOpen,
		},
	})
}

func (f *FakeBackend) searchRoutes(w http.ResponseWriter) {
	f.mu.Lock()
	routes := f.routes
	total := f.total
	f.mu.Unlock()
	if routes == nil {
		routes = []models.DriverRoute{}
	}

	data := map[string]interface{}{"routes": routes}
	if total > 0 {
		data["pagination"] = models.Pagination{Page: 1, Limit: len(routes), Total: total, TotalPages: (total + 9) / 10}
	}
	WriteData(w, http.StatusOK, data)
}

func (f *FakeBackend) assign(w http.ResponseWriter, call Call) {
	user := f.userFor(call)
	if user == nil {
		WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	id := strings.TrimSuffix(strings.TrimPrefix(call.Path, "/v1/requests/"), "/assign")
	driverID, _ := json.Marshal(user.ID)
	WriteData(w, http.StatusOK, map[string]interface{}{
		"request": models.DeliveryRequest{
			ID:       id,
			Title:    "Assigned request",
			Status:   models.RequestStatusPendingPayment,
			DriverID: driverID,
		},
	})
}

// geocode turns "City, Country" into an address the way the backend does
func geocode(s string) *models.Address {
	parts := strings.Split(s, ",")
	addr := &models.Address{FormattedAddress: s}
	addr.City = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		addr.Country = strings.TrimSpace(parts[len(parts)-1])
	}
	return addr
}

// WriteData writes a success envelope
func WriteData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, map[string]interface{}{"success": true, "data": data})
}

// WriteError writes a failure envelope with a nested error object
func WriteError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   map[string]interface{}{"message": message},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ==================== fixtures ====================

// FakeUser returns a random user with the given role
func FakeUser(role string) *models.User {
	return &models.User{
		ID:        FakeObjectID(),
		Email:     gofakeit.Email(),
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
		Role:      role,
		City:      gofakeit.City(),
	}
}

// FakeObjectID returns a random 24-hex-character id
func FakeObjectID() string {
	return fmt.Sprintf("%08x%08x%08x", gofakeit.Uint32(), gofakeit.Uint32(), gofakeit.Uint32())
}

// FakeRoute returns a random route with a populated driver, capacity and price
func FakeRoute() models.DriverRoute {
	weight := float64(gofakeit.Number(1, 40))
	lo := float64(gofakeit.Number(10, 50))
	hi := lo + float64(gofakeit.Number(10, 100))
	departure := gofakeit.DateRange(time.Now(), time.Now().AddDate(0, 2, 0)).UTC()
	driverID := FakeObjectID()
	return models.DriverRoute{
		ID: FakeObjectID(),
		DriverID: &models.DriverRef{
			ID: driverID,
			Driver: &models.PopulatedDriver{
				ID:        driverID,
				FirstName: gofakeit.FirstName(),
				LastName:  gofakeit.LastName(),
			},
		},
		Origin:            models.RouteLocation{City: gofakeit.City(), Country: gofakeit.Country()},
		Destination:       models.RouteLocation{City: gofakeit.City(), Country: gofakeit.Country()},
		DepartureDate:     departure.Format(time.RFC3339),
		AvailableCapacity: &models.Capacity{Weight: &weight},
		PriceRange:        &models.PriceRange{Min: &lo, Max: &hi, Currency: "USD"},
		VehicleType:       gofakeit.RandomString(models.VehicleTypes),
		IsActive:          true,
	}
}
