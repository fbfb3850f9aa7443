package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/aeroperk/mcp-server/internal/models"
	"github.com/aeroperk/mcp-server/internal/services"
	"github.com/aeroperk/mcp-server/pkg/aeroperk"
)

// SearchDriverRoutesToolName is the MCP name of SearchDriverRoutesTool
const SearchDriverRoutesToolName = "search_driver_routes"

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
	// at most this many routes are written into the text result
	maxListedRoutes = 10
)

var vehicleIcons = map[string]string{
	"car":        "🚗",
	"van":        "🚐",
	"truck":      "🚛",
	"suv":        "🚙",
	"motorcycle": "🏍️",
	"bicycle":    "🚲",
	"air":        "✈️",
	"train":      "🚂",
	"bus":        "🚌",
}

func vehicleIcon(vehicleType string) string {
	if icon, ok := vehicleIcons[vehicleType]; ok {
		return icon
	}
	return "🚗"
}

// SearchDriverRoutesTool lets anyone browse published driver routes
type SearchDriverRoutesTool struct {
	backend Backend
	opts    Options
}

// NewSearchDriverRoutesTool creates the tool
func NewSearchDriverRoutesTool(backend Backend, opts Options) *SearchDriverRoutesTool {
	return &SearchDriverRoutesTool{backend: backend, opts: opts.withDefaults()}
}

type searchRoutesArgs struct {
	OriginCity         string   `json:"originCity"`
	DestinationCity    string   `json:"destinationCity"`
	OriginCountry      string   `json:"originCountry"`
	DestinationCountry string   `json:"destinationCountry"`
	DateFrom           string   `json:"dateFrom"`
	DateTo             string   `json:"dateTo"`
	VehicleType        string   `json:"vehicleType"`
	MaxPrice           *float64 `json:"maxPrice"`
	Limit              *float64 `json:"limit"`
}

func (a *searchRoutesArgs) validate() error {
	if a.VehicleType != "" && !contains(models.VehicleTypes, a.VehicleType) {
		return fmt.Errorf("`vehicleType` must be one of: %s.", strings.Join(models.VehicleTypes, ", "))
	}
	if a.MaxPrice != nil && *a.MaxPrice < 0 {
		return errors.New("`maxPrice` must not be negative.")
	}
	if a.Limit != nil && (*a.Limit < 1 || *a.Limit > maxSearchLimit) {
		return fmt.Errorf("`limit` must be between 1 and %d.", maxSearchLimit)
	}
	for name, v := range map[string]string{"dateFrom": a.DateFrom, "dateTo": a.DateTo} {
		if v == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", v); err != nil {
			if _, err := time.Parse(time.RFC3339, v); err != nil {
				return fmt.Errorf("`%s` must be an ISO date, e.g. \"2025-12-20\".", name)
			}
		}
	}
	return nil
}

func (a *searchRoutesArgs) limit() int {
	if a.Limit == nil {
		return defaultSearchLimit
	}
	return int(*a.Limit)
}

// Name implements Tool
func (t *SearchDriverRoutesTool) Name() string { return SearchDriverRoutesToolName }

// Definition implements Tool
func (t *SearchDriverRoutesTool) Definition() mcp.Tool {
	return mcp.NewTool(SearchDriverRoutesToolName,
		mcp.WithDescription("Search for drivers traveling on a specific route who can deliver packages. Returns available drivers with their travel dates, capacity, and pricing."),
		mcp.WithString("originCity",
			mcp.Description("Origin city name (e.g., \"Seattle\", \"New York\", \"London\")"),
		),
		mcp.WithString("destinationCity",
			mcp.Description("Destination city name (e.g., \"São Paulo\", \"Tokyo\", \"Paris\")"),
		),
		mcp.WithString("originCountry",
			mcp.Description("Origin country (optional, e.g., \"United States\", \"Brazil\")"),
		),
		mcp.WithString("destinationCountry",
			mcp.Description("Destination country (optional)"),
		),
		mcp.WithString("dateFrom",
			format("date"),
			mcp.Description("Start of travel date range (ISO date, e.g., \"2025-12-20\")"),
		),
		mcp.WithString("dateTo",
			format("date"),
			mcp.Description("End of travel date range (ISO date, e.g., \"2025-12-31\")"),
		),
		mcp.WithString("vehicleType",
			mcp.Enum(models.VehicleTypes...),
			mcp.Description("Filter by vehicle/transport type (optional)"),
		),
		mcp.WithNumber("maxPrice",
			mcp.Description("Maximum price you're willing to pay (optional)"),
			mcp.Min(0),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (1-50, default 10)"),
			mcp.Min(1),
			mcp.Max(maxSearchLimit),
		),
	)
}

// Execute implements Tool
func (t *SearchDriverRoutesTool) Execute(ctx context.Context, args map[string]interface{}, auth services.AuthContext) (*models.ToolResult, error) {
	var token string
	if user := auth.User(); user != nil {
		token = user.AccessToken
	} else if t.opts.SearchRequiresAuth {
		return authRequired("search for drivers",
			fmt.Sprintf("Sign up or log in at %s", t.opts.AppURL)), nil
	}

	var in searchRoutesArgs
	if err := decodeArgs(args, &in); err != nil {
		return invalidInput(err), nil
	}
	if err := in.validate(); err != nil {
		return invalidInput(err), nil
	}

	result, err := t.backend.SearchDriverRoutes(ctx, token, models.RouteSearchParams{
		OriginCity:         in.OriginCity,
		DestinationCity:    in.DestinationCity,
		OriginCountry:      in.OriginCountry,
		DestinationCountry: in.DestinationCountry,
		DateFrom:           in.DateFrom,
		DateTo:             in.DateTo,
		VehicleType:        in.VehicleType,
		MaxPrice:           in.MaxPrice,
		Page:               1,
		Limit:              in.limit(),
	})
	if err != nil {
		logrus.WithContext(ctx).WithError(err).Warn("Search driver routes failed")
		return t.failure(err), nil
	}

	if result == nil {
		result = &models.RouteSearchResult{}
	}
	routes := result.Routes
	if len(routes) == 0 {
		return t.noRoutes(&in, args), nil
	}

	listed := routes
	if len(listed) > maxListedRoutes {
		listed = listed[:maxListedRoutes]
	}
	entries := make([]string, 0, len(listed))
	for i := range listed {
		entries = append(entries, formatRoute(i+1, &listed[i]))
	}

	var totalInfo string
	if result.Pagination != nil && result.Pagination.Total > 0 {
		totalInfo = fmt.Sprintf("Showing %d of %d routes", len(routes), result.Pagination.Total)
	} else {
		totalInfo = fmt.Sprintf("Found %d route%s", len(routes), plural(len(routes)))
	}
	if in.OriginCity != "" || in.DestinationCity != "" {
		totalInfo += fmt.Sprintf(" for %s → %s", orDefault(in.OriginCity, "any"), orDefault(in.DestinationCity, "any"))
	}

	var b strings.Builder
	b.WriteString("**Driver Routes Found**\n\n")
	b.WriteString(totalInfo)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(entries, "\n\n"))
	b.WriteString("\n\n---\n**Next Steps:**\n")
	b.WriteString("- Create a delivery request with `create_delivery_request`\n")
	b.WriteString("- Contact a driver through the AeroPerk app\n")
	b.WriteString("- Use the route ID to reference a specific driver")

	return &models.ToolResult{
		Content: b.String(),
		Widget: &models.Widget{
			Type: "driver_routes_list",
			Props: map[string]interface{}{
				"routes":     routes,
				"pagination": result.Pagination,
			},
		},
	}, nil
}

func (t *SearchDriverRoutesTool) noRoutes(in *searchRoutesArgs, args map[string]interface{}) *models.ToolResult {
	var b strings.Builder
	b.WriteString("**No Driver Routes Found**")
	if in.OriginCity != "" || in.DestinationCity != "" {
		fmt.Fprintf(&b, " from %s to %s", orDefault(in.OriginCity, "any city"), orDefault(in.DestinationCity, "any city"))
	}
	b.WriteString("\n\n**Suggestions:**\n")
	b.WriteString("1. Try broader search criteria (remove city or date filters)\n")
	b.WriteString("2. Create a delivery request anyway - drivers will see it when they post matching routes\n")
	b.WriteString("3. Check back later as new routes are added daily\n\n")
	b.WriteString("**Create a request:** Use `create_delivery_request` to post your delivery need")

	if args == nil {
		args = map[string]interface{}{}
	}
	return &models.ToolResult{
		Content: b.String(),
		Widget: &models.Widget{
			Type:  "empty_state",
			Props: map[string]interface{}{"searchCriteria": args},
		},
	}
}

func (t *SearchDriverRoutesTool) failure(err error) *models.ToolResult {
	if aeroperk.StatusCode(err) == http.StatusUnauthorized {
		return sessionExpired(t.opts)
	}
	msg := aeroperk.ErrorMessage(err)
	return &models.ToolResult{
		Error:   "Failed to search driver routes: " + msg,
		Content: fmt.Sprintf("**Error Searching Routes**\n\nThere was an error searching for drivers: %s\n\nPlease try again.", msg),
	}
}

// formatRoute renders one numbered route entry. Capacity and price are left
// out when the route does not carry them.
func formatRoute(n int, r *models.DriverRoute) string {
	details := []string{"📅 " + formatDeparture(r.DepartureDate)}
	if c := capacityInfo(r.AvailableCapacity); c != "" {
		details = append(details, "📦 "+c)
	}
	if p := priceInfo(r.PriceRange); p != "" {
		details = append(details, "💰 "+p)
	}
	return fmt.Sprintf("%d. **%s** %s\n   %s → %s\n   %s\n   ID: `%s`",
		n, r.DriverDisplayName(), vehicleIcon(r.VehicleType),
		r.Origin.City, r.Destination.City,
		strings.Join(details, " | "),
		r.ID)
}

func formatDeparture(s string) string {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format("Jan 2")
		}
	}
	return s
}

func capacityInfo(c *models.Capacity) string {
	switch {
	case c == nil:
		return ""
	case c.Weight != nil && *c.Weight > 0:
		return formatAmount(*c.Weight) + "kg"
	case c.Pieces != nil && *c.Pieces > 0:
		return fmt.Sprintf("%d items", *c.Pieces)
	}
	return ""
}

func priceInfo(p *models.PriceRange) string {
	if p == nil || p.Max == nil || *p.Max <= 0 {
		return ""
	}
	var lo float64
	if p.Min != nil {
		lo = *p.Min
	}
	return fmt.Sprintf("$%s-$%s", formatAmount(lo), formatAmount(*p.Max))
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
