package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/aeroperk/mcp-server/internal/models"
	"github.com/aeroperk/mcp-server/internal/services"
	"github.com/aeroperk/mcp-server/pkg/aeroperk"
)

// CreateRequestToolName is the MCP name of CreateRequestTool
const CreateRequestToolName = "create_delivery_request"

// CreateRequestTool lets a sender post a delivery request
type CreateRequestTool struct {
	backend Backend
	opts    Options
}

// NewCreateRequestTool creates the tool
func NewCreateRequestTool(backend Backend, opts Options) *CreateRequestTool {
	return &CreateRequestTool{backend: backend, opts: opts.withDefaults()}
}

type createRequestArgs struct {
	Title            string  `json:"title"`
	PickupAddress    string  `json:"pickupAddress"`
	DropoffAddress   string  `json:"dropoffAddress"`
	Reward           float64 `json:"reward"`
	ShortDescription string  `json:"shortDescription"`
	Deadline         string  `json:"deadline"`
}

func (a *createRequestArgs) validate() error {
	a.Title = strings.TrimSpace(a.Title)
	a.PickupAddress = strings.TrimSpace(a.PickupAddress)
	a.DropoffAddress = strings.TrimSpace(a.DropoffAddress)

	switch n := utf8.RuneCountInString(a.Title); {
	case n == 0:
		return errors.New("`title` is required.")
	case n > 100:
		return fmt.Errorf("`title` must be at most 100 characters (got %d).", n)
	}
	if a.PickupAddress == "" {
		return errors.New("`pickupAddress` is required.")
	}
	if a.DropoffAddress == "" {
		return errors.New("`dropoffAddress` is required.")
	}
	if a.Reward < 1 || a.Reward > 10000 {
		return errors.New("`reward` must be between 1 and 10000 USD.")
	}
	if n := utf8.RuneCountInString(a.ShortDescription); n > 500 {
		return fmt.Errorf("`shortDescription` must be at most 500 characters (got %d).", n)
	}
	if a.Deadline != "" {
		if _, err := parseDeadline(a.Deadline); err != nil {
			return errors.New("`deadline` must be an ISO 8601 date-time, e.g. \"2025-12-28T00:00:00.000Z\".")
		}
	}
	return nil
}

// parseDeadline accepts RFC 3339 date-times and plain dates
func parseDeadline(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// Name implements Tool
func (t *CreateRequestTool) Name() string { return CreateRequestToolName }

// Definition implements Tool
func (t *CreateRequestTool) Definition() mcp.Tool {
	return mcp.NewTool(CreateRequestToolName,
		mcp.WithDescription("Create a new package delivery request with pickup location, dropoff location, and reward amount. The request will be visible to drivers traveling on matching routes."),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Brief title for the delivery (1-100 chars). Example: \"Laptop delivery to São Paulo\""),
			mcp.MinLength(1),
			mcp.MaxLength(100),
		),
		mcp.WithString("pickupAddress",
			mcp.Required(),
			mcp.Description("Pickup location - can be full address or \"City, Country\". Example: \"Seattle, WA, USA\" or \"123 Main St, Seattle, WA 98101\""),
		),
		mcp.WithString("dropoffAddress",
			mcp.Required(),
			mcp.Description("Dropoff location - can be full address or \"City, Country\". Example: \"São Paulo, Brazil\""),
		),
		mcp.WithNumber("reward",
			mcp.Required(),
			mcp.Description("Amount in USD willing to pay the driver (minimum $1, maximum $10,000)"),
			mcp.Min(1),
			mcp.Max(10000),
		),
		mcp.WithString("shortDescription",
			mcp.Description("Description of the item being delivered (optional, max 500 chars). Example: \"MacBook Pro 16 inch, well packaged\""),
			mcp.MaxLength(500),
		),
		mcp.WithString("deadline",
			format("date-time"),
			mcp.Description("Delivery deadline in ISO 8601 format (optional). Example: \"2025-12-28T00:00:00.000Z\""),
		),
	)
}

// Execute implements Tool
func (t *CreateRequestTool) Execute(ctx context.Context, args map[string]interface{}, auth services.AuthContext) (*models.ToolResult, error) {
	user := auth.User()
	if user == nil {
		return authRequired("create delivery requests",
			fmt.Sprintf("If you don't have an account yet, sign up at %s", t.opts.AppURL)), nil
	}

	var in createRequestArgs
	if err := decodeArgs(args, &in); err != nil {
		return invalidInput(err), nil
	}
	if err := in.validate(); err != nil {
		return invalidInput(err), nil
	}

	request, err := t.backend.CreateRequest(ctx, user.AccessToken, models.CreateRequestInput{
		Title:            in.Title,
		PickupAddress:    in.PickupAddress,
		DropoffAddress:   in.DropoffAddress,
		Reward:           in.Reward,
		ShortDescription: in.ShortDescription,
		Deadline:         in.Deadline,
	})
	if err != nil {
		logrus.WithContext(ctx).WithError(err).Warn("Create request failed")
		return t.failure(err), nil
	}

	viewURL := fmt.Sprintf("%s/requests/%s", t.opts.AppURL, request.ID)

	var b strings.Builder
	b.WriteString("**Delivery Request Created Successfully!**\n\n")
	fmt.Fprintf(&b, "**Request ID:** `%s`\n", request.ID)
	fmt.Fprintf(&b, "**Title:** %s\n", request.Title)
	fmt.Fprintf(&b, "**Route:** %s → %s\n", request.PickupAddress.Label(), request.DropoffAddress.Label())
	fmt.Fprintf(&b, "**Reward:** $%s USD\n", formatAmount(request.Reward))
	fmt.Fprintf(&b, "**Status:** %s\n", request.Status)
	if request.ShortDescription != "" {
		fmt.Fprintf(&b, "**Item:** %s\n", request.ShortDescription)
	}
	if in.Deadline != "" {
		if deadline, err := parseDeadline(in.Deadline); err == nil {
			fmt.Fprintf(&b, "**Deadline:** %s\n", deadline.UTC().Format("1/2/2006"))
		}
	}
	b.WriteString("\n**Next Steps:**\n")
	b.WriteString("1. Use `search_driver_routes` to find drivers traveling on this route\n")
	b.WriteString("2. Drivers can view your request and offer to deliver\n")
	b.WriteString("3. You'll be notified when a driver is interested\n\n")
	fmt.Fprintf(&b, "**View in app:** %s", viewURL)

	return &models.ToolResult{
		Content: b.String(),
		Widget: &models.Widget{
			Type: "request_created",
			Props: map[string]interface{}{
				"request": request,
				"viewUrl": viewURL,
			},
		},
	}, nil
}

func (t *CreateRequestTool) failure(err error) *models.ToolResult {
	msg := aeroperk.ErrorMessage(err)
	switch aeroperk.StatusCode(err) {
	case http.StatusUnauthorized:
		return sessionExpired(t.opts)
	case http.StatusBadRequest:
		return &models.ToolResult{
			Error:   "Invalid request data",
			Content: fmt.Sprintf("**Invalid Request**\n\n%s\n\nPlease check your inputs and try again.", msg),
		}
	}
	return &models.ToolResult{
		Error: "Failed to create delivery request: " + msg,
		Content: fmt.Sprintf("**Error Creating Request**\n\nThere was an error creating your delivery request: %s\n\nPlease try again or contact support at %s",
			msg, t.opts.SupportEmail),
	}
}

// formatAmount prints 150 as "150" and 150.5 as "150.5"
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
