package tools

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/aeroperk/mcp-server/internal/models"
	"github.com/aeroperk/mcp-server/internal/services"
	"github.com/aeroperk/mcp-server/pkg/aeroperk"
)

// AssignDriverToolName is the MCP name of AssignDriverTool
const AssignDriverToolName = "assign_driver"

var objectIDPattern = regexp.MustCompile(`^[a-fA-F0-9]{24}$`)

// isValidObjectID reports whether id has the shape of a MongoDB ObjectId
func isValidObjectID(id string) bool {
	return objectIDPattern.MatchString(id)
}

// Stripe statuses that allow a driver to take deliveries
var payableStripeStatuses = []string{"verified", "active"}

// AssignDriverTool lets a driver claim a delivery request
type AssignDriverTool struct {
	backend Backend
	opts    Options
}

// NewAssignDriverTool creates the tool
func NewAssignDriverTool(backend Backend, opts Options) *AssignDriverTool {
	return &AssignDriverTool{backend: backend, opts: opts.withDefaults()}
}

type assignDriverArgs struct {
	RequestID string `json:"requestId"`
	Note      string `json:"note"`
}

// Name implements Tool
func (t *AssignDriverTool) Name() string { return AssignDriverToolName }

// Definition implements Tool
func (t *AssignDriverTool) Definition() mcp.Tool {
	return mcp.NewTool(AssignDriverToolName,
		mcp.WithDescription("As a driver, assign yourself to a delivery request. This tool is for DRIVERS to claim delivery jobs. Senders should use create_delivery_request instead."),
		mcp.WithString("requestId",
			mcp.Required(),
			mcp.Description("The ID of the delivery request to assign yourself to (24-character MongoDB ObjectId)"),
		),
		mcp.WithString("note",
			mcp.Description("Optional message to the sender (max 1000 chars). Example: \"I can pick this up on my way to the airport\""),
			mcp.MaxLength(1000),
		),
	)
}

// Execute implements Tool. Every local check runs before the backend is called.
func (t *AssignDriverTool) Execute(ctx context.Context, args map[string]interface{}, auth services.AuthContext) (*models.ToolResult, error) {
	user := auth.User()
	if user == nil {
		return authRequired("assign yourself to deliveries",
			fmt.Sprintf("Log in at %s", t.opts.AppURL)), nil
	}

	var in assignDriverArgs
	if err := decodeArgs(args, &in); err != nil {
		return invalidInput(err), nil
	}

	if !isValidObjectID(in.RequestID) {
		return &models.ToolResult{
			Error: "Invalid request ID",
			Content: fmt.Sprintf("**Invalid Request ID**\n\nThe request ID \"%s\" is not valid. Request IDs are 24-character codes.\n\n"+
				"Use `search_driver_routes` to find valid request IDs.", in.RequestID),
		}, nil
	}
	if n := utf8.RuneCountInString(in.Note); n > 1000 {
		return invalidInput(fmt.Errorf("`note` must be at most 1000 characters (got %d).", n)), nil
	}

	if !user.CanDrive() {
		return &models.ToolResult{
			Error: "Driver account required",
			Content: fmt.Sprintf("**Driver Account Required**\n\n"+
				"Only users with driver accounts can assign themselves to delivery requests.\n\n"+
				"Your current role: **%s**\n\n"+
				"To become a driver:\n"+
				"1. Go to %s/settings\n"+
				"2. Switch to a driver account\n"+
				"3. Complete Stripe verification to receive payments", user.Role, t.opts.AppURL),
		}, nil
	}

	// a missing status means payouts are not checked for this account
	if status := user.StripeVerificationStatus; status != nil && *status != "" && !contains(payableStripeStatuses, *status) {
		return &models.ToolResult{
			Error: "Stripe verification required",
			Content: fmt.Sprintf("**Stripe Verification Required**\n\n"+
				"Your Stripe account is not verified. You need to complete verification to accept deliveries.\n\n"+
				"Current status: **%s**\n\n"+
				"Complete verification at %s/settings/payments", *status, t.opts.AppURL),
		}, nil
	}

	if _, err := t.backend.AssignDriver(ctx, user.AccessToken, in.RequestID, in.Note); err != nil {
		logrus.WithContext(ctx).WithError(err).WithField("request_id", in.RequestID).Warn("Assign driver failed")
		return t.failure(err, in.RequestID), nil
	}

	driverName := user.FullName()
	var b strings.Builder
	b.WriteString("**Successfully Assigned to Delivery!**\n\n")
	fmt.Fprintf(&b, "**Request ID:** `%s`\n", in.RequestID)
	fmt.Fprintf(&b, "**Driver:** %s\n", driverName)
	b.WriteString("**Status:** Pending sender confirmation\n")
	if in.Note != "" {
		fmt.Fprintf(&b, "**Your note:** \"%s\"\n", in.Note)
	}
	b.WriteString("\n**What happens next:**\n")
	b.WriteString("1. The sender has been notified of your interest\n")
	b.WriteString("2. You'll receive a notification when they accept\n")
	b.WriteString("3. Once accepted, you can coordinate pickup details via chat\n\n")
	fmt.Fprintf(&b, "**Track this delivery:** %s/requests/%s", t.opts.AppURL, in.RequestID)

	return &models.ToolResult{
		Content: b.String(),
		Widget: &models.Widget{
			Type: "assignment_confirmation",
			Props: map[string]interface{}{
				"requestId":  in.RequestID,
				"driverId":   user.ID,
				"driverName": driverName,
				"note":       in.Note,
				"status":     "pending_confirmation",
			},
		},
	}, nil
}

func (t *AssignDriverTool) failure(err error, requestID string) *models.ToolResult {
	msg := aeroperk.ErrorMessage(err)
	switch aeroperk.StatusCode(err) {
	case http.StatusUnauthorized:
		return sessionExpired(t.opts)
	case http.StatusNotFound:
		return &models.ToolResult{
			Error: "Request not found",
			Content: fmt.Sprintf("**Request Not Found**\n\n"+
				"The delivery request with ID `%s` was not found.\n\n"+
				"It may have been:\n"+
				"- Deleted by the sender\n"+
				"- Already completed\n"+
				"- Invalid ID\n\n"+
				"Use `search_driver_routes` to find available requests.", requestID),
		}
	case http.StatusBadRequest, http.StatusConflict:
		if alreadyClaimed(msg) {
			return &models.ToolResult{
				Error: "Request already assigned",
				Content: "**Request Already Claimed**\n\n" +
					"This delivery request has already been assigned to another driver.\n\n" +
					"Use `search_driver_routes` to find other available requests.",
			}
		}
		return &models.ToolResult{
			Error:   "Cannot assign",
			Content: fmt.Sprintf("**Cannot Assign to Request**\n\n%s\n\nPlease try a different request.", msg),
		}
	case http.StatusForbidden:
		return &models.ToolResult{
			Error:   "Not authorized",
			Content: fmt.Sprintf("**Not Authorized**\n\n%s\n\nMake sure your driver account is properly set up.", msg),
		}
	}
	return &models.ToolResult{
		Error: "Failed to assign: " + msg,
		Content: fmt.Sprintf("**Error Assigning to Delivery**\n\nThere was an error: %s\n\nPlease try again or contact %s",
			msg, t.opts.SupportEmail),
	}
}

// alreadyClaimed matches the backend's wording for a request another driver
// holds. The backend sends no error code for this case, only a message.
// TODO: switch to the error code once the assign endpoint returns one.
func alreadyClaimed(msg string) bool {
	msg = strings.ToLower(msg)
	for _, marker := range []string{"already", "assigned", "claimed"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
