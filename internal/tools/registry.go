// Package tools holds the MCP tools the server exposes and the registry the
// dispatcher looks them up in.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/aeroperk/mcp-server/internal/models"
	"github.com/aeroperk/mcp-server/internal/services"
)

// Tool is one callable operation.
//
// Execute reports every expected failure (no caller, bad input, backend 4xx,
// timeouts) as a ToolResult with Error set. A returned error means something
// unexpected happened and becomes a JSON-RPC internal error.
type Tool interface {
	Name() string
	Definition() mcp.Tool
	Execute(ctx context.Context, args map[string]interface{}, auth services.AuthContext) (*models.ToolResult, error)
}

// Backend is the part of the AeroPerk API the tools use. The token is passed
// on every call; an empty token makes an anonymous call.
type Backend interface {
	CreateRequest(ctx context.Context, token string, in models.CreateRequestInput) (*models.DeliveryRequest, error)
	SearchDriverRoutes(ctx context.Context, token string, p models.RouteSearchParams) (*models.RouteSearchResult, error)
	AssignDriver(ctx context.Context, token, requestID, note string) (*models.DeliveryRequest, error)
}

// Options are the knobs shared by all tools
type Options struct {
	AppURL             string
	SupportEmail       string
	SearchRequiresAuth bool
}

func (o Options) withDefaults() Options {
	if o.AppURL == "" {
		o.AppURL = "https://aeroperk.com"
	}
	o.AppURL = strings.TrimRight(o.AppURL, "/")
	if o.SupportEmail == "" {
		o.SupportEmail = "support@aeroperk.com"
	}
	return o
}

// Registry is an ordered set of tools keyed by name
type Registry struct {
	tools []Tool
	index map[string]Tool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]Tool)}
}

// NewDefaultRegistry registers the three marketplace tools
func NewDefaultRegistry(backend Backend, opts Options) *Registry {
	opts = opts.withDefaults()
	r := NewRegistry()
	for _, t := range []Tool{
		NewCreateRequestTool(backend, opts),
		NewSearchDriverRoutesTool(backend, opts),
		NewAssignDriverTool(backend, opts),
	} {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds t. Names must be unique.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool has no name")
	}
	if _, exists := r.index[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools = append(r.tools, t)
	r.index[name] = t
	return nil
}

// Lookup finds a tool by name
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.index[name]
	return t, ok
}

// Tools returns the tools in registration order
func (r *Registry) Tools() []Tool {
	out := make([]Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Names returns tool names in registration order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for _, t := range r.tools {
		names = append(names, t.Name())
	}
	return names
}

// Descriptors returns the tools/list entries
func (r *Registry) Descriptors() []models.ToolDescriptor {
	out := make([]models.ToolDescriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, Describe(t.Definition()))
	}
	return out
}

// Summaries returns name and description of every tool
func (r *Registry) Summaries() []models.ToolSummary {
	out := make([]models.ToolSummary, 0, len(r.tools))
	for _, t := range r.tools {
		def := t.Definition()
		out = append(out, models.ToolSummary{Name: def.Name, Description: def.Description})
	}
	return out
}

// Describe converts an mcp-go tool definition into the wire descriptor
func Describe(def mcp.Tool) models.ToolDescriptor {
	schema := models.InputSchema{
		Type:       def.InputSchema.Type,
		Properties: def.InputSchema.Properties,
		Required:   def.InputSchema.Required,
	}
	if schema.Type == "" {
		schema.Type = "object"
	}
	if schema.Properties == nil {
		schema.Properties = map[string]interface{}{}
	}
	if schema.Required == nil {
		schema.Required = []string{}
	}
	return models.ToolDescriptor{
		Name:        def.Name,
		Description: def.Description,
		InputSchema: schema,
	}
}

// decodeArgs maps the raw argument object onto a typed input struct
func decodeArgs(args map[string]interface{}, out interface{}) error {
	if args == nil {
		args = map[string]interface{}{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// format sets the JSON-Schema "format" keyword on a property
func format(f string) mcp.PropertyOption {
	return func(schema map[string]interface{}) {
		schema["format"] = f
	}
}

// ==================== shared results ====================

func invalidInput(err error) *models.ToolResult {
	return &models.ToolResult{
		Error:   "Invalid input",
		Content: fmt.Sprintf("**Invalid Input**\n\n%s\n\nPlease check your inputs and try again.", describeDecodeError(err)),
	}
}

func sessionExpired(opts Options) *models.ToolResult {
	return &models.ToolResult{
		Error:   "Authentication expired",
		Content: fmt.Sprintf("Your session has expired. Please log in again at %s", opts.AppURL),
	}
}

func authRequired(action, hint string) *models.ToolResult {
	return &models.ToolResult{
		Error:   "Authentication required",
		Content: fmt.Sprintf("**Authentication Required**\n\nTo %s, please provide your AeroPerk authentication token.\n\n%s", action, hint),
	}
}

// describeDecodeError rewords json type errors into something a user can act on
func describeDecodeError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("`%s` must be a %s.", typeErr.Field, kindName(typeErr.Type))
	}
	return err.Error()
}

func kindName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	}
	return t.Kind().String()
}
