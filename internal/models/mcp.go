package models

import "encoding/json"

// MCP protocol data structures

// JSONRPCVersion is the only protocol version the server speaks
const JSONRPCVersion = "2.0"

// MCPRequest is one JSON-RPC request or notification
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse is a JSON-RPC response. Exactly one of Result and Error is set.
type MCPResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *MCPError       `json:"error,omitempty"`
}

// MCPError is a JSON-RPC error object
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewResultResponse builds a success response echoing id
func NewResultResponse(id json.RawMessage, result interface{}) *MCPResponse {
	if result == nil {
		result = struct{}{}
	}
	return &MCPResponse{JSONRPC: JSONRPCVersion, ID: id, Result: result}
}

// NewErrorResponse builds an error response echoing id
func NewErrorResponse(id json.RawMessage, code int, message string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   &MCPError{Code: code, Message: message},
	}
}

// MCPToolCallParams are the params of a tools/call request
type MCPToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// InputSchema is the JSON-Schema object advertised for a tool's arguments.
// Required is always serialized, even when empty.
type InputSchema struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Required   []string               `json:"required"`
}

// ToolDescriptor is one entry of the tools/list result
type ToolDescriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// ToolSummary is the short form used by the discovery endpoint
type ToolSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Widget is a structured payload a client may render next to the text result
type Widget struct {
	Type  string                 `json:"type"`
	Props map[string]interface{} `json:"props"`
}

// ToolResult is what a tool returns. Content is always set, also on failure;
// Error carries a short machine-readable tag when the call failed.
type ToolResult struct {
	Content string  `json:"content"`
	Error   string  `json:"error,omitempty"`
	Widget  *Widget `json:"widget,omitempty"`
}

// Failed reports whether the tool signalled an expected failure
func (r *ToolResult) Failed() bool {
	return r.Error != ""
}

// MCPContent is one content block
type MCPContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// MCPToolCallResponse is the result payload of tools/call
type MCPToolCallResponse struct {
	Content []MCPContent `json:"content"`
	Widget  *Widget      `json:"widget,omitempty"`
	IsError bool         `json:"isError,omitempty"`
}

// NewToolCallResponse wraps a tool result into the MCP content envelope
func NewToolCallResponse(r *ToolResult) *MCPToolCallResponse {
	return &MCPToolCallResponse{
		Content: []MCPContent{{Type: "text", Text: r.Content}},
		Widget:  r.Widget,
		IsError: r.Failed(),
	}
}

// ServerInfo identifies the server in the initialize handshake
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the static initialize payload
type InitializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ServerInfo      ServerInfo             `json:"serverInfo"`
}

// ListToolsResult is the tools/list payload
type ListToolsResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

// PingResult is the ping payload
type PingResult struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
