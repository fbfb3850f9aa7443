package api

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeroperk/mcp-server/internal/models"
	"github.com/aeroperk/mcp-server/internal/testutil"
	"github.com/aeroperk/mcp-server/internal/tools"
)

func stdioText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestStdioHandlerUsesSessionToken(t *testing.T) {
	d, backend := newTestDispatcher(t)
	backend.AddUser("env-token", testutil.FakeUser(models.RoleSender))
	tool, ok := d.Registry().Lookup(tools.CreateRequestToolName)
	require.True(t, ok)

	handler := stdioToolHandler(tool, d.auth, "Bearer env-token")
	var req mcp.CallToolRequest
	req.Params.Name = tools.CreateRequestToolName
	req.Params.Arguments = map[string]interface{}{
		"title": "Books", "pickupAddress": "Austin, USA", "dropoffAddress": "Quito, Ecuador", "reward": float64(30),
	}

	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, stdioText(t, res), "**Delivery Request Created Successfully!**")

	creates := backend.CallsTo("POST", "/v1/requests")
	require.Len(t, creates, 1)
	assert.Equal(t, "env-token", creates[0].Token())
}

func TestStdioHandlerMarksToolErrors(t *testing.T) {
	d, backend := newTestDispatcher(t)
	tool, _ := d.Registry().Lookup(tools.AssignDriverToolName)

	var req mcp.CallToolRequest
	req.Params.Arguments = map[string]interface{}{"requestId": "abc"}
	res, err := stdioToolHandler(tool, d.auth, "")(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, stdioText(t, res), "**Authentication Required**")
	assert.Empty(t, backend.Calls())
}

func TestNewStdioServerRegistersEveryTool(t *testing.T) {
	d, _ := newTestDispatcher(t)
	s := NewStdioServer(d.Registry(), d.auth, "", d.Info(), false)
	require.NotNil(t, s)
}
