package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressAcceptsStringOrObject(t *testing.T) {
	var req DeliveryRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"_id": "65a1b2c3d4e5f6a7b8c9d0e1",
		"pickupAddress": "Seattle, WA",
		"dropoffAddress": {"formattedAddress": "Av. Paulista, São Paulo", "city": "São Paulo", "country": "Brazil", "lat": -23.5, "lng": -46.6}
	}`), &req))

	assert.Equal(t, "Seattle, WA", req.PickupAddress.FormattedAddress)
	assert.Equal(t, "Seattle, WA", req.PickupAddress.Label())
	assert.Equal(t, "São Paulo, Brazil", req.DropoffAddress.Label())
}

func TestAddressLabel(t *testing.T) {
	var nilAddr *Address
	assert.Equal(t, "Unknown", nilAddr.Label())
	assert.Equal(t, "Unknown", (&Address{}).Label())
	assert.Equal(t, "Lisbon", (&Address{City: "Lisbon"}).Label())
	assert.Equal(t, "1 Main St, USA", (&Address{FormattedAddress: "1 Main St", Country: "USA"}).Label())
}

func TestDriverRefShapes(t *testing.T) {
	var routes []DriverRoute
	require.NoError(t, json.Unmarshal([]byte(`[
		{"_id": "r1", "driverId": "d1", "origin": {"city": "A"}, "destination": {"city": "B"}},
		{"_id": "r2", "driverId": {"_id": "d2", "firstName": "Ana", "lastName": "Silva"}, "origin": {"city": "A"}, "destination": {"city": "B"}},
		{"_id": "r3", "origin": {"city": "A"}, "destination": {"city": "B"}},
		{"_id": "r4", "driverId": null, "origin": {"city": "A"}, "destination": {"city": "B"}},
		{"_id": "r5", "driverId": {"_id": "d5", "firstName": "Bo"}, "origin": {"city": "A"}, "destination": {"city": "B"}}
	]`), &routes))
	require.Len(t, routes, 5)

	assert.Equal(t, "d1", routes[0].DriverID.ID)
	assert.Nil(t, routes[0].DriverID.Driver)
	assert.Equal(t, "d2", routes[1].DriverID.ID)
	assert.Equal(t, "Ana", routes[1].DriverID.Driver.FirstName)

	assert.Equal(t, "Driver", routes[0].DriverDisplayName())
	assert.Equal(t, "Ana S.", routes[1].DriverDisplayName())
	assert.Equal(t, "Anonymous", routes[2].DriverDisplayName())
	assert.Equal(t, "Anonymous", routes[3].DriverDisplayName())
	assert.Equal(t, "Bo .", routes[4].DriverDisplayName())

	// written back in the shape it was read
	out, err := json.Marshal(routes[0].DriverID)
	require.NoError(t, err)
	assert.JSONEq(t, `"d1"`, string(out))
	out, err = json.Marshal(routes[1].DriverID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"_id":"d2","firstName":"Ana","lastName":"Silva"}`, string(out))
}

func TestRouteSearchResultShapes(t *testing.T) {
	tests := map[string]string{
		"array":        `[{"_id":"r1"}]`,
		"routes":       `{"routes":[{"_id":"r1"}],"pagination":{"page":1,"limit":10,"total":1,"totalPages":1}}`,
		"driverRoutes": `{"driverRoutes":[{"_id":"r1"}]}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			var result RouteSearchResult
			require.NoError(t, json.Unmarshal([]byte(body), &result))
			require.Len(t, result.Routes, 1)
			assert.Equal(t, "r1", result.Routes[0].ID)
		})
	}
}

func TestUserRoles(t *testing.T) {
	for role, canDrive := range map[string]bool{
		RoleSender:     false,
		RoleViewer:     false,
		RoleDriver:     true,
		RoleAdmin:      true,
		RoleSuperAdmin: true,
	} {
		u := &User{Role: role}
		assert.Equal(t, canDrive, u.CanDrive(), role)
	}

	assert.Equal(t, "Ana Silva", (&User{FirstName: "Ana", LastName: "Silva"}).FullName())
	assert.Equal(t, "Ana", (&User{FirstName: "Ana"}).FullName())
}

func TestToolCallResponse(t *testing.T) {
	ok := NewToolCallResponse(&ToolResult{Content: "done", Widget: &Widget{Type: "w", Props: map[string]interface{}{"a": 1}}})
	raw, err := json.Marshal(ok)
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":[{"type":"text","text":"done"}],"widget":{"type":"w","props":{"a":1}}}`, string(raw))

	failed := NewToolCallResponse(&ToolResult{Content: "nope", Error: "Authentication required"})
	raw, err = json.Marshal(failed)
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":[{"type":"text","text":"nope"}],"isError":true}`, string(raw))
}

func TestResponseIDIsEchoedOrNull(t *testing.T) {
	raw, err := json.Marshal(NewErrorResponse(nil, -32700, "Parse error"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error"}}`, string(raw))

	raw, err = json.Marshal(NewResultResponse(json.RawMessage(`"abc"`), nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":"abc","result":{}}`, string(raw))
}
