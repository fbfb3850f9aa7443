package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeroperk/mcp-server/internal/models"
	"github.com/aeroperk/mcp-server/pkg/aeroperk"
)

type stubProfiles struct {
	users map[string]*models.User
	calls int32
}

func (s *stubProfiles) GetUserProfile(ctx context.Context, token string) (*models.User, error) {
	atomic.AddInt32(&s.calls, 1)
	u, ok := s.users[token]
	if !ok {
		return nil, &aeroperk.APIError{StatusCode: 401, Message: "Invalid token"}
	}
	copied := *u
	return &copied, nil
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"   ", ""},
		{"Bearer abc123", "abc123"},
		{"bearer abc123", "abc123"},
		{"BEARER abc123", "abc123"},
		{"Bearer   abc123  ", "abc123"},
		{"Bearer", ""},
		{"Bearer ", ""},
		{"abc123", "abc123"},
		{"Token abc123", "Token abc123"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractToken(tt.header), "header %q", tt.header)
	}
}

func TestResolve(t *testing.T) {
	profiles := &stubProfiles{users: map[string]*models.User{
		"good": {ID: "u1", Role: models.RoleDriver},
	}}
	svc := NewAuthService(profiles)
	ctx := context.Background()

	user := svc.Resolve(ctx, "Bearer good")
	require.NotNil(t, user)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "good", user.AccessToken)

	assert.Nil(t, svc.Resolve(ctx, "Bearer expired"))
	assert.Nil(t, svc.Resolve(ctx, ""))
	assert.EqualValues(t, 2, atomic.LoadInt32(&profiles.calls), "an empty header must not reach the backend")
}

func TestResolveSwallowsTransportErrors(t *testing.T) {
	svc := NewAuthService(profileFunc(func(ctx context.Context, token string) (*models.User, error) {
		return nil, errors.New("dial tcp: connection refused")
	}))
	assert.Nil(t, svc.Resolve(context.Background(), "Bearer any"))
}

type profileFunc func(ctx context.Context, token string) (*models.User, error)

func (f profileFunc) GetUserProfile(ctx context.Context, token string) (*models.User, error) {
	return f(ctx, token)
}

func TestRequestAuthResolvesOnceLazily(t *testing.T) {
	profiles := &stubProfiles{users: map[string]*models.User{"good": {ID: "u1"}}}
	auth := NewRequestAuth(context.Background(), NewAuthService(profiles), "Bearer good")
	assert.EqualValues(t, 0, atomic.LoadInt32(&profiles.calls))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u := auth.User()
			assert.NotNil(t, u)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(&profiles.calls))
}

func TestRequestAuthWithoutService(t *testing.T) {
	auth := NewRequestAuth(context.Background(), nil, "Bearer good")
	assert.Nil(t, auth.User())
}

func TestStaticAuth(t *testing.T) {
	u := &models.User{ID: "u1"}
	assert.Same(t, u, StaticAuth{Caller: u}.User())
	assert.Nil(t, StaticAuth{}.User())
}
