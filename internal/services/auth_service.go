package services

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/aeroperk/mcp-server/internal/models"
	"github.com/aeroperk/mcp-server/pkg/aeroperk"
)

// ProfileFetcher resolves a bearer token to its owner's profile
type ProfileFetcher interface {
	GetUserProfile(ctx context.Context, token string) (*models.User, error)
}

// AuthService turns an Authorization header into a user
type AuthService struct {
	profiles ProfileFetcher
}

// NewAuthService creates an AuthService backed by profiles
func NewAuthService(profiles ProfileFetcher) *AuthService {
	return &AuthService{profiles: profiles}
}

// ExtractToken strips a case-insensitive "Bearer " prefix. A header without
// the prefix is taken as the token itself.
func ExtractToken(header string) string {
	header = strings.TrimSpace(header)
	if strings.EqualFold(header, "bearer") {
		return ""
	}
	if len(header) >= 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// Resolve returns the user owning the header's token, or nil when there is no
// token or the backend rejects it. It never fails: the backend is the only
// authority on whether a token is valid, and any error means "anonymous".
func (s *AuthService) Resolve(ctx context.Context, header string) *models.User {
	token := ExtractToken(header)
	if token == "" {
		return nil
	}

	user, err := s.profiles.GetUserProfile(ctx, token)
	if err != nil {
		logrus.WithContext(ctx).WithFields(logrus.Fields{
			"status": aeroperk.StatusCode(err),
			"reason": aeroperk.ErrorMessage(err),
		}).Warn("Token verification failed")
		return nil
	}
	if user == nil {
		return nil
	}

	user.AccessToken = token
	logrus.WithContext(ctx).WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Debug("Resolved caller")
	return user
}

// AuthContext gives a tool access to the caller of the current request
type AuthContext interface {
	User() *models.User
}

// RequestAuth resolves the caller at most once, on first use.
// It must not outlive the request it was created for.
type RequestAuth struct {
	ctx     context.Context
	service *AuthService
	header  string

	once sync.Once
	user *models.User
}

// NewRequestAuth binds an auth service to one request's Authorization header
func NewRequestAuth(ctx context.Context, service *AuthService, header string) *RequestAuth {
	return &RequestAuth{ctx: ctx, service: service, header: header}
}

// User returns the caller or nil for anonymous requests
func (a *RequestAuth) User() *models.User {
	a.once.Do(func() {
		if a.service != nil {
			a.user = a.service.Resolve(a.ctx, a.header)
		}
	})
	return a.user
}

// StaticAuth is an AuthContext with a fixed, already resolved user
type StaticAuth struct {
	Caller *models.User
}

// User returns the fixed caller
func (a StaticAuth) User() *models.User {
	return a.Caller
}
