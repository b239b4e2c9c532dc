package videos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vidfriends/clips/internal/models"
)

// DemoCreator is the account handed out by the placeholder login and the
// demo-login shortcut.
var DemoCreator = models.User{
	ID:     "creator1",
	Name:   "Alex Johnson",
	Email:  "alex@example.com",
	Avatar: "https://images.unsplash.com/photo-1535713875002-d1d0cf377fde?w=100&h=100&fit=crop",
	Role:   models.RoleCreator,
}

// Authenticator signs creators in and out.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (models.LoginResult, error)
	Logout(ctx context.Context, refreshToken string) (models.LogoutResult, error)
}

// PlaceholderAuthenticator accepts any non-empty credentials after a short
// delay and returns DemoCreator. It performs no verification.
type PlaceholderAuthenticator struct {
	Delay time.Duration
}

// Login implements Authenticator.
func (p PlaceholderAuthenticator) Login(ctx context.Context, email, password string) (models.LoginResult, error) {
	if err := checkCredentials(email, password); err != nil {
		return models.LoginResult{}, err
	}
	if p.Delay > 0 {
		timer := time.NewTimer(p.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return models.LoginResult{}, ctx.Err()
		case <-timer.C:
		}
	}
	return models.LoginResult{User: DemoCreator, Token: "mock-token"}, nil
}

// Logout implements Authenticator.
func (PlaceholderAuthenticator) Logout(context.Context, string) (models.LogoutResult, error) {
	return models.LogoutResult{Success: true}, nil
}

// RemoteAuthenticator signs in against the backend's /auth endpoints.
type RemoteAuthenticator struct {
	Source *HTTPSource
}

type remoteLoginResponse struct {
	User   models.User          `json:"user"`
	Tokens models.SessionTokens `json:"tokens"`
}

// Login implements Authenticator. A 401 from the backend maps to
// ErrInvalidCredentials.
func (r RemoteAuthenticator) Login(ctx context.Context, email, password string) (models.LoginResult, error) {
	if err := checkCredentials(email, password); err != nil {
		return models.LoginResult{}, err
	}

	raw, err := r.Source.postJSON(ctx, "/auth/login", map[string]string{
		"email":    strings.TrimSpace(email),
		"password": password,
	})
	if err != nil {
		var netErr *NetworkError
		if errors.As(err, &netErr) && (netErr.Status == http.StatusUnauthorized || netErr.Status == http.StatusBadRequest) {
			return models.LoginResult{}, ErrInvalidCredentials
		}
		return models.LoginResult{}, err
	}

	var resp remoteLoginResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return models.LoginResult{}, fmt.Errorf("%w: decode login response: %v", ErrMalformedResponse, err)
	}
	if resp.User.ID == "" || resp.Tokens.AccessToken == "" {
		return models.LoginResult{}, fmt.Errorf("%w: login response missing user or token", ErrMalformedResponse)
	}

	return models.LoginResult{
		User:         resp.User,
		Token:        resp.Tokens.AccessToken,
		RefreshToken: resp.Tokens.RefreshToken,
	}, nil
}

// Logout implements Authenticator.
func (r RemoteAuthenticator) Logout(ctx context.Context, refreshToken string) (models.LogoutResult, error) {
	if refreshToken == "" {
		return models.LogoutResult{Success: true}, nil
	}
	if _, err := r.Source.postJSON(ctx, "/auth/logout", map[string]string{"refreshToken": refreshToken}); err != nil {
		return models.LogoutResult{}, err
	}
	return models.LogoutResult{Success: true}, nil
}

func checkCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return ErrInvalidCredentials
	}
	return nil
}
