// Package session holds the signed-in state of a running client.
package session

import (
	"context"
	"sync"

	"github.com/vidfriends/clips/internal/logging"
	"github.com/vidfriends/clips/internal/models"
	"github.com/vidfriends/clips/internal/videos"
)

// Holder owns the authentication state for one client. It is created once
// and passed to whatever needs to read or change who is signed in.
//
// Every Login, Logout and DemoLogin takes a new generation. A call only
// applies its outcome if no newer call has started since, so the most
// recently started call always determines the final state.
type Holder struct {
	auth videos.Authenticator

	mu           sync.RWMutex
	user         *models.User
	token        string
	refreshToken string
	inFlight     int
	generation   uint64
}

// NewHolder returns a signed-out holder backed by auth.
func NewHolder(auth videos.Authenticator) *Holder {
	return &Holder{auth: auth}
}

// State returns a snapshot of the current state.
func (h *Holder) State() models.AuthState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshot()
}

func (h *Holder) snapshot() models.AuthState {
	state := models.AuthState{IsLoading: h.inFlight > 0}
	if h.user != nil {
		u := *h.user
		state.User = &u
		state.IsAuthenticated = true
	}
	return state
}

// User returns the signed-in user or nil.
func (h *Holder) User() *models.User {
	return h.State().User
}

// Token returns the bearer credential of the signed-in user, or "".
func (h *Holder) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// Login signs in with email and password. On failure the previous user is
// kept and the error is returned.
func (h *Holder) Login(ctx context.Context, email, password string) (models.AuthState, error) {
	gen := h.begin()

	res, err := h.auth.Login(ctx, email, password)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.inFlight--
	if err != nil {
		logging.FromContext(ctx).Warn("login failed", "error", err)
		return h.snapshot(), err
	}
	if gen != h.generation {
		logging.FromContext(ctx).Debug("discarding stale login result", "generation", gen, "current", h.generation)
		return h.snapshot(), nil
	}

	user := res.User
	h.user = &user
	h.token = res.Token
	h.refreshToken = res.RefreshToken
	return h.snapshot(), nil
}

// Logout signs out. On failure the current user stays signed in.
func (h *Holder) Logout(ctx context.Context) (models.AuthState, error) {
	h.mu.RLock()
	refresh := h.refreshToken
	h.mu.RUnlock()

	gen := h.begin()

	_, err := h.auth.Logout(ctx, refresh)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.inFlight--
	if err != nil {
		logging.FromContext(ctx).Warn("logout failed", "error", err)
		return h.snapshot(), err
	}
	if gen != h.generation {
		logging.FromContext(ctx).Debug("discarding stale logout result", "generation", gen, "current", h.generation)
		return h.snapshot(), nil
	}

	h.user = nil
	h.token = ""
	h.refreshToken = ""
	return h.snapshot(), nil
}

// DemoLogin signs in as the demo creator without contacting the backend.
// It supersedes any call still in flight.
func (h *Holder) DemoLogin() models.AuthState {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.generation++

	user := videos.DemoCreator
	h.user = &user
	h.token = "mock-token"
	h.refreshToken = ""
	return h.snapshot()
}

func (h *Holder) begin() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.generation++
	h.inFlight++
	return h.generation
}
