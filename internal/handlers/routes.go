package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vidfriends/clips/internal/auth"
	"github.com/vidfriends/clips/internal/middleware"
	"github.com/vidfriends/clips/internal/storage"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Logger        *slog.Logger
	Database      Pinger
	Accounts      AccountStore
	Sessions      SessionManager
	Videos        VideoStore
	Reservations  ReservationStore
	Objects       storage.Store
	Signer        URLSigner
	PublicURL     string
	UploadURLTTL  time.Duration
	MaxUploadSize int64
	UploadLimiter middleware.RateLimiter
	LoginLimiter  middleware.RateLimiter
}

// NewRouter wires the dev API endpoints.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	health := HealthHandler{Database: deps.Database}
	authHandler := AuthHandler{Accounts: deps.Accounts, Sessions: deps.Sessions}
	videos := VideoHandler{
		Videos:       deps.Videos,
		Reservations: deps.Reservations,
		Accounts:     deps.Accounts,
		Objects:      deps.Objects,
		Signer:       deps.Signer,
		PublicURL:    deps.PublicURL,
		UploadURLTTL: deps.UploadURLTTL,
	}
	objects := ObjectHandler{Objects: deps.Objects, Reservations: deps.Reservations, MaxBytes: deps.MaxUploadSize}

	var validator auth.TokenValidator
	if deps.Sessions != nil {
		validator = deps.Sessions
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(logger))

	r.Get("/healthz", health.Handle)

	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.Limit(deps.LoginLimiter, "login")).Post("/login", authHandler.Login)
		r.With(middleware.Limit(deps.LoginLimiter, "signup")).Post("/signup", authHandler.SignUp)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/logout", authHandler.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.OptionalBearer(validator))
		r.Get("/videos", videos.List)
		r.Post("/videos", videos.Create)
		r.With(middleware.Limit(deps.UploadLimiter, "upload")).Post("/upload-url", videos.CreateUploadURL)
		r.Delete("/uploads/{videoId}", videos.Abandon)
	})

	r.Put("/objects/*", objects.Put)
	r.Get("/objects/*", objects.Get)

	return r
}
