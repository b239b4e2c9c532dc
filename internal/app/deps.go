package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vidfriends/clips/internal/auth"
	"github.com/vidfriends/clips/internal/config"
	"github.com/vidfriends/clips/internal/db"
	"github.com/vidfriends/clips/internal/handlers"
	"github.com/vidfriends/clips/internal/middleware"
	"github.com/vidfriends/clips/internal/models"
	"github.com/vidfriends/clips/internal/repositories"
	"github.com/vidfriends/clips/internal/session"
	"github.com/vidfriends/clips/internal/storage"
	"github.com/vidfriends/clips/internal/videos"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 24 * time.Hour
	maxUploadSize   = 512 << 20
)

// buildServerDependencies wires the dev API. PostgreSQL backs the
// repositories when a database URL is configured; otherwise everything is
// kept in memory and seeded with the sample catalogue.
func buildServerDependencies(ctx context.Context, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, func(), error) {
	deps := handlers.Dependencies{
		Logger:        logger,
		PublicURL:     cfg.PublicURL,
		UploadURLTTL:  cfg.UploadURLTTL,
		MaxUploadSize: maxUploadSize,
	}
	cleanup := func() {}

	var sessions auth.SessionStore
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return handlers.Dependencies{}, nil, err
		}
		cleanup = pool.Close

		deps.Database = pool
		deps.Accounts = repositories.NewPostgresAccountRepository(pool)
		deps.Videos = repositories.NewPostgresVideoRepository(pool)
		deps.Reservations = repositories.NewPostgresReservationRepository(pool)
		sessions = repositories.NewPostgresSessionStore(pool)
	} else {
		accounts := repositories.NewMemoryAccountRepository()
		if err := ensureDemoAccount(ctx, accounts, cfg); err != nil {
			return handlers.Dependencies{}, nil, err
		}
		deps.Accounts = accounts
		deps.Videos = repositories.NewMemoryVideoRepository(videos.SeedVideos(time.Now().UTC())...)
		deps.Reservations = repositories.NewMemoryReservationRepository()
		sessions = repositories.NewMemorySessionStore()
	}

	deps.Sessions = auth.NewManager(cfg.JWTSecret, accessTokenTTL, refreshTokenTTL, sessions)

	if cfg.ObjectStore.Enabled() {
		s3, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
		if err != nil {
			cleanup()
			return handlers.Dependencies{}, nil, err
		}
		deps.Objects = s3
		if cfg.ObjectMode == config.ObjectModePresign {
			deps.Signer = s3
		}
	} else {
		deps.Objects = storage.NewMemoryStore(cfg.PublicURL)
	}

	if cfg.RateLimitPerMin > 0 {
		deps.UploadLimiter = middleware.NewKeyedLimiter(cfg.RateLimitPerMin, cfg.RateLimitPerMin/3+1, 10*time.Minute, nil)
		deps.LoginLimiter = middleware.NewKeyedLimiter(cfg.RateLimitPerMin, 5, 10*time.Minute, nil)
	}

	return deps, cleanup, nil
}

// ensureDemoAccount creates the demo creator that owns the sample videos.
func ensureDemoAccount(ctx context.Context, accounts repositories.AccountRepository, cfg config.Config) error {
	if strings.TrimSpace(cfg.DemoEmail) == "" || cfg.DemoPassword == "" {
		return nil
	}
	hash, err := auth.HashPassword(cfg.DemoPassword)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	err = accounts.Create(ctx, models.Account{
		ID:           videos.DemoCreator.ID,
		Email:        cfg.DemoEmail,
		Name:         videos.DemoCreator.Name,
		Avatar:       videos.DemoCreator.Avatar,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil && !errors.Is(err, repositories.ErrConflict) {
		return fmt.Errorf("create demo account: %w", err)
	}
	return nil
}

// client bundles what the view commands need: the catalog and the session
// threaded through it.
type client struct {
	catalog *videos.Catalog
	session *session.Holder
}

func buildClient(cfg config.Config) (*client, error) {
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}

	c := &client{}
	var (
		source        videos.Source
		authenticator videos.Authenticator = videos.PlaceholderAuthenticator{Delay: cfg.MockLatency}
	)
	if cfg.MockAPI {
		source = videos.NewMemorySource(cfg.MockLatency, videos.SeedVideos(time.Now().UTC()))
	} else {
		// The placeholder token is not a credential the backend accepts, so
		// bearer tokens are only sent once sign-in goes through the backend.
		var opts []videos.HTTPOption
		if cfg.RemoteAuth {
			opts = append(opts, videos.WithTokenSource(func() string { return c.session.Token() }))
		}
		remote := videos.NewHTTPSource(cfg.APIBaseURL, cfg.HTTPTimeout, opts...)
		source = remote
		if cfg.RemoteAuth {
			authenticator = videos.RemoteAuthenticator{Source: remote}
		}
	}

	c.catalog = videos.NewCatalog(source,
		videos.WithAuthenticator(authenticator),
		videos.WithIdentity(func() *models.User { return c.session.User() }),
	)
	c.session = session.NewHolder(c.catalog)
	return c, nil
}
