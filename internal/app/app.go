package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vidfriends/clips/internal/config"
	"github.com/vidfriends/clips/internal/db"
	"github.com/vidfriends/clips/internal/handlers"
	"github.com/vidfriends/clips/internal/httpserver"
	"github.com/vidfriends/clips/internal/logging"
	"github.com/vidfriends/clips/internal/repositories"
	"github.com/vidfriends/clips/internal/videos"
)

// ErrUsage is returned when no command or an unknown command is given.
var ErrUsage = errors.New("expected a command, see clips help")

type app struct {
	cfg    config.Config
	out    io.Writer
	logger *slog.Logger
	clock  clockwork.Clock
}

// Run bootstraps the clips client or the dev API, depending on the command.
func Run(ctx context.Context, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logOut := io.Writer(os.Stderr)
	if len(args) > 0 && args[0] == "serve" {
		logOut = os.Stdout
	}
	logger := logging.New(logOut, cfg.LogLevel)
	slog.SetDefault(logger)

	a := &app{cfg: cfg, out: os.Stdout, logger: logger, clock: clockwork.NewRealClock()}
	return a.run(ctx, args)
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	ctx = logging.WithLogger(ctx, a.logger)

	switch args[0] {
	case "serve":
		return a.serve(ctx)
	case "migrate":
		return a.migrate(ctx, args[1:])
	case "seed":
		return a.seed(ctx)
	case "help":
		fmt.Fprintf(a.out, "commands: serve, migrate [up|status], seed, %s\n", commandNames())
		return nil
	}

	cmd, ok := clientCommands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q: %w", args[0], ErrUsage)
	}
	c, err := buildClient(a.cfg)
	if err != nil {
		return err
	}
	return cmd(ctx, a, c, args[1:])
}

func (a *app) serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := buildServerDependencies(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := httpserver.New(a.cfg.AppPort, handlers.NewRouter(deps))
	a.logger.Info("starting http server",
		"port", a.cfg.AppPort,
		"objectMode", a.cfg.ObjectMode,
		"postgres", a.cfg.DatabaseURL != "",
		"bucket", a.cfg.ObjectStore.Bucket,
	)
	if err := srv.Run(ctx); err != nil {
		return err
	}
	a.logger.Info("http server stopped")
	return nil
}

// seed loads the demo account and the sample catalogue into PostgreSQL.
// Records that already exist are left alone.
func (a *app) seed(ctx context.Context) error {
	if a.cfg.DatabaseURL == "" {
		return errors.New("seed requires VIDFRIENDS_DATABASE_URL")
	}
	pool, err := db.Connect(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := ensureDemoAccount(ctx, repositories.NewPostgresAccountRepository(pool), a.cfg); err != nil {
		return err
	}
	count, err := seedVideos(ctx, repositories.NewPostgresVideoRepository(pool), a.clock.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "seeded %d videos\n", count)
	return nil
}

func seedVideos(ctx context.Context, repo repositories.VideoRepository, now time.Time) (int, error) {
	var created int
	for _, v := range videos.SeedVideos(now.UTC()) {
		err := repo.Create(ctx, v)
		if errors.Is(err, repositories.ErrConflict) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("seed video %s: %w", v.ID, err)
		}
		created++
	}
	return created, nil
}

// commandNames lists the client commands for usage output.
func commandNames() string {
	names := make([]string, 0, len(clientCommands))
	for name := range clientCommands {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
