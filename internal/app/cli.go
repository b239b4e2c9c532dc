package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vidfriends/clips/internal/feed"
	"github.com/vidfriends/clips/internal/format"
	"github.com/vidfriends/clips/internal/logging"
	"github.com/vidfriends/clips/internal/models"
	"github.com/vidfriends/clips/internal/player"
	"github.com/vidfriends/clips/internal/videos"
)

const (
	defaultFeedLimit = 20
	watchInterval    = time.Second
)

// ErrSignInRequired is returned by commands that act as a creator when no
// credentials were given.
var ErrSignInRequired = errors.New("sign in required")

type command func(ctx context.Context, a *app, c *client, args []string) error

var clientCommands = map[string]command{
	"feed":     runFeed,
	"search":   runSearch,
	"watch":    runWatch,
	"creator":  runCreator,
	"upload":   runUpload,
	"comments": runComments,
	"comment":  runComment,
	"rate":     runRate,
	"like":     runLike,
	"login":    runLogin,
}

func runFeed(ctx context.Context, a *app, c *client, args []string) error {
	fs := a.flagSet("feed")
	sortBy := fs.String("sort", string(feed.ModeTrending), "trending, latest or popular")
	limit := fs.Int("limit", defaultFeedLimit, "number of videos to show")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	mode, err := feed.ParseMode(*sortBy)
	if err != nil {
		return err
	}
	return a.showFeed(ctx, c, mode, *limit)
}

func (a *app) showFeed(ctx context.Context, c *client, mode feed.Mode, limit int) error {
	page, err := c.catalog.ListVideos(ctx, 1, limit)
	if err != nil {
		return a.fail(ctx, "Failed to load videos", err)
	}

	list := feed.Sort(page.Videos, mode)
	if len(list) > limit {
		list = list[:limit]
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No videos yet.")
		return nil
	}

	fmt.Fprintf(a.out, "%s (%s videos)\n", strings.ToUpper(string(mode[:1]))+string(mode[1:]), format.Number(int64(page.Total)))
	now := a.clock.Now()
	for _, v := range list {
		a.writeVideo(v, now)
	}
	return nil
}

func runSearch(ctx context.Context, a *app, c *client, args []string) error {
	query := strings.Join(args, " ")
	res, err := c.catalog.SearchVideos(ctx, query)
	if err != nil {
		return a.fail(ctx, "Search failed", err)
	}
	if res.Total == 0 {
		fmt.Fprintf(a.out, "No results for %q\n", strings.TrimSpace(query))
		return nil
	}

	fmt.Fprintf(a.out, "%s results for %q\n", format.Number(int64(res.Total)), strings.TrimSpace(query))
	now := a.clock.Now()
	for _, v := range res.Videos {
		a.writeVideo(v, now)
	}
	return nil
}

// runWatch plays a video on the simulated element until it ends or the
// context is cancelled. An unknown id falls back to the feed.
func runWatch(ctx context.Context, a *app, c *client, args []string) error {
	fs := a.flagSet("watch")
	length := fs.Duration("duration", 15*time.Second, "simulated clip length")
	interval := fs.Duration("interval", watchInterval, "progress print interval")
	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return errors.New("usage: watch <id> [--duration 15s]")
	}
	if *length <= 0 || *interval <= 0 {
		return errors.New("duration and interval must be positive")
	}

	video, err := c.catalog.GetVideo(ctx, positional[0])
	if errors.Is(err, videos.ErrNotFound) {
		logging.FromContext(ctx).Warn("video not found, falling back to feed", "videoId", positional[0])
		fmt.Fprintln(a.out, "Video not found. Showing the feed instead.")
		return a.showFeed(ctx, c, feed.ModeTrending, defaultFeedLimit)
	}
	if err != nil {
		return a.fail(ctx, "Failed to load video", err)
	}

	a.writeDetails(video)

	media := player.NewSimulatedMedia(a.clock, *length)
	defer media.Close()
	transport := player.NewTransport(media, video.VideoURL, player.WithClock(a.clock), player.WithAutoplay())
	defer transport.Close()

	ticker := a.clock.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(a.out, "stopped at %s\n", transport.Label())
			return nil
		case <-ticker.Chan():
			state := transport.State()
			if state.Status == player.StatusEnded {
				fmt.Fprintf(a.out, "%s  ended\n", transport.Label())
				return nil
			}
			fmt.Fprintf(a.out, "%s  %s  %s\n", transport.Label(), state.Status, format.Percent(state.ProgressPercent))
		}
	}
}

func runCreator(ctx context.Context, a *app, c *client, args []string) error {
	fs := a.flagSet("creator")
	var creds credentials
	creds.register(fs)
	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}

	var creatorID string
	switch {
	case len(positional) > 0:
		creatorID = positional[0]
	default:
		user, err := a.signIn(ctx, c, creds)
		if err != nil {
			return err
		}
		creatorID = user.ID
	}

	list, err := c.catalog.ListCreatorVideos(ctx, creatorID)
	if err != nil {
		return a.fail(ctx, "Failed to load videos", err)
	}
	library := feed.NewLibrary(list)
	a.writeDashboard(library)
	return nil
}

func runUpload(ctx context.Context, a *app, c *client, args []string) error {
	fs := a.flagSet("upload")
	var creds credentials
	creds.register(fs)
	path := fs.String("file", "", "video file to upload")
	title := fs.String("title", "", "video title")
	caption := fs.String("caption", "", "video caption")
	location := fs.String("location", "", "where it was filmed")
	people := fs.String("people", "", "comma separated people tagged in the video")
	fileType := fs.String("type", "", "content type, guessed from the extension when empty")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	user, err := a.signIn(ctx, c, creds)
	if err != nil {
		return err
	}

	library := feed.NewLibrary(nil)
	if existing, err := c.catalog.ListCreatorVideos(ctx, user.ID); err != nil {
		logging.FromContext(ctx).Warn("load creator videos failed", "creatorId", user.ID, "error", err)
	} else {
		library.Replace(existing)
	}

	draft := models.UploadDraft{
		Title:    *title,
		Caption:  *caption,
		Location: *location,
		People:   splitPeople(*people),
	}
	if *path != "" {
		f, err := os.Open(*path)
		if err != nil {
			return a.fail(ctx, "Could not read the selected file", err)
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return a.fail(ctx, "Could not read the selected file", err)
		}
		draft.File = &models.UploadFile{
			Name:    filepath.Base(*path),
			Type:    contentTypeFor(*path, *fileType),
			Size:    info.Size(),
			Content: f,
		}
	}

	video, err := c.catalog.UploadVideo(ctx, draft, user.ID)
	if err != nil {
		return a.fail(ctx, "Failed to upload video", err)
	}
	library.Append(video)

	fmt.Fprintln(a.out, "Video uploaded successfully!")
	a.writeVideo(video, a.clock.Now())
	a.writeDashboard(library)
	return nil
}

func runComments(ctx context.Context, a *app, c *client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: comments <id>")
	}
	comments, err := c.catalog.ListComments(ctx, args[0])
	if err != nil {
		return a.fail(ctx, "Failed to load comments", err)
	}
	a.writeComments(comments)
	return nil
}

func runComment(ctx context.Context, a *app, c *client, args []string) error {
	fs := a.flagSet("comment")
	var creds credentials
	creds.register(fs)
	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) < 2 {
		return errors.New("usage: comment <id> <text>")
	}
	videoID := positional[0]
	content := strings.TrimSpace(strings.Join(positional[1:], " "))

	if creds.given() {
		if _, err := a.signIn(ctx, c, creds); err != nil {
			return err
		}
	}

	loaded, err := c.catalog.ListComments(ctx, videoID)
	if err != nil {
		return a.fail(ctx, "Failed to load comments", err)
	}
	thread := feed.NewCommentThread(videoID, loaded, c.catalog, func() models.User {
		if user := c.session.User(); user != nil {
			return *user
		}
		return videos.DemoCreator
	})
	if _, err := thread.Post(ctx, content); err != nil {
		a.writeComments(thread.Comments())
		return a.fail(ctx, "Failed to post comment", err)
	}
	a.writeComments(thread.Comments())
	return nil
}

func runRate(ctx context.Context, a *app, c *client, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: rate <id> <0-5>")
	}
	rating, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid rating %q", args[1])
	}

	video, err := c.catalog.GetVideo(ctx, args[0])
	if err != nil {
		return a.fail(ctx, "Failed to load video", err)
	}
	reactions := feed.NewReactions(video, c.catalog)
	if _, err := reactions.Rate(ctx, rating); err != nil {
		fmt.Fprintf(a.out, "Rating: %.1f\n", reactions.Rating())
		return a.fail(ctx, "Failed to rate video", err)
	}
	fmt.Fprintf(a.out, "Rated %q %.1f/5\n", video.Title, reactions.Rating())
	return nil
}

func runLike(ctx context.Context, a *app, c *client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: like <id>")
	}
	video, err := c.catalog.GetVideo(ctx, args[0])
	if err != nil {
		return a.fail(ctx, "Failed to load video", err)
	}
	reactions := feed.NewReactions(video, c.catalog)
	if err := reactions.Like(ctx); err != nil {
		return a.fail(ctx, "Failed to like video", err)
	}
	likes, _ := reactions.Likes()
	fmt.Fprintf(a.out, "Liked %q (%s likes)\n", video.Title, format.Number(likes))
	return nil
}

func runLogin(ctx context.Context, a *app, c *client, args []string) error {
	fs := a.flagSet("login")
	var creds credentials
	creds.register(fs)
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	user, err := a.signIn(ctx, c, creds)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s <%s> (%s)\n", user.Name, user.Email, user.Role)
	return nil
}

// credentials are the sign-in flags shared by creator commands.
type credentials struct {
	email    string
	password string
	demo     bool
}

func (cr *credentials) register(fs *flag.FlagSet) {
	fs.StringVar(&cr.email, "email", "", "account email")
	fs.StringVar(&cr.password, "password", "", "account password")
	fs.BoolVar(&cr.demo, "demo", false, "sign in as the demo creator")
}

func (cr credentials) given() bool {
	return cr.demo || cr.email != "" || cr.password != ""
}

func (a *app) signIn(ctx context.Context, c *client, creds credentials) (models.User, error) {
	if creds.demo {
		state := c.session.DemoLogin()
		return *state.User, nil
	}
	if !creds.given() {
		fmt.Fprintln(a.out, "Sign in with --email and --password, or use --demo.")
		return models.User{}, ErrSignInRequired
	}

	state, err := c.session.Login(ctx, creds.email, creds.password)
	if err != nil {
		return models.User{}, a.fail(ctx, "Login failed", err)
	}
	if !state.IsAuthenticated || state.User == nil {
		return models.User{}, ErrSignInRequired
	}
	return *state.User, nil
}

// fail logs err and prints the user-facing message for it. The error is
// returned unchanged so the process exits non-zero.
func (a *app) fail(ctx context.Context, message string, err error) error {
	logging.FromContext(ctx).Error(strings.ToLower(message), "error", err)
	fmt.Fprintln(a.out, userMessage(message, err))
	return err
}

func userMessage(message string, err error) string {
	var validation *videos.ValidationError
	switch {
	case errors.As(err, &validation):
		return message + ": " + strings.TrimPrefix(validation.Error(), "validation failed: ")
	case errors.Is(err, videos.ErrInvalidCredentials):
		return message + ": please enter your email and password."
	case errors.Is(err, videos.ErrNotFound):
		return message + ": video not found."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return message + ": request cancelled."
	default:
		return message + ". Please try again."
	}
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

// parseArgs parses flags that may appear before, between or after the
// positional arguments, returning the positionals in order.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

func splitPeople(raw string) []string {
	people := make([]string, 0)
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			people = append(people, p)
		}
	}
	return people
}

// videoTypes covers clip formats missing from the platform mime tables.
var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
}

func contentTypeFor(path, override string) string {
	if override != "" {
		return override
	}
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := videoTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

func (a *app) writeVideo(v models.Video, now time.Time) {
	creator := v.CreatorName
	if creator == "" {
		creator = "Unknown creator"
	}
	fmt.Fprintf(a.out, "%-10s %s\n", v.ID, v.Title)
	fmt.Fprintf(a.out, "%-10s %s · %s views · %s likes · %s\n", "", creator,
		format.Number(v.Views), format.Number(v.Likes), format.TimeAgo(v.CreatedAt, now))
}

func (a *app) writeDetails(v models.Video) {
	a.writeVideo(v, a.clock.Now())
	if v.Caption != "" {
		fmt.Fprintf(a.out, "  %s\n", v.Caption)
	}
	if v.Location != "" {
		fmt.Fprintf(a.out, "  at %s\n", v.Location)
	}
	if len(v.People) > 0 {
		fmt.Fprintf(a.out, "  with %s\n", strings.Join(v.People, ", "))
	}
	fmt.Fprintf(a.out, "  %s comments · rated %.1f\n", format.Number(v.Comments), v.Rating)
}

func (a *app) writeDashboard(library *feed.Library) {
	for _, line := range library.Stats().Summary() {
		fmt.Fprintln(a.out, line)
	}
	now := a.clock.Now()
	for _, v := range feed.Sort(library.Videos(), feed.ModeLatest) {
		a.writeVideo(v, now)
	}
}

func (a *app) writeComments(comments []models.Comment) {
	if len(comments) == 0 {
		fmt.Fprintln(a.out, "No comments yet.")
		return
	}
	now := a.clock.Now()
	for _, cm := range comments {
		fmt.Fprintf(a.out, "%s · %s\n  %s\n", cm.UserName, format.TimeAgo(cm.CreatedAt, now), cm.Content)
	}
}
