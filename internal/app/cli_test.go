package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vidfriends/clips/internal/config"
	"github.com/vidfriends/clips/internal/logging"
	"github.com/vidfriends/clips/internal/videos"
)

func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	return &app{
		cfg:    config.Config{MockAPI: true},
		out:    out,
		logger: logging.New(io.Discard, "error"),
		clock:  clockwork.NewRealClock(),
	}, out
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a, out := newTestApp(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := a.run(ctx, args)
	return out.String(), err
}

func assertOrder(t *testing.T, output string, titles ...string) {
	t.Helper()
	last := -1
	for _, title := range titles {
		idx := strings.Index(output, title)
		if idx < 0 {
			t.Fatalf("expected %q in output:\n%s", title, output)
		}
		if idx < last {
			t.Fatalf("expected %q after previous titles in output:\n%s", title, output)
		}
		last = idx
	}
}

func TestRunRequiresCommand(t *testing.T) {
	if _, err := runCommand(t); !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if _, err := runCommand(t, "dance"); !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error for unknown command, got %v", err)
	}

	out, err := runCommand(t, "help")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	if !strings.Contains(out, "upload") || !strings.Contains(out, "watch") {
		t.Fatalf("expected client commands listed, got %q", out)
	}
}

func TestFeedSortModes(t *testing.T) {
	tests := []struct {
		sort   string
		titles []string
	}{
		{sort: "trending", titles: []string{"Morning surf check", "Sunset over the bay", "Street food tour"}},
		{sort: "popular", titles: []string{"Street food tour", "Sunset over the bay", "Morning surf check"}},
		{sort: "latest", titles: []string{"Morning surf check", "Sunset over the bay", "Street food tour"}},
	}

	for _, tt := range tests {
		t.Run(tt.sort, func(t *testing.T) {
			out, err := runCommand(t, "feed", "--sort", tt.sort)
			if err != nil {
				t.Fatalf("feed: %v", err)
			}
			assertOrder(t, out, tt.titles...)
		})
	}
}

func TestFeedRejectsUnknownSort(t *testing.T) {
	if _, err := runCommand(t, "feed", "--sort", "random"); err == nil {
		t.Fatal("expected error for unknown sort mode")
	}
}

func TestFeedLimit(t *testing.T) {
	out, err := runCommand(t, "feed", "--limit", "1")
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if !strings.Contains(out, "Morning surf check") || strings.Contains(out, "Street food tour") {
		t.Fatalf("expected only the top video, got:\n%s", out)
	}
}

func TestSearch(t *testing.T) {
	out, err := runCommand(t, "search", "@lin")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, "1 results") || !strings.Contains(out, "Street food tour") {
		t.Fatalf("unexpected search output:\n%s", out)
	}

	out, err = runCommand(t, "search", "   ")
	if err != nil {
		t.Fatalf("blank search: %v", err)
	}
	if !strings.Contains(out, "No results") {
		t.Fatalf("expected no results for blank query, got:\n%s", out)
	}
}

func TestWatchUnknownVideoFallsBackToFeed(t *testing.T) {
	out, err := runCommand(t, "watch", "missing")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if !strings.Contains(out, "Video not found") {
		t.Fatalf("expected not found message, got:\n%s", out)
	}
	assertOrder(t, out, "Video not found", "Morning surf check", "Sunset over the bay")
}

func TestWatchPlaysUntilEnded(t *testing.T) {
	out, err := runCommand(t, "watch", "v1", "--duration", "600ms", "--interval", "50ms")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if !strings.Contains(out, "Sunset over the bay") || !strings.Contains(out, "Golden hour never disappoints") {
		t.Fatalf("expected video details, got:\n%s", out)
	}
	if !strings.Contains(out, "ended") {
		t.Fatalf("expected playback to end, got:\n%s", out)
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	a, out := newTestApp(t)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := a.run(ctx, []string{"watch", "v1", "--duration", "1m", "--interval", "50ms"}); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if !strings.Contains(out.String(), "stopped at") {
		t.Fatalf("expected stop message, got:\n%s", out.String())
	}
}

func TestWatchRejectsBadArguments(t *testing.T) {
	if _, err := runCommand(t, "watch"); err == nil {
		t.Fatal("expected usage error without id")
	}
	if _, err := runCommand(t, "watch", "v1", "--duration", "0s"); err == nil {
		t.Fatal("expected error for zero duration")
	}
}

func TestCreatorDashboard(t *testing.T) {
	out, err := runCommand(t, "creator", videos.DemoCreator.ID)
	if err != nil {
		t.Fatalf("creator: %v", err)
	}
	if !strings.Contains(out, "Total Videos: 2") {
		t.Fatalf("expected two demo creator videos, got:\n%s", out)
	}
	if strings.Contains(out, "Street food tour") {
		t.Fatalf("expected other creators filtered out, got:\n%s", out)
	}

	out, err = runCommand(t, "creator", "--demo")
	if err != nil || !strings.Contains(out, "Total Videos: 2") {
		t.Fatalf("expected demo sign-in to pick the creator, got %v:\n%s", err, out)
	}

	if _, err := runCommand(t, "creator"); !errors.Is(err, ErrSignInRequired) {
		t.Fatalf("expected sign in required, got %v", err)
	}
}

func writeClip(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("fake video bytes"), 0o600); err != nil {
		t.Fatalf("write clip: %v", err)
	}
	return path
}

func TestUploadAsDemoCreator(t *testing.T) {
	path := writeClip(t)

	out, err := runCommand(t, "upload", "--demo", "--file", path, "--title", "T", "--caption", "C", "--people", "@a, ,@b")
	if err != nil {
		t.Fatalf("upload: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Video uploaded successfully!") {
		t.Fatalf("expected success message, got:\n%s", out)
	}
	if !strings.Contains(out, "Total Videos: 3") {
		t.Fatalf("expected upload appended to creator library, got:\n%s", out)
	}
}

func TestUploadRequiresSignIn(t *testing.T) {
	path := writeClip(t)
	if _, err := runCommand(t, "upload", "--file", path, "--title", "T"); !errors.Is(err, ErrSignInRequired) {
		t.Fatalf("expected sign in required, got %v", err)
	}
}

func TestUploadWithoutFileFailsValidation(t *testing.T) {
	out, err := runCommand(t, "upload", "--demo", "--title", "T")
	var validation *videos.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(out, "Failed to upload video: file") {
		t.Fatalf("expected validation message, got:\n%s", out)
	}
}

func TestUploadUnreadableFile(t *testing.T) {
	out, err := runCommand(t, "upload", "--demo", "--title", "T", "--file", filepath.Join(t.TempDir(), "missing.mp4"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(out, "Could not read the selected file") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestLogin(t *testing.T) {
	out, err := runCommand(t, "login", "--email", "someone@example.com", "--password", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "Signed in as "+videos.DemoCreator.Name) {
		t.Fatalf("unexpected login output:\n%s", out)
	}

	out, err = runCommand(t, "login", "--email", "someone@example.com")
	if !errors.Is(err, videos.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if !strings.Contains(out, "Login failed") {
		t.Fatalf("expected failure message, got:\n%s", out)
	}
}

func TestCommentsAndComment(t *testing.T) {
	out, err := runCommand(t, "comments", "v1")
	if err != nil {
		t.Fatalf("comments: %v", err)
	}
	if strings.TrimSpace(out) == "" {
		t.Fatal("expected comment output")
	}

	out, err = runCommand(t, "comment", "v1", "--demo", "nice", "clip")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	assertOrder(t, out, videos.DemoCreator.Name, "nice clip")

	out, err = runCommand(t, "comment", "v1", "   ")
	if err == nil {
		t.Fatal("expected blank comment to fail")
	}
	if strings.Contains(out, "pending") {
		t.Fatalf("expected pending comment rolled back, got:\n%s", out)
	}
}

func TestRateAndLike(t *testing.T) {
	out, err := runCommand(t, "rate", "v1", "4")
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if !strings.Contains(out, "4.0/5") {
		t.Fatalf("unexpected rate output:\n%s", out)
	}

	out, err = runCommand(t, "rate", "v1", "7")
	var validation *videos.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(out, "Rating: 4.6") {
		t.Fatalf("expected rating rolled back, got:\n%s", out)
	}

	out, err = runCommand(t, "like", "v1")
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if !strings.Contains(out, "Liked \"Sunset over the bay\"") {
		t.Fatalf("unexpected like output:\n%s", out)
	}

	if _, err := runCommand(t, "like", "missing"); !errors.Is(err, videos.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestParseArgsInterspersed(t *testing.T) {
	a, _ := newTestApp(t)
	fs := a.flagSet("test")
	verbose := fs.Bool("v", false, "")
	name := fs.String("name", "", "")

	positional, err := parseArgs(fs, []string{"one", "-v", "two", "--name", "x", "three"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if strings.Join(positional, ",") != "one,two,three" || !*verbose || *name != "x" {
		t.Fatalf("unexpected parse result %v %v %q", positional, *verbose, *name)
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		path, override, want string
	}{
		{path: "clip.mp4", want: "video/mp4"},
		{path: "clip.bin", override: "video/webm", want: "video/webm"},
		{path: "clip", want: "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := contentTypeFor(tt.path, tt.override); got != tt.want {
			t.Fatalf("contentTypeFor(%q, %q) = %q, want %q", tt.path, tt.override, got, tt.want)
		}
	}
}
