package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vidfriends/clips/internal/models"
)

func sample() []models.Video {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return []models.Video{
		{ID: "a", Likes: 10, Views: 500, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "b", Likes: 30, Views: 100, CreatedAt: now.Add(-1 * time.Hour)},
		{ID: "c", Likes: 10, Views: 900, CreatedAt: now.Add(-3 * time.Hour)},
	}
}

func ids(videos []models.Video) string {
	out := ""
	for _, v := range videos {
		out += v.ID
	}
	return out
}

func TestSort(t *testing.T) {
	tests := []struct {
		mode Mode
		want string
	}{
		{ModeTrending, "bac"},
		{ModeLatest, "bac"},
		{ModePopular, "cab"},
		{Mode("bogus"), "bac"},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			in := sample()
			got := Sort(in, tt.mode)
			if ids(got) != tt.want {
				t.Fatalf("Sort(%s) = %s, want %s", tt.mode, ids(got), tt.want)
			}
			if ids(in) != "abc" {
				t.Fatalf("input reordered: %s", ids(in))
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeTrending, "Latest": ModeLatest, " popular ": ModePopular} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMode("random"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestStats(t *testing.T) {
	stats := Stats(sample())
	if stats.Videos != 3 || stats.Views != 1500 || stats.Likes != 50 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if got := stats.Engagement(); got < 3.33 || got > 3.34 {
		t.Fatalf("unexpected engagement %v", got)
	}
	if got := Stats(nil).Engagement(); got != 0 {
		t.Fatalf("expected zero engagement, got %v", got)
	}

	summary := stats.Summary()
	if len(summary) != 4 || summary[1] != "Total Views: 1.5K" || summary[3] != "Engagement: 3.3%" {
		t.Fatalf("unexpected summary %v", summary)
	}
}

type posterStub struct {
	err    error
	calls  int
	during func()
}

func (p *posterStub) PostComment(ctx context.Context, videoID, content string) (models.Comment, error) {
	_ = ctx
	p.calls++
	if p.during != nil {
		p.during()
	}
	if p.err != nil {
		return models.Comment{}, p.err
	}
	return models.Comment{ID: "c-server", VideoID: videoID, Content: content, UserID: "u1"}, nil
}

func TestCommentThreadPostSuccess(t *testing.T) {
	loaded := []models.Comment{{ID: "c1", Content: "first"}}
	poster := &posterStub{}
	thread := NewCommentThread("v1", loaded, poster, func() models.User { return models.User{ID: "u1", Name: "Ana"} })

	var duringIDs []string
	poster.during = func() {
		for _, c := range thread.Comments() {
			duringIDs = append(duringIDs, c.ID)
		}
	}

	saved, err := thread.Post(context.Background(), "nice")
	if err != nil {
		t.Fatalf("Post returned error: %v", err)
	}
	if len(duringIDs) != 2 || duringIDs[1] != "c1" || duringIDs[0] == "c1" {
		t.Fatalf("expected pending comment shown first while in flight, got %v", duringIDs)
	}

	comments := thread.Comments()
	if len(comments) != 2 || comments[0].ID != saved.ID || comments[0].ID != "c-server" {
		t.Fatalf("expected server record in place of pending, got %+v", comments)
	}
}

func TestCommentThreadPostRollback(t *testing.T) {
	loaded := []models.Comment{{ID: "c1", Content: "first"}}
	poster := &posterStub{err: errors.New("offline")}
	thread := NewCommentThread("v1", loaded, poster, nil)

	if _, err := thread.Post(context.Background(), "nice"); err == nil {
		t.Fatal("expected error")
	}
	comments := thread.Comments()
	if len(comments) != 1 || comments[0].ID != "c1" {
		t.Fatalf("expected thread restored, got %+v", comments)
	}
}

type engagerStub struct {
	likeErr   error
	rateErr   error
	rateOK    bool
	likeCalls int
}

func (e *engagerStub) LikeVideo(ctx context.Context, videoID string) error {
	_ = ctx
	e.likeCalls++
	return e.likeErr
}

func (e *engagerStub) RateVideo(ctx context.Context, videoID string, rating float64) (models.RatingResult, error) {
	_ = ctx
	if e.rateErr != nil {
		return models.RatingResult{}, e.rateErr
	}
	return models.RatingResult{VideoID: videoID, Rating: rating, Success: e.rateOK}, nil
}

func TestReactionsLike(t *testing.T) {
	engager := &engagerStub{}
	r := NewReactions(models.Video{ID: "v1", Likes: 7}, engager)

	if err := r.Like(context.Background()); err != nil {
		t.Fatalf("Like returned error: %v", err)
	}
	if likes, liked := r.Likes(); likes != 8 || !liked {
		t.Fatalf("expected 8 likes, got %d liked=%v", likes, liked)
	}
	if err := r.Like(context.Background()); err != nil {
		t.Fatalf("second Like returned error: %v", err)
	}
	if likes, _ := r.Likes(); likes != 8 || engager.likeCalls != 1 {
		t.Fatalf("expected repeat like ignored, likes=%d calls=%d", likes, engager.likeCalls)
	}
}

func TestReactionsLikeRollback(t *testing.T) {
	r := NewReactions(models.Video{ID: "v1", Likes: 7}, &engagerStub{likeErr: errors.New("offline")})

	if err := r.Like(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if likes, liked := r.Likes(); likes != 7 || liked {
		t.Fatalf("expected rollback to 7, got %d liked=%v", likes, liked)
	}
}

func TestReactionsRate(t *testing.T) {
	r := NewReactions(models.Video{ID: "v1", Rating: 3.5}, &engagerStub{rateOK: true})
	if _, err := r.Rate(context.Background(), 5); err != nil {
		t.Fatalf("Rate returned error: %v", err)
	}
	if r.Rating() != 5 {
		t.Fatalf("expected rating 5, got %v", r.Rating())
	}

	rejected := NewReactions(models.Video{ID: "v1", Rating: 3.5}, &engagerStub{rateOK: false})
	if _, err := rejected.Rate(context.Background(), 1); !errors.Is(err, ErrRatingRejected) {
		t.Fatalf("expected ErrRatingRejected, got %v", err)
	}
	if rejected.Rating() != 3.5 {
		t.Fatalf("expected rating restored, got %v", rejected.Rating())
	}

	failing := NewReactions(models.Video{ID: "v1", Rating: 2}, &engagerStub{rateErr: errors.New("offline")})
	if _, err := failing.Rate(context.Background(), 4); err == nil {
		t.Fatal("expected error")
	}
	if failing.Rating() != 2 {
		t.Fatalf("expected rating restored, got %v", failing.Rating())
	}
}

func TestLibraryAppend(t *testing.T) {
	lib := NewLibrary(sample())
	lib.Append(models.Video{ID: "d", Views: 10})
	lib.Append(models.Video{ID: "a", Views: 1})

	videos := lib.Videos()
	if ids(videos) != "abcd" {
		t.Fatalf("unexpected library %s", ids(videos))
	}
	if videos[0].Views != 1 {
		t.Fatalf("expected existing entry replaced, got %+v", videos[0])
	}
	if stats := lib.Stats(); stats.Videos != 4 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
