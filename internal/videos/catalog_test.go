package videos

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vidfriends/clips/internal/models"
)

type countingSource struct {
	*MemorySource
	fetches int
	err     error
}

func (s *countingSource) FetchVideos(ctx context.Context) ([]models.Video, error) {
	s.fetches++
	if s.err != nil {
		return nil, s.err
	}
	return s.MemorySource.FetchVideos(ctx)
}

func newTestCatalog(t *testing.T, seed []models.Video, opts ...Option) (*Catalog, *countingSource) {
	t.Helper()
	source := &countingSource{MemorySource: NewMemorySource(0, seed)}
	return NewCatalog(source, opts...), source
}

func TestListVideosValidatesPaging(t *testing.T) {
	catalog, source := newTestCatalog(t, SeedVideos(time.Now()))

	for _, tc := range []struct {
		page, limit int
		field       string
	}{
		{0, 10, "page"},
		{-1, 10, "page"},
		{1, 0, "limit"},
	} {
		_, err := catalog.ListVideos(context.Background(), tc.page, tc.limit)
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.Field != tc.field {
			t.Fatalf("page=%d limit=%d: expected validation error on %s, got %v", tc.page, tc.limit, tc.field, err)
		}
	}
	if source.fetches != 0 {
		t.Fatalf("expected no fetch for invalid paging, got %d", source.fetches)
	}
}

func TestListVideosReturnsFullCollection(t *testing.T) {
	catalog, _ := newTestCatalog(t, SeedVideos(time.Now()))

	first, err := catalog.ListVideos(context.Background(), 2, 1)
	if err != nil {
		t.Fatalf("ListVideos returned error: %v", err)
	}
	if first.Total != 3 || len(first.Videos) != 3 || first.HasMore {
		t.Fatalf("unexpected page %+v", first)
	}
	if first.Page != 2 || first.Limit != 1 {
		t.Fatalf("expected paging to be echoed, got page=%d limit=%d", first.Page, first.Limit)
	}

	second, err := catalog.ListVideos(context.Background(), 2, 1)
	if err != nil {
		t.Fatalf("second ListVideos returned error: %v", err)
	}
	for i := range first.Videos {
		if first.Videos[i].ID != second.Videos[i].ID {
			t.Fatalf("order changed between reads: %s vs %s", first.Videos[i].ID, second.Videos[i].ID)
		}
	}
}

func TestListVideosSurfacesNetworkError(t *testing.T) {
	catalog, source := newTestCatalog(t, nil)
	source.err = &NetworkError{Status: 503, Body: "unavailable"}

	_, err := catalog.ListVideos(context.Background(), 1, 10)
	var netErr *NetworkError
	if !errors.As(err, &netErr) || netErr.Body != "unavailable" {
		t.Fatalf("expected NetworkError with body, got %v", err)
	}
}

func TestGetVideo(t *testing.T) {
	catalog, _ := newTestCatalog(t, SeedVideos(time.Now()))

	video, err := catalog.GetVideo(context.Background(), "v2")
	if err != nil {
		t.Fatalf("GetVideo returned error: %v", err)
	}
	if video.Title != "Street food tour" {
		t.Fatalf("unexpected video %+v", video)
	}

	if _, err := catalog.GetVideo(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSearchVideos(t *testing.T) {
	catalog, source := newTestCatalog(t, SeedVideos(time.Now()))

	for _, q := range []string{"", "   "} {
		res, err := catalog.SearchVideos(context.Background(), q)
		if err != nil {
			t.Fatalf("SearchVideos(%q) returned error: %v", q, err)
		}
		if res.Total != 0 || len(res.Videos) != 0 {
			t.Fatalf("SearchVideos(%q) expected no results, got %+v", q, res)
		}
	}
	if source.fetches != 0 {
		t.Fatalf("blank query must not fetch, got %d fetches", source.fetches)
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"SUNSET", []string{"v1"}},
		{"taipei", []string{"v2"}},
		{"dawn", []string{"v3"}},
		{"@lin", []string{"v2"}},
		{"zzz-no-match", nil},
	}
	for _, tt := range tests {
		res, err := catalog.SearchVideos(context.Background(), tt.query)
		if err != nil {
			t.Fatalf("SearchVideos(%q) returned error: %v", tt.query, err)
		}
		if res.Total != len(tt.want) || len(res.Videos) != len(tt.want) {
			t.Fatalf("SearchVideos(%q) expected %v, got %+v", tt.query, tt.want, res)
		}
		for i, id := range tt.want {
			if res.Videos[i].ID != id {
				t.Fatalf("SearchVideos(%q)[%d] = %s, want %s", tt.query, i, res.Videos[i].ID, id)
			}
		}
	}
}

func TestListCreatorVideos(t *testing.T) {
	catalog, _ := newTestCatalog(t, SeedVideos(time.Now()))

	videos, err := catalog.ListCreatorVideos(context.Background(), DemoCreator.ID)
	if err != nil {
		t.Fatalf("ListCreatorVideos returned error: %v", err)
	}
	if len(videos) != 2 || videos[0].ID != "v1" || videos[1].ID != "v3" {
		t.Fatalf("unexpected creator videos %+v", videos)
	}

	none, err := catalog.ListCreatorVideos(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("ListCreatorVideos returned error: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no videos for unknown creator, got %d", len(none))
	}
}

func TestListCreatorVideosFallsBackWithoutAttribution(t *testing.T) {
	seed := []models.Video{{ID: "a", Title: "A"}, {ID: "b", Title: "B"}}
	catalog, _ := newTestCatalog(t, seed)

	videos, err := catalog.ListCreatorVideos(context.Background(), "creator1")
	if err != nil {
		t.Fatalf("ListCreatorVideos returned error: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("expected unfiltered collection, got %d", len(videos))
	}
}

func TestUploadVideoAppearsInListings(t *testing.T) {
	user := DemoCreator
	catalog, source := newTestCatalog(t, SeedVideos(time.Now()), WithIdentity(func() *models.User { return &user }))

	draft := models.UploadDraft{
		Title:   "T",
		Caption: "C",
		File:    &models.UploadFile{Name: "clip.mp4", Type: "video/mp4", Content: strings.NewReader("data")},
	}
	video, err := catalog.UploadVideo(context.Background(), draft, "")
	if err != nil {
		t.Fatalf("UploadVideo returned error: %v", err)
	}
	if video.Title != "T" || video.Caption != "C" || video.CreatorID != user.ID {
		t.Fatalf("unexpected uploaded video %+v", video)
	}
	if data, ok := source.Object(video.S3Key); !ok || string(data) != "data" {
		t.Fatalf("expected object stored under %q", video.S3Key)
	}
	if source.Pending() != 0 {
		t.Fatalf("expected no pending reservations, got %d", source.Pending())
	}

	page, err := catalog.ListVideos(context.Background(), 1, 20)
	if err != nil {
		t.Fatalf("ListVideos returned error: %v", err)
	}
	if !containsID(page.Videos, video.ID) {
		t.Fatalf("uploaded video %s missing from listing", video.ID)
	}

	mine, err := catalog.ListCreatorVideos(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ListCreatorVideos returned error: %v", err)
	}
	if !containsID(mine, video.ID) {
		t.Fatalf("uploaded video %s missing from creator listing", video.ID)
	}
}

func TestUploadVideoNilFileMakesNoCalls(t *testing.T) {
	catalog, source := newTestCatalog(t, nil)

	_, err := catalog.UploadVideo(context.Background(), models.UploadDraft{Title: "T", Caption: "C"}, "creator1")
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "file" {
		t.Fatalf("expected file validation error, got %v", err)
	}
	if source.Pending() != 0 || source.fetches != 0 {
		t.Fatalf("expected no source activity, pending=%d fetches=%d", source.Pending(), source.fetches)
	}
}

func TestComments(t *testing.T) {
	user := models.User{ID: "u9", Name: "Sam"}
	catalog, _ := newTestCatalog(t, nil, WithIdentity(func() *models.User { return &user }))
	ctx := context.Background()

	seeded, err := catalog.ListComments(ctx, "v1")
	if err != nil {
		t.Fatalf("ListComments returned error: %v", err)
	}
	if len(seeded) != 1 || seeded[0].Content != "This is amazing!" {
		t.Fatalf("unexpected seeded thread %+v", seeded)
	}

	comment, err := catalog.PostComment(ctx, "v1", "  great clip ")
	if err != nil {
		t.Fatalf("PostComment returned error: %v", err)
	}
	if comment.Content != "great clip" || comment.UserID != "u9" || comment.VideoID != "v1" || comment.ID == "" {
		t.Fatalf("unexpected comment %+v", comment)
	}

	thread, err := catalog.ListComments(ctx, "v1")
	if err != nil {
		t.Fatalf("ListComments returned error: %v", err)
	}
	if len(thread) != 2 || thread[0].ID != comment.ID {
		t.Fatalf("expected new comment first, got %+v", thread)
	}

	var vErr *ValidationError
	if _, err := catalog.PostComment(ctx, "v1", "   "); !errors.As(err, &vErr) || vErr.Field != "content" {
		t.Fatalf("expected content validation error, got %v", err)
	}
}

func TestPostCommentWithoutIdentityUsesDemoCreator(t *testing.T) {
	catalog, _ := newTestCatalog(t, nil)

	comment, err := catalog.PostComment(context.Background(), "v1", "hi")
	if err != nil {
		t.Fatalf("PostComment returned error: %v", err)
	}
	if comment.UserID != DemoCreator.ID {
		t.Fatalf("expected demo creator author, got %q", comment.UserID)
	}
}

func TestRateVideo(t *testing.T) {
	catalog, _ := newTestCatalog(t, nil)

	res, err := catalog.RateVideo(context.Background(), "v1", 4.5)
	if err != nil {
		t.Fatalf("RateVideo returned error: %v", err)
	}
	if !res.Success || res.VideoID != "v1" || res.Rating != 4.5 {
		t.Fatalf("unexpected result %+v", res)
	}

	for _, bad := range []float64{-0.5, 5.5} {
		if _, err := catalog.RateVideo(context.Background(), "v1", bad); err == nil {
			t.Fatalf("expected rating %v to be rejected", bad)
		}
	}
}

func TestCatalogLoginUsesPlaceholder(t *testing.T) {
	catalog, _ := newTestCatalog(t, nil)

	res, err := catalog.Login(context.Background(), "a@b.c", "pw")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if res.User.ID != DemoCreator.ID || res.Token == "" {
		t.Fatalf("unexpected login result %+v", res)
	}

	if _, err := catalog.Login(context.Background(), "", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	out, err := catalog.Logout(context.Background(), "")
	if err != nil || !out.Success {
		t.Fatalf("unexpected logout result %+v, %v", out, err)
	}
}

func containsID(videos []models.Video, id string) bool {
	for _, v := range videos {
		if v.ID == id {
			return true
		}
	}
	return false
}
