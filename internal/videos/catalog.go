package videos

import (
	"context"
	"fmt"
	"strings"

	"github.com/vidfriends/clips/internal/logging"
	"github.com/vidfriends/clips/internal/models"
)

// Catalog is the data access surface used by the view layer. Every read
// fetches the full collection from the source and works on it locally.
type Catalog struct {
	source     Source
	uploader   *Uploader
	engagement *Engagement
	auth       Authenticator
	identity   func() *models.User
}

// Option customises a Catalog.
type Option func(*Catalog)

// WithAuthenticator replaces the placeholder authenticator.
func WithAuthenticator(auth Authenticator) Option {
	return func(c *Catalog) {
		if auth != nil {
			c.auth = auth
		}
	}
}

// WithEngagement shares a comments and ratings store between catalogs.
func WithEngagement(e *Engagement) Option {
	return func(c *Catalog) {
		if e != nil {
			c.engagement = e
		}
	}
}

// WithIdentity tells the catalog who is signed in. The author of posted
// comments is taken from it.
func WithIdentity(identity func() *models.User) Option {
	return func(c *Catalog) {
		c.identity = identity
	}
}

// NewCatalog wires a catalog over source.
func NewCatalog(source Source, opts ...Option) *Catalog {
	c := &Catalog{
		source:     source,
		uploader:   NewUploader(source),
		engagement: NewEngagement(),
		auth:       PlaceholderAuthenticator{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListVideos returns the whole collection. The backend does not paginate, so
// page and limit are validated and echoed but HasMore is always false.
func (c *Catalog) ListVideos(ctx context.Context, page, limit int) (models.VideoPage, error) {
	if page < 1 {
		return models.VideoPage{}, &ValidationError{Field: "page", Reason: "must be at least 1"}
	}
	if limit <= 0 {
		return models.VideoPage{}, &ValidationError{Field: "limit", Reason: "must be positive"}
	}

	all, err := c.source.FetchVideos(ctx)
	if err != nil {
		return models.VideoPage{}, fmt.Errorf("list videos: %w", err)
	}
	return models.VideoPage{
		Videos:  all,
		Page:    page,
		Limit:   limit,
		Total:   len(all),
		HasMore: false,
	}, nil
}

// GetVideo scans the collection for id.
func (c *Catalog) GetVideo(ctx context.Context, id string) (models.Video, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Video{}, missing("id")
	}

	all, err := c.source.FetchVideos(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("get video %s: %w", id, err)
	}
	for _, v := range all {
		if v.ID == id {
			return v, nil
		}
	}
	return models.Video{}, fmt.Errorf("get video %s: %w", id, ErrNotFound)
}

// SearchVideos matches query case-insensitively against title, caption,
// location and each tagged person. A blank query matches nothing and does
// not touch the source.
func (c *Catalog) SearchVideos(ctx context.Context, query string) (models.SearchResult, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return models.SearchResult{Videos: []models.Video{}, Total: 0}, nil
	}

	all, err := c.source.FetchVideos(ctx)
	if err != nil {
		return models.SearchResult{}, fmt.Errorf("search videos: %w", err)
	}

	matches := make([]models.Video, 0)
	for _, v := range all {
		if matchesQuery(v, needle) {
			matches = append(matches, v)
		}
	}
	return models.SearchResult{Videos: matches, Total: len(matches)}, nil
}

func matchesQuery(v models.Video, needle string) bool {
	haystack := strings.ToLower(v.Title + " " + v.Caption + " " + v.Location)
	if strings.Contains(haystack, needle) {
		return true
	}
	for _, p := range v.People {
		if strings.Contains(strings.ToLower(p), needle) {
			return true
		}
	}
	return false
}

// ListCreatorVideos filters the collection by creator. When no record in the
// collection carries a creator id at all, the unfiltered collection is
// returned instead.
func (c *Catalog) ListCreatorVideos(ctx context.Context, creatorID string) ([]models.Video, error) {
	all, err := c.source.FetchVideos(ctx)
	if err != nil {
		return nil, fmt.Errorf("list creator videos: %w", err)
	}

	attributed := false
	out := make([]models.Video, 0)
	for _, v := range all {
		if v.CreatorID != "" {
			attributed = true
		}
		if v.CreatorID == creatorID {
			out = append(out, v)
		}
	}
	if !attributed {
		logging.FromContext(ctx).Debug("no creator ids in collection, returning all videos", "creatorId", creatorID)
		return all, nil
	}
	return out, nil
}

// UploadVideo runs the three-step upload for the signed-in creator.
// creatorID overrides the identity when non-empty.
func (c *Catalog) UploadVideo(ctx context.Context, draft models.UploadDraft, creatorID string) (models.Video, error) {
	if creatorID == "" {
		if user := c.currentUser(); user != nil {
			creatorID = user.ID
		}
	}
	return c.uploader.Run(ctx, draft, creatorID)
}

// ListComments returns the comments for a video.
func (c *Catalog) ListComments(ctx context.Context, videoID string) ([]models.Comment, error) {
	return c.engagement.ListComments(ctx, videoID)
}

// PostComment adds a comment as the signed-in user, or as the demo creator
// when nobody is signed in.
func (c *Catalog) PostComment(ctx context.Context, videoID, content string) (models.Comment, error) {
	author := DemoCreator
	if user := c.currentUser(); user != nil {
		author = *user
	}
	return c.engagement.PostComment(ctx, videoID, content, author)
}

// RateVideo records a rating between 0 and 5.
func (c *Catalog) RateVideo(ctx context.Context, videoID string, rating float64) (models.RatingResult, error) {
	return c.engagement.RateVideo(ctx, videoID, rating)
}

// LikeVideo records a like. Likes are kept locally only.
func (c *Catalog) LikeVideo(ctx context.Context, videoID string) error {
	_, err := c.engagement.LikeVideo(ctx, videoID)
	return err
}

// Login implements Authenticator.
func (c *Catalog) Login(ctx context.Context, email, password string) (models.LoginResult, error) {
	return c.auth.Login(ctx, email, password)
}

// Logout implements Authenticator.
func (c *Catalog) Logout(ctx context.Context, refreshToken string) (models.LogoutResult, error) {
	return c.auth.Logout(ctx, refreshToken)
}

func (c *Catalog) currentUser() *models.User {
	if c.identity == nil {
		return nil
	}
	return c.identity()
}

var _ Authenticator = (*Catalog)(nil)
