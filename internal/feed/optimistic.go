package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vidfriends/clips/internal/logging"
	"github.com/vidfriends/clips/internal/models"
)

// CommentPoster persists a comment.
type CommentPoster interface {
	PostComment(ctx context.Context, videoID, content string) (models.Comment, error)
}

// CommentThread is the comment list shown under a video. New comments are
// shown before the backend confirms them and removed again if it refuses.
type CommentThread struct {
	videoID string
	poster  CommentPoster
	author  func() models.User

	mu       sync.Mutex
	comments []models.Comment
}

// NewCommentThread starts a thread from already loaded comments. author
// supplies the identity shown on a pending comment.
func NewCommentThread(videoID string, loaded []models.Comment, poster CommentPoster, author func() models.User) *CommentThread {
	comments := make([]models.Comment, len(loaded))
	copy(comments, loaded)
	return &CommentThread{
		videoID:  videoID,
		poster:   poster,
		author:   author,
		comments: comments,
	}
}

// Comments returns the thread as currently shown.
func (c *CommentThread) Comments() []models.Comment {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Comment, len(c.comments))
	copy(out, c.comments)
	return out
}

// Post prepends a pending comment, sends it, and then either swaps in the
// stored record or restores the thread to what it was before.
func (c *CommentThread) Post(ctx context.Context, content string) (models.Comment, error) {
	pending := models.Comment{
		ID:        "pending-" + uuid.NewString(),
		VideoID:   c.videoID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if c.author != nil {
		a := c.author()
		pending.UserID, pending.UserName, pending.UserAvatar = a.ID, a.Name, a.Avatar
	}

	c.mu.Lock()
	snapshot := c.comments
	c.comments = append([]models.Comment{pending}, snapshot...)
	c.mu.Unlock()

	saved, err := c.poster.PostComment(ctx, c.videoID, content)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.comments = removeComment(c.comments, pending.ID)
		logging.FromContext(ctx).Warn("comment rejected, rolled back", "videoId", c.videoID, "error", err)
		return models.Comment{}, fmt.Errorf("post comment: %w", err)
	}
	for i := range c.comments {
		if c.comments[i].ID == pending.ID {
			c.comments[i] = saved
			break
		}
	}
	return saved, nil
}

func removeComment(comments []models.Comment, id string) []models.Comment {
	out := make([]models.Comment, 0, len(comments))
	for _, cm := range comments {
		if cm.ID != id {
			out = append(out, cm)
		}
	}
	return out
}

// Engager records likes and ratings.
type Engager interface {
	LikeVideo(ctx context.Context, videoID string) error
	RateVideo(ctx context.Context, videoID string, rating float64) (models.RatingResult, error)
}

// Reactions holds the like count and rating shown for one video.
type Reactions struct {
	videoID string
	engager Engager

	mu     sync.Mutex
	likes  int64
	rating float64
	liked  bool
}

// NewReactions starts from the counters on video.
func NewReactions(video models.Video, engager Engager) *Reactions {
	return &Reactions{
		videoID: video.ID,
		engager: engager,
		likes:   video.Likes,
		rating:  video.Rating,
	}
}

// Likes returns the displayed like count and whether this viewer liked it.
func (r *Reactions) Likes() (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.likes, r.liked
}

// Rating returns the displayed rating.
func (r *Reactions) Rating() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rating
}

// Like bumps the count at once and undoes it if the call fails. A second
// like from the same viewer is ignored.
func (r *Reactions) Like(ctx context.Context) error {
	r.mu.Lock()
	if r.liked {
		r.mu.Unlock()
		return nil
	}
	r.likes++
	r.liked = true
	r.mu.Unlock()

	if err := r.engager.LikeVideo(ctx, r.videoID); err != nil {
		r.mu.Lock()
		r.likes--
		r.liked = false
		r.mu.Unlock()
		logging.FromContext(ctx).Warn("like rejected, rolled back", "videoId", r.videoID, "error", err)
		return fmt.Errorf("like video: %w", err)
	}
	return nil
}

// ErrRatingRejected is returned when the backend answers a rating without
// confirming it.
var ErrRatingRejected = errors.New("rating not accepted")

// Rate shows rating at once and restores the previous value if the call
// fails or is not confirmed.
func (r *Reactions) Rate(ctx context.Context, rating float64) (models.RatingResult, error) {
	r.mu.Lock()
	previous := r.rating
	r.rating = rating
	r.mu.Unlock()

	res, err := r.engager.RateVideo(ctx, r.videoID, rating)
	if err == nil && !res.Success {
		err = ErrRatingRejected
	}
	if err != nil {
		r.mu.Lock()
		if r.rating == rating {
			r.rating = previous
		}
		r.mu.Unlock()
		logging.FromContext(ctx).Warn("rating rejected, rolled back", "videoId", r.videoID, "error", err)
		return models.RatingResult{}, fmt.Errorf("rate video: %w", err)
	}
	return res, nil
}
