package videos

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vidfriends/clips/internal/models"
)

var seedCommenter = models.User{
	ID:     "user1",
	Name:   "John Doe",
	Avatar: "https://images.unsplash.com/photo-1599566150163-29194dcabd36?w=50",
	Role:   models.RoleConsumer,
}

// Engagement keeps comments and ratings in memory. The backend has no
// endpoints for them yet, so both sources share this store.
type Engagement struct {
	now func() time.Time

	mu       sync.Mutex
	comments map[string][]models.Comment
	ratings  map[string]float64
	likes    map[string]int64
}

// NewEngagement returns an empty store.
func NewEngagement() *Engagement {
	return &Engagement{
		now:      func() time.Time { return time.Now().UTC() },
		comments: make(map[string][]models.Comment),
		ratings:  make(map[string]float64),
		likes:    make(map[string]int64),
	}
}

// ListComments returns the thread for a video, newest first. A thread read
// for the first time is seeded with a single welcome comment.
func (e *Engagement) ListComments(_ context.Context, videoID string) ([]models.Comment, error) {
	if strings.TrimSpace(videoID) == "" {
		return nil, missing("videoId")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	thread := e.threadLocked(videoID)
	out := make([]models.Comment, len(thread))
	copy(out, thread)
	return out, nil
}

// PostComment records a comment by author and returns it.
func (e *Engagement) PostComment(_ context.Context, videoID, content string, author models.User) (models.Comment, error) {
	if strings.TrimSpace(videoID) == "" {
		return models.Comment{}, missing("videoId")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Comment{}, missing("content")
	}

	comment := models.Comment{
		ID:         "c" + uuid.NewString(),
		VideoID:    videoID,
		UserID:     author.ID,
		UserName:   author.Name,
		UserAvatar: author.Avatar,
		Content:    content,
		CreatedAt:  e.now(),
	}

	e.mu.Lock()
	e.comments[videoID] = append([]models.Comment{comment}, e.threadLocked(videoID)...)
	e.mu.Unlock()

	return comment, nil
}

// threadLocked returns the thread for videoID, seeding it with a single
// welcome comment the first time it is touched.
func (e *Engagement) threadLocked(videoID string) []models.Comment {
	if thread, ok := e.comments[videoID]; ok {
		return thread
	}
	thread := []models.Comment{{
		ID:         "c1",
		VideoID:    videoID,
		UserID:     seedCommenter.ID,
		UserName:   seedCommenter.Name,
		UserAvatar: seedCommenter.Avatar,
		Content:    "This is amazing!",
		CreatedAt:  e.now(),
	}}
	e.comments[videoID] = thread
	return thread
}

// RateVideo records a 0-5 rating for a video.
func (e *Engagement) RateVideo(_ context.Context, videoID string, rating float64) (models.RatingResult, error) {
	if strings.TrimSpace(videoID) == "" {
		return models.RatingResult{}, missing("videoId")
	}
	if math.IsNaN(rating) || rating < 0 || rating > 5 {
		return models.RatingResult{}, &ValidationError{Field: "rating", Reason: "must be between 0 and 5"}
	}

	e.mu.Lock()
	e.ratings[videoID] = rating
	e.mu.Unlock()

	return models.RatingResult{VideoID: videoID, Rating: rating, Success: true}, nil
}

// LikeVideo records a like and returns the number of likes recorded locally
// for the video.
func (e *Engagement) LikeVideo(_ context.Context, videoID string) (int64, error) {
	if strings.TrimSpace(videoID) == "" {
		return 0, missing("videoId")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.likes[videoID]++
	return e.likes[videoID], nil
}
