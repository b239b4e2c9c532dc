package videos

import (
	"context"
	"fmt"
	"io"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vidfriends/clips/internal/models"
)

// MemorySource is the mock backend: an in-memory collection behind a
// synthetic delay. Uploads go through the same three steps as the HTTP
// source so the orchestrator behaves identically in both modes.
type MemorySource struct {
	latency time.Duration
	now     func() time.Time
	creator models.User

	mu        sync.RWMutex
	videos    []models.Video
	pending   map[string]UploadTarget
	objects   map[string][]byte
	byIdemKey map[string]string
}

// NewMemorySource returns a mock source seeded with videos.
func NewMemorySource(latency time.Duration, seed []models.Video) *MemorySource {
	if latency < 0 {
		latency = 0
	}
	videos := make([]models.Video, len(seed))
	copy(videos, seed)
	return &MemorySource{
		latency:   latency,
		now:       func() time.Time { return time.Now().UTC() },
		creator:   DemoCreator,
		videos:    videos,
		pending:   make(map[string]UploadTarget),
		objects:   make(map[string][]byte),
		byIdemKey: make(map[string]string),
	}
}

// FetchVideos returns a copy of the collection in insertion order.
func (m *MemorySource) FetchVideos(ctx context.Context) ([]models.Video, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Video, len(m.videos))
	copy(out, m.videos)
	return out, nil
}

// RequestUploadTarget allocates an identity and an in-memory object key.
func (m *MemorySource) RequestUploadTarget(ctx context.Context, req UploadTargetRequest, idempotencyKey string) (UploadTarget, error) {
	if err := m.wait(ctx); err != nil {
		return UploadTarget{}, err
	}
	if req.FileName == "" {
		return UploadTarget{}, &NetworkError{Status: 400, Body: `{"error":"fileName is required"}`}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byIdemKey[idempotencyKey]; ok && idempotencyKey != "" {
		if target, ok := m.pending[id]; ok {
			return target, nil
		}
	}

	id := uuid.NewString()
	key := path.Join("videos", id, path.Base(req.FileName))
	target := UploadTarget{
		UploadURL: "memory://" + key,
		VideoID:   id,
		Key:       key,
		VideoURL:  "memory://" + key,
	}
	m.pending[id] = target
	if idempotencyKey != "" {
		m.byIdemKey[idempotencyKey] = id
	}
	return target, nil
}

// TransferObject stores the file bytes under the target key.
func (m *MemorySource) TransferObject(ctx context.Context, target UploadTarget, file *models.UploadFile) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	data, err := io.ReadAll(file.Content)
	if err != nil {
		return &NetworkError{Err: fmt.Errorf("read upload: %w", err)}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pending[target.VideoID]; !ok {
		return &NetworkError{Status: 403, Body: "upload url expired or unknown"}
	}
	m.objects[target.Key] = data
	return nil
}

// SaveMetadata turns a pending upload into a listed video.
func (m *MemorySource) SaveMetadata(ctx context.Context, req MetadataRequest, _ string) (models.Video, error) {
	if err := m.wait(ctx); err != nil {
		return models.Video{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, v := range m.videos {
		if v.ID == req.VideoID {
			return v, nil
		}
	}
	target, ok := m.pending[req.VideoID]
	if !ok {
		return models.Video{}, &NetworkError{Status: 404, Body: `{"error":"unknown videoId"}`}
	}
	if _, ok := m.objects[target.Key]; !ok {
		return models.Video{}, &NetworkError{Status: 409, Body: `{"error":"object not uploaded"}`}
	}

	video := models.Video{
		ID:        req.VideoID,
		Title:     req.Title,
		Caption:   req.Caption,
		Location:  req.Location,
		VideoURL:  req.VideoURL,
		People:    cleanHandles(req.People),
		CreatorID: req.CreatorID,
		CreatedAt: m.now(),
		S3Key:     req.S3Key,
	}
	if req.CreatorID == m.creator.ID {
		video.CreatorName = m.creator.Name
		video.CreatorAvatar = m.creator.Avatar
	}
	m.videos = append(m.videos, video)
	delete(m.pending, req.VideoID)
	return video, nil
}

// AbandonUpload drops a pending identity and its object.
func (m *MemorySource) AbandonUpload(ctx context.Context, target UploadTarget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, target.VideoID)
	delete(m.objects, target.Key)
	return nil
}

// Object returns stored bytes for a key. Useful for tests.
func (m *MemorySource) Object(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	return data, ok
}

// Pending reports how many allocated identities have not been registered.
func (m *MemorySource) Pending() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pending)
}

func (m *MemorySource) wait(ctx context.Context) error {
	if m.latency <= 0 {
		if err := ctx.Err(); err != nil {
			return &NetworkError{Err: err}
		}
		return nil
	}
	timer := time.NewTimer(m.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return &NetworkError{Err: ctx.Err()}
	case <-timer.C:
		return nil
	}
}

// SeedVideos is the catalogue the mock source starts with.
func SeedVideos(now time.Time) []models.Video {
	return []models.Video{
		{
			ID:            "v1",
			Title:         "Sunset over the bay",
			Caption:       "Golden hour never disappoints",
			VideoURL:      "https://cdn.example.com/videos/v1.mp4",
			ThumbnailURL:  "https://cdn.example.com/thumbs/v1.jpg",
			Location:      "San Francisco",
			People:        []string{"@maya"},
			CreatorID:     DemoCreator.ID,
			CreatorName:   DemoCreator.Name,
			CreatorAvatar: DemoCreator.Avatar,
			Views:         15200,
			Likes:         1200,
			Comments:      48,
			Rating:        4.6,
			CreatedAt:     now.Add(-3 * time.Hour),
		},
		{
			ID:          "v2",
			Title:       "Street food tour",
			Caption:     "Five dumplings, one afternoon",
			VideoURL:    "https://cdn.example.com/videos/v2.mp4",
			Location:    "Taipei",
			People:      []string{"@lin", "@joe"},
			CreatorID:   "creator2",
			CreatorName: "Lin Chen",
			Views:       98000,
			Likes:       860,
			Comments:    120,
			Rating:      4.2,
			CreatedAt:   now.Add(-26 * time.Hour),
		},
		{
			ID:          "v3",
			Title:       "Morning surf check",
			Caption:     "Clean sets at dawn",
			VideoURL:    "https://cdn.example.com/videos/v3.mp4",
			Location:    "Ericeira",
			People:      []string{},
			CreatorID:   DemoCreator.ID,
			CreatorName: DemoCreator.Name,
			Views:       4300,
			Likes:       2100,
			Comments:    15,
			Rating:      4.9,
			CreatedAt:   now.Add(-15 * time.Minute),
		},
	}
}

var (
	_ Source    = (*MemorySource)(nil)
	_ Abandoner = (*MemorySource)(nil)
)
