package feed

import (
	"sync"

	"github.com/vidfriends/clips/internal/models"
)

// Library is the working list a screen renders. Uploads are appended by the
// caller; nothing refreshes it implicitly.
type Library struct {
	mu     sync.RWMutex
	videos []models.Video
}

// NewLibrary starts from a loaded listing.
func NewLibrary(videos []models.Video) *Library {
	l := &Library{}
	l.Replace(videos)
	return l
}

// Replace swaps in a freshly loaded listing.
func (l *Library) Replace(videos []models.Video) {
	cp := make([]models.Video, len(videos))
	copy(cp, videos)
	l.mu.Lock()
	l.videos = cp
	l.mu.Unlock()
}

// Append adds video, replacing an entry with the same id.
func (l *Library) Append(video models.Video) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.videos {
		if l.videos[i].ID == video.ID {
			l.videos[i] = video
			return
		}
	}
	l.videos = append(l.videos, video)
}

// Videos returns the current list.
func (l *Library) Videos() []models.Video {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Video, len(l.videos))
	copy(out, l.videos)
	return out
}

// Stats totals the list.
func (l *Library) Stats() CreatorStats {
	return Stats(l.Videos())
}
