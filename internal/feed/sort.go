// Package feed holds the view-side helpers that sit between the catalog and
// the screens: ordering, creator totals and optimistic updates.
package feed

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vidfriends/clips/internal/models"
)

// Mode selects how the home feed is ordered.
type Mode string

const (
	ModeTrending Mode = "trending"
	ModeLatest   Mode = "latest"
	ModePopular  Mode = "popular"
)

// ParseMode maps user input onto a Mode. An empty string is trending.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeTrending:
		return ModeTrending, nil
	case ModeLatest:
		return ModeLatest, nil
	case ModePopular:
		return ModePopular, nil
	default:
		return "", fmt.Errorf("unknown sort mode %q", s)
	}
}

// Sort returns a reordered copy of videos. Trending orders by likes, latest
// by creation time and popular by views, all descending. Ties keep their
// original order. Unknown modes sort as trending.
func Sort(videos []models.Video, mode Mode) []models.Video {
	out := make([]models.Video, len(videos))
	copy(out, videos)

	var less func(a, b models.Video) bool
	switch mode {
	case ModeLatest:
		less = func(a, b models.Video) bool { return a.CreatedAt.After(b.CreatedAt) }
	case ModePopular:
		less = func(a, b models.Video) bool { return a.Views > b.Views }
	default:
		less = func(a, b models.Video) bool { return a.Likes > b.Likes }
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
