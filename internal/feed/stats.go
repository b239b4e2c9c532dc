package feed

import (
	"github.com/vidfriends/clips/internal/format"
	"github.com/vidfriends/clips/internal/models"
)

// CreatorStats are the dashboard totals for one creator's videos.
type CreatorStats struct {
	Videos int
	Views  int64
	Likes  int64
}

// Stats totals views and likes across videos.
func Stats(videos []models.Video) CreatorStats {
	stats := CreatorStats{Videos: len(videos)}
	for _, v := range videos {
		stats.Views += v.Views
		stats.Likes += v.Likes
	}
	return stats
}

// Engagement is likes as a percentage of views, or 0 without views.
func (s CreatorStats) Engagement() float64 {
	if s.Videos == 0 || s.Views == 0 {
		return 0
	}
	return float64(s.Likes) / float64(s.Views) * 100
}

// Summary lines as shown on the dashboard.
func (s CreatorStats) Summary() []string {
	return []string{
		"Total Videos: " + format.Number(int64(s.Videos)),
		"Total Views: " + format.Number(s.Views),
		"Total Likes: " + format.Number(s.Likes),
		"Engagement: " + format.Percent(s.Engagement()),
	}
}
