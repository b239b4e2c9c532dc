package videos

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vidfriends/clips/internal/format"
	"github.com/vidfriends/clips/internal/models"
)

// wireVideo accepts every record shape the backend has been seen to send.
type wireVideo struct {
	ID            string          `json:"id"`
	VideoID       string          `json:"videoId"`
	Title         string          `json:"title"`
	Caption       string          `json:"caption"`
	VideoURL      string          `json:"videoUrl"`
	ThumbnailURL  string          `json:"thumbnailUrl"`
	Location      string          `json:"location"`
	People        json.RawMessage `json:"people"`
	CreatorID     string          `json:"creatorId"`
	CreatorName   string          `json:"creatorName"`
	CreatorAvatar string          `json:"creatorAvatar"`
	Views         flexNumber      `json:"views"`
	Likes         flexNumber      `json:"likes"`
	Comments      flexNumber      `json:"comments"`
	Rating        flexNumber      `json:"rating"`
	CreatedAt     flexTime        `json:"createdAt"`
	S3Key         string          `json:"s3Key"`
}

// flexNumber decodes a JSON number, a quoted number or null.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	raw := strings.Trim(string(data), `"`)
	if raw == "" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("decode number %s: %w", data, err)
	}
	*n = flexNumber(v)
	return nil
}

// flexTime decodes an ISO-8601 string or a unix epoch in milliseconds.
type flexTime time.Time

func (t *flexTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = flexTime(format.ParseTimestamp(s))
		return nil
	}
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return nil
	}
	*t = flexTime(time.UnixMilli(ms).UTC())
	return nil
}

// decodeVideos maps a listing payload onto canonical records. A bare array
// is the documented contract; {"videos": [...]} and {"items": [...]} are
// tolerated.
func decodeVideos(raw []byte) ([]models.Video, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []models.Video{}, nil
	}

	var wire []wireVideo
	if raw[0] == '{' {
		var envelope struct {
			Videos []wireVideo `json:"videos"`
			Items  []wireVideo `json:"items"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, fmt.Errorf("%w: decode video listing: %v", ErrMalformedResponse, err)
		}
		wire = envelope.Videos
		if wire == nil {
			wire = envelope.Items
		}
	} else if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: decode video listing: %v", ErrMalformedResponse, err)
	}

	out := make([]models.Video, 0, len(wire))
	for _, w := range wire {
		out = append(out, normalizeVideo(w))
	}
	return out, nil
}

// decodeVideo maps a single record payload onto a canonical record,
// unwrapping an {"message", "item"} envelope when present. An empty body
// yields the zero record.
func decodeVideo(raw []byte) (models.Video, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return models.Video{}, nil
	}

	var envelope struct {
		Item json.RawMessage `json:"item"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return models.Video{}, fmt.Errorf("%w: decode video: %v", ErrMalformedResponse, err)
	}
	if item := bytes.TrimSpace(envelope.Item); len(item) > 0 && !bytes.Equal(item, []byte("null")) {
		raw = item
	}

	var w wireVideo
	if err := json.Unmarshal(raw, &w); err != nil {
		return models.Video{}, fmt.Errorf("%w: decode video: %v", ErrMalformedResponse, err)
	}
	return normalizeVideo(w), nil
}

// normalizeVideo is the single place where backend drift is absorbed. The
// backend-assigned videoId wins over id when both are present.
func normalizeVideo(w wireVideo) models.Video {
	id := strings.TrimSpace(w.VideoID)
	if id == "" {
		id = strings.TrimSpace(w.ID)
	}

	return models.Video{
		ID:            id,
		Title:         w.Title,
		Caption:       w.Caption,
		VideoURL:      w.VideoURL,
		ThumbnailURL:  w.ThumbnailURL,
		Location:      w.Location,
		People:        decodePeople(w.People),
		CreatorID:     w.CreatorID,
		CreatorName:   w.CreatorName,
		CreatorAvatar: w.CreatorAvatar,
		Views:         nonNegative(w.Views),
		Likes:         nonNegative(w.Likes),
		Comments:      nonNegative(w.Comments),
		Rating:        clampRating(float64(w.Rating)),
		CreatedAt:     time.Time(w.CreatedAt),
		S3Key:         w.S3Key,
	}
}

// decodePeople accepts either a list of handles or a comma separated string.
func decodePeople(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []string{}
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return cleanHandles(list)
	}

	var joined string
	if err := json.Unmarshal(raw, &joined); err == nil {
		return SplitPeople(joined)
	}
	return []string{}
}

// SplitPeople turns "@a, b ,,c" into ["@a", "b", "c"].
func SplitPeople(joined string) []string {
	return cleanHandles(strings.Split(joined, ","))
}

func cleanHandles(in []string) []string {
	out := make([]string, 0, len(in))
	for _, handle := range in {
		if handle = strings.TrimSpace(handle); handle != "" {
			out = append(out, handle)
		}
	}
	return out
}

func nonNegative(n flexNumber) int64 {
	if n < 0 {
		return 0
	}
	return int64(n)
}

func clampRating(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 5:
		return 5
	default:
		return r
	}
}
