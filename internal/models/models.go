package models

import (
	"io"
	"time"
)

// Role distinguishes accounts that publish videos from those that only watch.
type Role string

const (
	RoleCreator  Role = "creator"
	RoleConsumer Role = "consumer"
)

// Video is a short-form clip as listed, watched and uploaded by clients.
type Video struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Caption       string    `json:"caption"`
	VideoURL      string    `json:"videoUrl"`
	ThumbnailURL  string    `json:"thumbnailUrl,omitempty"`
	Location      string    `json:"location,omitempty"`
	People        []string  `json:"people"`
	CreatorID     string    `json:"creatorId,omitempty"`
	CreatorName   string    `json:"creatorName,omitempty"`
	CreatorAvatar string    `json:"creatorAvatar,omitempty"`
	Views         int64     `json:"views"`
	Likes         int64     `json:"likes"`
	Comments      int64     `json:"comments"`
	Rating        float64   `json:"rating"`
	CreatedAt     time.Time `json:"createdAt"`
	S3Key         string    `json:"s3Key,omitempty"`
}

// Comment is a viewer remark attached to a video.
type Comment struct {
	ID         string    `json:"id"`
	VideoID    string    `json:"videoId"`
	UserID     string    `json:"userId"`
	UserName   string    `json:"userName"`
	UserAvatar string    `json:"userAvatar,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// User represents an account as seen by the client.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
	Role   Role   `json:"role"`
}

// AuthState is the client's view of who is signed in.
type AuthState struct {
	User            *User
	IsAuthenticated bool
	IsLoading       bool
}

// UploadFile is the binary handle attached to an upload draft.
type UploadFile struct {
	Name    string
	Type    string
	Size    int64
	Content io.Reader
}

// UploadDraft holds unsaved upload form input.
type UploadDraft struct {
	Title    string
	Caption  string
	Location string
	People   []string
	File     *UploadFile
}

// VideoPage is the listing envelope returned to callers of ListVideos.
type VideoPage struct {
	Videos  []Video `json:"videos"`
	Page    int     `json:"page"`
	Limit   int     `json:"limit"`
	Total   int     `json:"total"`
	HasMore bool    `json:"hasMore"`
}

// SearchResult is the envelope returned by SearchVideos.
type SearchResult struct {
	Videos []Video `json:"videos"`
	Total  int     `json:"total"`
}

// RatingResult acknowledges a rating submission.
type RatingResult struct {
	VideoID string  `json:"videoId"`
	Rating  float64 `json:"rating"`
	Success bool    `json:"success"`
}

// LoginResult carries the signed-in user and the bearer credential.
type LoginResult struct {
	User         User   `json:"user"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// LogoutResult acknowledges a logout.
type LogoutResult struct {
	Success bool `json:"success"`
}

// UploadReservation records an identity allocated by the upload-url endpoint
// that has not yet been registered as a video.
type UploadReservation struct {
	VideoID        string
	Key            string
	FileName       string
	ContentType    string
	Title          string
	Caption        string
	Location       string
	VideoURL       string
	IdempotencyKey string
	CreatedAt      time.Time
}

// Account is a dev API creator account with its password hash.
type Account struct {
	ID           string
	Email        string
	Name         string
	Avatar       string
	PasswordHash string
	CreatedAt    time.Time
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
