package handlers

import (
	"context"
	"time"

	"github.com/vidfriends/clips/internal/models"
)

// AccountStore captures the persistence operations required by the auth handlers.
type AccountStore interface {
	Create(ctx context.Context, account models.Account) error
	FindByEmail(ctx context.Context, email string) (models.Account, error)
	FindByID(ctx context.Context, id string) (models.Account, error)
}

// SessionManager issues, refreshes and revokes creator sessions.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Revoke(ctx context.Context, refreshToken string) error
	Validate(accessToken string) (string, error)
}

// VideoStore persists registered videos.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	List(ctx context.Context) ([]models.Video, error)
	FindByID(ctx context.Context, id string) (models.Video, error)
}

// ReservationStore tracks identities handed out by the upload-url endpoint.
type ReservationStore interface {
	Save(ctx context.Context, reservation models.UploadReservation) error
	Find(ctx context.Context, videoID string) (models.UploadReservation, error)
	FindByIdempotencyKey(ctx context.Context, key string) (models.UploadReservation, error)
	Delete(ctx context.Context, videoID string) error
}

// URLSigner issues direct-to-bucket upload URLs. When none is configured
// uploads are relayed through the dev API.
type URLSigner interface {
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
}
