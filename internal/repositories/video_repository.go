package repositories

import (
	"context"

	"github.com/vidfriends/clips/internal/models"
)

// VideoRepository exposes data access for registered videos.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	List(ctx context.Context) ([]models.Video, error)
	FindByID(ctx context.Context, id string) (models.Video, error)
}

// ReservationRepository tracks upload identities handed out by the
// upload-url endpoint until they are registered or abandoned.
type ReservationRepository interface {
	Save(ctx context.Context, reservation models.UploadReservation) error
	Find(ctx context.Context, videoID string) (models.UploadReservation, error)
	FindByIdempotencyKey(ctx context.Context, key string) (models.UploadReservation, error)
	Delete(ctx context.Context, videoID string) error
}

// AccountRepository defines the data access contract for creator accounts.
type AccountRepository interface {
	Create(ctx context.Context, account models.Account) error
	FindByEmail(ctx context.Context, email string) (models.Account, error)
	FindByID(ctx context.Context, id string) (models.Account, error)
}
