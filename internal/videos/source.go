package videos

import (
	"context"

	"github.com/vidfriends/clips/internal/models"
)

// UploadTargetRequest is the body sent to the URL-issuing endpoint.
type UploadTargetRequest struct {
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	Title    string `json:"title"`
	Caption  string `json:"caption"`
	Location string `json:"location"`
}

// UploadTarget is the transfer destination allocated by the backend.
type UploadTarget struct {
	UploadURL string `json:"uploadUrl"`
	VideoID   string `json:"videoId"`
	Key       string `json:"key"`
	VideoURL  string `json:"videoUrl"`
}

// MetadataRequest registers an uploaded object as a video.
type MetadataRequest struct {
	VideoID   string   `json:"videoId"`
	Title     string   `json:"title"`
	Caption   string   `json:"caption"`
	Location  string   `json:"location"`
	VideoURL  string   `json:"videoUrl"`
	S3Key     string   `json:"s3Key"`
	CreatorID string   `json:"creatorId"`
	People    []string `json:"people,omitempty"`
}

// UploadSteps are the three legs of the upload hand-off.
type UploadSteps interface {
	RequestUploadTarget(ctx context.Context, req UploadTargetRequest, idempotencyKey string) (UploadTarget, error)
	TransferObject(ctx context.Context, target UploadTarget, file *models.UploadFile) error
	SaveMetadata(ctx context.Context, req MetadataRequest, idempotencyKey string) (models.Video, error)
}

// Abandoner is implemented by sources that can release an identity
// allocated by RequestUploadTarget when a later step fails.
type Abandoner interface {
	AbandonUpload(ctx context.Context, target UploadTarget) error
}

// Source is the backend boundary used by the Catalog.
type Source interface {
	UploadSteps
	FetchVideos(ctx context.Context) ([]models.Video, error)
}
