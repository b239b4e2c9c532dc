package videos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidfriends/clips/internal/logging"
	"github.com/vidfriends/clips/internal/models"
)

// abandonTimeout bounds the compensating call issued after a failed upload.
const abandonTimeout = 10 * time.Second

// Uploader drives the three-step hand-off that moves a local file into
// object storage and registers it as a video:
//
//  1. request a transfer target (allocates the video id)
//  2. PUT the bytes directly to the issued URL
//  3. register the metadata
//
// Each step starts only after the previous one succeeded. The file bytes
// never pass through the metadata API.
type Uploader struct {
	steps  UploadSteps
	now    func() time.Time
	newKey func() string
}

// NewUploader returns an Uploader driving steps.
func NewUploader(steps UploadSteps) *Uploader {
	return &Uploader{
		steps:  steps,
		now:    func() time.Time { return time.Now().UTC() },
		newKey: uuid.NewString,
	}
}

// Run uploads draft on behalf of creatorID and returns the created video.
//
// A retry after a failed Run allocates a new identity; the idempotency key
// is scoped to a single call.
func (u *Uploader) Run(ctx context.Context, draft models.UploadDraft, creatorID string) (models.Video, error) {
	if err := validateDraft(draft); err != nil {
		return models.Video{}, err
	}

	ctx, span := logging.StartSpan(ctx, "upload")
	logger := logging.FromContext(ctx)
	idemKey := u.newKey()

	target, err := u.requestTarget(ctx, draft, idemKey)
	if err != nil {
		span.Fail(err)
		return models.Video{}, err
	}
	logger.Info("upload target allocated", "videoId", target.VideoID, "key", target.Key)

	if err := u.transfer(ctx, target, draft.File); err != nil {
		u.abandon(ctx, target)
		span.Fail(err)
		return models.Video{}, err
	}

	saved, err := u.register(ctx, draft, target, creatorID, idemKey)
	if err != nil {
		u.abandon(ctx, target)
		span.Fail(err)
		return models.Video{}, err
	}

	video := completeRecord(saved, draft, target, creatorID, u.now())
	logger.Info("upload completed", "videoId", video.ID)
	span.End()
	return video, nil
}

func (u *Uploader) requestTarget(ctx context.Context, draft models.UploadDraft, idemKey string) (UploadTarget, error) {
	ctx, span := logging.StartSpan(ctx, "upload.request_target")

	target, err := u.steps.RequestUploadTarget(ctx, UploadTargetRequest{
		FileName: draft.File.Name,
		FileType: contentType(draft.File),
		Title:    draft.Title,
		Caption:  draft.Caption,
		Location: draft.Location,
	}, idemKey)
	if err != nil {
		span.Fail(err)
		return UploadTarget{}, fmt.Errorf("request upload url: %w", err)
	}
	if strings.TrimSpace(target.UploadURL) == "" || strings.TrimSpace(target.VideoID) == "" {
		err := fmt.Errorf("request upload url: %w: missing uploadUrl or videoId", ErrMalformedResponse)
		span.Fail(err)
		return UploadTarget{}, err
	}

	span.End()
	return target, nil
}

func (u *Uploader) transfer(ctx context.Context, target UploadTarget, file *models.UploadFile) error {
	ctx, span := logging.StartSpan(ctx, "upload.transfer")
	if err := u.steps.TransferObject(ctx, target, file); err != nil {
		span.Fail(err)
		return fmt.Errorf("transfer video %s: %w", target.VideoID, err)
	}
	span.End()
	return nil
}

func (u *Uploader) register(ctx context.Context, draft models.UploadDraft, target UploadTarget, creatorID, idemKey string) (models.Video, error) {
	ctx, span := logging.StartSpan(ctx, "upload.register")
	saved, err := u.steps.SaveMetadata(ctx, MetadataRequest{
		VideoID:   target.VideoID,
		Title:     draft.Title,
		Caption:   draft.Caption,
		Location:  draft.Location,
		VideoURL:  target.VideoURL,
		S3Key:     target.Key,
		CreatorID: creatorID,
		People:    draft.People,
	}, idemKey)
	if err != nil {
		span.Fail(err)
		return models.Video{}, fmt.Errorf("save video metadata %s: %w", target.VideoID, err)
	}
	span.End()
	return saved, nil
}

// abandon releases the identity allocated in step one. It is best effort:
// the caller still receives the error that made the upload fail.
func (u *Uploader) abandon(ctx context.Context, target UploadTarget) {
	abandoner, ok := u.steps.(Abandoner)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abandonTimeout)
	defer cancel()

	if err := abandoner.AbandonUpload(ctx, target); err != nil {
		logging.FromContext(ctx).Warn("abandon upload failed", "videoId", target.VideoID, "error", err)
		return
	}
	logging.FromContext(ctx).Info("abandoned upload", "videoId", target.VideoID)
}

func validateDraft(draft models.UploadDraft) error {
	if draft.File == nil || draft.File.Content == nil {
		return missing("file")
	}
	if strings.TrimSpace(draft.File.Name) == "" {
		return missing("file name")
	}
	if strings.TrimSpace(draft.Title) == "" {
		return missing("title")
	}
	if strings.TrimSpace(draft.Caption) == "" {
		return missing("caption")
	}
	return nil
}

// completeRecord fills fields the backend left out with what the client
// already knows, so callers always receive a fully populated video.
func completeRecord(saved models.Video, draft models.UploadDraft, target UploadTarget, creatorID string, now time.Time) models.Video {
	v := saved
	if v.ID == "" {
		v.ID = target.VideoID
	}
	if v.Title == "" {
		v.Title = draft.Title
	}
	if v.Caption == "" {
		v.Caption = draft.Caption
	}
	if v.Location == "" {
		v.Location = draft.Location
	}
	if len(v.People) == 0 {
		v.People = cleanHandles(draft.People)
	}
	if v.VideoURL == "" {
		v.VideoURL = target.VideoURL
	}
	if v.S3Key == "" {
		v.S3Key = target.Key
	}
	if v.CreatorID == "" {
		v.CreatorID = creatorID
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	return v
}
