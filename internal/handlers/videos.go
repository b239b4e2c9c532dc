package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vidfriends/clips/internal/auth"
	"github.com/vidfriends/clips/internal/logging"
	"github.com/vidfriends/clips/internal/models"
	"github.com/vidfriends/clips/internal/repositories"
	"github.com/vidfriends/clips/internal/storage"
)

const headerIdempotencyKey = "Idempotency-Key"

// VideoHandler serves the listing and the three upload endpoints.
type VideoHandler struct {
	Videos       VideoStore
	Reservations ReservationStore
	Accounts     AccountStore
	Objects      storage.Store
	Signer       URLSigner
	PublicURL    string
	UploadURLTTL time.Duration
	NowFunc      func() time.Time
}

// List handles GET /videos and returns a bare array, newest first.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videos, err := h.Videos.List(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("list videos failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to list videos")
		return
	}
	if videos == nil {
		videos = []models.Video{}
	}
	respondJSON(ctx, w, http.StatusOK, videos)
}

type uploadURLRequest struct {
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	Title    string `json:"title"`
	Caption  string `json:"caption"`
	Location string `json:"location"`
}

type uploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	VideoID   string `json:"videoId"`
	Key       string `json:"key"`
	VideoURL  string `json:"videoUrl"`
}

// CreateUploadURL handles POST /upload-url. A repeated Idempotency-Key
// returns the reservation created by the first call.
func (h VideoHandler) CreateUploadURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req uploadURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid upload-url payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.FileName = strings.TrimSpace(req.FileName)
	req.FileType = strings.TrimSpace(req.FileType)
	if req.FileName == "" || req.FileType == "" {
		respondError(ctx, w, http.StatusBadRequest, "fileName and fileType are required")
		return
	}

	idemKey := strings.TrimSpace(r.Header.Get(headerIdempotencyKey))
	if idemKey != "" {
		if existing, err := h.Reservations.FindByIdempotencyKey(ctx, idemKey); err == nil {
			h.respondReservation(w, r, existing)
			return
		} else if !errors.Is(err, repositories.ErrNotFound) {
			logger.Error("idempotency lookup failed", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "failed to create upload url")
			return
		}
	}

	videoID := uuid.NewString()
	key := storage.ObjectKey(videoID, req.FileName)
	res := models.UploadReservation{
		VideoID:        videoID,
		Key:            key,
		FileName:       req.FileName,
		ContentType:    req.FileType,
		Title:          req.Title,
		Caption:        req.Caption,
		Location:       req.Location,
		VideoURL:       h.Objects.URL(key),
		IdempotencyKey: idemKey,
		CreatedAt:      h.now(),
	}

	if err := h.Reservations.Save(ctx, res); err != nil {
		if errors.Is(err, repositories.ErrConflict) && idemKey != "" {
			if existing, findErr := h.Reservations.FindByIdempotencyKey(ctx, idemKey); findErr == nil {
				h.respondReservation(w, r, existing)
				return
			}
		}
		logger.Error("save reservation failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create upload url")
		return
	}

	logger.Info("upload reserved", "videoId", videoID, "key", key)
	h.respondReservation(w, r, res)
}

func (h VideoHandler) respondReservation(w http.ResponseWriter, r *http.Request, res models.UploadReservation) {
	ctx := r.Context()

	uploadURL := strings.TrimSuffix(h.PublicURL, "/") + "/objects/" + res.Key
	if h.Signer != nil {
		signed, err := h.Signer.PresignPut(ctx, res.Key, res.ContentType, h.uploadTTL())
		if err != nil {
			logging.FromContext(ctx).Error("presign upload failed", "videoId", res.VideoID, "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "failed to create upload url")
			return
		}
		uploadURL = signed
	}

	respondJSON(ctx, w, http.StatusOK, uploadURLResponse{
		UploadURL: uploadURL,
		VideoID:   res.VideoID,
		Key:       res.Key,
		VideoURL:  res.VideoURL,
	})
}

type createVideoRequest struct {
	VideoID   string   `json:"videoId"`
	Title     string   `json:"title"`
	Caption   string   `json:"caption"`
	Location  string   `json:"location"`
	VideoURL  string   `json:"videoUrl"`
	S3Key     string   `json:"s3Key"`
	CreatorID string   `json:"creatorId"`
	People    []string `json:"people"`
}

type videoEnvelope struct {
	Message string       `json:"message"`
	Item    models.Video `json:"item"`
}

// Create handles POST /videos, registering a reserved upload. The creator
// is taken from the bearer token when one is presented. Registering the
// same video twice returns the stored record.
func (h VideoHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req createVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid video payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.VideoID = strings.TrimSpace(req.VideoID)
	req.Title = strings.TrimSpace(req.Title)
	if req.VideoID == "" || req.Title == "" {
		respondError(ctx, w, http.StatusBadRequest, "videoId and title are required")
		return
	}

	if existing, err := h.Videos.FindByID(ctx, req.VideoID); err == nil {
		respondJSON(ctx, w, http.StatusOK, videoEnvelope{Message: "Video already registered", Item: existing})
		return
	}

	res, err := h.Reservations.Find(ctx, req.VideoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "no upload reserved for this video")
			return
		}
		logger.Error("reservation lookup failed", "videoId", req.VideoID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to save video")
		return
	}

	creatorID := auth.UserIDFromContext(ctx)
	if creatorID == "" {
		creatorID = strings.TrimSpace(req.CreatorID)
	}

	video := models.Video{
		ID:        res.VideoID,
		Title:     req.Title,
		Caption:   req.Caption,
		Location:  req.Location,
		People:    req.People,
		VideoURL:  firstNonEmpty(req.VideoURL, res.VideoURL),
		S3Key:     firstNonEmpty(req.S3Key, res.Key),
		CreatorID: creatorID,
		CreatedAt: h.now(),
	}
	if video.People == nil {
		video.People = []string{}
	}
	if h.Accounts != nil && creatorID != "" {
		if account, err := h.Accounts.FindByID(ctx, creatorID); err == nil {
			video.CreatorName = account.Name
			video.CreatorAvatar = account.Avatar
		}
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			if existing, findErr := h.Videos.FindByID(ctx, video.ID); findErr == nil {
				respondJSON(ctx, w, http.StatusOK, videoEnvelope{Message: "Video already registered", Item: existing})
				return
			}
		}
		logger.Error("create video failed", "videoId", video.ID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to save video")
		return
	}

	if err := h.Reservations.Delete(ctx, video.ID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		logger.Warn("release reservation failed", "videoId", video.ID, "error", err)
	}

	logger.Info("video registered", "videoId", video.ID, "creatorId", creatorID)
	respondJSON(ctx, w, http.StatusCreated, videoEnvelope{Message: "Video metadata saved successfully", Item: video})
}

// Abandon handles DELETE /uploads/{videoId}, removing the stored object
// and releasing the reservation.
func (h VideoHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	videoID := chi.URLParam(r, "videoId")

	res, err := h.Reservations.Find(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "no upload reserved for this video")
			return
		}
		logger.Error("reservation lookup failed", "videoId", videoID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to abandon upload")
		return
	}

	if err := h.Objects.Delete(ctx, res.Key); err != nil {
		logger.Error("delete object failed", "videoId", videoID, "key", res.Key, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to abandon upload")
		return
	}
	if err := h.Reservations.Delete(ctx, videoID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		logger.Error("delete reservation failed", "videoId", videoID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to abandon upload")
		return
	}

	logger.Info("upload abandoned", "videoId", videoID)
	w.WriteHeader(http.StatusNoContent)
}

func (h VideoHandler) uploadTTL() time.Duration {
	if h.UploadURLTTL > 0 {
		return h.UploadURLTTL
	}
	return 15 * time.Minute
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc().UTC()
	}
	return time.Now().UTC()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
