package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vidfriends/clips/internal/logging"
	"github.com/vidfriends/clips/internal/repositories"
	"github.com/vidfriends/clips/internal/storage"
)

// ObjectHandler relays clip bytes when uploads are not sent straight to a bucket.
type ObjectHandler struct {
	Objects      storage.Store
	Reservations ReservationStore
	MaxBytes     int64
}

// Put handles PUT /objects/*. Only keys belonging to a live reservation
// are accepted.
func (h ObjectHandler) Put(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	key := chi.URLParam(r, "*")

	videoID, ok := videoIDFromKey(key)
	if !ok {
		respondError(ctx, w, http.StatusNotFound, "unknown object key")
		return
	}
	res, err := h.Reservations.Find(ctx, videoID)
	if err != nil || res.Key != key {
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			logger.Error("reservation lookup failed", "key", key, "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "failed to store object")
			return
		}
		respondError(ctx, w, http.StatusForbidden, "upload not reserved")
		return
	}

	body := io.Reader(r.Body)
	if h.MaxBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = res.ContentType
	}

	if err := h.Objects.Save(ctx, key, contentType, body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(ctx, w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		logger.Error("store object failed", "key", key, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store object")
		return
	}

	logger.Info("object stored", "key", key)
	w.WriteHeader(http.StatusOK)
}

// Get handles GET /objects/*.
func (h ObjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := chi.URLParam(r, "*")

	obj, err := h.Objects.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			respondError(ctx, w, http.StatusNotFound, "object not found")
			return
		}
		logging.FromContext(ctx).Error("open object failed", "key", key, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to read object")
		return
	}
	defer obj.Body.Close()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil {
		logging.FromContext(ctx).Warn("stream object interrupted", "key", key, "error", err)
	}
}

// videoIDFromKey extracts the id from a "videos/{id}/{file}" key.
func videoIDFromKey(key string) (string, bool) {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) != 3 || parts[0] != "videos" || parts[1] == "" || parts[2] == "" {
		return "", false
	}
	return parts[1], true
}
