package videos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vidfriends/clips/internal/logging"
	"github.com/vidfriends/clips/internal/models"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	maxErrorBody         = 4096
)

// HTTPSource talks to the serverless backend described by the API base URL.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	token   func() string
}

// HTTPOption customises an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient replaces the default pooled client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		if client != nil {
			s.client = client
		}
	}
}

// WithTokenSource attaches a bearer token to API calls whenever the
// function returns a non-empty value. Transfers to signed URLs never carry it.
func WithTokenSource(token func() string) HTTPOption {
	return func(s *HTTPSource) {
		s.token = token
	}
}

// NewHTTPSource constructs a source for the backend rooted at baseURL.
// timeout bounds every JSON call; binary transfers are bounded only by ctx.
func NewHTTPSource(baseURL string, timeout time.Duration, opts ...HTTPOption) *HTTPSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	s := &HTTPSource{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  newPooledClient(),
		timeout: timeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newPooledClient() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport}
}

// FetchVideos implements GET /videos.
func (s *HTTPSource) FetchVideos(ctx context.Context) ([]models.Video, error) {
	raw, err := s.jsonRequest(ctx, http.MethodGet, s.baseURL+"/videos", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeVideos(raw)
}

// RequestUploadTarget implements POST /upload-url.
func (s *HTTPSource) RequestUploadTarget(ctx context.Context, req UploadTargetRequest, idempotencyKey string) (UploadTarget, error) {
	raw, err := s.jsonRequest(ctx, http.MethodPost, s.baseURL+"/upload-url", req, idempotencyHeader(idempotencyKey))
	if err != nil {
		return UploadTarget{}, err
	}
	if len(raw) == 0 {
		return UploadTarget{}, fmt.Errorf("%w: empty upload target", ErrMalformedResponse)
	}

	var target UploadTarget
	if err := json.Unmarshal(raw, &target); err != nil {
		return UploadTarget{}, fmt.Errorf("%w: decode upload target: %v", ErrMalformedResponse, err)
	}
	return target, nil
}

// TransferObject PUTs the raw file bytes to the backend-issued URL.
func (s *HTTPSource) TransferObject(ctx context.Context, target UploadTarget, file *models.UploadFile) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.UploadURL, file.Content)
	if err != nil {
		return &NetworkError{Err: fmt.Errorf("build transfer request: %w", err)}
	}
	req.Header.Set("Content-Type", contentType(file))
	if file.Size > 0 {
		req.ContentLength = file.Size
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &NetworkError{Status: resp.StatusCode, Body: string(body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// SaveMetadata implements POST /videos.
func (s *HTTPSource) SaveMetadata(ctx context.Context, req MetadataRequest, idempotencyKey string) (models.Video, error) {
	raw, err := s.jsonRequest(ctx, http.MethodPost, s.baseURL+"/videos", req, idempotencyHeader(idempotencyKey))
	if err != nil {
		return models.Video{}, err
	}
	return decodeVideo(raw)
}

// AbandonUpload asks the backend to release an allocated identity.
func (s *HTTPSource) AbandonUpload(ctx context.Context, target UploadTarget) error {
	_, err := s.jsonRequest(ctx, http.MethodDelete, s.baseURL+"/uploads/"+url.PathEscape(target.VideoID), nil, nil)
	return err
}

// postJSON is used by the remote authenticator.
func (s *HTTPSource) postJSON(ctx context.Context, path string, body any) ([]byte, error) {
	return s.jsonRequest(ctx, http.MethodPost, s.baseURL+path, body, nil)
}

// jsonRequest performs one JSON call. Non-2xx responses become a
// NetworkError carrying the status and raw body; an empty successful body
// yields a nil payload.
func (s *HTTPSource) jsonRequest(ctx context.Context, method, target string, body any, headers map[string]string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != nil {
		if token := s.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	logger := logging.FromContext(ctx)
	start := time.Now()

	resp, err := s.client.Do(req)
	if err != nil {
		logger.Warn("api request failed", "method", method, "url", target, "error", err)
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Status: resp.StatusCode, Err: fmt.Errorf("read response body: %w", err)}
	}

	logger.Debug("api request completed", "method", method, "url", target, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(payload) > maxErrorBody {
			payload = payload[:maxErrorBody]
		}
		return nil, &NetworkError{Status: resp.StatusCode, Body: string(payload)}
	}

	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, nil
	}
	return payload, nil
}

func idempotencyHeader(key string) map[string]string {
	if key == "" {
		return nil
	}
	return map[string]string{headerIdempotencyKey: key}
}

func contentType(file *models.UploadFile) string {
	if file != nil && strings.TrimSpace(file.Type) != "" {
		return file.Type
	}
	return "application/octet-stream"
}

var (
	_ Source    = (*HTTPSource)(nil)
	_ Abandoner = (*HTTPSource)(nil)
)
