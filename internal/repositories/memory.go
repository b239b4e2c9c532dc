package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/vidfriends/clips/internal/auth"
	"github.com/vidfriends/clips/internal/models"
)

// MemoryVideoRepository keeps videos in process memory. It backs the dev
// API when no database is configured.
type MemoryVideoRepository struct {
	mu     sync.RWMutex
	videos map[string]models.Video
}

// NewMemoryVideoRepository returns a repository seeded with videos.
func NewMemoryVideoRepository(seed ...models.Video) *MemoryVideoRepository {
	r := &MemoryVideoRepository{videos: make(map[string]models.Video, len(seed))}
	for _, v := range seed {
		r.videos[v.ID] = v
	}
	return r
}

// Create implements VideoRepository.
func (r *MemoryVideoRepository) Create(_ context.Context, v models.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.videos[v.ID]; ok {
		return ErrConflict
	}
	r.videos[v.ID] = v
	return nil
}

// List implements VideoRepository, newest first.
func (r *MemoryVideoRepository) List(_ context.Context) ([]models.Video, error) {
	r.mu.RLock()
	out := make([]models.Video, 0, len(r.videos))
	for _, v := range r.videos {
		out = append(out, v)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// FindByID implements VideoRepository.
func (r *MemoryVideoRepository) FindByID(_ context.Context, id string) (models.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.videos[id]
	if !ok {
		return models.Video{}, ErrNotFound
	}
	return v, nil
}

// MemoryReservationRepository keeps pending uploads in process memory.
type MemoryReservationRepository struct {
	mu     sync.Mutex
	byID   map[string]models.UploadReservation
	byIdem map[string]string
}

// NewMemoryReservationRepository returns an empty repository.
func NewMemoryReservationRepository() *MemoryReservationRepository {
	return &MemoryReservationRepository{
		byID:   make(map[string]models.UploadReservation),
		byIdem: make(map[string]string),
	}
}

// Save implements ReservationRepository.
func (r *MemoryReservationRepository) Save(_ context.Context, res models.UploadReservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[res.VideoID]; ok {
		return ErrConflict
	}
	if res.IdempotencyKey != "" {
		if _, ok := r.byIdem[res.IdempotencyKey]; ok {
			return ErrConflict
		}
		r.byIdem[res.IdempotencyKey] = res.VideoID
	}
	r.byID[res.VideoID] = res
	return nil
}

// Find implements ReservationRepository.
func (r *MemoryReservationRepository) Find(_ context.Context, videoID string) (models.UploadReservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.byID[videoID]
	if !ok {
		return models.UploadReservation{}, ErrNotFound
	}
	return res, nil
}

// FindByIdempotencyKey implements ReservationRepository.
func (r *MemoryReservationRepository) FindByIdempotencyKey(_ context.Context, key string) (models.UploadReservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byIdem[key]
	if !ok || key == "" {
		return models.UploadReservation{}, ErrNotFound
	}
	return r.byID[id], nil
}

// Delete implements ReservationRepository.
func (r *MemoryReservationRepository) Delete(_ context.Context, videoID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.byID[videoID]
	if !ok {
		return ErrNotFound
	}
	delete(r.byID, videoID)
	if res.IdempotencyKey != "" {
		delete(r.byIdem, res.IdempotencyKey)
	}
	return nil
}

// MemoryAccountRepository keeps creator accounts in process memory.
type MemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
}

// NewMemoryAccountRepository returns an empty repository.
func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{accounts: make(map[string]models.Account)}
}

// Create implements AccountRepository. Emails are compared case-insensitively.
func (r *MemoryAccountRepository) Create(_ context.Context, a models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.ID == a.ID || strings.EqualFold(existing.Email, a.Email) {
			return ErrConflict
		}
	}
	r.accounts[a.ID] = a
	return nil
}

// FindByEmail implements AccountRepository.
func (r *MemoryAccountRepository) FindByEmail(_ context.Context, email string) (models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if strings.EqualFold(a.Email, email) {
			return a, nil
		}
	}
	return models.Account{}, ErrNotFound
}

// FindByID implements AccountRepository.
func (r *MemoryAccountRepository) FindByID(_ context.Context, id string) (models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return models.Account{}, ErrNotFound
	}
	return a, nil
}

// MemorySessionStore implements auth.SessionStore for tests and local development.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]auth.Session
}

// NewMemorySessionStore returns an empty session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]auth.Session)}
}

// Save implements auth.SessionStore.
func (s *MemorySessionStore) Save(_ context.Context, session auth.Session) error {
	s.mu.Lock()
	s.sessions[session.RefreshToken] = session
	s.mu.Unlock()
	return nil
}

// Find implements auth.SessionStore.
func (s *MemorySessionStore) Find(_ context.Context, refreshToken string) (auth.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[refreshToken]
	s.mu.RUnlock()
	if !ok {
		return auth.Session{}, auth.ErrSessionNotFound
	}
	return session, nil
}

// Delete implements auth.SessionStore.
func (s *MemorySessionStore) Delete(_ context.Context, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[refreshToken]; !ok {
		return auth.ErrSessionNotFound
	}
	delete(s.sessions, refreshToken)
	return nil
}

var (
	_ VideoRepository       = (*MemoryVideoRepository)(nil)
	_ ReservationRepository = (*MemoryReservationRepository)(nil)
	_ AccountRepository     = (*MemoryAccountRepository)(nil)
	_ auth.SessionStore     = (*MemorySessionStore)(nil)
)
