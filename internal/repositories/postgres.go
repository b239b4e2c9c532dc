package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidfriends/clips/internal/db"
	"github.com/vidfriends/clips/internal/models"
)

const videoColumns = `id, title, caption, location, people, video_url, thumbnail_url, s3_key,
            creator_id, creator_name, creator_avatar, views, likes, comments, rating, created_at`

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.DBTX
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.DBTX) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, v models.Video) error {
	people := v.People
	if people == nil {
		people = []string{}
	}

	_, err := r.pool.Exec(ctx, `
        INSERT INTO videos (`+videoColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
    `, v.ID, v.Title, v.Caption, v.Location, people, v.VideoURL, v.ThumbnailURL, v.S3Key,
		v.CreatorID, v.CreatorName, v.CreatorAvatar, v.Views, v.Likes, v.Comments, v.Rating, v.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// List returns every video, newest first.
func (r *PostgresVideoRepository) List(ctx context.Context) ([]models.Video, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT `+videoColumns+`
        FROM videos
        ORDER BY created_at DESC
    `)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	videos := []models.Video{}
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	return videos, nil
}

// FindByID fetches a single video.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT `+videoColumns+`
        FROM videos
        WHERE id = $1
    `, id)

	v, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}
	return v, nil
}

func scanVideo(row pgx.Row) (models.Video, error) {
	var v models.Video
	err := row.Scan(&v.ID, &v.Title, &v.Caption, &v.Location, &v.People, &v.VideoURL, &v.ThumbnailURL, &v.S3Key,
		&v.CreatorID, &v.CreatorName, &v.CreatorAvatar, &v.Views, &v.Likes, &v.Comments, &v.Rating, &v.CreatedAt)
	if err != nil {
		return models.Video{}, err
	}
	if v.People == nil {
		v.People = []string{}
	}
	v.CreatedAt = v.CreatedAt.UTC()
	return v, nil
}

// PostgresReservationRepository persists pending upload reservations.
type PostgresReservationRepository struct {
	pool db.DBTX
}

// NewPostgresReservationRepository constructs a reservation repository backed by PostgreSQL.
func NewPostgresReservationRepository(pool db.DBTX) *PostgresReservationRepository {
	return &PostgresReservationRepository{pool: pool}
}

const reservationColumns = `video_id, object_key, file_name, content_type, title, caption, location, video_url, idempotency_key, created_at`

// Save records a new reservation.
func (r *PostgresReservationRepository) Save(ctx context.Context, res models.UploadReservation) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO upload_reservations (`+reservationColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `, res.VideoID, res.Key, res.FileName, res.ContentType, res.Title, res.Caption, res.Location, res.VideoURL,
		nullable(res.IdempotencyKey), res.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// Find loads a reservation by video id.
func (r *PostgresReservationRepository) Find(ctx context.Context, videoID string) (models.UploadReservation, error) {
	return r.findOne(ctx, `WHERE video_id = $1`, videoID)
}

// FindByIdempotencyKey loads the reservation created under key.
func (r *PostgresReservationRepository) FindByIdempotencyKey(ctx context.Context, key string) (models.UploadReservation, error) {
	if key == "" {
		return models.UploadReservation{}, ErrNotFound
	}
	return r.findOne(ctx, `WHERE idempotency_key = $1`, key)
}

func (r *PostgresReservationRepository) findOne(ctx context.Context, where string, arg string) (models.UploadReservation, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT `+reservationColumns+`
        FROM upload_reservations
        `+where, arg)

	var (
		res models.UploadReservation
		key *string
	)
	if err := row.Scan(&res.VideoID, &res.Key, &res.FileName, &res.ContentType, &res.Title, &res.Caption,
		&res.Location, &res.VideoURL, &key, &res.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.UploadReservation{}, ErrNotFound
		}
		return models.UploadReservation{}, fmt.Errorf("select reservation: %w", err)
	}
	if key != nil {
		res.IdempotencyKey = *key
	}
	res.CreatedAt = res.CreatedAt.UTC()
	return res, nil
}

// Delete removes a reservation.
func (r *PostgresReservationRepository) Delete(ctx context.Context, videoID string) error {
	tag, err := r.pool.Exec(ctx, `
        DELETE FROM upload_reservations
        WHERE video_id = $1
    `, videoID)
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PostgresAccountRepository provides PostgreSQL-backed persistence for creator accounts.
type PostgresAccountRepository struct {
	pool db.DBTX
}

// NewPostgresAccountRepository constructs an account repository backed by PostgreSQL.
func NewPostgresAccountRepository(pool db.DBTX) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool}
}

// Create persists a new account.
func (r *PostgresAccountRepository) Create(ctx context.Context, a models.Account) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO accounts (id, email, name, avatar, password_hash, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, a.ID, a.Email, a.Name, a.Avatar, a.PasswordHash, a.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// FindByEmail fetches an account by email address.
func (r *PostgresAccountRepository) FindByEmail(ctx context.Context, email string) (models.Account, error) {
	return r.findOne(ctx, `WHERE email = $1`, email)
}

// FindByID fetches an account by id.
func (r *PostgresAccountRepository) FindByID(ctx context.Context, id string) (models.Account, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *PostgresAccountRepository) findOne(ctx context.Context, where, arg string) (models.Account, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT id, email, name, avatar, password_hash, created_at
        FROM accounts
        `+where, arg)

	var a models.Account
	if err := row.Scan(&a.ID, &a.Email, &a.Name, &a.Avatar, &a.PasswordHash, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, ErrNotFound
		}
		return models.Account{}, fmt.Errorf("select account: %w", err)
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ VideoRepository = (*PostgresVideoRepository)(nil)
var _ ReservationRepository = (*PostgresReservationRepository)(nil)
var _ AccountRepository = (*PostgresAccountRepository)(nil)
