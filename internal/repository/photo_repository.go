package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/waterworks/servicedesk/internal/domain"
)

// PhotoRepository persists photo metadata and payloads. Metadata is
// immutable once stored.
type PhotoRepository interface {
	Create(ctx context.Context, photo *domain.Photo, data []byte) error
	ListByRequest(ctx context.Context, tenantID, requestID string) ([]domain.Photo, error)
	GetData(ctx context.Context, tenantID, photoID string) (*domain.Photo, []byte, error)
	CountByRequest(ctx context.Context, tenantID, requestID string) (int, error)
}

type photoRepository struct {
	pool *pgxpool.Pool
}

// NewPhotoRepository builds the postgres-backed repository.
func NewPhotoRepository(pool *pgxpool.Pool) PhotoRepository {
	return &photoRepository{pool: pool}
}

func (r *photoRepository) Create(ctx context.Context, photo *domain.Photo, data []byte) error {
	var lat, lon *float64
	if photo.CapturedAt != nil {
		lat = &photo.CapturedAt.Latitude
		lon = &photo.CapturedAt.Longitude
	}
	_, err := r.pool.Exec(ctx, `
        INSERT INTO request_photos (
            id, tenant_id, request_id, storage_key, caption, mime_type, size_bytes,
            width, height, latitude, longitude, uploader_kind, uploader_id,
            uploaded_at, data
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		photo.ID, photo.TenantID, photo.RequestID, photo.StorageKey, photo.Caption,
		photo.MimeType, photo.SizeBytes, photo.Width, photo.Height, lat, lon,
		photo.UploadedBy.Kind, photo.UploadedBy.ID, photo.UploadedAt, data,
	)
	return err
}

func (r *photoRepository) ListByRequest(ctx context.Context, tenantID, requestID string) ([]domain.Photo, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, tenant_id, request_id, storage_key, caption, mime_type, size_bytes,
               width, height, latitude, longitude, uploader_kind, uploader_id, uploaded_at
        FROM request_photos
        WHERE tenant_id=$1 AND request_id=$2
        ORDER BY uploaded_at ASC`, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Photo
	for rows.Next() {
		var photo domain.Photo
		var lat, lon *float64
		if err := rows.Scan(
			&photo.ID,
			&photo.TenantID,
			&photo.RequestID,
			&photo.StorageKey,
			&photo.Caption,
			&photo.MimeType,
			&photo.SizeBytes,
			&photo.Width,
			&photo.Height,
			&lat,
			&lon,
			&photo.UploadedBy.Kind,
			&photo.UploadedBy.ID,
			&photo.UploadedAt,
		); err != nil {
			return nil, err
		}
		if lat != nil && lon != nil {
			photo.CapturedAt = &domain.GeoPoint{Latitude: *lat, Longitude: *lon}
		}
		result = append(result, photo)
	}
	return result, rows.Err()
}

func (r *photoRepository) GetData(ctx context.Context, tenantID, photoID string) (*domain.Photo, []byte, error) {
	var photo domain.Photo
	var data []byte
	err := r.pool.QueryRow(ctx, `
        SELECT id, tenant_id, request_id, mime_type, size_bytes, data
        FROM request_photos WHERE tenant_id=$1 AND id=$2`,
		tenantID, photoID).Scan(
		&photo.ID, &photo.TenantID, &photo.RequestID,
		&photo.MimeType, &photo.SizeBytes, &data,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	return &photo, data, nil
}

func (r *photoRepository) CountByRequest(ctx context.Context, tenantID, requestID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
        SELECT COUNT(*) FROM request_photos WHERE tenant_id=$1 AND request_id=$2`,
		tenantID, requestID).Scan(&count)
	return count, err
}
