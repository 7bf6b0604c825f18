package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/waterworks/servicedesk/internal/domain"
)

// CommentRepository manages the append-only request thread. Comments are
// never updated or deleted.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByRequest(ctx context.Context, tenantID, requestID string, includeInternal bool) ([]domain.Comment, error)
	CountByRequest(ctx context.Context, tenantID, requestID string, includeInternal bool) (int, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds the postgres-backed repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO request_comments (
            id, tenant_id, request_id, author_kind, author_id, body, is_internal,
            status_changed_from, status_changed_to, created_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		comment.ID, comment.TenantID, comment.RequestID,
		comment.Author.Kind, comment.Author.ID, comment.Body, comment.Internal,
		comment.StatusChangedFrom, comment.StatusChangedTo, comment.CreatedAt,
	)
	return err
}

func (r *commentRepository) ListByRequest(ctx context.Context, tenantID, requestID string, includeInternal bool) ([]domain.Comment, error) {
	query := `
        SELECT id, tenant_id, request_id, author_kind, author_id, body, is_internal,
               status_changed_from, status_changed_to, created_at
        FROM request_comments
        WHERE tenant_id=$1 AND request_id=$2`
	if !includeInternal {
		query += ` AND is_internal = FALSE`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.TenantID,
			&comment.RequestID,
			&comment.Author.Kind,
			&comment.Author.ID,
			&comment.Body,
			&comment.Internal,
			&comment.StatusChangedFrom,
			&comment.StatusChangedTo,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}

func (r *commentRepository) CountByRequest(ctx context.Context, tenantID, requestID string, includeInternal bool) (int, error) {
	query := `SELECT COUNT(*) FROM request_comments WHERE tenant_id=$1 AND request_id=$2`
	if !includeInternal {
		query += ` AND is_internal = FALSE`
	}
	var count int
	err := r.pool.QueryRow(ctx, query, tenantID, requestID).Scan(&count)
	return count, err
}
