package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/waterworks/servicedesk/internal/domain"
)

// RequestFilter captures listing parameters. TenantID scoping is a
// separate argument on every repository call.
type RequestFilter struct {
	CustomerID  *string
	AssignedTo  *string
	Statuses    []domain.RequestStatus
	IssueTypes  []domain.IssueType
	Urgencies   []domain.Urgency
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// RequestRepository encapsulates service request persistence. The write
// methods enforce the concurrency guards: assignment is an atomic
// check-and-set on the unassigned condition, and status updates carry an
// optimistic precondition on the expected current status.
type RequestRepository interface {
	Create(ctx context.Context, req *domain.ServiceRequest) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.ServiceRequest, error)
	GetByNumber(ctx context.Context, tenantID, number string) (*domain.ServiceRequest, error)
	ListWithFilter(ctx context.Context, tenantID string, filter RequestFilter) ([]domain.ServiceRequest, error)

	// UpdateStatus persists the request's status and lifecycle stamps,
	// but only while the stored status is still one of expected.
	UpdateStatus(ctx context.Context, req *domain.ServiceRequest, expected []domain.RequestStatus) error

	// AssignIfUnassigned persists the assignment only when assigned_to
	// is still NULL, returning ErrAlreadyAssigned otherwise.
	AssignIfUnassigned(ctx context.Context, req *domain.ServiceRequest) error

	// SaveRating persists the customer rating only while none is
	// recorded and the request is resolved or closed.
	SaveRating(ctx context.Context, req *domain.ServiceRequest) error
}

type requestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository instantiates the postgres-backed repository.
func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

const requestColumns = `id, tenant_id, request_number, customer_id, assigned_to, issue_type, title,
       description, urgency, reported_location, latitude, longitude, related_asset_id,
       status, priority_score, resolution_notes, resolution_category,
       customer_rating, customer_feedback, created_work_order, work_order_number,
       created_at, updated_at, assigned_at, acknowledged_at, resolved_at, closed_at,
       target_response_at, target_resolution_at, actual_response_at`

func (r *requestRepository) Create(ctx context.Context, req *domain.ServiceRequest) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Sequence numbers are unique and strictly increasing within a
	// calendar year; the upsert serializes concurrent allocations.
	year := req.CreatedAt.Year()
	var seq int
	err = tx.QueryRow(ctx, `
        INSERT INTO request_sequences (tenant_id, year, value)
        VALUES ($1, $2, 1)
        ON CONFLICT (tenant_id, year)
        DO UPDATE SET value = request_sequences.value + 1
        RETURNING value`, req.TenantID, year).Scan(&seq)
	if err != nil {
		return err
	}
	req.RequestNumber = fmt.Sprintf("SR-%d-%05d", year, seq)

	var lat, lon *float64
	if req.Coordinates != nil {
		lat = &req.Coordinates.Latitude
		lon = &req.Coordinates.Longitude
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO service_requests (
            id, tenant_id, request_number, customer_id, issue_type, title, description,
            urgency, reported_location, latitude, longitude, related_asset_id, status,
            priority_score, created_at, updated_at, target_response_at, target_resolution_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		req.ID, req.TenantID, req.RequestNumber, req.CustomerID, req.IssueType,
		req.Title, req.Description, req.Urgency, req.ReportedLocation, lat, lon,
		req.RelatedAssetID, req.Status, req.PriorityScore, req.CreatedAt, req.UpdatedAt,
		req.TargetResponseAt, req.TargetResolutionAt,
	)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *requestRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.ServiceRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM service_requests WHERE tenant_id=$1 AND id=$2`
	return r.fetchSingle(ctx, query, tenantID, id)
}

func (r *requestRepository) GetByNumber(ctx context.Context, tenantID, number string) (*domain.ServiceRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM service_requests WHERE tenant_id=$1 AND request_number=$2`
	return r.fetchSingle(ctx, query, tenantID, number)
}

func (r *requestRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.ServiceRequest, error) {
	row := r.pool.QueryRow(ctx, query, args...)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

func (r *requestRepository) ListWithFilter(ctx context.Context, tenantID string, filter RequestFilter) ([]domain.ServiceRequest, error) {
	clauses := []string{"tenant_id=$1"}
	args := []any{tenantID}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.IssueTypes) > 0 {
		placeholders := make([]string, len(filter.IssueTypes))
		for i, issueType := range filter.IssueTypes {
			args = append(args, issueType)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("issue_type IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Urgencies) > 0 {
		placeholders := make([]string, len(filter.Urgencies))
		for i, urgency := range filter.Urgencies {
			args = append(args, urgency)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("urgency IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(title) LIKE %s OR LOWER(description) LIKE %s OR LOWER(request_number) LIKE %s)",
			placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM service_requests WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		requestColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ServiceRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

func (r *requestRepository) UpdateStatus(ctx context.Context, req *domain.ServiceRequest, expected []domain.RequestStatus) error {
	expectedVals := make([]string, len(expected))
	for i, status := range expected {
		expectedVals[i] = string(status)
	}

	cmd, err := r.pool.Exec(ctx, `
        UPDATE service_requests SET
            status=$1, assigned_to=$2, resolution_notes=$3, resolution_category=$4,
            created_work_order=$5, work_order_number=$6, updated_at=$7, assigned_at=$8,
            acknowledged_at=$9, resolved_at=$10, closed_at=$11, actual_response_at=$12
        WHERE tenant_id=$13 AND id=$14 AND status = ANY($15)`,
		req.Status, req.AssignedTo, req.ResolutionNotes, req.ResolutionCategory,
		req.CreatedWorkOrder, req.WorkOrderNumber, req.UpdatedAt, req.AssignedAt,
		req.AcknowledgedAt, req.ResolvedAt, req.ClosedAt, req.ActualResponseAt,
		req.TenantID, req.ID, expectedVals,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (r *requestRepository) AssignIfUnassigned(ctx context.Context, req *domain.ServiceRequest) error {
	cmd, err := r.pool.Exec(ctx, `
        UPDATE service_requests SET
            assigned_to=$1, assigned_at=$2, status=$3, updated_at=$4
        WHERE tenant_id=$5 AND id=$6 AND assigned_to IS NULL`,
		req.AssignedTo, req.AssignedAt, req.Status, req.UpdatedAt,
		req.TenantID, req.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAlreadyAssigned
	}
	return nil
}

func (r *requestRepository) SaveRating(ctx context.Context, req *domain.ServiceRequest) error {
	cmd, err := r.pool.Exec(ctx, `
        UPDATE service_requests SET
            customer_rating=$1, customer_feedback=$2, updated_at=$3
        WHERE tenant_id=$4 AND id=$5 AND customer_rating IS NULL
          AND status IN ('resolved', 'closed')`,
		req.CustomerRating, req.CustomerFeedback, req.UpdatedAt,
		req.TenantID, req.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleStatus
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*domain.ServiceRequest, error) {
	var req domain.ServiceRequest
	var lat, lon *float64
	if err := row.Scan(
		&req.ID,
		&req.TenantID,
		&req.RequestNumber,
		&req.CustomerID,
		&req.AssignedTo,
		&req.IssueType,
		&req.Title,
		&req.Description,
		&req.Urgency,
		&req.ReportedLocation,
		&lat,
		&lon,
		&req.RelatedAssetID,
		&req.Status,
		&req.PriorityScore,
		&req.ResolutionNotes,
		&req.ResolutionCategory,
		&req.CustomerRating,
		&req.CustomerFeedback,
		&req.CreatedWorkOrder,
		&req.WorkOrderNumber,
		&req.CreatedAt,
		&req.UpdatedAt,
		&req.AssignedAt,
		&req.AcknowledgedAt,
		&req.ResolvedAt,
		&req.ClosedAt,
		&req.TargetResponseAt,
		&req.TargetResolutionAt,
		&req.ActualResponseAt,
	); err != nil {
		return nil, err
	}
	if lat != nil && lon != nil {
		req.Coordinates = &domain.GeoPoint{Latitude: *lat, Longitude: *lon}
	}
	return &req, nil
}
