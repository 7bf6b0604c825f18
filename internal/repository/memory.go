package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/waterworks/servicedesk/internal/domain"
)

// The memory implementations back tests and DSN-less local runs. They
// honor the same concurrency contracts as the postgres repositories:
// assignment and status updates are atomic under the store mutex.

// MemoryRequestRepository is an in-memory RequestRepository.
type MemoryRequestRepository struct {
	mu        sync.Mutex
	requests  map[string]*domain.ServiceRequest
	sequences map[string]int // tenant|year -> last value
}

// NewMemoryRequestRepository builds an empty store.
func NewMemoryRequestRepository() *MemoryRequestRepository {
	return &MemoryRequestRepository{
		requests:  make(map[string]*domain.ServiceRequest),
		sequences: make(map[string]int),
	}
}

func cloneRequest(req *domain.ServiceRequest) *domain.ServiceRequest {
	clone := *req
	if req.Coordinates != nil {
		coords := *req.Coordinates
		clone.Coordinates = &coords
	}
	clone.AssignedTo = clonePtr(req.AssignedTo)
	clone.RelatedAssetID = clonePtr(req.RelatedAssetID)
	clone.CustomerRating = clonePtr(req.CustomerRating)
	clone.AssignedAt = clonePtr(req.AssignedAt)
	clone.AcknowledgedAt = clonePtr(req.AcknowledgedAt)
	clone.ResolvedAt = clonePtr(req.ResolvedAt)
	clone.ClosedAt = clonePtr(req.ClosedAt)
	clone.ActualResponseAt = clonePtr(req.ActualResponseAt)
	return &clone
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Create stores the request and allocates its sequence number.
func (r *MemoryRequestRepository) Create(_ context.Context, req *domain.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	year := req.CreatedAt.Year()
	key := fmt.Sprintf("%s|%d", req.TenantID, year)
	r.sequences[key]++
	req.RequestNumber = fmt.Sprintf("SR-%d-%05d", year, r.sequences[key])

	r.requests[req.TenantID+"|"+req.ID] = cloneRequest(req)
	return nil
}

// GetByID returns a copy of the stored request.
func (r *MemoryRequestRepository) GetByID(_ context.Context, tenantID, id string) (*domain.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[tenantID+"|"+id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRequest(req), nil
}

// GetByNumber looks a request up by its human-readable number.
func (r *MemoryRequestRepository) GetByNumber(_ context.Context, tenantID, number string) (*domain.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.TenantID == tenantID && req.RequestNumber == number {
			return cloneRequest(req), nil
		}
	}
	return nil, ErrNotFound
}

// ListWithFilter applies the filter in memory.
func (r *MemoryRequestRepository) ListWithFilter(_ context.Context, tenantID string, filter RequestFilter) ([]domain.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []domain.ServiceRequest
	for _, req := range r.requests {
		if req.TenantID != tenantID {
			continue
		}
		if !matchesFilter(req, filter) {
			continue
		}
		result = append(result, *cloneRequest(req))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func matchesFilter(req *domain.ServiceRequest, filter RequestFilter) bool {
	if filter.CustomerID != nil && req.CustomerID != *filter.CustomerID {
		return false
	}
	if filter.AssignedTo != nil && (req.AssignedTo == nil || *req.AssignedTo != *filter.AssignedTo) {
		return false
	}
	if len(filter.Statuses) > 0 && !containsValue(filter.Statuses, req.Status) {
		return false
	}
	if len(filter.IssueTypes) > 0 && !containsValue(filter.IssueTypes, req.IssueType) {
		return false
	}
	if len(filter.Urgencies) > 0 && !containsValue(filter.Urgencies, req.Urgency) {
		return false
	}
	if filter.CreatedFrom != nil && req.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && req.CreatedAt.After(*filter.CreatedTo) {
		return false
	}
	if filter.SearchTerm != nil {
		term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
		if term != "" {
			haystack := strings.ToLower(req.Title + " " + req.Description + " " + req.RequestNumber)
			if !strings.Contains(haystack, term) {
				return false
			}
		}
	}
	return true
}

func containsValue[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// UpdateStatus applies the optimistic precondition atomically.
func (r *MemoryRequestRepository) UpdateStatus(_ context.Context, req *domain.ServiceRequest, expected []domain.RequestStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.requests[req.TenantID+"|"+req.ID]
	if !ok {
		return ErrNotFound
	}
	if !containsValue(expected, stored.Status) {
		return ErrStaleStatus
	}

	stored.Status = req.Status
	stored.AssignedTo = clonePtr(req.AssignedTo)
	stored.ResolutionNotes = req.ResolutionNotes
	stored.ResolutionCategory = req.ResolutionCategory
	stored.CreatedWorkOrder = req.CreatedWorkOrder
	stored.WorkOrderNumber = req.WorkOrderNumber
	stored.UpdatedAt = req.UpdatedAt
	stored.AssignedAt = clonePtr(req.AssignedAt)
	stored.AcknowledgedAt = clonePtr(req.AcknowledgedAt)
	stored.ResolvedAt = clonePtr(req.ResolvedAt)
	stored.ClosedAt = clonePtr(req.ClosedAt)
	stored.ActualResponseAt = clonePtr(req.ActualResponseAt)
	return nil
}

// AssignIfUnassigned performs the check-and-set under the store mutex.
func (r *MemoryRequestRepository) AssignIfUnassigned(_ context.Context, req *domain.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.requests[req.TenantID+"|"+req.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.AssignedTo != nil {
		return ErrAlreadyAssigned
	}

	stored.AssignedTo = clonePtr(req.AssignedTo)
	stored.AssignedAt = clonePtr(req.AssignedAt)
	stored.Status = req.Status
	stored.UpdatedAt = req.UpdatedAt
	return nil
}

// SaveRating records the rating only while none exists.
func (r *MemoryRequestRepository) SaveRating(_ context.Context, req *domain.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.requests[req.TenantID+"|"+req.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.CustomerRating != nil {
		return ErrStaleStatus
	}
	if stored.Status != domain.StatusResolved && stored.Status != domain.StatusClosed {
		return ErrStaleStatus
	}

	stored.CustomerRating = clonePtr(req.CustomerRating)
	stored.CustomerFeedback = req.CustomerFeedback
	stored.UpdatedAt = req.UpdatedAt
	return nil
}

// MemoryCommentRepository is an in-memory CommentRepository.
type MemoryCommentRepository struct {
	mu       sync.Mutex
	comments []domain.Comment
}

// NewMemoryCommentRepository builds an empty store.
func NewMemoryCommentRepository() *MemoryCommentRepository {
	return &MemoryCommentRepository{}
}

// Create appends the comment.
func (r *MemoryCommentRepository) Create(_ context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comments = append(r.comments, *comment)
	return nil
}

// ListByRequest returns the thread in creation order.
func (r *MemoryCommentRepository) ListByRequest(_ context.Context, tenantID, requestID string, includeInternal bool) ([]domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []domain.Comment
	for _, comment := range r.comments {
		if comment.TenantID != tenantID || comment.RequestID != requestID {
			continue
		}
		if comment.Internal && !includeInternal {
			continue
		}
		result = append(result, comment)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// CountByRequest counts thread entries.
func (r *MemoryCommentRepository) CountByRequest(ctx context.Context, tenantID, requestID string, includeInternal bool) (int, error) {
	comments, err := r.ListByRequest(ctx, tenantID, requestID, includeInternal)
	if err != nil {
		return 0, err
	}
	return len(comments), nil
}

// MemoryPhotoRepository is an in-memory PhotoRepository.
type MemoryPhotoRepository struct {
	mu     sync.Mutex
	photos []domain.Photo
	data   map[string][]byte
}

// NewMemoryPhotoRepository builds an empty store.
func NewMemoryPhotoRepository() *MemoryPhotoRepository {
	return &MemoryPhotoRepository{data: make(map[string][]byte)}
}

// Create stores metadata and payload.
func (r *MemoryPhotoRepository) Create(_ context.Context, photo *domain.Photo, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.photos = append(r.photos, *photo)
	buf := make([]byte, len(data))
	copy(buf, data)
	r.data[photo.TenantID+"|"+photo.ID] = buf
	return nil
}

// ListByRequest returns photos in upload order.
func (r *MemoryPhotoRepository) ListByRequest(_ context.Context, tenantID, requestID string) ([]domain.Photo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []domain.Photo
	for _, photo := range r.photos {
		if photo.TenantID == tenantID && photo.RequestID == requestID {
			result = append(result, photo)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].UploadedAt.Before(result[j].UploadedAt)
	})
	return result, nil
}

// GetData returns the stored metadata and payload.
func (r *MemoryPhotoRepository) GetData(_ context.Context, tenantID, photoID string) (*domain.Photo, []byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, ok := r.data[tenantID+"|"+photoID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	for _, photo := range r.photos {
		if photo.TenantID == tenantID && photo.ID == photoID {
			clone := photo
			return &clone, data, nil
		}
	}
	return nil, nil, ErrNotFound
}

// CountByRequest counts stored photos.
func (r *MemoryPhotoRepository) CountByRequest(ctx context.Context, tenantID, requestID string) (int, error) {
	photos, err := r.ListByRequest(ctx, tenantID, requestID)
	if err != nil {
		return 0, err
	}
	return len(photos), nil
}

// MemoryCustomerRepository is an in-memory CustomerRepository.
type MemoryCustomerRepository struct {
	mu        sync.Mutex
	customers map[string]*domain.Customer
}

// NewMemoryCustomerRepository builds a store seeded with the given customers.
func NewMemoryCustomerRepository(customers ...*domain.Customer) *MemoryCustomerRepository {
	repo := &MemoryCustomerRepository{customers: make(map[string]*domain.Customer)}
	for _, customer := range customers {
		repo.customers[customer.TenantID+"|"+customer.ID] = customer
	}
	return repo
}

// Put inserts or replaces a customer record.
func (r *MemoryCustomerRepository) Put(customer *domain.Customer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers[customer.TenantID+"|"+customer.ID] = customer
}

// GetByID looks up a customer.
func (r *MemoryCustomerRepository) GetByID(_ context.Context, tenantID, id string) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	customer, ok := r.customers[tenantID+"|"+id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *customer
	return &clone, nil
}

// GetByEmail looks up a customer by address.
func (r *MemoryCustomerRepository) GetByEmail(_ context.Context, tenantID, email string) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, customer := range r.customers {
		if customer.TenantID == tenantID && customer.Email == email {
			clone := *customer
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

// MemoryStaffRepository is an in-memory StaffRepository.
type MemoryStaffRepository struct {
	mu    sync.Mutex
	staff map[string]*domain.Staff
}

// NewMemoryStaffRepository builds a store seeded with the given staff.
func NewMemoryStaffRepository(members ...*domain.Staff) *MemoryStaffRepository {
	repo := &MemoryStaffRepository{staff: make(map[string]*domain.Staff)}
	for _, member := range members {
		repo.staff[member.TenantID+"|"+member.ID] = member
	}
	return repo
}

// Put inserts or replaces a staff record.
func (r *MemoryStaffRepository) Put(member *domain.Staff) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staff[member.TenantID+"|"+member.ID] = member
}

// GetByID looks up a staff member.
func (r *MemoryStaffRepository) GetByID(_ context.Context, tenantID, id string) (*domain.Staff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	member, ok := r.staff[tenantID+"|"+id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *member
	return &clone, nil
}

// GetByEmail looks up a staff member by address.
func (r *MemoryStaffRepository) GetByEmail(_ context.Context, tenantID, email string) (*domain.Staff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, member := range r.staff {
		if member.TenantID == tenantID && member.Email == email {
			clone := *member
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

// ListActiveByRoles lists active staff matching any of the roles.
func (r *MemoryStaffRepository) ListActiveByRoles(_ context.Context, tenantID string, roles []domain.StaffRole) ([]domain.Staff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []domain.Staff
	for _, member := range r.staff {
		if member.TenantID != tenantID || !member.Active {
			continue
		}
		if containsValue(roles, member.Role) {
			result = append(result, *member)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// MemoryAssetRepository is an in-memory AssetRepository.
type MemoryAssetRepository struct {
	mu     sync.Mutex
	assets map[string]*domain.AssetRef
}

// NewMemoryAssetRepository builds an empty store.
func NewMemoryAssetRepository() *MemoryAssetRepository {
	return &MemoryAssetRepository{assets: make(map[string]*domain.AssetRef)}
}

// Put inserts or replaces an asset reference for a tenant.
func (r *MemoryAssetRepository) Put(tenantID string, asset *domain.AssetRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[tenantID+"|"+asset.ID] = asset
}

// GetByID looks up an asset reference.
func (r *MemoryAssetRepository) GetByID(_ context.Context, tenantID, id string) (*domain.AssetRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.assets[tenantID+"|"+id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *asset
	return &clone, nil
}
