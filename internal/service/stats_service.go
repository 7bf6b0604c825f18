package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/waterworks/servicedesk/internal/repository"
	"github.com/waterworks/servicedesk/internal/stats"
	apperrors "github.com/waterworks/servicedesk/pkg/util"
)

// StatsService computes request statistics. Summaries are cached in Redis
// for a short TTL; a cache miss or an unavailable Redis falls back to a
// live computation.
type StatsService struct {
	requests repository.RequestRepository
	cache    *redis.Client
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// StatsDependencies bundles collaborators. Cache may be nil.
type StatsDependencies struct {
	RequestRepo repository.RequestRepository
	Cache       *redis.Client
	CacheTTL    time.Duration
	Logger      *zap.Logger
	Clock       func() time.Time
}

// NewStatsService constructs the service.
func NewStatsService(deps StatsDependencies) *StatsService {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.CacheTTL <= 0 {
		deps.CacheTTL = time.Minute
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &StatsService{
		requests: deps.RequestRepo,
		cache:    deps.Cache,
		ttl:      deps.CacheTTL,
		logger:   deps.Logger,
		now:      deps.Clock,
	}
}

// statsScanLimit bounds how many requests a single summary walks.
const statsScanLimit = 10000

// CustomerSummary aggregates one customer's requests.
func (s *StatsService) CustomerSummary(ctx context.Context, tenantID, customerID string) (*stats.Summary, error) {
	key := "servicedesk:stats:" + tenantID + ":customer:" + customerID
	if cached := s.fromCache(ctx, key); cached != nil {
		return cached, nil
	}

	requests, err := s.requests.ListWithFilter(ctx, tenantID, repository.RequestFilter{
		CustomerID: &customerID,
		Limit:      statsScanLimit,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	summary := stats.Compute(requests, s.now())
	s.toCache(ctx, key, &summary)
	return &summary, nil
}

// TenantSummary aggregates all requests for a tenant.
func (s *StatsService) TenantSummary(ctx context.Context, tenantID string) (*stats.Summary, error) {
	key := "servicedesk:stats:" + tenantID
	if cached := s.fromCache(ctx, key); cached != nil {
		return cached, nil
	}

	requests, err := s.requests.ListWithFilter(ctx, tenantID, repository.RequestFilter{
		Limit: statsScanLimit,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	summary := stats.Compute(requests, s.now())
	s.toCache(ctx, key, &summary)
	return &summary, nil
}

func (s *StatsService) fromCache(ctx context.Context, key string) *stats.Summary {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var summary stats.Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil
	}
	return &summary
}

func (s *StatsService) toCache(ctx context.Context, key string, summary *stats.Summary) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.logger.Debug("stats cache write failed", zap.String("key", key), zap.Error(err))
	}
}
