package service

import (
	"context"
	"fmt"
	"time"

	"parkir/internal/cache"
	"parkir/internal/models"
	"parkir/internal/repository"
)

const recentActivityLimit = 10

// DashboardService aggregates occupancy and revenue figures for the live
// dashboard. Pure read side; results may be cached with a short TTL but the
// cache is never consulted for allocation decisions.
type DashboardService struct {
	spaces       *repository.SpaceRepository
	transactions *repository.TransactionRepository
	cache        *cache.Client
	clock        Clock
}

func NewDashboardService(spaces *repository.SpaceRepository, transactions *repository.TransactionRepository, cacheClient *cache.Client) *DashboardService {
	return &DashboardService{
		spaces:       spaces,
		transactions: transactions,
		cache:        cacheClient,
		clock:        time.Now,
	}
}

// WithClock overrides the time source used for revenue cutoffs.
func (s *DashboardService) WithClock(clock Clock) *DashboardService {
	s.clock = clock
	return s
}

// GetCachedRaw returns the cached dashboard JSON, if a cache is configured
// and the entry is fresh.
func (s *DashboardService) GetCachedRaw(ctx context.Context) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.GetDashboardRaw(ctx)
	if err != nil {
		return nil, false
	}
	return raw, true
}

func (s *DashboardService) Get(ctx context.Context) (*models.DashboardResponse, error) {
	now := s.clock()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := today.AddDate(0, 0, -int(today.Weekday()))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	total, err := s.spaces.CountTotal(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count spaces: %w", err)
	}
	available, err := s.spaces.CountAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count available spaces: %w", err)
	}

	daily, err := s.transactions.RevenueSince(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("failed to sum daily revenue: %w", err)
	}
	weekly, err := s.transactions.RevenueSince(ctx, weekStart)
	if err != nil {
		return nil, fmt.Errorf("failed to sum weekly revenue: %w", err)
	}
	monthly, err := s.transactions.RevenueSince(ctx, monthStart)
	if err != nil {
		return nil, fmt.Errorf("failed to sum monthly revenue: %w", err)
	}

	activity, err := s.transactions.RecentActivity(ctx, recentActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent activity: %w", err)
	}
	distribution, err := s.transactions.ParkedTypeDistribution(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vehicle distribution: %w", err)
	}

	response := &models.DashboardResponse{
		TotalSpaces:         total,
		AvailableSpaces:     available,
		OccupiedSpaces:      total - available,
		DailyRevenue:        daily,
		WeeklyRevenue:       weekly,
		MonthlyRevenue:      monthly,
		RecentActivity:      activity,
		VehicleDistribution: distribution,
	}

	if s.cache != nil {
		// Best-effort; a failed write just means the next request hits the
		// database again.
		_ = s.cache.SetDashboard(ctx, response)
	}

	return response, nil
}
