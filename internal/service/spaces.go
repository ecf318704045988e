package service

import (
	"context"
	"fmt"
	"strings"

	"parkir/internal/database"
	apperrors "parkir/internal/errors"
	"parkir/internal/models"
	"parkir/internal/repository"
)

const defaultSpaceType = "Standard"

// SpaceService handles parking space provisioning. Occupancy is out of its
// hands: only the session coordinator reserves and releases spaces.
type SpaceService struct {
	db     *database.DB
	spaces *repository.SpaceRepository
}

func NewSpaceService(db *database.DB, spaces *repository.SpaceRepository) *SpaceService {
	return &SpaceService{db: db, spaces: spaces}
}

func (s *SpaceService) Create(ctx context.Context, req *models.CreateSpaceRequest) (*models.ParkingSpace, error) {
	spaceNumber := strings.TrimSpace(req.SpaceNumber)
	if spaceNumber == "" {
		return nil, fmt.Errorf("space number is required: %w", apperrors.ErrValidation)
	}
	if req.HourlyRate < 0 {
		return nil, fmt.Errorf("hourly rate must not be negative: %w", apperrors.ErrValidation)
	}
	spaceType := req.SpaceType
	if spaceType == "" {
		spaceType = defaultSpaceType
	}

	space := &models.ParkingSpace{
		SpaceNumber: spaceNumber,
		SpaceType:   spaceType,
		HourlyRate:  req.HourlyRate,
	}
	if err := s.spaces.Create(ctx, space); err != nil {
		return nil, err
	}
	return space, nil
}

func (s *SpaceService) List(ctx context.Context) ([]models.ParkingSpace, error) {
	return s.spaces.List(ctx)
}

func (s *SpaceService) Update(ctx context.Context, id int64, req *models.UpdateSpaceRequest) (*models.ParkingSpace, error) {
	if req.HourlyRate != nil && *req.HourlyRate < 0 {
		return nil, fmt.Errorf("hourly rate must not be negative: %w", apperrors.ErrValidation)
	}

	space, err := s.spaces.Update(ctx, id, req.SpaceType, req.HourlyRate)
	if err != nil {
		return nil, err
	}
	if space == nil {
		return nil, fmt.Errorf("space %d: %w", id, apperrors.ErrNotFound)
	}
	return space, nil
}

func (s *SpaceService) Delete(ctx context.Context, id int64) error {
	return s.spaces.Delete(ctx, id)
}
