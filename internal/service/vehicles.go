package service

import (
	"context"

	"parkir/internal/models"
	"parkir/internal/repository"
)

// VehicleService lists currently parked vehicles for the gate console.
type VehicleService struct {
	vehicles *repository.VehicleRepository
}

func NewVehicleService(vehicles *repository.VehicleRepository) *VehicleService {
	return &VehicleService{vehicles: vehicles}
}

func (s *VehicleService) ListParked(ctx context.Context) ([]models.Vehicle, error) {
	return s.vehicles.ListParked(ctx)
}
