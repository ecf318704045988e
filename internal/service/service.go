package service

import (
	"parkir/internal/cache"
	"parkir/internal/database"
	"parkir/internal/messaging"
	"parkir/internal/repository"
	"parkir/internal/search"
)

type Services struct {
	Sessions     *SessionService
	Spaces       *SpaceService
	Dashboard    *DashboardService
	Transactions *TransactionService
	Vehicles     *VehicleService
}

func NewServices(db *database.DB, repos *repository.Repositories, natsClient *messaging.NATSClient, esClient *search.ElasticsearchClient, cacheClient *cache.Client) *Services {
	sessions := NewSessionService(db, repos.Vehicles, repos.Spaces, repos.Tickets, repos.Transactions)
	if natsClient != nil {
		sessions.WithPublisher(natsClient)
	}
	if esClient != nil {
		sessions.WithIndexer(esClient)
	}
	if cacheClient != nil {
		sessions.WithCache(cacheClient)
	}

	return &Services{
		Sessions:     sessions,
		Spaces:       NewSpaceService(db, repos.Spaces),
		Dashboard:    NewDashboardService(repos.Spaces, repos.Transactions, cacheClient),
		Transactions: NewTransactionService(esClient),
		Vehicles:     NewVehicleService(repos.Vehicles),
	}
}
