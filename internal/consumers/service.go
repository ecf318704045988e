package consumers

import (
	"log/slog"

	"parkir/internal/config"
	"parkir/internal/database"
	"parkir/internal/messaging"
	"parkir/internal/models"
	"parkir/internal/repository"
)

// ConsumerService subscribes to the post-commit parking events and fans them
// out to the live dashboard feed. Delivery is at-most-once and best-effort;
// the API never waits for this process.
type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	repos    *repository.Repositories
	handlers *Handlers
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	repos := repository.NewRepositories(db)
	handlers := NewHandlers(repos)

	return &ConsumerService{
		db:       db,
		nats:     natsClient,
		repos:    repos,
		handlers: handlers,
	}, nil
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting parking event consumers...")

	_, err := cs.nats.SubscribeQueue(models.EventParkingEntry, "notifier", cs.handlers.HandleEntry)
	if err != nil {
		return err
	}

	_, err = cs.nats.SubscribeQueue(models.EventParkingExit, "notifier", cs.handlers.HandleExit)
	if err != nil {
		return err
	}

	slog.Info("All consumers started")
	return nil
}

func (cs *ConsumerService) Stop() {
	if cs.nats != nil {
		_ = cs.nats.Close()
	}
	if cs.db != nil {
		_ = cs.db.Close()
	}
}
