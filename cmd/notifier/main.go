package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"parkir/internal/config"
	"parkir/internal/consumers"
	"parkir/internal/logger"
)

func main() {
	cfg := config.Load()

	logger.Init(cfg.LogLevel, cfg.LogFormat)

	service, err := consumers.NewConsumerService(cfg)
	if err != nil {
		log.Fatalf("Failed to create consumer service: %v", err)
	}

	if err := service.Start(); err != nil {
		log.Fatalf("Failed to start consumers: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down notifier...")
	service.Stop()
	log.Println("Notifier stopped")
}
