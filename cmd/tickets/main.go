package main

import (
	hospitalrepository "hospiq/internal/hospitals/repository"
	hospitalservice "hospiq/internal/hospitals/service"
	hospitalvalidator "hospiq/internal/hospitals/validator"
	"hospiq/internal/prediction"
	"hospiq/internal/tickets/handler"
	"hospiq/internal/tickets/repository"
	"hospiq/internal/tickets/service"
	"hospiq/internal/tickets/validator"
	"hospiq/pkg/app"
	"hospiq/pkg/cache"
	"hospiq/pkg/config"
	"hospiq/pkg/events"
)

const ServiceName = "tickets"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Tickets service")

	producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, ServiceName, cfg.Log)
	defer func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close event producer", "error", err)
		}
	}()

	ticketService := initServices(cfg, producer)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewTicketHandler(ticketService, cfg.Log), app.AuthRequired)
	serverApp.Run()
}

func initServices(cfg *config.Config, producer *events.Producer) service.TicketService {
	hospitalCache := cache.New(cfg.Client.Redis, cfg.HospitalCacheTTL)
	hospitalRepo := hospitalrepository.NewMongoHospitalRepository(cfg)
	hospitals := hospitalservice.NewHospitalService(
		hospitalRepo,
		hospitalvalidator.NewHospitalValidator(cfg.Log),
		hospitalCache,
		cfg,
	)

	ticketService := service.NewTicketService(
		repository.NewMongoTicketRepository(cfg),
		repository.NewMongoSequenceRepository(cfg),
		repository.NewMongoBookingLockRepository(cfg),
		validator.NewTicketValidator(cfg.Log),
		hospitals,
		prediction.New(cfg),
		producer,
		cfg,
	)

	cfg.Log.Info("Ticket service initialized",
		"database", cfg.MongoDatabaseName,
		"oracle_mode", cfg.OracleMode,
	)
	return ticketService
}
