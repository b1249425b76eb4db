package main

import (
	"hospiq/internal/hospitals/handler"
	"hospiq/internal/hospitals/repository"
	"hospiq/internal/hospitals/service"
	"hospiq/internal/hospitals/validator"
	"hospiq/pkg/app"
	"hospiq/pkg/cache"
	"hospiq/pkg/config"
)

const ServiceName = "hospitals"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Hospitals service")

	hospitalService := initServices(cfg)
	serverApp := app.NewApplication(cfg)

	// Listing and lookup stay open to anonymous patients; handlers gate
	// the mutating routes to admins.
	serverApp.SetApp(handler.NewHospitalHandler(hospitalService, cfg.Log), app.AuthOptional)
	serverApp.Run()
}

func initServices(cfg *config.Config) service.HospitalService {
	hospitalCache := cache.New(cfg.Client.Redis, cfg.HospitalCacheTTL)
	hospitalService := service.NewHospitalService(
		repository.NewMongoHospitalRepository(cfg),
		validator.NewHospitalValidator(cfg.Log),
		hospitalCache,
		cfg,
	)

	cfg.Log.Info("Hospital service initialized", "database", cfg.MongoDatabaseName)
	return hospitalService
}
