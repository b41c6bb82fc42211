package main

import (
	"courtside/internal/catalog/handler"
	"courtside/internal/catalog/repository"
	"courtside/internal/catalog/service"
	"courtside/internal/catalog/validator"
	"courtside/pkg/app"
	"courtside/pkg/config"

	"github.com/joho/godotenv"
)

const ServiceName = "catalog"

func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Catalog service")
	catalogService := initServices(cfg)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewCatalogHandler(catalogService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) service.CatalogService {
	catalogService := service.NewCatalogService(
		repository.NewMongoCourtRepository(cfg),
		repository.NewMongoRuleRepository(cfg),
		repository.NewMongoHolidayRepository(cfg),
		validator.NewCatalogValidator(cfg.Log),
		cfg,
	)

	cfg.Log.Info("Catalog service initialized", "database", cfg.MongoDatabaseName)
	return catalogService
}
