package main

import (
	"context"
	"time"

	"github.com/clubledger/clubledger/internal/api"
	v1 "github.com/clubledger/clubledger/internal/api/v1"
	"github.com/clubledger/clubledger/internal/cache"
	"github.com/clubledger/clubledger/internal/catalog"
	"github.com/clubledger/clubledger/internal/config"
	"github.com/clubledger/clubledger/internal/httpclient"
	"github.com/clubledger/clubledger/internal/idempotency"
	"github.com/clubledger/clubledger/internal/logger"
	"github.com/clubledger/clubledger/internal/postgres"
	"github.com/clubledger/clubledger/internal/repository"
	"github.com/clubledger/clubledger/internal/service"
	"github.com/clubledger/clubledger/internal/validator"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Cache
			cache.NewInMemoryCache,

			// Postgres
			postgres.NewDB,
			postgres.NewClient,

			// Idempotency
			idempotency.NewRecorder,

			// HTTP Client
			httpclient.NewDefaultClient,

			// Repositories
			repository.NewInvoiceRepository,

			// Catalog
			catalog.NewService,
		),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewInvoiceService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(startServer),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideHandlers(
	logger *logger.Logger,
	invoiceService service.InvoiceService,
	catalogService catalog.Service,
) api.Handlers {
	return api.Handlers{
		Invoice: v1.NewInvoiceHandler(invoiceService, logger),
		Catalog: v1.NewCatalogHandler(catalogService, logger),
		Health:  v1.NewHealthHandler(),
	}
}

func provideRouter(handlers api.Handlers) *gin.Engine {
	return api.NewRouter(handlers)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}
