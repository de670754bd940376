// file: internal/services/service_collection.go
package services

import (
	"context"
	"fmt"
	"time"

	"badgehub/internal/cache"
	"badgehub/internal/config"
	"badgehub/internal/database"
	"badgehub/internal/identity"
	"badgehub/internal/repositories"
	"badgehub/internal/storage"

	"go.uber.org/zap"
)

// ServiceCollection wires the badge services with their dependencies.
type ServiceCollection struct {
	BadgeService BadgeService
	Renderer     *AssertionRenderer

	Repositories *repositories.Collection
	Recipients   identity.Provider
	Images       storage.ImageStore
	Policy       *RecipientPolicy

	Cache     cache.Cache
	Logger    *zap.Logger
	Config    *config.Config
	DBManager *database.Manager
}

// NewServiceCollection builds the full service graph in dependency
// order: infrastructure, repositories, then the badge services.
func NewServiceCollection(
	dbManager *database.Manager,
	cfg *config.Config,
	logger *zap.Logger,
) (*ServiceCollection, error) {
	if dbManager == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	sc := &ServiceCollection{
		DBManager: dbManager,
		Config:    cfg,
		Logger:    logger,
	}

	if err := sc.initializeInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to initialize infrastructure: %w", err)
	}

	if err := sc.initializeRepositories(); err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	sc.initializeServices()

	logger.Info("service collection initialized",
		zap.String("cache_provider", cfg.Cache.Provider),
		zap.Bool("cloudinary_enabled", cfg.Cloudinary.CloudName != ""),
	)

	return sc, nil
}

// ===============================
// INITIALIZATION
// ===============================

func (sc *ServiceCollection) initializeInfrastructure() error {
	docCache, err := cache.NewCache(&cache.Config{
		Provider: sc.Config.Cache.Provider,
		TTL:      sc.Config.Cache.DefaultTTL,
		RedisURL: sc.Config.Cache.RedisURL,
	}, sc.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	sc.Cache = docCache

	// Cloudinary when configured, local disk otherwise. Development
	// setups rarely have cloud credentials.
	if sc.Config.Cloudinary.CloudName != "" {
		store, err := storage.NewCloudinaryStore(&sc.Config.Cloudinary, &sc.Config.Badges, sc.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize cloudinary store: %w", err)
		}
		sc.Images = store
	} else {
		store, err := storage.NewLocalStore(
			"uploads/badges",
			sc.Config.Badges.BaseURL+"/uploads/badges",
			sc.Config.Cloudinary.MaxFileSize,
			sc.Config.Badges.ThumbWidth,
			sc.Logger,
		)
		if err != nil {
			return fmt.Errorf("failed to initialize local image store: %w", err)
		}
		sc.Images = store
	}

	return nil
}

func (sc *ServiceCollection) initializeRepositories() error {
	repos, err := repositories.NewCollection(sc.DBManager, sc.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository collection: %w", err)
	}
	sc.Repositories = repos
	return nil
}

func (sc *ServiceCollection) initializeServices() {
	sc.Recipients = identity.NewProvider(sc.Repositories.Recipient)
	sc.Policy = NewRecipientPolicyFromConfig(&sc.Config.Badges)

	sc.Renderer = NewAssertionRenderer(
		sc.Repositories,
		sc.Images,
		sc.Policy,
		sc.Cache,
		&sc.Config.Badges,
		sc.Config.Cache.DefaultTTL,
		sc.Logger,
	)

	sc.BadgeService = NewBadgeService(
		sc.Repositories.Badge,
		sc.Repositories.Assertion,
		sc.Recipients,
		sc.Images,
		sc.Policy,
		sc.Renderer,
		sc.Logger,
	)
}

// ===============================
// LIFECYCLE
// ===============================

// HealthCheck verifies the collection's external dependencies.
func (sc *ServiceCollection) HealthCheck(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if dbHealth := sc.DBManager.Health(checkCtx); dbHealth.Status != database.StatusHealthy {
		return fmt.Errorf("database health check failed: %v", dbHealth.Errors)
	}

	if err := sc.Cache.Health(checkCtx); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}

	return nil
}

// Shutdown releases the collection's resources.
func (sc *ServiceCollection) Shutdown(ctx context.Context) error {
	sc.Logger.Info("shutting down service collection")

	var errs []error

	if sc.Cache != nil {
		if err := sc.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache close: %w", err))
		}
	}

	if sc.DBManager != nil {
		if err := sc.DBManager.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database close: %w", err))
		}
	}

	if len(errs) > 0 {
		for _, err := range errs {
			sc.Logger.Error("shutdown error", zap.Error(err))
		}
		return fmt.Errorf("shutdown completed with %d errors", len(errs))
	}

	sc.Logger.Info("service collection shutdown completed")
	return nil
}
