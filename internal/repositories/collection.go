// file: internal/repositories/collection.go
package repositories

import (
	"context"
	"fmt"

	"badgehub/internal/database"

	"go.uber.org/zap"
)

// Collection holds all repository instances for dependency injection
type Collection struct {
	Badge     BadgeRepository
	Assertion AssertionRepository
	Recipient RecipientRepository

	db     *database.Manager
	logger *zap.Logger
}

// NewCollection creates a new repository collection with all dependencies
func NewCollection(db *database.Manager, logger *zap.Logger) (*Collection, error) {
	if db == nil {
		return nil, fmt.Errorf("database manager is required")
	}

	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	collection := &Collection{
		db:     db,
		logger: logger,
	}

	collection.Badge = NewBadgeRepository(db, logger)
	collection.Assertion = NewAssertionRepository(db, logger)
	collection.Recipient = NewRecipientRepository(db, logger)

	logger.Info("repository collection initialized")

	return collection, nil
}

// HealthCheck reports database connectivity for the collection.
func (c *Collection) HealthCheck(ctx context.Context) map[string]interface{} {
	dbHealth := c.db.Health(ctx)
	return map[string]interface{}{
		"database": map[string]interface{}{
			"status":        dbHealth.Status,
			"response_time": dbHealth.ResponseTime,
			"errors":        dbHealth.Errors,
		},
	}
}

// GetDB returns the underlying database manager for advanced operations
func (c *Collection) GetDB() *database.Manager {
	return c.db
}

// GetLogger returns the logger instance
func (c *Collection) GetLogger() *zap.Logger {
	return c.logger
}

// Close closes all repository connections and cleans up resources
func (c *Collection) Close() error {
	c.logger.Info("closing repository collection")

	if c.db != nil {
		return c.db.Close()
	}

	return nil
}
