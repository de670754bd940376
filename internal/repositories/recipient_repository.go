// file: internal/repositories/recipient_repository.go
package repositories

import (
	"context"
	"fmt"

	"badgehub/internal/database"
	"badgehub/internal/models"

	"go.uber.org/zap"
)

// recipientRepository implements RecipientRepository on Postgres.
type recipientRepository struct {
	*BaseRepository
}

// NewRecipientRepository creates a new recipient repository
func NewRecipientRepository(db *database.Manager, logger *zap.Logger) RecipientRepository {
	return &recipientRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// Create inserts a new recipient.
func (r *recipientRepository) Create(ctx context.Context, recipient *models.Recipient) error {
	query := `
		INSERT INTO recipients (display_name, email, email_confirmed)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.QueryRowContext(
		ctx, query,
		recipient.DisplayName, recipient.Email, recipient.EmailConfirmed,
	).Scan(&recipient.ID, &recipient.CreatedAt)

	if err != nil {
		r.GetLogger().Error("failed to create recipient",
			zap.Error(err),
			zap.String("display_name", recipient.DisplayName),
		)
		return fmt.Errorf("failed to create recipient: %w", err)
	}

	return nil
}

// GetByID retrieves a recipient by ID, or (nil, nil) when absent.
func (r *recipientRepository) GetByID(ctx context.Context, id int64) (*models.Recipient, error) {
	query := `
		SELECT id, display_name, email, email_confirmed, created_at
		FROM recipients
		WHERE id = $1`

	var recipient models.Recipient
	err := r.QueryRowContext(ctx, query, id).Scan(
		&recipient.ID, &recipient.DisplayName,
		&recipient.Email, &recipient.EmailConfirmed, &recipient.CreatedAt,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recipient by id: %w", err)
	}

	return &recipient, nil
}

// GetByDisplayName retrieves a recipient by display name, or (nil, nil)
// when absent.
func (r *recipientRepository) GetByDisplayName(ctx context.Context, displayName string) (*models.Recipient, error) {
	query := `
		SELECT id, display_name, email, email_confirmed, created_at
		FROM recipients
		WHERE display_name = $1`

	var recipient models.Recipient
	err := r.QueryRowContext(ctx, query, displayName).Scan(
		&recipient.ID, &recipient.DisplayName,
		&recipient.Email, &recipient.EmailConfirmed, &recipient.CreatedAt,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recipient by display name: %w", err)
	}

	return &recipient, nil
}
