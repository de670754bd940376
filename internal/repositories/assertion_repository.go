// file: internal/repositories/assertion_repository.go
package repositories

import (
	"context"
	"fmt"
	"strings"

	"badgehub/internal/database"
	"badgehub/internal/models"

	"go.uber.org/zap"
)

// assertionRepository implements AssertionRepository on Postgres.
type assertionRepository struct {
	*BaseRepository
}

// NewAssertionRepository creates a new assertion repository
func NewAssertionRepository(db *database.Manager, logger *zap.Logger) AssertionRepository {
	return &assertionRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// Create inserts a new assertion. When two issuances race for the same
// (badge, recipient) pair, the loser hits the unique index and gets
// ErrAlreadyIssued; the caller then reads back the winner's row.
func (r *assertionRepository) Create(ctx context.Context, assertion *models.BadgeAssertion) error {
	query := `
		INSERT INTO badge_assertions (badge_id, recipient_id, evidence_url)
		VALUES ($1, $2, $3)
		RETURNING id, issued_at`

	err := r.QueryRowContext(
		ctx, query,
		assertion.BadgeID, assertion.RecipientID, assertion.EvidenceURL,
	).Scan(&assertion.ID, &assertion.IssuedAt)

	if err != nil {
		if r.IsUniqueViolation(err, "idx_badge_assertions_badge_recipient") {
			return &ErrAlreadyIssued{
				BadgeID:     assertion.BadgeID,
				RecipientID: assertion.RecipientID,
			}
		}
		r.GetLogger().Error("failed to create assertion",
			zap.Error(err),
			zap.Int64("badge_id", assertion.BadgeID),
			zap.Int64("recipient_id", assertion.RecipientID),
		)
		return fmt.Errorf("failed to create assertion: %w", err)
	}

	r.GetLogger().Info("assertion created",
		zap.Int64("assertion_id", assertion.ID),
		zap.Int64("badge_id", assertion.BadgeID),
		zap.Int64("recipient_id", assertion.RecipientID),
	)

	return nil
}

// GetByID retrieves an assertion by ID. Returns (nil, nil) when the
// assertion does not exist.
func (r *assertionRepository) GetByID(ctx context.Context, id int64) (*models.BadgeAssertion, error) {
	query := `
		SELECT id, badge_id, recipient_id, evidence_url, issued_at
		FROM badge_assertions
		WHERE id = $1`

	var assertion models.BadgeAssertion
	err := r.QueryRowContext(ctx, query, id).Scan(
		&assertion.ID, &assertion.BadgeID, &assertion.RecipientID,
		&assertion.EvidenceURL, &assertion.IssuedAt,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get assertion by id: %w", err)
	}

	return &assertion, nil
}

// GetByBadgeAndRecipient retrieves the assertion for a (badge,
// recipient) pair, or (nil, nil) when the recipient does not hold the
// badge.
func (r *assertionRepository) GetByBadgeAndRecipient(ctx context.Context, badgeID, recipientID int64) (*models.BadgeAssertion, error) {
	query := `
		SELECT id, badge_id, recipient_id, evidence_url, issued_at
		FROM badge_assertions
		WHERE badge_id = $1 AND recipient_id = $2`

	var assertion models.BadgeAssertion
	err := r.QueryRowContext(ctx, query, badgeID, recipientID).Scan(
		&assertion.ID, &assertion.BadgeID, &assertion.RecipientID,
		&assertion.EvidenceURL, &assertion.IssuedAt,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get assertion by badge and recipient: %w", err)
	}

	return &assertion, nil
}

// ListByRecipient returns the badges held by a recipient, joined with
// their class metadata. Sortable by badge name or evidence presence;
// defaults to name ascending.
func (r *assertionRepository) ListByRecipient(ctx context.Context, recipientID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.IssuedBadge], error) {
	params.Normalize()

	total, err := r.GetTotalCount(ctx,
		`SELECT COUNT(*) FROM badge_assertions WHERE recipient_id = $1`, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to count assertions: %w", err)
	}

	orderColumn := "bc.name"
	switch params.Sort {
	case "evidence":
		orderColumn = "ba.evidence_url"
	case "issued_at":
		orderColumn = "ba.issued_at"
	}

	order := "ASC"
	if strings.EqualFold(params.Order, "desc") {
		order = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT ba.badge_id, bc.name, bc.image_ref, bc.image_type, ba.evidence_url, ba.issued_at
		FROM badge_assertions ba
		JOIN badge_classes bc ON bc.id = ba.badge_id
		WHERE ba.recipient_id = $1
		ORDER BY %s %s, bc.name ASC
		LIMIT $2 OFFSET $3`, orderColumn, order)

	rows, err := r.QueryContext(ctx, query, recipientID, params.Limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list assertions: %w", err)
	}
	defer rows.Close()

	issued := make([]*models.IssuedBadge, 0, params.Limit)
	for rows.Next() {
		var badge models.IssuedBadge
		err := rows.Scan(
			&badge.BadgeID, &badge.Name, &badge.ImageRef,
			&badge.ImageType, &badge.EvidenceURL, &badge.IssuedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issued badge: %w", err)
		}
		issued = append(issued, &badge)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate issued badges: %w", err)
	}

	return &models.PaginatedResponse[*models.IssuedBadge]{
		Data:       issued,
		Pagination: r.BuildPaginationMeta(params, total),
	}, nil
}

// CountByBadge returns the number of assertions issued for a badge.
func (r *assertionRepository) CountByBadge(ctx context.Context, badgeID int64) (int64, error) {
	return r.GetTotalCount(ctx,
		`SELECT COUNT(*) FROM badge_assertions WHERE badge_id = $1`, badgeID)
}
