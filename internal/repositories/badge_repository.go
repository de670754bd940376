// file: internal/repositories/badge_repository.go
package repositories

import (
	"context"
	"fmt"
	"strings"

	"badgehub/internal/database"
	"badgehub/internal/models"

	"go.uber.org/zap"
)

// badgeRepository implements BadgeRepository on Postgres.
type badgeRepository struct {
	*BaseRepository
}

// NewBadgeRepository creates a new badge repository
func NewBadgeRepository(db *database.Manager, logger *zap.Logger) BadgeRepository {
	return &badgeRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

const badgeColumns = `id, name, description, image_ref, image_type, criteria, created_by, created_at, updated_at`

// Create inserts a new badge class. A unique violation on the name
// index surfaces as ErrDuplicateBadgeName so the caller can report the
// collision without a prior existence check winning every race.
func (r *badgeRepository) Create(ctx context.Context, badge *models.BadgeClass) error {
	query := `
		INSERT INTO badge_classes (name, description, image_ref, image_type, criteria, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.QueryRowContext(
		ctx, query,
		badge.Name, badge.Description, badge.ImageRef,
		badge.ImageType, badge.Criteria, badge.CreatedBy,
	).Scan(&badge.ID, &badge.CreatedAt, &badge.UpdatedAt)

	if err != nil {
		if r.IsUniqueViolation(err, "idx_badge_classes_name") {
			return &ErrDuplicateBadgeName{Name: badge.Name}
		}
		r.GetLogger().Error("failed to create badge class",
			zap.Error(err),
			zap.String("name", badge.Name),
		)
		return fmt.Errorf("failed to create badge class: %w", err)
	}

	r.GetLogger().Info("badge class created",
		zap.Int64("badge_id", badge.ID),
		zap.String("name", badge.Name),
	)

	return nil
}

// GetByID retrieves a badge class by ID. Returns (nil, nil) when the
// class does not exist.
func (r *badgeRepository) GetByID(ctx context.Context, id int64) (*models.BadgeClass, error) {
	query := `SELECT ` + badgeColumns + ` FROM badge_classes WHERE id = $1`

	badge, err := r.scanBadge(r.QueryRowContext(ctx, query, id))
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get badge class by id: %w", err)
	}

	return badge, nil
}

// GetByName retrieves a badge class by its unique name. Returns
// (nil, nil) when no class carries the name.
func (r *badgeRepository) GetByName(ctx context.Context, name string) (*models.BadgeClass, error) {
	query := `SELECT ` + badgeColumns + ` FROM badge_classes WHERE name = $1`

	badge, err := r.scanBadge(r.QueryRowContext(ctx, query, name))
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get badge class by name: %w", err)
	}

	return badge, nil
}

// List returns badge classes ordered by name.
func (r *badgeRepository) List(ctx context.Context, params models.PaginationParams) (*models.PaginatedResponse[*models.BadgeClass], error) {
	params.Normalize()

	total, err := r.GetTotalCount(ctx, `SELECT COUNT(*) FROM badge_classes`)
	if err != nil {
		return nil, fmt.Errorf("failed to count badge classes: %w", err)
	}

	order := "ASC"
	if strings.EqualFold(params.Order, "desc") {
		order = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT `+badgeColumns+`
		FROM badge_classes
		ORDER BY name %s
		LIMIT $1 OFFSET $2`, order)

	rows, err := r.QueryContext(ctx, query, params.Limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list badge classes: %w", err)
	}
	defer rows.Close()

	badges := make([]*models.BadgeClass, 0, params.Limit)
	for rows.Next() {
		badge, err := r.scanBadge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge class: %w", err)
		}
		badges = append(badges, badge)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate badge classes: %w", err)
	}

	return &models.PaginatedResponse[*models.BadgeClass]{
		Data:       badges,
		Pagination: r.BuildPaginationMeta(params, total),
	}, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *badgeRepository) scanBadge(row rowScanner) (*models.BadgeClass, error) {
	var badge models.BadgeClass
	err := row.Scan(
		&badge.ID, &badge.Name, &badge.Description,
		&badge.ImageRef, &badge.ImageType, &badge.Criteria,
		&badge.CreatedBy, &badge.CreatedAt, &badge.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &badge, nil
}
