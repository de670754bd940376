// file: internal/repositories/interfaces.go
package repositories

import (
	"context"

	"badgehub/internal/models"
)

// ===============================
// CORE REPOSITORY INTERFACES
// ===============================

// BadgeRepository defines the contract for badge class persistence.
// Classes are append-only: once minted they are never rewritten or
// removed, so the contract has no update or delete.
type BadgeRepository interface {
	Create(ctx context.Context, badge *models.BadgeClass) error
	GetByID(ctx context.Context, id int64) (*models.BadgeClass, error)
	GetByName(ctx context.Context, name string) (*models.BadgeClass, error)
	List(ctx context.Context, params models.PaginationParams) (*models.PaginatedResponse[*models.BadgeClass], error)
}

// AssertionRepository defines the contract for badge assertion
// persistence.
type AssertionRepository interface {
	Create(ctx context.Context, assertion *models.BadgeAssertion) error
	GetByID(ctx context.Context, id int64) (*models.BadgeAssertion, error)
	GetByBadgeAndRecipient(ctx context.Context, badgeID, recipientID int64) (*models.BadgeAssertion, error)
	ListByRecipient(ctx context.Context, recipientID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.IssuedBadge], error)
	CountByBadge(ctx context.Context, badgeID int64) (int64, error)
}

// RecipientRepository defines the contract for recipient lookups.
type RecipientRepository interface {
	Create(ctx context.Context, recipient *models.Recipient) error
	GetByID(ctx context.Context, id int64) (*models.Recipient, error)
	GetByDisplayName(ctx context.Context, displayName string) (*models.Recipient, error)
}

// ErrAlreadyIssued is returned by AssertionRepository.Create when the
// (badge, recipient) pair already holds an assertion. Callers re-read
// the existing row and treat the issuance as a success.
type ErrAlreadyIssued struct {
	BadgeID     int64
	RecipientID int64
}

func (e *ErrAlreadyIssued) Error() string {
	return "badge already issued to recipient"
}

// ErrDuplicateBadgeName is returned by BadgeRepository.Create when the
// class name is already taken, including the case where a concurrent
// create won the race.
type ErrDuplicateBadgeName struct {
	Name string
}

func (e *ErrDuplicateBadgeName) Error() string {
	return "badge name already in use"
}
