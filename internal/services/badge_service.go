// file: internal/services/badge_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"badgehub/internal/identity"
	"badgehub/internal/models"
	"badgehub/internal/repositories"
	"badgehub/internal/storage"
	"badgehub/internal/validation"

	"go.uber.org/zap"
)

// BadgeService is the badge catalog and issuance engine.
type BadgeService interface {
	CreateBadge(ctx context.Context, req *CreateBadgeRequest) (*models.BadgeClass, error)
	GetBadge(ctx context.Context, id int64) (*models.BadgeClass, error)
	ListBadges(ctx context.Context, params models.PaginationParams) (*models.PaginatedResponse[*models.BadgeClass], error)
	IssueBadge(ctx context.Context, req *IssueBadgeRequest) (*IssueBadgeResult, error)
	ListAssertionsForRecipient(ctx context.Context, req *ListAssertionsRequest) (*models.PaginatedResponse[*models.IssuedBadge], error)
}

// badgeService implements BadgeService.
type badgeService struct {
	badges     repositories.BadgeRepository
	assertions repositories.AssertionRepository
	recipients identity.Provider
	images     storage.ImageStore
	policy     *RecipientPolicy
	docs       *AssertionRenderer
	logger     *zap.Logger
}

// NewBadgeService creates a new badge service
func NewBadgeService(
	badges repositories.BadgeRepository,
	assertions repositories.AssertionRepository,
	recipients identity.Provider,
	images storage.ImageStore,
	policy *RecipientPolicy,
	docs *AssertionRenderer,
	logger *zap.Logger,
) BadgeService {
	return &badgeService{
		badges:     badges,
		assertions: assertions,
		recipients: recipients,
		images:     images,
		policy:     policy,
		docs:       docs,
		logger:     logger,
	}
}

// ===============================
// CATALOG OPERATIONS
// ===============================

// CreateBadge mints a new badge class. The name is checked before the
// image upload so an obvious collision fails cheaply; the unique index
// still backstops creates that race past the check.
func (s *badgeService) CreateBadge(ctx context.Context, req *CreateBadgeRequest) (*models.BadgeClass, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid badge creation request", err)
	}

	existing, err := s.badges.GetByName(ctx, req.Name)
	if err != nil {
		return nil, ErrStorage("badge name lookup", err)
	}
	if existing != nil {
		return nil, ErrDuplicateName(req.Name)
	}

	stored, err := s.images.Upload(ctx, req.Image)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidContentType) || errors.Is(err, storage.ErrFileTooLarge) {
			return nil, ErrInvalidImage(err.Error())
		}
		return nil, ErrStorage("badge image upload", err)
	}

	badge := &models.BadgeClass{
		Name:        req.Name,
		Description: req.Description,
		ImageRef:    stored.Ref,
		ImageType:   stored.Type,
		Criteria:    req.Criteria,
		CreatedBy:   req.CreatedBy,
	}

	if err := s.badges.Create(ctx, badge); err != nil {
		var dup *repositories.ErrDuplicateBadgeName
		if errors.As(err, &dup) {
			// Lost the race to a concurrent create; clean up our copy
			// of the image, it will never be referenced.
			if delErr := s.images.Delete(ctx, stored.Ref); delErr != nil {
				s.logger.Warn("failed to delete orphaned badge image",
					zap.String("ref", stored.Ref),
					zap.Error(delErr))
			}
			return nil, ErrDuplicateName(req.Name)
		}
		return nil, ErrStorage("badge creation", err)
	}

	s.invalidateBadgeDocuments(ctx, badge.ID)

	s.logger.Info("badge class created",
		zap.Int64("badge_id", badge.ID),
		zap.String("name", badge.Name),
	)

	return badge, nil
}

// GetBadge retrieves a badge class by id.
func (s *badgeService) GetBadge(ctx context.Context, id int64) (*models.BadgeClass, error) {
	badge, err := s.badges.GetByID(ctx, id)
	if err != nil {
		return nil, ErrStorage("badge lookup", err)
	}
	if badge == nil {
		return nil, ErrBadgeNotFound(id)
	}
	return badge, nil
}

// ListBadges returns the badge catalog ordered by name.
func (s *badgeService) ListBadges(ctx context.Context, params models.PaginationParams) (*models.PaginatedResponse[*models.BadgeClass], error) {
	result, err := s.badges.List(ctx, params)
	if err != nil {
		return nil, ErrStorage("badge listing", err)
	}
	return result, nil
}

// ===============================
// ISSUANCE ENGINE
// ===============================

// IssueBadge awards a badge to a recipient. The operation is
// idempotent: issuing a badge the recipient already holds reports
// success against the existing assertion, both when the pre-check sees
// it and when a concurrent issuance wins the insert race.
func (s *badgeService) IssueBadge(ctx context.Context, req *IssueBadgeRequest) (*IssueBadgeResult, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid issuance request", err)
	}

	recipient, err := s.recipients.Resolve(ctx, identity.ParseRef(req.Recipient))
	if err != nil {
		return nil, ErrStorage("recipient lookup", err)
	}
	if recipient == nil {
		return nil, ErrUnknownRecipient(req.Recipient)
	}

	badge, err := s.badges.GetByID(ctx, req.BadgeID)
	if err != nil {
		return nil, ErrStorage("badge lookup", err)
	}
	if badge == nil {
		return nil, ErrUnknownBadge(req.BadgeID)
	}

	if err := s.policy.Check(recipient); err != nil {
		return nil, err
	}

	existing, err := s.assertions.GetByBadgeAndRecipient(ctx, badge.ID, recipient.ID)
	if err != nil {
		return nil, ErrStorage("assertion lookup", err)
	}
	if existing != nil {
		return s.issuedResult(badge, recipient, existing, true), nil
	}

	// Evidence is validated only on the path that actually writes; a
	// duplicate issuance with garbage evidence still succeeds above.
	if err := validateEvidence(req.Evidence); err != nil {
		return nil, err
	}

	assertion := &models.BadgeAssertion{
		BadgeID:     badge.ID,
		RecipientID: recipient.ID,
		EvidenceURL: req.Evidence,
	}

	if err := s.assertions.Create(ctx, assertion); err != nil {
		var already *repositories.ErrAlreadyIssued
		if errors.As(err, &already) {
			winner, readErr := s.assertions.GetByBadgeAndRecipient(ctx, badge.ID, recipient.ID)
			if readErr != nil {
				return nil, ErrStorage("assertion re-read", readErr)
			}
			if winner == nil {
				return nil, NewInternalError(
					fmt.Sprintf("assertion for badge %d and recipient %d vanished after unique violation", badge.ID, recipient.ID))
			}
			return s.issuedResult(badge, recipient, winner, true), nil
		}
		return nil, ErrStorage("assertion creation", err)
	}

	s.logger.Info("badge issued",
		zap.Int64("badge_id", badge.ID),
		zap.Int64("recipient_id", recipient.ID),
		zap.Int64("assertion_id", assertion.ID),
		zap.Bool("has_evidence", assertion.HasEvidence()),
	)

	return s.issuedResult(badge, recipient, assertion, false), nil
}

// ListAssertionsForRecipient returns the badges held by a recipient.
func (s *badgeService) ListAssertionsForRecipient(ctx context.Context, req *ListAssertionsRequest) (*models.PaginatedResponse[*models.IssuedBadge], error) {
	// Defaults first: a zero-value Limit means "use the default page
	// size", not a validation failure.
	req.Pagination.Normalize()
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid assertion listing request", err)
	}

	recipient, err := s.recipients.Resolve(ctx, identity.ParseRef(req.Recipient))
	if err != nil {
		return nil, ErrStorage("recipient lookup", err)
	}
	if recipient == nil {
		return nil, ErrUnknownRecipient(req.Recipient)
	}

	result, err := s.assertions.ListByRecipient(ctx, recipient.ID, req.Pagination)
	if err != nil {
		return nil, ErrStorage("assertion listing", err)
	}

	return result, nil
}

func (s *badgeService) issuedResult(badge *models.BadgeClass, recipient *models.Recipient, assertion *models.BadgeAssertion, alreadyHeld bool) *IssueBadgeResult {
	return &IssueBadgeResult{
		Success:     true,
		Recipient:   recipient.DisplayName,
		Badge:       badge.ID,
		AssertionID: assertion.ID,
		AlreadyHeld: alreadyHeld,
	}
}

func (s *badgeService) invalidateBadgeDocuments(ctx context.Context, badgeID int64) {
	if s.docs == nil {
		return
	}
	s.docs.InvalidateBadge(ctx, badgeID)
}

// validateEvidence accepts an empty evidence string or an absolute
// http(s) URL; everything else is rejected.
func validateEvidence(evidence string) error {
	if evidence == "" {
		return nil
	}

	parsed, err := url.Parse(evidence)
	if err != nil {
		return ErrBadEvidence(evidence)
	}

	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return ErrBadEvidence(evidence)
	}

	return nil
}
