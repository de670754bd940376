// file: internal/services/types.go
package services

import (
	"mime/multipart"

	"badgehub/internal/models"
)

// ===============================
// BADGE SERVICE TYPES
// ===============================

// CreateBadgeRequest carries everything needed to mint a badge class.
type CreateBadgeRequest struct {
	Name        string                `validate:"required,max=255"`
	Description string                `validate:"required,max=5000"`
	Criteria    string                `validate:"required"`
	CreatedBy   *int64                `validate:"omitempty"`
	Image       *multipart.FileHeader `validate:"required"`
}

// IssueBadgeRequest asks for a badge to be awarded to a recipient.
// Recipient is a reference: a numeric id or a display name.
type IssueBadgeRequest struct {
	BadgeID   int64  `validate:"required"`
	Recipient string `validate:"required"`
	Evidence  string `validate:"omitempty"`
}

// IssueBadgeResult reports a completed issuance. Issuing a badge the
// recipient already holds is still a success; AlreadyHeld tells the two
// apart.
type IssueBadgeResult struct {
	Success     bool   `json:"success"`
	Recipient   string `json:"recipient"`
	Badge       int64  `json:"badge"`
	AssertionID int64  `json:"assertion_id"`
	AlreadyHeld bool   `json:"already_held,omitempty"`
}

// ListAssertionsRequest asks for the badges held by a recipient.
type ListAssertionsRequest struct {
	Recipient  string `validate:"required"`
	Pagination models.PaginationParams
}

// ===============================
// BADGE DOCUMENT TYPES
// ===============================

// OpenBadgesContext is the JSON-LD context identifying the 1.1 badge
// vocabulary.
const OpenBadgesContext = "https://w3id.org/openbadges/v1"

// AssertionDocument is the hosted assertion: proof that one recipient
// holds one badge, served at its own ID URL.
type AssertionDocument struct {
	Context   string              `json:"@context"`
	Type      string              `json:"type"`
	ID        string              `json:"id"`
	UID       string              `json:"uid"`
	Recipient *RecipientIdentity  `json:"recipient"`
	Badge     string              `json:"badge"`
	Verify    *VerificationObject `json:"verify"`
	IssuedOn  string              `json:"issuedOn"`
	Evidence  string              `json:"evidence,omitempty"`
}

// RecipientIdentity identifies the holder without exposing their email
// address in the clear.
type RecipientIdentity struct {
	Type     string `json:"type"`
	Hashed   bool   `json:"hashed"`
	Identity string `json:"identity"`
}

// VerificationObject tells consumers how to verify the assertion; for
// hosted verification that means re-fetching the assertion URL.
type VerificationObject struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// BadgeClassDocument is the shared badge definition referenced by every
// assertion of the class.
type BadgeClassDocument struct {
	Context     string `json:"@context"`
	Type        string `json:"type"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Criteria    string `json:"criteria"`
	Issuer      string `json:"issuer"`
}

// IssuerDocument identifies the organization standing behind the
// badges.
type IssuerDocument struct {
	Context string `json:"@context"`
	Type    string `json:"type"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url"`
}

// CriteriaDocument is the human-readable earning criteria for a badge
// class, served at the URL the class document points at.
type CriteriaDocument struct {
	ID       string `json:"id"`
	Badge    string `json:"badge"`
	Name     string `json:"name"`
	Criteria string `json:"criteria"`
}
