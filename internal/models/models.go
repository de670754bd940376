// file: internal/models/models.go
package models

import (
	"time"
)

// ===============================
// CORE ENTITIES
// ===============================

// Badge image types accepted at class creation. Anything else is
// rejected before the image ever reaches storage.
const (
	ImageTypePNG = "png"
	ImageTypeSVG = "svg"
)

// BadgeClass is the reusable definition of an award: what it is called,
// what it looks like, and what a holder did to earn it. A class is
// created once and then referenced by any number of assertions.
type BadgeClass struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name" validate:"required,max=255"`
	Description string `json:"description" db:"description" validate:"required,max=5000"`
	ImageRef    string `json:"image_ref" db:"image_ref" validate:"required"`
	ImageType   string `json:"image_type" db:"image_type" validate:"required,oneof=png svg"`
	Criteria    string `json:"criteria" db:"criteria" validate:"required"`
	CreatedBy   *int64 `json:"created_by,omitempty" db:"created_by"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// BadgeAssertion records that one recipient holds one badge. The pair
// (BadgeID, RecipientID) is unique; issuing the same badge twice to the
// same recipient yields the existing assertion.
type BadgeAssertion struct {
	ID          int64     `json:"id" db:"id"`
	BadgeID     int64     `json:"badge_id" db:"badge_id" validate:"required"`
	RecipientID int64     `json:"recipient_id" db:"recipient_id" validate:"required"`
	EvidenceURL string    `json:"evidence_url,omitempty" db:"evidence_url" validate:"omitempty,url"`
	IssuedAt    time.Time `json:"issued_at" db:"issued_at"`
}

// Recipient is the identity a badge is awarded to. Email may be absent
// or unconfirmed; issuance policy decides whether that matters.
type Recipient struct {
	ID             int64     `json:"id" db:"id"`
	DisplayName    string    `json:"display_name" db:"display_name" validate:"required,max=255"`
	Email          *string   `json:"email,omitempty" db:"email" validate:"omitempty,email"`
	EmailConfirmed bool      `json:"email_confirmed" db:"email_confirmed"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// IssuedBadge is the listing projection of an assertion joined with its
// class, shaped for "badges held by recipient X" views.
type IssuedBadge struct {
	BadgeID     int64     `json:"badge_id" db:"badge_id"`
	Name        string    `json:"name" db:"name"`
	ImageRef    string    `json:"image_ref" db:"image_ref"`
	ImageType   string    `json:"image_type" db:"image_type"`
	EvidenceURL string    `json:"evidence_url,omitempty" db:"evidence_url"`
	IssuedAt    time.Time `json:"issued_at" db:"issued_at"`
}

// ===============================
// PAGINATION & QUERY HELPERS
// ===============================

// PaginationParams represents pagination parameters
type PaginationParams struct {
	Limit  int    `json:"limit" validate:"min=1,max=100"`
	Offset int    `json:"offset" validate:"min=0"`
	Sort   string `json:"sort,omitempty" validate:"omitempty,oneof=name evidence issued_at"`
	Order  string `json:"order,omitempty" validate:"omitempty,oneof=asc desc"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse[T any] struct {
	Data       []T            `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
	Filters    map[string]any `json:"filters,omitempty"`
}

// PaginationMeta contains pagination metadata
type PaginationMeta struct {
	CurrentPage  int   `json:"current_page"`
	TotalPages   int   `json:"total_pages"`
	TotalItems   int64 `json:"total_items"`
	ItemsPerPage int   `json:"items_per_page"`
	HasNext      bool  `json:"has_next"`
	HasPrev      bool  `json:"has_prev"`
}

// ===============================
// HELPER METHODS
// ===============================

// HasEvidence reports whether the assertion carries an evidence URL.
func (a *BadgeAssertion) HasEvidence() bool {
	return a.EvidenceURL != ""
}

// HasEmail reports whether the recipient has a non-empty email on file.
func (r *Recipient) HasEmail() bool {
	return r.Email != nil && *r.Email != ""
}

// EmailOrEmpty returns the recipient's email, or "" when absent.
func (r *Recipient) EmailOrEmpty() string {
	if r.Email == nil {
		return ""
	}
	return *r.Email
}

// IsSVG reports whether the class image is vector art, which is served
// through a raster thumbnail rather than as-is.
func (b *BadgeClass) IsSVG() bool {
	return b.ImageType == ImageTypeSVG
}

// CalculateOffset calculates offset from page and limit
func (p *PaginationParams) CalculateOffset() int {
	if p.Offset > 0 {
		return p.Offset
	}
	return 0
}

// Normalize applies listing defaults: badge name ascending, capped page
// size.
func (p *PaginationParams) Normalize() {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Sort == "" {
		p.Sort = "name"
	}
	if p.Order == "" {
		p.Order = "asc"
	}
}
