// Package identity resolves recipient references to recipient records.
// A reference is either a numeric id or a display name; both arrive as
// strings from the API and resolve through the same path.
package identity

import (
	"context"
	"strconv"
	"strings"

	"badgehub/internal/models"
	"badgehub/internal/repositories"
)

// RecipientRef is a caller-supplied recipient reference.
type RecipientRef struct {
	raw string
}

// ParseRef wraps a raw reference string.
func ParseRef(raw string) RecipientRef {
	return RecipientRef{raw: strings.TrimSpace(raw)}
}

// RefFromID builds a reference from a known recipient id.
func RefFromID(id int64) RecipientRef {
	return RecipientRef{raw: strconv.FormatInt(id, 10)}
}

// String returns the raw reference.
func (r RecipientRef) String() string {
	return r.raw
}

// IsZero reports whether the reference is empty.
func (r RecipientRef) IsZero() bool {
	return r.raw == ""
}

// Provider resolves recipient references.
type Provider interface {
	// Resolve returns the recipient the reference points at, or
	// (nil, nil) when it points at nobody.
	Resolve(ctx context.Context, ref RecipientRef) (*models.Recipient, error)
}

// repositoryProvider resolves references against the recipient store.
type repositoryProvider struct {
	recipients repositories.RecipientRepository
}

// NewProvider creates a Provider backed by the recipient repository.
func NewProvider(recipients repositories.RecipientRepository) Provider {
	return &repositoryProvider{recipients: recipients}
}

// Resolve tries the reference as a numeric id first, then as a display
// name. A purely numeric display name is therefore shadowed by ids,
// matching how lookups behave everywhere else in the API.
func (p *repositoryProvider) Resolve(ctx context.Context, ref RecipientRef) (*models.Recipient, error) {
	if ref.IsZero() {
		return nil, nil
	}

	if id, err := strconv.ParseInt(ref.raw, 10, 64); err == nil {
		recipient, err := p.recipients.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if recipient != nil {
			return recipient, nil
		}
	}

	return p.recipients.GetByDisplayName(ctx, ref.raw)
}
