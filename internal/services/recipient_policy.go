// file: internal/services/recipient_policy.go
package services

import (
	"badgehub/internal/config"
	"badgehub/internal/models"
)

// RecipientPolicy decides whether a recipient may hold badges. The same
// policy gates issuance and every later assertion render, so a
// recipient who loses their email (or its confirmation) stops
// validating even for badges they already hold.
type RecipientPolicy struct {
	requireEmail             bool
	requireEmailConfirmation bool
}

// NewRecipientPolicy creates a policy from explicit flags.
func NewRecipientPolicy(requireEmail, requireEmailConfirmation bool) *RecipientPolicy {
	return &RecipientPolicy{
		requireEmail:             requireEmail,
		requireEmailConfirmation: requireEmailConfirmation,
	}
}

// NewRecipientPolicyFromConfig creates a policy from badge
// configuration.
func NewRecipientPolicyFromConfig(cfg *config.BadgeConfig) *RecipientPolicy {
	return NewRecipientPolicy(cfg.RequireEmail, cfg.RequireEmailConfirmation)
}

// Check returns nil when the recipient is eligible. The two guards are
// independent and evaluated in order: missing email first, unconfirmed
// email second.
func (p *RecipientPolicy) Check(recipient *models.Recipient) error {
	if p.requireEmail && !recipient.HasEmail() {
		return ErrNoEmail(recipient.DisplayName)
	}
	if p.requireEmailConfirmation && !recipient.EmailConfirmed {
		return ErrNoEmailConfirmation(recipient.DisplayName)
	}
	return nil
}
