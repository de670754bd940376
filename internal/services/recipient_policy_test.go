// file: internal/services/recipient_policy_test.go
package services

import (
	"testing"

	"badgehub/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestRecipientPolicyCheck(t *testing.T) {
	email := "ada@example.org"

	withEmail := &models.Recipient{DisplayName: "ada", Email: &email, EmailConfirmed: true}
	unconfirmed := &models.Recipient{DisplayName: "bob", Email: &email}
	noEmail := &models.Recipient{DisplayName: "carol"}

	t.Run("disabled policy accepts everyone", func(t *testing.T) {
		policy := NewRecipientPolicy(false, false)
		assert.NoError(t, policy.Check(withEmail))
		assert.NoError(t, policy.Check(unconfirmed))
		assert.NoError(t, policy.Check(noEmail))
	})

	t.Run("email required", func(t *testing.T) {
		policy := NewRecipientPolicy(true, false)
		assert.NoError(t, policy.Check(withEmail))
		assert.NoError(t, policy.Check(unconfirmed))

		err := policy.Check(noEmail)
		assert.True(t, IsErrorCode(err, CodeNoEmail))
	})

	t.Run("confirmation required", func(t *testing.T) {
		policy := NewRecipientPolicy(true, true)
		assert.NoError(t, policy.Check(withEmail))

		err := policy.Check(unconfirmed)
		assert.True(t, IsErrorCode(err, CodeNoEmailConfirmation))
	})

	t.Run("missing email wins over missing confirmation", func(t *testing.T) {
		policy := NewRecipientPolicy(true, true)
		err := policy.Check(noEmail)
		assert.True(t, IsErrorCode(err, CodeNoEmail))
	})

	t.Run("confirmation check is independent of email check", func(t *testing.T) {
		// Confirmation alone still rejects an unconfirmed recipient,
		// even when the email guard itself is off.
		policy := NewRecipientPolicy(false, true)
		err := policy.Check(unconfirmed)
		assert.True(t, IsErrorCode(err, CodeNoEmailConfirmation))

		assert.NoError(t, policy.Check(withEmail))
	})

	t.Run("empty email string counts as no email", func(t *testing.T) {
		empty := ""
		policy := NewRecipientPolicy(true, false)
		err := policy.Check(&models.Recipient{DisplayName: "dan", Email: &empty})
		assert.True(t, IsErrorCode(err, CodeNoEmail))
	})
}
