// file: internal/services/assertion_renderer_test.go
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"badgehub/internal/config"
	"badgehub/internal/identity"
	"badgehub/internal/models"
	"badgehub/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type rendererFixture struct {
	badges     *fakeBadgeRepo
	assertions *fakeAssertionRepo
	recipients *fakeRecipientRepo
	images     *fakeImageStore
	renderer   *AssertionRenderer
}

func newRendererFixture(policy *RecipientPolicy) *rendererFixture {
	f := &rendererFixture{
		badges:     newFakeBadgeRepo(),
		assertions: newFakeAssertionRepo(),
		recipients: newFakeRecipientRepo(),
		images:     newFakeImageStore(),
	}
	if policy == nil {
		policy = NewRecipientPolicy(false, false)
	}
	repos := &repositories.Collection{
		Badge:     f.badges,
		Assertion: f.assertions,
		Recipient: f.recipients,
	}
	f.renderer = NewAssertionRenderer(
		repos,
		f.images,
		policy,
		nil,
		&config.BadgeConfig{
			BaseURL:   "https://badges.example.org",
			BadgePath: "/api/v1/badges",
			SiteName:  "BadgeHub",
		},
		time.Minute,
		zap.NewNop(),
	)
	return f
}

func (f *rendererFixture) seed(t *testing.T, evidence string) (*models.BadgeClass, *models.Recipient, *models.BadgeAssertion) {
	t.Helper()

	badge := &models.BadgeClass{
		Name:        "Pioneer",
		Description: "one of the first hundred",
		ImageRef:    "pioneer-img",
		ImageType:   models.ImageTypePNG,
		Criteria:    "be among the first hundred registered users",
	}
	require.NoError(t, f.badges.Create(context.Background(), badge))

	recipient := f.recipients.add("ada", strPtr("ada@example.org"), true)

	assertion := &models.BadgeAssertion{
		BadgeID:     badge.ID,
		RecipientID: recipient.ID,
		EvidenceURL: evidence,
	}
	require.NoError(t, f.assertions.Create(context.Background(), assertion))

	return badge, recipient, assertion
}

// ===============================
// ASSERTION DOCUMENTS
// ===============================

func TestRenderAssertion(t *testing.T) {
	f := newRendererFixture(nil)
	_, _, assertion := f.seed(t, "https://example.org/proof")

	doc, err := f.renderer.RenderAssertion(context.Background(), assertion.ID)
	require.NoError(t, err)

	assert.Equal(t, OpenBadgesContext, doc.Context)
	assert.Equal(t, "Assertion", doc.Type)
	assert.Equal(t, "https://badges.example.org/api/v1/badges/assertions/1", doc.ID)
	assert.Equal(t, "1", doc.UID)
	assert.Equal(t, "https://badges.example.org/api/v1/badges/1", doc.Badge)
	assert.Equal(t, "https://example.org/proof", doc.Evidence)

	// Hosted verification: the verify URL is the document's own URL.
	require.NotNil(t, doc.Verify)
	assert.Equal(t, "hosted", doc.Verify.Type)
	assert.Equal(t, doc.ID, doc.Verify.URL)

	require.NotNil(t, doc.Recipient)
	assert.Equal(t, "email", doc.Recipient.Type)
	assert.True(t, doc.Recipient.Hashed)

	sum := sha256.Sum256([]byte("ada@example.org"))
	assert.Equal(t, "sha256$"+hex.EncodeToString(sum[:]), doc.Recipient.Identity)

	issuedOn, err := time.Parse(time.RFC3339, doc.IssuedOn)
	require.NoError(t, err)
	assert.WithinDuration(t, assertion.IssuedAt, issuedOn, time.Second)
}

func TestRenderAssertionWithoutEvidence(t *testing.T) {
	f := newRendererFixture(nil)
	_, _, assertion := f.seed(t, "")

	doc, err := f.renderer.RenderAssertion(context.Background(), assertion.ID)
	require.NoError(t, err)
	assert.Empty(t, doc.Evidence)
}

func TestRenderAssertionCarriesNoImage(t *testing.T) {
	// Only a baked image would belong on an assertion; the unbaked
	// image lives on the badge class document.
	f := newRendererFixture(nil)
	_, _, assertion := f.seed(t, "")

	doc, err := f.renderer.RenderAssertion(context.Background(), assertion.ID)
	require.NoError(t, err)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"image"`)
}

func TestRenderAssertionForBadgeAndRecipient(t *testing.T) {
	f := newRendererFixture(nil)
	badge, recipient, assertion := f.seed(t, "")

	t.Run("by display name", func(t *testing.T) {
		doc, err := f.renderer.RenderAssertionFor(context.Background(), badge.ID, identity.ParseRef(recipient.DisplayName))
		require.NoError(t, err)
		assert.Equal(t, f.renderer.AssertionURL(assertion.ID), doc.ID)
	})

	t.Run("by numeric id", func(t *testing.T) {
		doc, err := f.renderer.RenderAssertionFor(context.Background(), badge.ID, identity.RefFromID(recipient.ID))
		require.NoError(t, err)
		assert.Equal(t, f.renderer.AssertionURL(assertion.ID), doc.ID)
	})

	t.Run("unknown recipient", func(t *testing.T) {
		_, err := f.renderer.RenderAssertionFor(context.Background(), badge.ID, identity.ParseRef("nobody"))
		require.Error(t, err)
		assert.True(t, IsErrorCode(err, CodeUnknownRecipient))
	})

	t.Run("recipient does not hold the badge", func(t *testing.T) {
		other := f.recipients.add("bob", strPtr("bob@example.org"), true)

		_, err := f.renderer.RenderAssertionFor(context.Background(), badge.ID, identity.ParseRef(other.DisplayName))
		require.Error(t, err)
		assert.True(t, IsErrorCode(err, CodeAssertionNotFound))
	})
}

func TestRenderAssertionNotFound(t *testing.T) {
	f := newRendererFixture(nil)

	_, err := f.renderer.RenderAssertion(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, CodeAssertionNotFound))
}

func TestRenderAssertionReappliesPolicy(t *testing.T) {
	// An assertion issued under a looser policy stops rendering once
	// the recipient no longer satisfies the current one.
	f := newRendererFixture(NewRecipientPolicy(true, true))
	_, recipient, assertion := f.seed(t, "")

	doc, err := f.renderer.RenderAssertion(context.Background(), assertion.ID)
	require.NoError(t, err)
	assert.NotNil(t, doc)

	recipient.EmailConfirmed = false

	_, err = f.renderer.RenderAssertion(context.Background(), assertion.ID)
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, CodeNoEmailConfirmation))
}

func TestHashIdentityStable(t *testing.T) {
	first := hashIdentity("ada@example.org")
	second := hashIdentity("ada@example.org")

	assert.Equal(t, first, second)
	assert.Equal(t, "sha256$", first[:7])
	assert.Len(t, first, len("sha256$")+64)
	assert.NotEqual(t, first, hashIdentity("bob@example.org"))
}

// ===============================
// BADGE CLASS DOCUMENTS
// ===============================

func TestRenderBadgeClass(t *testing.T) {
	f := newRendererFixture(nil)
	badge, _, _ := f.seed(t, "")

	doc, err := f.renderer.RenderBadgeClass(context.Background(), badge.ID)
	require.NoError(t, err)

	assert.Equal(t, OpenBadgesContext, doc.Context)
	assert.Equal(t, "BadgeClass", doc.Type)
	assert.Equal(t, "https://badges.example.org/api/v1/badges/1", doc.ID)
	assert.Equal(t, "Pioneer", doc.Name)
	assert.Equal(t, "one of the first hundred", doc.Description)
	assert.Equal(t, "https://img.example.org/pioneer-img.png", doc.Image)
	assert.Equal(t, "https://badges.example.org/api/v1/badges/1/criteria", doc.Criteria)
	assert.Equal(t, "https://badges.example.org/api/v1/badges/issuer", doc.Issuer)
}

func TestRenderBadgeClassSVGThumbnail(t *testing.T) {
	f := newRendererFixture(nil)
	badge, _, _ := f.seed(t, "")
	badge.ImageType = models.ImageTypeSVG

	doc, err := f.renderer.RenderBadgeClass(context.Background(), badge.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.org/pioneer-img.png?w=400", doc.Image)
}

func TestRenderBadgeClassUnsupportedImageType(t *testing.T) {
	f := newRendererFixture(nil)
	badge, _, _ := f.seed(t, "")
	badge.ImageType = "gif"

	_, err := f.renderer.RenderBadgeClass(context.Background(), badge.ID)
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, CodeUnsupportedImageType))
}

// ===============================
// CRITERIA AND ISSUER DOCUMENTS
// ===============================

func TestRenderCriteria(t *testing.T) {
	f := newRendererFixture(nil)
	badge, _, _ := f.seed(t, "")

	doc, err := f.renderer.RenderCriteria(context.Background(), badge.ID)
	require.NoError(t, err)

	assert.Equal(t, "https://badges.example.org/api/v1/badges/1/criteria", doc.ID)
	assert.Equal(t, "https://badges.example.org/api/v1/badges/1", doc.Badge)
	assert.Equal(t, "Pioneer", doc.Name)
	assert.Equal(t, "be among the first hundred registered users", doc.Criteria)
}

func TestRenderIssuer(t *testing.T) {
	f := newRendererFixture(nil)

	doc := f.renderer.RenderIssuer()
	assert.Equal(t, OpenBadgesContext, doc.Context)
	assert.Equal(t, "Issuer", doc.Type)
	assert.Equal(t, "https://badges.example.org/api/v1/badges/issuer", doc.ID)
	assert.Equal(t, "BadgeHub", doc.Name)
	assert.Equal(t, "https://badges.example.org", doc.URL)
}
