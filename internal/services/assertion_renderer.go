// file: internal/services/assertion_renderer.go
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"badgehub/internal/cache"
	"badgehub/internal/config"
	"badgehub/internal/identity"
	"badgehub/internal/repositories"
	"badgehub/internal/storage"

	"go.uber.org/zap"
)

// ===============================
// ASSERTION RENDERER
// ===============================

// AssertionRenderer produces the hosted badge documents: assertions,
// badge classes, criteria pages and the issuer profile. Every document
// is served at the URL its own "id" field names, which is what makes
// hosted verification work.
type AssertionRenderer struct {
	assertions repositories.AssertionRepository
	badges     repositories.BadgeRepository
	recipients repositories.RecipientRepository
	resolver   identity.Provider
	images     storage.ImageStore
	policy     *RecipientPolicy
	cache      cache.Cache
	cacheTTL   time.Duration
	baseURL    string
	badgePath  string
	siteName   string
	logger     *zap.Logger
}

// NewAssertionRenderer creates a new assertion renderer
func NewAssertionRenderer(
	repos *repositories.Collection,
	images storage.ImageStore,
	policy *RecipientPolicy,
	docCache cache.Cache,
	cfg *config.BadgeConfig,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *AssertionRenderer {
	return &AssertionRenderer{
		assertions: repos.Assertion,
		badges:     repos.Badge,
		recipients: repos.Recipient,
		resolver:   identity.NewProvider(repos.Recipient),
		images:     images,
		policy:     policy,
		cache:      docCache,
		cacheTTL:   cacheTTL,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		badgePath:  cfg.BadgePath,
		siteName:   cfg.SiteName,
		logger:     logger,
	}
}

// ===============================
// DOCUMENT RENDERING
// ===============================

// RenderAssertion builds the hosted assertion for one issuance. The
// recipient policy is re-applied on every render: an assertion issued
// under a looser policy stops verifying once the recipient no longer
// satisfies the current one.
func (r *AssertionRenderer) RenderAssertion(ctx context.Context, assertionID int64) (*AssertionDocument, error) {
	assertion, err := r.assertions.GetByID(ctx, assertionID)
	if err != nil {
		return nil, ErrStorage("assertion lookup", err)
	}
	if assertion == nil {
		return nil, ErrAssertionNotFound(assertionID)
	}

	recipient, err := r.recipients.GetByID(ctx, assertion.RecipientID)
	if err != nil {
		return nil, ErrStorage("recipient lookup", err)
	}
	if recipient == nil {
		return nil, ErrAssertionNotFound(assertionID)
	}

	if err := r.policy.Check(recipient); err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("doc:assertion:%d", assertionID)
	var cached AssertionDocument
	if r.cacheGet(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	// The assertion itself carries no image; only a baked image would
	// belong here, and images live on the badge class document.
	assertionURL := r.AssertionURL(assertion.ID)
	doc := &AssertionDocument{
		Context: OpenBadgesContext,
		Type:    "Assertion",
		ID:      assertionURL,
		UID:     fmt.Sprintf("%d", assertion.ID),
		Recipient: &RecipientIdentity{
			Type:     "email",
			Hashed:   true,
			Identity: hashIdentity(recipient.EmailOrEmpty()),
		},
		Badge: r.BadgeClassURL(assertion.BadgeID),
		Verify: &VerificationObject{
			Type: "hosted",
			URL:  assertionURL,
		},
		IssuedOn: assertion.IssuedAt.UTC().Format(time.RFC3339),
		Evidence: assertion.EvidenceURL,
	}

	r.cacheSet(ctx, cacheKey, doc)
	return doc, nil
}

// RenderAssertionFor builds the hosted assertion addressed by badge and
// recipient, the addressing badge consumers use before they learn the
// assertion's own URL. The recipient reference is a numeric id or a
// display name.
func (r *AssertionRenderer) RenderAssertionFor(ctx context.Context, badgeID int64, ref identity.RecipientRef) (*AssertionDocument, error) {
	recipient, err := r.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, ErrStorage("recipient lookup", err)
	}
	if recipient == nil {
		return nil, ErrUnknownRecipient(ref.String())
	}

	assertion, err := r.assertions.GetByBadgeAndRecipient(ctx, badgeID, recipient.ID)
	if err != nil {
		return nil, ErrStorage("assertion lookup", err)
	}
	if assertion == nil {
		return nil, ErrAssertionNotHeld(badgeID, ref.String())
	}

	return r.RenderAssertion(ctx, assertion.ID)
}

// RenderBadgeClass builds the shared badge definition document.
func (r *AssertionRenderer) RenderBadgeClass(ctx context.Context, badgeID int64) (*BadgeClassDocument, error) {
	cacheKey := fmt.Sprintf("doc:badge:%d", badgeID)
	var cached BadgeClassDocument
	if r.cacheGet(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	badge, err := r.badges.GetByID(ctx, badgeID)
	if err != nil {
		return nil, ErrStorage("badge lookup", err)
	}
	if badge == nil {
		return nil, ErrBadgeNotFound(badgeID)
	}

	imageURL, err := r.images.ResolveURL(badge.ImageRef, badge.ImageType)
	if err != nil {
		return nil, ErrUnsupportedImageType(badge.ImageType)
	}

	doc := &BadgeClassDocument{
		Context:     OpenBadgesContext,
		Type:        "BadgeClass",
		ID:          r.BadgeClassURL(badge.ID),
		Name:        badge.Name,
		Description: badge.Description,
		Image:       imageURL,
		Criteria:    r.CriteriaURL(badge.ID),
		Issuer:      r.IssuerURL(),
	}

	r.cacheSet(ctx, cacheKey, doc)
	return doc, nil
}

// RenderCriteria builds the earning-criteria document for a badge.
func (r *AssertionRenderer) RenderCriteria(ctx context.Context, badgeID int64) (*CriteriaDocument, error) {
	badge, err := r.badges.GetByID(ctx, badgeID)
	if err != nil {
		return nil, ErrStorage("badge lookup", err)
	}
	if badge == nil {
		return nil, ErrBadgeNotFound(badgeID)
	}

	return &CriteriaDocument{
		ID:       r.CriteriaURL(badge.ID),
		Badge:    r.BadgeClassURL(badge.ID),
		Name:     badge.Name,
		Criteria: badge.Criteria,
	}, nil
}

// RenderIssuer builds the issuer profile. It is the same document for
// every badge class, derived entirely from configuration.
func (r *AssertionRenderer) RenderIssuer() *IssuerDocument {
	return &IssuerDocument{
		Context: OpenBadgesContext,
		Type:    "Issuer",
		ID:      r.IssuerURL(),
		Name:    r.siteName,
		URL:     r.baseURL,
	}
}

// InvalidateBadge drops the cached documents for a badge class.
func (r *AssertionRenderer) InvalidateBadge(ctx context.Context, badgeID int64) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, fmt.Sprintf("doc:badge:%d", badgeID)); err != nil {
		r.logger.Warn("failed to invalidate cached badge document",
			zap.Int64("badge_id", badgeID),
			zap.Error(err))
	}
}

// ===============================
// URL BUILDERS
// ===============================

// BadgeClassURL is the canonical URL of a badge class document.
func (r *AssertionRenderer) BadgeClassURL(badgeID int64) string {
	return fmt.Sprintf("%s%s/%d", r.baseURL, r.badgePath, badgeID)
}

// AssertionURL is the canonical URL of a hosted assertion.
func (r *AssertionRenderer) AssertionURL(assertionID int64) string {
	return fmt.Sprintf("%s%s/assertions/%d", r.baseURL, r.badgePath, assertionID)
}

// CriteriaURL is the canonical URL of a badge's criteria document.
func (r *AssertionRenderer) CriteriaURL(badgeID int64) string {
	return fmt.Sprintf("%s%s/%d/criteria", r.baseURL, r.badgePath, badgeID)
}

// IssuerURL is the canonical URL of the issuer profile.
func (r *AssertionRenderer) IssuerURL() string {
	return fmt.Sprintf("%s%s/issuer", r.baseURL, r.badgePath)
}

// ===============================
// HELPERS
// ===============================

// hashIdentity produces the hashed identity string used in assertion
// recipient objects.
func hashIdentity(email string) string {
	sum := sha256.Sum256([]byte(email))
	return "sha256$" + hex.EncodeToString(sum[:])
}

func (r *AssertionRenderer) cacheGet(ctx context.Context, key string, out interface{}) bool {
	if r.cache == nil {
		return false
	}
	return cache.GetJSON(ctx, r.cache, key, out)
}

func (r *AssertionRenderer) cacheSet(ctx context.Context, key string, value interface{}) {
	if r.cache == nil {
		return
	}
	if err := cache.SetJSON(ctx, r.cache, key, value, r.cacheTTL); err != nil {
		r.logger.Warn("failed to cache badge document",
			zap.String("key", key),
			zap.Error(err))
	}
}
