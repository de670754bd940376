// file: internal/handlers/api/v1/badges/badges_controller.go
package badges

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"badgehub/internal/contextutils"
	"badgehub/internal/identity"
	"badgehub/internal/models"
	"badgehub/internal/response"
	"badgehub/internal/services"

	"go.uber.org/zap"
)

// maxUploadMemory bounds the multipart parse buffer for image uploads.
const maxUploadMemory = 10 << 20

// BadgeController serves the badge catalog, issuance, and the hosted
// badge documents.
type BadgeController struct {
	serviceCollection *services.ServiceCollection
	logger            *zap.Logger
	responseBuilder   *response.Builder
}

// NewBadgeController creates a new badge controller
func NewBadgeController(serviceCollection *services.ServiceCollection, logger *zap.Logger, responseBuilder *response.Builder) *BadgeController {
	return &BadgeController{
		serviceCollection: serviceCollection,
		logger:            logger,
		responseBuilder:   responseBuilder,
	}
}

// ===============================
// CATALOG ENDPOINTS
// ===============================

// CreateBadge handles badge class creation from a multipart form with
// name, description, criteria and an image file.
func (c *BadgeController) CreateBadge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		c.methodNotAllowed(w, r)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid multipart form", err))
		return
	}

	_, header, err := r.FormFile("image")
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("badge image is required", err))
		return
	}

	req := &services.CreateBadgeRequest{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Criteria:    r.FormValue("criteria"),
		Image:       header,
	}
	if userID := contextutils.GetUserID(r.Context()); userID != 0 {
		req.CreatedBy = &userID
	}

	badge, err := c.serviceCollection.BadgeService.CreateBadge(r.Context(), req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteCreated(w, r, badge)
}

// ListBadges handles badge catalog listing
func (c *BadgeController) ListBadges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		c.methodNotAllowed(w, r)
		return
	}

	badges, err := c.serviceCollection.BadgeService.ListBadges(r.Context(), c.getPaginationParams(r))
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	response.WritePaginated(c.responseBuilder, w, r, badges)
}

// ===============================
// ISSUANCE ENDPOINTS
// ===============================

type issueBadgeBody struct {
	Recipient string `json:"recipient"`
	Evidence  string `json:"evidence,omitempty"`
}

// IssueBadge handles awarding a badge to a recipient.
func (c *BadgeController) IssueBadge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		c.methodNotAllowed(w, r)
		return
	}

	badgeID := c.getBadgeIDFromPath(r)
	if badgeID == 0 {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid badge ID", nil))
		return
	}

	var body issueBadgeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid request body", err))
		return
	}

	result, err := c.serviceCollection.BadgeService.IssueBadge(r.Context(), &services.IssueBadgeRequest{
		BadgeID:   badgeID,
		Recipient: strings.TrimSpace(body.Recipient),
		Evidence:  strings.TrimSpace(body.Evidence),
	})
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccess(w, r, result)
}

// ListRecipientAssertions handles listing the badges a recipient holds.
func (c *BadgeController) ListRecipientAssertions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		c.methodNotAllowed(w, r)
		return
	}

	ref := c.getRecipientRefFromPath(r)
	if ref == "" {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid recipient reference", nil))
		return
	}

	result, err := c.serviceCollection.BadgeService.ListAssertionsForRecipient(r.Context(), &services.ListAssertionsRequest{
		Recipient:  ref,
		Pagination: c.getPaginationParams(r),
	})
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	response.WritePaginated(c.responseBuilder, w, r, result)
}

// ===============================
// HOSTED DOCUMENT ENDPOINTS
// ===============================

// Document endpoints return bare JSON. Verifiers fetch the URL named in
// a document's id field and compare; wrapping the body in the API
// envelope would break hosted verification.

// GetBadgeClass serves the badge class document.
func (c *BadgeController) GetBadgeClass(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		c.methodNotAllowed(w, r)
		return
	}

	badgeID := c.getBadgeIDFromPath(r)
	if badgeID == 0 {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid badge ID", nil))
		return
	}

	doc, err := c.serviceCollection.Renderer.RenderBadgeClass(r.Context(), badgeID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteDocument(w, r, doc)
}

// GetAssertion serves the hosted assertion document.
func (c *BadgeController) GetAssertion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		c.methodNotAllowed(w, r)
		return
	}

	assertionID := c.getAssertionIDFromPath(r)
	if assertionID == 0 {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid assertion ID", nil))
		return
	}

	doc, err := c.serviceCollection.Renderer.RenderAssertion(r.Context(), assertionID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteDocument(w, r, doc)
}

// GetBadgeAssertion serves the hosted assertion addressed by badge and
// recipient, for consumers that know who holds what but not the
// assertion's own URL.
func (c *BadgeController) GetBadgeAssertion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		c.methodNotAllowed(w, r)
		return
	}

	badgeID := c.getBadgeIDFromPath(r)
	if badgeID == 0 {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid badge ID", nil))
		return
	}

	ref := c.getBadgeAssertionRefFromPath(r)
	if ref == "" {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid recipient reference", nil))
		return
	}

	doc, err := c.serviceCollection.Renderer.RenderAssertionFor(r.Context(), badgeID, identity.ParseRef(ref))
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteDocument(w, r, doc)
}

// GetCriteria serves the badge criteria document.
func (c *BadgeController) GetCriteria(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		c.methodNotAllowed(w, r)
		return
	}

	badgeID := c.getBadgeIDFromPath(r)
	if badgeID == 0 {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid badge ID", nil))
		return
	}

	doc, err := c.serviceCollection.Renderer.RenderCriteria(r.Context(), badgeID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteDocument(w, r, doc)
}

// GetIssuer serves the issuer profile document.
func (c *BadgeController) GetIssuer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		c.methodNotAllowed(w, r)
		return
	}

	c.responseBuilder.WriteDocument(w, r, c.serviceCollection.Renderer.RenderIssuer())
}

// ===============================
// HELPERS
// ===============================

func (c *BadgeController) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET, POST")
	c.responseBuilder.WriteJSON(w, r,
		c.responseBuilder.Error(r.Context(), services.NewValidationError("method not allowed", nil)),
		http.StatusMethodNotAllowed)
}

// Path layouts:
//
//	/api/v1/badges/{id}
//	/api/v1/badges/{id}/criteria
//	/api/v1/badges/{id}/issue
//	/api/v1/badges/{id}/assertions/{ref}
//	/api/v1/badges/assertions/{id}
//	/api/v1/badges/recipients/{ref}/assertions
func (c *BadgeController) getBadgeIDFromPath(r *http.Request) int64 {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) >= 4 {
		if id, err := strconv.ParseInt(parts[3], 10, 64); err == nil && id > 0 {
			return id
		}
	}
	return 0
}

func (c *BadgeController) getAssertionIDFromPath(r *http.Request) int64 {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) >= 5 && parts[3] == "assertions" {
		if id, err := strconv.ParseInt(parts[4], 10, 64); err == nil && id > 0 {
			return id
		}
	}
	return 0
}

func (c *BadgeController) getBadgeAssertionRefFromPath(r *http.Request) string {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) >= 6 && parts[4] == "assertions" {
		return parts[5]
	}
	return ""
}

func (c *BadgeController) getRecipientRefFromPath(r *http.Request) string {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) >= 6 && parts[3] == "recipients" && parts[5] == "assertions" {
		return parts[4]
	}
	return ""
}

func (c *BadgeController) getPaginationParams(r *http.Request) models.PaginationParams {
	params := models.PaginationParams{}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			params.Limit = limit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			params.Offset = offset
		}
	}

	params.Sort = r.URL.Query().Get("sort")
	params.Order = r.URL.Query().Get("order")
	params.Normalize()

	return params
}
