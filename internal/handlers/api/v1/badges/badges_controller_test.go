// file: internal/handlers/api/v1/badges/badges_controller_test.go
package badges

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"badgehub/internal/config"
	"badgehub/internal/identity"
	"badgehub/internal/models"
	"badgehub/internal/repositories"
	"badgehub/internal/response"
	"badgehub/internal/services"
	"badgehub/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ===============================
// TEST FIXTURE
// ===============================

type fixture struct {
	controller *BadgeController
	recipients *memRecipientRepo
	badges     *memBadgeRepo
	assertions *memAssertionRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := zap.NewNop()

	f := &fixture{
		badges:     &memBadgeRepo{byID: map[int64]*models.BadgeClass{}, nextID: 1},
		assertions: &memAssertionRepo{byID: map[int64]*models.BadgeAssertion{}, nextID: 1},
		recipients: &memRecipientRepo{byID: map[int64]*models.Recipient{}, nextID: 1},
	}

	repos := &repositories.Collection{
		Badge:     f.badges,
		Assertion: f.assertions,
		Recipient: f.recipients,
	}

	badgeCfg := &config.BadgeConfig{
		BaseURL:   "https://badges.example.org",
		BadgePath: "/api/v1/badges",
		SiteName:  "BadgeHub",
	}

	images := &memImageStore{}
	policy := services.NewRecipientPolicy(false, false)
	renderer := services.NewAssertionRenderer(repos, images, policy, nil, badgeCfg, time.Minute, logger)

	sc := &services.ServiceCollection{
		BadgeService: services.NewBadgeService(
			repos.Badge, repos.Assertion,
			identity.NewProvider(repos.Recipient),
			images, policy, renderer, logger,
		),
		Renderer:     renderer,
		Repositories: repos,
		Logger:       logger,
	}

	f.controller = NewBadgeController(sc, logger, response.NewBuilder(response.DefaultConfig(), logger))
	return f
}

func (f *fixture) addRecipient(name, email string) *models.Recipient {
	rec := &models.Recipient{DisplayName: name, EmailConfirmed: true}
	if email != "" {
		rec.Email = &email
	}
	_ = f.recipients.Create(context.Background(), rec)
	return rec
}

func (f *fixture) addBadge(name string) *models.BadgeClass {
	badge := &models.BadgeClass{
		Name:        name,
		Description: "desc",
		ImageRef:    "ref-" + name,
		ImageType:   models.ImageTypePNG,
		Criteria:    "criteria text",
	}
	_ = f.badges.Create(context.Background(), badge)
	return badge
}

// ===============================
// ISSUANCE ENDPOINT
// ===============================

func TestIssueBadgeEndpoint(t *testing.T) {
	f := newFixture(t)
	badge := f.addBadge("Pioneer")
	f.addRecipient("ada", "ada@example.org")

	body, _ := json.Marshal(map[string]string{"recipient": "ada"})
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/badges/%d/issue", badge.ID), bytes.NewReader(body))
	rr := httptest.NewRecorder()

	f.controller.IssueBadge(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			Success     bool   `json:"success"`
			Recipient   string `json:"recipient"`
			Badge       int64  `json:"badge"`
			AssertionID int64  `json:"assertion_id"`
			AlreadyHeld bool   `json:"already_held"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.True(t, envelope.Data.Success)
	assert.Equal(t, "ada", envelope.Data.Recipient)
	assert.Equal(t, badge.ID, envelope.Data.Badge)
	assert.False(t, envelope.Data.AlreadyHeld)
}

func TestIssueBadgeEndpointUnknownRecipient(t *testing.T) {
	f := newFixture(t)
	badge := f.addBadge("Pioneer")

	body, _ := json.Marshal(map[string]string{"recipient": "nobody"})
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/badges/%d/issue", badge.ID), bytes.NewReader(body))
	rr := httptest.NewRecorder()

	f.controller.IssueBadge(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)

	var envelope struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, services.CodeUnknownRecipient, envelope.Error.Code)
}

func TestIssueBadgeEndpointBadBody(t *testing.T) {
	f := newFixture(t)
	badge := f.addBadge("Pioneer")

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/badges/%d/issue", badge.ID), bytes.NewReader([]byte("{broken")))
	rr := httptest.NewRecorder()

	f.controller.IssueBadge(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// ===============================
// DOCUMENT ENDPOINTS
// ===============================

func TestGetAssertionDocument(t *testing.T) {
	f := newFixture(t)
	badge := f.addBadge("Pioneer")
	rec := f.addRecipient("ada", "ada@example.org")

	assertion := &models.BadgeAssertion{BadgeID: badge.ID, RecipientID: rec.ID}
	require.NoError(t, f.assertions.Create(context.Background(), assertion))

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/badges/assertions/%d", assertion.ID), nil)
	rr := httptest.NewRecorder()

	f.controller.GetAssertion(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	// Bare document: no API envelope around it.
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	assert.NotContains(t, doc, "success")
	assert.Equal(t, "Assertion", doc["type"])
	assert.Equal(t, "https://w3id.org/openbadges/v1", doc["@context"])

	wantURL := fmt.Sprintf("https://badges.example.org/api/v1/badges/assertions/%d", assertion.ID)
	assert.Equal(t, wantURL, doc["id"])

	verify, ok := doc["verify"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "hosted", verify["type"])
	assert.Equal(t, wantURL, verify["url"])

	// Evidence omitted entirely when empty, and assertions carry no
	// image; that belongs to the badge class document.
	_, present := doc["evidence"]
	assert.False(t, present)
	_, present = doc["image"]
	assert.False(t, present)
}

func TestGetBadgeAssertionDocument(t *testing.T) {
	f := newFixture(t)
	badge := f.addBadge("Pioneer")
	rec := f.addRecipient("ada", "ada@example.org")

	assertion := &models.BadgeAssertion{BadgeID: badge.ID, RecipientID: rec.ID}
	require.NoError(t, f.assertions.Create(context.Background(), assertion))

	// Addressed by badge and recipient rather than assertion id; the
	// document still names its own assertion URL.
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/badges/%d/assertions/ada", badge.ID), nil)
	rr := httptest.NewRecorder()

	f.controller.GetBadgeAssertion(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	assert.Equal(t, "Assertion", doc["type"])
	wantURL := fmt.Sprintf("https://badges.example.org/api/v1/badges/assertions/%d", assertion.ID)
	assert.Equal(t, wantURL, doc["id"])
}

func TestGetBadgeAssertionNotHeld(t *testing.T) {
	f := newFixture(t)
	badge := f.addBadge("Pioneer")
	f.addRecipient("ada", "ada@example.org")

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/badges/%d/assertions/ada", badge.ID), nil)
	rr := httptest.NewRecorder()

	f.controller.GetBadgeAssertion(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetBadgeClassDocument(t *testing.T) {
	f := newFixture(t)
	badge := f.addBadge("Pioneer")

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/badges/%d", badge.ID), nil)
	rr := httptest.NewRecorder()

	f.controller.GetBadgeClass(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	assert.Equal(t, "BadgeClass", doc["type"])
	assert.Equal(t, "Pioneer", doc["name"])
	assert.Equal(t, fmt.Sprintf("https://badges.example.org/api/v1/badges/%d", badge.ID), doc["id"])
}

func TestGetIssuerDocument(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/badges/issuer", nil)
	rr := httptest.NewRecorder()

	f.controller.GetIssuer(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	assert.Equal(t, "Issuer", doc["type"])
	assert.Equal(t, "BadgeHub", doc["name"])
	assert.Equal(t, "https://badges.example.org", doc["url"])
}

func TestGetAssertionNotFound(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/badges/assertions/42", nil)
	rr := httptest.NewRecorder()

	f.controller.GetAssertion(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// ===============================
// CREATE ENDPOINT
// ===============================

func TestCreateBadgeEndpoint(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Pioneer"))
	require.NoError(t, mw.WriteField("description", "one of the first hundred"))
	require.NoError(t, mw.WriteField("criteria", "be among the first hundred registered users"))
	fw, err := mw.CreateFormFile("image", "pioneer.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake png bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/badges", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()

	f.controller.CreateBadge(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var envelope struct {
		Data models.BadgeClass `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	assert.Equal(t, "Pioneer", envelope.Data.Name)
	assert.NotZero(t, envelope.Data.ID)
}

func TestCreateBadgeEndpointMissingImage(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Pioneer"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/badges", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()

	f.controller.CreateBadge(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// ===============================
// IN-MEMORY REPOSITORIES
// ===============================

type memBadgeRepo struct {
	byID   map[int64]*models.BadgeClass
	nextID int64
}

func (r *memBadgeRepo) Create(ctx context.Context, b *models.BadgeClass) error {
	for _, existing := range r.byID {
		if existing.Name == b.Name {
			return &repositories.ErrDuplicateBadgeName{Name: b.Name}
		}
	}
	b.ID = r.nextID
	r.nextID++
	b.CreatedAt = time.Now()
	r.byID[b.ID] = b
	return nil
}

func (r *memBadgeRepo) GetByID(ctx context.Context, id int64) (*models.BadgeClass, error) {
	return r.byID[id], nil
}

func (r *memBadgeRepo) GetByName(ctx context.Context, name string) (*models.BadgeClass, error) {
	for _, b := range r.byID {
		if b.Name == name {
			return b, nil
		}
	}
	return nil, nil
}

func (r *memBadgeRepo) List(ctx context.Context, params models.PaginationParams) (*models.PaginatedResponse[*models.BadgeClass], error) {
	all := make([]*models.BadgeClass, 0, len(r.byID))
	for _, b := range r.byID {
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return &models.PaginatedResponse[*models.BadgeClass]{
		Data:       all,
		Pagination: models.PaginationMeta{TotalItems: int64(len(all))},
	}, nil
}

type memAssertionRepo struct {
	byID   map[int64]*models.BadgeAssertion
	nextID int64
}

func (r *memAssertionRepo) Create(ctx context.Context, a *models.BadgeAssertion) error {
	for _, existing := range r.byID {
		if existing.BadgeID == a.BadgeID && existing.RecipientID == a.RecipientID {
			return &repositories.ErrAlreadyIssued{BadgeID: a.BadgeID, RecipientID: a.RecipientID}
		}
	}
	a.ID = r.nextID
	r.nextID++
	a.IssuedAt = time.Now().UTC()
	r.byID[a.ID] = a
	return nil
}

func (r *memAssertionRepo) GetByID(ctx context.Context, id int64) (*models.BadgeAssertion, error) {
	return r.byID[id], nil
}

func (r *memAssertionRepo) GetByBadgeAndRecipient(ctx context.Context, badgeID, recipientID int64) (*models.BadgeAssertion, error) {
	for _, a := range r.byID {
		if a.BadgeID == badgeID && a.RecipientID == recipientID {
			return a, nil
		}
	}
	return nil, nil
}

func (r *memAssertionRepo) ListByRecipient(ctx context.Context, recipientID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.IssuedBadge], error) {
	var items []*models.IssuedBadge
	for _, a := range r.byID {
		if a.RecipientID == recipientID {
			items = append(items, &models.IssuedBadge{BadgeID: a.BadgeID, IssuedAt: a.IssuedAt})
		}
	}
	return &models.PaginatedResponse[*models.IssuedBadge]{
		Data:       items,
		Pagination: models.PaginationMeta{TotalItems: int64(len(items))},
	}, nil
}

func (r *memAssertionRepo) CountByBadge(ctx context.Context, badgeID int64) (int64, error) {
	var n int64
	for _, a := range r.byID {
		if a.BadgeID == badgeID {
			n++
		}
	}
	return n, nil
}

type memRecipientRepo struct {
	byID   map[int64]*models.Recipient
	nextID int64
}

func (r *memRecipientRepo) Create(ctx context.Context, rec *models.Recipient) error {
	rec.ID = r.nextID
	r.nextID++
	r.byID[rec.ID] = rec
	return nil
}

func (r *memRecipientRepo) GetByID(ctx context.Context, id int64) (*models.Recipient, error) {
	return r.byID[id], nil
}

func (r *memRecipientRepo) GetByDisplayName(ctx context.Context, name string) (*models.Recipient, error) {
	for _, rec := range r.byID {
		if rec.DisplayName == name {
			return rec, nil
		}
	}
	return nil, nil
}

type memImageStore struct{}

func (s *memImageStore) Upload(ctx context.Context, file *multipart.FileHeader) (*storage.StoredImage, error) {
	return &storage.StoredImage{Ref: "uploaded-" + file.Filename, Type: models.ImageTypePNG}, nil
}

func (s *memImageStore) ResolveURL(ref, imageType string) (string, error) {
	return "https://img.example.org/" + ref, nil
}

func (s *memImageStore) Delete(ctx context.Context, ref string) error { return nil }
