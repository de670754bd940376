// file: internal/services/fakes_test.go
package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"sort"
	"time"

	"badgehub/internal/models"
	"badgehub/internal/repositories"
	"badgehub/internal/storage"
)

// ===============================
// BADGE REPOSITORY FAKE
// ===============================

type fakeBadgeRepo struct {
	badges    map[int64]*models.BadgeClass
	nextID    int64
	createErr error
}

func newFakeBadgeRepo() *fakeBadgeRepo {
	return &fakeBadgeRepo{badges: make(map[int64]*models.BadgeClass), nextID: 1}
}

func (r *fakeBadgeRepo) Create(ctx context.Context, badge *models.BadgeClass) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, b := range r.badges {
		if b.Name == badge.Name {
			return &repositories.ErrDuplicateBadgeName{Name: badge.Name}
		}
	}
	badge.ID = r.nextID
	r.nextID++
	badge.CreatedAt = time.Now()
	badge.UpdatedAt = badge.CreatedAt
	r.badges[badge.ID] = badge
	return nil
}

func (r *fakeBadgeRepo) GetByID(ctx context.Context, id int64) (*models.BadgeClass, error) {
	return r.badges[id], nil
}

func (r *fakeBadgeRepo) GetByName(ctx context.Context, name string) (*models.BadgeClass, error) {
	for _, b := range r.badges {
		if b.Name == name {
			return b, nil
		}
	}
	return nil, nil
}

func (r *fakeBadgeRepo) List(ctx context.Context, params models.PaginationParams) (*models.PaginatedResponse[*models.BadgeClass], error) {
	all := make([]*models.BadgeClass, 0, len(r.badges))
	for _, b := range r.badges {
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return &models.PaginatedResponse[*models.BadgeClass]{
		Data:       all,
		Pagination: models.PaginationMeta{TotalItems: int64(len(all))},
	}, nil
}

// ===============================
// ASSERTION REPOSITORY FAKE
// ===============================

type fakeAssertionRepo struct {
	assertions map[int64]*models.BadgeAssertion
	nextID     int64
	// onCreate runs before the insert, used to simulate a concurrent
	// issuance winning the unique-index race.
	onCreate func()
}

func newFakeAssertionRepo() *fakeAssertionRepo {
	return &fakeAssertionRepo{assertions: make(map[int64]*models.BadgeAssertion), nextID: 1}
}

func (r *fakeAssertionRepo) Create(ctx context.Context, assertion *models.BadgeAssertion) error {
	if r.onCreate != nil {
		r.onCreate()
	}
	for _, a := range r.assertions {
		if a.BadgeID == assertion.BadgeID && a.RecipientID == assertion.RecipientID {
			return &repositories.ErrAlreadyIssued{BadgeID: assertion.BadgeID, RecipientID: assertion.RecipientID}
		}
	}
	assertion.ID = r.nextID
	r.nextID++
	assertion.IssuedAt = time.Now().UTC()
	r.assertions[assertion.ID] = assertion
	return nil
}

func (r *fakeAssertionRepo) GetByID(ctx context.Context, id int64) (*models.BadgeAssertion, error) {
	return r.assertions[id], nil
}

func (r *fakeAssertionRepo) GetByBadgeAndRecipient(ctx context.Context, badgeID, recipientID int64) (*models.BadgeAssertion, error) {
	for _, a := range r.assertions {
		if a.BadgeID == badgeID && a.RecipientID == recipientID {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeAssertionRepo) ListByRecipient(ctx context.Context, recipientID int64, params models.PaginationParams) (*models.PaginatedResponse[*models.IssuedBadge], error) {
	var items []*models.IssuedBadge
	for _, a := range r.assertions {
		if a.RecipientID == recipientID {
			items = append(items, &models.IssuedBadge{
				BadgeID:     a.BadgeID,
				EvidenceURL: a.EvidenceURL,
				IssuedAt:    a.IssuedAt,
			})
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].BadgeID < items[j].BadgeID })
	return &models.PaginatedResponse[*models.IssuedBadge]{
		Data:       items,
		Pagination: models.PaginationMeta{TotalItems: int64(len(items))},
	}, nil
}

func (r *fakeAssertionRepo) CountByBadge(ctx context.Context, badgeID int64) (int64, error) {
	var n int64
	for _, a := range r.assertions {
		if a.BadgeID == badgeID {
			n++
		}
	}
	return n, nil
}

// ===============================
// RECIPIENT REPOSITORY FAKE
// ===============================

type fakeRecipientRepo struct {
	recipients map[int64]*models.Recipient
	nextID     int64
}

func newFakeRecipientRepo() *fakeRecipientRepo {
	return &fakeRecipientRepo{recipients: make(map[int64]*models.Recipient), nextID: 1}
}

func (r *fakeRecipientRepo) add(displayName string, email *string, confirmed bool) *models.Recipient {
	rec := &models.Recipient{
		ID:             r.nextID,
		DisplayName:    displayName,
		Email:          email,
		EmailConfirmed: confirmed,
		CreatedAt:      time.Now(),
	}
	r.nextID++
	r.recipients[rec.ID] = rec
	return rec
}

func (r *fakeRecipientRepo) Create(ctx context.Context, recipient *models.Recipient) error {
	recipient.ID = r.nextID
	r.nextID++
	r.recipients[recipient.ID] = recipient
	return nil
}

func (r *fakeRecipientRepo) GetByID(ctx context.Context, id int64) (*models.Recipient, error) {
	return r.recipients[id], nil
}

func (r *fakeRecipientRepo) GetByDisplayName(ctx context.Context, displayName string) (*models.Recipient, error) {
	for _, rec := range r.recipients {
		if rec.DisplayName == displayName {
			return rec, nil
		}
	}
	return nil, nil
}

// ===============================
// IMAGE STORE FAKE
// ===============================

type fakeImageStore struct {
	uploads   int
	deleted   []string
	uploadErr error
	imageType string
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{imageType: models.ImageTypePNG}
}

func (s *fakeImageStore) Upload(ctx context.Context, file *multipart.FileHeader) (*storage.StoredImage, error) {
	if s.uploadErr != nil {
		return nil, s.uploadErr
	}
	s.uploads++
	ref := fmt.Sprintf("badge-image-%d", s.uploads)
	return &storage.StoredImage{
		Ref:  ref,
		Type: s.imageType,
		URL:  "https://img.example.org/" + ref,
	}, nil
}

func (s *fakeImageStore) ResolveURL(ref, imageType string) (string, error) {
	switch imageType {
	case models.ImageTypePNG:
		return "https://img.example.org/" + ref + ".png", nil
	case models.ImageTypeSVG:
		return "https://img.example.org/" + ref + ".png?w=400", nil
	default:
		return "", storage.ErrUnsupportedType
	}
}

func (s *fakeImageStore) Delete(ctx context.Context, ref string) error {
	s.deleted = append(s.deleted, ref)
	return nil
}
