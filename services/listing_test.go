package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/Rovis91/lbc/models"
)

type fakeStore struct {
	existing      map[string]struct{}
	rpcErr        error
	directErr     error
	batchErr      error
	insertErrURLs map[string]bool
	users         []uuid.UUID
	usersErr      error
	inserted      []*models.Listing
	links         []models.UserListing
	images        []models.ListingImage
	rpcCalls      int
	directCalls   int
	usersCalls    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{existing: map[string]struct{}{}}
}

func (f *fakeStore) ExistingURLs(ctx context.Context, urls []string) (map[string]struct{}, error) {
	f.rpcCalls++
	if f.rpcErr != nil {
		return nil, f.rpcErr
	}
	return f.match(urls), nil
}

func (f *fakeStore) ExistingURLsDirect(ctx context.Context, urls []string) (map[string]struct{}, error) {
	f.directCalls++
	if f.directErr != nil {
		return nil, f.directErr
	}
	return f.match(urls), nil
}

func (f *fakeStore) match(urls []string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, u := range urls {
		if _, ok := f.existing[u]; ok {
			out[u] = struct{}{}
		}
	}
	return out
}

func (f *fakeStore) InsertListings(ctx context.Context, listings []*models.Listing) ([]*models.Listing, error) {
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	for _, l := range listings {
		l.ID = uuid.New()
		f.inserted = append(f.inserted, l)
		f.existing[l.URL] = struct{}{}
	}
	return listings, nil
}

func (f *fakeStore) InsertListing(ctx context.Context, l *models.Listing) error {
	if f.insertErrURLs[l.URL] {
		return errors.New("insert failed")
	}
	l.ID = uuid.New()
	f.inserted = append(f.inserted, l)
	f.existing[l.URL] = struct{}{}
	return nil
}

func (f *fakeStore) SubscribedUsers(ctx context.Context, cityID int64, category models.Category) ([]uuid.UUID, error) {
	f.usersCalls++
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	return f.users, nil
}

func (f *fakeStore) InsertUserListings(ctx context.Context, links []models.UserListing) error {
	f.links = append(f.links, links...)
	return nil
}

func (f *fakeStore) InsertListingImages(ctx context.Context, images []models.ListingImage) error {
	f.images = append(f.images, images...)
	return nil
}

func price(v float64) *float64 { return &v }

func makeListing(id int64) *models.Listing {
	return &models.Listing{
		ExternalID:        id,
		Type:              models.CategorySale,
		Title:             fmt.Sprintf("Listing %d", id),
		Price:             price(100000),
		URL:               fmt.Sprintf("https://www.leboncoin.fr/ad/%d.htm", id),
		PropertyType:      models.PropertyTypeApartment,
		PropertyCondition: models.ConditionGood,
		HeatingType:       models.HeatingOther,
		Images:            []string{},
	}
}

func TestStoreBatch_DeduplicatesByURL(t *testing.T) {
	store := newFakeStore()
	a, b, c := makeListing(1), makeListing(2), makeListing(3)
	store.existing[a.URL] = struct{}{}
	store.existing[b.URL] = struct{}{}

	svc := NewListingService(store)
	stored, duplicates := svc.StoreBatch(context.Background(), []*models.Listing{a, b, c}, 1, models.CategorySale)

	if stored != 1 || duplicates != 2 {
		t.Fatalf("expected (1, 2), got (%d, %d)", stored, duplicates)
	}
	if len(store.inserted) != 1 || store.inserted[0].ExternalID != 3 {
		t.Fatalf("expected only listing 3 inserted, got %v", store.inserted)
	}
}

func TestStoreBatch_Idempotent(t *testing.T) {
	store := newFakeStore()
	svc := NewListingService(store)

	batch := func() []*models.Listing {
		return []*models.Listing{makeListing(1), makeListing(2)}
	}

	stored, duplicates := svc.StoreBatch(context.Background(), batch(), 1, models.CategorySale)
	if stored != 2 || duplicates != 0 {
		t.Fatalf("first pass: expected (2, 0), got (%d, %d)", stored, duplicates)
	}

	stored, duplicates = svc.StoreBatch(context.Background(), batch(), 1, models.CategorySale)
	if stored != 0 || duplicates != 2 {
		t.Fatalf("second pass: expected (0, 2), got (%d, %d)", stored, duplicates)
	}
	if len(store.inserted) != 2 {
		t.Fatalf("expected 2 total inserts, got %d", len(store.inserted))
	}
}

func TestStoreBatch_MissingPriceNeverStored(t *testing.T) {
	store := newFakeStore()
	bad := makeListing(1)
	bad.Price = nil

	svc := NewListingService(store)
	stored, duplicates := svc.StoreBatch(context.Background(), []*models.Listing{bad, makeListing(2)}, 1, models.CategorySale)

	if stored != 1 || duplicates != 0 {
		t.Fatalf("expected (1, 0), got (%d, %d)", stored, duplicates)
	}
	for _, l := range store.inserted {
		if l.Price == nil {
			t.Fatal("a listing without a price was persisted")
		}
	}
}

func TestStoreBatch_LookupFallbackChain(t *testing.T) {
	store := newFakeStore()
	store.rpcErr = errors.New("function does not exist")
	dup := makeListing(1)
	store.existing[dup.URL] = struct{}{}

	svc := NewListingService(store)
	stored, duplicates := svc.StoreBatch(context.Background(), []*models.Listing{dup, makeListing(2)}, 1, models.CategorySale)

	if store.rpcCalls != 1 || store.directCalls != 1 {
		t.Fatalf("expected fallback to direct query, got rpc=%d direct=%d", store.rpcCalls, store.directCalls)
	}
	if stored != 1 || duplicates != 1 {
		t.Fatalf("expected (1, 1) via direct lookup, got (%d, %d)", stored, duplicates)
	}
}

func TestStoreBatch_DoubleLookupFailureProceedsWithoutDedup(t *testing.T) {
	store := newFakeStore()
	store.rpcErr = errors.New("rpc down")
	store.directErr = errors.New("table down")
	dup := makeListing(1)
	store.existing[dup.URL] = struct{}{}

	svc := NewListingService(store)
	stored, duplicates := svc.StoreBatch(context.Background(), []*models.Listing{dup}, 1, models.CategorySale)

	// With no dedup information everything is treated as new.
	if stored != 1 || duplicates != 0 {
		t.Fatalf("expected (1, 0), got (%d, %d)", stored, duplicates)
	}
}

func TestStoreBatch_BatchFailureFallsBackPerRecord(t *testing.T) {
	store := newFakeStore()
	store.batchErr = errors.New("constraint violation")
	bad := makeListing(2)
	store.insertErrURLs = map[string]bool{bad.URL: true}

	svc := NewListingService(store)
	stored, duplicates := svc.StoreBatch(context.Background(),
		[]*models.Listing{makeListing(1), bad, makeListing(3)}, 1, models.CategorySale)

	if stored != 2 || duplicates != 0 {
		t.Fatalf("expected (2, 0) after per-record fallback, got (%d, %d)", stored, duplicates)
	}
}

func TestStoreBatch_LinksStoredListingsToUsers(t *testing.T) {
	store := newFakeStore()
	store.users = []uuid.UUID{uuid.New(), uuid.New()}

	svc := NewListingService(store)
	stored, _ := svc.StoreBatch(context.Background(),
		[]*models.Listing{makeListing(1), makeListing(2), makeListing(3)}, 1, models.CategorySale)

	if stored != 3 {
		t.Fatalf("expected 3 stored, got %d", stored)
	}
	if store.usersCalls != 1 {
		t.Fatalf("expected a single subscribed-users query, got %d", store.usersCalls)
	}
	if len(store.links) != 6 {
		t.Fatalf("expected 3 listings x 2 users = 6 links, got %d", len(store.links))
	}
}

func TestStoreBatch_NoSubscribersNoLinks(t *testing.T) {
	store := newFakeStore()
	svc := NewListingService(store)

	svc.StoreBatch(context.Background(), []*models.Listing{makeListing(1)}, 1, models.CategorySale)

	if len(store.links) != 0 {
		t.Fatalf("expected no links, got %d", len(store.links))
	}
}

func TestStoreBatch_QueuesImagesForStoredListings(t *testing.T) {
	store := newFakeStore()
	l := makeListing(1)
	l.Images = []string{"https://img.leboncoin.fr/a.jpg", "https://img.leboncoin.fr/b.jpg"}

	svc := NewListingService(store)
	svc.StoreBatch(context.Background(), []*models.Listing{l}, 1, models.CategorySale)

	if len(store.images) != 2 {
		t.Fatalf("expected 2 queued images, got %d", len(store.images))
	}
	if store.images[0].Status != models.ImageStatusPending {
		t.Fatalf("expected pending status, got %s", store.images[0].Status)
	}
	if store.images[1].Position != 1 {
		t.Fatalf("expected position preserved, got %d", store.images[1].Position)
	}
}

func TestStoreBatch_EmptyBatch(t *testing.T) {
	svc := NewListingService(newFakeStore())
	stored, duplicates := svc.StoreBatch(context.Background(), nil, 1, models.CategorySale)
	if stored != 0 || duplicates != 0 {
		t.Fatalf("expected (0, 0), got (%d, %d)", stored, duplicates)
	}
}

func TestCleanListing_Defaults(t *testing.T) {
	l := &models.Listing{
		Price:             price(500),
		URL:               "https://www.leboncoin.fr/ad/9.htm",
		PropertyCondition: models.PropertyCondition("ruins"),
		PropertyType:      models.PropertyType("castle"),
		HeatingType:       models.HeatingType("fireplace"),
	}
	if err := CleanListing(l); err != nil {
		t.Fatalf("clean failed: %v", err)
	}
	if l.Title != "Sans titre" {
		t.Fatalf("expected default title, got %q", l.Title)
	}
	if l.PropertyCondition != models.ConditionGood {
		t.Fatalf("expected condition good, got %s", l.PropertyCondition)
	}
	if l.PropertyType != models.PropertyTypeOther {
		t.Fatalf("expected property type other, got %s", l.PropertyType)
	}
	if l.HeatingType != models.HeatingOther {
		t.Fatalf("expected heating other, got %s", l.HeatingType)
	}
	if l.Type != models.CategorySale {
		t.Fatalf("expected category sale, got %s", l.Type)
	}
	if l.Images == nil {
		t.Fatal("expected non-nil images")
	}
}

func TestCleanListing_Rejections(t *testing.T) {
	if err := CleanListing(&models.Listing{URL: "https://x"}); err == nil {
		t.Fatal("expected error for missing price")
	}
	if err := CleanListing(&models.Listing{Price: price(1)}); err == nil {
		t.Fatal("expected error for missing url")
	}
}
