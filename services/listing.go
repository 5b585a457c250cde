package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/Rovis91/lbc/models"
)

// ListingStore is the persistence surface the batch store needs.
// *storage.PostgresStore satisfies it.
type ListingStore interface {
	// ExistingURLs returns which of the given URLs are already stored,
	// via the dedicated database function.
	ExistingURLs(ctx context.Context, urls []string) (map[string]struct{}, error)
	// ExistingURLsDirect is the slower fallback query against the table.
	ExistingURLsDirect(ctx context.Context, urls []string) (map[string]struct{}, error)
	// InsertListings inserts the batch in a single transaction and
	// returns the persisted rows with IDs assigned.
	InsertListings(ctx context.Context, listings []*models.Listing) ([]*models.Listing, error)
	// InsertListing inserts one listing and assigns its ID.
	InsertListing(ctx context.Context, l *models.Listing) error
	SubscribedUsers(ctx context.Context, cityID int64, category models.Category) ([]uuid.UUID, error)
	InsertUserListings(ctx context.Context, links []models.UserListing) error
	InsertListingImages(ctx context.Context, images []models.ListingImage) error
}

// ListingService deduplicates, validates and persists listing batches,
// then links newly stored listings to subscribed users. No error escapes
// StoreBatch; every failure is absorbed into the returned counts.
type ListingService struct {
	store ListingStore
}

func NewListingService(store ListingStore) *ListingService {
	return &ListingService{store: store}
}

// BatchResult is the explicit per-stage bookkeeping for one batch.
type BatchResult struct {
	Stored     int
	Duplicates int
	Failed     int
}

// StoreBatch persists a batch of extracted listings for one city and
// category. Returns (stored, duplicates).
func (s *ListingService) StoreBatch(ctx context.Context, listings []*models.Listing, cityID int64, category models.Category) (int, int) {
	if len(listings) == 0 {
		return 0, 0
	}

	result := &BatchResult{}

	log.Printf("Validating %d listings for duplicates...", len(listings))

	// Step 1: collect URLs. A record without one can never be deduped
	// or stored, it counts as a duplicate.
	urls := make([]string, 0, len(listings))
	for _, l := range listings {
		if l.URL != "" {
			urls = append(urls, l.URL)
		}
	}
	if len(urls) == 0 {
		log.Printf("Warning: no valid URLs in batch")
		return 0, len(listings)
	}

	// Step 2: single batched existence check.
	existing := s.existingURLs(ctx, urls)

	// Step 3: partition new vs duplicate.
	var fresh []*models.Listing
	for _, l := range listings {
		if l.URL == "" {
			result.Duplicates++
			continue
		}
		if _, ok := existing[l.URL]; ok {
			result.Duplicates++
			continue
		}
		fresh = append(fresh, l)
	}

	log.Printf("Found %d duplicates, %d new listings to process", result.Duplicates, len(fresh))

	if len(fresh) == 0 {
		return result.Stored, result.Duplicates
	}

	// Step 4: clean and validate before insert.
	var cleaned []*models.Listing
	for _, l := range fresh {
		if err := CleanListing(l); err != nil {
			log.Printf("Warning: listing %d failed validation: %v", l.ExternalID, err)
			result.Failed++
			continue
		}
		cleaned = append(cleaned, l)
	}

	if len(cleaned) == 0 {
		log.Printf("Warning: no valid listings after cleaning")
		return result.Stored, result.Duplicates
	}

	// Step 5: batch insert, per-record fallback on failure.
	stored, err := s.store.InsertListings(ctx, cleaned)
	if err != nil {
		log.Printf("Warning: batch insert failed, falling back to individual inserts: %v", err)
		stored = s.insertIndividually(ctx, cleaned, result)
	}
	result.Stored = len(stored)

	// Step 6: link stored listings to subscribed users, then queue
	// their images for archival.
	if len(stored) > 0 {
		s.linkToUsers(ctx, stored, cityID, category)
		s.queueImages(ctx, stored)
	}

	if result.Failed > 0 {
		log.Printf("Warning: %d listings failed and were skipped", result.Failed)
	}

	return result.Stored, result.Duplicates
}

// existingURLs runs the batched lookup with its two-stage fallback. On
// double failure it returns an empty set and the insert path degrades to
// optimistic: the database unique constraint on url is the last guard.
func (s *ListingService) existingURLs(ctx context.Context, urls []string) map[string]struct{} {
	existing, err := s.store.ExistingURLs(ctx, urls)
	if err == nil {
		return existing
	}
	log.Printf("Warning: existing-URL lookup failed, trying direct query: %v", err)

	existing, err = s.store.ExistingURLsDirect(ctx, urls)
	if err == nil {
		return existing
	}
	log.Printf("Warning: direct URL check also failed, proceeding without dedup: %v", err)
	return map[string]struct{}{}
}

func (s *ListingService) insertIndividually(ctx context.Context, listings []*models.Listing, result *BatchResult) []*models.Listing {
	log.Printf("Processing %d listings individually...", len(listings))

	var stored []*models.Listing
	for _, l := range listings {
		if err := s.store.InsertListing(ctx, l); err != nil {
			log.Printf("Warning: insert failed for listing %d: %v", l.ExternalID, err)
			result.Failed++
			continue
		}
		stored = append(stored, l)
	}

	log.Printf("Individual inserts completed: %d stored, %d failed", len(stored), len(listings)-len(stored))
	return stored
}

// linkToUsers creates one link row per (user, stored listing) pair. One
// subscribed-users query and one batched insert per store call. No
// subscribers is a no-op.
func (s *ListingService) linkToUsers(ctx context.Context, stored []*models.Listing, cityID int64, category models.Category) {
	users, err := s.store.SubscribedUsers(ctx, cityID, category)
	if err != nil {
		log.Printf("Warning: subscribed-users lookup failed: %v", err)
		return
	}
	if len(users) == 0 {
		return
	}

	links := make([]models.UserListing, 0, len(stored)*len(users))
	for _, l := range stored {
		for _, userID := range users {
			links = append(links, models.UserListing{UserID: userID, ListingID: l.ID})
		}
	}

	if err := s.store.InsertUserListings(ctx, links); err != nil {
		log.Printf("Warning: user linking failed: %v", err)
		return
	}
	log.Printf("Linked %d listings to %d users", len(stored), len(users))
}

func (s *ListingService) queueImages(ctx context.Context, stored []*models.Listing) {
	var images []models.ListingImage
	for _, l := range stored {
		for i, url := range l.Images {
			images = append(images, models.ListingImage{
				ListingID: l.ID,
				URL:       url,
				Position:  i,
				Status:    models.ImageStatusPending,
			})
		}
	}
	if len(images) == 0 {
		return
	}
	if err := s.store.InsertListingImages(ctx, images); err != nil {
		log.Printf("Warning: image queueing failed: %v", err)
	}
}

// CleanListing validates required fields and forces every enumerated
// field back into its closed set before persistence. Records without a
// price or URL are rejected.
func CleanListing(l *models.Listing) error {
	if l.Price == nil {
		return fmt.Errorf("missing price")
	}
	if l.URL == "" {
		return fmt.Errorf("missing url")
	}

	if l.Title == "" {
		l.Title = "Sans titre"
	}
	if !l.Type.Valid() {
		l.Type = models.CategorySale
	}
	if !l.PropertyType.Valid() {
		l.PropertyType = models.PropertyTypeOther
	}
	if !l.PropertyCondition.Valid() {
		l.PropertyCondition = models.ConditionGood
	}
	if l.EnergyRating != nil && !l.EnergyRating.Valid() {
		l.EnergyRating = nil
	}
	if !l.HeatingType.Valid() {
		l.HeatingType = models.HeatingOther
	}
	if l.Images == nil {
		l.Images = []string{}
	}

	return nil
}
