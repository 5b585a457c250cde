package scraper

import (
	"context"
	"log"
	"time"

	"github.com/Rovis91/lbc/config"
	"github.com/Rovis91/lbc/models"
)

// Fetcher retrieves normalized listings page by page for one
// (city, category) pair. Page failures are a soft stop: whatever was
// accumulated is returned. Structural extraction errors propagate.
type Fetcher struct {
	client    SearchClient
	pageSize  int
	maxPages  int
	radiusM   int
	pageDelay time.Duration
}

func NewFetcher(client SearchClient, cfg *config.ScraperConfig) *Fetcher {
	return &Fetcher{
		client:    client,
		pageSize:  cfg.PageSize,
		maxPages:  cfg.MaxPages,
		radiusM:   cfg.RadiusM,
		pageDelay: cfg.PageDelay,
	}
}

// FetchResult is the outcome of one city/category fetch. Duplicates is
// always 0 here; deduplication happens in the batch store.
type FetchResult struct {
	Listings   []*models.Listing
	Duplicates int
	Processed  int
}

// FetchCity fetches up to maxListings listings for the city and category,
// in the source's publish-date-descending order.
func (f *Fetcher) FetchCity(ctx context.Context, city *models.City, category models.Category, maxListings int) (*FetchResult, error) {
	result := &FetchResult{}

	req := SearchRequest{
		City:      city.Name,
		Latitude:  city.Latitude,
		Longitude: city.Longitude,
		RadiusM:   f.radiusM,
		Category:  category,
		Limit:     f.pageSize,
	}

	for page := 1; page <= f.maxPages && len(result.Listings) < maxListings; page++ {
		req.Page = page

		resp, err := f.client.Search(ctx, req)
		if err != nil {
			// Soft stop: keep what we have, the run continues.
			log.Printf("Warning: %s/%s page %d fetch failed: %v", city.Name, category, page, err)
			return result, nil
		}

		if len(resp.Ads) == 0 {
			break
		}

		for i := range resp.Ads {
			if len(result.Listings) >= maxListings {
				break
			}
			result.Processed++

			listing, err := ExtractListing(&resp.Ads[i], category, city.ID)
			if err != nil {
				// Data-contract violation, the caller decides.
				return result, err
			}
			result.Listings = append(result.Listings, listing)
		}

		if resp.MaxPages > 0 && page >= resp.MaxPages {
			break
		}

		if err := f.sleep(ctx); err != nil {
			return result, nil
		}
	}

	return result, nil
}

func (f *Fetcher) sleep(ctx context.Context) error {
	if f.pageDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(f.pageDelay):
		return nil
	}
}
