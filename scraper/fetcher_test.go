package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Rovis91/lbc/config"
	"github.com/Rovis91/lbc/models"
)

type fakeSearchClient struct {
	pages   map[int]*SearchPage
	err     error
	errPage int
	calls   []int
}

func (f *fakeSearchClient) Search(ctx context.Context, req SearchRequest) (*SearchPage, error) {
	f.calls = append(f.calls, req.Page)
	if f.err != nil && req.Page == f.errPage {
		return nil, f.err
	}
	if page, ok := f.pages[req.Page]; ok {
		return page, nil
	}
	return &SearchPage{}, nil
}

func makeAds(start, count int) []models.RawAd {
	ads := make([]models.RawAd, count)
	for i := 0; i < count; i++ {
		id := int64(start + i)
		ads[i] = models.RawAd{
			ID:      id,
			Subject: fmt.Sprintf("Listing %d", id),
			URL:     fmt.Sprintf("https://www.leboncoin.fr/ad/%d.htm", id),
		}
	}
	return ads
}

func testFetcher(client SearchClient) *Fetcher {
	return NewFetcher(client, &config.ScraperConfig{
		PageSize: 20,
		MaxPages: 10,
		RadiusM:  10000,
	})
}

func testCity() *models.City {
	return &models.City{ID: 1, Name: "Lyon", PostalCode: "69001", Latitude: 45.76, Longitude: 4.83}
}

func TestFetchCity_StopsAtCapMidPage(t *testing.T) {
	client := &fakeSearchClient{pages: map[int]*SearchPage{
		1: {Ads: makeAds(100, 8), MaxPages: 5},
	}}
	f := testFetcher(client)

	res, err := f.FetchCity(context.Background(), testCity(), models.CategorySale, 5)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(res.Listings) != 5 {
		t.Fatalf("expected 5 listings, got %d", len(res.Listings))
	}
	if res.Processed != 5 {
		t.Fatalf("expected 5 processed, got %d", res.Processed)
	}
	if len(client.calls) != 1 {
		t.Fatalf("expected 1 page fetched, got %d", len(client.calls))
	}
}

func TestFetchCity_WalksPagesUntilEmpty(t *testing.T) {
	client := &fakeSearchClient{pages: map[int]*SearchPage{
		1: {Ads: makeAds(100, 3)},
		2: {Ads: makeAds(200, 3)},
	}}
	f := testFetcher(client)

	res, err := f.FetchCity(context.Background(), testCity(), models.CategorySale, 100)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(res.Listings) != 6 {
		t.Fatalf("expected 6 listings, got %d", len(res.Listings))
	}
	// Page 3 is empty and terminates the walk.
	if len(client.calls) != 3 {
		t.Fatalf("expected 3 pages fetched, got %v", client.calls)
	}
}

func TestFetchCity_RespectsSourceMaxPages(t *testing.T) {
	client := &fakeSearchClient{pages: map[int]*SearchPage{
		1: {Ads: makeAds(100, 3), MaxPages: 1},
		2: {Ads: makeAds(200, 3), MaxPages: 1},
	}}
	f := testFetcher(client)

	res, err := f.FetchCity(context.Background(), testCity(), models.CategorySale, 100)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(res.Listings) != 3 {
		t.Fatalf("expected 3 listings, got %d", len(res.Listings))
	}
	if len(client.calls) != 1 {
		t.Fatalf("expected 1 page fetched, got %v", client.calls)
	}
}

func TestFetchCity_PageErrorIsSoftStop(t *testing.T) {
	client := &fakeSearchClient{
		pages: map[int]*SearchPage{
			1: {Ads: makeAds(100, 3), MaxPages: 5},
		},
		err:     errors.New("boom"),
		errPage: 2,
	}
	f := testFetcher(client)

	res, err := f.FetchCity(context.Background(), testCity(), models.CategorySale, 100)
	if err != nil {
		t.Fatalf("page error must not propagate, got %v", err)
	}
	if len(res.Listings) != 3 {
		t.Fatalf("expected listings from page 1 kept, got %d", len(res.Listings))
	}
}

func TestFetchCity_StructuralErrorPropagates(t *testing.T) {
	ads := makeAds(100, 3)
	ads[1].URL = "" // contract violation
	client := &fakeSearchClient{pages: map[int]*SearchPage{
		1: {Ads: ads, MaxPages: 1},
	}}
	f := testFetcher(client)

	res, err := f.FetchCity(context.Background(), testCity(), models.CategorySale, 100)
	if err == nil {
		t.Fatal("expected structural extraction error")
	}
	if len(res.Listings) != 1 {
		t.Fatalf("expected listings before the bad record kept, got %d", len(res.Listings))
	}
}
