package scraper

import (
	"testing"
)

func TestParseSearchHTML(t *testing.T) {
	html := string(loadFixture(t, "search_page.html"))

	page, err := parseSearchHTML(html)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if len(page.Ads) != 2 {
		t.Fatalf("expected 2 ads, got %d", len(page.Ads))
	}
	if page.Ads[0].ID != 2900000001 {
		t.Fatalf("unexpected first ad id %d", page.Ads[0].ID)
	}
	if page.Ads[0].Subject != "Maison 5 pièces" {
		t.Fatalf("unexpected subject %q", page.Ads[0].Subject)
	}
	if page.Ads[1].Price == nil || *page.Ads[1].Price != 185000 {
		t.Fatalf("unexpected second ad price %v", page.Ads[1].Price)
	}
	if page.MaxPages != 4 {
		t.Fatalf("expected 4 max pages, got %d", page.MaxPages)
	}
}

func TestParseSearchHTML_NoPayload(t *testing.T) {
	if _, err := parseSearchHTML("<html><body>blocked</body></html>"); err == nil {
		t.Fatal("expected error for a page without search payload")
	}
}
