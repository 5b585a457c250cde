package models

// City is one row from the cities-due-for-scraping query. The city
// lifecycle is owned by the database; the scraper only reads it and
// bumps per-category scrape timestamps.
type City struct {
	ID              int64   `json:"city_id" db:"city_id"`
	Name            string  `json:"city_name" db:"city_name"`
	PostalCode      string  `json:"postal_code" db:"postal_code"`
	Latitude        float64 `json:"latitude" db:"latitude"`
	Longitude       float64 `json:"longitude" db:"longitude"`
	NeedsSaleScrape bool    `json:"needs_sale_scrape" db:"needs_sale_scrape"`
	NeedsRentScrape bool    `json:"needs_rent_scrape" db:"needs_rent_scrape"`
}
