package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Rovis91/lbc/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// =============================================================================
// Cities
// =============================================================================

// GetCitiesToScrape returns cities whose subscriptions are due given the
// freshness interval, via the get_cities_to_scrape database function.
func (s *PostgresStore) GetCitiesToScrape(ctx context.Context, intervalHours int) ([]models.City, error) {
	query := `
		SELECT city_id, city_name, postal_code, latitude, longitude,
			needs_sale_scrape, needs_rent_scrape
		FROM get_cities_to_scrape($1)`

	rows, err := s.pool.Query(ctx, query, intervalHours)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cities []models.City
	for rows.Next() {
		var c models.City
		if err := rows.Scan(
			&c.ID, &c.Name, &c.PostalCode, &c.Latitude, &c.Longitude,
			&c.NeedsSaleScrape, &c.NeedsRentScrape,
		); err != nil {
			return nil, err
		}
		cities = append(cities, c)
	}
	return cities, rows.Err()
}

// UpdateCityScrapeTimestamp bumps the per-category last-scrape timestamp.
func (s *PostgresStore) UpdateCityScrapeTimestamp(ctx context.Context, cityID int64, category models.Category) error {
	column := "last_scraped_sale_at"
	if category == models.CategoryRental {
		column = "last_scraped_rent_at"
	}

	query := fmt.Sprintf(`UPDATE cities SET %s = NOW() WHERE id = $1`, column)
	_, err := s.pool.Exec(ctx, query, cityID)
	return err
}

// =============================================================================
// Listings
// =============================================================================

const listingColumns = `
	external_id, type, title, price, url, first_publication_date, description,
	images, city_id, property_type, surface_area, rooms, bedrooms, bathrooms,
	floor_number, building_year, property_condition, energy_rating, heating_type,
	furnished, monthly_charges, security_deposit, charges_included,
	rent_excluding_charges, elevator, parking_spaces, land_plot_surface,
	seller_first_name, seller_last_name, seller_phone, seller_email,
	seller_rating_score, seller_rating_count`

const insertListingQuery = `
	INSERT INTO prospection_estates (` + listingColumns + `
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
		$31, $32, $33
	)
	RETURNING id`

func listingArgs(l *models.Listing) []interface{} {
	return []interface{}{
		l.ExternalID, l.Type, l.Title, l.Price, l.URL, l.FirstPublicationDate, l.Description,
		l.Images, l.CityID, l.PropertyType, l.SurfaceArea, l.Rooms, l.Bedrooms, l.Bathrooms,
		l.FloorNumber, l.BuildingYear, l.PropertyCondition, l.EnergyRating, l.HeatingType,
		l.Furnished, l.MonthlyCharges, l.SecurityDeposit, l.ChargesIncluded,
		l.RentExcludingCharges, l.Elevator, l.ParkingSpaces, l.LandPlotSurface,
		l.SellerFirstName, l.SellerLastName, l.SellerPhone, l.SellerEmail,
		l.SellerRatingScore, l.SellerRatingCount,
	}
}

// InsertListings inserts the whole batch in one transaction and round
// trip. Any failure rolls back the entire batch; the caller falls back
// to InsertListing per record.
func (s *PostgresStore) InsertListings(ctx context.Context, listings []*models.Listing) ([]*models.Listing, error) {
	if len(listings) == 0 {
		return nil, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, l := range listings {
		batch.Queue(insertListingQuery, listingArgs(l)...)
	}

	br := tx.SendBatch(ctx, batch)
	for _, l := range listings {
		if err := br.QueryRow().Scan(&l.ID); err != nil {
			br.Close()
			return nil, fmt.Errorf("batch insert: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return listings, nil
}

// InsertListing inserts a single listing and assigns its ID.
func (s *PostgresStore) InsertListing(ctx context.Context, l *models.Listing) error {
	return s.pool.QueryRow(ctx, insertListingQuery, listingArgs(l)...).Scan(&l.ID)
}

// ExistingURLs returns which of the given URLs are already stored, using
// the dedicated get_existing_urls database function.
func (s *PostgresStore) ExistingURLs(ctx context.Context, urls []string) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT existing_url FROM get_existing_urls($1)`, urls)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanURLSet(rows)
}

// ExistingURLsDirect is the fallback lookup against the table itself.
func (s *PostgresStore) ExistingURLsDirect(ctx context.Context, urls []string) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT url FROM prospection_estates WHERE url = ANY($1)`, urls)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanURLSet(rows)
}

func scanURLSet(rows pgx.Rows) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		existing[url] = struct{}{}
	}
	return existing, rows.Err()
}

// =============================================================================
// User links
// =============================================================================

// SubscribedUsers returns the users watching the given city and category.
func (s *PostgresStore) SubscribedUsers(ctx context.Context, cityID int64, category models.Category) ([]uuid.UUID, error) {
	column := "scrape_sale"
	if category == models.CategoryRental {
		column = "scrape_rent"
	}

	query := fmt.Sprintf(`SELECT user_id FROM user_cities WHERE city_id = $1 AND %s = TRUE`, column)
	rows, err := s.pool.Query(ctx, query, cityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// InsertUserListings bulk-inserts link rows. Links are created once per
// (user, listing) pair and never updated.
func (s *PostgresStore) InsertUserListings(ctx context.Context, links []models.UserListing) error {
	if len(links) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(links))
	for i, link := range links {
		rows[i] = []interface{}{link.UserID, link.ListingID}
	}

	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"user_prospections"},
		[]string{"user_id", "prospection_id"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// =============================================================================
// Listing images
// =============================================================================

func (s *PostgresStore) InsertListingImages(ctx context.Context, images []models.ListingImage) error {
	if len(images) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(images))
	for i, img := range images {
		rows[i] = []interface{}{img.ListingID, img.URL, img.Position, models.ImageStatusPending}
	}

	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"listing_images"},
		[]string{"listing_id", "url", "position", "status"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (s *PostgresStore) GetPendingImages(ctx context.Context, limit int) ([]models.ListingImage, error) {
	query := `
		SELECT id, listing_id, url, position, status, s3_key, attempts, created_at
		FROM listing_images
		WHERE status = 'pending' AND attempts < 3
		ORDER BY created_at
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []models.ListingImage
	for rows.Next() {
		var img models.ListingImage
		if err := rows.Scan(
			&img.ID, &img.ListingID, &img.URL, &img.Position, &img.Status,
			&img.S3Key, &img.Attempts, &img.CreatedAt,
		); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

func (s *PostgresStore) UpdateImageStatus(ctx context.Context, id int64, status string, s3Key *string, attempts int) error {
	query := `UPDATE listing_images SET status = $2, s3_key = COALESCE($3, s3_key), attempts = $4 WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, id, status, s3Key, attempts)
	return err
}
