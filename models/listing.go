package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is the listing transaction type.
type Category string

const (
	CategorySale   Category = "sale"
	CategoryRental Category = "rental"
)

// SearchID returns the Leboncoin category identifier used in search queries.
func (c Category) SearchID() string {
	if c == CategoryRental {
		return "10"
	}
	return "9"
}

func (c Category) Valid() bool {
	return c == CategorySale || c == CategoryRental
}

type PropertyType string

const (
	PropertyTypeApartment  PropertyType = "apartment"
	PropertyTypeHouse      PropertyType = "house"
	PropertyTypeLand       PropertyType = "land"
	PropertyTypeCommercial PropertyType = "commercial"
	PropertyTypeOther      PropertyType = "other"
)

func (p PropertyType) Valid() bool {
	switch p {
	case PropertyTypeApartment, PropertyTypeHouse, PropertyTypeLand, PropertyTypeCommercial, PropertyTypeOther:
		return true
	}
	return false
}

type PropertyCondition string

const (
	ConditionNew            PropertyCondition = "new"
	ConditionGood           PropertyCondition = "good"
	ConditionToBeRenovated  PropertyCondition = "to_be_renovated"
	ConditionToBeRestored   PropertyCondition = "to_be_restored"
	ConditionToBeDemolished PropertyCondition = "to_be_demolished"
)

func (c PropertyCondition) Valid() bool {
	switch c {
	case ConditionNew, ConditionGood, ConditionToBeRenovated, ConditionToBeRestored, ConditionToBeDemolished:
		return true
	}
	return false
}

// EnergyRating is the French DPE class, A through G.
type EnergyRating string

func (r EnergyRating) Valid() bool {
	switch r {
	case "A", "B", "C", "D", "E", "F", "G":
		return true
	}
	return false
}

type HeatingType string

const (
	HeatingElectric HeatingType = "electric"
	HeatingGas      HeatingType = "gas"
	HeatingOil      HeatingType = "oil"
	HeatingWood     HeatingType = "wood"
	HeatingSolar    HeatingType = "solar"
	HeatingHeatPump HeatingType = "heat_pump"
	HeatingOther    HeatingType = "other"
)

func (h HeatingType) Valid() bool {
	switch h {
	case HeatingElectric, HeatingGas, HeatingOil, HeatingWood, HeatingSolar, HeatingHeatPump, HeatingOther:
		return true
	}
	return false
}

// AdAttribute is one raw key/value pair attached to a search result item.
type AdAttribute struct {
	Key        string `json:"key"`
	KeyLabel   string `json:"key_label"`
	Value      string `json:"value"`
	ValueLabel string `json:"value_label"`
}

// RawAd is a single search result item as returned by the source,
// before extraction and normalization.
type RawAd struct {
	ID                   int64         `json:"list_id"`
	Subject              string        `json:"subject"`
	Body                 string        `json:"body"`
	Price                *float64      `json:"price"`
	URL                  string        `json:"url"`
	FirstPublicationDate string        `json:"first_publication_date"`
	Images               []string      `json:"images"`
	Attributes           []AdAttribute `json:"attributes"`
}

// Attribute returns the raw attribute for key, if present.
func (a *RawAd) Attribute(key string) (AdAttribute, bool) {
	for _, attr := range a.Attributes {
		if attr.Key == key {
			return attr, true
		}
	}
	return AdAttribute{}, false
}

// Listing is a normalized real estate listing ready for persistence.
// ID is assigned by the database on insert.
type Listing struct {
	ID                   uuid.UUID         `json:"id" db:"id"`
	ExternalID           int64             `json:"external_id" db:"external_id"`
	Type                 Category          `json:"type" db:"type"`
	Title                string            `json:"title" db:"title"`
	Price                *float64          `json:"price" db:"price"`
	URL                  string            `json:"url" db:"url"`
	FirstPublicationDate *time.Time        `json:"first_publication_date" db:"first_publication_date"`
	Description          string            `json:"description" db:"description"`
	Images               []string          `json:"images" db:"images"`
	CityID               int64             `json:"city_id" db:"city_id"`
	PropertyType         PropertyType      `json:"property_type" db:"property_type"`
	SurfaceArea          *int              `json:"surface_area" db:"surface_area"`
	Rooms                *int              `json:"rooms" db:"rooms"`
	Bedrooms             *int              `json:"bedrooms" db:"bedrooms"`
	Bathrooms            *int              `json:"bathrooms" db:"bathrooms"`
	FloorNumber          *int              `json:"floor_number" db:"floor_number"`
	BuildingYear         *int              `json:"building_year" db:"building_year"`
	PropertyCondition    PropertyCondition `json:"property_condition" db:"property_condition"`
	EnergyRating         *EnergyRating     `json:"energy_rating" db:"energy_rating"`
	HeatingType          HeatingType       `json:"heating_type" db:"heating_type"`

	// Rental-only fields, always nil for sale listings.
	Furnished            *bool    `json:"furnished" db:"furnished"`
	MonthlyCharges       *float64 `json:"monthly_charges" db:"monthly_charges"`
	SecurityDeposit      *float64 `json:"security_deposit" db:"security_deposit"`
	ChargesIncluded      *bool    `json:"charges_included" db:"charges_included"`
	RentExcludingCharges *float64 `json:"rent_excluding_charges" db:"rent_excluding_charges"`

	Elevator        bool     `json:"elevator" db:"elevator"`
	ParkingSpaces   *int     `json:"parking_spaces" db:"parking_spaces"`
	LandPlotSurface *float64 `json:"land_plot_surface" db:"land_plot_surface"`

	// Seller metadata is filled by an external enrichment step, never
	// by the search pipeline itself.
	SellerFirstName   *string  `json:"seller_first_name" db:"seller_first_name"`
	SellerLastName    *string  `json:"seller_last_name" db:"seller_last_name"`
	SellerPhone       *string  `json:"seller_phone" db:"seller_phone"`
	SellerEmail       *string  `json:"seller_email" db:"seller_email"`
	SellerRatingScore *float64 `json:"seller_rating_score" db:"seller_rating_score"`
	SellerRatingCount *int     `json:"seller_rating_count" db:"seller_rating_count"`
}

// UserListing links a subscribed user to a stored listing. Created once
// per (user, listing) pair, never updated.
type UserListing struct {
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ListingID uuid.UUID `json:"prospection_id" db:"prospection_id"`
}

// Image archival status
const (
	ImageStatusPending  = "pending"
	ImageStatusUploaded = "uploaded"
	ImageStatusFailed   = "failed"
)

// ListingImage is one listing photo queued for archival to object storage.
type ListingImage struct {
	ID        int64     `json:"id" db:"id"`
	ListingID uuid.UUID `json:"listing_id" db:"listing_id"`
	URL       string    `json:"url" db:"url"`
	Position  int       `json:"position" db:"position"`
	Status    string    `json:"status" db:"status"`
	S3Key     *string   `json:"s3_key" db:"s3_key"`
	Attempts  int       `json:"attempts" db:"attempts"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
