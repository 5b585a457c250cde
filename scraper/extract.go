package scraper

import (
	"fmt"
	"time"

	"github.com/Rovis91/lbc/models"
)

const publicationDateLayout = "2006-01-02 15:04:05"

// ExtractListing turns one raw search result item into a normalized
// listing for the given category and city. An ad without an external ID
// or URL is a data-contract violation and returns an error.
func ExtractListing(ad *models.RawAd, category models.Category, cityID int64) (*models.Listing, error) {
	if ad.ID == 0 {
		return nil, fmt.Errorf("extract: ad has no external id")
	}
	if ad.URL == "" {
		return nil, fmt.Errorf("extract: ad %d has no url", ad.ID)
	}

	l := &models.Listing{
		ExternalID:  ad.ID,
		Type:        category,
		Title:       ad.Subject,
		Price:       ad.Price,
		URL:         ad.URL,
		Description: ad.Body,
		Images:      ad.Images,
		CityID:      cityID,
	}
	if l.Images == nil {
		l.Images = []string{}
	}

	if ad.FirstPublicationDate != "" {
		if ts, err := time.Parse(publicationDateLayout, ad.FirstPublicationDate); err == nil {
			l.FirstPublicationDate = &ts
		}
	}

	l.PropertyType = NormalizePropertyType(attrValueLabel(ad, "real_estate_type"))
	l.SurfaceArea = parseInt(attrValue(ad, "square"))
	l.Rooms = parseInt(attrValue(ad, "rooms"))
	l.Bedrooms = parseInt(attrValue(ad, "bedrooms"))
	l.Bathrooms = parseInt(attrValue(ad, "bathrooms"))
	l.FloorNumber = parseInt(attrValue(ad, "floor"))
	l.BuildingYear = parseInt(attrValue(ad, "construction_year"))
	l.PropertyCondition = NormalizeCondition(attrValueLabel(ad, "condition"))
	l.EnergyRating = NormalizeEnergyRating(attrValueLabel(ad, "energy_rating"))
	l.HeatingType = NormalizeHeatingType(attrValueLabel(ad, "heating_type"))

	if category == models.CategoryRental {
		l.Furnished = boolPtr(attrValueLabel(ad, "furnished") == "Meublé")
		l.MonthlyCharges = parseFloat(attrValue(ad, "charges"))
		l.SecurityDeposit = parseFloat(attrValue(ad, "deposit"))
		l.ChargesIncluded = boolPtr(attrValueLabel(ad, "charges_included") == "Charges comprises")
		l.RentExcludingCharges = parseFloat(attrValue(ad, "rent_excluding_charges"))
	}

	l.Elevator = attrValueLabel(ad, "elevator") == "Oui"
	l.ParkingSpaces = parseInt(attrValue(ad, "parking"))
	l.LandPlotSurface = parseFloat(attrValue(ad, "land_plot_surface"))

	return l, nil
}

func attrValue(ad *models.RawAd, key string) string {
	if attr, ok := ad.Attribute(key); ok {
		return attr.Value
	}
	return ""
}

func attrValueLabel(ad *models.RawAd, key string) string {
	if attr, ok := ad.Attribute(key); ok {
		return attr.ValueLabel
	}
	return ""
}
