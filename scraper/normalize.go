package scraper

import (
	"strconv"
	"strings"

	"github.com/Rovis91/lbc/models"
)

// Raw Leboncoin attribute labels mapped to closed enums. Unmapped labels
// fall back to the documented default for each field.

var propertyTypeLabels = map[string]models.PropertyType{
	"Appartement":      models.PropertyTypeApartment,
	"Maison":           models.PropertyTypeHouse,
	"Terrain":          models.PropertyTypeLand,
	"Local commercial": models.PropertyTypeCommercial,
	"Bureau":           models.PropertyTypeCommercial,
}

var conditionLabels = map[string]models.PropertyCondition{
	"Neuf":         models.ConditionNew,
	"Bon état":     models.ConditionGood,
	"À rénover":    models.ConditionToBeRenovated,
	"À restaurer":  models.ConditionToBeRestored,
	"À démolir":    models.ConditionToBeDemolished,
}

var heatingLabels = map[string]models.HeatingType{
	"Électrique":      models.HeatingElectric,
	"Gaz":             models.HeatingGas,
	"Fioul":           models.HeatingOil,
	"Bois":            models.HeatingWood,
	"Solaire":         models.HeatingSolar,
	"Pompe à chaleur": models.HeatingHeatPump,
}

// NormalizePropertyType maps a raw property type label, defaulting to "other".
func NormalizePropertyType(label string) models.PropertyType {
	if t, ok := propertyTypeLabels[label]; ok {
		return t
	}
	return models.PropertyTypeOther
}

// NormalizeCondition maps a raw condition label, defaulting to "good".
func NormalizeCondition(label string) models.PropertyCondition {
	if c, ok := conditionLabels[label]; ok {
		return c
	}
	return models.ConditionGood
}

// NormalizeEnergyRating returns the upper-cased DPE class A-G, or nil for
// anything else ("V" for vierge, empty, garbage).
func NormalizeEnergyRating(label string) *models.EnergyRating {
	r := models.EnergyRating(strings.ToUpper(strings.TrimSpace(label)))
	if r.Valid() {
		return &r
	}
	return nil
}

// NormalizeHeatingType maps a raw heating label, defaulting to "other".
func NormalizeHeatingType(label string) models.HeatingType {
	if h, ok := heatingLabels[label]; ok {
		return h
	}
	return models.HeatingOther
}

// NormalizeCategory maps a raw category value, defaulting to sale.
func NormalizeCategory(raw string) models.Category {
	if c := models.Category(raw); c.Valid() {
		return c
	}
	return models.CategorySale
}

// parseInt coerces a raw attribute value to an int, nil when absent or
// unparseable. Never fails.
func parseInt(value string) *int {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		// Some attributes come through as "75.0"
		f, ferr := strconv.ParseFloat(value, 64)
		if ferr != nil {
			return nil
		}
		i = int(f)
	}
	return &i
}

// parseFloat coerces a raw attribute value to a float64, nil when absent
// or unparseable.
func parseFloat(value string) *float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &f
}

func boolPtr(v bool) *bool { return &v }
