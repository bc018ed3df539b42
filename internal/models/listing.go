package models

import (
	"strings"
	"time"
)

// Property is an immutable snapshot of a building for one scoring pass.
type Property struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	ZipCode     string    `json:"zip_code"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	YearBuilt   *int      `json:"year_built"`
	TotalUnits  *int      `json:"total_units"`
	Floors      *int      `json:"floors"`
	WalkScore   *int      `json:"walk_score"`
	TransitScore *int     `json:"transit_score"`
	BikeScore   *int      `json:"bike_score"`
	Rating      *float64  `json:"rating"`
	ReviewCount int       `json:"review_count"`
	Amenities   []string  `json:"amenities"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Concession is one landlord incentive attached to a unit. Kind is a loose
// label from the listing source, Raw the original listing text; the parser
// works off the text, not the label.
type Concession struct {
	Kind  string  `json:"kind,omitempty"`
	Value float64 `json:"value,omitempty"`
	Raw   string  `json:"raw,omitempty"`
}

// Unit is a rentable unit within a property.
type Unit struct {
	ID            string       `json:"id"`
	PropertyID    string       `json:"property_id"`
	PropertyName  string       `json:"property_name"`
	UnitNumber    string       `json:"unit_number"`
	Bedrooms      int          `json:"bedrooms"`
	Bathrooms     float64      `json:"bathrooms"`
	SquareFeet    *int         `json:"square_feet"`
	CurrentPrice  float64      `json:"current_price"`
	EffectiveRent *float64     `json:"effective_rent"`
	FloorNumber   *int         `json:"floor_number"`
	IsAvailable   bool         `json:"is_available"`
	AvailableDate *time.Time   `json:"available_date"`
	Concessions   []Concession `json:"concessions"`
	SpecialOffers string       `json:"special_offers"`
	UnitAmenities []string     `json:"unit_amenities"`
	DaysOnMarket  int          `json:"days_on_market"`
	FirstSeen     *time.Time   `json:"first_seen"`
	LastSeen      *time.Time   `json:"last_seen"`
}

// ConcessionText joins the structured concessions and the free-text offer
// field into the single lowercase string the parsers pattern-match against.
func (u *Unit) ConcessionText() string {
	parts := make([]string, 0, len(u.Concessions)+1)
	for _, c := range u.Concessions {
		if c.Raw != "" {
			parts = append(parts, c.Raw)
		} else if c.Kind != "" {
			parts = append(parts, c.Kind)
		}
	}
	if u.SpecialOffers != "" {
		parts = append(parts, u.SpecialOffers)
	}
	return strings.ToLower(strings.TrimSpace(strings.Join(parts, " ")))
}

// HasConcessions reports whether the unit advertises any incentive at all.
func (u *Unit) HasConcessions() bool {
	return u.ConcessionText() != ""
}

// PriceHistoryEntry is one recorded asking price for a unit. Sequences are
// consumed most-recent-first.
type PriceHistoryEntry struct {
	UnitID     string    `json:"unit_id"`
	Price      float64   `json:"price"`
	RecordedAt time.Time `json:"recorded_at"`
}

// UserPreference holds a renter's search preferences. Every field is
// optional; an absent field never constrains filtering or scoring.
type UserPreference struct {
	UserID            string     `json:"user_id"`
	MinPrice          *float64   `json:"min_price"`
	MaxPrice          *float64   `json:"max_price"`
	MinBedrooms       *int       `json:"min_bedrooms"`
	MaxBedrooms       *int       `json:"max_bedrooms"`
	MinBathrooms      *float64   `json:"min_bathrooms"`
	MinSquareFeet     *int       `json:"min_square_feet"`
	MaxSquareFeet     *int       `json:"max_square_feet"`
	PreferredCities   []string   `json:"preferred_cities"`
	RequiredAmenities []string   `json:"required_amenities"`
	MaxCommuteMinutes *int       `json:"max_commute_minutes"`
	CommuteLatitude   *float64   `json:"commute_latitude"`
	CommuteLongitude  *float64   `json:"commute_longitude"`
	MoveInDate        *time.Time `json:"move_in_date"`
	PetFriendly       *bool      `json:"pet_friendly"`
	Furnished         *bool      `json:"furnished"`
	MaxBudget         *float64   `json:"max_budget"`
}

// Candidate bundles the records a scoring pass needs for one unit. History
// is ordered most-recent-first.
type Candidate struct {
	Unit     *Unit               `json:"unit"`
	Property *Property           `json:"property"`
	History  []PriceHistoryEntry `json:"price_history"`
}

// ListingSnapshot is the flat intake record pushed onto the ingest queue by
// scrapers and importers, before it is normalized into Property/Unit rows.
type ListingSnapshot struct {
	UnitID        string     `json:"unit_id" gorm:"column:id;primaryKey"`
	PropertyID    string     `json:"property_id" gorm:"column:property_id"`
	PropertyName  string     `json:"property_name" gorm:"column:property_name"`
	UnitNumber    string     `json:"unit_number" gorm:"column:unit_number"`
	Bedrooms      int        `json:"bedrooms" gorm:"column:bedrooms"`
	Bathrooms     float64    `json:"bathrooms" gorm:"column:bathrooms"`
	SquareFeet    *int       `json:"square_feet" gorm:"column:square_feet"`
	CurrentPrice  float64    `json:"current_price" gorm:"column:current_price"`
	Concessions   string     `json:"concessions" gorm:"column:concessions"`
	SpecialOffers string     `json:"special_offers" gorm:"column:special_offers"`
	IsAvailable   bool       `json:"is_available" gorm:"column:is_available"`
	AvailableDate *time.Time `json:"available_date" gorm:"column:available_date"`
	FirstSeen     *time.Time `json:"first_seen" gorm:"column:first_seen"`
	LastSeen      *time.Time `json:"last_seen" gorm:"column:last_seen"`
	ScrapedAt     time.Time  `json:"scraped_at" gorm:"column:scraped_at"`
}

// TableName maps listing snapshots onto the units table for upserts.
func (ListingSnapshot) TableName() string { return "units" }
