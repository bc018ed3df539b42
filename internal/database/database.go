package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"apartmentiq/server/internal/geocoding"
	"apartmentiq/server/internal/models"
)

// Database is the read/write storage layer for listings, preferences and
// persisted prediction snapshots. The scoring core never touches it; it only
// materializes records for the core and persists what the core returns.
type Database struct {
	db *sql.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) GetDB() *sql.DB {
	return d.db
}

const candidateSelect = `
        SELECT
            u.id, u.property_id, COALESCE(p.name, ''), u.unit_number,
            u.bedrooms, u.bathrooms, u.square_feet, u.current_price,
            u.effective_rent, u.floor_number, u.is_available, u.available_date,
            u.concessions, COALESCE(u.special_offers, ''), u.unit_amenities,
            u.days_on_market, u.first_seen, u.last_seen,
            p.id, p.name, p.address, p.city, p.state, p.zip_code,
            p.latitude, p.longitude, p.year_built, p.total_units, p.floors,
            p.walk_score, p.transit_score, p.bike_score, p.rating,
            COALESCE(p.review_count, 0), p.amenities
        FROM units u
        JOIN properties p ON p.id = u.property_id
        WHERE u.is_available = 1 AND p.is_active = 1
    `

// GetCandidates loads available units with their property snapshot and the
// five most recent price history entries, applying the optional preference
// filters. A nil preference record loads everything up to the cap.
func (d *Database) GetCandidates(prefs *models.UserPreference, cap int) ([]models.Candidate, error) {
	query := candidateSelect
	var args []interface{}

	if prefs != nil {
		if prefs.MinPrice != nil {
			query += " AND u.current_price >= ?"
			args = append(args, *prefs.MinPrice)
		}
		if prefs.MaxPrice != nil {
			query += " AND u.current_price <= ?"
			args = append(args, *prefs.MaxPrice)
		}
		if prefs.MinBedrooms != nil {
			query += " AND u.bedrooms >= ?"
			args = append(args, *prefs.MinBedrooms)
		}
		if prefs.MaxBedrooms != nil {
			query += " AND u.bedrooms <= ?"
			args = append(args, *prefs.MaxBedrooms)
		}
		if prefs.MinSquareFeet != nil {
			query += " AND u.square_feet >= ?"
			args = append(args, *prefs.MinSquareFeet)
		}
		if prefs.MaxSquareFeet != nil {
			query += " AND u.square_feet <= ?"
			args = append(args, *prefs.MaxSquareFeet)
		}
		if len(prefs.PreferredCities) > 0 {
			placeholders := strings.TrimSuffix(strings.Repeat("?,", len(prefs.PreferredCities)), ",")
			query += fmt.Sprintf(" AND LOWER(p.city) IN (%s)", placeholders)
			for _, city := range prefs.PreferredCities {
				args = append(args, strings.ToLower(city))
			}
		}
	}

	if cap > 0 {
		query += " LIMIT ?"
		args = append(args, cap)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate units: %w", err)
	}
	defer rows.Close()

	var candidates []models.Candidate
	for rows.Next() {
		cand, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, cand)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range candidates {
		history, err := d.GetPriceHistory(candidates[i].Unit.ID, 5)
		if err != nil {
			return nil, err
		}
		candidates[i].History = history
	}

	return candidates, nil
}

// GetCandidate loads a single unit by id with its property and history.
// Returns sql.ErrNoRows when the unit is missing or not available.
func (d *Database) GetCandidate(unitID string) (*models.Candidate, error) {
	rows, err := d.db.Query(candidateSelect+" AND u.id = ?", unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unit: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}

	cand, err := scanCandidate(rows)
	if err != nil {
		return nil, err
	}

	history, err := d.GetPriceHistory(unitID, 5)
	if err != nil {
		return nil, err
	}
	cand.History = history
	return &cand, nil
}

func scanCandidate(rows *sql.Rows) (models.Candidate, error) {
	var (
		unit models.Unit
		prop models.Property

		sqFt, floorNum, yearBuilt, totalUnits, floors       sql.NullInt64
		walkScore, transitScore, bikeScore                  sql.NullInt64
		effectiveRent, rating, latitude, longitude          sql.NullFloat64
		availableDate, firstSeen, lastSeen                  sql.NullString
		concessionsJSON, unitAmenitiesJSON, amenitiesJSON   sql.NullString
		propAddress, propCity, propState, propZip, propName sql.NullString
	)

	err := rows.Scan(
		&unit.ID, &unit.PropertyID, &unit.PropertyName, &unit.UnitNumber,
		&unit.Bedrooms, &unit.Bathrooms, &sqFt, &unit.CurrentPrice,
		&effectiveRent, &floorNum, &unit.IsAvailable, &availableDate,
		&concessionsJSON, &unit.SpecialOffers, &unitAmenitiesJSON,
		&unit.DaysOnMarket, &firstSeen, &lastSeen,
		&prop.ID, &propName, &propAddress, &propCity, &propState, &propZip,
		&latitude, &longitude, &yearBuilt, &totalUnits, &floors,
		&walkScore, &transitScore, &bikeScore, &rating,
		&prop.ReviewCount, &amenitiesJSON,
	)
	if err != nil {
		return models.Candidate{}, fmt.Errorf("failed to scan candidate row: %w", err)
	}

	if sqFt.Valid {
		v := int(sqFt.Int64)
		unit.SquareFeet = &v
	}
	if effectiveRent.Valid {
		unit.EffectiveRent = &effectiveRent.Float64
	}
	if floorNum.Valid {
		v := int(floorNum.Int64)
		unit.FloorNumber = &v
	}
	unit.AvailableDate = parseNullDate(availableDate)
	unit.FirstSeen = parseNullDate(firstSeen)
	unit.LastSeen = parseNullDate(lastSeen)
	unit.Concessions = parseConcessions(concessionsJSON)
	unit.UnitAmenities = parseStringList(unitAmenitiesJSON)

	prop.Name = propName.String
	prop.Address = propAddress.String
	prop.City = propCity.String
	prop.State = propState.String
	prop.ZipCode = propZip.String
	prop.IsActive = true
	if latitude.Valid {
		prop.Latitude = &latitude.Float64
	}
	if longitude.Valid {
		prop.Longitude = &longitude.Float64
	}
	if yearBuilt.Valid {
		v := int(yearBuilt.Int64)
		prop.YearBuilt = &v
	}
	if totalUnits.Valid {
		v := int(totalUnits.Int64)
		prop.TotalUnits = &v
	}
	if floors.Valid {
		v := int(floors.Int64)
		prop.Floors = &v
	}
	if walkScore.Valid {
		v := int(walkScore.Int64)
		prop.WalkScore = &v
	}
	if transitScore.Valid {
		v := int(transitScore.Int64)
		prop.TransitScore = &v
	}
	if bikeScore.Valid {
		v := int(bikeScore.Int64)
		prop.BikeScore = &v
	}
	if rating.Valid {
		prop.Rating = &rating.Float64
	}
	prop.Amenities = parseStringList(amenitiesJSON)

	return models.Candidate{Unit: &unit, Property: &prop}, nil
}

// GetPriceHistory returns up to limit entries for a unit, newest first.
func (d *Database) GetPriceHistory(unitID string, limit int) ([]models.PriceHistoryEntry, error) {
	rows, err := d.db.Query(`
        SELECT unit_id, price, recorded_at
        FROM price_history
        WHERE unit_id = ?
        ORDER BY recorded_at DESC
        LIMIT ?
    `, unitID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var history []models.PriceHistoryEntry
	for rows.Next() {
		var entry models.PriceHistoryEntry
		var recordedAt string
		if err := rows.Scan(&entry.UnitID, &entry.Price, &recordedAt); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, recordedAt); err == nil {
			entry.RecordedAt = t
		}
		history = append(history, entry)
	}
	return history, rows.Err()
}

// RecordPrice appends a price observation for a unit.
func (d *Database) RecordPrice(unitID string, price float64, at time.Time) error {
	_, err := d.db.Exec(`
        INSERT INTO price_history (unit_id, price, recorded_at)
        VALUES (?, ?, ?)
    `, unitID, price, at.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record price: %w", err)
	}
	return nil
}

// GetPreferences loads the stored preference record for a user, or nil when
// none exists.
func (d *Database) GetPreferences(userID string) (*models.UserPreference, error) {
	var raw string
	err := d.db.QueryRow(`
        SELECT preferences FROM user_preferences WHERE user_id = ?
    `, userID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query preferences: %w", err)
	}

	var prefs models.UserPreference
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		return nil, fmt.Errorf("failed to parse stored preferences: %w", err)
	}
	prefs.UserID = userID
	return &prefs, nil
}

// SavePreferences upserts a user's preference record.
func (d *Database) SavePreferences(prefs *models.UserPreference) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	_, err = d.db.Exec(`
        INSERT INTO user_preferences (user_id, preferences, updated_at)
        VALUES (?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(user_id) DO UPDATE SET
            preferences = excluded.preferences,
            updated_at = excluded.updated_at
    `, prefs.UserID, string(raw))
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// SavePredictions persists a snapshot of the top recommendations from one
// scoring pass so later passes can be compared against it.
func (d *Database) SavePredictions(userID string, recs []models.Recommendation, keep int) error {
	if keep > 0 && len(recs) > keep {
		recs = recs[:keep]
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
        INSERT INTO predictions
        (unit_id, user_id, total_score, negotiation_score, value_score,
         timing_score, quality_score, preference_score, explanation, predicted_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Format(time.RFC3339)
	for _, rec := range recs {
		explanation, err := json.Marshal(map[string]interface{}{
			"insights": rec.Insights,
			"reasons":  rec.Reasons,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal explanation: %w", err)
		}
		_, err = stmt.Exec(
			rec.Intelligence.UnitID, userID, rec.TotalScore,
			rec.Intelligence.NegotiationPotential, rec.ValueScore,
			rec.TimingScore, rec.QualityScore, rec.PreferenceScore,
			string(explanation), now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert prediction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit predictions: %w", err)
	}
	return nil
}

// RefreshDaysOnMarket recomputes every available unit's days_on_market from
// its first_seen date. Run by the scheduler before a rescoring pass.
func (d *Database) RefreshDaysOnMarket() (int64, error) {
	res, err := d.db.Exec(`
        UPDATE units
        SET days_on_market = CAST(julianday('now') - julianday(first_seen) AS INTEGER)
        WHERE is_available = 1 AND first_seen IS NOT NULL
    `)
	if err != nil {
		return 0, fmt.Errorf("failed to refresh days on market: %w", err)
	}
	return res.RowsAffected()
}

// FillMissingCoordinates geocodes properties that have an address but no
// coordinates, marking each attempt so failures are not retried every run.
func (d *Database) FillMissingCoordinates(geocoder *geocoding.Geocoder) (int, error) {
	rows, err := d.db.Query(`
        SELECT id, address, city, state, zip_code
        FROM properties
        WHERE (latitude IS NULL OR longitude IS NULL)
        AND geocoding_attempted = 0
        AND address IS NOT NULL AND city IS NOT NULL
    `)
	if err != nil {
		return 0, fmt.Errorf("failed to query ungeocoded properties: %w", err)
	}
	defer rows.Close()

	type target struct {
		id, address, city, state, zip string
	}
	var targets []target
	for rows.Next() {
		var t target
		if err := rows.Scan(&t.id, &t.address, &t.city, &t.state, &t.zip); err != nil {
			return 0, err
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	updated := 0
	for _, t := range targets {
		lat, lng, err := geocoder.GeocodeAddress(t.address, t.city, t.state, t.zip)
		if err != nil {
			if _, markErr := d.db.Exec(
				`UPDATE properties SET geocoding_attempted = 1 WHERE id = ?`, t.id); markErr != nil {
				return updated, markErr
			}
			continue
		}
		if _, err := d.db.Exec(`
            UPDATE properties
            SET latitude = ?, longitude = ?, geocoding_attempted = 1
            WHERE id = ?
        `, lat, lng, t.id); err != nil {
			return updated, fmt.Errorf("failed to store coordinates: %w", err)
		}
		updated++
	}
	return updated, nil
}

func parseNullDate(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s.String); err == nil {
			return &t
		}
	}
	return nil
}

// parseConcessions accepts either a JSON array of concession objects or
// plain listing text; plain text becomes a single raw concession.
func parseConcessions(s sql.NullString) []models.Concession {
	if !s.Valid || s.String == "" {
		return nil
	}
	var concessions []models.Concession
	if err := json.Unmarshal([]byte(s.String), &concessions); err == nil {
		return concessions
	}
	return []models.Concession{{Raw: s.String}}
}

func parseStringList(s sql.NullString) []string {
	if !s.Valid || s.String == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(s.String), &list); err == nil {
		return list
	}
	parts := strings.Split(s.String, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
