package database

import "fmt"

// RunMigrations creates the schema when missing and patches older databases
// up to the current shape.
func (d *Database) RunMigrations() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS properties (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			address TEXT,
			city TEXT,
			state TEXT,
			zip_code TEXT,
			latitude REAL,
			longitude REAL,
			year_built INTEGER,
			total_units INTEGER,
			floors INTEGER,
			walk_score INTEGER,
			transit_score INTEGER,
			bike_score INTEGER,
			rating REAL,
			review_count INTEGER DEFAULT 0,
			amenities TEXT,
			is_active BOOLEAN DEFAULT 1,
			geocoding_attempted BOOLEAN DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS units (
			id TEXT PRIMARY KEY,
			property_id TEXT NOT NULL,
			property_name TEXT,
			unit_number TEXT,
			bedrooms INTEGER DEFAULT 0,
			bathrooms REAL DEFAULT 1,
			square_feet INTEGER,
			current_price REAL,
			effective_rent REAL,
			floor_number INTEGER,
			is_available BOOLEAN DEFAULT 1,
			available_date TIMESTAMP,
			concessions TEXT,
			special_offers TEXT,
			unit_amenities TEXT,
			days_on_market INTEGER DEFAULT 0,
			first_seen TIMESTAMP,
			last_seen TIMESTAMP,
			scraped_at TIMESTAMP,
			FOREIGN KEY (property_id) REFERENCES properties(id)
		);`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			unit_id TEXT NOT NULL,
			price REAL NOT NULL,
			recorded_at TIMESTAMP NOT NULL,
			FOREIGN KEY (unit_id) REFERENCES units(id)
		);`,
		`CREATE TABLE IF NOT EXISTS user_preferences (
			user_id TEXT PRIMARY KEY,
			preferences TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS predictions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			unit_id TEXT NOT NULL,
			user_id TEXT,
			total_score REAL,
			negotiation_score INTEGER,
			value_score REAL,
			timing_score REAL,
			quality_score REAL,
			preference_score REAL,
			explanation TEXT,
			predicted_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_units_available ON units(is_available, current_price);`,
		`CREATE INDEX IF NOT EXISTS idx_price_history_unit ON price_history(unit_id, recorded_at);`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_unit ON predictions(unit_id, predicted_at);`,
		`CREATE INDEX IF NOT EXISTS idx_properties_coordinates ON properties(latitude, longitude);`,
	}

	for _, stmt := range statements {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
