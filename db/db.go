// Package db keeps an optional run history in PostgreSQL. The watcher
// works without it; the history only exists when connection settings
// are present in the environment.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// Configured reports whether connection settings are present in the
// environment. When false, NewDB would fail and callers should skip
// run-history recording entirely.
func Configured() bool {
	return os.Getenv("DATABASE_URL") != "" || os.Getenv("DB_HOST") != ""
}

// NewDB creates a new database connection
func NewDB() (*DB, error) {
	// Get connection string from environment variable
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		// Try to build from individual components
		host := getEnvOrDefault("DB_HOST", "localhost")
		port := getEnvOrDefault("DB_PORT", "5432")
		user := getEnvOrDefault("DB_USER", "pokeca_watcher")
		password := getEnvOrDefault("DB_PASSWORD", "")
		dbname := getEnvOrDefault("DB_NAME", "pokeca_watcher")
		sslmode := getEnvOrDefault("DB_SSLMODE", "disable")

		connStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn}

	// Initialize schema
	if err := db.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables if they don't exist
func (db *DB) initSchema() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS cycles (
			id SERIAL PRIMARY KEY,
			started_at TIMESTAMP NOT NULL,
			lottery_count INTEGER NOT NULL DEFAULT 0,
			reservation_count INTEGER NOT NULL DEFAULT 0,
			campaign_count INTEGER NOT NULL DEFAULT 0,
			changed_sources INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create cycles table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS source_runs (
			id SERIAL PRIMARY KEY,
			cycle_id INTEGER NOT NULL REFERENCES cycles(id),
			source_id VARCHAR(100) NOT NULL,
			record_count INTEGER NOT NULL DEFAULT 0,
			has_changes BOOLEAN NOT NULL DEFAULT FALSE,
			error TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create source_runs table: %w", err)
	}

	return nil
}

// RecordCycle inserts a cycle row and returns its ID.
func (db *DB) RecordCycle(startedAt time.Time, lotteries, reservations, campaigns, changedSources int) (int64, error) {
	var id int64
	err := db.conn.QueryRow(`
		INSERT INTO cycles (started_at, lottery_count, reservation_count, campaign_count, changed_sources)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, startedAt, lotteries, reservations, campaigns, changedSources).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to record cycle: %w", err)
	}
	return id, nil
}

// RecordSourceRun inserts one per-source row under a cycle.
func (db *DB) RecordSourceRun(cycleID int64, sourceID string, recordCount int, hasChanges bool, errText string) error {
	var errVal sql.NullString
	if errText != "" {
		errVal = sql.NullString{String: errText, Valid: true}
	}

	_, err := db.conn.Exec(`
		INSERT INTO source_runs (cycle_id, source_id, record_count, has_changes, error)
		VALUES ($1, $2, $3, $4, $5)
	`, cycleID, sourceID, recordCount, hasChanges, errVal)
	if err != nil {
		return fmt.Errorf("failed to record source run: %w", err)
	}
	return nil
}
