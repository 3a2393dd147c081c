package events

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
)

// PostgresRecorder appends events to the load_events table.
type PostgresRecorder struct {
	db *sql.DB
}

var _ Publisher = &PostgresRecorder{}

// NewPostgresRecorder wraps an open database handle. The recorder closes db on Close.
//
// Parameters:
//   - db: the database handle
//
// Returns:
//   - *PostgresRecorder: the recorder
func NewPostgresRecorder(db *sql.DB) *PostgresRecorder {
	if db == nil {
		panic("events: NewPostgresRecorder requires a non-nil database")
	}
	return &PostgresRecorder{db: db}
}

// OpenPostgresRecorder connects using the standard PG* environment variables and creates the
// table if needed.
//
// Parameters:
//   - ctx: bounds the connection check and schema creation
//
// Returns:
//   - *PostgresRecorder: the recorder
//   - error: error if the database is unreachable or the schema cannot be created
func OpenPostgresRecorder(ctx context.Context) (*PostgresRecorder, error) {
	db, err := sql.Open("postgres", connString())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	r := NewPostgresRecorder(db)
	if err := r.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create load_events table: %w", err)
	}
	return r, nil
}

func connString() string {
	host := getEnv("PGHOST", "127.0.0.1")
	port := getEnv("PGPORT", "5432")
	user := getEnv("PGUSER", "oxy")
	dbname := getEnv("PGDATABASE", "oxy")
	if password := os.Getenv("PGPASSWORD"); password != "" {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host, port, user, password, dbname)
	}
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable", host, port, user, dbname)
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// EnsureSchema creates the load_events table and its index.
//
// Parameters:
//   - ctx: bounds the statement
//
// Returns:
//   - error: error if the statement fails
func (r *PostgresRecorder) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS load_events (
			event_id   BIGSERIAL PRIMARY KEY,
			load_id    UUID NOT NULL,
			attempt_id UUID NOT NULL,
			attempt    INTEGER NOT NULL,
			state      TEXT NOT NULL,
			uri        TEXT NOT NULL,
			error      TEXT,
			ts         TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_load_events_load_id ON load_events(load_id);
	`
	_, err := r.db.ExecContext(ctx, query)
	return err
}

// Publish inserts e.
func (r *PostgresRecorder) Publish(ctx context.Context, e Event) error {
	var errPtr *string
	if e.Error != "" {
		errPtr = &e.Error
	}

	query := `
		INSERT INTO load_events (load_id, attempt_id, attempt, state, uri, error, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.LoadID.String(), e.AttemptID.String(), e.Attempt, string(e.State), e.URI, errPtr, e.Timestamp)
	if err != nil {
		return fmt.Errorf("insert load event: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (r *PostgresRecorder) Close() error {
	return r.db.Close()
}
