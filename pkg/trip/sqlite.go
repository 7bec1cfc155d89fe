package trip

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS trips (
	id          TEXT PRIMARY KEY,
	destination TEXT NOT NULL,
	days        INTEGER NOT NULL,
	budget      INTEGER NOT NULL DEFAULT 0,
	interests   TEXT NOT NULL DEFAULT '[]',
	itinerary   TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS preferences (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trip database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate trip database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveTrip(ctx context.Context, t *Trip) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	interests, err := json.Marshal(t.Interests)
	if err != nil {
		return fmt.Errorf("failed to encode interests: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trips (id, destination, days, budget, interests, itinerary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			destination = excluded.destination,
			days        = excluded.days,
			budget      = excluded.budget,
			interests   = excluded.interests,
			itinerary   = excluded.itinerary,
			updated_at  = excluded.updated_at`,
		t.ID, t.Destination, t.Days, t.Budget, string(interests), t.Itinerary,
		t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save trip: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadTrips(ctx context.Context) ([]*Trip, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, destination, days, budget, interests, itinerary, created_at, updated_at
		FROM trips ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to load trips: %w", err)
	}
	defer rows.Close()

	var trips []*Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

func (s *SQLiteStore) LoadTrip(ctx context.Context, id string) (*Trip, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, destination, days, budget, interests, itinerary, created_at, updated_at
		FROM trips WHERE id = ?`, id)

	t, err := scanTrip(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return t, err
}

func (s *SQLiteStore) DeleteTrip(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM trips WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) SavePreferences(ctx context.Context, prefs Preferences) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin preferences transaction: %w", err)
	}
	defer tx.Rollback()

	for key, value := range prefs {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode preference '%s': %w", key, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO preferences (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, string(data)); err != nil {
			return fmt.Errorf("failed to save preference '%s': %w", key, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadPreferences(ctx context.Context) (Preferences, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM preferences`)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	defer rows.Close()

	prefs := make(Preferences)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		var value interface{}
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			// A corrupt entry should not hide the rest.
			continue
		}
		prefs[key] = value
	}
	return prefs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrip(row rowScanner) (*Trip, error) {
	var t Trip
	var interests string
	if err := row.Scan(&t.ID, &t.Destination, &t.Days, &t.Budget, &interests,
		&t.Itinerary, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(interests), &t.Interests); err != nil {
		return nil, fmt.Errorf("failed to decode interests: %w", err)
	}
	return &t, nil
}
