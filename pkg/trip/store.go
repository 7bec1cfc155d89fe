// Package trip persists finished trips and user preferences.
package trip

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a trip id does not exist.
var ErrNotFound = errors.New("trip not found")

// Trip is one saved itinerary.
type Trip struct {
	ID          string    `json:"id"`
	Destination string    `json:"destination"`
	Days        int       `json:"days"`
	Budget      int       `json:"budget,omitempty"`
	Interests   []string  `json:"interests,omitempty"`
	Itinerary   string    `json:"itinerary"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Preferences is the open key/value bag of stored user preferences.
type Preferences map[string]interface{}

// Store is the persistence boundary the orchestrator consumes.
type Store interface {
	SaveTrip(ctx context.Context, t *Trip) error

	LoadTrips(ctx context.Context) ([]*Trip, error)

	LoadTrip(ctx context.Context, id string) (*Trip, error)

	DeleteTrip(ctx context.Context, id string) error

	SavePreferences(ctx context.Context, prefs Preferences) error

	LoadPreferences(ctx context.Context) (Preferences, error)

	Close() error
}
