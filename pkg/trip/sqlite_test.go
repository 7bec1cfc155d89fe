package trip

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "trips.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveTripAssignsIDAndTimestamps(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	trip := &Trip{Destination: "Tokyo", Days: 5}
	require.NoError(t, store.SaveTrip(ctx, trip))

	assert.NotEmpty(t, trip.ID)
	assert.False(t, trip.CreatedAt.IsZero())
	assert.False(t, trip.UpdatedAt.IsZero())
}

func TestSaveAndLoadTripRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	trip := &Trip{
		Destination: "Kyoto",
		Days:        4,
		Budget:      2500,
		Interests:   []string{"culture", "food"},
		Itinerary:   "Day 1: Fushimi Inari...",
	}
	require.NoError(t, store.SaveTrip(ctx, trip))

	loaded, err := store.LoadTrip(ctx, trip.ID)
	require.NoError(t, err)

	assert.Equal(t, trip.Destination, loaded.Destination)
	assert.Equal(t, trip.Days, loaded.Days)
	assert.Equal(t, trip.Budget, loaded.Budget)
	assert.Equal(t, trip.Interests, loaded.Interests)
	assert.Equal(t, trip.Itinerary, loaded.Itinerary)
}

func TestSaveTripUpdatesExisting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	trip := &Trip{Destination: "Paris", Days: 3}
	require.NoError(t, store.SaveTrip(ctx, trip))

	trip.Days = 7
	trip.Itinerary = "revised"
	require.NoError(t, store.SaveTrip(ctx, trip))

	trips, err := store.LoadTrips(ctx)
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, 7, trips[0].Days)
	assert.Equal(t, "revised", trips[0].Itinerary)
}

func TestLoadTripsOrderedByUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &Trip{Destination: "Rome", Days: 2}
	second := &Trip{Destination: "London", Days: 3}
	require.NoError(t, store.SaveTrip(ctx, first))
	require.NoError(t, store.SaveTrip(ctx, second))

	// Touch the first trip so it becomes the most recently updated.
	first.Itinerary = "touched"
	require.NoError(t, store.SaveTrip(ctx, first))

	trips, err := store.LoadTrips(ctx)
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, "Rome", trips[0].Destination)
}

func TestLoadTripNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.LoadTrip(context.Background(), "missing-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	trip := &Trip{Destination: "Sydney", Days: 6}
	require.NoError(t, store.SaveTrip(ctx, trip))
	require.NoError(t, store.DeleteTrip(ctx, trip.ID))

	_, err := store.LoadTrip(ctx, trip.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.DeleteTrip(ctx, trip.ID), ErrNotFound)
}

func TestPreferencesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	prefs := Preferences{
		"budget":    float64(2000),
		"interests": []interface{}{"food", "history"},
		"language":  "zh",
	}
	require.NoError(t, store.SavePreferences(ctx, prefs))

	loaded, err := store.LoadPreferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, prefs, loaded)
}

func TestPreferencesUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SavePreferences(ctx, Preferences{"budget": float64(1000)}))
	require.NoError(t, store.SavePreferences(ctx, Preferences{"budget": float64(3000)}))

	loaded, err := store.LoadPreferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(3000), loaded["budget"])
}
