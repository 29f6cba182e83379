package timezone

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore map[int64]string

func (m mapStore) Get(userID int64) (string, bool) {
	z, ok := m[userID]
	return z, ok
}

func (m mapStore) Set(_ context.Context, userID int64, zone string) {
	m[userID] = zone
}

func TestLoad(t *testing.T) {
	tests := []struct {
		in        string
		canonical string
		offset    int
	}{
		{"Europe/Moscow", "Europe/Moscow", 3 * 3600},
		{"Asia/Yekaterinburg", "Asia/Yekaterinburg", 5 * 3600},
		{"UTC", "UTC", 0},
		{"utc+5", "UTC+05:00", 5 * 3600},
		{"UTC-03:30", "UTC-03:30", -(3*3600 + 30*60)},
		{"GMT+0530", "UTC+05:30", 5*3600 + 30*60},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			loc, name, err := Load(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.canonical, name)
			_, offset := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC).In(loc).Zone()
			assert.Equal(t, tt.offset, offset)
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	for _, in := range []string{"", "Local", "Mars/Olympus", "UTC+15", "UTC+03:75", "hello"} {
		_, _, err := Load(in)
		assert.ErrorIs(t, err, ErrUnknownZone, in)
	}
}

func TestResolver_DefaultAndSet(t *testing.T) {
	store := mapStore{}
	r, err := NewResolver(store, "")
	require.NoError(t, err)

	assert.False(t, r.HasZone(1))
	assert.Equal(t, DefaultZone, r.Zone(1))

	name, err := r.SetZone(context.Background(), 1, " utc+5 ")
	require.NoError(t, err)
	assert.Equal(t, "UTC+05:00", name)
	assert.True(t, r.HasZone(1))
	assert.Equal(t, "UTC+05:00", store[1])

	_, err = r.SetZone(context.Background(), 1, "Nowhere/Land")
	assert.ErrorIs(t, err, ErrUnknownZone)
	assert.Equal(t, "UTC+05:00", store[1])
}

func TestResolver_LocalNow(t *testing.T) {
	store := mapStore{2: "Asia/Yekaterinburg", 3: "Broken/Zone"}
	r, err := NewResolver(store, "Europe/Moscow")
	require.NoError(t, err)

	now := time.Date(2026, 10, 17, 11, 50, 42, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 10, 17, 14, 50, 0, 0, time.UTC), r.LocalNow(1, now))
	assert.Equal(t, time.Date(2026, 10, 17, 16, 50, 0, 0, time.UTC), r.LocalNow(2, now))
	assert.Equal(t, time.Date(2026, 10, 17, 14, 50, 0, 0, time.UTC), r.LocalNow(3, now), "unloadable zone falls back to default")

	// The poller's own zone does not matter.
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	assert.Equal(t, r.LocalNow(2, now), r.LocalNow(2, now.In(ny)))
}

func TestNewResolver_BadDefault(t *testing.T) {
	_, err := NewResolver(mapStore{}, "Nope/Nope")
	assert.ErrorIs(t, err, ErrUnknownZone)
}
