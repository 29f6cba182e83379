package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hray3182/planbot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_MissingFilesLoadEmpty(t *testing.T) {
	f, err := NewFile(filepath.Join(t.TempDir(), "nested", "data"))
	require.NoError(t, err)

	plans, err := f.LoadPlans(context.Background())
	require.NoError(t, err)
	assert.Empty(t, plans)

	zones, err := f.LoadTimezones(context.Background())
	require.NoError(t, err)
	assert.Empty(t, zones)
	assert.NotNil(t, zones)
}

func TestFile_PlansRoundTrip(t *testing.T) {
	ctx := context.Background()
	f, err := NewFile(t.TempDir())
	require.NoError(t, err)

	end := time.Date(2027, 1, 17, 9, 0, 0, 0, time.UTC)
	in := []*models.Plan{
		{
			ID:                "a",
			UserID:            1,
			OccursAt:          time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
			Description:       "standup",
			NotifyLeadMinutes: 10,
			Recurrence:        models.RecurrenceDaily,
			RecurrenceEndAt:   &end,
		},
		{
			ID:                 "b",
			UserID:             1,
			OccursAt:           time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
			Description:        "standup",
			NotifyLeadMinutes:  10,
			Notified:           true,
			Recurrence:         models.RecurrenceDaily,
			RecurrenceEndAt:    &end,
			ParentRecurrenceID: "a",
		},
	}
	require.NoError(t, f.SavePlans(ctx, in))

	out, err := f.LoadPlans(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, in[0].OccursAt, out[0].OccursAt)
	assert.Equal(t, *in[0].RecurrenceEndAt, *out[0].RecurrenceEndAt)
	assert.Equal(t, "a", out[1].ParentRecurrenceID)
	assert.True(t, out[1].Notified)
}

func TestFile_CorruptPlansBackedUp(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(dir)
	require.NoError(t, err)
	f.now = func() time.Time { return time.Date(2026, 10, 17, 12, 30, 45, 0, time.UTC) }

	require.NoError(t, os.WriteFile(filepath.Join(dir, plansFile), []byte("{not json"), 0o644))

	plans, err := f.LoadPlans(context.Background())
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.Nil(t, plans)

	_, err = os.Stat(filepath.Join(dir, plansFile))
	assert.True(t, os.IsNotExist(err))

	backup, err := os.ReadFile(filepath.Join(dir, "plans.json.corrupt-20261017-123045"))
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(backup))

	plans, err = f.LoadPlans(context.Background())
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestFile_TimezonesRoundTrip(t *testing.T) {
	ctx := context.Background()
	f, err := NewFile(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, f.SaveTimezones(ctx, map[int64]string{7: "Asia/Yekaterinburg", 8: "UTC+03:00"}))

	zones, err := f.LoadTimezones(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{7: "Asia/Yekaterinburg", 8: "UTC+03:00"}, zones)
}

func TestFile_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(dir)
	require.NoError(t, err)

	require.NoError(t, f.SavePlans(context.Background(), nil))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, plansFile, entries[0].Name())
}
