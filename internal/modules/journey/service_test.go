package journey

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/fieldtrace/core/internal/database"
	"github.com/fieldtrace/core/internal/models"
	"github.com/fieldtrace/core/internal/pkg/apperr"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func ptr(f float64) *float64 { return &f }

func startDTO(lat, lon float64) *StartJourneyDTO {
	return &StartJourneyDTO{
		PlaceRef: "warehouse-7",
		Position: PositionDTO{Latitude: ptr(lat), Longitude: ptr(lon)},
	}
}

func TestStartJourney(t *testing.T) {
	svc := NewService(testDB(t))
	now := time.Now()

	j, err := svc.Start("worker-1", "tenant-1", startDTO(52.1, 4.3), now)
	require.NoError(t, err)
	assert.NotEmpty(t, j.ID)
	assert.True(t, j.Open())
	assert.Equal(t, 52.1, j.StartLatitude)

	// The first sample is written together with the journey.
	count, err := svc.SampleCount(j.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestStartJourneyConflictsWhileOpen(t *testing.T) {
	svc := NewService(testDB(t))

	_, err := svc.Start("worker-1", "tenant-1", startDTO(52.1, 4.3), time.Now())
	require.NoError(t, err)

	_, err = svc.Start("worker-1", "tenant-1", startDTO(52.2, 4.4), time.Now())
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// A different worker is unaffected.
	_, err = svc.Start("worker-2", "tenant-1", startDTO(52.2, 4.4), time.Now())
	assert.NoError(t, err)
}

func TestEndJourneyWithoutOpenIsNotFound(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)

	_, _, err := svc.End("worker-1", models.Position{Latitude: 1, Longitude: 2}, "", time.Now())
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	// And the failed end wrote nothing.
	var locations int64
	require.NoError(t, db.Model(&models.JourneyLocationModel{}).Count(&locations).Error)
	assert.EqualValues(t, 0, locations)
}

func TestJourneyLifecycle(t *testing.T) {
	svc := NewService(testDB(t))
	start := time.Now().Add(-90 * time.Minute)

	j, err := svc.Start("worker-1", "tenant-1", startDTO(52.1, 4.3), start)
	require.NoError(t, err)

	_, err = svc.AddLocation("worker-1", models.Position{Latitude: 52.15, Longitude: 4.35}, start.Add(30*time.Minute))
	require.NoError(t, err)

	end := start.Add(90 * time.Minute)
	closed, samples, err := svc.End("worker-1", models.Position{Latitude: 52.2, Longitude: 4.4}, "done", end)
	require.NoError(t, err)
	assert.Equal(t, j.ID, closed.ID)
	assert.False(t, closed.Open())
	assert.EqualValues(t, 3, samples) // start + manual + end
	assert.Equal(t, 90, DurationMinutes(closed, time.Now()))

	// Closed means no open journey remains.
	open, err := svc.OpenJourney("worker-1")
	require.NoError(t, err)
	assert.Nil(t, open)

	// Re-ending fails: the state machine never skips a state.
	_, _, err = svc.End("worker-1", models.Position{Latitude: 0, Longitude: 0}, "", time.Now())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestAddLocationRequiresOpenJourney(t *testing.T) {
	svc := NewService(testDB(t))

	_, err := svc.AddLocation("worker-1", models.Position{Latitude: 1, Longitude: 2}, time.Now())
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestAddBatchKeepsSubmittedOrder(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)
	now := time.Now()

	j, err := svc.Start("worker-1", "tenant-1", startDTO(52.0, 4.0), now.Add(-time.Hour))
	require.NoError(t, err)

	// Timestamps are deliberately not increasing: the last array element
	// still becomes the last-known position.
	items := []BatchLocationItem{
		{Latitude: ptr(52.10), Longitude: ptr(4.10), Time: now.Add(-30 * time.Minute)},
		{Latitude: ptr(52.20), Longitude: ptr(4.20), Time: now.Add(-10 * time.Minute)},
		{Latitude: ptr(52.15), Longitude: ptr(4.15), Time: now.Add(-20 * time.Minute)},
	}
	count, err := svc.AddBatch("worker-1", j.ID, items)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	var reloaded models.JourneyModel
	require.NoError(t, db.First(&reloaded, "id = ?", j.ID).Error)
	assert.Equal(t, 52.15, reloaded.LastLatitude)
	assert.Equal(t, 4.15, reloaded.LastLongitude)

	samples, err := svc.SampleCount(j.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, samples) // start sample + 3 batch rows
}

func TestAddBatchValidation(t *testing.T) {
	svc := NewService(testDB(t))
	now := time.Now()

	j, err := svc.Start("worker-1", "tenant-1", startDTO(52.0, 4.0), now)
	require.NoError(t, err)

	_, err = svc.AddBatch("worker-1", j.ID, nil)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// An element missing a coordinate is rejected, not dereferenced.
	_, err = svc.AddBatch("worker-1", j.ID, []BatchLocationItem{
		{Longitude: ptr(4.1), Time: now},
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// Another worker cannot write into this journey.
	items := []BatchLocationItem{{Latitude: ptr(1), Longitude: ptr(2), Time: now}}
	_, err = svc.AddBatch("worker-2", j.ID, items)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	// Nor can the owner after it is closed.
	_, _, err = svc.End("worker-1", models.Position{Latitude: 1, Longitude: 2}, "", now.Add(time.Minute))
	require.NoError(t, err)
	_, err = svc.AddBatch("worker-1", j.ID, items)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestLocationsOrderedByTime(t *testing.T) {
	svc := NewService(testDB(t))
	now := time.Now()

	j, err := svc.Start("worker-1", "tenant-1", startDTO(52.0, 4.0), now.Add(-time.Hour))
	require.NoError(t, err)

	_, err = svc.AddLocation("worker-1", models.Position{Latitude: 52.2, Longitude: 4.2}, now.Add(-10*time.Minute))
	require.NoError(t, err)
	_, err = svc.AddLocation("worker-1", models.Position{Latitude: 52.1, Longitude: 4.1}, now.Add(-30*time.Minute))
	require.NoError(t, err)

	rows, err := svc.Locations(j.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.True(t, rows[0].RecordedAt.Before(rows[1].RecordedAt))
	assert.True(t, rows[1].RecordedAt.Before(rows[2].RecordedAt))
}
