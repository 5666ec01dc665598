package notify

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fieldtrace/core/internal/database"
	"github.com/fieldtrace/core/internal/models"
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

// scriptedNotifier fails for tokens listed in failFor and records the
// order in which tokens were attempted.
type scriptedNotifier struct {
	attempted []string
	failFor   map[string]bool
}

func (s *scriptedNotifier) Send(_ context.Context, token string, _ Message) error {
	s.attempted = append(s.attempted, token)
	if s.failFor[token] {
		return errors.New("delivery refused")
	}
	return nil
}

func TestDispatchToTokensNeverShortCircuits(t *testing.T) {
	n := &scriptedNotifier{failFor: map[string]bool{"tok-b": true}}
	d := NewDispatcher(nil, map[models.PushProvider]Notifier{
		models.PushProviderExpo: n,
	}, nil)

	tokens := []models.PushTokenModel{
		{Token: "tok-a", Provider: models.PushProviderExpo},
		{Token: "tok-b", Provider: models.PushProviderExpo},
		{Token: "tok-c", Provider: models.PushProviderExpo},
	}
	out := d.DispatchToTokens(context.Background(), tokens, Message{Title: "hello"})

	assert.Equal(t, Outcome{Sent: 2, Failed: 1}, out)
	assert.Equal(t, []string{"tok-a", "tok-b", "tok-c"}, n.attempted)
}

func TestDispatchRoutesByProvider(t *testing.T) {
	expo := &scriptedNotifier{}
	native := &scriptedNotifier{}
	d := NewDispatcher(nil, map[models.PushProvider]Notifier{
		models.PushProviderExpo:   expo,
		models.PushProviderNative: native,
	}, nil)

	tokens := []models.PushTokenModel{
		{Token: "tok-expo", Provider: models.PushProviderExpo},
		{Token: "tok-native", Provider: models.PushProviderNative},
		{Token: "tok-orphan", Provider: models.PushProvider("sms")},
	}
	out := d.DispatchToTokens(context.Background(), tokens, Message{Title: "hello"})

	// The unknown provider counts as a failure, not a crash.
	assert.Equal(t, Outcome{Sent: 2, Failed: 1}, out)
	assert.Equal(t, []string{"tok-expo"}, expo.attempted)
	assert.Equal(t, []string{"tok-native"}, native.attempted)
}

func TestDispatchToAdminsFiltersTenant(t *testing.T) {
	db := testDB(t)
	n := &scriptedNotifier{}
	d := NewDispatcher(db, map[models.PushProvider]Notifier{
		models.PushProviderExpo: n,
	}, nil)

	rows := []models.PushTokenModel{
		{OwnerID: "admin-1", TenantID: "tenant-1", Token: "tok-1", Provider: models.PushProviderExpo, Active: true},
		{OwnerID: "admin-2", TenantID: "tenant-1", Token: "tok-2", Provider: models.PushProviderExpo, Active: false},
		{OwnerID: "admin-3", TenantID: "tenant-2", Token: "tok-3", Provider: models.PushProviderExpo, Active: true},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	// The deactivated token must round-trip as inactive.
	var stored models.PushTokenModel
	require.NoError(t, db.First(&stored, "token = ?", "tok-2").Error)
	assert.False(t, stored.Active)

	out, err := d.DispatchToAdmins(context.Background(), "tenant-1", Message{Title: "alert"})
	require.NoError(t, err)
	assert.Equal(t, Outcome{Sent: 1}, out)
	assert.Equal(t, []string{"tok-1"}, n.attempted)
}

func TestRegisterTokenUpsert(t *testing.T) {
	db := testDB(t)
	d := NewDispatcher(db, map[models.PushProvider]Notifier{
		models.PushProviderExpo:   &scriptedNotifier{},
		models.PushProviderNative: &scriptedNotifier{},
	}, nil)

	first, err := d.RegisterToken("admin-1", "tenant-1", "tok-1", models.PushProviderExpo)
	require.NoError(t, err)

	// Same token re-registered by another owner: one row, fields updated.
	_, err = d.RegisterToken("admin-2", "tenant-1", "tok-1", models.PushProviderNative)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.PushTokenModel{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var row models.PushTokenModel
	require.NoError(t, db.First(&row, "token = ?", "tok-1").Error)
	assert.Equal(t, first.ID, row.ID)
	assert.Equal(t, "admin-2", row.OwnerID)
	assert.Equal(t, models.PushProviderNative, row.Provider)
	assert.True(t, row.Active)
}

func TestRegisterTokenUnknownProvider(t *testing.T) {
	d := NewDispatcher(testDB(t), map[models.PushProvider]Notifier{
		models.PushProviderExpo: &scriptedNotifier{},
	}, nil)

	_, err := d.RegisterToken("admin-1", "tenant-1", "tok-1", models.PushProvider("sms"))
	assert.Error(t, err)
}
