package database

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/deliverynote-api/internal/config"
	"github.com/yukikurage/deliverynote-api/internal/models"
	"github.com/yukikurage/deliverynote-api/internal/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := openTestDB(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, Migrate(db, log))
	require.NoError(t, Migrate(db, log))

	for table, index := range map[string]string{
		"clients":        "idx_clients_user_deleted",
		"projects":       "idx_projects_client_deleted",
		"delivery_notes": "idx_delivery_notes_project_deleted",
	} {
		assert.True(t, db.Migrator().HasIndex(table, index), index)
	}
	assert.True(t, db.Migrator().HasIndex(&models.Client{}, "idx_clients_user_email"))
	assert.True(t, db.Migrator().HasIndex(&models.Project{}, "idx_projects_client_name"))
}

func TestScopes(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.Client{}))

	for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		require.NoError(t, db.Create(&models.Client{UserID: "u", Email: email, Deleted: i == 0}).Error)
	}

	var active, archived []models.Client
	require.NoError(t, db.Scopes(Archived(false)).Find(&active).Error)
	require.NoError(t, db.Scopes(Archived(true)).Find(&archived).Error)
	assert.Len(t, active, 2)
	assert.Len(t, archived, 1)

	var page []models.Client
	require.NoError(t, db.Scopes(Paginate(&utils.PaginationParams{Page: 2, Limit: 2, Offset: 2})).Order("email").Find(&page).Error)
	require.Len(t, page, 1)
	assert.Equal(t, "c@example.com", page[0].Email)

	var all []models.Client
	require.NoError(t, db.Scopes(Paginate(nil)).Find(&all).Error)
	assert.Len(t, all, 3)
}

func TestDialector(t *testing.T) {
	for driver, name := range map[string]string{
		"postgres": "postgres",
		"mysql":    "mysql",
		"sqlite":   "sqlite",
	} {
		d, err := Dialector(&config.Config{DBDriver: driver, DBDSN: "file::memory:", DBHost: "localhost", DBPort: "5432"})
		require.NoError(t, err, driver)
		assert.Equal(t, name, d.Name())
	}

	_, err := Dialector(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}
