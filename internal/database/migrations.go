package database

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"
)

// AddIndexes creates the archive-listing indexes that struct tags cannot express portably.
func AddIndexes(db *gorm.DB, log *slog.Logger) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Active/archived listings filter by owner and flag together
		{"clients", "idx_clients_user_deleted", "user_id, deleted"},
		{"projects", "idx_projects_client_deleted", "client_id, deleted"},
		{"delivery_notes", "idx_delivery_notes_project_deleted", "project_id, deleted"},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.table, idx.name) {
			log.Debug("index already exists, skipping", "index", idx.name)
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Info("created index", "index", idx.name, "table", idx.table, "columns", idx.columns)
	}

	return nil
}
