package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/manike-backend/internal/domain/trip"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(trip.Models()...)
}

type indexDDL struct {
	name string
	sql  string
}

// tripIndexes are the postgres-only partial indexes that gorm tags cannot express.
var tripIndexes = []indexDDL{
	// Session listing per tenant/user, newest first.
	{
		name: "idx_chat_session_tenant_user_updated",
		sql: `CREATE INDEX IF NOT EXISTS idx_chat_session_tenant_user_updated
		ON chat_session (tenant_id, user_id, updated_at DESC)
		WHERE deleted_at IS NULL;`,
	},
	{
		name: "idx_chat_session_tenant_shared",
		sql: `CREATE INDEX IF NOT EXISTS idx_chat_session_tenant_shared
		ON chat_session (tenant_id, updated_at DESC)
		WHERE deleted_at IS NULL AND is_shared = true;`,
	},
	// Compile order.
	{
		name: "idx_itinerary_activity_order",
		sql: `CREATE INDEX IF NOT EXISTS idx_itinerary_activity_order
		ON itinerary_activity (itinerary_id, order_index);`,
	},
}

func EnsureTripIndexes(db *gorm.DB) error {
	for _, idx := range tripIndexes {
		if err := db.Exec(idx.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", idx.name, err)
		}
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureTripIndexes(s.db); err != nil {
		s.log.Error("Trip index migration failed", "error", err)
		return err
	}
	return nil
}
