package database

import (
	"fmt"

	"gorm.io/gorm"

	"dealhub/internal/model"
	"dealhub/pkg/log"
)

// AutoMigrate auto migrate database table schema
func AutoMigrate(db *gorm.DB) error {
	log.Info("Starting database migration...")

	models := []interface{}{
		&model.User{},
		&model.Shop{},
		&model.Voucher{},
		&model.VoucherOrder{},
	}

	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", m, err)
		}
		log.Infof("Migrated model: %T", m)
	}

	log.Info("Database migration completed successfully")
	return nil
}

// CreateIndexes create additional indexes. MySQL has no IF NOT EXISTS on
// CREATE INDEX, so existence is checked against information_schema first.
func CreateIndexes(db *gorm.DB) error {
	indexes := []struct {
		table string
		name  string
		sql   string
	}{
		{
			table: "voucher_orders",
			name:  "idx_voucher_orders_user_voucher",
			sql:   "CREATE UNIQUE INDEX idx_voucher_orders_user_voucher ON voucher_orders (user_id, voucher_id)",
		},
		{
			table: "vouchers",
			name:  "idx_vouchers_shop",
			sql:   "CREATE INDEX idx_vouchers_shop ON vouchers (shop_id)",
		},
	}

	for _, idx := range indexes {
		exists, err := indexExists(db, idx.table, idx.name)
		if err != nil {
			log.Warnf("Failed to check index %s: %v", idx.name, err)
			continue
		}
		if exists {
			continue
		}

		if err := db.Exec(idx.sql).Error; err != nil {
			log.Warnf("Failed to create index %s: %v", idx.name, err)
		} else {
			log.Infof("Created index: %s", idx.name)
		}
	}

	return nil
}

func indexExists(db *gorm.DB, table, name string) (bool, error) {
	var count int64
	err := db.Raw(
		"SELECT COUNT(1) FROM information_schema.statistics WHERE table_schema = DATABASE() AND table_name = ? AND index_name = ?",
		table, name,
	).Scan(&count).Error
	return count > 0, err
}

