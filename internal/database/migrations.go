package database

import (
	"fmt"

	"gorm.io/gorm"
)

// AddIndexes adds indexes that back the visibility resolver's filters and
// the membership lookups.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Organization visibility filters
		{"organizations", "idx_organizations_site_id", "site_id"},
		{"organizations", "idx_organizations_parent_id", "parent_id"},

		// Membership lookups
		{"organization_members", "idx_org_members_organization_id", "organization_id"},
		{"organization_members", "idx_org_members_user_id", "user_id"},

		// Owner lookup is covered by the unique index on organization_id
		{"organizations", "idx_organizations_invite_code", "invite_code"},
	}

	for _, idx := range indexes {
		var count int64
		err := db.Raw(`
			SELECT COUNT(*)
			FROM pg_indexes
			WHERE tablename = ? AND indexname = ?
		`, idx.table, idx.name).Scan(&count).Error

		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}

		if count > 0 {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
