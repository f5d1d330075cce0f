package models

import (
	"rollcall/db"

	"go.uber.org/zap"
)

// Init migrates the account tables. Roster and attendance tables belong to the
// configured store backend and are migrated there.
func Init() {
	for _, model := range []any{&User{}, &Grant{}} {
		if err := db.Instance.AutoMigrate(model); err != nil {
			zap.S().Errorf("Auto-migrate error: %v", err)
		}
	}
}
