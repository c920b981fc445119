package persistence

import (
	"testing"

	"github.com/hera/finance/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a fresh in-memory database with the full schema. Real
// unique indexes make the idempotency behavior testable.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.JournalEntryModel{},
		&models.StagedJournalModel{},
		&models.PostingRuleModel{},
		&models.OrgFinanceConfigModel{},
		&models.FiscalPeriodModel{},
		&models.MasterDataAttributeModel{},
	))
	return db
}
