package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/hera/finance/internal/domain/posting"
	"github.com/hera/finance/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormOrgConfigRepository(t *testing.T) {
	repo := NewGormOrgConfigRepository(newTestDB(t))
	orgID := uuid.New()

	config := posting.OrgFinanceConfig{
		OrganizationID: orgID,
		Industry:       posting.IndustrySalon,
		ModulesEnabled: map[string]bool{"SALE": true, "EXPENSE": false},
		FinancePolicy: posting.FinancePolicy{
			DefaultCOAID:    "COA-SALON-AE",
			TaxProfileID:    "UAE-VAT-5",
			FXSource:        "ecb",
			SuspenseAccount: "9998",
		},
		DeactivationBehaviour: map[string]posting.DeactivationBehaviour{
			"EXPENSE": posting.PostToSuspense,
		},
	}

	t.Run("unprovisioned organization", func(t *testing.T) {
		_, err := repo.ConfigFor(context.Background(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("save and load round trip", func(t *testing.T) {
		require.NoError(t, repo.Save(context.Background(), config))

		loaded, err := repo.ConfigFor(context.Background(), orgID)
		require.NoError(t, err)
		assert.Equal(t, posting.IndustrySalon, loaded.Industry)
		assert.True(t, loaded.ModuleEnabled("SALE"))
		assert.True(t, loaded.ModuleConfigured("EXPENSE"))
		assert.False(t, loaded.ModuleEnabled("EXPENSE"))
		assert.Equal(t, posting.AccountID("9998"), loaded.FinancePolicy.SuspenseAccount)
		assert.Equal(t, posting.PostToSuspense, loaded.BehaviourFor("EXPENSE"))
	})

	t.Run("save updates in place", func(t *testing.T) {
		config.ModulesEnabled["EXPENSE"] = true
		require.NoError(t, repo.Save(context.Background(), config))

		loaded, err := repo.ConfigFor(context.Background(), orgID)
		require.NoError(t, err)
		assert.True(t, loaded.ModuleEnabled("EXPENSE"))
	})
}
