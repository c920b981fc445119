package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hera/finance/internal/infrastructure/fiscal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func august2026() fiscal.Period {
	return fiscal.Period{
		Code:      "2026-08",
		StartDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		Status:    fiscal.StatusOpen,
	}
}

func TestGormFiscalPeriodRepository(t *testing.T) {
	repo := NewGormFiscalPeriodRepository(newTestDB(t))
	orgID := uuid.New()

	require.NoError(t, repo.UpsertPeriod(context.Background(), orgID, august2026()))

	t.Run("finds the covering period", func(t *testing.T) {
		period, err := repo.PeriodForDate(context.Background(), orgID,
			time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.NotNil(t, period)
		assert.Equal(t, "2026-08", period.Code)
		assert.Equal(t, fiscal.StatusOpen, period.Status)
	})

	t.Run("end date is exclusive", func(t *testing.T) {
		period, err := repo.PeriodForDate(context.Background(), orgID,
			time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Nil(t, period)
	})

	t.Run("no period covers the date", func(t *testing.T) {
		period, err := repo.PeriodForDate(context.Background(), orgID,
			time.Date(2027, 1, 10, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Nil(t, period)
	})

	t.Run("upsert updates the status", func(t *testing.T) {
		closed := august2026()
		closed.Status = fiscal.StatusClosed
		require.NoError(t, repo.UpsertPeriod(context.Background(), orgID, closed))

		period, err := repo.PeriodForDate(context.Background(), orgID,
			time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.NotNil(t, period)
		assert.Equal(t, fiscal.StatusClosed, period.Status)
	})
}
