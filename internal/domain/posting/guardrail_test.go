package posting

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDoubleEntry(t *testing.T) {
	t.Run("balanced lines pass", func(t *testing.T) {
		lines := []FinanceLine{
			{Role: "Payment", DR: decimal.NewFromInt(100)},
			{Role: "Revenue", CR: decimal.NewFromInt(90)},
			{Role: "Tax", CR: decimal.NewFromInt(10)},
		}
		assert.NoError(t, ValidateDoubleEntry(lines))
	})

	t.Run("sub-tolerance rounding noise passes", func(t *testing.T) {
		lines := []FinanceLine{
			{Role: "Payment", DR: decimal.RequireFromString("100.005")},
			{Role: "Revenue", CR: decimal.NewFromInt(100)},
		}
		assert.NoError(t, ValidateDoubleEntry(lines))
	})

	t.Run("exactly at tolerance fails", func(t *testing.T) {
		lines := []FinanceLine{
			{Role: "Payment", DR: decimal.RequireFromString("100.01")},
			{Role: "Revenue", CR: decimal.NewFromInt(100)},
		}
		assert.Error(t, ValidateDoubleEntry(lines))
	})

	t.Run("imbalance is reported with the difference", func(t *testing.T) {
		lines := []FinanceLine{
			{Role: "Payment", DR: decimal.NewFromInt(100)},
			{Role: "Revenue", CR: decimal.NewFromInt(90)},
		}
		err := ValidateDoubleEntry(lines)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "10")
	})

	t.Run("empty line set balances trivially", func(t *testing.T) {
		assert.NoError(t, ValidateDoubleEntry(nil))
	})
}

func TestValidateGLBalance(t *testing.T) {
	balanced := []GLLine{
		{AccountID: "1100", DR: decimal.NewFromInt(50)},
		{AccountID: "4100", CR: decimal.NewFromInt(50)},
	}
	assert.NoError(t, ValidateGLBalance(balanced))

	unbalanced := []GLLine{
		{AccountID: "1100", DR: decimal.NewFromInt(50)},
		{AccountID: "4100", CR: decimal.NewFromInt(40)},
	}
	assert.Error(t, ValidateGLBalance(unbalanced))
}

func TestRequireHeaderFields(t *testing.T) {
	e := validEvent()
	e.Metadata = map[string]any{"branch": "downtown", "empty": ""}

	assert.NoError(t, RequireHeaderFields(e, []string{"organization_id", "smart_code", "currency", "origin_txn_id", "source_system"}))
	assert.NoError(t, RequireHeaderFields(e, []string{"metadata.branch"}))
	assert.Error(t, RequireHeaderFields(e, []string{"metadata.empty"}))
	assert.Error(t, RequireHeaderFields(e, []string{"metadata.missing"}))

	e.SourceSystem = ""
	assert.Error(t, RequireHeaderFields(e, []string{"source_system"}))
}

func TestRequireLineFields(t *testing.T) {
	lines := []FinanceLine{
		{EntityID: "PAYMENT:card", Role: "Payment", DR: decimal.NewFromInt(100), Relationships: map[string]string{"customer_id": "C-1"}},
	}
	assert.NoError(t, RequireLineFields(lines, []string{"entity_id", "role", "amount"}))
	assert.NoError(t, RequireLineFields(lines, []string{"relationships.customer_id"}))
	assert.Error(t, RequireLineFields(lines, []string{"relationships.vendor_id"}))

	missingRole := []FinanceLine{{EntityID: "X", DR: decimal.NewFromInt(1)}}
	err := RequireLineFields(missingRole, []string{"role"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "role")
}

func TestIdempotencyKey(t *testing.T) {
	e := validEvent()
	key1 := IdempotencyKey(e)

	// identical identity yields an identical key
	copy := *e
	assert.Equal(t, key1, IdempotencyKey(&copy))

	// any identity component changes the key
	copy.OriginTxnID = "ORD-002"
	assert.NotEqual(t, key1, IdempotencyKey(&copy))

	copy = *e
	copy.SmartCode = "HERA.SALON.SALE.PRODUCT.v1"
	assert.NotEqual(t, key1, IdempotencyKey(&copy))
}
