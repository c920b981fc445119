package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with valid amount and currency", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromFloat(100.50), AED)
		require.NoError(t, err)
		assert.Equal(t, AED, m.Currency())
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(100.50)))
	})

	t.Run("returns error for empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromFloat(100), "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "currency cannot be empty")
	})
}

func TestNewMoneyFromFloat(t *testing.T) {
	m, err := NewMoneyFromFloat(99.99, USD)
	require.NoError(t, err)
	assert.Equal(t, USD, m.Currency())
	assert.True(t, m.Amount().Equal(decimal.NewFromFloat(99.99)))
}

func TestNewMoneyFromString(t *testing.T) {
	t.Run("valid string", func(t *testing.T) {
		m, err := NewMoneyFromString("123.45", AED)
		require.NoError(t, err)
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(123.45)))
	})

	t.Run("invalid string", func(t *testing.T) {
		_, err := NewMoneyFromString("not-a-number", AED)
		assert.Error(t, err)
	})
}

func TestMoneyArithmetic(t *testing.T) {
	a, _ := NewMoneyFromFloat(100, AED)
	b, _ := NewMoneyFromFloat(40.5, AED)
	foreign, _ := NewMoneyFromFloat(10, USD)

	t.Run("add", func(t *testing.T) {
		sum, err := a.Add(b)
		require.NoError(t, err)
		assert.True(t, sum.Amount().Equal(decimal.NewFromFloat(140.5)))
	})

	t.Run("add rejects currency mismatch", func(t *testing.T) {
		_, err := a.Add(foreign)
		assert.Error(t, err)
	})

	t.Run("subtract", func(t *testing.T) {
		diff, err := a.Subtract(b)
		require.NoError(t, err)
		assert.True(t, diff.Amount().Equal(decimal.NewFromFloat(59.5)))
	})

	t.Run("negate and abs", func(t *testing.T) {
		neg := a.Negate()
		assert.True(t, neg.IsNegative())
		assert.True(t, neg.Abs().Equals(a))
	})
}

func TestMoneyComparisons(t *testing.T) {
	a, _ := NewMoneyFromFloat(10, AED)
	b, _ := NewMoneyFromFloat(20, AED)

	lt, err := a.LessThan(b)
	require.NoError(t, err)
	assert.True(t, lt)

	gt, err := b.GreaterThan(a)
	require.NoError(t, err)
	assert.True(t, gt)

	_, err = a.LessThan(Zero(USD))
	assert.Error(t, err)
}

func TestMoneyRoundAndString(t *testing.T) {
	m, _ := NewMoneyFromString("10.005", AED)
	assert.Equal(t, "10.01 AED", m.Round(2).String())
	assert.True(t, Zero(AED).IsZero())
}
