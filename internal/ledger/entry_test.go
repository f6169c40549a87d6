package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEntry_BalancedPair(t *testing.T) {
	amount := decimal.NewFromFloat(500.00)

	legs, err := NewEntry().
		Debit("100001", CashRefAccountID, amount, "cash deposit").
		Credit("20001", "SB001", amount, "cash deposit").
		Legs()

	assert.NoError(t, err)
	assert.Len(t, legs, 2)
	assert.True(t, legs[0].Debit.Equal(amount))
	assert.True(t, legs[0].Credit.IsZero())
	assert.True(t, legs[1].Credit.Equal(amount))
}

func TestEntry_UnbalancedRejected(t *testing.T) {
	_, err := NewEntry().
		Debit("100001", CashRefAccountID, decimal.NewFromInt(500), "").
		Credit("20001", "SB001", decimal.NewFromInt(400), "").
		Legs()

	assert.ErrorIs(t, err, ErrUnbalancedEntry)
}

func TestEntry_PartialSkipsBalanceCheck(t *testing.T) {
	legs, err := NewEntry().
		AllowPartial().
		Credit("20001", "SB001", decimal.NewFromInt(500), "transfer leg").
		Legs()

	assert.NoError(t, err)
	assert.Len(t, legs, 1)
}

func TestEntry_LegMustCarryExactlyOneSide(t *testing.T) {
	t.Run("zero amount", func(t *testing.T) {
		_, err := NewEntry().
			Debit("100001", CashRefAccountID, decimal.Zero, "").
			Credit("20001", "SB001", decimal.Zero, "").
			Legs()
		assert.ErrorIs(t, err, ErrUnbalancedEntry)
	})

	t.Run("no legs", func(t *testing.T) {
		_, err := NewEntry().Legs()
		assert.ErrorIs(t, err, ErrUnbalancedEntry)
	})

	t.Run("missing GL account", func(t *testing.T) {
		_, err := NewEntry().
			Debit("", CashRefAccountID, decimal.NewFromInt(100), "").
			Credit("20001", "SB001", decimal.NewFromInt(100), "").
			Legs()
		assert.ErrorIs(t, err, ErrUnbalancedEntry)
	})
}

func TestEntry_MultiLegClosureShape(t *testing.T) {
	// DR full balance, CR penalty + CR payout must balance.
	legs, err := NewEntry().
		Debit("40001", "FD001", decimal.NewFromFloat(11000), "closure").
		Credit("40001", "FD001", decimal.NewFromFloat(20), "penalty").
		Credit("100001", CashRefAccountID, decimal.NewFromFloat(10980), "payout").
		Legs()

	assert.NoError(t, err)
	assert.Len(t, legs, 3)
}
