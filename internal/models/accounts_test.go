package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSavingsStatus(t *testing.T) {
	cases := map[string]SavingsStatus{
		"ACTIVE":   SavingsActive,
		"active":   SavingsActive,
		" Active ": SavingsActive,
		"dormant":  SavingsDormant,
		"CLOSED":   SavingsClosed,
		"closed":   SavingsClosed,
	}
	for raw, want := range cases {
		got, err := NormalizeSavingsStatus(raw)
		assert.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := NormalizeSavingsStatus("FROZEN")
	assert.Error(t, err)
}

func TestNormalizeDepositStatus(t *testing.T) {
	for code := 1; code <= 4; code++ {
		got, err := NormalizeDepositStatus(code)
		assert.NoError(t, err)
		assert.Equal(t, DepositStatus(code), got)
	}

	_, err := NormalizeDepositStatus(9)
	assert.Error(t, err)
}

func TestDepositStatusClosable(t *testing.T) {
	assert.True(t, DepositOpen.Closable())
	assert.True(t, DepositMatured.Closable())
	assert.False(t, DepositClosed.Closable())
	assert.False(t, DepositPrematureClosed.Closable())
}

func TestVoucherTypeValid(t *testing.T) {
	assert.True(t, VoucherCash.Valid())
	assert.True(t, VoucherTransfer.Valid())
	assert.False(t, VoucherType("CHEQUE").Valid())
}
