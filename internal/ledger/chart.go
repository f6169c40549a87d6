package ledger

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// AccountMeta is the posting metadata of a chart-of-accounts entry. The
// chart's own accountbalance column is a coarse aggregate reconciled
// out-of-band; the posting engine reads it but never writes it.
type AccountMeta struct {
	AccountCode     string
	AccountTypeCode string
	Balance         decimal.Decimal
	IsLedger        bool
	IsActive        bool
}

// ResolveAccount looks up a GL account code for posting. Ledger accounts
// are configuration, not hot state, so no row lock is taken. An absent or
// inactive target is fatal to the batch being constructed.
func ResolveAccount(tx *sql.Tx, branchID, accountCode string) (*AccountMeta, error) {
	var meta AccountMeta
	err := tx.QueryRow(`
		SELECT accountcode, accounttypecode, accountbalance, isledger, isactive
		FROM chart_of_accounts
		WHERE branch_id = $1 AND accountcode = $2`,
		branchID, accountCode).
		Scan(&meta.AccountCode, &meta.AccountTypeCode, &meta.Balance, &meta.IsLedger, &meta.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: GL account %s on branch %s", ErrNotFound, accountCode, branchID)
	}
	if err != nil {
		return nil, fmt.Errorf("GL account lookup failed: %w", err)
	}
	if !meta.IsActive {
		return nil, fmt.Errorf("%w: GL account %s is inactive", ErrInvalidState, accountCode)
	}
	return &meta, nil
}
