package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// NextBatchID atomically increments and returns the per-branch batch
// counter. The UPDATE takes a row lock, so concurrent postings for the same
// branch serialize here and no value is ever handed out twice. Counters are
// gap-tolerant: a rolled-back posting may leave a hole, never a duplicate.
//
// Must be called inside an open transaction. Branches are provisioned with
// their sequence row; a missing row is a configuration fault, not something
// to auto-create.
func NextBatchID(tx *sql.Tx, branchID string) (int64, error) {
	var id int64
	err := tx.QueryRow(`
		UPDATE gl_batch_sequences
		SET last_batch_id = last_batch_id + 1
		WHERE branch_id = $1
		RETURNING last_batch_id`, branchID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: no batch sequence row for branch %s", ErrConfiguration, branchID)
	}
	if err != nil {
		return 0, fmt.Errorf("batch id allocation failed: %w", err)
	}
	return id, nil
}

// NextVoucherNo atomically increments and returns the voucher counter for a
// branch and business date. Voucher numbering restarts each business date,
// so the row is upserted on first use rather than pre-provisioned.
//
// Must be called inside an open transaction.
func NextVoucherNo(tx *sql.Tx, branchID string, businessDate time.Time) (int64, error) {
	var no int64
	err := tx.QueryRow(`
		INSERT INTO voucher_sequences (branch_id, business_date, last_voucher_no)
		VALUES ($1, $2, 1)
		ON CONFLICT (branch_id, business_date)
		DO UPDATE SET last_voucher_no = voucher_sequences.last_voucher_no + 1
		RETURNING last_voucher_no`, branchID, businessDate).Scan(&no)
	if err != nil {
		return 0, fmt.Errorf("voucher number allocation failed: %w", err)
	}
	return no, nil
}
