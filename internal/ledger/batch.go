package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/coopserve/corebanking/internal/models"
)

// Batch is the unit-of-work aggregate a workflow posts into: a header row
// plus the lines appended so far. A workflow either opens a fresh batch
// (allocating batch id and voucher number) or reuses an existing PENDING
// batch to append further legs of a multi-invocation transaction.
type Batch struct {
	BranchID     string
	BatchID      int64
	VoucherID    int64
	VoucherType  models.VoucherType
	BusinessDate time.Time
	MakerID      string
}

// OpenBatch allocates a new batch or resolves an existing one for reuse.
//
// reuseBatchID == nil: allocate a batch id and a voucher number for the
// branch + business date and insert a PENDING header.
//
// reuseBatchID != nil: recover the batch's already-assigned voucher number.
// No new voucher is allocated and no header is inserted; the batch must
// still be PENDING.
//
// Must be called inside an open transaction.
func OpenBatch(tx *sql.Tx, branchID string, voucherType models.VoucherType, businessDate time.Time, makerID string, reuseBatchID *int64) (*Batch, error) {
	if reuseBatchID != nil {
		return reuseBatch(tx, branchID, *reuseBatchID, businessDate, makerID)
	}

	batchID, err := NextBatchID(tx, branchID)
	if err != nil {
		return nil, err
	}
	voucherID, err := NextVoucherNo(tx, branchID, businessDate)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(`
		INSERT INTO gl_batches (branch_id, batch_id, voucher_id, voucher_type, business_date, status, maker_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		branchID, batchID, voucherID, string(voucherType), businessDate, string(models.BatchPending), makerID)
	if err != nil {
		return nil, fmt.Errorf("batch header insert failed: %w", err)
	}

	batchesOpened.WithLabelValues(branchID, string(voucherType)).Inc()

	return &Batch{
		BranchID:     branchID,
		BatchID:      batchID,
		VoucherID:    voucherID,
		VoucherType:  voucherType,
		BusinessDate: businessDate,
		MakerID:      makerID,
	}, nil
}

func reuseBatch(tx *sql.Tx, branchID string, batchID int64, businessDate time.Time, makerID string) (*Batch, error) {
	var voucherID int64
	var voucherType, status string
	err := tx.QueryRow(`
		SELECT voucher_id, voucher_type, status
		FROM gl_batches
		WHERE branch_id = $1 AND batch_id = $2`,
		branchID, batchID).Scan(&voucherID, &voucherType, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: batch %d on branch %s", ErrNotFound, batchID, branchID)
	}
	if err != nil {
		return nil, fmt.Errorf("batch lookup failed: %w", err)
	}
	if models.BatchStatus(status) != models.BatchPending {
		return nil, fmt.Errorf("%w: batch %d is %s, only PENDING batches accept lines", ErrInvalidState, batchID, status)
	}

	return &Batch{
		BranchID:     branchID,
		BatchID:      batchID,
		VoucherID:    voucherID,
		VoucherType:  models.VoucherType(voucherType),
		BusinessDate: businessDate,
		MakerID:      makerID,
	}, nil
}

// Append validates the entry and inserts one gl_batch_lines row per leg.
// Lines are immutable once written; corrections require a reversing batch.
func (b *Batch) Append(tx *sql.Tx, entry *Entry) error {
	legs, err := entry.Legs()
	if err != nil {
		return err
	}

	for _, leg := range legs {
		refID := leg.RefAccountID
		if refID == "" {
			refID = CashRefAccountID
		}
		_, err := tx.Exec(`
			INSERT INTO gl_batch_lines
				(branch_id, batch_id, business_date, accountcode, ref_account_id,
				 debit_amount, credit_amount, voucher_id, narration, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			b.BranchID, b.BatchID, b.BusinessDate, leg.AccountCode, refID,
			leg.Debit, leg.Credit, b.VoucherID, leg.Narration, b.MakerID)
		if err != nil {
			return fmt.Errorf("batch line insert failed: %w", err)
		}
	}

	linesPosted.WithLabelValues(b.BranchID).Add(float64(len(legs)))
	return nil
}
