package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// VoucherType distinguishes postings with a physical cash leg from
// transfer postings whose counterparty leg arrives separately.
type VoucherType string

const (
	VoucherCash     VoucherType = "CASH"
	VoucherTransfer VoucherType = "TRANSFER"
)

func (v VoucherType) Valid() bool {
	return v == VoucherCash || v == VoucherTransfer
}

// BatchStatus is the lifecycle state of a GL batch. Batches are never
// deleted, only transitioned.
type BatchStatus string

const (
	BatchPending  BatchStatus = "PENDING"
	BatchApproved BatchStatus = "APPROVED"
	BatchRejected BatchStatus = "REJECTED"
)

// GLBatch is one unit of ledger work, identified by (branch_id, batch_id).
// The voucher id is the business-facing number, scoped per branch per
// business date.
type GLBatch struct {
	BranchID     string      `json:"branch_id" db:"branch_id"`
	BatchID      int64       `json:"batch_id" db:"batch_id"`
	VoucherID    int64       `json:"voucher_id" db:"voucher_id"`
	VoucherType  VoucherType `json:"voucher_type" db:"voucher_type"`
	BusinessDate time.Time   `json:"business_date" db:"business_date"`
	Status       BatchStatus `json:"status" db:"status"`
	MakerID      string      `json:"maker_id" db:"maker_id"`
	CheckerID    *string     `json:"checker_id,omitempty" db:"checker_id"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

// GLBatchLine is one debit-or-credit leg of a batch. Exactly one of
// DebitAmount/CreditAmount is nonzero. Lines are immutable once written;
// corrections require a reversing batch.
type GLBatchLine struct {
	ID           int64           `json:"id" db:"id"`
	BranchID     string          `json:"branch_id" db:"branch_id"`
	BatchID      int64           `json:"batch_id" db:"batch_id"`
	BusinessDate time.Time       `json:"business_date" db:"business_date"`
	AccountCode  string          `json:"accountcode" db:"accountcode"`
	RefAccountID string          `json:"ref_account_id" db:"ref_account_id"`
	DebitAmount  decimal.Decimal `json:"debit_amount" db:"debit_amount"`
	CreditAmount decimal.Decimal `json:"credit_amount" db:"credit_amount"`
	VoucherID    int64           `json:"voucher_id" db:"voucher_id"`
	Narration    string          `json:"narration" db:"narration"`
	CreatedBy    string          `json:"created_by" db:"created_by"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// ChartAccount is a chart-of-accounts entry. The accountbalance column is
// a coarse aggregate reconciled out-of-band; posting never updates it.
type ChartAccount struct {
	BranchID        string          `json:"branch_id" db:"branch_id"`
	AccountCode     string          `json:"accountcode" db:"accountcode"`
	AccountName     string          `json:"accountname" db:"accountname"`
	AccountTypeCode string          `json:"accounttypecode" db:"accounttypecode"`
	AccountBalance  decimal.Decimal `json:"accountbalance" db:"accountbalance"`
	IsLedger        bool            `json:"isledger" db:"isledger"`
	IsActive        bool            `json:"isactive" db:"isactive"`
}
