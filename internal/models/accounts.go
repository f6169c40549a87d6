package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SavingsStatus is the normalized status of a savings account or member
// share record. Raw rows carry free-form strings with inconsistent casing;
// normalization happens once, at row load.
type SavingsStatus string

const (
	SavingsActive  SavingsStatus = "ACTIVE"
	SavingsDormant SavingsStatus = "DORMANT"
	SavingsClosed  SavingsStatus = "CLOSED"
)

// NormalizeSavingsStatus maps a raw status column value to a SavingsStatus.
func NormalizeSavingsStatus(raw string) (SavingsStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "ACTIVE":
		return SavingsActive, nil
	case "DORMANT":
		return SavingsDormant, nil
	case "CLOSED":
		return SavingsClosed, nil
	default:
		return "", fmt.Errorf("unknown savings account status %q", raw)
	}
}

// DepositStatus is the normalized status of a term-deposit account.
// Deposit rows store integer codes 1..4.
type DepositStatus int

const (
	DepositOpen            DepositStatus = 1
	DepositMatured         DepositStatus = 2
	DepositClosed          DepositStatus = 3
	DepositPrematureClosed DepositStatus = 4
)

// NormalizeDepositStatus maps a raw account_status code to a DepositStatus.
func NormalizeDepositStatus(code int) (DepositStatus, error) {
	switch DepositStatus(code) {
	case DepositOpen, DepositMatured, DepositClosed, DepositPrematureClosed:
		return DepositStatus(code), nil
	default:
		return 0, fmt.Errorf("unknown deposit account status code %d", code)
	}
}

// Closable reports whether a deposit in this status may be closed out.
func (s DepositStatus) Closable() bool {
	return s == DepositOpen || s == DepositMatured
}

// ShareClass is the membership category determining which GL account
// receives share-capital postings.
type ShareClass string

const (
	ShareClassA ShareClass = "A"
	ShareClassB ShareClass = "B"
)

func (c ShareClass) Valid() bool {
	return c == ShareClassA || c == ShareClassB
}

// SavingsAccount holds the denormalized running balance for a member's
// savings account. The balance is mutated only inside the same transaction
// as the ledger lines that justify the mutation.
type SavingsAccount struct {
	BranchID         string          `json:"branch_id" db:"branch_id"`
	AccountNumber    string          `json:"account_number" db:"account_number"`
	MembershipNo     string          `json:"membership_no" db:"membership_no"`
	SchemeCode       string          `json:"scheme_code" db:"scheme_code"`
	AvailableBalance decimal.Decimal `json:"available_balance" db:"available_balance"`
	Status           SavingsStatus   `json:"status" db:"status"`
	OpenedOn         time.Time       `json:"opened_on" db:"opened_on"`
}

// DepositAccount is a term/recurring deposit account.
type DepositAccount struct {
	BranchID       string          `json:"branch_id" db:"branch_id"`
	AccountNumber  string          `json:"account_number" db:"account_number"`
	MembershipNo   string          `json:"membership_no" db:"membership_no"`
	SchemeCode     string          `json:"scheme_code" db:"scheme_code"`
	DepositAmount  decimal.Decimal `json:"deposit_amount" db:"deposit_amount"`
	MaturityAmount decimal.Decimal `json:"maturity_amount" db:"maturity_amount"`
	ClearBalance   decimal.Decimal `json:"clear_balance" db:"clear_balance"`
	Status         DepositStatus   `json:"account_status" db:"account_status"`
	OpenDate       time.Time       `json:"open_date" db:"open_date"`
	MaturityDate   time.Time       `json:"maturity_date" db:"maturity_date"`
}

// MemberShare is a member's share-capital holding.
type MemberShare struct {
	BranchID     string          `json:"branch_id" db:"branch_id"`
	MembershipNo string          `json:"membership_no" db:"membership_no"`
	ShareClass   ShareClass      `json:"share_class" db:"share_class"`
	ShareBalance decimal.Decimal `json:"share_balance" db:"share_balance"`
	Status       SavingsStatus   `json:"status" db:"status"`
}

// SavingsTransaction is the audit/history row written alongside every
// savings posting, linked back to its GL batch and voucher.
type SavingsTransaction struct {
	ID            int64           `json:"id" db:"id"`
	ReferenceID   string          `json:"reference_id" db:"reference_id"`
	BranchID      string          `json:"branch_id" db:"branch_id"`
	AccountNumber string          `json:"account_number" db:"account_number"`
	DebitAmount   decimal.Decimal `json:"debit_amount" db:"debit_amount"`
	CreditAmount  decimal.Decimal `json:"credit_amount" db:"credit_amount"`
	Balance       decimal.Decimal `json:"balance" db:"balance"`
	Narration     string          `json:"narration" db:"narration"`
	BatchID       int64           `json:"batch_id" db:"batch_id"`
	VoucherID     int64           `json:"voucher_id" db:"voucher_id"`
	BusinessDate  time.Time       `json:"business_date" db:"business_date"`
	Status        string          `json:"status" db:"status"`
	CreatedBy     string          `json:"created_by" db:"created_by"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// ShareTransaction is the audit/history row for member share postings.
type ShareTransaction struct {
	ID           int64           `json:"id" db:"id"`
	ReferenceID  string          `json:"reference_id" db:"reference_id"`
	BranchID     string          `json:"branch_id" db:"branch_id"`
	MembershipNo string          `json:"membership_no" db:"membership_no"`
	DebitAmount  decimal.Decimal `json:"debit_amount" db:"debit_amount"`
	CreditAmount decimal.Decimal `json:"credit_amount" db:"credit_amount"`
	Balance      decimal.Decimal `json:"balance" db:"balance"`
	Narration    string          `json:"narration" db:"narration"`
	BatchID      int64           `json:"batch_id" db:"batch_id"`
	VoucherID    int64           `json:"voucher_id" db:"voucher_id"`
	BusinessDate time.Time       `json:"business_date" db:"business_date"`
	Status       string          `json:"status" db:"status"`
	CreatedBy    string          `json:"created_by" db:"created_by"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}
