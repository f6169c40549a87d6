package models

import "github.com/shopspring/decimal"

// SavingsScheme maps a savings product to its GL account.
type SavingsScheme struct {
	BranchID      string `json:"branch_id" db:"branch_id"`
	SchemeCode    string `json:"scheme_code" db:"scheme_code"`
	SchemeName    string `json:"scheme_name" db:"scheme_name"`
	GLAccountCode string `json:"gl_accountcode" db:"gl_accountcode"`
}

// DepositScheme maps a deposit product to its GL accounts and penal rate.
// PenalGLAccountCode is nil when the scheme does not separate penalty
// income from the principal deposit GL.
type DepositScheme struct {
	BranchID           string          `json:"branch_id" db:"branch_id"`
	SchemeCode         string          `json:"scheme_code" db:"scheme_code"`
	SchemeName         string          `json:"scheme_name" db:"scheme_name"`
	GLAccountCode      string          `json:"gl_accountcode" db:"gl_accountcode"`
	PenalGLAccountCode *string         `json:"penal_gl_accountcode,omitempty" db:"penal_gl_accountcode"`
	PenalRate          decimal.Decimal `json:"penal_rate" db:"penal_rate"`
}

// ShareConfig maps a share class to its GL account and face value.
// Share deposits must be exact multiples of the face value.
type ShareConfig struct {
	BranchID      string          `json:"branch_id" db:"branch_id"`
	ShareClass    ShareClass      `json:"share_class" db:"share_class"`
	GLAccountCode string          `json:"gl_accountcode" db:"gl_accountcode"`
	FaceValue     decimal.Decimal `json:"face_value" db:"face_value"`
}
