package models

import "time"

// User is a teller/officer account. Every posting records the user as the
// batch maker.
type User struct {
	ID           int       `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	FullName     string    `json:"full_name" db:"full_name"`
	BranchID     string    `json:"branch_id" db:"branch_id"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Branch is the tenant/partition key for sequences, batches, and accounts.
// BusinessDate is the bank's current operating date, which may lag the
// calendar date until day-end processing.
type Branch struct {
	BranchID     string    `json:"branch_id" db:"branch_id"`
	BranchName   string    `json:"branch_name" db:"branch_name"`
	BusinessDate time.Time `json:"business_date" db:"business_date"`
}
