package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/coopserve/corebanking/internal/ledger"
	"github.com/coopserve/corebanking/internal/middleware"
	"github.com/coopserve/corebanking/internal/models"
)

const (
	TxnDeposit    = "DEPOSIT"
	TxnWithdrawal = "WITHDRAWAL"
)

// SavingsService posts deposits and withdrawals against savings accounts.
type SavingsService struct {
	db            *sql.DB
	validator     *ValidationHelper
	cashGLAccount string
}

func NewSavingsService(db *sql.DB, cashGLAccount string) *SavingsService {
	return &SavingsService{
		db:            db,
		validator:     NewValidationHelper(),
		cashGLAccount: cashGLAccount,
	}
}

// SavingsTransactRequest is the deposit/withdrawal payload.
type SavingsTransactRequest struct {
	AccountNumber   string          `json:"accountNumber" validate:"required"`
	TransactionType string          `json:"transactionType" validate:"required,oneof=DEPOSIT WITHDRAWAL"`
	Amount          decimal.Decimal `json:"amount"`
	Narration       string          `json:"narration" validate:"max=200"`
	VoucherType     string          `json:"voucherType" validate:"required,oneof=CASH TRANSFER"`
	SelectedBatch   *int64          `json:"selectedBatch,omitempty"`
}

// SavingsTransactResponse is the posting receipt.
type SavingsTransactResponse struct {
	VoucherNo  int64           `json:"voucher_no"`
	BatchID    int64           `json:"batch_id"`
	NewBalance decimal.Decimal `json:"newBalance"`
	Status     string          `json:"status"`
}

// Transact handles savings deposit/withdrawal posting
// @Summary Post a savings deposit or withdrawal
// @Tags savings
// @Accept json
// @Produce json
// @Param request body SavingsTransactRequest true "Transaction data"
// @Success 201 {object} SavingsTransactResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /savings/transactions [post]
func (s *SavingsService) Transact(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req SavingsTransactRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		RespondError(w, err)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	resp, err := s.Post(r.Context(), session, req)
	if err != nil {
		log.Printf("[POSTING] savings %s on %s failed: %v", req.TransactionType, req.AccountNumber, err)
		ledger.PostingsTotal.WithLabelValues("savings", "failed").Inc()
		RespondError(w, err)
		return
	}

	ledger.PostingsTotal.WithLabelValues("savings", "posted").Inc()
	SendJSON(w, http.StatusCreated, resp)
}

// Post runs the full posting workflow inside one database transaction:
// lock account, check state, allocate-or-reuse batch, write lines, write
// the savings transaction record, mutate the balance, commit. Any failure
// after the transaction opens rolls everything back.
func (s *SavingsService) Post(ctx context.Context, session *middleware.Session, req SavingsTransactRequest) (*SavingsTransactResponse, error) {
	timer := prometheus.NewTimer(ledger.PostingDuration.WithLabelValues("savings"))
	defer timer.ObserveDuration()

	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ledger.ErrValidation)
	}
	voucherType := models.VoucherType(req.VoucherType)
	if !voucherType.Valid() {
		return nil, fmt.Errorf("%w: voucher type must be CASH or TRANSFER", ledger.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback()

	account, err := lockSavingsAccount(tx, session.Branch, req.AccountNumber)
	if err != nil {
		return nil, err
	}
	if account.Status != models.SavingsActive {
		return nil, fmt.Errorf("%w: account %s is %s", ledger.ErrInvalidState, req.AccountNumber, account.Status)
	}
	if req.TransactionType == TxnWithdrawal && account.AvailableBalance.LessThan(req.Amount) {
		return nil, fmt.Errorf("%w: balance %s, requested %s", ledger.ErrInsufficientFunds, account.AvailableBalance, req.Amount)
	}

	schemeGL, err := savingsSchemeGL(tx, session.Branch, account.SchemeCode)
	if err != nil {
		return nil, err
	}
	if _, err := ledger.ResolveAccount(tx, session.Branch, schemeGL); err != nil {
		return nil, err
	}
	if voucherType == models.VoucherCash {
		if _, err := ledger.ResolveAccount(tx, session.Branch, s.cashGLAccount); err != nil {
			return nil, err
		}
	}

	batch, err := ledger.OpenBatch(tx, session.Branch, voucherType, session.BusinessDate, session.UserID, req.SelectedBatch)
	if err != nil {
		return nil, err
	}

	narration := req.Narration
	if narration == "" {
		narration = "SAVINGS " + req.TransactionType
	}

	entry := ledger.NewEntry()
	var newBalance, debit, credit decimal.Decimal
	switch req.TransactionType {
	case TxnDeposit:
		if voucherType == models.VoucherCash {
			entry.Debit(s.cashGLAccount, ledger.CashRefAccountID, req.Amount, narration)
		} else {
			entry.AllowPartial()
		}
		entry.Credit(schemeGL, req.AccountNumber, req.Amount, narration)
		newBalance = account.AvailableBalance.Add(req.Amount)
		credit = req.Amount
	case TxnWithdrawal:
		entry.Debit(schemeGL, req.AccountNumber, req.Amount, narration)
		if voucherType == models.VoucherCash {
			entry.Credit(s.cashGLAccount, ledger.CashRefAccountID, req.Amount, narration)
		} else {
			entry.AllowPartial()
		}
		newBalance = account.AvailableBalance.Sub(req.Amount)
		debit = req.Amount
	default:
		return nil, fmt.Errorf("%w: unknown transaction type %s", ledger.ErrValidation, req.TransactionType)
	}

	if err := batch.Append(tx, entry); err != nil {
		return nil, err
	}

	if err := writeSavingsTransaction(tx, batch, req.AccountNumber, debit, credit, newBalance, narration); err != nil {
		return nil, err
	}

	if err := updateSavingsBalance(tx, session.Branch, req.AccountNumber, newBalance); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("tx commit failed: %w", err)
	}

	return &SavingsTransactResponse{
		VoucherNo:  batch.VoucherID,
		BatchID:    batch.BatchID,
		NewBalance: newBalance,
		Status:     "PENDING_APPROVAL",
	}, nil
}

// lockSavingsAccount acquires the account row exclusively for the rest of
// the posting transaction. The balance is written back as an absolute
// value, so the lock must span the whole read-compute-write.
func lockSavingsAccount(tx *sql.Tx, branchID, accountNumber string) (*models.SavingsAccount, error) {
	account := models.SavingsAccount{BranchID: branchID, AccountNumber: accountNumber}
	var rawStatus string
	err := tx.QueryRow(`
		SELECT membership_no, scheme_code, available_balance, status
		FROM savings_accounts
		WHERE branch_id = $1 AND account_number = $2
		FOR UPDATE`, branchID, accountNumber).
		Scan(&account.MembershipNo, &account.SchemeCode, &account.AvailableBalance, &rawStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: savings account %s", ledger.ErrNotFound, accountNumber)
	}
	if err != nil {
		return nil, fmt.Errorf("account lock failed: %w", err)
	}

	account.Status, err = models.NormalizeSavingsStatus(rawStatus)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrInvalidState, err)
	}
	return &account, nil
}

func savingsSchemeGL(tx *sql.Tx, branchID, schemeCode string) (string, error) {
	var glAccount string
	err := tx.QueryRow(`
		SELECT gl_accountcode FROM savings_schemes
		WHERE branch_id = $1 AND scheme_code = $2`,
		branchID, schemeCode).Scan(&glAccount)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: no savings scheme %s on branch %s", ledger.ErrConfiguration, schemeCode, branchID)
	}
	if err != nil {
		return "", fmt.Errorf("scheme lookup failed: %w", err)
	}
	return glAccount, nil
}

func writeSavingsTransaction(tx *sql.Tx, batch *ledger.Batch, accountNumber string, debit, credit, balance decimal.Decimal, narration string) error {
	_, err := tx.Exec(`
		INSERT INTO savings_transactions
			(reference_id, branch_id, account_number, debit_amount, credit_amount,
			 balance, narration, batch_id, voucher_id, business_date, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		uuid.NewString(), batch.BranchID, accountNumber, debit, credit,
		balance, narration, batch.BatchID, batch.VoucherID, batch.BusinessDate, "PENDING", batch.MakerID)
	if err != nil {
		return fmt.Errorf("savings transaction insert failed: %w", err)
	}
	return nil
}

func updateSavingsBalance(tx *sql.Tx, branchID, accountNumber string, newBalance decimal.Decimal) error {
	result, err := tx.Exec(`
		UPDATE savings_accounts SET available_balance = $1
		WHERE branch_id = $2 AND account_number = $3`,
		newBalance, branchID, accountNumber)
	if err != nil {
		return fmt.Errorf("balance update failed: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: savings account %s vanished mid-posting", ledger.ErrNotFound, accountNumber)
	}
	return nil
}

// BalanceEnquiry returns the current savings balance
// @Summary Savings account balance enquiry
// @Tags savings
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 404 {object} ErrorResponse
// @Router /accounts/{accountNumber}/balance [get]
func (s *SavingsService) BalanceEnquiry(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	accountNumber := chi.URLParam(r, "accountNumber")

	var balance decimal.Decimal
	var status string
	err := s.db.QueryRowContext(r.Context(), `
		SELECT available_balance, status FROM savings_accounts
		WHERE branch_id = $1 AND account_number = $2`,
		session.Branch, accountNumber).Scan(&balance, &status)
	if errors.Is(err, sql.ErrNoRows) {
		SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		log.Printf("[SAVINGS] balance enquiry failed: %v", err)
		SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"account_number":    accountNumber,
		"available_balance": balance,
		"status":            status,
	})
}

// ListTransactions returns recent savings transactions for an account
// @Summary List savings transactions
// @Tags savings
// @Produce json
// @Success 200 {array} models.SavingsTransaction
// @Router /accounts/{accountNumber}/transactions [get]
func (s *SavingsService) ListTransactions(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	accountNumber := chi.URLParam(r, "accountNumber")

	rows, err := s.db.QueryContext(r.Context(), `
		SELECT id, reference_id, debit_amount, credit_amount, balance,
		       narration, batch_id, voucher_id, business_date, status, created_by, created_at
		FROM savings_transactions
		WHERE branch_id = $1 AND account_number = $2
		ORDER BY created_at DESC
		LIMIT 50`, session.Branch, accountNumber)
	if err != nil {
		log.Printf("[SAVINGS] transaction list failed: %v", err)
		SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	transactions := []models.SavingsTransaction{}
	for rows.Next() {
		t := models.SavingsTransaction{BranchID: session.Branch, AccountNumber: accountNumber}
		if err := rows.Scan(&t.ID, &t.ReferenceID, &t.DebitAmount, &t.CreditAmount, &t.Balance,
			&t.Narration, &t.BatchID, &t.VoucherID, &t.BusinessDate, &t.Status, &t.CreatedBy, &t.CreatedAt); err != nil {
			log.Printf("[SAVINGS] transaction scan failed: %v", err)
			continue
		}
		transactions = append(transactions, t)
	}

	SendJSON(w, http.StatusOK, transactions)
}
