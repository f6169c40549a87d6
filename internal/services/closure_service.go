package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/coopserve/corebanking/internal/ledger"
	"github.com/coopserve/corebanking/internal/middleware"
	"github.com/coopserve/corebanking/internal/models"
)

// ClosureService closes term-deposit accounts: it debits the deposit GL
// for the full balance, credits a premature-closure penalty when one
// applies, and pays out either in cash or split across named savings
// accounts.
type ClosureService struct {
	db            *sql.DB
	validator     *ValidationHelper
	cashGLAccount string
}

func NewClosureService(db *sql.DB, cashGLAccount string) *ClosureService {
	return &ClosureService{
		db:            db,
		validator:     NewValidationHelper(),
		cashGLAccount: cashGLAccount,
	}
}

// CreditAccount is one leg of a split payout.
type CreditAccount struct {
	AccountNumber string          `json:"accountNumber" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
}

// ClosureRequest is the deposit-account closure payload. PayoutAmount and
// PenaltyAmount are optional caller-side figures; the server computes the
// authoritative values and rejects a mismatch.
type ClosureRequest struct {
	AccountNumber  string           `json:"accountNumber" validate:"required"`
	PayoutAmount   *decimal.Decimal `json:"payoutAmount,omitempty"`
	PenaltyAmount  *decimal.Decimal `json:"penaltyAmount,omitempty"`
	Narration      string           `json:"narration" validate:"max=200"`
	VoucherType    string           `json:"voucherType" validate:"required,oneof=CASH TRANSFER"`
	CreditAccounts []CreditAccount  `json:"creditAccounts,omitempty" validate:"dive"`
	SelectedBatch  *int64           `json:"selectedBatch,omitempty"`
}

// ClosureResponse is the closure receipt.
type ClosureResponse struct {
	VoucherNo int64  `json:"voucher_no"`
	BatchID   int64  `json:"batch_id"`
	Message   string `json:"message"`
}

// ClosureTerms is the server-computed closure arithmetic.
type ClosureTerms struct {
	Premature      bool
	InterestEarned decimal.Decimal
	Penalty        decimal.Decimal
	Payout         decimal.Decimal
}

// Close handles deposit-account closure
// @Summary Close a term-deposit account
// @Tags deposits
// @Accept json
// @Produce json
// @Param request body ClosureRequest true "Closure data"
// @Success 201 {object} ClosureResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /deposits/close [post]
func (s *ClosureService) Close(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req ClosureRequest
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
		log.Printf("[POSTING] closure of %s failed: %v", req.AccountNumber, err)
		ledger.PostingsTotal.WithLabelValues("closure", "failed").Inc()
		RespondError(w, err)
		return
	}

	ledger.PostingsTotal.WithLabelValues("closure", "posted").Inc()
	SendJSON(w, http.StatusCreated, resp)
}

// computeClosureTerms derives the penalty and payout for closing a
// deposit. Interest earned is floored at zero so bad maturity data can
// never produce a negative penalty that credits the customer.
func computeClosureTerms(account *models.DepositAccount, penalRate decimal.Decimal, premature bool) ClosureTerms {
	interestEarned := account.MaturityAmount.Sub(account.DepositAmount)
	if interestEarned.IsNegative() {
		interestEarned = decimal.Zero
	}

	penalty := decimal.Zero
	if premature && penalRate.IsPositive() {
		penalty = interestEarned.Mul(penalRate).Div(decimal.NewFromInt(100)).Round(2)
	}

	return ClosureTerms{
		Premature:      premature,
		InterestEarned: interestEarned,
		Penalty:        penalty,
		Payout:         account.ClearBalance.Sub(penalty),
	}
}

// Post runs the closure workflow in one transaction: lock the deposit,
// compute penalty/payout, write the debit + penalty + payout legs, write
// savings transaction records for transfer payouts, zero the deposit
// balance, and flip its status.
func (s *ClosureService) Post(ctx context.Context, session *middleware.Session, req ClosureRequest) (*ClosureResponse, error) {
	timer := prometheus.NewTimer(ledger.PostingDuration.WithLabelValues("closure"))
	defer timer.ObserveDuration()

	voucherType := models.VoucherType(req.VoucherType)
	if !voucherType.Valid() {
		return nil, fmt.Errorf("%w: voucher type must be CASH or TRANSFER", ledger.ErrValidation)
	}
	if voucherType == models.VoucherTransfer && len(req.CreditAccounts) == 0 {
		return nil, fmt.Errorf("%w: TRANSFER closure requires at least one credit account", ledger.ErrValidation)
	}
	if voucherType == models.VoucherCash && len(req.CreditAccounts) > 0 {
		return nil, fmt.Errorf("%w: CASH closure pays out in cash, credit accounts are not allowed", ledger.ErrValidation)
	}
	seen := make(map[string]bool, len(req.CreditAccounts))
	for _, ca := range req.CreditAccounts {
		if !ca.Amount.IsPositive() {
			return nil, fmt.Errorf("%w: credit amount for %s must be positive", ledger.ErrValidation, ca.AccountNumber)
		}
		// Each target is locked and balance-written once; a repeated account
		// would compute both new balances from the same pre-image.
		if seen[ca.AccountNumber] {
			return nil, fmt.Errorf("%w: credit account %s listed more than once", ledger.ErrValidation, ca.AccountNumber)
		}
		seen[ca.AccountNumber] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback()

	account, err := lockDepositAccount(tx, session.Branch, req.AccountNumber)
	if err != nil {
		return nil, err
	}
	if !account.Status.Closable() {
		return nil, fmt.Errorf("%w: deposit account %s is already closed", ledger.ErrInvalidState, req.AccountNumber)
	}
	if !account.ClearBalance.IsPositive() {
		return nil, fmt.Errorf("%w: deposit account %s has no balance to pay out", ledger.ErrInvalidState, req.AccountNumber)
	}

	scheme, err := depositScheme(tx, session.Branch, account.SchemeCode)
	if err != nil {
		return nil, err
	}

	premature := account.MaturityDate.After(session.BusinessDate)
	terms := computeClosureTerms(account, scheme.PenalRate, premature)
	if terms.Payout.IsNegative() {
		return nil, fmt.Errorf("%w: penalty %s exceeds balance %s", ledger.ErrInvalidState, terms.Penalty, account.ClearBalance)
	}
	if req.PenaltyAmount != nil && !req.PenaltyAmount.Equal(terms.Penalty) {
		return nil, fmt.Errorf("%w: penalty mismatch, computed %s", ledger.ErrValidation, terms.Penalty)
	}
	if req.PayoutAmount != nil && !req.PayoutAmount.Equal(terms.Payout) {
		return nil, fmt.Errorf("%w: payout mismatch, computed %s", ledger.ErrValidation, terms.Payout)
	}

	if voucherType == models.VoucherTransfer {
		total := decimal.Zero
		for _, ca := range req.CreditAccounts {
			total = total.Add(ca.Amount)
		}
		if !total.Equal(terms.Payout) {
			return nil, fmt.Errorf("%w: credit accounts total %s, payout is %s", ledger.ErrValidation, total, terms.Payout)
		}
	}

	if _, err := ledger.ResolveAccount(tx, session.Branch, scheme.GLAccountCode); err != nil {
		return nil, err
	}
	if voucherType == models.VoucherCash {
		if _, err := ledger.ResolveAccount(tx, session.Branch, s.cashGLAccount); err != nil {
			return nil, err
		}
	}

	penaltyGL := scheme.GLAccountCode
	if scheme.PenalGLAccountCode != nil && *scheme.PenalGLAccountCode != "" {
		penaltyGL = *scheme.PenalGLAccountCode
	} else if terms.Penalty.IsPositive() {
		log.Printf("[POSTING] scheme %s has no penal GL account, crediting penalty to deposit GL %s",
			account.SchemeCode, scheme.GLAccountCode)
	}

	batch, err := ledger.OpenBatch(tx, session.Branch, voucherType, session.BusinessDate, session.UserID, req.SelectedBatch)
	if err != nil {
		return nil, err
	}

	narration := req.Narration
	if narration == "" {
		narration = "DEPOSIT CLOSURE " + req.AccountNumber
	}

	entry := ledger.NewEntry()
	entry.Debit(scheme.GLAccountCode, req.AccountNumber, account.ClearBalance, narration)
	if terms.Penalty.IsPositive() {
		entry.Credit(penaltyGL, req.AccountNumber, terms.Penalty, "PREMATURE CLOSURE PENALTY "+req.AccountNumber)
	}

	// Payout legs. Transfer payouts lock each target savings account and
	// carry its balance mutation inside this same transaction.
	type payoutTarget struct {
		account    *models.SavingsAccount
		amount     decimal.Decimal
		newBalance decimal.Decimal
	}
	var targets []payoutTarget

	if voucherType == models.VoucherCash {
		if terms.Payout.IsPositive() {
			entry.Credit(s.cashGLAccount, ledger.CashRefAccountID, terms.Payout, narration)
		}
	} else {
		for _, ca := range req.CreditAccounts {
			target, err := lockSavingsAccount(tx, session.Branch, ca.AccountNumber)
			if err != nil {
				return nil, err
			}
			if target.Status != models.SavingsActive {
				return nil, fmt.Errorf("%w: payout account %s is %s", ledger.ErrInvalidState, ca.AccountNumber, target.Status)
			}
			targetGL, err := savingsSchemeGL(tx, session.Branch, target.SchemeCode)
			if err != nil {
				return nil, err
			}
			entry.Credit(targetGL, ca.AccountNumber, ca.Amount, narration)
			targets = append(targets, payoutTarget{
				account:    target,
				amount:     ca.Amount,
				newBalance: target.AvailableBalance.Add(ca.Amount),
			})
		}
	}

	if err := batch.Append(tx, entry); err != nil {
		return nil, err
	}

	for _, t := range targets {
		if err := writeSavingsTransaction(tx, batch, t.account.AccountNumber, decimal.Zero, t.amount, t.newBalance, narration); err != nil {
			return nil, err
		}
		if err := updateSavingsBalance(tx, session.Branch, t.account.AccountNumber, t.newBalance); err != nil {
			return nil, err
		}
	}

	newStatus := models.DepositClosed
	if terms.Premature {
		newStatus = models.DepositPrematureClosed
	}
	result, err := tx.Exec(`
		UPDATE deposit_accounts SET clear_balance = 0, account_status = $1
		WHERE branch_id = $2 AND account_number = $3`,
		int(newStatus), session.Branch, req.AccountNumber)
	if err != nil {
		return nil, fmt.Errorf("deposit closure update failed: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("%w: deposit account %s vanished mid-posting", ledger.ErrNotFound, req.AccountNumber)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("tx commit failed: %w", err)
	}

	message := fmt.Sprintf("Deposit account %s closed, payout %s", req.AccountNumber, terms.Payout)
	if terms.Premature {
		message = fmt.Sprintf("Deposit account %s closed prematurely, penalty %s, payout %s",
			req.AccountNumber, terms.Penalty, terms.Payout)
	}

	return &ClosureResponse{
		VoucherNo: batch.VoucherID,
		BatchID:   batch.BatchID,
		Message:   message,
	}, nil
}

func lockDepositAccount(tx *sql.Tx, branchID, accountNumber string) (*models.DepositAccount, error) {
	account := models.DepositAccount{BranchID: branchID, AccountNumber: accountNumber}
	var rawStatus int
	err := tx.QueryRow(`
		SELECT membership_no, scheme_code, deposit_amount, maturity_amount,
		       clear_balance, account_status, open_date, maturity_date
		FROM deposit_accounts
		WHERE branch_id = $1 AND account_number = $2
		FOR UPDATE`, branchID, accountNumber).
		Scan(&account.MembershipNo, &account.SchemeCode, &account.DepositAmount, &account.MaturityAmount,
			&account.ClearBalance, &rawStatus, &account.OpenDate, &account.MaturityDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: deposit account %s", ledger.ErrNotFound, accountNumber)
	}
	if err != nil {
		return nil, fmt.Errorf("deposit account lock failed: %w", err)
	}

	account.Status, err = models.NormalizeDepositStatus(rawStatus)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrInvalidState, err)
	}
	return &account, nil
}

func depositScheme(tx *sql.Tx, branchID, schemeCode string) (*models.DepositScheme, error) {
	scheme := models.DepositScheme{BranchID: branchID, SchemeCode: schemeCode}
	err := tx.QueryRow(`
		SELECT gl_accountcode, penal_gl_accountcode, penal_rate FROM deposit_schemes
		WHERE branch_id = $1 AND scheme_code = $2`,
		branchID, schemeCode).Scan(&scheme.GLAccountCode, &scheme.PenalGLAccountCode, &scheme.PenalRate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no deposit scheme %s on branch %s", ledger.ErrConfiguration, schemeCode, branchID)
	}
	if err != nil {
		return nil, fmt.Errorf("deposit scheme lookup failed: %w", err)
	}
	return &scheme, nil
}
