package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/coopserve/corebanking/internal/ledger"
	"github.com/coopserve/corebanking/internal/middleware"
	"github.com/coopserve/corebanking/internal/models"
)

// ShareService posts share-capital deposits for members. The share class
// (A/B) on the membership decides which GL account receives the posting,
// and the amount must be an exact multiple of the configured face value.
type ShareService struct {
	db            *sql.DB
	validator     *ValidationHelper
	cashGLAccount string
}

func NewShareService(db *sql.DB, cashGLAccount string) *ShareService {
	return &ShareService{
		db:            db,
		validator:     NewValidationHelper(),
		cashGLAccount: cashGLAccount,
	}
}

// ShareTransactRequest is the share deposit payload.
type ShareTransactRequest struct {
	MembershipNo  string          `json:"membership_no" validate:"required"`
	VoucherType   string          `json:"voucher_type" validate:"required,oneof=CASH TRANSFER"`
	Amount        decimal.Decimal `json:"amount"`
	Narration     string          `json:"narration" validate:"max=200"`
	SelectedBatch *int64          `json:"selectedBatch,omitempty"`
}

// ShareTransactResponse is the posting receipt.
type ShareTransactResponse struct {
	VoucherNo int64  `json:"voucher_no"`
	BatchID   int64  `json:"batch_id"`
	Status    string `json:"status"`
}

// Transact handles share deposit posting
// @Summary Post a member share deposit
// @Tags shares
// @Accept json
// @Produce json
// @Param request body ShareTransactRequest true "Share transaction data"
// @Success 201 {object} ShareTransactResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /shares/transactions [post]
func (s *ShareService) Transact(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req ShareTransactRequest
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
		log.Printf("[POSTING] share deposit for %s failed: %v", req.MembershipNo, err)
		ledger.PostingsTotal.WithLabelValues("shares", "failed").Inc()
		RespondError(w, err)
		return
	}

	ledger.PostingsTotal.WithLabelValues("shares", "posted").Inc()
	SendJSON(w, http.StatusCreated, resp)
}

// Post runs the share posting workflow. The face-value multiple check
// happens after the config read but before any row is written, so a
// rejected amount leaves no trace.
func (s *ShareService) Post(ctx context.Context, session *middleware.Session, req ShareTransactRequest) (*ShareTransactResponse, error) {
	timer := prometheus.NewTimer(ledger.PostingDuration.WithLabelValues("shares"))
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

	share, err := lockMemberShare(tx, session.Branch, req.MembershipNo)
	if err != nil {
		return nil, err
	}
	if share.Status != models.SavingsActive {
		return nil, fmt.Errorf("%w: membership %s share record is %s", ledger.ErrInvalidState, req.MembershipNo, share.Status)
	}

	cfg, err := shareConfig(tx, session.Branch, share.ShareClass)
	if err != nil {
		return nil, err
	}
	if !req.Amount.Mod(cfg.FaceValue).IsZero() {
		return nil, fmt.Errorf("%w: amount %s is not a multiple of share face value %s",
			ledger.ErrValidation, req.Amount, cfg.FaceValue)
	}

	if _, err := ledger.ResolveAccount(tx, session.Branch, cfg.GLAccountCode); err != nil {
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
		narration = fmt.Sprintf("SHARE DEPOSIT CLASS %s", share.ShareClass)
	}

	entry := ledger.NewEntry()
	if voucherType == models.VoucherCash {
		entry.Debit(s.cashGLAccount, ledger.CashRefAccountID, req.Amount, narration)
	} else {
		entry.AllowPartial()
	}
	entry.Credit(cfg.GLAccountCode, req.MembershipNo, req.Amount, narration)

	if err := batch.Append(tx, entry); err != nil {
		return nil, err
	}

	newBalance := share.ShareBalance.Add(req.Amount)
	_, err = tx.Exec(`
		INSERT INTO member_share_transactions
			(reference_id, branch_id, membership_no, debit_amount, credit_amount,
			 balance, narration, batch_id, voucher_id, business_date, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		uuid.NewString(), session.Branch, req.MembershipNo, decimal.Zero, req.Amount,
		newBalance, narration, batch.BatchID, batch.VoucherID, session.BusinessDate, "PENDING", session.UserID)
	if err != nil {
		return nil, fmt.Errorf("share transaction insert failed: %w", err)
	}

	result, err := tx.Exec(`
		UPDATE member_shares SET share_balance = $1
		WHERE branch_id = $2 AND membership_no = $3`,
		newBalance, session.Branch, req.MembershipNo)
	if err != nil {
		return nil, fmt.Errorf("share balance update failed: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("%w: membership %s vanished mid-posting", ledger.ErrNotFound, req.MembershipNo)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("tx commit failed: %w", err)
	}

	return &ShareTransactResponse{
		VoucherNo: batch.VoucherID,
		BatchID:   batch.BatchID,
		Status:    "PENDING_APPROVAL",
	}, nil
}

func lockMemberShare(tx *sql.Tx, branchID, membershipNo string) (*models.MemberShare, error) {
	share := models.MemberShare{BranchID: branchID, MembershipNo: membershipNo}
	var rawStatus, rawClass string
	err := tx.QueryRow(`
		SELECT share_class, share_balance, status
		FROM member_shares
		WHERE branch_id = $1 AND membership_no = $2
		FOR UPDATE`, branchID, membershipNo).
		Scan(&rawClass, &share.ShareBalance, &rawStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: membership %s has no share record", ledger.ErrNotFound, membershipNo)
	}
	if err != nil {
		return nil, fmt.Errorf("share record lock failed: %w", err)
	}

	share.ShareClass = models.ShareClass(rawClass)
	if !share.ShareClass.Valid() {
		return nil, fmt.Errorf("%w: unknown share class %q", ledger.ErrInvalidState, rawClass)
	}
	share.Status, err = models.NormalizeSavingsStatus(rawStatus)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrInvalidState, err)
	}
	return &share, nil
}

func shareConfig(tx *sql.Tx, branchID string, class models.ShareClass) (*models.ShareConfig, error) {
	cfg := models.ShareConfig{BranchID: branchID, ShareClass: class}
	err := tx.QueryRow(`
		SELECT gl_accountcode, face_value FROM share_config
		WHERE branch_id = $1 AND share_class = $2`,
		branchID, string(class)).Scan(&cfg.GLAccountCode, &cfg.FaceValue)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no share config for class %s on branch %s", ledger.ErrConfiguration, class, branchID)
	}
	if err != nil {
		return nil, fmt.Errorf("share config lookup failed: %w", err)
	}
	return &cfg, nil
}
