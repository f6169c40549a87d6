package services

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/coopserve/corebanking/internal/ledger"
	"github.com/coopserve/corebanking/internal/middleware"
	"github.com/coopserve/corebanking/internal/models"
)

// GLService serves read-only views over committed ledger data, used by the
// voucher receipt screens.
type GLService struct {
	db *sql.DB
}

func NewGLService(db *sql.DB) *GLService {
	return &GLService{db: db}
}

// GetBatch returns a batch header with its lines
// @Summary Get a GL batch with its lines
// @Tags gl
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 404 {object} ErrorResponse
// @Router /gl/batches/{batchID} [get]
func (s *GLService) GetBatch(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	batchID, err := strconv.ParseInt(chi.URLParam(r, "batchID"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid batch id", http.StatusBadRequest, nil)
		return
	}

	var batch models.GLBatch
	var voucherType, status string
	err = s.db.QueryRowContext(r.Context(), `
		SELECT branch_id, batch_id, voucher_id, voucher_type, business_date,
		       status, maker_id, checker_id, created_at
		FROM gl_batches
		WHERE branch_id = $1 AND batch_id = $2`,
		session.Branch, batchID).
		Scan(&batch.BranchID, &batch.BatchID, &batch.VoucherID, &voucherType, &batch.BusinessDate,
			&status, &batch.MakerID, &batch.CheckerID, &batch.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		RespondError(w, fmt.Errorf("%w: batch %d", ledger.ErrNotFound, batchID))
		return
	}
	if err != nil {
		log.Printf("[GL] batch lookup failed: %v", err)
		SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
		return
	}
	batch.VoucherType = models.VoucherType(voucherType)
	batch.Status = models.BatchStatus(status)

	lines, err := s.batchLines(r, session.Branch, batchID)
	if err != nil {
		log.Printf("[GL] batch line fetch failed: %v", err)
		SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"batch": batch,
		"lines": lines,
	})
}

// ListBatchLines returns the lines of a batch
// @Summary List GL batch lines
// @Tags gl
// @Produce json
// @Success 200 {array} models.GLBatchLine
// @Router /gl/batches/{batchID}/lines [get]
func (s *GLService) ListBatchLines(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	batchID, err := strconv.ParseInt(chi.URLParam(r, "batchID"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid batch id", http.StatusBadRequest, nil)
		return
	}

	lines, err := s.batchLines(r, session.Branch, batchID)
	if err != nil {
		log.Printf("[GL] batch line fetch failed: %v", err)
		SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, lines)
}

func (s *GLService) batchLines(r *http.Request, branchID string, batchID int64) ([]models.GLBatchLine, error) {
	rows, err := s.db.QueryContext(r.Context(), `
		SELECT id, business_date, accountcode, ref_account_id, debit_amount,
		       credit_amount, voucher_id, narration, created_by, created_at
		FROM gl_batch_lines
		WHERE branch_id = $1 AND batch_id = $2
		ORDER BY id`, branchID, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []models.GLBatchLine{}
	for rows.Next() {
		line := models.GLBatchLine{BranchID: branchID, BatchID: batchID}
		if err := rows.Scan(&line.ID, &line.BusinessDate, &line.AccountCode, &line.RefAccountID,
			&line.DebitAmount, &line.CreditAmount, &line.VoucherID, &line.Narration,
			&line.CreatedBy, &line.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
