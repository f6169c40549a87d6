package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/coopserve/corebanking/internal/ledger"
	"github.com/coopserve/corebanking/internal/models"
)

func TestComputeClosureTerms(t *testing.T) {
	account := &models.DepositAccount{
		DepositAmount:  decimal.RequireFromString("10000.00"),
		MaturityAmount: decimal.RequireFromString("11000.00"),
		ClearBalance:   decimal.RequireFromString("11000.00"),
	}

	t.Run("premature closure charges a rounded penalty", func(t *testing.T) {
		terms := computeClosureTerms(account, decimal.NewFromInt(2), true)

		assert.True(t, terms.InterestEarned.Equal(decimal.NewFromInt(1000)))
		assert.True(t, terms.Penalty.Equal(decimal.RequireFromString("20.00")))
		assert.True(t, terms.Payout.Equal(decimal.RequireFromString("10980.00")))
	})

	t.Run("mature closure pays the full balance", func(t *testing.T) {
		terms := computeClosureTerms(account, decimal.NewFromInt(2), false)

		assert.True(t, terms.Penalty.IsZero())
		assert.True(t, terms.Payout.Equal(decimal.RequireFromString("11000.00")))
	})

	t.Run("negative interest is clamped to zero", func(t *testing.T) {
		upsideDown := &models.DepositAccount{
			DepositAmount:  decimal.RequireFromString("11000.00"),
			MaturityAmount: decimal.RequireFromString("10000.00"),
			ClearBalance:   decimal.RequireFromString("11000.00"),
		}
		terms := computeClosureTerms(upsideDown, decimal.NewFromInt(2), true)

		assert.True(t, terms.InterestEarned.IsZero())
		assert.True(t, terms.Penalty.IsZero())
		assert.True(t, terms.Payout.Equal(decimal.RequireFromString("11000.00")))
	})

	t.Run("zero penal rate means no penalty", func(t *testing.T) {
		terms := computeClosureTerms(account, decimal.Zero, true)
		assert.True(t, terms.Penalty.IsZero())
	})
}

func TestClosureService_Post(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewClosureService(db, "100001")
	depositCols := []string{"membership_no", "scheme_code", "deposit_amount", "maturity_amount",
		"clear_balance", "account_status", "open_date", "maturity_date"}
	schemeCols := []string{"gl_accountcode", "penal_gl_accountcode", "penal_rate"}
	chartCols := []string{"accountcode", "accounttypecode", "accountbalance", "isledger", "isactive"}

	openDate := testDate.AddDate(0, -6, 0)
	futureMaturity := testDate.AddDate(0, 6, 0)

	t.Run("premature cash closure posts penalty to the configured penal GL", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT membership_no, scheme_code, deposit_amount, maturity_amount").
			WithArgs("001", "FD001").
			WillReturnRows(sqlmock.NewRows(depositCols).
				AddRow("M001", "FD01", "10000.00", "11000.00", "11000.00", 1, openDate, futureMaturity))
		mock.ExpectQuery("SELECT gl_accountcode, penal_gl_accountcode, penal_rate FROM deposit_schemes").
			WithArgs("001", "FD01").
			WillReturnRows(sqlmock.NewRows(schemeCols).AddRow("40001", "45001", "2"))
		mock.ExpectQuery("SELECT accountcode, accounttypecode, accountbalance, isledger, isactive").
			WithArgs("001", "40001").
			WillReturnRows(sqlmock.NewRows(chartCols).AddRow("40001", "L", "0", true, true))
		mock.ExpectQuery("SELECT accountcode, accounttypecode, accountbalance, isledger, isactive").
			WithArgs("001", "100001").
			WillReturnRows(sqlmock.NewRows(chartCols).AddRow("100001", "A", "0", true, true))
		mock.ExpectQuery("UPDATE gl_batch_sequences").
			WithArgs("001").
			WillReturnRows(sqlmock.NewRows([]string{"last_batch_id"}).AddRow(300))
		mock.ExpectQuery("INSERT INTO voucher_sequences").
			WithArgs("001", testDate).
			WillReturnRows(sqlmock.NewRows([]string{"last_voucher_no"}).AddRow(11))
		mock.ExpectExec("INSERT INTO gl_batches").
			WithArgs("001", int64(300), int64(11), "CASH", testDate, "PENDING", "42").
			WillReturnResult(sqlmock.NewResult(1, 1))

		// DR deposit GL full balance, CR penal GL penalty, CR cash payout.
		mock.ExpectExec("INSERT INTO gl_batch_lines").
			WithArgs("001", int64(300), testDate, "40001", "FD001",
				decimal.RequireFromString("11000.00"), decimal.Zero, int64(11), "DEPOSIT CLOSURE FD001", "42").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO gl_batch_lines").
			WithArgs("001", int64(300), testDate, "45001", "FD001",
				decimal.Zero, decimal.RequireFromString("20.00"), int64(11), "PREMATURE CLOSURE PENALTY FD001", "42").
			WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectExec("INSERT INTO gl_batch_lines").
			WithArgs("001", int64(300), testDate, "100001", "0",
				decimal.Zero, decimal.RequireFromString("10980.00"), int64(11), "DEPOSIT CLOSURE FD001", "42").
			WillReturnResult(sqlmock.NewResult(3, 1))

		mock.ExpectExec("UPDATE deposit_accounts SET clear_balance = 0, account_status").
			WithArgs(int(models.DepositPrematureClosed), "001", "FD001").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		resp, err := service.Post(context.Background(), testSession(), ClosureRequest{
			AccountNumber: "FD001",
			VoucherType:   "CASH",
		})

		assert.NoError(t, err)
		assert.Equal(t, int64(11), resp.VoucherNo)
		assert.Equal(t, int64(300), resp.BatchID)
		assert.Contains(t, resp.Message, "prematurely")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown payout account rolls back the whole closure", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT membership_no, scheme_code, deposit_amount, maturity_amount").
			WithArgs("001", "FD001").
			WillReturnRows(sqlmock.NewRows(depositCols).
				AddRow("M001", "FD01", "10000.00", "11000.00", "11000.00", 1, openDate, futureMaturity))
		mock.ExpectQuery("SELECT gl_accountcode, penal_gl_accountcode, penal_rate FROM deposit_schemes").
			WithArgs("001", "FD01").
			WillReturnRows(sqlmock.NewRows(schemeCols).AddRow("40001", nil, "2"))
		mock.ExpectQuery("SELECT accountcode, accounttypecode, accountbalance, isledger, isactive").
			WithArgs("001", "40001").
			WillReturnRows(sqlmock.NewRows(chartCols).AddRow("40001", "L", "0", true, true))
		mock.ExpectQuery("UPDATE gl_batch_sequences").
			WithArgs("001").
			WillReturnRows(sqlmock.NewRows([]string{"last_batch_id"}).AddRow(301))
		mock.ExpectQuery("INSERT INTO voucher_sequences").
			WithArgs("001", testDate).
			WillReturnRows(sqlmock.NewRows([]string{"last_voucher_no"}).AddRow(12))
		mock.ExpectExec("INSERT INTO gl_batches").
			WithArgs("001", int64(301), int64(12), "TRANSFER", testDate, "PENDING", "42").
			WillReturnResult(sqlmock.NewResult(1, 1))

		// Second leg target does not exist: nothing from this invocation
		// survives the rollback.
		mock.ExpectQuery("SELECT membership_no, scheme_code, available_balance, status FROM savings_accounts").
			WithArgs("001", "SB404").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := service.Post(context.Background(), testSession(), ClosureRequest{
			AccountNumber: "FD001",
			VoucherType:   "TRANSFER",
			CreditAccounts: []CreditAccount{
				{AccountNumber: "SB404", Amount: decimal.RequireFromString("10980.00")},
			},
		})

		assert.ErrorIs(t, err, ledger.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate payout account rejected before any work", func(t *testing.T) {
		// Two credits to the same account would both be computed from the
		// same locked pre-image, so the second balance write would overwrite
		// the first instead of stacking on it.
		_, err := service.Post(context.Background(), testSession(), ClosureRequest{
			AccountNumber: "FD001",
			VoucherType:   "TRANSFER",
			CreditAccounts: []CreditAccount{
				{AccountNumber: "SB001", Amount: decimal.RequireFromString("5490.00")},
				{AccountNumber: "SB001", Amount: decimal.RequireFromString("5490.00")},
			},
		})

		assert.ErrorIs(t, err, ledger.ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cash closure with credit accounts rejected", func(t *testing.T) {
		_, err := service.Post(context.Background(), testSession(), ClosureRequest{
			AccountNumber: "FD001",
			VoucherType:   "CASH",
			CreditAccounts: []CreditAccount{
				{AccountNumber: "SB001", Amount: decimal.NewFromInt(5000)},
			},
		})

		assert.ErrorIs(t, err, ledger.ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already closed account rejected", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT membership_no, scheme_code, deposit_amount, maturity_amount").
			WithArgs("001", "FD002").
			WillReturnRows(sqlmock.NewRows(depositCols).
				AddRow("M002", "FD01", "5000.00", "5500.00", "0.00", 3, openDate, testDate)).
			RowsWillBeClosed()
		mock.ExpectRollback()

		_, err := service.Post(context.Background(), testSession(), ClosureRequest{
			AccountNumber: "FD002",
			VoucherType:   "CASH",
		})

		assert.ErrorIs(t, err, ledger.ErrInvalidState)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("transfer payout must sum to the computed payout", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT membership_no, scheme_code, deposit_amount, maturity_amount").
			WithArgs("001", "FD001").
			WillReturnRows(sqlmock.NewRows(depositCols).
				AddRow("M001", "FD01", "10000.00", "11000.00", "11000.00", 1, openDate, futureMaturity))
		mock.ExpectQuery("SELECT gl_accountcode, penal_gl_accountcode, penal_rate FROM deposit_schemes").
			WithArgs("001", "FD01").
			WillReturnRows(sqlmock.NewRows(schemeCols).AddRow("40001", nil, "2"))
		mock.ExpectRollback()

		_, err := service.Post(context.Background(), testSession(), ClosureRequest{
			AccountNumber: "FD001",
			VoucherType:   "TRANSFER",
			CreditAccounts: []CreditAccount{
				{AccountNumber: "SB001", Amount: decimal.NewFromInt(5000)},
			},
		})

		assert.ErrorIs(t, err, ledger.ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
