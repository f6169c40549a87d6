package ledger

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestNextBatchID(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	t.Run("monotonic increment", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		mock.ExpectQuery("UPDATE gl_batch_sequences").
			WithArgs("001").
			WillReturnRows(sqlmock.NewRows([]string{"last_batch_id"}).AddRow(101))
		mock.ExpectQuery("UPDATE gl_batch_sequences").
			WithArgs("001").
			WillReturnRows(sqlmock.NewRows([]string{"last_batch_id"}).AddRow(102))

		first, err := NextBatchID(tx, "001")
		assert.NoError(t, err)
		second, err := NextBatchID(tx, "001")
		assert.NoError(t, err)

		assert.Equal(t, int64(101), first)
		assert.Equal(t, int64(102), second)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing sequence row is a configuration fault", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		mock.ExpectQuery("UPDATE gl_batch_sequences").
			WithArgs("999").
			WillReturnError(sql.ErrNoRows)

		_, err := NextBatchID(tx, "999")
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestNextVoucherNo(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	businessDate := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	t.Run("upserts on first use", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		mock.ExpectQuery("INSERT INTO voucher_sequences").
			WithArgs("001", businessDate).
			WillReturnRows(sqlmock.NewRows([]string{"last_voucher_no"}).AddRow(1))

		no, err := NextVoucherNo(tx, "001", businessDate)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), no)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
