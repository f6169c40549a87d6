package ledger

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestResolveAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	cols := []string{"accountcode", "accounttypecode", "accountbalance", "isledger", "isactive"}

	t.Run("active account", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		mock.ExpectQuery("SELECT accountcode, accounttypecode, accountbalance, isledger, isactive").
			WithArgs("001", "20001").
			WillReturnRows(sqlmock.NewRows(cols).AddRow("20001", "L", "150000.00", true, true))

		meta, err := ResolveAccount(tx, "001", "20001")
		assert.NoError(t, err)
		assert.Equal(t, "20001", meta.AccountCode)
		assert.True(t, meta.IsActive)
	})

	t.Run("unknown account aborts the batch", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		mock.ExpectQuery("SELECT accountcode, accounttypecode, accountbalance, isledger, isactive").
			WithArgs("001", "99999").
			WillReturnRows(sqlmock.NewRows(cols))

		_, err := ResolveAccount(tx, "001", "99999")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("inactive account rejected", func(t *testing.T) {
		mock.ExpectBegin()
		tx, _ := db.Begin()

		mock.ExpectQuery("SELECT accountcode, accounttypecode, accountbalance, isledger, isactive").
			WithArgs("001", "20002").
			WillReturnRows(sqlmock.NewRows(cols).AddRow("20002", "L", "0", true, false))

		_, err := ResolveAccount(tx, "001", "20002")
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}
