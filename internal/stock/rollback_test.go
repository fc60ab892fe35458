package stock_test

import (
	"context"
	"errors"
	"testing"

	"github.com/FarukBas12/servistakip-sub001/internal/apperr"
	"github.com/FarukBas12/servistakip-sub001/internal/models"
	"github.com/FarukBas12/servistakip-sub001/internal/stock"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

// Miktar güncellendikten sonra hareket kaydı yazılamazsa her şey geri alınmalı
func TestApplyRollsBackWhenLedgerInsertFails(t *testing.T) {
	db, mock := newMockDB(t)
	svc := stock.NewService(db, false)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "stocks" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "stock_transactions"`).WillReturnError(errors.New("disk dolu"))
	mock.ExpectRollback()

	_, err := svc.Apply(context.Background(), stock.ApplyInput{
		StockID:  1,
		Type:     models.StockOut,
		Quantity: dec("5"),
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConsistency))

	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.True(t, ae.Retryable())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyRollsBackWhenQuantityUpdateFails(t *testing.T) {
	db, mock := newMockDB(t)
	svc := stock.NewService(db, false)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "stocks" SET`).WillReturnError(errors.New("bağlantı koptu"))
	mock.ExpectRollback()

	_, err := svc.Apply(context.Background(), stock.ApplyInput{StockID: 1, Type: models.StockIn, Quantity: dec("1")})
	assert.True(t, apperr.IsKind(err, apperr.KindConsistency))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Miktar kontrolü ayrı bir SELECT ile değil, tek koşullu UPDATE ile yapılmalı.
// Eşzamanlılık testleri tek bağlantılı SQLite üzerinde sıraya girdiği için
// oku-sonra-yaz yarışını ancak bu sıra kontrolü yakalar.
func TestApplyUsesSingleConditionalUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	svc := stock.NewService(db, false)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "stocks" SET "quantity"=quantity \+ \$1.*WHERE id = \$\d+ AND quantity >= \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "stock_transactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`SELECT \* FROM "stocks"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "unit", "quantity", "initial_quantity"}).
			AddRow(1, "Kablo", "m", "5", "10"))
	mock.ExpectCommit()

	res, err := svc.Apply(context.Background(), stock.ApplyInput{StockID: 1, Type: models.StockOut, Quantity: dec("5")})
	require.NoError(t, err)
	assert.Equal(t, uint(7), res.Transaction.ID)
	assert.True(t, res.Stock.Quantity.Equal(dec("5")))

	assert.NoError(t, mock.ExpectationsWereMet())
}
