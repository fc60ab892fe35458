package project_test

import (
	"context"
	"errors"
	"testing"

	"github.com/FarukBas12/servistakip-sub001/internal/apperr"
	"github.com/FarukBas12/servistakip-sub001/internal/database/dbtest"
	"github.com/FarukBas12/servistakip-sub001/internal/models"
	"github.com/FarukBas12/servistakip-sub001/internal/project"
	"github.com/FarukBas12/servistakip-sub001/internal/stock"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	db     *gorm.DB
	stocks *stock.Service
	svc    *project.Service
	item   *models.Stock
	proj   *models.Project
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := dbtest.New(t)
	stocks := stock.NewService(db, false)
	svc := project.NewService(db, stocks)

	item, err := stocks.CreateItem(ctx, stock.CreateItemInput{Name: "Kombi filtresi", Unit: "adet", Quantity: dec("20")})
	require.NoError(t, err)
	proj, err := svc.Create(ctx, project.Input{Name: "Okul kalorifer yenileme"})
	require.NoError(t, err)

	return &fixture{db: db, stocks: stocks, svc: svc, item: item, proj: proj}
}

func (f *fixture) quantity(t *testing.T) decimal.Decimal {
	t.Helper()
	got, err := f.stocks.GetItem(context.Background(), f.item.ID)
	require.NoError(t, err)
	return got.Quantity
}

func (f *fixture) addMaterialExpense(t *testing.T, qty string) *models.ProjectExpense {
	t.Helper()
	exp, err := f.svc.AddExpense(context.Background(), project.ExpenseInput{
		ProjectID:   f.proj.ID,
		Description: "Filtre değişimi",
		Amount:      dec("450"),
		Material:    &project.Material{StockID: f.item.ID, Quantity: dec(qty)},
		UserID:      1,
	})
	require.NoError(t, err)
	return exp
}

func TestAddExpenseConsumesStock(t *testing.T) {
	f := setup(t)
	exp := f.addMaterialExpense(t, "5")

	require.NotNil(t, exp.StockTransactionID)
	assert.True(t, f.quantity(t).Equal(dec("15")))

	var txn models.StockTransaction
	require.NoError(t, f.db.First(&txn, *exp.StockTransactionID).Error)
	assert.Equal(t, models.StockOut, txn.Type)
	require.NotNil(t, txn.ProjectID)
	assert.Equal(t, f.proj.ID, *txn.ProjectID)
}

func TestAddExpenseInsufficientStockWritesNothing(t *testing.T) {
	f := setup(t)

	_, err := f.svc.AddExpense(context.Background(), project.ExpenseInput{
		ProjectID:   f.proj.ID,
		Description: "Fazla tüketim",
		Material:    &project.Material{StockID: f.item.ID, Quantity: dec("21")},
	})
	assert.True(t, errors.Is(err, stock.ErrInsufficientStock))

	var n int64
	require.NoError(t, f.db.Model(&models.ProjectExpense{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.True(t, f.quantity(t).Equal(dec("20")))
}

func TestDeleteExpenseRestoresStock(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	exp := f.addMaterialExpense(t, "5")

	_, err := f.svc.DeleteExpense(ctx, exp.ID, 1)
	require.NoError(t, err)
	assert.True(t, f.quantity(t).Equal(dec("20")))

	var reversal models.StockTransaction
	require.NoError(t, f.db.Where("reversal_of_id = ?", *exp.StockTransactionID).First(&reversal).Error)
	assert.Equal(t, models.StockIn, reversal.Type)
	assert.True(t, reversal.Quantity.Equal(dec("5")))

	check, err := f.stocks.Reconcile(ctx, f.item.ID)
	require.NoError(t, err)
	assert.True(t, check.Consistent)

	_, err = f.svc.DeleteExpense(ctx, exp.ID, 1)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestDeleteExpenseWithoutMaterialOrWithDeletedStock(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	plain, err := f.svc.AddExpense(ctx, project.ExpenseInput{ProjectID: f.proj.ID, Description: "İşçilik", Amount: dec("1200")})
	require.NoError(t, err)
	assert.Nil(t, plain.StockTransactionID)
	_, err = f.svc.DeleteExpense(ctx, plain.ID, 1)
	require.NoError(t, err)

	linked := f.addMaterialExpense(t, "2")
	require.NoError(t, f.stocks.DeleteItem(ctx, f.item.ID))
	_, err = f.svc.DeleteExpense(ctx, linked.ID, 1)
	require.NoError(t, err)
}

func TestDeleteExpenseFailureLeavesEverythingUntouched(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	exp := f.addMaterialExpense(t, "5")

	err := f.db.Callback().Create().Before("gorm:create").Register("test:fail_reversal", func(tx *gorm.DB) {
		if tx.Statement.Table == "stock_transactions" {
			tx.AddError(errors.New("defter yazılamadı"))
		}
	})
	require.NoError(t, err)

	_, err = f.svc.DeleteExpense(ctx, exp.ID, 1)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConsistency))

	var still models.ProjectExpense
	require.NoError(t, f.db.First(&still, exp.ID).Error)
	assert.True(t, f.quantity(t).Equal(dec("15")))

	var txns int64
	require.NoError(t, f.db.Model(&models.StockTransaction{}).Count(&txns).Error)
	assert.EqualValues(t, 1, txns)
}

func TestDeleteProjectReversesAllExpenses(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.addMaterialExpense(t, "3")
	f.addMaterialExpense(t, "4")
	_, err := f.svc.AddFile(ctx, project.FileInput{ProjectID: f.proj.ID, FileName: "kesif.pdf", StoredName: "abc.pdf"})
	require.NoError(t, err)
	assert.True(t, f.quantity(t).Equal(dec("13")))

	files, err := f.svc.Delete(ctx, f.proj.ID, 1)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "abc.pdf", files[0].StoredName)

	assert.True(t, f.quantity(t).Equal(dec("20")))
	_, err = f.svc.Get(ctx, f.proj.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	var n int64
	require.NoError(t, f.db.Model(&models.ProjectExpense{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.addMaterialExpense(t, "1")
	_, err := f.svc.AddExpense(ctx, project.ExpenseInput{ProjectID: f.proj.ID, Description: "Nakliye", Amount: dec("150.25")})
	require.NoError(t, err)

	sum, err := f.svc.Summary(ctx, f.proj.ID)
	require.NoError(t, err)
	assert.True(t, sum.ExpenseTotal.Equal(dec("600.25")), "toplam: %s", sum.ExpenseTotal)
	assert.EqualValues(t, 2, sum.ExpenseCount)
	assert.EqualValues(t, 1, sum.MaterialLines)
}

func TestProjectValidation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.Create(ctx, project.Input{Name: ""})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
	_, err = f.svc.Create(ctx, project.Input{Name: "x", Status: "arsiv"})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))

	_, err = f.svc.AddExpense(ctx, project.ExpenseInput{ProjectID: 999, Description: "x"})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	_, err = f.svc.AddExpense(ctx, project.ExpenseInput{ProjectID: f.proj.ID, Description: "x", Amount: dec("-1")})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))

	updated, err := f.svc.Update(ctx, f.proj.ID, project.Input{Name: "Okul kalorifer", Status: models.ProjectCompleted})
	require.NoError(t, err)
	assert.Equal(t, models.ProjectCompleted, updated.Status)
}
