package subcontractor_test

import (
	"context"
	"testing"
	"time"

	"github.com/FarukBas12/servistakip-sub001/internal/apperr"
	"github.com/FarukBas12/servistakip-sub001/internal/database/dbtest"
	"github.com/FarukBas12/servistakip-sub001/internal/models"
	"github.com/FarukBas12/servistakip-sub001/internal/subcontractor"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func price(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func setup(t *testing.T) (*subcontractor.Service, *models.Subcontractor) {
	t.Helper()
	svc := subcontractor.NewService(dbtest.New(t))
	sub, err := svc.Create(context.Background(), subcontractor.Input{Name: "Yıldız Elektrik"})
	require.NoError(t, err)
	return svc, sub
}

func payment(t *testing.T, svc *subcontractor.Service, subID uint, amount string, status models.PaymentStatus) *models.Payment {
	t.Helper()
	p, err := svc.CreatePayment(context.Background(), subcontractor.PaymentInput{
		SubcontractorID: subID,
		Title:           "Hakediş",
		Status:          status,
		Items: []subcontractor.PaymentItemInput{
			{WorkItem: "Kablo çekimi", Quantity: dec("1"), UnitPrice: price(amount)},
		},
	})
	require.NoError(t, err)
	return p
}

func TestBalanceIgnoresCancelledPayments(t *testing.T) {
	ctx := context.Background()
	svc, sub := setup(t)

	payment(t, svc, sub.ID, "1000", models.PaymentPending)
	payment(t, svc, sub.ID, "200", models.PaymentCancelled)
	_, err := svc.AddCashTransaction(ctx, subcontractor.CashInput{SubcontractorID: sub.ID, Amount: dec("300")})
	require.NoError(t, err)
	_, err = svc.AddCashTransaction(ctx, subcontractor.CashInput{SubcontractorID: sub.ID, Amount: dec("200")})
	require.NoError(t, err)

	bal, err := svc.Balance(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, bal.TotalPayments.Equal(dec("1000")))
	assert.True(t, bal.TotalCash.Equal(dec("500")))
	assert.True(t, bal.Balance.Equal(dec("500")), "bakiye: %s", bal.Balance)
}

func TestBalanceCanBeNegative(t *testing.T) {
	ctx := context.Background()
	svc, sub := setup(t)

	_, err := svc.AddCashTransaction(ctx, subcontractor.CashInput{SubcontractorID: sub.ID, Amount: dec("150")})
	require.NoError(t, err)

	bal, err := svc.Balance(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, bal.Balance.Equal(dec("-150")))

	_, err = svc.Balance(ctx, 999)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestCashTransactionRequiresPositiveAmount(t *testing.T) {
	svc, sub := setup(t)
	_, err := svc.AddCashTransaction(context.Background(), subcontractor.CashInput{SubcontractorID: sub.ID, Amount: dec("0")})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
}

func TestPaymentTotalEqualsSumOfItems(t *testing.T) {
	ctx := context.Background()
	svc, sub := setup(t)

	pl := models.PriceListItem{WorkItem: "Priz montajı", Unit: "adet", UnitPrice: dec("85.50"), Active: true}
	require.NoError(t, svc.DB.Create(&pl).Error)

	p, err := svc.CreatePayment(ctx, subcontractor.PaymentInput{
		SubcontractorID: sub.ID,
		Title:           "Mart hakedişi",
		Items: []subcontractor.PaymentItemInput{
			{PriceListItemID: &pl.ID, Quantity: dec("12")},
			{WorkItem: "Pano bağlantısı", Quantity: dec("2.5"), UnitPrice: price("340")},
			{PriceListItemID: &pl.ID, Quantity: dec("1"), UnitPrice: price("90")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, p.Status)

	stored, err := svc.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 3)

	sum := decimal.Zero
	for _, it := range stored.Items {
		assert.True(t, it.TotalPrice.Equal(it.Quantity.Mul(it.UnitPrice).Round(2)))
		sum = sum.Add(it.TotalPrice)
	}
	assert.True(t, stored.TotalAmount.Equal(sum))
	assert.True(t, stored.TotalAmount.Equal(dec("1966")), "toplam: %s", stored.TotalAmount)
	assert.Equal(t, "Priz montajı", stored.Items[0].WorkItem)
}

func TestCreatePaymentValidation(t *testing.T) {
	ctx := context.Background()
	svc, sub := setup(t)

	cases := map[string]subcontractor.PaymentInput{
		"kalem yok":       {SubcontractorID: sub.ID, Title: "x"},
		"sıfır miktar":    {SubcontractorID: sub.ID, Title: "x", Items: []subcontractor.PaymentItemInput{{WorkItem: "a", Quantity: dec("0"), UnitPrice: price("1")}}},
		"birim fiyat yok": {SubcontractorID: sub.ID, Title: "x", Items: []subcontractor.PaymentItemInput{{WorkItem: "a", Quantity: dec("1")}}},
		"negatif fiyat":   {SubcontractorID: sub.ID, Title: "x", Items: []subcontractor.PaymentItemInput{{WorkItem: "a", Quantity: dec("1"), UnitPrice: price("-1")}}},
		"geçersiz durum":  {SubcontractorID: sub.ID, Title: "x", Status: "odendi", Items: []subcontractor.PaymentItemInput{{WorkItem: "a", Quantity: dec("1"), UnitPrice: price("1")}}},
		"başlık yok":      {SubcontractorID: sub.ID, Items: []subcontractor.PaymentItemInput{{WorkItem: "a", Quantity: dec("1"), UnitPrice: price("1")}}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreatePayment(ctx, in)
			assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput), "hata: %v", err)
		})
	}

	_, err := svc.CreatePayment(ctx, subcontractor.PaymentInput{
		SubcontractorID: 999,
		Title:           "x",
		Items:           []subcontractor.PaymentItemInput{{WorkItem: "a", Quantity: dec("1"), UnitPrice: price("1")}},
	})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	var count int64
	require.NoError(t, svc.DB.Model(&models.Payment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdatePaymentStatusChangesBalance(t *testing.T) {
	ctx := context.Background()
	svc, sub := setup(t)
	p := payment(t, svc, sub.ID, "400", models.PaymentPending)

	updated, err := svc.UpdatePaymentStatus(ctx, p.ID, models.PaymentCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCancelled, updated.Status)

	bal, err := svc.Balance(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, bal.Balance.IsZero())

	_, err = svc.UpdatePaymentStatus(ctx, p.ID, "bilinmiyor")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
	_, err = svc.UpdatePaymentStatus(ctx, 999, models.PaymentPaid)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestListComputesBalancesPerSubcontractor(t *testing.T) {
	ctx := context.Background()
	svc, a := setup(t)
	b, err := svc.Create(ctx, subcontractor.Input{Name: "Anadolu Tesisat"})
	require.NoError(t, err)

	payment(t, svc, a.ID, "1000", models.PaymentPaid)
	_, err = svc.AddCashTransaction(ctx, subcontractor.CashInput{SubcontractorID: a.ID, Amount: dec("250")})
	require.NoError(t, err)
	payment(t, svc, b.ID, "90", models.PaymentPending)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	byID := map[uint]subcontractor.WithBalance{}
	for _, w := range list {
		byID[w.ID] = w
	}
	assert.True(t, byID[a.ID].Balance.Equal(dec("750")))
	assert.True(t, byID[b.ID].Balance.Equal(dec("90")))

	total, err := svc.TotalOpenBalance(ctx)
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("840")))
}

func TestStatementRunningBalanceMatchesBalance(t *testing.T) {
	ctx := context.Background()
	svc, sub := setup(t)
	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }

	_, err := svc.CreatePayment(ctx, subcontractor.PaymentInput{
		SubcontractorID: sub.ID, Title: "1. hakediş", PaymentDate: day(1),
		Items: []subcontractor.PaymentItemInput{{WorkItem: "a", Quantity: dec("1"), UnitPrice: price("500")}},
	})
	require.NoError(t, err)
	_, err = svc.AddCashTransaction(ctx, subcontractor.CashInput{SubcontractorID: sub.ID, Amount: dec("200"), Date: day(5)})
	require.NoError(t, err)
	_, err = svc.CreatePayment(ctx, subcontractor.PaymentInput{
		SubcontractorID: sub.ID, Title: "2. hakediş", PaymentDate: day(10),
		Items: []subcontractor.PaymentItemInput{{WorkItem: "b", Quantity: dec("2"), UnitPrice: price("150")}},
	})
	require.NoError(t, err)
	_, err = svc.CreatePayment(ctx, subcontractor.PaymentInput{
		SubcontractorID: sub.ID, Title: "iptal", PaymentDate: day(11), Status: models.PaymentCancelled,
		Items: []subcontractor.PaymentItemInput{{WorkItem: "c", Quantity: dec("1"), UnitPrice: price("999")}},
	})
	require.NoError(t, err)

	st, err := svc.Statement(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, st.Entries, 3)
	assert.Equal(t, "payment", st.Entries[0].Kind)
	assert.Equal(t, "cash", st.Entries[1].Kind)
	assert.True(t, st.Entries[1].Running.Equal(dec("300")))

	bal, err := svc.Balance(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, st.Balance.Equal(bal.Balance))
	assert.True(t, bal.Balance.Equal(dec("600")))
}

func TestDeleteRemovesEverything(t *testing.T) {
	ctx := context.Background()
	svc, sub := setup(t)
	payment(t, svc, sub.ID, "100", models.PaymentPending)
	_, err := svc.AddCashTransaction(ctx, subcontractor.CashInput{SubcontractorID: sub.ID, Amount: dec("10")})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, sub.ID))

	for _, m := range []any{&models.Payment{}, &models.PaymentItem{}, &models.CashTransaction{}, &models.Subcontractor{}} {
		var n int64
		require.NoError(t, svc.DB.Model(m).Count(&n).Error)
		assert.Zero(t, n)
	}
	assert.True(t, apperr.IsKind(svc.Delete(ctx, sub.ID), apperr.KindNotFound))
}

func TestDeletePayment(t *testing.T) {
	ctx := context.Background()
	svc, sub := setup(t)
	p := payment(t, svc, sub.ID, "100", models.PaymentPending)

	require.NoError(t, svc.DeletePayment(ctx, p.ID))
	_, err := svc.GetPayment(ctx, p.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	var n int64
	require.NoError(t, svc.DB.Model(&models.PaymentItem{}).Count(&n).Error)
	assert.Zero(t, n)
}
