package stock_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/FarukBas12/servistakip-sub001/internal/database/dbtest"
	"github.com/FarukBas12/servistakip-sub001/internal/stock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestImportExcel(t *testing.T) {
	ctx := context.Background()
	svc := stock.NewService(dbtest.New(t), false)
	existing := newItem(t, svc, "10", "2") // "NYM Kablo 3x2.5"

	buf := workbook(t, [][]any{
		{"Ad", "Kategori", "Birim", "Miktar", "Kritik Seviye"},
		{"nym kablo 3X2.5", "", "", "15", ""},
		{"Priz Kasası", "Elektrik", "adet", "1.250,5", "100"},
		{"Şalter", "Elektrik", "adet", "-3", ""},
		{"", "", "", "", ""},
		{"Vida", "Hırdavat", "", "abc", ""},
	})

	res, err := svc.ImportExcel(ctx, buf, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Restock)
	assert.Len(t, res.RowError, 2)

	got, err := svc.GetItem(ctx, existing.ID)
	require.NoError(t, err)
	assert.True(t, got.Quantity.Equal(dec("25")))
	assertLedger(t, svc, existing.ID)

	items, err := svc.ListItems(ctx, stock.ItemFilter{Search: "Priz"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Quantity.Equal(dec("1250.5")))
	assert.True(t, items[0].InitialQuantity.Equal(dec("1250.5")))
	assert.Equal(t, "adet", items[0].Unit)
}

func TestImportExcelRejectsGarbage(t *testing.T) {
	svc := stock.NewService(dbtest.New(t), false)
	_, err := svc.ImportExcel(context.Background(), bytes.NewReader([]byte("xlsx değil")), 1)
	assert.Error(t, err)
}
