package stock

import (
	"fmt"
	"io"

	"github.com/FarukBas12/servistakip-sub001/internal/models"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Stoklar"

var exportHeaders = []string{"ID", "Ad", "Kategori", "Birim", "Miktar", "Başlangıç", "Kritik Seviye", "Durum"}

// WriteExcel: stok listesini xlsx olarak yazar
func WriteExcel(w io.Writer, items []models.Stock) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("sayfa oluşturulamadı: %w", err)
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(exportSheet, cell, h)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err == nil {
		f.SetRowStyle(exportSheet, 1, 1, headerStyle)
	}

	for i, item := range items {
		row := i + 2
		status := "Normal"
		if item.IsLow() {
			status = "Kritik"
		}
		values := []any{
			item.ID,
			item.Name,
			item.Category,
			item.Unit,
			item.Quantity.InexactFloat64(),
			item.InitialQuantity.InexactFloat64(),
			item.CriticalLevel.InexactFloat64(),
			status,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(exportSheet, cell, v)
		}
	}

	f.SetColWidth(exportSheet, "A", "A", 8)
	f.SetColWidth(exportSheet, "B", "H", 18)

	return f.Write(w)
}
