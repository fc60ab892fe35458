package stock

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/FarukBas12/servistakip-sub001/internal/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Kolon sırası: Ad | Kategori | Birim | Miktar | Kritik Seviye
const (
	colName = iota
	colCategory
	colUnit
	colQuantity
	colCritical
)

type ImportResult struct {
	Created  int      `json:"created"`
	Restock  int      `json:"restocked"` // mevcut kaleme giriş hareketi yazılanlar
	Skipped  int      `json:"skipped"`
	RowError []string `json:"row_errors"`
}

var turkishFold = strings.NewReplacer(
	"İ", "i", "I", "i", "ı", "i", "ş", "s", "Ş", "s", "ğ", "g", "Ğ", "g",
	"ü", "u", "Ü", "u", "ö", "o", "Ö", "o", "ç", "c", "Ç", "c",
)

// normalizeName: büyük/küçük harf ve Türkçe karakter duyarsız eşleştirme anahtarı
func normalizeName(s string) string {
	s = turkishFold.Replace(strings.TrimSpace(s))
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func isHeaderRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	first := normalizeName(row[0])
	return first == "ad" || first == "urun adi" || first == "malzeme" || first == "name"
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func parseCellDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	// "1.250,5" ve "1250.5" biçimleri
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return decimal.NewFromString(s)
}

// ImportExcel: ilk sayfadaki satırları okur. Adı eşleşen kaleme miktar kadar "in" hareketi
// yazılır, eşleşmeyen ad yeni kalem olarak açılır. Hatalı satırlar atlanır ve raporlanır.
func (s *Service) ImportExcel(ctx context.Context, r io.Reader, userID uint) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("excel dosyası okunamadı: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel dosyasında sayfa bulunamadı")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("sayfa okunamadı: %w", err)
	}

	var existing []models.Stock
	if err := s.DB.WithContext(ctx).Find(&existing).Error; err != nil {
		return nil, err
	}
	byName := make(map[string]uint, len(existing))
	for _, it := range existing {
		byName[normalizeName(it.Name)] = it.ID
	}

	res := &ImportResult{RowError: []string{}}
	for i, row := range rows {
		line := i + 1
		if i == 0 && isHeaderRow(row) {
			continue
		}
		name := cell(row, colName)
		if name == "" {
			res.Skipped++
			continue
		}
		qty, err := parseCellDecimal(cell(row, colQuantity))
		if err != nil || qty.IsNegative() {
			res.RowError = append(res.RowError, fmt.Sprintf("satır %d: geçersiz miktar %q", line, cell(row, colQuantity)))
			continue
		}
		critical, err := parseCellDecimal(cell(row, colCritical))
		if err != nil || critical.IsNegative() {
			res.RowError = append(res.RowError, fmt.Sprintf("satır %d: geçersiz kritik seviye %q", line, cell(row, colCritical)))
			continue
		}

		key := normalizeName(name)
		if id, ok := byName[key]; ok {
			if qty.IsZero() {
				res.Skipped++
				continue
			}
			_, err := s.Apply(ctx, ApplyInput{
				StockID:     id,
				Type:        models.StockIn,
				Quantity:    qty,
				Description: "Excel içe aktarma",
				UserID:      userID,
			})
			if err != nil {
				res.RowError = append(res.RowError, fmt.Sprintf("satır %d: %v", line, err))
				continue
			}
			res.Restock++
			continue
		}

		unit := cell(row, colUnit)
		if unit == "" {
			unit = "adet"
		}
		item, err := s.CreateItem(ctx, CreateItemInput{
			Name:          name,
			Category:      cell(row, colCategory),
			Unit:          unit,
			Quantity:      qty,
			CriticalLevel: critical,
		})
		if err != nil {
			res.RowError = append(res.RowError, fmt.Sprintf("satır %d: %v", line, err))
			continue
		}
		byName[key] = item.ID
		res.Created++
	}
	return res, nil
}
