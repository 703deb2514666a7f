package file

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
)

const (
	txSheet  = "Dataset Keuangan Truk Air Isi U"
	locSheet = "lokasi"
)

var txHeader = []interface{}{
	"Tanggal", "Pemasukan", "Pengeluaran", "Volume (L)", "Jumlah",
	"Jenis Transaksi", "Plat Nomor", "Sopir", "Order",
}

var locHeader = []interface{}{"Nama Lokasi", "Latitude", "Longitude"}

// sheetSpec 一个工作表的内容，nil表示空单元格
type sheetSpec struct {
	name string
	rows [][]interface{}
}

func writeWorkbook(t *testing.T, sheets ...sheetSpec) string {
	t.Helper()

	wb := xlsx.NewFile()
	for _, spec := range sheets {
		sheet, err := wb.AddSheet(spec.name)
		require.NoError(t, err)
		for _, values := range spec.rows {
			row := sheet.AddRow()
			for _, v := range values {
				cell := row.AddCell()
				switch val := v.(type) {
				case nil:
				case string:
					cell.SetString(val)
				case int:
					cell.SetInt(val)
				case float64:
					cell.SetFloat(val)
				default:
					t.Fatalf("unsupported fixture value %T", v)
				}
			}
		}
	}

	path := filepath.Join(t.TempDir(), "Dataset Keuangan Truk Air Isi Ulang 2024.xlsx")
	require.NoError(t, wb.Save(path))
	return path
}

func sampleWorkbook(t *testing.T) string {
	return writeWorkbook(t,
		sheetSpec{name: txSheet, rows: [][]interface{}{
			txHeader,
			{"2024-01-05", 1000, nil, 500, 1, "Pengiriman Air", "B123", "", "Toko A"},
			{45297, 2000, 500, 800, 2, "Pengiriman Air", "B123", "Joko", "Toko A"},
			{nil, nil, nil, nil, nil, nil, nil, nil, nil},
			{"bukan tanggal", "abc", 250.5, nil, nil, "Servis", "unknown", "Budi", "Bengkel"},
		}},
		sheetSpec{name: locSheet, rows: [][]interface{}{
			locHeader,
			{"Toko A", -6.2, 106.8},
			{"Pasar B", -6.3, nil},
		}},
	)
}
