package dashboard

import (
	"testing"
	"time"

	"WaterTruckDashboard/src/config"
	"WaterTruckDashboard/src/datasource/file"
	"WaterTruckDashboard/src/processor"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/require"
)

var txHeader = []string{
	"Tanggal", "Pemasukan", "Pengeluaran", "Volume (L)", "Jumlah",
	"Jenis Transaksi", "Plat Nomor", "Sopir", "Order",
}

func frame(t *testing.T, header []string, rows ...[]string) dataframe.DataFrame {
	t.Helper()
	df := dataframe.LoadRecords(append([][]string{header}, rows...),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	require.NoError(t, df.Err)
	return df
}

func sampleRaw(t *testing.T) *file.RawDataset {
	t.Helper()
	return &file.RawDataset{
		Source:   "sample.xlsx",
		LoadedAt: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		Transactions: frame(t, txHeader,
			[]string{"2024-01-05", "1000000", "200000", "5000", "1", "Pengiriman Air", "B 1234 XY", "Joko", "Toko A"},
			[]string{"2024-01-20", "500000", "100000", "3000", "1", "Pengiriman Air", "B 1234 XY", "Budi", "Pasar B"},
			[]string{"2024-02-03", "750000", "50000", "4000", "1", "Pengiriman Air", "B 5678 ZZ", "Joko", "Toko A"},
			[]string{"2024-02-10", "0", "300000", "0", "1", "Servis", "B 5678 ZZ", "Joko", "Bengkel"},
			[]string{"2024-02-15", "250000", "0", "2000", "1", "Pengiriman Air", "####", "Sari", "Gudang"},
		),
		Locations: frame(t, []string{"Nama Lokasi", "Latitude", "Longitude"},
			[]string{"Toko A", "-6.2", "106.8"},
			[]string{"Pasar B", "-6.3", "106.9"},
			[]string{"Bengkel", "-6.4", "106.7"},
		),
	}
}

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(config.DefaultDataConfig())
}

func sampleResult(t *testing.T) *processor.Result {
	t.Helper()
	p, err := processor.NewPipeline(processor.OptionsFromConfig(config.DefaultDataConfig()), nil)
	require.NoError(t, err)
	res, err := p.Run(sampleRaw(t))
	require.NoError(t, err)
	return res
}

func newTestStore(t *testing.T, metrics *Metrics) *Store {
	t.Helper()
	p, err := processor.NewPipeline(processor.OptionsFromConfig(config.DefaultDataConfig()), nil)
	require.NoError(t, err)
	return NewStore(p, newTestAnalyzer(), metrics, nil)
}
