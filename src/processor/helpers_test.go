package processor

import (
	"testing"

	"WaterTruckDashboard/src/config"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/require"
)

var (
	testSchema = SchemaFromConfig(config.DefaultDataConfig())
	txHeader   = []string{
		"Tanggal", "Pemasukan", "Pengeluaran", "Volume (L)", "Jumlah",
		"Jenis Transaksi", "Plat Nomor", "Sopir", "Order",
	}
	locHeader = []string{"Nama Lokasi", "Latitude", "Longitude"}
)

// frame 构造全部为String列的DataFrame，"NaN" 表示空单元格(NA)
func frame(t *testing.T, header []string, rows ...[]string) dataframe.DataFrame {
	t.Helper()
	records := append([][]string{header}, rows...)
	df := dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	require.NoError(t, df.Err)
	return df
}

func newTestPipeline(t *testing.T, strategy, visibility string) *Pipeline {
	t.Helper()
	dcfg := config.DefaultDataConfig()
	opts := OptionsFromConfig(dcfg)
	opts.Strategy = strategy
	opts.Visibility = visibility
	p, err := NewPipeline(opts, nil)
	require.NoError(t, err)
	return p
}

func sampleLocations(t *testing.T) dataframe.DataFrame {
	return frame(t, locHeader,
		[]string{"Toko A", "-6.2", "106.8"},
		[]string{"Pasar B", "-6.3", ""},
	)
}
