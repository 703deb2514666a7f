package datapush

import (
	"bytes"
	"crypto/tls"
	"errors"
	"net/smtp"
	"path/filepath"
	"testing"
	"time"

	"WaterTruckDashboard/src/config"
	"WaterTruckDashboard/src/dashboard"
	"WaterTruckDashboard/src/datasource/file"
	"WaterTruckDashboard/src/processor"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func frame(t *testing.T, header []string, rows ...[]string) dataframe.DataFrame {
	t.Helper()
	df := dataframe.LoadRecords(append([][]string{header}, rows...),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	require.NoError(t, df.Err)
	return df
}

func sampleDashboard(t *testing.T) (*dashboard.Dashboard, *processor.Result) {
	t.Helper()
	dcfg := config.DefaultDataConfig()
	raw := &file.RawDataset{
		Source:   "laporan.xlsx",
		LoadedAt: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		Transactions: frame(t,
			[]string{"Tanggal", "Pemasukan", "Pengeluaran", "Volume (L)", "Jumlah", "Jenis Transaksi", "Plat Nomor", "Sopir", "Order"},
			[]string{"2024-01-05", "1000000", "200000", "5000", "1", "Pengiriman Air", "B 1234 XY", "Joko", "Toko A"},
			[]string{"2024-02-03", "750000", "50000", "4000", "1", "Pengiriman Air", "B 1234 XY", "unknown", "Toko A"},
			[]string{"bukan tanggal", "0", "300000", "0", "1", "Servis", "B 5678 ZZ", "Budi", "Bengkel"},
		),
		Locations: frame(t, []string{"Nama Lokasi", "Latitude", "Longitude"},
			[]string{"Toko A", "-6.2", "106.8"},
		),
	}

	p, err := processor.NewPipeline(processor.OptionsFromConfig(dcfg), nil)
	require.NoError(t, err)
	res, err := p.Run(raw)
	require.NoError(t, err)

	d, err := dashboard.NewAnalyzer(dcfg).Build(res, dashboard.Selection{})
	require.NoError(t, err)
	return d, res
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.SendEmail.Server = "smtp.example.com"
	cfg.SendEmail.Username = "bot@example.com"
	cfg.SendEmail.Password = "secret"
	cfg.SendEmail.To = []string{"owner@example.com"}
	return cfg
}

func TestBuildText(t *testing.T) {
	d, res := sampleDashboard(t)
	text := BuildText(d, res)

	assert.Contains(t, text, "Sumber data: laporan.xlsx")
	assert.Contains(t, text, "Total Pemasukan: Rp 1.750.000")
	assert.Contains(t, text, "Laba Bersih: Rp 1.200.000")
	assert.Contains(t, text, "Total Volume Air: 9.000 L")
	assert.Contains(t, text, "- Sopir: 1 / 0")
	assert.Contains(t, text, "Tanggal tidak valid: 1")
	assert.NotContains(t, text, "PERINGATAN")
}

func TestBuildWorkbook(t *testing.T) {
	d, res := sampleDashboard(t)
	data, err := BuildWorkbook(d, res)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Ringkasan", "Bulanan", "Kendaraan", "Sopir", "Data Bersih"}, f.GetSheetList())

	rows, err := f.GetRows("Ringkasan")
	require.NoError(t, err)
	assert.Equal(t, []string{"Metrik", "Nilai"}, rows[0])
	assert.Equal(t, []string{"Transaksi", "3"}, rows[1])

	monthly, err := f.GetRows("Bulanan")
	require.NoError(t, err)
	require.Len(t, monthly, 3)
	assert.Equal(t, "2024-01", monthly[1][0])
	assert.Equal(t, "2024-02", monthly[2][0])

	cleaned, err := f.GetRows("Data Bersih")
	require.NoError(t, err)
	assert.Len(t, cleaned, 4)
}

func TestPusherMessage(t *testing.T) {
	d, res := sampleDashboard(t)
	p := NewPusher(testConfig(), nil)

	e, err := p.Message(d, res)
	require.NoError(t, err)
	assert.Equal(t, []string{"owner@example.com"}, e.To)
	assert.Contains(t, e.Subject, defaultSubject)
	require.Len(t, e.Attachments, 1)
	assert.Contains(t, e.Attachments[0].Filename, ".xlsx")
	assert.Equal(t, xlsxContentType, e.Attachments[0].ContentType)

	raw, err := e.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "multipart/mixed")
}

func TestPusherMessageErrors(t *testing.T) {
	d, res := sampleDashboard(t)

	_, err := NewPusher(testConfig(), nil).Message(nil, res)
	assert.Error(t, err)

	cfg := testConfig()
	cfg.SendEmail.To = nil
	_, err = NewPusher(cfg, nil).Message(d, res)
	assert.Error(t, err)
}

func TestPusherPushRetries(t *testing.T) {
	d, res := sampleDashboard(t)
	p := NewPusher(testConfig(), nil)
	p.interval = 0

	var calls int
	var gotAddr, gotHost string
	p.send = func(e *email.Email, addr string, auth smtp.Auth, tc *tls.Config) error {
		calls++
		gotAddr, gotHost = addr, tc.ServerName
		if calls < 2 {
			return errors.New("connection reset")
		}
		return nil
	}

	require.NoError(t, p.Push(d, res))
	assert.Equal(t, 2, calls)
	assert.Equal(t, "smtp.example.com:465", gotAddr)
	assert.Equal(t, "smtp.example.com", gotHost)

	calls = 0
	p.send = func(*email.Email, string, smtp.Auth, *tls.Config) error {
		calls++
		return errors.New("auth failed")
	}
	assert.Error(t, p.Push(d, res))
	assert.Equal(t, RETRY_TIMES, calls)
}

func TestPusherPushSavesCopy(t *testing.T) {
	d, res := sampleDashboard(t)
	cfg := testConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "arsip")
	p := NewPusher(cfg, nil)
	p.send = func(*email.Email, string, smtp.Auth, *tls.Config) error { return nil }

	require.NoError(t, p.Push(d, res))

	f, err := excelize.OpenFile(filepath.Join(cfg.DataDir, workbookName(res)))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "Ringkasan", f.GetSheetList()[0])

	v, err := f.GetCellValue("Ringkasan", "B2")
	require.NoError(t, err)
	assert.Equal(t, "3", v)
}
