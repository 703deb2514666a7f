package datapush

import (
	"bytes"
	"fmt"
	"strings"

	"WaterTruckDashboard/src/dashboard"
	"WaterTruckDashboard/src/processor"
	"WaterTruckDashboard/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// BuildText 生成摘要正文
func BuildText(d *dashboard.Dashboard, res *processor.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Ringkasan Dashboard Truk Air (%s)\n", res.CleanedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Sumber data: %s\n", res.Source)
	fmt.Fprintf(&b, "Snapshot: %s\n\n", res.ID)

	fmt.Fprintf(&b, "Transaksi: %d\n", d.Finance.Transactions)
	fmt.Fprintf(&b, "Total Pemasukan: %s\n", d.Finance.Display.TotalIncome)
	fmt.Fprintf(&b, "Total Pengeluaran: %s\n", d.Finance.Display.TotalExpense)
	fmt.Fprintf(&b, "Laba Bersih: %s\n", d.Finance.Display.NetProfit)
	fmt.Fprintf(&b, "Total Volume Air: %s\n", d.Delivery.Display)

	if d.Fleet != nil {
		fmt.Fprintf(&b, "Kendaraan aktif: %d, paling sering: %s (%d)\n",
			d.Fleet.ActiveVehicles, d.Fleet.MostUsed, d.Fleet.MostUsedCount)
	}
	if d.Drivers != nil {
		fmt.Fprintf(&b, "Sopir aktif: %d, terbaik: %s (%d tugas)\n",
			d.Drivers.ActiveDrivers, d.Drivers.BestDriver, d.Drivers.BestDriverTasks)
	}

	b.WriteString("\nNilai hilang sebelum / sesudah pembersihan:\n")
	for _, e := range res.MissingBefore.Entries() {
		fmt.Fprintf(&b, "- %s: %d / %d\n", e.Column, e.Count, res.MissingAfter.Counts[e.Column])
	}
	if res.InvalidDates > 0 {
		fmt.Fprintf(&b, "Tanggal tidak valid: %d\n", res.InvalidDates)
	}
	if !res.Clean {
		b.WriteString("PERINGATAN: masih ada nilai kategori yang tidak diketahui.\n")
	}
	return b.String()
}

// BuildWorkbook 生成摘要附件：概要、月度、车辆、司机与清洗后的数据
func BuildWorkbook(d *dashboard.Dashboard, res *processor.Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := utils.WriteExcel(&buf, workbookSheets(d, res)...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveWorkbook 将摘要工作簿保存到本地
func SaveWorkbook(path string, d *dashboard.Dashboard, res *processor.Result) error {
	return utils.SaveToExcel(path, workbookSheets(d, res)...)
}

func workbookSheets(d *dashboard.Dashboard, res *processor.Result) []utils.Sheet {
	sheets := []utils.Sheet{
		{Name: "Ringkasan", Data: summarySheet(d, res)},
	}
	if len(d.Monthly) > 0 {
		sheets = append(sheets, utils.Sheet{Name: "Bulanan", Data: monthlySheet(d.Monthly)})
	}
	if d.Fleet != nil && len(d.Fleet.Usage) > 0 {
		sheets = append(sheets, utils.Sheet{Name: "Kendaraan", Data: rankedSheet(d.Fleet.Usage, "Plat Nomor", "Jumlah Penggunaan")})
	}
	if d.Drivers != nil && len(d.Drivers.Tasks) > 0 {
		sheets = append(sheets, utils.Sheet{Name: "Sopir", Data: rankedSheet(d.Drivers.Tasks, "Sopir", "Jumlah Tugas")})
	}
	if res.Cleaned.Nrow() > 0 {
		sheets = append(sheets, utils.Sheet{Name: "Data Bersih", Data: res.Cleaned})
	}
	return sheets
}

func summarySheet(d *dashboard.Dashboard, res *processor.Result) dataframe.DataFrame {
	keys := []string{"Transaksi", "Total Pemasukan", "Total Pengeluaran", "Laba Bersih", "Total Volume Air", "Tanggal Tidak Valid"}
	values := []string{
		fmt.Sprint(d.Finance.Transactions),
		d.Finance.Display.TotalIncome,
		d.Finance.Display.TotalExpense,
		d.Finance.Display.NetProfit,
		d.Delivery.Display,
		fmt.Sprint(res.InvalidDates),
	}
	for _, e := range res.MissingAfter.Entries() {
		keys = append(keys, "Hilang: "+e.Column)
		values = append(values, fmt.Sprint(e.Count))
	}
	return dataframe.New(
		series.New(keys, series.String, "Metrik"),
		series.New(values, series.String, "Nilai"),
	)
}

func monthlySheet(points []dashboard.MonthlyPoint) dataframe.DataFrame {
	n := len(points)
	months := make([]string, n)
	income := make([]float64, n)
	expense := make([]float64, n)
	net := make([]float64, n)
	volume := make([]float64, n)
	for i, p := range points {
		months[i] = p.Month
		income[i] = p.Income.InexactFloat64()
		expense[i] = p.Expense.InexactFloat64()
		net[i] = p.Net.InexactFloat64()
		volume[i] = p.Volume
	}
	return dataframe.New(
		series.New(months, series.String, "Bulan"),
		series.New(income, series.Float, "Pemasukan"),
		series.New(expense, series.Float, "Pengeluaran"),
		series.New(net, series.Float, "Laba Bersih"),
		series.New(volume, series.Float, "Volume (L)"),
	)
}

func rankedSheet(items []dashboard.Ranked, nameCol, valueCol string) dataframe.DataFrame {
	names := make([]string, len(items))
	values := make([]float64, len(items))
	for i, r := range items {
		names[i] = r.Name
		values[i] = r.Value
	}
	return dataframe.New(
		series.New(names, series.String, nameCol),
		series.New(values, series.Float, valueCol),
	)
}
