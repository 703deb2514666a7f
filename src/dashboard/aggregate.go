package dashboard

import (
	"sort"
	"strings"

	"WaterTruckDashboard/src/config"
	"WaterTruckDashboard/src/processor"

	"github.com/go-gota/gota/dataframe"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	rankingTopN       = 8  // 车辆、司机排名
	locationTopN      = 10 // 地点排名
	monthlyVolumeTopN = 10
	invalidPlateMark  = "####"
)

// Analyzer 基于清洗结果计算看板数据
type Analyzer struct {
	Schema           processor.Schema
	Marker           string
	DeliveryKeywords []string
	MaintenanceRate  float64
	OptionsTopN      int
}

func NewAnalyzer(dcfg *config.DataConfig) *Analyzer {
	return &Analyzer{
		Schema:           processor.SchemaFromConfig(dcfg),
		Marker:           dcfg.UnknownMarker,
		DeliveryKeywords: dcfg.DeliveryKeywords,
		MaintenanceRate:  dcfg.MaintenanceRate,
		OptionsTopN:      dcfg.TopN,
	}
}

// Finance 财务指标
type Finance struct {
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	NetProfit    decimal.Decimal `json:"net_profit"`
	Transactions int             `json:"transactions"`
	Display      FinanceDisplay  `json:"display"`
}

type FinanceDisplay struct {
	TotalIncome  string `json:"total_income"`
	TotalExpense string `json:"total_expense"`
	NetProfit    string `json:"net_profit"`
}

// MonthlyPoint 月度汇总
type MonthlyPoint struct {
	Month   string          `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
	Volume  float64         `json:"volume"`
}

// Delivery 送水量指标
type Delivery struct {
	TotalVolume float64 `json:"total_volume"`
	MeanVolume  float64 `json:"mean_volume"`
	MaxVolume   float64 `json:"max_volume"`
	Display     string  `json:"display"`
}

func floatCol(df dataframe.DataFrame, col string) []float64 {
	return df.Col(col).Float()
}

func stringCol(df dataframe.DataFrame, col string) []string {
	return df.Col(col).Records()
}

func sumMoney(values []float64) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total
}

// FinanceOf 收入、支出、净利润与交易数
func (a *Analyzer) FinanceOf(df dataframe.DataFrame) Finance {
	f := Finance{
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		NetProfit:    decimal.Zero,
		Transactions: df.Nrow(),
	}
	if df.Nrow() > 0 {
		f.TotalIncome = sumMoney(floatCol(df, a.Schema.Income))
		f.TotalExpense = sumMoney(floatCol(df, a.Schema.Expense))
		f.NetProfit = f.TotalIncome.Sub(f.TotalExpense)
	}
	f.Display = FinanceDisplay{
		TotalIncome:  FormatRupiah(f.TotalIncome),
		TotalExpense: FormatRupiah(f.TotalExpense),
		NetProfit:    FormatRupiah(f.NetProfit),
	}
	return f
}

// MonthlyOf 按月份汇总，月份升序，月份为空的行不计入
func (a *Analyzer) MonthlyOf(df dataframe.DataFrame) []MonthlyPoint {
	out := []MonthlyPoint{}
	if df.Nrow() == 0 {
		return out
	}

	months := df.Col(a.Schema.MonthBucket)
	income := floatCol(df, a.Schema.Income)
	expense := floatCol(df, a.Schema.Expense)
	volume := floatCol(df, a.Schema.Volume)

	index := make(map[string]int)
	for i := 0; i < months.Len(); i++ {
		e := months.Elem(i)
		if e.IsNA() {
			continue
		}
		k, ok := index[e.String()]
		if !ok {
			k = len(out)
			index[e.String()] = k
			out = append(out, MonthlyPoint{Month: e.String(), Income: decimal.Zero, Expense: decimal.Zero})
		}
		out[k].Income = out[k].Income.Add(decimal.NewFromFloat(income[i]))
		out[k].Expense = out[k].Expense.Add(decimal.NewFromFloat(expense[i]))
		out[k].Volume += volume[i]
	}
	for i := range out {
		out[i].Net = out[i].Income.Sub(out[i].Expense)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// DeliveryOf 总量、均值、最大值；没有数据时都为0
func (a *Analyzer) DeliveryOf(df dataframe.DataFrame) Delivery {
	var d Delivery
	if df.Nrow() > 0 {
		v := floatCol(df, a.Schema.Volume)
		d.TotalVolume = floats.Sum(v)
		d.MeanVolume = stat.Mean(v, nil)
		d.MaxVolume = floats.Max(v)
	}
	d.Display = FormatLiters(d.TotalVolume)
	return d
}

// isDelivery 交易类型包含任一送水关键字
func (a *Analyzer) isDelivery(txType string) bool {
	for _, kw := range a.DeliveryKeywords {
		if kw != "" && strings.Contains(txType, kw) {
			return true
		}
	}
	return false
}
