package processor

import (
	"fmt"
	"time"

	"WaterTruckDashboard/src/config"
	"WaterTruckDashboard/src/datasource/file"
	"WaterTruckDashboard/src/storage"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"
)

// Schema 清洗流程使用的列名
type Schema struct {
	Date            string
	Income          string
	Expense         string
	Volume          string
	Quantity        string
	TransactionType string
	VehiclePlate    string
	Driver          string
	OrderLocation   string
	MonthBucket     string
	LocationName    string
	Latitude        string
	Longitude       string
}

func SchemaFromConfig(dcfg *config.DataConfig) Schema {
	return Schema{
		Date:            dcfg.Column(config.ColDate),
		Income:          dcfg.Column(config.ColIncome),
		Expense:         dcfg.Column(config.ColExpense),
		Volume:          dcfg.Column(config.ColVolume),
		Quantity:        dcfg.Column(config.ColQuantity),
		TransactionType: dcfg.Column(config.ColTransactionType),
		VehiclePlate:    dcfg.Column(config.ColVehiclePlate),
		Driver:          dcfg.Column(config.ColDriver),
		OrderLocation:   dcfg.Column(config.ColOrderLocation),
		MonthBucket:     dcfg.Column(config.ColMonthBucket),
		LocationName:    dcfg.Column(config.ColLocationName),
		Latitude:        dcfg.Column(config.ColLatitude),
		Longitude:       dcfg.Column(config.ColLongitude),
	}
}

// Numeric 数值列
func (s Schema) Numeric() []string {
	return []string{s.Income, s.Expense, s.Volume, s.Quantity}
}

// Categorical 需要补全的分类列，按补全顺序排列
func (s Schema) Categorical() []string {
	return []string{s.TransactionType, s.VehiclePlate, s.Driver, s.OrderLocation}
}

// Tracked 缺失值报告统计的列：四个数值列与四个分类列
func (s Schema) Tracked() []string {
	return append(s.Numeric(), s.Categorical()...)
}

// Options 清洗参数
type Options struct {
	Schema        Schema
	Placeholders  []string
	UnknownMarker string
	Strategy      string
	Visibility    string
}

func OptionsFromConfig(dcfg *config.DataConfig) Options {
	return Options{
		Schema:        SchemaFromConfig(dcfg),
		Placeholders:  dcfg.Placeholders,
		UnknownMarker: dcfg.UnknownMarker,
		Strategy:      dcfg.Strategy,
		Visibility:    dcfg.Visibility,
	}
}

// Result 一次清洗的全部产出，生成后只读
type Result struct {
	ID            string              `json:"id"`
	Source        string              `json:"source"`
	CleanedAt     time.Time           `json:"cleaned_at"`
	Cleaned       dataframe.DataFrame `json:"-"`
	Joined        dataframe.DataFrame `json:"-"`
	MissingBefore MissingReport       `json:"missing_before"`
	MissingAfter  MissingReport       `json:"missing_after"`
	Fills         []Fill              `json:"-"`
	InvalidDates  int                 `json:"invalid_dates"`
	Clean         bool                `json:"clean"`
}

// FillCounts 按来源统计补全次数
func (r *Result) FillCounts() map[FillSource]int {
	counts := make(map[FillSource]int)
	for _, f := range r.Fills {
		counts[f.Source]++
	}
	return counts
}

// Pipeline 数据清洗与扩充流程
type Pipeline struct {
	opts    Options
	ph      *Placeholders
	imputer *Imputer
	logger  *storage.Logger
}

func NewPipeline(opts Options, logger *storage.Logger) (*Pipeline, error) {
	switch opts.Strategy {
	case "":
		opts.Strategy = config.StrategySimilarityThenMode
	case config.StrategySimilarityThenMode, config.StrategyDirectUnknownFill:
	default:
		return nil, fmt.Errorf("未知的补全策略 %q", opts.Strategy)
	}
	switch opts.Visibility {
	case "":
		opts.Visibility = config.VisibilitySnapshot
	case config.VisibilitySnapshot, config.VisibilityProgressive:
	default:
		return nil, fmt.Errorf("未知的补全可见性 %q", opts.Visibility)
	}

	ph := NewPlaceholders(opts.Placeholders)
	return &Pipeline{
		opts: opts,
		ph:   ph,
		imputer: &Imputer{
			Columns:      opts.Schema.Categorical(),
			Placeholders: ph,
			Marker:       opts.UnknownMarker,
			Strategy:     opts.Strategy,
			Visibility:   opts.Visibility,
		},
		logger: logger,
	}, nil
}

// Placeholders 流程使用的占位值集合
func (p *Pipeline) Placeholders() *Placeholders {
	return p.ph
}

// Run 清洗原始数据集
func (p *Pipeline) Run(raw *file.RawDataset) (*Result, error) {
	if raw == nil {
		return nil, fmt.Errorf("数据集为空")
	}
	res, err := p.Clean(raw.Transactions, raw.Locations)
	if err != nil {
		return nil, err
	}
	res.Source = raw.Source
	return res, nil
}

// Clean 按顺序执行：缺失统计 -> 日期解析 -> 数值转换 -> 分类补全 -> 月份 -> 缺失统计 -> 连接位置表
// 单元格级别的问题不会产生错误，只有表结构问题才会返回错误
func (p *Pipeline) Clean(transactions, locations dataframe.DataFrame) (*Result, error) {
	if transactions.Err != nil {
		return nil, fmt.Errorf("交易表无效: %w", transactions.Err)
	}
	s := p.opts.Schema
	res := &Result{ID: uuid.NewString(), CleanedAt: time.Now()}

	res.MissingBefore = CountMissing(transactions, s.Tracked(), p.ph)
	df := transactions.Copy()

	// 日期
	var dates []time.Time
	var valid []bool
	if len(presentColumns(df, []string{s.Date})) == 1 {
		dates, valid = parseDateColumn(df.Col(s.Date))
		df = df.Mutate(formatDates(dates, valid, s.Date))
		for _, ok := range valid {
			if !ok {
				res.InvalidDates++
			}
		}
	} else {
		dates = make([]time.Time, df.Nrow())
		valid = make([]bool, df.Nrow())
	}

	// 数值
	for _, col := range presentColumns(df, s.Numeric()) {
		df = df.Mutate(coerceNumericColumn(df.Col(col)))
	}
	if df.Err != nil {
		return nil, fmt.Errorf("转换交易表失败: %w", df.Err)
	}

	// 分类
	df, fills, err := p.imputer.Impute(df)
	if err != nil {
		return nil, err
	}
	res.Fills = fills

	// 月份
	df = df.Mutate(monthBuckets(dates, valid, s.MonthBucket))
	if df.Err != nil {
		return nil, fmt.Errorf("生成月份列失败: %w", df.Err)
	}

	res.MissingAfter = CountMissing(df, s.Tracked(), p.ph)
	if p.ph.Is(p.opts.UnknownMarker) {
		res.MissingAfter.Marked = CountMarked(df, s.Tracked(), p.opts.UnknownMarker)
	}
	res.Clean = IsClean(df, s.Categorical(), p.ph)
	res.Cleaned = df

	joined, err := JoinLocations(df, locations, s)
	if err != nil {
		return nil, err
	}
	res.Joined = joined

	p.log(res)
	return res, nil
}

func (p *Pipeline) log(res *Result) {
	if p.logger == nil {
		return
	}
	counts := res.FillCounts()
	p.logger.Event(storage.INFO, "数据清洗完成", storage.Fields{
		"id":             res.ID,
		"rows":           res.Cleaned.Nrow(),
		"joined_rows":    res.Joined.Nrow(),
		"missing_before": res.MissingBefore.Total,
		"missing_after":  res.MissingAfter.Total,
		"unresolved":     res.MissingAfter.Unresolved(),
		"invalid_dates":  res.InvalidDates,
		"fill_similar":   counts[FillSimilarity],
		"fill_global":    counts[FillGlobalMode],
		"fill_marker":    counts[FillMarker],
		"strategy":       p.opts.Strategy,
		"visibility":     p.opts.Visibility,
	})
	if res.InvalidDates > 0 {
		p.logger.Event(storage.WARNING, "存在无法解析的日期", storage.Fields{"count": res.InvalidDates})
	}
}
