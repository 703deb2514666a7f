package file

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"WaterTruckDashboard/src/config"
	"WaterTruckDashboard/src/storage"

	"github.com/go-gota/gota/dataframe"
	"github.com/tealeg/xlsx"
)

var (
	// ErrSourceUnavailable 数据集标识无法解析为可读取的数据（文件不存在、无法打开、内容为空）
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrSourceMalformed 数据可读取，但缺少工作表/必需列或无法解析
	ErrSourceMalformed = errors.New("source malformed")
)

// RawDataset 加载后的原始数据，未做任何清洗
type RawDataset struct {
	Source       string
	LoadedAt     time.Time
	Transactions dataframe.DataFrame
	Locations    dataframe.DataFrame
}

// Loader 从xlsx读取交易表与位置表
type Loader struct {
	dcfg   *config.DataConfig
	logger *storage.Logger
}

func NewLoader(dcfg *config.DataConfig, logger *storage.Logger) *Loader {
	return &Loader{dcfg: dcfg, logger: logger}
}

// TransactionColumns 交易表必需的列
func TransactionColumns(dcfg *config.DataConfig) []string {
	return []string{
		dcfg.Column(config.ColDate),
		dcfg.Column(config.ColIncome),
		dcfg.Column(config.ColExpense),
		dcfg.Column(config.ColVolume),
		dcfg.Column(config.ColQuantity),
		dcfg.Column(config.ColTransactionType),
		dcfg.Column(config.ColVehiclePlate),
		dcfg.Column(config.ColDriver),
		dcfg.Column(config.ColOrderLocation),
	}
}

// LocationColumns 位置表必需的列
func LocationColumns(dcfg *config.DataConfig) []string {
	return []string{
		dcfg.Column(config.ColLocationName),
		dcfg.Column(config.ColLatitude),
		dcfg.Column(config.ColLongitude),
	}
}

// LoadFile 从本地路径加载数据集
func (l *Loader) LoadFile(path string) (*RawDataset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return l.fail(path, fmt.Errorf("%w: 文件 %q 不存在或无法访问: %v", ErrSourceUnavailable, path, err))
	}
	if info.IsDir() {
		return l.fail(path, fmt.Errorf("%w: %q 是目录", ErrSourceUnavailable, path))
	}

	// 先确认文件可以打开，再交给xlsx解析，区分两类错误
	f, err := os.Open(path)
	if err != nil {
		return l.fail(path, fmt.Errorf("%w: 无法打开 %q: %v", ErrSourceUnavailable, path, err))
	}
	f.Close()

	wb, err := xlsx.OpenFile(path)
	if err != nil {
		return l.fail(path, fmt.Errorf("%w: 无法解析xlsx %q: %v", ErrSourceMalformed, path, err))
	}
	return l.fromWorkbook(path, wb)
}

// LoadBytes 从内存中的xlsx数据加载（例如邮件附件）
func (l *Loader) LoadBytes(name string, data []byte) (*RawDataset, error) {
	if len(data) == 0 {
		return l.fail(name, fmt.Errorf("%w: %q 内容为空", ErrSourceUnavailable, name))
	}
	wb, err := xlsx.OpenBinary(data)
	if err != nil {
		return l.fail(name, fmt.Errorf("%w: 无法解析xlsx %q: %v", ErrSourceMalformed, name, err))
	}
	return l.fromWorkbook(name, wb)
}

func (l *Loader) fromWorkbook(source string, wb *xlsx.File) (*RawDataset, error) {
	transactions, err := l.readSheet(wb, l.dcfg.Sheets.Transactions, TransactionColumns(l.dcfg))
	if err != nil {
		return l.fail(source, err)
	}
	locations, err := l.readSheet(wb, l.dcfg.Sheets.Locations, LocationColumns(l.dcfg))
	if err != nil {
		return l.fail(source, err)
	}

	ds := &RawDataset{
		Source:       source,
		LoadedAt:     time.Now(),
		Transactions: transactions,
		Locations:    locations,
	}
	if l.logger != nil {
		l.logger.Event(storage.INFO, "数据集读取完成", storage.Fields{
			"source":       source,
			"transactions": transactions.Nrow(),
			"locations":    locations.Nrow(),
		})
	}
	return ds, nil
}

func (l *Loader) readSheet(wb *xlsx.File, sheetName string, required []string) (dataframe.DataFrame, error) {
	sheet, ok := wb.Sheet[sheetName]
	if !ok || sheet == nil {
		return dataframe.New(), fmt.Errorf("%w: 缺少工作表 %q", ErrSourceMalformed, sheetName)
	}

	df, err := SheetToDataFrame(sheet)
	if err != nil {
		return dataframe.New(), fmt.Errorf("%w: %v", ErrSourceMalformed, err)
	}

	if missing := MissingColumns(df, required); len(missing) > 0 {
		return dataframe.New(), fmt.Errorf("%w: 工作表 %q 缺少列 %s",
			ErrSourceMalformed, sheetName, strings.Join(missing, ", "))
	}
	return df, nil
}

func (l *Loader) fail(source string, err error) (*RawDataset, error) {
	if l.logger != nil {
		l.logger.Event(storage.ERROR, "数据集读取失败", storage.Fields{
			"source": source,
			"error":  err.Error(),
		})
	}
	return nil, err
}
