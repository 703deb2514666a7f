package processor

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/series"
)

// DateLayout 清洗后日期列的存储格式
const DateLayout = "2006-01-02 15:04:05"

// MonthLayout 月份分组键的格式
const MonthLayout = "2006-01"

// Excel 序列号的有效范围：1 = 1900-01-01，2958465 = 9999-12-31
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

// 文本日期的候选格式，依次尝试；斜杠与短横线的数字日期按"月/日/年"解析
var dateLayouts = []string{
	DateLayout,
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"02-Jan-2006",
	"2 January 2006",
	"2 Jan 2006",
}

// ParseDate 解析日期单元格，支持Excel序列号与常见文本格式
// 无法解析时返回false
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "NaN") {
		return time.Time{}, false
	}

	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(v) || v < minExcelSerial || v > maxExcelSerial {
			return time.Time{}, false
		}
		return excelSerialToTime(v), true
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// excelSerialToTime Excel 1900日期系统；60 是不存在的 1900-02-29
func excelSerialToTime(v float64) time.Time {
	base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	days := math.Floor(v)
	if days < 61 {
		days++
	}
	secs := math.Round((v - math.Floor(v)) * 86400)
	return base.AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second)
}

// CoerceNumber 将单元格转换为数值，无法转换或非有限值时为0
func CoerceNumber(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// parseDateColumn 解析整列日期，返回解析结果与有效标记
func parseDateColumn(s series.Series) ([]time.Time, []bool) {
	dates := make([]time.Time, s.Len())
	valid := make([]bool, s.Len())
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		if e.IsNA() {
			continue
		}
		dates[i], valid[i] = ParseDate(e.String())
	}
	return dates, valid
}

// formatDates 将解析结果转回String列，无效值为NA
func formatDates(dates []time.Time, valid []bool, name string) series.Series {
	records := make([]string, len(dates))
	for i, t := range dates {
		if valid[i] {
			records[i] = t.Format(DateLayout)
		} else {
			records[i] = "NaN"
		}
	}
	return series.New(records, series.String, name)
}

// coerceNumericColumn 将列转换为Float类型，缺失与非法值填0
func coerceNumericColumn(s series.Series) series.Series {
	values := make([]float64, s.Len())
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		if e.IsNA() {
			continue
		}
		if s.Type() == series.Float || s.Type() == series.Int {
			v := e.Float()
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				values[i] = v
			}
			continue
		}
		values[i] = CoerceNumber(e.String())
	}
	return series.New(values, series.Float, s.Name)
}
