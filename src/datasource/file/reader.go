// reader.go
package file

import (
	"fmt"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
)

// SheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame
// 第一行非空行作为标题行，完全空白的数据行被跳过，
// 单元格读取原始值(cell.Value)，日期保留Excel序列号由清洗流程解析
func SheetToDataFrame(sheet *xlsx.Sheet) (dataframe.DataFrame, error) {
	headerIdx := -1
	for i, row := range sheet.Rows {
		if !isBlankRow(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return dataframe.New(), fmt.Errorf("工作表 %q 没有标题行", sheet.Name)
	}

	// 获取列名，末尾没有标题的列忽略
	var headers []string
	var positions []int
	for i, cell := range sheet.Rows[headerIdx].Cells {
		if cell == nil {
			continue
		}
		name := cell.Value
		if name == "" {
			continue
		}
		headers = append(headers, name)
		positions = append(positions, i)
	}
	if len(headers) == 0 {
		return dataframe.New(), fmt.Errorf("工作表 %q 没有标题行", sheet.Name)
	}

	// 准备数据列
	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(sheet.Rows)-headerIdx-1)
	}

	for _, row := range sheet.Rows[headerIdx+1:] {
		if isBlankRow(row) {
			continue
		}
		for i, pos := range positions {
			columns[i] = append(columns[i], cellValue(row, pos))
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}

	df := dataframe.New(seriesList...)
	if df.Err != nil {
		return dataframe.New(), fmt.Errorf("工作表 %q 转换为dataframe失败: %w", sheet.Name, df.Err)
	}
	return df, nil
}

func cellValue(row *xlsx.Row, pos int) string {
	if row == nil || pos >= len(row.Cells) || row.Cells[pos] == nil {
		return ""
	}
	return row.Cells[pos].Value
}

func isBlankRow(row *xlsx.Row) bool {
	if row == nil {
		return true
	}
	for _, cell := range row.Cells {
		if cell != nil && strings.TrimSpace(cell.Value) != "" {
			return false
		}
	}
	return true
}

// MissingColumns 返回required中df没有的列名
func MissingColumns(df dataframe.DataFrame, required []string) []string {
	have := make(map[string]bool, df.Ncol())
	for _, n := range df.Names() {
		have[n] = true
	}
	var missing []string
	for _, name := range required {
		if !have[name] {
			missing = append(missing, name)
		}
	}
	return missing
}
