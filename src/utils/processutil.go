package utils

import (
	"fmt"
	"io"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"
)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	return Contains(df.Names(), name)
}

// Sheet 导出工作簿中的一个工作表
type Sheet struct {
	Name string
	Data dataframe.DataFrame
}

// WriteExcel 将多个DataFrame按顺序写入同一个工作簿
// 第一行为列名，NA单元格留空
func WriteExcel(w io.Writer, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("没有需要导出的工作表")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sh := range sheets {
		if sh.Data.Err != nil {
			return fmt.Errorf("工作表 %q 数据无效: %w", sh.Name, sh.Data.Err)
		}
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.Name); err != nil {
				return fmt.Errorf("工作表 %q 命名失败: %w", sh.Name, err)
			}
		} else if _, err := f.NewSheet(sh.Name); err != nil {
			return fmt.Errorf("创建工作表 %q 失败: %w", sh.Name, err)
		}
		if err := writeSheet(f, sh); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("写入Excel失败: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sh Sheet) error {
	// 写入列名
	colNames := sh.Data.Names()
	for i, name := range colNames {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sh.Name, cell, name); err != nil {
			return fmt.Errorf("工作表 %q 写入失败: %w", sh.Name, err)
		}
	}

	// 写入数据
	for colIdx, colName := range colNames {
		col := sh.Data.Col(colName)
		for rowIdx := 0; rowIdx < sh.Data.Nrow(); rowIdx++ {
			if col.Elem(rowIdx).IsNA() {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(sh.Name, cell, col.Val(rowIdx)); err != nil {
				return fmt.Errorf("工作表 %q 写入失败: %w", sh.Name, err)
			}
		}
	}
	return nil
}

// SaveToExcel 保存到本地文件
func SaveToExcel(filePath string, sheets ...Sheet) error {
	out, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	if err := WriteExcel(out, sheets...); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
