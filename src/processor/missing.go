package processor

import (
	"WaterTruckDashboard/src/utils"

	"github.com/go-gota/gota/dataframe"
)

// MissingReport 每个跟踪列的缺失值数量
type MissingReport struct {
	Columns []string       `json:"columns"`
	Counts  map[string]int `json:"counts"`
	Total   int            `json:"total"`
	Marked  int            `json:"marked"` // Total中已被写为未知标记的数量
}

// MissingEntry 报告中的一项，保持列的顺序
type MissingEntry struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
}

// CountMissing 统计columns中每列的缺失值（NA或占位值）
// df中不存在的列不计入报告
func CountMissing(df dataframe.DataFrame, columns []string, ph *Placeholders) MissingReport {
	report := MissingReport{Counts: make(map[string]int, len(columns))}
	have := make(map[string]bool, df.Ncol())
	for _, n := range df.Names() {
		have[n] = true
	}

	for _, col := range columns {
		if !have[col] {
			continue
		}
		s := df.Col(col)
		n := 0
		for i := 0; i < s.Len(); i++ {
			if ph.Missing(s.Elem(i)) {
				n++
			}
		}
		report.Columns = append(report.Columns, col)
		report.Counts[col] = n
		report.Total += n
	}
	return report
}

// Entries 按列顺序返回报告内容
func (r MissingReport) Entries() []MissingEntry {
	out := make([]MissingEntry, 0, len(r.Columns))
	for _, col := range r.Columns {
		out = append(out, MissingEntry{Column: col, Count: r.Counts[col]})
	}
	return out
}

// Unresolved 不含未知标记的缺失数量
func (r MissingReport) Unresolved() int {
	return r.Total - r.Marked
}

// CountMarked 统计columns中取值恰好为marker的单元格
func CountMarked(df dataframe.DataFrame, columns []string, marker string) int {
	n := 0
	for _, col := range columns {
		if !utils.HasColumn(df, col) {
			continue
		}
		s := df.Col(col)
		for i := 0; i < s.Len(); i++ {
			if e := s.Elem(i); !e.IsNA() && e.String() == marker {
				n++
			}
		}
	}
	return n
}

// IsClean 所有分类列都没有缺失值或占位值时返回true
func IsClean(df dataframe.DataFrame, categorical []string, ph *Placeholders) bool {
	return CountMissing(df, categorical, ph).Total == 0
}
