package dashboard

import (
	"fmt"
	"strings"

	"WaterTruckDashboard/src/processor"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// AllOption 表示不过滤
const AllOption = "all"

// Selection 用户选择的过滤条件，每一项为具体值或"all"
type Selection struct {
	Month   string `json:"month"`
	Driver  string `json:"driver"`
	Vehicle string `json:"vehicle"`
}

func isAll(v string) bool {
	return v == "" || strings.EqualFold(v, AllOption) || strings.EqualFold(v, "semua")
}

// Normalize 把空值与"semua"统一为"all"
func (s Selection) Normalize() Selection {
	for _, p := range []*string{&s.Month, &s.Driver, &s.Vehicle} {
		if isAll(*p) {
			*p = AllOption
		}
	}
	return s
}

func (s Selection) filters(schema processor.Schema) []dataframe.F {
	var fs []dataframe.F
	add := func(col, v string) {
		if !isAll(v) {
			fs = append(fs, dataframe.F{Colname: col, Comparator: series.Eq, Comparando: v})
		}
	}
	add(schema.MonthBucket, s.Month)
	add(schema.Driver, s.Driver)
	add(schema.VehiclePlate, s.Vehicle)
	return fs
}

// Apply 返回满足所有条件的行，保持原有顺序
func (s Selection) Apply(df dataframe.DataFrame, schema processor.Schema) (dataframe.DataFrame, error) {
	fs := s.filters(schema)
	if len(fs) == 0 {
		return df, nil
	}
	out := df.FilterAggregation(dataframe.And, fs...)
	if out.Err != nil {
		return df, fmt.Errorf("过滤失败: %w", out.Err)
	}
	return out, nil
}
