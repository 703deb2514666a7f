package dashboard

import (
	"sort"

	"WaterTruckDashboard/src/processor"

	"github.com/go-gota/gota/dataframe"
)

// FilterOptions 过滤器可选值，不含"all"
type FilterOptions struct {
	Months   []string `json:"months"`
	Drivers  []string `json:"drivers"`
	Vehicles []string `json:"vehicles"`
}

// BuildOptions 月份升序（不含空值），司机和车辆取出现次数最多的前n个（不含未知标记）
func BuildOptions(df dataframe.DataFrame, schema processor.Schema, marker string, n int) FilterOptions {
	opts := FilterOptions{Months: []string{}, Drivers: []string{}, Vehicles: []string{}}
	if df.Nrow() == 0 {
		return opts
	}

	seen := make(map[string]bool)
	months := df.Col(schema.MonthBucket)
	for i := 0; i < months.Len(); i++ {
		e := months.Elem(i)
		if e.IsNA() || seen[e.String()] {
			continue
		}
		seen[e.String()] = true
		opts.Months = append(opts.Months, e.String())
	}
	sort.Strings(opts.Months)

	opts.Drivers = names(top(countExcluding(df, schema.Driver, marker).byCount(), n))
	opts.Vehicles = names(top(countExcluding(df, schema.VehiclePlate, marker).byCount(), n))
	return opts
}

func countExcluding(df dataframe.DataFrame, col, marker string) *tally {
	t := newTally()
	s := df.Col(col)
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		if e.IsNA() || e.String() == marker {
			continue
		}
		t.add(e.String(), 1)
	}
	return t
}
