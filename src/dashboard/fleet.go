package dashboard

import (
	"strings"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Fleet 车辆分析，不含未知车辆与车牌含"####"的记录
type Fleet struct {
	ActiveVehicles int      `json:"active_vehicles"`
	MostUsed       string   `json:"most_used"`
	MostUsedCount  int      `json:"most_used_count"`
	TotalVolume    float64  `json:"total_volume"`
	Usage          []Ranked `json:"usage"`
	Maintenance    []Ranked `json:"maintenance"`
	MonthlyVolume  []Ranked `json:"monthly_volume"`
}

// Drivers 司机表现，不含未知司机
type Drivers struct {
	ActiveDrivers   int      `json:"active_drivers"`
	BestDriver      string   `json:"best_driver"`
	BestDriverTasks int      `json:"best_driver_tasks"`
	Tasks           []Ranked `json:"tasks"`
	Income          []Ranked `json:"income"`
}

// FleetOf 没有有效车辆时返回nil
func (a *Analyzer) FleetOf(df dataframe.DataFrame) *Fleet {
	if df.Nrow() == 0 {
		return nil
	}
	plates := stringCol(df, a.Schema.VehiclePlate)
	months := df.Col(a.Schema.MonthBucket)
	expense := floatCol(df, a.Schema.Expense)
	volume := floatCol(df, a.Schema.Volume)

	usage, cost := newTally(), newTally()
	perMonth := make(map[string]*tally)
	var order []string
	var vols []float64

	for i, plate := range plates {
		if plate == a.Marker || strings.Contains(plate, invalidPlateMark) {
			continue
		}
		usage.add(plate, 1)
		cost.add(plate, expense[i]*a.MaintenanceRate)
		vols = append(vols, volume[i])

		t, ok := perMonth[plate]
		if !ok {
			t = newTally()
			perMonth[plate] = t
			order = append(order, plate)
		}
		if m := months.Elem(i); !m.IsNA() {
			t.add(m.String(), volume[i])
		}
	}
	if usage.len() == 0 {
		return nil
	}

	ranking := usage.byCount()
	f := &Fleet{
		ActiveVehicles: usage.len(),
		MostUsed:       ranking[0].Name,
		MostUsedCount:  int(ranking[0].Value),
		TotalVolume:    floats.Sum(vols),
		Usage:          top(ranking, rankingTopN),
		Maintenance:    top(cost.bySum(), rankingTopN),
	}

	// 每辆车先按月汇总，再取各月的平均值
	avg := newTally()
	for _, plate := range order {
		t := perMonth[plate]
		if t.len() == 0 {
			continue
		}
		avg.add(plate, stat.Mean(t.sums, nil))
	}
	f.MonthlyVolume = top(avg.bySum(), monthlyVolumeTopN)
	return f
}

// DriversOf 没有有效司机时返回nil
func (a *Analyzer) DriversOf(df dataframe.DataFrame) *Drivers {
	if df.Nrow() == 0 {
		return nil
	}
	drivers := stringCol(df, a.Schema.Driver)
	income := floatCol(df, a.Schema.Income)

	tasks, earned := newTally(), newTally()
	for i, d := range drivers {
		if d == a.Marker {
			continue
		}
		tasks.add(d, 1)
		earned.add(d, income[i])
	}
	if tasks.len() == 0 {
		return nil
	}

	ranking := tasks.byCount()
	return &Drivers{
		ActiveDrivers:   tasks.len(),
		BestDriver:      ranking[0].Name,
		BestDriverTasks: int(ranking[0].Value),
		Tasks:           top(ranking, rankingTopN),
		Income:          top(earned.bySum(), rankingTopN),
	}
}
