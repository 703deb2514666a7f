package dashboard

import (
	"fmt"

	"WaterTruckDashboard/src/processor"
)

// Dashboard 一次过滤后的全部看板数据
type Dashboard struct {
	SnapshotID string         `json:"snapshot_id"`
	Selection  Selection      `json:"selection"`
	Rows       int            `json:"rows"`
	Clean      bool           `json:"clean"`
	Finance    Finance        `json:"finance"`
	Monthly    []MonthlyPoint `json:"monthly"`
	Delivery   Delivery       `json:"delivery"`
	Map        DeliveryMap    `json:"map"`
	Fleet      *Fleet         `json:"fleet,omitempty"`
	Drivers    *Drivers       `json:"drivers,omitempty"`
}

// Build 先按选择过滤清洗表与连接表，再分别计算各部分
func (a *Analyzer) Build(res *processor.Result, sel Selection) (*Dashboard, error) {
	if res == nil {
		return nil, fmt.Errorf("没有可用的数据")
	}
	sel = sel.Normalize()

	cleaned, err := sel.Apply(res.Cleaned, a.Schema)
	if err != nil {
		return nil, err
	}
	joined, err := sel.Apply(res.Joined, a.Schema)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		SnapshotID: res.ID,
		Selection:  sel,
		Rows:       cleaned.Nrow(),
		Clean:      res.Clean,
		Finance:    a.FinanceOf(cleaned),
		Monthly:    a.MonthlyOf(cleaned),
		Delivery:   a.DeliveryOf(cleaned),
		Map:        a.MapOf(joined),
		Fleet:      a.FleetOf(cleaned),
		Drivers:    a.DriversOf(cleaned),
	}, nil
}
