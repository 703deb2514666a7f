package dashboard

import (
	"fmt"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/shopspring/decimal"
)

// MapPoint 地图上的一个送水点
type MapPoint struct {
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Location  string          `json:"location"`
	Volume    float64         `json:"volume"`
	Income    decimal.Decimal `json:"income"`
	Orders    int             `json:"orders"`
}

// DeliveryMap 送水地图与地点排名
// Fallback 为true表示没有送水类交易带坐标，改用所有带坐标的交易
type DeliveryMap struct {
	Points      []MapPoint `json:"points"`
	TopByVolume []Ranked   `json:"top_by_volume"`
	TopByOrders []Ranked   `json:"top_by_orders"`
	Fallback    bool       `json:"fallback"`
}

// MapOf 基于连接位置表后的数据生成地图
func (a *Analyzer) MapOf(joined dataframe.DataFrame) DeliveryMap {
	m := DeliveryMap{Points: []MapPoint{}, TopByVolume: []Ranked{}, TopByOrders: []Ranked{}}
	if joined.Nrow() == 0 {
		return m
	}

	lat := joined.Col(a.Schema.Latitude)
	lon := joined.Col(a.Schema.Longitude)
	types := stringCol(joined, a.Schema.TransactionType)

	var withCoords, deliveries []int
	for i := 0; i < joined.Nrow(); i++ {
		if lat.Elem(i).IsNA() || lon.Elem(i).IsNA() {
			continue
		}
		withCoords = append(withCoords, i)
		if a.isDelivery(types[i]) {
			deliveries = append(deliveries, i)
		}
	}
	rows := deliveries
	if len(rows) == 0 {
		rows = withCoords
		m.Fallback = len(withCoords) > 0
	}
	if len(rows) == 0 {
		return m
	}

	orders := stringCol(joined, a.Schema.OrderLocation)
	volume := floatCol(joined, a.Schema.Volume)
	income := floatCol(joined, a.Schema.Income)

	index := make(map[string]int)
	byVolume, byOrders := newTally(), newTally()
	for _, i := range rows {
		la, lo := lat.Elem(i).Float(), lon.Elem(i).Float()
		key := fmt.Sprintf("%v|%v|%s", la, lo, orders[i])
		k, ok := index[key]
		if !ok {
			k = len(m.Points)
			index[key] = k
			m.Points = append(m.Points, MapPoint{Latitude: la, Longitude: lo, Location: orders[i], Income: decimal.Zero})
		}
		m.Points[k].Volume += volume[i]
		m.Points[k].Income = m.Points[k].Income.Add(decimal.NewFromFloat(income[i]))
		m.Points[k].Orders++

		byVolume.add(orders[i], volume[i])
		byOrders.add(orders[i], 1)
	}

	sort.SliceStable(m.Points, func(i, j int) bool {
		p, q := m.Points[i], m.Points[j]
		if p.Latitude != q.Latitude {
			return p.Latitude < q.Latitude
		}
		if p.Longitude != q.Longitude {
			return p.Longitude < q.Longitude
		}
		return p.Location < q.Location
	})
	m.TopByVolume = top(byVolume.bySum(), locationTopN)
	m.TopByOrders = top(byOrders.byCount(), locationTopN)
	return m
}
