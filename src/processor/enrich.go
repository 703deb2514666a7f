package processor

import (
	"fmt"
	"math"
	"time"

	"WaterTruckDashboard/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// monthBuckets 由解析后的日期生成"年-月"列，日期无效时为NA
func monthBuckets(dates []time.Time, valid []bool, name string) series.Series {
	records := make([]string, len(dates))
	for i, t := range dates {
		if valid[i] {
			records[i] = t.Format(MonthLayout)
		} else {
			records[i] = "NaN"
		}
	}
	return series.New(records, series.String, name)
}

// prepareLocations 只保留名称与坐标列，名称改为订单列名，坐标转为Float
func prepareLocations(locations dataframe.DataFrame, s Schema) (dataframe.DataFrame, error) {
	if missing := absentColumns(locations, []string{s.LocationName, s.Latitude, s.Longitude}); len(missing) > 0 {
		return dataframe.New(), fmt.Errorf("位置表缺少列 %v", missing)
	}

	names := locations.Col(s.LocationName).Records()
	lat := toFloat(locations.Col(s.Latitude), s.Latitude)
	lon := toFloat(locations.Col(s.Longitude), s.Longitude)

	out := dataframe.New(
		series.New(names, series.String, s.OrderLocation),
		lat,
		lon,
	)
	if out.Err != nil {
		return dataframe.New(), fmt.Errorf("整理位置表失败: %w", out.Err)
	}
	return out, nil
}

// toFloat 坐标列转Float，空值与非数字为NA（不同于金额列的补0）
func toFloat(s series.Series, name string) series.Series {
	vals := make([]interface{}, s.Len())
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		if e.IsNA() {
			continue
		}
		// Inf等非有限值视为NA
		if f := e.Float(); !math.IsNaN(f) && !math.IsInf(f, 0) {
			vals[i] = f
		}
	}
	return series.New(vals, series.Float, name)
}

// JoinLocations 以订单地点左连接位置表
// 交易行顺序不变；未匹配的行坐标为NA；位置名重复时一行交易会匹配多行
func JoinLocations(transactions, locations dataframe.DataFrame, s Schema) (dataframe.DataFrame, error) {
	if missing := absentColumns(transactions, []string{s.OrderLocation}); len(missing) > 0 {
		return dataframe.New(), fmt.Errorf("交易表缺少列 %v", missing)
	}
	locs, err := prepareLocations(locations, s)
	if err != nil {
		return dataframe.New(), err
	}

	// 坐标列与交易表重名时以位置表为准
	base := transactions
	if dup := presentColumns(transactions, []string{s.Latitude, s.Longitude}); len(dup) > 0 {
		base = transactions.Drop(dup)
	}

	joined := base.LeftJoin(locs, s.OrderLocation)
	if joined.Err != nil {
		return dataframe.New(), fmt.Errorf("连接位置表失败: %w", joined.Err)
	}

	// LeftJoin把连接键放在第一列，恢复交易表原有列顺序
	order := append(append([]string(nil), base.Names()...), s.Latitude, s.Longitude)
	joined = joined.Select(order)
	if joined.Err != nil {
		return dataframe.New(), fmt.Errorf("连接位置表失败: %w", joined.Err)
	}
	return joined, nil
}

func absentColumns(df dataframe.DataFrame, columns []string) []string {
	var out []string
	for _, c := range columns {
		if !utils.HasColumn(df, c) {
			out = append(out, c)
		}
	}
	return out
}
