package processor

import (
	"fmt"
	"strings"

	"WaterTruckDashboard/src/config"
	"WaterTruckDashboard/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// FillSource 补全值的来源
type FillSource string

const (
	FillSimilarity FillSource = "similarity"  // 相似行的众数
	FillGlobalMode FillSource = "global_mode" // 整列的众数
	FillMarker     FillSource = "marker"      // 未知标记
)

// Fill 一次单元格补全的记录
type Fill struct {
	Row    int        `json:"row"`
	Column string     `json:"column"`
	Value  string     `json:"value"`
	Source FillSource `json:"source"`
}

// Imputer 分类列缺失值补全
type Imputer struct {
	Columns      []string
	Placeholders *Placeholders
	Marker       string
	Strategy     string
	Visibility   string
}

// grid 分类列的按列存储，present 为 false 表示缺失
type grid struct {
	names   []string
	values  [][]string
	na      [][]bool
	present [][]bool
	rows    int
}

func newGrid(df dataframe.DataFrame, names []string, ph *Placeholders) *grid {
	g := &grid{names: names, rows: df.Nrow()}
	for _, name := range names {
		s := df.Col(name)
		vals := make([]string, g.rows)
		na := make([]bool, g.rows)
		present := make([]bool, g.rows)
		for i := 0; i < g.rows; i++ {
			e := s.Elem(i)
			if e.IsNA() {
				na[i] = true
				continue
			}
			vals[i] = e.String()
			present[i] = !ph.Is(vals[i])
		}
		g.values = append(g.values, vals)
		g.na = append(g.na, na)
		g.present = append(g.present, present)
	}
	return g
}

func (g *grid) clone() *grid {
	c := &grid{names: g.names, rows: g.rows}
	for k := range g.names {
		c.values = append(c.values, append([]string(nil), g.values[k]...))
		c.na = append(c.na, append([]bool(nil), g.na[k]...))
		c.present = append(c.present, append([]bool(nil), g.present[k]...))
	}
	return c
}

func (g *grid) set(k, row int, value string, present bool) {
	g.values[k][row] = value
	g.na[k][row] = false
	g.present[k][row] = present
}

// modeCounter 众数计数；票数相同时先出现的值胜出
type modeCounter struct {
	counts map[string]int
	order  []string
}

func newModeCounter() *modeCounter {
	return &modeCounter{counts: make(map[string]int)}
}

func (m *modeCounter) add(v string) {
	if _, ok := m.counts[v]; !ok {
		m.order = append(m.order, v)
	}
	m.counts[v]++
}

func (m *modeCounter) mode() (string, bool) {
	best, bestN := "", 0
	for _, v := range m.order {
		if n := m.counts[v]; n > bestN {
			best, bestN = v, n
		}
	}
	return best, bestN > 0
}

// globalMode 第k列所有有效值的众数
func (g *grid) globalMode(k int) (string, bool) {
	mc := newModeCounter()
	for i := 0; i < g.rows; i++ {
		if g.present[k][i] {
			mc.add(g.values[k][i])
		}
	}
	return mc.mode()
}

// similarMode 与row在其余所有有效列上取值相同的行中，第k列有效值的众数
func (g *grid) similarMode(k, row int) (string, bool) {
	var keys []int
	for o := range g.names {
		if o != k && g.present[o][row] {
			keys = append(keys, o)
		}
	}

	mc := newModeCounter()
	for j := 0; j < g.rows; j++ {
		if !g.present[k][j] {
			continue
		}
		match := true
		for _, o := range keys {
			if g.na[o][j] || g.values[o][j] != g.values[o][row] {
				match = false
				break
			}
		}
		if match {
			mc.add(g.values[k][j])
		}
	}
	return mc.mode()
}

// signature 第k列补全时用于匹配的键，作为快照模式下的缓存键
func (g *grid) signature(k, row int) string {
	var b strings.Builder
	// 每列以'0'(缺失)或'1'+取值开头，空字符串有效值与缺失不会混淆
	for o := range g.names {
		if o == k || !g.present[o][row] {
			b.WriteString("0\x1e")
			continue
		}
		b.WriteByte('1')
		b.WriteString(g.values[o][row])
		b.WriteString("\x1e")
	}
	return b.String()
}

type resolved struct {
	value  string
	source FillSource
}

// Impute 补全df中Columns列的缺失值，返回新的DataFrame与补全记录
// 快照模式下所有补全都基于补全前的数据；渐进模式下先补全的值对之后的补全可见
func (im *Imputer) Impute(df dataframe.DataFrame) (dataframe.DataFrame, []Fill, error) {
	names := presentColumns(df, im.Columns)
	if len(names) == 0 || df.Nrow() == 0 {
		return df, nil, nil
	}
	if im.Strategy != config.StrategySimilarityThenMode && im.Strategy != config.StrategyDirectUnknownFill {
		return df, nil, fmt.Errorf("未知的补全策略 %q", im.Strategy)
	}

	progressive := im.Visibility == config.VisibilityProgressive
	source := newGrid(df, names, im.Placeholders)
	out := source
	if !progressive {
		out = source.clone()
	}

	var fills []Fill
	for k, name := range names {
		memo := make(map[string]resolved)
		var global *resolved

		for i := 0; i < source.rows; i++ {
			if source.present[k][i] {
				continue
			}

			var r resolved
			if im.Strategy == config.StrategyDirectUnknownFill {
				r = resolved{value: im.Marker, source: FillMarker}
			} else if progressive {
				r = im.resolve(source, k, i, nil)
			} else {
				sig := source.signature(k, i)
				cached, ok := memo[sig]
				if !ok {
					if global == nil {
						g := im.globalFallback(source, k)
						global = &g
					}
					cached = im.resolve(source, k, i, global)
					memo[sig] = cached
				}
				r = cached
			}

			// 未知标记仍属于占位值
			out.set(k, i, r.value, !im.Placeholders.Is(r.value))
			fills = append(fills, Fill{Row: i, Column: name, Value: r.value, Source: r.source})
		}
	}

	result := df.Copy()
	for k, name := range names {
		result = result.Mutate(series.New(out.values[k], series.String, name))
		if result.Err != nil {
			return df, nil, fmt.Errorf("写回列 %q 失败: %w", name, result.Err)
		}
	}
	return result, fills, nil
}

// resolve 相似行众数 -> 全局众数 -> 未知标记
// global 为nil时现场计算全局众数
func (im *Imputer) resolve(g *grid, k, row int, global *resolved) resolved {
	if v, ok := g.similarMode(k, row); ok {
		return resolved{value: v, source: FillSimilarity}
	}
	if global != nil {
		return *global
	}
	return im.globalFallback(g, k)
}

func (im *Imputer) globalFallback(g *grid, k int) resolved {
	if v, ok := g.globalMode(k); ok {
		return resolved{value: v, source: FillGlobalMode}
	}
	return resolved{value: im.Marker, source: FillMarker}
}

// presentColumns 返回columns中df实际拥有的列，保持顺序
func presentColumns(df dataframe.DataFrame, columns []string) []string {
	var out []string
	for _, c := range columns {
		if utils.HasColumn(df, c) {
			out = append(out, c)
		}
	}
	return out
}
