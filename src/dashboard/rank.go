package dashboard

import (
	"sort"
)

// Ranked 排名中的一项
type Ranked struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// tally 按键累计，保留键第一次出现的顺序
type tally struct {
	index map[string]int
	keys  []string
	sums  []float64
	count []int
}

func newTally() *tally {
	return &tally{index: make(map[string]int)}
}

func (t *tally) add(key string, v float64) {
	i, ok := t.index[key]
	if !ok {
		i = len(t.keys)
		t.index[key] = i
		t.keys = append(t.keys, key)
		t.sums = append(t.sums, 0)
		t.count = append(t.count, 0)
	}
	t.sums[i] += v
	t.count[i]++
}

func (t *tally) len() int { return len(t.keys) }

// bySum 按累计值降序，值相同时保持首次出现顺序
func (t *tally) bySum() []Ranked {
	out := make([]Ranked, len(t.keys))
	for i, k := range t.keys {
		out[i] = Ranked{Name: k, Value: t.sums[i]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}

// byCount 按出现次数降序
func (t *tally) byCount() []Ranked {
	out := make([]Ranked, len(t.keys))
	for i, k := range t.keys {
		out[i] = Ranked{Name: k, Value: float64(t.count[i])}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}

func top(r []Ranked, n int) []Ranked {
	if n > 0 && len(r) > n {
		return r[:n]
	}
	return r
}

func names(r []Ranked) []string {
	out := make([]string, len(r))
	for i, x := range r {
		out[i] = x.Name
	}
	return out
}
