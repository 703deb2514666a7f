package processor

import (
	"testing"

	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
)

func TestPlaceholdersIgnoreCase(t *testing.T) {
	ph := NewPlaceholders([]string{"", "unknown", "tidak diketahui"})

	for _, s := range []string{"", "unknown", "UNKNOWN", "Unknown", "Tidak Diketahui", "TIDAK DIKETAHUI"} {
		assert.True(t, ph.Is(s), "%q", s)
	}
	// 前后空格不做处理
	for _, s := range []string{" ", "unknown ", "Joko", "tidak"} {
		assert.False(t, ph.Is(s), "%q", s)
	}

	assert.True(t, ph.Missing(series.New([]string{"NaN"}, series.String, "x").Elem(0)))
	assert.False(t, ph.Missing(series.New([]float64{0}, series.Float, "x").Elem(0)))
}

func TestCountMissing(t *testing.T) {
	df := frame(t, []string{"Sopir", "Plat Nomor", "Order"},
		[]string{"NaN", "B123", "Toko A"},
		[]string{"unknown", "NaN", "Toko A"},
		[]string{"Joko", "UNKNOWN", "NaN"},
		[]string{"Budi", "B124", "Toko B"},
	)
	ph := NewPlaceholders([]string{"", "unknown", "tidak diketahui"})

	report := CountMissing(df, []string{"Sopir", "Plat Nomor", "Order", "Tanggal"}, ph)

	// 3个空值 + 2个不同大小写的unknown
	assert.Equal(t, 5, report.Total)
	assert.Equal(t, map[string]int{"Sopir": 2, "Plat Nomor": 2, "Order": 1}, report.Counts)
	assert.Equal(t, []string{"Sopir", "Plat Nomor", "Order"}, report.Columns, "absent columns are not reported")
	assert.Equal(t, []MissingEntry{{"Sopir", 2}, {"Plat Nomor", 2}, {"Order", 1}}, report.Entries())

	assert.False(t, IsClean(df, []string{"Sopir"}, ph))
	assert.True(t, IsClean(df.Subset([]int{3}), []string{"Sopir", "Plat Nomor", "Order"}, ph))
}

func TestCountMissingSingleColumn(t *testing.T) {
	df := frame(t, []string{"Sopir"},
		[]string{"NaN"},
		[]string{"unknown"},
		[]string{"Joko"},
		[]string{"NaN"},
		[]string{"UnKnown"},
		[]string{"NaN"},
	)
	ph := NewPlaceholders([]string{"", "unknown", "tidak diketahui"})

	report := CountMissing(df, []string{"Sopir"}, ph)
	assert.Equal(t, 5, report.Total)
	assert.Equal(t, map[string]int{"Sopir": 5}, report.Counts)
}

func TestCountMarked(t *testing.T) {
	df := frame(t, []string{"Sopir", "Plat Nomor"},
		[]string{"Tidak Diketahui", "B123"},
		[]string{"tidak diketahui", "Tidak Diketahui"},
		[]string{"NaN", "B124"},
	)
	ph := NewPlaceholders([]string{"", "unknown", "tidak diketahui"})
	cols := []string{"Sopir", "Plat Nomor", "Order"}

	report := CountMissing(df, cols, ph)
	report.Marked = CountMarked(df, cols, "Tidak Diketahui")

	assert.Equal(t, 4, report.Total)
	// 大小写不同的不算未知标记
	assert.Equal(t, 2, report.Marked)
	assert.Equal(t, 2, report.Unresolved())
}
