package processor

import (
	"testing"

	"WaterTruckDashboard/src/config"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var catHeader = []string{"Jenis Transaksi", "Plat Nomor", "Sopir", "Order"}

func newImputer(strategy, visibility string) *Imputer {
	return &Imputer{
		Columns:      catHeader,
		Placeholders: NewPlaceholders([]string{"", "unknown", "tidak diketahui"}),
		Marker:       "Tidak Diketahui",
		Strategy:     strategy,
		Visibility:   visibility,
	}
}

func column(df dataframe.DataFrame, name string) []string {
	return df.Col(name).Records()
}

func TestImputeSimilarity(t *testing.T) {
	df := frame(t, catHeader,
		[]string{"Air", "B123", "", "Toko A"},
		[]string{"Air", "B123", "Joko", "Toko A"},
		[]string{"Air", "B999", "Budi", "Toko C"},
		[]string{"Air", "B999", "Budi", "Toko C"},
	)

	out, fills, err := newImputer(config.StrategySimilarityThenMode, config.VisibilitySnapshot).Impute(df)
	require.NoError(t, err)

	// 全局众数是Budi，但相似行给出Joko
	assert.Equal(t, []string{"Joko", "Joko", "Budi", "Budi"}, column(out, "Sopir"))
	require.Len(t, fills, 1)
	assert.Equal(t, Fill{Row: 0, Column: "Sopir", Value: "Joko", Source: FillSimilarity}, fills[0])

	// 输入不被修改
	assert.Equal(t, "", df.Col("Sopir").Elem(0).String())
}

func TestImputeGlobalModeFallback(t *testing.T) {
	df := frame(t, catHeader,
		[]string{"Air", "B100", "NaN", "Toko Z"},
		[]string{"Air", "B200", "Budi", "Toko B"},
		[]string{"Air", "B300", "Sari", "Toko C"},
		[]string{"Air", "B300", "Sari", "Toko C"},
	)

	out, fills, err := newImputer(config.StrategySimilarityThenMode, config.VisibilitySnapshot).Impute(df)
	require.NoError(t, err)

	assert.Equal(t, "Sari", column(out, "Sopir")[0])
	require.Len(t, fills, 1)
	assert.Equal(t, FillGlobalMode, fills[0].Source)
}

func TestImputeMarkerFallback(t *testing.T) {
	df := frame(t, catHeader,
		[]string{"Air", "B100", "", "Toko A"},
		[]string{"Air", "B200", "unknown", "Toko B"},
		[]string{"Air", "B300", "NaN", "Toko C"},
	)

	out, fills, err := newImputer(config.StrategySimilarityThenMode, config.VisibilitySnapshot).Impute(df)
	require.NoError(t, err)

	assert.Equal(t, []string{"Tidak Diketahui", "Tidak Diketahui", "Tidak Diketahui"}, column(out, "Sopir"))
	assert.Len(t, fills, 3)
	for _, f := range fills {
		assert.Equal(t, FillMarker, f.Source)
	}
}

func TestImputeTieBreakFirstSeen(t *testing.T) {
	df := frame(t, catHeader,
		[]string{"Air", "B1", "Sari", "Toko A"},
		[]string{"Air", "B1", "Budi", "Toko A"},
		[]string{"Air", "B1", "Budi", "Toko A"},
		[]string{"Air", "B1", "Sari", "Toko A"},
		[]string{"Air", "B1", "", "Toko A"},
	)

	out, _, err := newImputer(config.StrategySimilarityThenMode, config.VisibilitySnapshot).Impute(df)
	require.NoError(t, err)
	assert.Equal(t, "Sari", column(out, "Sopir")[4])
}

func TestImputeIgnoresMissingKeyColumns(t *testing.T) {
	// 第0行的Plat Nomor缺失，只按Jenis Transaksi与Order匹配
	df := frame(t, catHeader,
		[]string{"Air", "", "", "Toko A"},
		[]string{"Air", "B5", "Joko", "Toko A"},
		[]string{"Air", "B6", "Budi", "Toko B"},
		[]string{"Air", "B6", "Budi", "Toko B"},
	)

	out, _, err := newImputer(config.StrategySimilarityThenMode, config.VisibilitySnapshot).Impute(df)
	require.NoError(t, err)
	assert.Equal(t, "B5", column(out, "Plat Nomor")[0])
	assert.Equal(t, "Joko", column(out, "Sopir")[0])
}

func TestImputeEmptyValueIsNotAbsentKey(t *testing.T) {
	// 占位值不含""时，空车牌是有效值，与缺失车牌的行不能共用匹配结果
	im := newImputer(config.StrategySimilarityThenMode, config.VisibilitySnapshot)
	im.Placeholders = NewPlaceholders([]string{"unknown"})

	df := frame(t, catHeader,
		[]string{"Air", "", "unknown", "Toko A"},
		[]string{"Air", "unknown", "unknown", "Toko A"},
		[]string{"Air", "", "Joko", "Toko A"},
		[]string{"Air", "B9", "Budi", "Toko A"},
		[]string{"Air", "B9", "Budi", "Toko A"},
	)

	out, _, err := im.Impute(df)
	require.NoError(t, err)

	drivers := column(out, "Sopir")
	assert.Equal(t, "Joko", drivers[0])
	assert.Equal(t, "Budi", drivers[1])
}

func TestImputeDirectUnknownFill(t *testing.T) {
	df := frame(t, catHeader,
		[]string{"Air", "B123", "", "Toko A"},
		[]string{"Air", "B123", "Joko", "UNKNOWN"},
	)

	out, fills, err := newImputer(config.StrategyDirectUnknownFill, config.VisibilitySnapshot).Impute(df)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tidak Diketahui", "Joko"}, column(out, "Sopir"))
	assert.Equal(t, []string{"Toko A", "Tidak Diketahui"}, column(out, "Order"))
	assert.Len(t, fills, 2)
}

func TestImputeVisibility(t *testing.T) {
	// 这组数据在两种模式下结果一致
	rows := [][]string{
		{"Air", "", "Joko", "Toko A"},
		{"Air", "B1", "", "Toko A"},
		{"Air", "B1", "Joko", "Toko A"},
		{"Beli", "B2", "Sari", "Toko Q"},
		{"Beli", "B2", "Sari", "Toko Q"},
		{"Beli", "B2", "Sari", "Toko Q"},
		{"Air", "B1", "", "Toko A"},
	}
	df := frame(t, catHeader, rows...)

	snap, _, err := newImputer(config.StrategySimilarityThenMode, config.VisibilitySnapshot).Impute(df)
	require.NoError(t, err)
	prog, _, err := newImputer(config.StrategySimilarityThenMode, config.VisibilityProgressive).Impute(df)
	require.NoError(t, err)

	assert.Equal(t, "B1", column(snap, "Plat Nomor")[0])
	assert.Equal(t, "B1", column(prog, "Plat Nomor")[0])
	assert.Equal(t, "Joko", column(snap, "Sopir")[1])
	assert.Equal(t, "Joko", column(prog, "Sopir")[1])
}

func TestImputeProgressiveSeesEarlierFills(t *testing.T) {
	// 所有Sopir都缺失：快照模式全部为未知标记；
	// 渐进模式下补全的标记仍是占位值，因此结果相同
	df := frame(t, catHeader,
		[]string{"Air", "B1", "", "Toko A"},
		[]string{"Air", "B1", "", "Toko A"},
	)
	prog, fills, err := newImputer(config.StrategySimilarityThenMode, config.VisibilityProgressive).Impute(df)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tidak Diketahui", "Tidak Diketahui"}, column(prog, "Sopir"))
	assert.Len(t, fills, 2)

	// 第1行的Order依赖第0行补全后的Plat Nomor
	df = frame(t, catHeader,
		[]string{"Air", "", "Joko", "Toko A"},
		[]string{"Air", "B9", "Joko", ""},
		[]string{"Beli", "B9", "Sari", "Toko B"},
		[]string{"Beli", "B9", "Sari", "Toko B"},
	)
	snap, _, err := newImputer(config.StrategySimilarityThenMode, config.VisibilitySnapshot).Impute(df)
	require.NoError(t, err)
	prog, _, err = newImputer(config.StrategySimilarityThenMode, config.VisibilityProgressive).Impute(df)
	require.NoError(t, err)

	assert.Equal(t, "B9", column(snap, "Plat Nomor")[0])
	assert.Equal(t, "B9", column(prog, "Plat Nomor")[0])
	// 快照：第0行的Plat Nomor仍视为缺失，(Air, B9, Joko)没有相似行，取全局众数
	assert.Equal(t, "Toko B", column(snap, "Order")[1])
	// 渐进：第0行已补全为B9，相似行给出Toko A
	assert.Equal(t, "Toko A", column(prog, "Order")[1])
}

func TestImputeUnknownStrategy(t *testing.T) {
	df := frame(t, catHeader, []string{"Air", "B1", "", "Toko A"})
	_, _, err := newImputer("guess", config.VisibilitySnapshot).Impute(df)
	assert.Error(t, err)
}

func TestModeCounter(t *testing.T) {
	mc := newModeCounter()
	_, ok := mc.mode()
	assert.False(t, ok)

	for _, v := range []string{"b", "a", "a", "b", "c"} {
		mc.add(v)
	}
	v, ok := mc.mode()
	assert.True(t, ok)
	assert.Equal(t, "b", v)
}
