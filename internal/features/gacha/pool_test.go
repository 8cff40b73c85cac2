package gacha

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/discshop-bot/internal/common"
)

type fixedRand struct {
	floats []float64
}

func (r *fixedRand) Float64() float64 {
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *fixedRand) Intn(n int) int { return 0 }

func testPool() Pool {
	return Pool{
		Name: "test",
		Cost: 10,
		Entries: []Entry{
			{Name: "a", Weight: 40},
			{Name: "b", Weight: 30},
			{Name: "c", Weight: 15},
			{Name: "d", Weight: 10},
			{Name: "e", Weight: 4},
			{Name: "f", Weight: 1},
		},
	}
}

func TestDraw(t *testing.T) {
	tests := []struct {
		name string
		r    float64 // r = Float64() * 100
		want string
	}{
		{name: "zero lands on first", r: 0, want: "a"},
		{name: "inside first", r: 39.9, want: "a"},
		{name: "boundary is inclusive", r: 40, want: "a"},
		{name: "second", r: 40.1, want: "b"},
		{name: "fourth", r: 94.5, want: "d"},
		{name: "last", r: 99.5, want: "f"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := &fixedRand{floats: []float64{tt.r / 100}}
			assert.Equal(t, tt.want, Draw(testPool(), rng).Name)
		})
	}
}

func TestDrawReproducible(t *testing.T) {
	p := testPool()
	a := common.NewRandSource(7)
	b := common.NewRandSource(7)
	for i := 0; i < 100; i++ {
		assert.Equal(t, Draw(p, a), Draw(p, b))
	}
}

func TestDrawDistribution(t *testing.T) {
	p := testPool()
	rng := common.NewRandSource(1)
	counts := map[string]int{}
	const n = 100000
	for i := 0; i < n; i++ {
		counts[Draw(p, rng).Name]++
	}
	assert.InDelta(t, 0.40, float64(counts["a"])/n, 0.01)
	assert.InDelta(t, 0.01, float64(counts["f"])/n, 0.005)
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	normal, ok := c.Pool("Normal")
	require.True(t, ok)
	assert.Equal(t, int64(100), normal.Cost)
	assert.Equal(t, 100, normal.TotalWeight())
	assert.Equal(t, Version, normal.Version)

	premium, ok := c.Pool("premium")
	require.True(t, ok)
	assert.Equal(t, int64(500), premium.Cost)
	assert.InDelta(t, 1.0, premium.Chance(premium.Entries[5]), 0.001)

	_, ok = c.Pool("legend")
	assert.False(t, ok)

	item, ok := c.Item("naga kristal")
	require.True(t, ok)
	assert.Equal(t, RarityMythic, item.Rarity)

	pools := c.Pools()
	require.Len(t, pools, 2)
	assert.Equal(t, "normal", pools[0].Name)
}
