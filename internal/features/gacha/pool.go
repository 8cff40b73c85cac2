// Package gacha описывает пулы гачи и взвешенный выбор предмета.
// Пулы — статическая конфигурация, не состояние пользователя.
package gacha

import (
	"sort"
	"strings"

	"serotonyl.ru/discshop-bot/internal/common"
)

// Version — версия каталога пулов. Меняется при любом изменении весов или цен.
const Version = "2024.1"

// Редкости по возрастанию.
const (
	RarityCommon    = "Common"
	RarityUncommon  = "Uncommon"
	RarityRare      = "Rare"
	RarityEpic      = "Epic"
	RarityLegendary = "Legendary"
	RarityMythic    = "Mythic"
)

// Entry — один предмет пула.
type Entry struct {
	Name   string
	Rarity string
	Value  int64 // цена продажи
	Weight int
}

// Pool — именованный пул с ценой одного прокрута.
// Version меняется при любом изменении весов или цен пула.
type Pool struct {
	Name    string
	Version string
	Cost    int64
	Entries []Entry
}

// TotalWeight — сумма весов пула.
func (p Pool) TotalWeight() int {
	total := 0
	for _, e := range p.Entries {
		total += e.Weight
	}
	return total
}

// Chance — вероятность записи в процентах.
func (p Pool) Chance(e Entry) float64 {
	total := p.TotalWeight()
	if total == 0 {
		return 0
	}
	return float64(e.Weight) * 100 / float64(total)
}

// Draw выбирает запись: r равномерно из [0, total), затем проход
// с накоплением весов до первой записи, где сумма >= r.
// При одинаковом потоке rng результат одинаковый.
func Draw(p Pool, rng common.RandSource) Entry {
	total := p.TotalWeight()
	r := rng.Float64() * float64(total)

	cumulative := 0
	for _, e := range p.Entries {
		cumulative += e.Weight
		if float64(cumulative) >= r {
			return e
		}
	}
	return p.Entries[len(p.Entries)-1]
}

// Catalog — набор пулов и поиск предметов по имени.
type Catalog struct {
	pools map[string]Pool
	items map[string]Entry // lower(name) → entry
}

// NewCatalog собирает каталог. Имена предметов уникальны между пулами.
func NewCatalog(pools ...Pool) *Catalog {
	c := &Catalog{
		pools: make(map[string]Pool, len(pools)),
		items: make(map[string]Entry),
	}
	for _, p := range pools {
		c.pools[strings.ToLower(p.Name)] = p
		for _, e := range p.Entries {
			c.items[strings.ToLower(e.Name)] = e
		}
	}
	return c
}

// DefaultCatalog — пулы normal и premium.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Pool{
			Name:    "normal",
			Version: Version,
			Cost:    100,
			Entries: []Entry{
				{Name: "Batu Akik", Rarity: RarityCommon, Value: 20, Weight: 40},
				{Name: "Koin Perunggu", Rarity: RarityUncommon, Value: 50, Weight: 30},
				{Name: "Kristal Biru", Rarity: RarityRare, Value: 120, Weight: 15},
				{Name: "Pedang Perak", Rarity: RarityEpic, Value: 300, Weight: 10},
				{Name: "Mahkota Emas", Rarity: RarityLegendary, Value: 800, Weight: 4},
				{Name: "Naga Kristal", Rarity: RarityMythic, Value: 2500, Weight: 1},
			},
		},
		Pool{
			Name:    "premium",
			Version: Version,
			Cost:    500,
			Entries: []Entry{
				{Name: "Permata Hijau", Rarity: RarityCommon, Value: 100, Weight: 40},
				{Name: "Jubah Sutra", Rarity: RarityUncommon, Value: 250, Weight: 30},
				{Name: "Tongkat Sihir", Rarity: RarityRare, Value: 600, Weight: 15},
				{Name: "Sayap Phoenix", Rarity: RarityEpic, Value: 1500, Weight: 10},
				{Name: "Mahkota Raja", Rarity: RarityLegendary, Value: 4000, Weight: 4},
				{Name: "Bintang Abadi", Rarity: RarityMythic, Value: 12000, Weight: 1},
			},
		},
	)
}

// Pool возвращает пул по имени (без учёта регистра).
func (c *Catalog) Pool(name string) (Pool, bool) {
	p, ok := c.pools[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Pools — все пулы, отсортированные по цене.
func (c *Catalog) Pools() []Pool {
	out := make([]Pool, 0, len(c.pools))
	for _, p := range c.pools {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cost < out[j].Cost })
	return out
}

// Item ищет предмет по имени.
func (c *Catalog) Item(name string) (Entry, bool) {
	e, ok := c.items[strings.ToLower(strings.TrimSpace(name))]
	return e, ok
}
