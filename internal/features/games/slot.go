// Package games — slot.go реализует простой слот на три барабана.
package games

import "serotonyl.ru/discshop-bot/internal/common"

// Symbol представляет символ слота.
type Symbol struct {
	Emoji  string
	Name   string // для логов
	Weight int    // чем больше вес, тем чаще выпадает
}

// DefaultSymbols — символы слота. Все равновероятны.
var DefaultSymbols = []Symbol{
	{Emoji: "🍒", Name: "Cherry", Weight: 1},
	{Emoji: "🍋", Name: "Lemon", Weight: 1},
	{Emoji: "🍊", Name: "Orange", Weight: 1},
	{Emoji: "🍉", Name: "Watermelon", Weight: 1},
	{Emoji: "🍇", Name: "Grape", Weight: 1},
	{Emoji: "⭐", Name: "Star", Weight: 1},
	{Emoji: "7️⃣", Name: "Seven", Weight: 1},
	{Emoji: "🔔", Name: "Bell", Weight: 1},
}

// pickSymbol выбирает символ с учётом весов.
func pickSymbol(symbols []Symbol, rng common.RandSource) Symbol {
	total := 0
	for _, s := range symbols {
		total += s.Weight
	}
	if total <= 0 {
		return symbols[rng.Intn(len(symbols))]
	}

	r := rng.Intn(total)
	for _, s := range symbols {
		if r < s.Weight {
			return s
		}
		r -= s.Weight
	}
	return symbols[len(symbols)-1]
}

// SpinReels крутит три барабана и оценивает результат:
// три одинаковых — джекпот, два — «почти», иначе промах.
func SpinReels(symbols []Symbol, rng common.RandSource) ([3]string, SlotOutcome) {
	var reels [3]string
	for i := range reels {
		reels[i] = pickSymbol(symbols, rng).Emoji
	}

	switch {
	case reels[0] == reels[1] && reels[1] == reels[2]:
		return reels, SlotJackpot
	case reels[0] == reels[1] || reels[1] == reels[2] || reels[0] == reels[2]:
		return reels, SlotNear
	default:
		return reels, SlotMiss
	}
}
