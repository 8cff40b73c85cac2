// Package games реализует мини-игры бота: тебак ангка, суит, флип, даду и слот.
// models.go описывает состояние игр и результаты ходов.
package games

import "time"

// Варианты суита (камень, ножницы, бумага).
const (
	Batu    = "batu"
	Gunting = "gunting"
	Kertas  = "kertas"
)

// Стороны монеты.
const (
	Angka  = "angka"
	Gambar = "gambar"
)

// Исход раунда с точки зрения игрока.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLose Outcome = "lose"
	OutcomeDraw Outcome = "draw"
)

// Подсказка для тебак ангка.
type Hint string

const (
	HintCorrect Hint = "correct"
	HintLow     Hint = "low"
	HintHigh    Hint = "high"
)

const (
	GuessMin = 1
	GuessMax = 100

	MaxDice = 5
)

// guessGame — активная игра «угадай число» в одном чате.
type guessGame struct {
	Number    int
	Attempts  int
	Creator   string
	StartedAt time.Time
}

// RPSStats — статистика суита пользователя.
type RPSStats struct {
	Wins   int
	Losses int
	Draws  int
}

// Total — всего сыграно.
func (s RPSStats) Total() int {
	return s.Wins + s.Losses + s.Draws
}

// WinRate — процент побед (0, если игр не было).
func (s RPSStats) WinRate() float64 {
	if s.Total() == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Total()) * 100
}

// FlipStats — статистика флипа пользователя.
type FlipStats struct {
	Wins   int
	Losses int
}

// Total — всего сыграно.
func (s FlipStats) Total() int {
	return s.Wins + s.Losses
}

// WinRate — процент побед (0, если игр не было).
func (s FlipStats) WinRate() float64 {
	if s.Total() == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Total()) * 100
}

// GuessResult — итог одной попытки в тебак ангка.
type GuessResult struct {
	Hint     Hint
	Target   int
	Attempts int
	LevelUps int
}

// RPSResult — итог раунда суита.
type RPSResult struct {
	Player   string
	Bot      string
	Outcome  Outcome
	LevelUps int
}

// FlipResult — итог флипа. Guess пустой, если игрок просто бросил монету.
type FlipResult struct {
	Side     string
	Guess    string
	Won      bool
	LevelUps int
}

// DiceResult — итог броска кубиков.
type DiceResult struct {
	Rolls []int
	Total int
}

// Average — среднее значение броска.
func (d DiceResult) Average() float64 {
	if len(d.Rolls) == 0 {
		return 0
	}
	return float64(d.Total) / float64(len(d.Rolls))
}

// SlotOutcome — итог спина слота.
type SlotOutcome string

const (
	SlotJackpot SlotOutcome = "jackpot"
	SlotNear    SlotOutcome = "near"
	SlotMiss    SlotOutcome = "miss"
)

// SlotResult — результат спина трёх барабанов.
type SlotResult struct {
	Reels    [3]string
	Outcome  SlotOutcome
	LevelUps int
}
