// Package games — service.go хранит состояние мини-игр в памяти и считает исходы.
// Победы приносят XP через экономику.
package games

import (
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discshop-bot/internal/common"
)

// GuessTTL — сколько живёт игра «угадай число» без победителя.
const GuessTTL = 5 * time.Minute

// XPGranter начисляет опыт за победы.
type XPGranter interface {
	GrantXP(userID string, amount int64) int
}

// Service управляет мини-играми.
// Статистика и активные игры живут только в памяти процесса.
type Service struct {
	mu      sync.Mutex
	rng     common.RandSource
	xp      XPGranter
	xpWin   int64
	symbols []Symbol

	guesses map[string]*guessGame // chatID → игра
	rps     map[string]*RPSStats
	flips   map[string]*FlipStats

	now func() time.Time
}

// NewService создаёт сервис мини-игр. xp может быть nil: тогда опыт не начисляется.
func NewService(rng common.RandSource, xp XPGranter, xpPerWin int64) *Service {
	return &Service{
		rng:     rng,
		xp:      xp,
		xpWin:   xpPerWin,
		symbols: DefaultSymbols,
		guesses: make(map[string]*guessGame),
		rps:     make(map[string]*RPSStats),
		flips:   make(map[string]*FlipStats),
		now:     time.Now,
	}
}

// grantWin вызывается без s.mu: экономика берёт свою блокировку.
func (s *Service) grantWin(userID, game string) int {
	if s.xp == nil || s.xpWin <= 0 {
		return 0
	}
	ups := s.xp.GrantXP(userID, s.xpWin)
	log.WithFields(log.Fields{
		"user_id": userID,
		"game":    game,
		"xp":      s.xpWin,
	}).Debug("XP за победу")
	return ups
}

// activeGuess возвращает живую игру чата. Просроченная удаляется. Вызывать под s.mu.
func (s *Service) activeGuess(chatID string, now time.Time) (*guessGame, bool) {
	g, ok := s.guesses[chatID]
	if !ok {
		return nil, false
	}
	if now.Sub(g.StartedAt) >= GuessTTL {
		delete(s.guesses, chatID)
		return nil, false
	}
	return g, true
}

// StartGuess загадывает число от 1 до 100 в чате. Одна игра на чат.
func (s *Service) StartGuess(chatID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if _, ok := s.activeGuess(chatID, now); ok {
		return common.ErrGameInProgress
	}
	s.guesses[chatID] = &guessGame{
		Number:    int(common.RandRange(s.rng, GuessMin, GuessMax)),
		Creator:   userID,
		StartedAt: now,
	}
	return nil
}

// Guess проверяет попытку. Угадавший завершает игру и получает XP.
func (s *Service) Guess(chatID, userID string, n int) (GuessResult, error) {
	s.mu.Lock()
	g, ok := s.activeGuess(chatID, s.now())
	if !ok {
		s.mu.Unlock()
		return GuessResult{}, common.ErrNoActiveGame
	}

	g.Attempts++
	res := GuessResult{Target: g.Number, Attempts: g.Attempts}
	switch {
	case n < g.Number:
		res.Hint = HintLow
	case n > g.Number:
		res.Hint = HintHigh
	default:
		res.Hint = HintCorrect
		delete(s.guesses, chatID)
	}
	s.mu.Unlock()

	if res.Hint != HintCorrect {
		res.Target = 0
		return res, nil
	}
	res.LevelUps = s.grantWin(userID, "tebak")
	return res, nil
}

// beats — что побеждает каждый ход.
var beats = map[string]string{
	Batu:    Gunting,
	Gunting: Kertas,
	Kertas:  Batu,
}

var rpsChoices = []string{Batu, Gunting, Kertas}

// PlayRPS играет раунд суита против бота.
func (s *Service) PlayRPS(userID, choice string) (RPSResult, error) {
	choice = strings.ToLower(strings.TrimSpace(choice))
	if _, ok := beats[choice]; !ok {
		return RPSResult{}, common.ErrInvalidChoice
	}

	s.mu.Lock()
	botChoice := rpsChoices[s.rng.Intn(len(rpsChoices))]
	res := RPSResult{Player: choice, Bot: botChoice}

	st := s.rps[userID]
	if st == nil {
		st = &RPSStats{}
		s.rps[userID] = st
	}
	switch {
	case choice == botChoice:
		res.Outcome = OutcomeDraw
		st.Draws++
	case beats[choice] == botChoice:
		res.Outcome = OutcomeWin
		st.Wins++
	default:
		res.Outcome = OutcomeLose
		st.Losses++
	}
	s.mu.Unlock()

	if res.Outcome == OutcomeWin {
		res.LevelUps = s.grantWin(userID, "suit")
	}
	return res, nil
}

// RPSStatsOf возвращает статистику суита. false — пользователь ещё не играл.
func (s *Service) RPSStatsOf(userID string) (RPSStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.rps[userID]
	if !ok {
		return RPSStats{}, false
	}
	return *st, true
}

// normalizeSide приводит ставку к стороне монеты: head = angka, tail = gambar.
func normalizeSide(guess string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(guess)) {
	case Angka, "head":
		return Angka, true
	case Gambar, "tail":
		return Gambar, true
	}
	return "", false
}

// Flip бросает монету. Пустая ставка — бросок без статистики.
func (s *Service) Flip(userID, guess string) (FlipResult, error) {
	var side string
	if guess != "" {
		var ok bool
		if side, ok = normalizeSide(guess); !ok {
			return FlipResult{}, common.ErrInvalidChoice
		}
	}

	s.mu.Lock()
	res := FlipResult{Side: Angka, Guess: side}
	if s.rng.Intn(2) == 1 {
		res.Side = Gambar
	}
	if side != "" {
		st := s.flips[userID]
		if st == nil {
			st = &FlipStats{}
			s.flips[userID] = st
		}
		res.Won = side == res.Side
		if res.Won {
			st.Wins++
		} else {
			st.Losses++
		}
	}
	s.mu.Unlock()

	if res.Won {
		res.LevelUps = s.grantWin(userID, "flip")
	}
	return res, nil
}

// FlipStatsOf возвращает статистику флипа. false — пользователь ещё не играл.
func (s *Service) FlipStatsOf(userID string) (FlipStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.flips[userID]
	if !ok {
		return FlipStats{}, false
	}
	return *st, true
}

// RollDice бросает от 1 до 5 кубиков.
func (s *Service) RollDice(count int) (DiceResult, error) {
	if count < 1 || count > MaxDice {
		return DiceResult{}, common.ErrInvalidChoice
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := DiceResult{Rolls: make([]int, count)}
	for i := range res.Rolls {
		res.Rolls[i] = int(common.RandRange(s.rng, 1, 6))
		res.Total += res.Rolls[i]
	}
	return res, nil
}

// Slot крутит слот. Джекпот приносит XP.
func (s *Service) Slot(userID string) SlotResult {
	s.mu.Lock()
	reels, outcome := SpinReels(s.symbols, s.rng)
	s.mu.Unlock()

	res := SlotResult{Reels: reels, Outcome: outcome}
	if outcome == SlotJackpot {
		res.LevelUps = s.grantWin(userID, "slot")
	}
	return res
}

// ClearGames удаляет все активные игры «угадай число». Возвращает сколько удалено.
func (s *Service) ClearGames() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.guesses)
	s.guesses = make(map[string]*guessGame)
	return n
}

// SweepExpired удаляет просроченные игры. Вызывается планировщиком.
func (s *Service) SweepExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for chatID, g := range s.guesses {
		if now.Sub(g.StartedAt) >= GuessTTL {
			delete(s.guesses, chatID)
			removed++
		}
	}
	return removed
}

// ActiveGames — сколько игр «угадай число» идёт сейчас.
func (s *Service) ActiveGames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.guesses)
}
