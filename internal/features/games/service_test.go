package games

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/discshop-bot/internal/bot/chat"
	"serotonyl.ru/discshop-bot/internal/common"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// seqRand отдаёт заранее заданные значения по кругу.
type seqRand struct {
	ints []int
	i    int
}

func (r *seqRand) Float64() float64 { return 0 }

func (r *seqRand) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[r.i%len(r.ints)]
	r.i++
	return v % n
}

type fakeXP struct {
	mu     sync.Mutex
	grants map[string]int64
}

func (f *fakeXP) GrantXP(userID string, amount int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.grants == nil {
		f.grants = map[string]int64{}
	}
	f.grants[userID] += amount
	return 0
}

func (f *fakeXP) of(userID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.grants[userID]
}

func newTestService(ints ...int) (*Service, *fakeXP, *time.Time) {
	xp := &fakeXP{}
	now := t0
	s := NewService(&seqRand{ints: ints}, xp, 5)
	s.now = func() time.Time { return now }
	return s, xp, &now
}

func TestGuessFlow(t *testing.T) {
	s, xp, _ := newTestService(41)

	require.NoError(t, s.StartGuess("c1", "u1"))
	assert.ErrorIs(t, s.StartGuess("c1", "u2"), common.ErrGameInProgress)

	res, err := s.Guess("c1", "u2", 10)
	require.NoError(t, err)
	assert.Equal(t, HintLow, res.Hint)
	assert.Zero(t, res.Target, "target stays hidden until solved")

	res, err = s.Guess("c1", "u2", 90)
	require.NoError(t, err)
	assert.Equal(t, HintHigh, res.Hint)

	res, err = s.Guess("c1", "u2", 42)
	require.NoError(t, err)
	assert.Equal(t, HintCorrect, res.Hint)
	assert.Equal(t, 42, res.Target)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, int64(5), xp.of("u2"))
	assert.Zero(t, xp.of("u1"))

	_, err = s.Guess("c1", "u2", 42)
	assert.ErrorIs(t, err, common.ErrNoActiveGame)
}

func TestGuessIsPerChat(t *testing.T) {
	s, _, _ := newTestService(0)

	require.NoError(t, s.StartGuess("c1", "u1"))
	require.NoError(t, s.StartGuess("c2", "u1"))
	assert.Equal(t, 2, s.ActiveGames())

	_, err := s.Guess("c3", "u1", 1)
	assert.ErrorIs(t, err, common.ErrNoActiveGame)
}

func TestGuessExpires(t *testing.T) {
	s, _, now := newTestService(0)

	require.NoError(t, s.StartGuess("c1", "u1"))

	*now = now.Add(GuessTTL)
	_, err := s.Guess("c1", "u1", 1)
	assert.ErrorIs(t, err, common.ErrNoActiveGame)

	assert.NoError(t, s.StartGuess("c1", "u1"), "expired game does not block a new one")
}

func TestSweepAndClear(t *testing.T) {
	s, _, now := newTestService(0)

	require.NoError(t, s.StartGuess("c1", "u1"))
	*now = now.Add(3 * time.Minute)
	require.NoError(t, s.StartGuess("c2", "u1"))

	assert.Equal(t, 1, s.SweepExpired(t0.Add(GuessTTL)))
	assert.Equal(t, 1, s.ActiveGames())

	assert.Equal(t, 1, s.ClearGames())
	assert.Zero(t, s.ActiveGames())
}

func TestPlayRPS(t *testing.T) {
	tests := []struct {
		choice string
		botIdx int
		want   Outcome
	}{
		{Batu, 1, OutcomeWin},
		{Gunting, 2, OutcomeWin},
		{Kertas, 0, OutcomeWin},
		{Batu, 2, OutcomeLose},
		{Gunting, 0, OutcomeLose},
		{Kertas, 1, OutcomeLose},
		{"BATU", 0, OutcomeDraw},
	}
	for _, tt := range tests {
		t.Run(tt.choice+"/"+string(tt.want), func(t *testing.T) {
			s, xp, _ := newTestService(tt.botIdx)

			res, err := s.PlayRPS("u1", tt.choice)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Outcome)
			assert.Equal(t, rpsChoices[tt.botIdx], res.Bot)

			if tt.want == OutcomeWin {
				assert.Equal(t, int64(5), xp.of("u1"))
			} else {
				assert.Zero(t, xp.of("u1"))
			}
		})
	}
}

func TestRPSStats(t *testing.T) {
	s, _, _ := newTestService(1, 2, 0)

	_, ok := s.RPSStatsOf("u1")
	assert.False(t, ok)

	for i := 0; i < 3; i++ {
		_, err := s.PlayRPS("u1", Batu)
		require.NoError(t, err)
	}
	_, err := s.PlayRPS("u1", "pedang")
	assert.ErrorIs(t, err, common.ErrInvalidChoice)

	st, ok := s.RPSStatsOf("u1")
	require.True(t, ok)
	assert.Equal(t, RPSStats{Wins: 1, Losses: 1, Draws: 1}, st)
	assert.InDelta(t, 33.3, st.WinRate(), 0.1)
}

func TestFlip(t *testing.T) {
	s, xp, _ := newTestService(0, 0, 1, 0)

	res, err := s.Flip("u1", "")
	require.NoError(t, err)
	assert.Equal(t, Angka, res.Side)
	_, ok := s.FlipStatsOf("u1")
	assert.False(t, ok, "plain flip has no stats")

	res, err = s.Flip("u1", "head")
	require.NoError(t, err)
	assert.True(t, res.Won)
	assert.Equal(t, Angka, res.Guess)

	res, err = s.Flip("u1", "angka")
	require.NoError(t, err)
	assert.Equal(t, Gambar, res.Side)
	assert.False(t, res.Won)

	_, err = s.Flip("u1", "sisi")
	assert.ErrorIs(t, err, common.ErrInvalidChoice)

	st, ok := s.FlipStatsOf("u1")
	require.True(t, ok)
	assert.Equal(t, FlipStats{Wins: 1, Losses: 1}, st)
	assert.Equal(t, int64(5), xp.of("u1"))
}

func TestRollDice(t *testing.T) {
	s, _, _ := newTestService(0, 5, 2)

	res, err := s.RollDice(3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 6, 3}, res.Rolls)
	assert.Equal(t, 10, res.Total)
	assert.InDelta(t, 3.33, res.Average(), 0.01)

	for _, n := range []int{0, -1, MaxDice + 1} {
		_, err := s.RollDice(n)
		assert.ErrorIs(t, err, common.ErrInvalidChoice, n)
	}
}

func TestSpinReels(t *testing.T) {
	tests := []struct {
		name string
		ints []int
		want SlotOutcome
	}{
		{"jackpot", []int{6, 6, 6}, SlotJackpot},
		{"near first pair", []int{0, 0, 1}, SlotNear},
		{"near outer pair", []int{3, 1, 3}, SlotNear},
		{"miss", []int{0, 1, 2}, SlotMiss},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reels, outcome := SpinReels(DefaultSymbols, &seqRand{ints: tt.ints})
			assert.Equal(t, tt.want, outcome)
			assert.Equal(t, DefaultSymbols[tt.ints[0]].Emoji, reels[0])
		})
	}
}

func TestPickSymbolRespectsWeights(t *testing.T) {
	symbols := []Symbol{{Emoji: "a", Weight: 1}, {Emoji: "b", Weight: 3}}

	assert.Equal(t, "a", pickSymbol(symbols, &seqRand{ints: []int{0}}).Emoji)
	assert.Equal(t, "b", pickSymbol(symbols, &seqRand{ints: []int{1}}).Emoji)
	assert.Equal(t, "b", pickSymbol(symbols, &seqRand{ints: []int{3}}).Emoji)
}

func TestSlotJackpotGrantsXP(t *testing.T) {
	s, xp, _ := newTestService(2, 2, 2)

	res := s.Slot("u1")
	assert.Equal(t, SlotJackpot, res.Outcome)
	assert.Equal(t, int64(5), xp.of("u1"))
}

type recordingSender struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingSender) Send(ctx context.Context, chatID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, text)
	return nil
}

func (r *recordingSender) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return ""
	}
	return r.messages[len(r.messages)-1]
}

func TestHandlers(t *testing.T) {
	s, _, _ := newTestService(41)
	sender := &recordingSender{}
	h := NewHandler(s, sender, ".", true)
	ctx := context.Background()
	req := func(cmd string, args ...string) chat.Request {
		return chat.Request{ChatID: "c1", UserID: "u1", DisplayName: "Andi", Command: cmd, Args: args}
	}

	h.HandleGuess(ctx, req("tebakangka", "5"))
	assert.Contains(t, sender.last(), "Tidak ada permainan tebak angka")

	h.HandleGuessStart(ctx, req("tebak"))
	assert.Contains(t, sender.last(), "PERMAINAN TEBAK ANGKA")
	h.HandleGuessStart(ctx, req("tebak"))
	assert.Contains(t, sender.last(), "Sudah ada permainan")

	h.HandleGuess(ctx, req("tebakangka", "abc"))
	assert.Contains(t, sender.last(), "Argument tidak valid")
	h.HandleGuess(ctx, req("tebakangka", "10"))
	assert.Contains(t, sender.last(), "Terlalu rendah")
	h.HandleGuess(ctx, req("tebakangka", "42"))
	assert.Contains(t, sender.last(), "Angka yang benar adalah 42")

	h.HandleRPS(ctx, req("suit"))
	assert.Contains(t, sender.last(), "Pilih salah satu")
	h.HandleRPS(ctx, req("suit", "pedang"))
	assert.Contains(t, sender.last(), "Pilihan tidak valid")

	h.HandleFlipStats(ctx, req("flipstats"))
	assert.Contains(t, sender.last(), "belum pernah")

	h.HandleDice(ctx, req("dadu", "9"))
	assert.Contains(t, sender.last(), "Jumlah dadu tidak valid")
	h.HandleDice(ctx, req("dadu", "2"))
	assert.Contains(t, sender.last(), "📊 Total:")

	h.HandleClearGames(ctx, req("cleargames"))
	assert.Equal(t, "❌ Command ini khusus admin", sender.last())
	admin := req("cleargames")
	admin.IsAdmin = true
	h.HandleClearGames(ctx, admin)
	assert.Contains(t, sender.last(), "membersihkan 0 game")
}

func TestHandlersDisabled(t *testing.T) {
	s, _, _ := newTestService(0)
	sender := &recordingSender{}
	h := NewHandler(s, sender, ".", false)

	h.HandleSlot(context.Background(), chat.Request{ChatID: "c1", UserID: "u1"})
	assert.Contains(t, sender.last(), "dinonaktifkan")

	h.HandleGamesList(context.Background(), chat.Request{ChatID: "c1"})
	assert.Contains(t, sender.last(), "DAFTAR PERMAINAN")
}
