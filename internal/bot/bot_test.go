package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/discshop-bot/internal/bot/chat"
	"serotonyl.ru/discshop-bot/internal/bot/filters"
	"serotonyl.ru/discshop-bot/internal/common"
	"serotonyl.ru/discshop-bot/internal/config"
	"serotonyl.ru/discshop-bot/internal/cooldown"
	"serotonyl.ru/discshop-bot/internal/features/economy"
	"serotonyl.ru/discshop-bot/internal/features/gacha"
	"serotonyl.ru/discshop-bot/internal/features/games"
	"serotonyl.ru/discshop-bot/internal/features/shop"
)

func TestParseCommand(t *testing.T) {
	p := NewCommandParser(".")

	tests := []struct {
		text  string
		cmd   string
		args  []string
		isCmd bool
	}{
		{".balance", "balance", nil, true},
		{"!Transfer @budi 100", "transfer", []string{"@budi", "100"}, true},
		{"/daily@ShopBot", "daily", nil, true},
		{"  .sell batu akik 2 ", "sell", []string{"batu", "akik", "2"}, true},
		{"hello", "", nil, false},
		{".", "", nil, false},
		{". balance", "", nil, false},
		{"...", "", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cmd, args, ok := p.ParseCommand(tt.text)
			assert.Equal(t, tt.isCmd, ok)
			assert.Equal(t, tt.cmd, cmd)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestCommandParserCustomPrefix(t *testing.T) {
	p := NewCommandParser("$")
	assert.Equal(t, []string{"$", "!", "/", "."}, p.validPrefixes)

	cmd, _, ok := p.ParseCommand("$ping")
	require.True(t, ok)
	assert.Equal(t, "ping", cmd)

	assert.Equal(t, []string{"!", "/", "."}, NewCommandParser("!").validPrefixes)
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

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func newTestBot(t *testing.T, cfg *config.Config) (*Bot, *economy.Store, *recordingSender) {
	t.Helper()
	sender := &recordingSender{}
	store := economy.NewStore(1000, nil)
	gate := cooldown.NewGate(map[string]time.Duration{cooldown.ActionWork: time.Hour})
	rng := common.NewRandSource(7)

	ecoService := economy.NewService(store, gate, gacha.DefaultCatalog(), rng, economy.Options{GachaEnabled: true})
	gameService := games.NewService(rng, ecoService, economy.XPGameWin)

	b := New(
		cfg,
		sender,
		ecoService,
		economy.NewHandler(ecoService, sender, cfg.BotPrefix, time.UTC),
		games.NewHandler(gameService, sender, cfg.BotPrefix, true),
		shop.NewHandler(shop.Info{Name: "DiscShop", AdminTag: "@admin"}, sender, cfg.BotPrefix, nil),
		filters.NewChatFilter(cfg.AllowedChatIDs),
	)
	t.Cleanup(b.Close)
	return b, store, sender
}

func testConfig() *config.Config {
	return &config.Config{
		BotPrefix:         ".",
		AdminIDs:          []string{"boss"},
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
	}
}

func message(userID, name, text string) chat.Message {
	return chat.Message{
		Platform: config.PlatformDiscord,
		ChatID:   "c1",
		Author:   chat.User{ID: userID, Name: name},
		Text:     text,
	}
}

func TestHandleMessageRoutesAndTouches(t *testing.T) {
	b, store, sender := newTestBot(t, testConfig())
	ctx := context.Background()

	b.HandleMessage(ctx, message("u1", "Andi", ".balance"))
	assert.Equal(t, "💰 Saldo Andi: 1.000 koin", sender.last())

	// обычный текст регистрирует пользователя, но не отвечает
	b.HandleMessage(ctx, message("u2", "Budi", "halo semua"))
	assert.True(t, store.Exists("u2"))
	assert.Equal(t, 1, sender.count())

	b.HandleMessage(ctx, message("u1", "Andi", ".nosuchcmd"))
	assert.Equal(t, "❌ Command tidak ditemukan! Ketik `.help` untuk bantuan.", sender.last())

	b.HandleMessage(ctx, message("u1", "Andi", ".bal"))
	assert.Contains(t, sender.last(), "Saldo Andi")
}

func TestHandleMessageTouchesMentions(t *testing.T) {
	b, store, sender := newTestBot(t, testConfig())

	msg := message("u1", "Andi", ".transfer <@u9> 100")
	msg.Mentions = []chat.User{{ID: "u9", Name: "Citra"}}
	b.HandleMessage(context.Background(), msg)

	assert.True(t, store.Exists("u9"))
	assert.Contains(t, sender.last(), "ke Citra berhasil")
}

func TestHandleMessageAdmin(t *testing.T) {
	b, _, sender := newTestBot(t, testConfig())
	ctx := context.Background()
	b.HandleMessage(ctx, message("u1", "Andi", ".balance"))

	b.HandleMessage(ctx, message("u2", "Budi", ".addmoney u1 50"))
	assert.Equal(t, "❌ Command ini khusus admin", sender.last())

	b.HandleMessage(ctx, message("boss", "Boss", ".addmoney u1 50"))
	assert.Contains(t, sender.last(), "✅ 50 koin ditambahkan")

	platformAdmin := message("mod", "Mod", ".addmoney u1 50")
	platformAdmin.IsAdmin = true
	b.HandleMessage(ctx, platformAdmin)
	assert.Contains(t, sender.last(), "✅ 50 koin ditambahkan")
}

func TestHandleMessageRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRequests = 2
	b, _, sender := newTestBot(t, cfg)

	for i := 0; i < 5; i++ {
		b.HandleMessage(context.Background(), message("u1", "Andi", ".ping"))
	}
	// .ping без LatencyFunc отправляет два сообщения
	assert.Equal(t, 4, sender.count())
}

func TestHandleMessageFiltered(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedChatIDs = []string{"other"}
	b, store, sender := newTestBot(t, cfg)

	b.HandleMessage(context.Background(), message("u1", "Andi", ".balance"))
	assert.Zero(t, sender.count())
	assert.False(t, store.Exists("u1"))
}

func TestAllDocumentedCommandsAreRouted(t *testing.T) {
	b, _, _ := newTestBot(t, testConfig())

	commands := "balance bal saldo daily collect work kerja crime transfer pay rich leaderboard top " +
		"profile level history transaksi gacha gachainfo inventory inv sell addmoney reseteco cleargames " +
		"tebak guess tebakangka suit rps suitstats flip coin koin flipstats dadu dice roll slot slots games " +
		"pricelist payment payimage done ping help"
	for _, c := range strings.Fields(commands) {
		_, ok := b.routes[c]
		assert.True(t, ok, c)
	}
}

func TestTelegramMessage(t *testing.T) {
	m := &tgbotapi.Message{
		Text: "/transfer 100",
		Chat: &tgbotapi.Chat{ID: -100123},
		From: &tgbotapi.User{ID: 42, FirstName: "Andi"},
		Entities: []tgbotapi.MessageEntity{
			{Type: "text_mention", User: &tgbotapi.User{ID: 7, UserName: "budi"}},
			{Type: "bold"},
		},
		ReplyToMessage: &tgbotapi.Message{From: &tgbotapi.User{ID: 8, UserName: "citra"}},
	}

	got := telegramMessage(m)
	assert.Equal(t, "-100123", got.ChatID)
	assert.Equal(t, chat.User{ID: "42", Name: "Andi"}, got.Author)
	assert.Equal(t, []chat.User{{ID: "7", Name: "budi"}, {ID: "8", Name: "citra"}}, got.Mentions)
	assert.False(t, got.IsAdmin)
}
