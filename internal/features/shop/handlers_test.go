package shop

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/discshop-bot/internal/bot/chat"
	"serotonyl.ru/discshop-bot/internal/config"
)

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

func (r *recordingSender) all() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.messages, "\n---\n")
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func testInfo() Info {
	return Info{
		Name:         "DiscShop",
		QRISURL:      "https://example.com/qris.png",
		AdminTag:     "@owner",
		BankInfo:     "SEABANK 123",
		TestimonyURL: "https://example.com/testi",
		Pricelist: []PriceEntry{
			{Title: "Nitro Promotion", Link: "https://example.com/nitro"},
			{Title: "Joki Orbs"},
		},
	}
}

func TestParsePricelist(t *testing.T) {
	got := ParsePricelist(" Nitro | https://a ; ; Deco|https://b;Orbs ;|https://orphan")
	assert.Equal(t, []PriceEntry{
		{Title: "Nitro", Link: "https://a"},
		{Title: "Deco", Link: "https://b"},
		{Title: "Orbs"},
	}, got)

	assert.Empty(t, ParsePricelist(""))
}

func TestInfoFromConfig(t *testing.T) {
	cfg := &config.Config{
		ShopName:      "Toko",
		ShopAdminTag:  "@a",
		ShopPricelist: "X|https://x",
	}
	info := InfoFromConfig(cfg)
	assert.Equal(t, "Toko", info.Name)
	require.Len(t, info.Pricelist, 1)
	assert.Equal(t, "https://x", info.Pricelist[0].Link)
}

func TestHandlePricelist(t *testing.T) {
	sender := &recordingSender{}
	NewHandler(testInfo(), sender, ".", nil).HandlePricelist(context.Background(), chat.Request{ChatID: "c"})

	out := sender.all()
	assert.Contains(t, out, "PRICELIST DISCSHOP")
	assert.Contains(t, out, "NITRO PROMOTION\nhttps://example.com/nitro")
	assert.Contains(t, out, "JOKI ORBS")

	empty := &recordingSender{}
	NewHandler(Info{AdminTag: "@owner"}, empty, ".", nil).HandlePricelist(context.Background(), chat.Request{ChatID: "c"})
	assert.Contains(t, empty.all(), "belum tersedia")
}

func TestHandlePayment(t *testing.T) {
	sender := &recordingSender{}
	h := NewHandler(testInfo(), sender, ".", nil)

	h.HandlePayment(context.Background(), chat.Request{ChatID: "c", Args: []string{"INV-42"}})

	assert.Equal(t, 3, sender.count())
	out := sender.all()
	assert.Contains(t, out, "SEABANK 123")
	assert.Contains(t, out, "https://example.com/qris.png")
	assert.Contains(t, out, "INVOICE ID: `INV-42`")
	assert.Contains(t, out, "Kirim ke @owner")
}

func TestHandlePayImageWithoutQR(t *testing.T) {
	sender := &recordingSender{}
	NewHandler(Info{AdminTag: "@owner"}, sender, ".", nil).HandlePayImage(context.Background(), chat.Request{ChatID: "c"})
	assert.Contains(t, sender.all(), "belum diatur")
}

func TestHandlePing(t *testing.T) {
	sender := &recordingSender{}
	h := NewHandler(testInfo(), sender, ".", func() time.Duration { return 42 * time.Millisecond })
	h.HandlePing(context.Background(), chat.Request{ChatID: "c"})
	assert.Equal(t, "🏓 Pong! 42ms", sender.all())

	measured := &recordingSender{}
	h = NewHandler(testInfo(), measured, ".", nil)
	h.HandlePing(context.Background(), chat.Request{ChatID: "c"})
	assert.Equal(t, 2, measured.count())
}

func TestHandleHelp(t *testing.T) {
	sender := &recordingSender{}
	h := NewHandler(testInfo(), sender, "!", nil)

	h.HandleHelp(context.Background(), chat.Request{ChatID: "c"})
	assert.Contains(t, sender.all(), "`!pricelist`")
	assert.NotContains(t, sender.all(), "addmoney")

	h.HandleHelp(context.Background(), chat.Request{ChatID: "c", IsAdmin: true})
	assert.Contains(t, sender.all(), "`!addmoney @user [jumlah]`")
}
