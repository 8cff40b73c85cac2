// Package shop — handlers.go обрабатывает .pricelist, .payment, .payimage, .done, .ping и .help.
package shop

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discshop-bot/internal/bot/chat"
)

// LatencyFunc возвращает задержку до платформы (heartbeat у Discord).
type LatencyFunc func() time.Duration

// Handler обрабатывает команды магазина.
type Handler struct {
	info    Info
	sender  chat.Sender
	prefix  string
	latency LatencyFunc
	now     func() time.Time
}

// NewHandler создаёт обработчик. latency может быть nil:
// тогда .ping замеряет время отправки ответа.
func NewHandler(info Info, sender chat.Sender, prefix string, latency LatencyFunc) *Handler {
	return &Handler{
		info:    info,
		sender:  sender,
		prefix:  prefix,
		latency: latency,
		now:     time.Now,
	}
}

// HandlePricelist — .pricelist.
func (h *Handler) HandlePricelist(ctx context.Context, req chat.Request) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 PRICELIST %s 📋\n", strings.ToUpper(h.info.Name)))
	sb.WriteString("========================================\n")

	if len(h.info.Pricelist) == 0 {
		sb.WriteString(fmt.Sprintf("\nPricelist belum tersedia. Hubungi %s", h.info.AdminTag))
		h.send(ctx, req.ChatID, sb.String())
		return
	}
	for _, e := range h.info.Pricelist {
		sb.WriteString("\n" + strings.ToUpper(e.Title) + "\n")
		if e.Link != "" {
			sb.WriteString(e.Link + "\n")
		}
	}
	h.send(ctx, req.ChatID, sb.String())
}

// HandlePayment — .payment [invoice]: реквизиты и инструкция.
func (h *Handler) HandlePayment(ctx context.Context, req chat.Request) {
	var sb strings.Builder
	sb.WriteString("💳 METODE PEMBAYARAN\n")
	if h.info.BankInfo != "" {
		sb.WriteString("\n🏦 TRANSFER BANK\n" + h.info.BankInfo + "\n")
	}
	if h.info.PaymentURL != "" {
		sb.WriteString("\n🔗 Link pembayaran: " + h.info.PaymentURL + "\n")
	}
	h.send(ctx, req.ChatID, sb.String())

	if h.info.QRISURL != "" {
		h.send(ctx, req.ChatID, "🏦 QR CODE:\n"+h.info.QRISURL)
	}

	steps := fmt.Sprintf(
		"📋 CARA PEMBAYARAN\n"+
			"1️⃣ Pilih metode transfer di atas\n"+
			"2️⃣ Scan QR dengan aplikasi bank/e-wallet\n"+
			"3️⃣ Transfer sesuai jumlah\n"+
			"4️⃣ Screenshot bukti transfer\n"+
			"5️⃣ Kirim ke %s untuk konfirmasi",
		h.info.AdminTag,
	)
	if invoice := req.Arg(0); invoice != "" {
		steps += fmt.Sprintf("\n\n📄 INVOICE ID: `%s`", invoice)
	}
	h.send(ctx, req.ChatID, steps)
}

// HandlePayImage — .payimage: только QR.
func (h *Handler) HandlePayImage(ctx context.Context, req chat.Request) {
	if h.info.QRISURL == "" {
		h.send(ctx, req.ChatID, fmt.Sprintf("❌ QR pembayaran belum diatur. Hubungi %s", h.info.AdminTag))
		return
	}
	h.send(ctx, req.ChatID, "💳 GAMBAR PEMBAYARAN:\n"+h.info.QRISURL)
	h.send(ctx, req.ChatID, fmt.Sprintf("📋 INSTRUKSI: Transfer sesuai nominal, lalu kirim bukti ke %s!", h.info.AdminTag))
}

// HandleDone — .done: ссылка на канал с отзывами.
func (h *Handler) HandleDone(ctx context.Context, req chat.Request) {
	link := h.info.TestimonyURL
	if link == "" {
		link = h.info.AdminTag
	}
	h.send(ctx, req.ChatID, link+"\n\nmohon untuk share testi di sini ya, bebas record/ss")
}

// HandlePing — .ping.
func (h *Handler) HandlePing(ctx context.Context, req chat.Request) {
	if h.latency != nil {
		h.send(ctx, req.ChatID, fmt.Sprintf("🏓 Pong! %dms", h.latency().Milliseconds()))
		return
	}
	start := h.now()
	if err := h.sender.Send(ctx, req.ChatID, "🏓 Pong!"); err != nil {
		log.WithError(err).WithField("chat_id", req.ChatID).Error("Ошибка отправки сообщения")
		return
	}
	h.send(ctx, req.ChatID, fmt.Sprintf("⏱️ %dms", h.now().Sub(start).Milliseconds()))
}

// HandleHelp — .help: список всех команд.
func (h *Handler) HandleHelp(ctx context.Context, req chat.Request) {
	p := h.prefix
	text := fmt.Sprintf(
		"𖥔˚ BANTUAN BOT %[2]s\nPrefix: `%[1]s`\n\n"+
			"𖥔˚ SHOP\n"+
			"`%[1]spricelist` - Lihat pricelist lengkap\n"+
			"`%[1]spayment [invoice]` - Metode pembayaran\n"+
			"`%[1]spayimage` - Kirim QR pembayaran\n"+
			"`%[1]sdone` - Link testimoni\n\n"+
			"𖥔˚ EKONOMI\n"+
			"`%[1]sbalance` - Cek saldo\n"+
			"`%[1]sdaily` - Hadiah harian\n"+
			"`%[1]scollect` - Ambil penghasilan pasif\n"+
			"`%[1]swork` / `%[1]scrime` - Cari koin\n"+
			"`%[1]stransfer @user [jumlah]` - Kirim koin\n"+
			"`%[1]srich` - Leaderboard\n"+
			"`%[1]sprofile` / `%[1]shistory` - Profil dan transaksi\n\n"+
			"𖥔˚ GACHA\n"+
			"`%[1]sgacha [normal/premium]` - Putar gacha\n"+
			"`%[1]sgachainfo` - Info pool\n"+
			"`%[1]sinventory` - Lihat item\n"+
			"`%[1]ssell [item] [jumlah]` - Jual item\n\n"+
			"𖥔˚ GAMES\n"+
			"`%[1]sgames` - Lihat semua game\n\n"+
			"𖥔˚ UTILITAS\n"+
			"`%[1]sping` - Cek koneksi bot\n"+
			"`%[1]shelp` - Tampilkan bantuan ini",
		p, h.info.Name,
	)
	if req.IsAdmin {
		text += fmt.Sprintf("\n\n𖥔˚ ADMIN\n`%[1]saddmoney @user [jumlah]`\n`%[1]sreseteco @user`\n`%[1]scleargames`", p)
	}
	h.send(ctx, req.ChatID, text)
}

func (h *Handler) send(ctx context.Context, chatID, text string) {
	if err := h.sender.Send(ctx, chatID, text); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
