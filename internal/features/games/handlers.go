// Package games — handlers.go обрабатывает команды мини-игр:
// .tebak, .tebakangka, .suit, .suitstats, .flip, .flipstats, .dadu, .slot, .games, .cleargames.
package games

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discshop-bot/internal/bot/chat"
	"serotonyl.ru/discshop-bot/internal/common"
)

var rpsEmoji = map[string]string{
	Batu:    "🪨",
	Gunting: "✂️",
	Kertas:  "📄",
}

var diceFaces = []string{"⚀", "⚁", "⚂", "⚃", "⚄", "⚅"}

// Handler обрабатывает команды мини-игр.
type Handler struct {
	service *Service
	sender  chat.Sender
	prefix  string
	enabled bool
}

// NewHandler создаёт обработчик игр. enabled=false отключает все игры, кроме .games.
func NewHandler(service *Service, sender chat.Sender, prefix string, enabled bool) *Handler {
	return &Handler{
		service: service,
		sender:  sender,
		prefix:  prefix,
		enabled: enabled,
	}
}

func (h *Handler) guard(ctx context.Context, req chat.Request) bool {
	if h.enabled {
		return true
	}
	h.send(ctx, req.ChatID, "🎮 Game sedang dinonaktifkan oleh admin")
	return false
}

// HandleGuessStart — .tebak: загадать число.
func (h *Handler) HandleGuessStart(ctx context.Context, req chat.Request) {
	if !h.guard(ctx, req) {
		return
	}
	if err := h.service.StartGuess(req.ChatID, req.UserID); err != nil {
		if errors.Is(err, common.ErrGameInProgress) {
			h.send(ctx, req.ChatID, "🎮 Sudah ada permainan tebak angka di channel ini!")
			return
		}
		h.replyUnexpected(ctx, req, err)
		return
	}

	text := fmt.Sprintf(
		"🔢 PERMAINAN TEBAK ANGKA\n"+
			"Saya telah memilih angka antara %d sampai %d!\n\n"+
			"🎯 Coba tebak dengan `%stebakangka [angka]`\n"+
			"⏱️ Game akan berakhir dalam %d menit\n"+
			"Dimulai oleh: %s",
		GuessMin, GuessMax, h.prefix, int(GuessTTL.Minutes()), req.DisplayName,
	)
	h.send(ctx, req.ChatID, text)
}

// HandleGuess — .tebakangka <n>: попытка угадать.
func (h *Handler) HandleGuess(ctx context.Context, req chat.Request) {
	if !h.guard(ctx, req) {
		return
	}
	n, err := strconv.Atoi(req.Arg(0))
	if err != nil {
		h.send(ctx, req.ChatID, fmt.Sprintf("❌ Argument tidak valid! Format: `%stebakangka [angka]`", h.prefix))
		return
	}

	res, err := h.service.Guess(req.ChatID, req.UserID, n)
	if err != nil {
		if errors.Is(err, common.ErrNoActiveGame) {
			h.send(ctx, req.ChatID, fmt.Sprintf("❌ Tidak ada permainan tebak angka aktif di channel ini!\nMulai dengan `%stebak`", h.prefix))
			return
		}
		h.replyUnexpected(ctx, req, err)
		return
	}

	switch res.Hint {
	case HintLow:
		h.send(ctx, req.ChatID, fmt.Sprintf("📈 Terlalu rendah! Coba angka yang lebih besar dari %d", n))
	case HintHigh:
		h.send(ctx, req.ChatID, fmt.Sprintf("📉 Terlalu tinggi! Coba angka yang lebih kecil dari %d", n))
	default:
		text := fmt.Sprintf(
			"🎉 SELAMAT! ANDA MENANG!\n"+
				"Angka yang benar adalah %d\n"+
				"📊 Total percobaan: %d kali\n"+
				"Pemenang: %s",
			res.Target, res.Attempts, req.DisplayName,
		)
		h.send(ctx, req.ChatID, text+levelUpNote(res.LevelUps))
	}
}

// HandleRPS — .suit [batu|gunting|kertas].
func (h *Handler) HandleRPS(ctx context.Context, req chat.Request) {
	if !h.guard(ctx, req) {
		return
	}
	if req.Arg(0) == "" {
		h.send(ctx, req.ChatID, fmt.Sprintf(
			"🪨✂️📄 BATU GUNTING KERTAS\n"+
				"Pilih salah satu: `batu`, `gunting`, atau `kertas`\n"+
				"🎮 Contoh: `%ssuit batu`\n"+
				"🏆 Statistik: `%ssuitstats`",
			h.prefix, h.prefix))
		return
	}

	res, err := h.service.PlayRPS(req.UserID, req.Arg(0))
	if err != nil {
		h.send(ctx, req.ChatID, "❌ Pilihan tidak valid! Gunakan: `batu`, `gunting`, atau `kertas`")
		return
	}

	var result, winner string
	switch res.Outcome {
	case OutcomeWin:
		result, winner = "ANDA MENANG! 🎉", req.DisplayName
	case OutcomeLose:
		result, winner = "BOT MENANG! 🤖", "Bot"
	default:
		result, winner = "SERI!", "tidak ada"
	}

	text := fmt.Sprintf(
		"🪨✂️📄 HASIL SUIT\n"+
			"👤 %s: %s %s\n"+
			"🤖 Bot: %s %s\n"+
			"🏆 %s\n"+
			"Pemenang: %s",
		req.DisplayName, rpsEmoji[res.Player], strings.ToUpper(res.Player),
		rpsEmoji[res.Bot], strings.ToUpper(res.Bot),
		result, winner,
	)
	h.send(ctx, req.ChatID, text+levelUpNote(res.LevelUps))
}

// HandleRPSStats — .suitstats.
func (h *Handler) HandleRPSStats(ctx context.Context, req chat.Request) {
	st, ok := h.service.RPSStatsOf(req.UserID)
	if !ok {
		h.send(ctx, req.ChatID, "📊 STATISTIK SUIT\nAnda belum pernah bermain suit!")
		return
	}
	text := fmt.Sprintf(
		"📊 STATISTIK SUIT (%s)\n"+
			"🎯 Menang: %d kali\n"+
			"💀 Kalah: %d kali\n"+
			"🤝 Seri: %d kali\n"+
			"📈 Win Rate: %.1f%%\n"+
			"📊 Total Game: %d game",
		req.DisplayName, st.Wins, st.Losses, st.Draws, st.WinRate(), st.Total(),
	)
	h.send(ctx, req.ChatID, text)
}

// HandleFlip — .flip [angka|gambar].
func (h *Handler) HandleFlip(ctx context.Context, req chat.Request) {
	if !h.guard(ctx, req) {
		return
	}
	res, err := h.service.Flip(req.UserID, req.Arg(0))
	if err != nil {
		h.send(ctx, req.ChatID, "❌ Tebakan tidak valid! Gunakan: `angka` atau `gambar`")
		return
	}

	side := strings.ToUpper(res.Side)
	if res.Guess == "" {
		h.send(ctx, req.ChatID, fmt.Sprintf(
			"🪙 LEMPAR KOIN\nKoin dilempar!\n🎯 Hasil: %s\n💡 Tebak dengan `%sflip [angka/gambar]`",
			side, h.prefix))
		return
	}

	status := "❌ ANDA KALAH! 💀"
	if res.Won {
		status = "✅ ANDA MENANG! 🎉"
	}
	text := fmt.Sprintf(
		"🪙 LEMPAR KOIN\nAnda menebak: %s\n🎯 Hasil: %s\n🏆 %s",
		strings.ToUpper(res.Guess), side, status,
	)
	h.send(ctx, req.ChatID, text+levelUpNote(res.LevelUps))
}

// HandleFlipStats — .flipstats.
func (h *Handler) HandleFlipStats(ctx context.Context, req chat.Request) {
	st, ok := h.service.FlipStatsOf(req.UserID)
	if !ok {
		h.send(ctx, req.ChatID, "📊 STATISTIK FLIP COIN\nAnda belum pernah bermain flip coin!")
		return
	}
	text := fmt.Sprintf(
		"📊 STATISTIK FLIP COIN (%s)\n"+
			"✅ Menang: %d kali\n"+
			"❌ Kalah: %d kali\n"+
			"📈 Win Rate: %.1f%%\n"+
			"📊 Total Game: %d game",
		req.DisplayName, st.Wins, st.Losses, st.WinRate(), st.Total(),
	)
	h.send(ctx, req.ChatID, text)
}

// HandleDice — .dadu [1-5].
func (h *Handler) HandleDice(ctx context.Context, req chat.Request) {
	if !h.guard(ctx, req) {
		return
	}
	count := 1
	if arg := req.Arg(0); arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil {
			count = 0
		} else {
			count = n
		}
	}

	res, err := h.service.RollDice(count)
	if err != nil {
		h.send(ctx, req.ChatID, fmt.Sprintf("❌ Jumlah dadu tidak valid! Pilih 1-%d dadu", MaxDice))
		return
	}

	faces := make([]string, len(res.Rolls))
	for i, r := range res.Rolls {
		faces[i] = fmt.Sprintf("%s %d", diceFaces[r-1], r)
	}

	var sb strings.Builder
	sb.WriteString("🎲 LEMPAR DADU\n")
	sb.WriteString("🎯 Hasil: " + strings.Join(faces, " | ") + "\n")
	if len(res.Rolls) > 1 {
		sb.WriteString(fmt.Sprintf("📊 Total: %d\n📈 Rata-rata: %.1f\n", res.Total, res.Average()))
	}
	sb.WriteString("Dilempar oleh: " + req.DisplayName)
	h.send(ctx, req.ChatID, sb.String())
}

// HandleSlot — .slot.
func (h *Handler) HandleSlot(ctx context.Context, req chat.Request) {
	if !h.guard(ctx, req) {
		return
	}
	res := h.service.Slot(req.UserID)

	var result string
	switch res.Outcome {
	case SlotJackpot:
		result = "🎉 JACKPOT! 🎉"
	case SlotNear:
		result = "✅ HAMPIR!"
	default:
		result = "❌ COBA LAGI!"
	}

	text := fmt.Sprintf(
		"🎰 MESIN SLOT\n[ %s | %s | %s ]\n🏆 %s\nDimainkan oleh: %s",
		res.Reels[0], res.Reels[1], res.Reels[2], result, req.DisplayName,
	)
	h.send(ctx, req.ChatID, text+levelUpNote(res.LevelUps))
}

// HandleGamesList — .games.
func (h *Handler) HandleGamesList(ctx context.Context, req chat.Request) {
	p := h.prefix
	text := fmt.Sprintf(
		"🎮 DAFTAR PERMAINAN\n\n"+
			"🔢 TEBAK ANGKA\n`%[1]stebak` - Mulai permainan\n`%[1]stebakangka [angka]` - Tebak angka 1-100\n\n"+
			"🪨✂️📄 BATU GUNTING KERTAS\n`%[1]ssuit [pilihan]` - Main melawan bot\n`%[1]ssuitstats` - Lihat statistik\n\n"+
			"🪙 LEMPAR KOIN\n`%[1]sflip [angka/gambar]` - Lempar dan tebak koin\n`%[1]sflipstats` - Lihat statistik\n\n"+
			"🎲 PERMAINAN LAINNYA\n`%[1]sdadu [jumlah]` - Lempar 1-5 dadu\n`%[1]sslot` - Main mesin slot sederhana\n\n"+
			"Menang = XP! Selamat bermain! 🎮",
		p,
	)
	if !h.enabled {
		text += "\n⚠️ Game sedang dinonaktifkan"
	}
	h.send(ctx, req.ChatID, text)
}

// HandleClearGames — .cleargames (только админ).
func (h *Handler) HandleClearGames(ctx context.Context, req chat.Request) {
	if !req.IsAdmin {
		h.send(ctx, req.ChatID, "❌ Command ini khusus admin")
		return
	}
	removed := h.service.ClearGames()
	log.WithFields(log.Fields{
		"admin_id": req.UserID,
		"removed":  removed,
	}).Info("Игры очищены")
	h.send(ctx, req.ChatID, fmt.Sprintf("✅ Berhasil membersihkan %d game yang tidak aktif!", removed))
}

func (h *Handler) replyUnexpected(ctx context.Context, req chat.Request, err error) {
	log.WithError(err).WithFields(log.Fields{
		"user_id": req.UserID,
		"command": req.Command,
	}).Error("Ошибка игры")
	h.send(ctx, req.ChatID, "❌ Terjadi kesalahan, coba lagi nanti")
}

func (h *Handler) send(ctx context.Context, chatID, text string) {
	if err := h.sender.Send(ctx, chatID, text); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

func levelUpNote(levelUps int) string {
	if levelUps <= 0 {
		return ""
	}
	return fmt.Sprintf("\n🆙 Naik %d level!", levelUps)
}
