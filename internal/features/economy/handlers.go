// Package economy — handlers.go обрабатывает команды экономики:
// .balance, .daily, .collect, .work, .crime, .transfer, .rich, .profile,
// .history, .gacha, .gachainfo, .inventory, .sell, .addmoney, .reseteco.
package economy

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discshop-bot/internal/bot/chat"
	"serotonyl.ru/discshop-bot/internal/common"
	"serotonyl.ru/discshop-bot/internal/features/gacha"
)

const (
	leaderboardSize = 10
	historySize     = 10
)

// Handler обрабатывает команды экономики.
type Handler struct {
	service *Service
	sender  chat.Sender
	prefix  string
	loc     *time.Location
}

// NewHandler создаёт новый обработчик экономических команд.
func NewHandler(service *Service, sender chat.Sender, prefix string, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		service: service,
		sender:  sender,
		prefix:  prefix,
		loc:     loc,
	}
}

// HandleBalance — .balance: показывает баланс.
//
//	💰 Saldo Budi: 1.250 koin
func (h *Handler) HandleBalance(ctx context.Context, req chat.Request) {
	acc := h.service.Profile(req.UserID)
	text := fmt.Sprintf("💰 Saldo %s: %s", req.DisplayName, common.FormatBalance(acc.Balance))
	if acc.Bank > 0 {
		text += fmt.Sprintf("\n🏦 Bank: %s", common.FormatBalance(acc.Bank))
	}
	h.send(ctx, req.ChatID, text)
}

// HandleDaily — .daily: ежедневная награда со стриком.
func (h *Handler) HandleDaily(ctx context.Context, req chat.Request) {
	res, err := h.service.Daily(req.UserID)
	if errors.Is(err, common.ErrAlreadyClaimed) {
		h.send(ctx, req.ChatID, fmt.Sprintf("⏳ Daily sudah diambil! Coba lagi dalam %s",
			common.FormatDuration(res.Reward.RetryAfter)))
		return
	}
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎁 Daily: %s\n", common.FormatSignedAmount(res.Reward.Amount)))
	sb.WriteString(fmt.Sprintf("🔥 Streak: %d hari\n", res.Reward.NewStreak))
	if res.Reward.WeekBonus {
		sb.WriteString("🎉 Bonus 7 hari: +500!\n")
	}
	sb.WriteString(fmt.Sprintf("💰 Saldo: %s", common.FormatBalance(res.Balance)))
	h.send(ctx, req.ChatID, sb.String()+levelUpNote(res.LevelUps))
}

// HandleCollect — .collect: пассивный доход по уровню.
func (h *Handler) HandleCollect(ctx context.Context, req chat.Request) {
	res, err := h.service.Collect(req.UserID)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	h.send(ctx, req.ChatID, fmt.Sprintf("💵 Kamu mengumpulkan %s\n💰 Saldo: %s%s",
		common.FormatBalance(res.Amount), common.FormatBalance(res.Balance), levelUpNote(res.LevelUps)))
}

// HandleWork — .work.
func (h *Handler) HandleWork(ctx context.Context, req chat.Request) {
	res, err := h.service.Work(req.UserID)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	h.send(ctx, req.ChatID, fmt.Sprintf("💼 Kamu bekerja sebagai %s dan mendapat %s\n💰 Saldo: %s%s",
		res.Job, common.FormatBalance(res.Amount), common.FormatBalance(res.Balance), levelUpNote(res.LevelUps)))
}

// HandleCrime — .crime.
func (h *Handler) HandleCrime(ctx context.Context, req chat.Request) {
	res, err := h.service.Crime(req.UserID)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}

	var text string
	switch {
	case res.Success:
		text = fmt.Sprintf("🦹 %s berhasil! Kamu mendapat %s", res.Crime, common.FormatBalance(res.Amount))
	case res.Amount > 0:
		text = fmt.Sprintf("🚓 %s gagal! Kamu didenda %s", res.Crime, common.FormatBalance(res.Amount))
	default:
		text = fmt.Sprintf("🚓 %s gagal! Untung dompetmu kosong, tidak ada denda", res.Crime)
	}
	h.send(ctx, req.ChatID, fmt.Sprintf("%s\n💰 Saldo: %s%s", text, common.FormatBalance(res.Balance), levelUpNote(res.LevelUps)))
}

// HandleTransfer — .transfer @user 100.
func (h *Handler) HandleTransfer(ctx context.Context, req chat.Request) {
	if len(req.Args) < 2 {
		h.send(ctx, req.ChatID, fmt.Sprintf("❌ Format: %stransfer @user jumlah", h.prefix))
		return
	}

	amount, err := parseAmount(req.Args[len(req.Args)-1])
	if err != nil {
		h.send(ctx, req.ChatID, "❌ Jumlah harus angka positif")
		return
	}

	target, ok := h.resolveTarget(req)
	if !ok {
		h.send(ctx, req.ChatID, "❌ User tidak ditemukan")
		return
	}

	res, err := h.service.Transfer(req.UserID, target.UserID, amount)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	if !res.Success {
		h.send(ctx, req.ChatID, fmt.Sprintf("❌ Transfer gagal: %s\n💰 Saldo: %s", res.Message, common.FormatBalance(res.SenderBalance)))
		return
	}

	h.send(ctx, req.ChatID, fmt.Sprintf("✅ Transfer %s ke %s berhasil\n💰 Saldo: %s",
		common.FormatBalance(amount), nameOf(target), common.FormatBalance(res.SenderBalance)))
}

// HandleLeaderboard — .rich: топ-10 по состоянию.
func (h *Handler) HandleLeaderboard(ctx context.Context, req chat.Request) {
	top := h.service.Leaderboard(leaderboardSize)
	if len(top) == 0 {
		h.send(ctx, req.ChatID, "📊 Belum ada data leaderboard")
		return
	}

	medals := []string{"🥇", "🥈", "🥉"}
	var sb strings.Builder
	sb.WriteString("🏆 Orang Terkaya\n\n")
	for i, acc := range top {
		place := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			place = medals[i]
		}
		sb.WriteString(fmt.Sprintf("%s %s — %s (Lv %d)\n", place, nameOf(acc), common.FormatBalance(acc.Wealth()), acc.Level))
	}
	h.send(ctx, req.ChatID, sb.String())
}

// HandleProfile — .profile: уровень, опыт, стрик.
func (h *Handler) HandleProfile(ctx context.Context, req chat.Request) {
	acc := h.service.Profile(req.UserID)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("👤 Profil %s\n\n", req.DisplayName))
	sb.WriteString(fmt.Sprintf("⭐ Level: %d (%d/%d XP)\n", acc.Level, acc.XP, XPPerLevel))
	sb.WriteString(fmt.Sprintf("💰 Saldo: %s\n", common.FormatBalance(acc.Balance)))
	sb.WriteString(fmt.Sprintf("📈 Total pendapatan: %s\n", common.FormatBalance(acc.TotalEarned)))
	sb.WriteString(fmt.Sprintf("📉 Total pengeluaran: %s\n", common.FormatBalance(acc.TotalSpent)))
	sb.WriteString(fmt.Sprintf("🔥 Streak daily: %d hari", acc.DailyStreak))
	h.send(ctx, req.ChatID, sb.String())
}

// HandleHistory — .history: последние 10 транзакций.
func (h *Handler) HandleHistory(ctx context.Context, req chat.Request) {
	txs := h.service.History(req.UserID, historySize)
	if len(txs) == 0 {
		h.send(ctx, req.ChatID, "📋 Belum ada transaksi")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 %d transaksi terakhir:\n\n", len(txs)))
	for i, tx := range txs {
		amount := tx.Amount
		if tx.Kind == TxExpense || tx.Kind == TxTransferOut {
			amount = -amount
		}
		sb.WriteString(fmt.Sprintf("%d. %s | %s | %s\n",
			i+1, common.FormatDateTime(tx.Timestamp, h.loc), common.FormatSignedAmount(amount), tx.Reason))
	}
	h.send(ctx, req.ChatID, sb.String())
}

// HandleGacha — .gacha normal|premium.
func (h *Handler) HandleGacha(ctx context.Context, req chat.Request) {
	poolName := req.Arg(0)
	if poolName == "" {
		h.send(ctx, req.ChatID, fmt.Sprintf("❌ Format: %sgacha <normal|premium>", h.prefix))
		return
	}

	res, pool, err := h.service.Gacha(req.UserID, poolName)
	if err != nil {
		if errors.Is(err, common.ErrInsufficientBalance) {
			h.send(ctx, req.ChatID, fmt.Sprintf("❌ Saldo tidak cukup! Gacha %s butuh %s, saldo kamu %s",
				pool.Name, common.FormatBalance(pool.Cost), common.FormatBalance(res.Balance)))
			return
		}
		h.replyError(ctx, req, err)
		return
	}

	h.send(ctx, req.ChatID, fmt.Sprintf("🎰 Gacha %s\n\n%s %s [%s]\n💎 Nilai jual: %s\n💰 Saldo: %s%s",
		pool.Name, rarityIcon(res.Item.Rarity), res.Item.Name, res.Item.Rarity,
		common.FormatBalance(res.Item.Value), common.FormatBalance(res.Balance), levelUpNote(res.LevelUps)))
}

// HandleGachaInfo — .gachainfo: пулы, цены и шансы.
func (h *Handler) HandleGachaInfo(ctx context.Context, req chat.Request) {
	var sb strings.Builder
	sb.WriteString("🎰 Info Gacha\n")
	for _, pool := range h.service.Catalog().Pools() {
		sb.WriteString(fmt.Sprintf("\n📦 %s (v%s) — %s per roll\n", strings.ToUpper(pool.Name), pool.Version, common.FormatBalance(pool.Cost)))
		for _, e := range pool.Entries {
			sb.WriteString(fmt.Sprintf("%s %s [%s] %.0f%% — jual %s\n",
				rarityIcon(e.Rarity), e.Name, e.Rarity, pool.Chance(e), common.FormatBalance(e.Value)))
		}
	}
	sb.WriteString(fmt.Sprintf("\nMain: %sgacha <normal|premium>", h.prefix))
	h.send(ctx, req.ChatID, sb.String())
}

// HandleInventory — .inventory.
func (h *Handler) HandleInventory(ctx context.Context, req chat.Request) {
	inv := h.service.Inventory(req.UserID)
	if len(inv.Items) == 0 {
		h.send(ctx, req.ChatID, fmt.Sprintf("🎒 Inventory kosong. Coba %sgacha normal", h.prefix))
		return
	}

	names := make([]string, 0, len(inv.Items))
	for name := range inv.Items {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎒 Inventory %s\n\n", req.DisplayName))
	var total int64
	for _, name := range names {
		qty := inv.Items[name]
		line := fmt.Sprintf("• %s x%d", name, qty)
		if e, ok := h.service.Catalog().Item(name); ok {
			line = fmt.Sprintf("%s %s x%d (%s/pcs)", rarityIcon(e.Rarity), name, qty, common.FormatBalance(e.Value))
			total += e.Value * qty
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString(fmt.Sprintf("\n💎 Total nilai: %s", common.FormatBalance(total)))
	h.send(ctx, req.ChatID, sb.String())
}

// HandleSell — .sell <nama item> [jumlah]. Название может быть из нескольких слов.
func (h *Handler) HandleSell(ctx context.Context, req chat.Request) {
	if len(req.Args) == 0 {
		h.send(ctx, req.ChatID, fmt.Sprintf("❌ Format: %ssell <nama item> [jumlah]", h.prefix))
		return
	}

	nameParts := req.Args
	qty := int64(1)
	if n, err := strconv.ParseInt(req.Args[len(req.Args)-1], 10, 64); err == nil && len(req.Args) > 1 {
		qty = n
		nameParts = req.Args[:len(req.Args)-1]
	}
	itemName := strings.Join(nameParts, " ")

	res, err := h.service.Sell(req.UserID, itemName, qty)
	if err != nil {
		if errors.Is(err, common.ErrNotEnoughItems) {
			h.send(ctx, req.ChatID, fmt.Sprintf("❌ Item tidak cukup! Kamu hanya punya %d", res.Remaining))
			return
		}
		h.replyError(ctx, req, err)
		return
	}

	h.send(ctx, req.ChatID, fmt.Sprintf("💸 Terjual %dx %s seharga %s\n💰 Saldo: %s",
		res.Quantity, res.Item, common.FormatBalance(res.Earned), common.FormatBalance(res.Balance)))
}

// HandleAddMoney — .addmoney @user 1000 (только админ).
func (h *Handler) HandleAddMoney(ctx context.Context, req chat.Request) {
	if !req.IsAdmin {
		h.replyError(ctx, req, common.ErrNotAdmin)
		return
	}
	if len(req.Args) < 2 {
		h.send(ctx, req.ChatID, fmt.Sprintf("❌ Format: %saddmoney @user jumlah", h.prefix))
		return
	}
	amount, err := parseAmount(req.Args[len(req.Args)-1])
	if err != nil {
		h.send(ctx, req.ChatID, "❌ Jumlah harus angka positif")
		return
	}
	target, ok := h.resolveTarget(req)
	if !ok {
		h.send(ctx, req.ChatID, "❌ User tidak ditemukan")
		return
	}

	balance, err := h.service.AdminAddMoney(req.UserID, target.UserID, amount)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	h.send(ctx, req.ChatID, fmt.Sprintf("✅ %s ditambahkan ke %s\n💰 Saldo sekarang: %s",
		common.FormatBalance(amount), nameOf(target), common.FormatBalance(balance)))
}

// HandleResetEco — .reseteco @user (только админ).
func (h *Handler) HandleResetEco(ctx context.Context, req chat.Request) {
	if !req.IsAdmin {
		h.replyError(ctx, req, common.ErrNotAdmin)
		return
	}
	if len(req.Args) < 1 {
		h.send(ctx, req.ChatID, fmt.Sprintf("❌ Format: %sreseteco @user", h.prefix))
		return
	}
	target, ok := h.resolveTarget(req)
	if !ok {
		h.send(ctx, req.ChatID, "❌ User tidak ditemukan")
		return
	}

	acc, err := h.service.AdminReset(req.UserID, target.UserID)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	h.send(ctx, req.ChatID, fmt.Sprintf("♻️ Ekonomi %s direset. Saldo: %s", nameOf(acc), common.FormatBalance(acc.Balance)))
}

// resolveTarget берёт первое упоминание, иначе первый аргумент.
func (h *Handler) resolveTarget(req chat.Request) (Account, bool) {
	if len(req.Mentions) > 0 {
		if acc, ok := h.service.ResolveUser(req.Mentions[0]); ok {
			return acc, true
		}
	}
	return h.service.ResolveUser(req.Arg(0))
}

// replyError превращает ошибку сервиса в понятный ответ.
func (h *Handler) replyError(ctx context.Context, req chat.Request, err error) {
	var cdErr *common.CooldownError
	switch {
	case errors.As(err, &cdErr):
		h.send(ctx, req.ChatID, fmt.Sprintf("⏳ Tunggu %s lagi sebelum %s%s", common.FormatDuration(cdErr.RetryAfter), h.prefix, cdErr.Action))
	case errors.Is(err, common.ErrInsufficientBalance):
		h.send(ctx, req.ChatID, "❌ Saldo tidak cukup")
	case errors.Is(err, common.ErrSelfTransfer):
		h.send(ctx, req.ChatID, "❌ Tidak bisa transfer ke diri sendiri")
	case errors.Is(err, common.ErrInvalidAmount):
		h.send(ctx, req.ChatID, "❌ Jumlah harus angka positif")
	case errors.Is(err, common.ErrUserNotFound):
		h.send(ctx, req.ChatID, "❌ User tidak ditemukan")
	case errors.Is(err, common.ErrUnknownGachaType):
		h.send(ctx, req.ChatID, fmt.Sprintf("❌ Tipe gacha tidak dikenal. Lihat %sgachainfo", h.prefix))
	case errors.Is(err, common.ErrUnknownItem):
		h.send(ctx, req.ChatID, fmt.Sprintf("❌ Item tidak ada di inventory. Lihat %sinventory", h.prefix))
	case errors.Is(err, common.ErrNotAdmin):
		h.send(ctx, req.ChatID, "❌ Command ini khusus admin")
	case errors.Is(err, common.ErrFeatureDisabled):
		h.send(ctx, req.ChatID, "🚧 Fitur ini sedang dinonaktifkan")
	default:
		log.WithError(err).WithFields(log.Fields{
			"user_id": req.UserID,
			"cmd":     req.Command,
		}).Error("Ошибка экономики")
		h.send(ctx, req.ChatID, "❌ Terjadi kesalahan, coba lagi nanti")
	}
}

// send — вспомогательный метод для отправки текстовых сообщений.
func (h *Handler) send(ctx context.Context, chatID, text string) {
	if err := h.sender.Send(ctx, chatID, text); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// amountPattern — целое число, допускаются разделители тысяч одного вида:
// "1000", "1.000", "1,000,000". Дробные суммы ("1,5") не проходят.
var amountPattern = regexp.MustCompile(`^(\d+|\d{1,3}(\.\d{3})+|\d{1,3}(,\d{3})+|\d{1,3}(_\d{3})+)$`)

func parseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if !amountPattern.MatchString(s) {
		return 0, common.ErrInvalidAmount
	}
	s = strings.NewReplacer(".", "", ",", "", "_", "").Replace(s)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, common.ErrInvalidAmount
	}
	return n, nil
}

func levelUpNote(levelUps int) string {
	if levelUps == 0 {
		return ""
	}
	return fmt.Sprintf("\n🆙 Naik %d level!", levelUps)
}

func nameOf(acc Account) string {
	if acc.DisplayName != "" {
		return acc.DisplayName
	}
	return acc.UserID
}

func rarityIcon(rarity string) string {
	switch rarity {
	case gacha.RarityCommon:
		return "⚪"
	case gacha.RarityUncommon:
		return "🟢"
	case gacha.RarityRare:
		return "🔵"
	case gacha.RarityEpic:
		return "🟣"
	case gacha.RarityLegendary:
		return "🟡"
	case gacha.RarityMythic:
		return "🔴"
	}
	return "•"
}
