// Package bot содержит платформенно-независимый диспетчер команд.
// bot.go фильтрует входящие сообщения, парсит команду и вызывает нужный обработчик.
// Транспорты (Discord, Telegram) только доставляют chat.Message и отправляют ответы.
package bot

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discshop-bot/internal/bot/chat"
	"serotonyl.ru/discshop-bot/internal/bot/filters"
	"serotonyl.ru/discshop-bot/internal/bot/middleware"
	"serotonyl.ru/discshop-bot/internal/config"
	"serotonyl.ru/discshop-bot/internal/features/economy"
	"serotonyl.ru/discshop-bot/internal/features/games"
	"serotonyl.ru/discshop-bot/internal/features/shop"
)

// HandlerFunc — обработчик одной команды.
type HandlerFunc func(ctx context.Context, req chat.Request)

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	cfg    *config.Config
	sender chat.Sender

	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter

	economyService *economy.Service

	parser *CommandParser
	routes map[string]HandlerFunc
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	cfg *config.Config,
	sender chat.Sender,
	economyService *economy.Service,
	economyHandler *economy.Handler,
	gamesHandler *games.Handler,
	shopHandler *shop.Handler,
	chatFilter *filters.ChatFilter,
) *Bot {
	return &Bot{
		cfg:            cfg,
		sender:         sender,
		chatFilter:     chatFilter,
		rateLimiter:    middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		economyService: economyService,
		parser:         NewCommandParser(cfg.BotPrefix),
		routes:         buildRoutes(economyHandler, gamesHandler, shopHandler),
	}
}

// Close останавливает фоновые горутины бота.
func (b *Bot) Close() {
	b.rateLimiter.Close()
}

// buildRoutes связывает команды и их алиасы с обработчиками.
func buildRoutes(eco *economy.Handler, gm *games.Handler, sh *shop.Handler) map[string]HandlerFunc {
	routes := make(map[string]HandlerFunc)
	add := func(h HandlerFunc, names ...string) {
		for _, n := range names {
			routes[n] = h
		}
	}

	// экономика
	add(eco.HandleBalance, "balance", "bal", "saldo")
	add(eco.HandleDaily, "daily")
	add(eco.HandleCollect, "collect")
	add(eco.HandleWork, "work", "kerja")
	add(eco.HandleCrime, "crime")
	add(eco.HandleTransfer, "transfer", "pay")
	add(eco.HandleLeaderboard, "rich", "leaderboard", "top")
	add(eco.HandleProfile, "profile", "level")
	add(eco.HandleHistory, "history", "transaksi")

	// гача
	add(eco.HandleGacha, "gacha")
	add(eco.HandleGachaInfo, "gachainfo")
	add(eco.HandleInventory, "inventory", "inv")
	add(eco.HandleSell, "sell")

	// админ
	add(eco.HandleAddMoney, "addmoney")
	add(eco.HandleResetEco, "reseteco")
	add(gm.HandleClearGames, "cleargames")

	// игры
	add(gm.HandleGuessStart, "tebak", "guess")
	add(gm.HandleGuess, "tebakangka")
	add(gm.HandleRPS, "suit", "rps")
	add(gm.HandleRPSStats, "suitstats")
	add(gm.HandleFlip, "flip", "coin", "koin")
	add(gm.HandleFlipStats, "flipstats")
	add(gm.HandleDice, "dadu", "dice", "roll")
	add(gm.HandleSlot, "slot", "slots")
	add(gm.HandleGamesList, "games")

	// магазин
	add(sh.HandlePricelist, "pricelist")
	add(sh.HandlePayment, "payment")
	add(sh.HandlePayImage, "payimage")
	add(sh.HandleDone, "done")
	add(sh.HandlePing, "ping")
	add(sh.HandleHelp, "help", "start")

	return routes
}

// HandleMessage обрабатывает одно входящее сообщение.
// Вызывается транспортом, возможно из нескольких горутин сразу.
func (b *Bot) HandleMessage(ctx context.Context, msg chat.Message) {
	defer middleware.RecoverFromPanic(msg)

	if msg.Text == "" || !b.chatFilter.CheckAccess(msg) {
		return
	}

	middleware.LogMessage(msg)

	// регистрируем автора и упомянутых, чтобы им можно было переводить
	b.economyService.Touch(msg.Author.ID, msg.Author.Name)
	mentions := make([]string, 0, len(msg.Mentions))
	for _, u := range msg.Mentions {
		if u.ID == "" || u.ID == msg.Author.ID {
			continue
		}
		b.economyService.Touch(u.ID, u.Name)
		mentions = append(mentions, u.ID)
	}

	cmd, args, isCommand := b.parser.ParseCommand(msg.Text)
	if !isCommand {
		return
	}
	log.WithFields(log.Fields{
		"cmd":  cmd,
		"args": args,
	}).Debug("parsed command")

	if !b.rateLimiter.Allow(msg.Author.ID) {
		log.WithField("user_id", msg.Author.ID).Debug("rate limited")
		return
	}

	req := chat.Request{
		ChatID:      msg.ChatID,
		UserID:      msg.Author.ID,
		DisplayName: msg.Author.Name,
		Command:     cmd,
		Args:        args,
		Mentions:    mentions,
		IsAdmin:     msg.IsAdmin || b.cfg.IsAdmin(msg.Author.ID),
	}
	b.routeCommand(ctx, req)
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, req chat.Request) {
	handler, ok := b.routes[req.Command]
	if !ok {
		b.sendMessage(ctx, req.ChatID, fmt.Sprintf("❌ Command tidak ditemukan! Ketik `%shelp` untuk bantuan.", b.cfg.BotPrefix))
		return
	}
	handler(ctx, req)
}

// sendMessage — утилита для отправки сообщений.
func (b *Bot) sendMessage(ctx context.Context, chatID, text string) {
	if err := b.sender.Send(ctx, chatID, text); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// CommandParser парсит команды с префиксами из конфига, ! и /.
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд. Основной префикс проверяется первым.
func NewCommandParser(prefix string) *CommandParser {
	prefixes := []string{}
	for _, p := range []string{prefix, "!", "/", "."} {
		if p == "" {
			continue
		}
		dup := false
		for _, existing := range prefixes {
			if existing == p {
				dup = true
				break
			}
		}
		if !dup {
			prefixes = append(prefixes, p)
		}
	}
	return &CommandParser{validPrefixes: prefixes}
}

// ParseCommand разбирает текст на команду и аргументы.
// "/balance@ShopBot" в Telegram превращается в "balance".
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}

	if !hasPrefix {
		return "", nil, false
	}

	parts := strings.Fields(text)
	// ". привет" и "..." не команды
	if len(parts) == 0 || text[0] == ' ' {
		return "", nil, false
	}

	command := strings.ToLower(parts[0])
	if at := strings.IndexByte(command, '@'); at > 0 {
		command = command[:at]
	}
	if command == "" || strings.Trim(command, ".!/") == "" {
		return "", nil, false
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return command, args, true
}
