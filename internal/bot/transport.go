package bot

import (
	"context"
	"fmt"
	"time"

	"serotonyl.ru/discshop-bot/internal/bot/chat"
	"serotonyl.ru/discshop-bot/internal/config"
)

// MessageHandler получает каждое входящее сообщение транспорта.
type MessageHandler func(ctx context.Context, msg chat.Message)

// Transport доставляет сообщения с платформы и отправляет ответы.
type Transport interface {
	chat.Sender
	// Run блокируется до отмены ctx или потери соединения.
	Run(ctx context.Context, handle MessageHandler) error
	// OnDisconnect вызывается при потере соединения с платформой.
	OnDisconnect(fn func())
	// Latency — задержка до платформы, 0 если неизвестна.
	Latency() time.Duration
	Name() string
}

// NewTransport создаёт транспорт для BOT_PLATFORM.
func NewTransport(cfg *config.Config) (Transport, error) {
	switch cfg.BotPlatform {
	case config.PlatformDiscord:
		return NewDiscordTransport(cfg.DiscordToken)
	case config.PlatformTelegram:
		return NewTelegramTransport(cfg.TelegramBotToken, cfg.BotUpdateTimeoutSeconds, cfg.BotMaxInflight)
	default:
		return nil, fmt.Errorf("неизвестная платформа %q", cfg.BotPlatform)
	}
}
