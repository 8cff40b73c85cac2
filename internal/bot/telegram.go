package bot

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discshop-bot/internal/bot/chat"
	"serotonyl.ru/discshop-bot/internal/config"
)

// TelegramTransport — long polling через Bot API.
type TelegramTransport struct {
	api     *tgbotapi.BotAPI
	timeout int

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
	wg       sync.WaitGroup

	mu           sync.Mutex
	onDisconnect func()
}

// NewTelegramTransport авторизуется в Bot API.
func NewTelegramTransport(token string, timeoutSec, maxInflight int) (*TelegramTransport, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка авторизации в Telegram: %w", err)
	}
	if maxInflight <= 0 {
		maxInflight = 64
	}

	log.WithField("username", api.Self.UserName).Info("Авторизован в Telegram")
	return &TelegramTransport{
		api:      api,
		timeout:  timeoutSec,
		inflight: make(chan struct{}, maxInflight),
	}, nil
}

func (t *TelegramTransport) Name() string { return config.PlatformTelegram }

// Latency у Telegram не измеряется.
func (t *TelegramTransport) Latency() time.Duration { return 0 }

func (t *TelegramTransport) OnDisconnect(fn func()) {
	t.mu.Lock()
	t.onDisconnect = fn
	t.mu.Unlock()
}

func (t *TelegramTransport) disconnected() {
	t.mu.Lock()
	fn := t.onDisconnect
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Send отправляет текст в чат.
func (t *TelegramTransport) Send(ctx context.Context, chatID, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("некорректный chat_id %q: %w", chatID, err)
	}
	msg := tgbotapi.NewMessage(id, text)
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// Run запускает polling обновлений от Telegram.
func (t *TelegramTransport) Run(ctx context.Context, handle MessageHandler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.timeout

	updates := t.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": cap(t.inflight),
		"timeout_sec":  t.timeout,
	}).Info("Бот запущен и ожидает сообщения...")

	defer t.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			t.api.StopReceivingUpdates()
			return nil

		case update, ok := <-updates:
			if !ok {
				log.Warn("Канал updates закрыт, бот остановлен")
				t.disconnected()
				return nil
			}
			if update.Message == nil {
				continue
			}

			// лимит параллелизма
			t.inflight <- struct{}{}
			t.wg.Add(1)
			go func(m *tgbotapi.Message) {
				defer func() {
					<-t.inflight
					t.wg.Done()
				}()
				handle(ctx, telegramMessage(m))
			}(update.Message)
		}
	}
}

// telegramMessage переводит сообщение Bot API в chat.Message.
func telegramMessage(m *tgbotapi.Message) chat.Message {
	msg := chat.Message{
		Platform: config.PlatformTelegram,
		Text:     m.Text,
	}
	if m.Chat != nil {
		msg.ChatID = strconv.FormatInt(m.Chat.ID, 10)
	}
	if m.From != nil {
		msg.Author = telegramUser(m.From)
		msg.IsBot = m.From.IsBot
	}
	for _, e := range m.Entities {
		if e.Type == "text_mention" && e.User != nil {
			msg.Mentions = append(msg.Mentions, telegramUser(e.User))
		}
	}
	// ответ на сообщение считаем упоминанием автора
	if m.ReplyToMessage != nil && m.ReplyToMessage.From != nil && !m.ReplyToMessage.From.IsBot {
		msg.Mentions = append(msg.Mentions, telegramUser(m.ReplyToMessage.From))
	}
	return msg
}

func telegramUser(u *tgbotapi.User) chat.User {
	name := u.UserName
	if name == "" {
		name = u.FirstName
	}
	return chat.User{ID: strconv.FormatInt(u.ID, 10), Name: name}
}
