package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discshop-bot/internal/bot/chat"
	"serotonyl.ru/discshop-bot/internal/config"
)

// DiscordTransport — gateway-сессия discordgo.
type DiscordTransport struct {
	session *discordgo.Session

	mu           sync.Mutex
	onDisconnect func()
}

// NewDiscordTransport создаёт сессию. Соединение открывается в Run.
func NewDiscordTransport(token string) (*DiscordTransport, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания сессии Discord: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent
	return &DiscordTransport{session: s}, nil
}

func (t *DiscordTransport) Name() string { return config.PlatformDiscord }

// Latency — задержка heartbeat до gateway.
func (t *DiscordTransport) Latency() time.Duration {
	return t.session.HeartbeatLatency()
}

func (t *DiscordTransport) OnDisconnect(fn func()) {
	t.mu.Lock()
	t.onDisconnect = fn
	t.mu.Unlock()
}

// Send отправляет текст в канал.
func (t *DiscordTransport) Send(ctx context.Context, chatID, text string) error {
	if _, err := t.session.ChannelMessageSend(chatID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}

// Run открывает gateway и держит его до отмены ctx.
// discordgo сам переподключается; каждый обрыв вызывает OnDisconnect.
func (t *DiscordTransport) Run(ctx context.Context, handle MessageHandler) error {
	removeCreate := t.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || (s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID) {
			return
		}
		handle(ctx, discordMessage(s, m))
	})
	defer removeCreate()

	removeDisconnect := t.session.AddHandler(func(s *discordgo.Session, _ *discordgo.Disconnect) {
		log.Warn("Соединение с Discord потеряно")
		t.mu.Lock()
		fn := t.onDisconnect
		t.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
	defer removeDisconnect()

	removeReady := t.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.WithField("user", r.User.Username).Info("Бот запущен и ожидает сообщения...")
		if err := s.UpdateGameStatus(0, ".help | Shop Bot & Games"); err != nil {
			log.WithError(err).Debug("Не удалось обновить статус")
		}
	})
	defer removeReady()

	if err := t.session.Open(); err != nil {
		return fmt.Errorf("ошибка подключения к Discord: %w", err)
	}

	<-ctx.Done()
	log.Info("Бот останавливается (ctx done)...")
	if err := t.session.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия сессии Discord: %w", err)
	}
	return nil
}

// discordMessage переводит MessageCreate в chat.Message.
func discordMessage(s *discordgo.Session, m *discordgo.MessageCreate) chat.Message {
	msg := chat.Message{
		Platform: config.PlatformDiscord,
		ChatID:   m.ChannelID,
		Author:   discordUser(m.Author),
		Text:     m.Content,
		IsBot:    m.Author.Bot,
	}
	for _, u := range m.Mentions {
		if u != nil {
			msg.Mentions = append(msg.Mentions, discordUser(u))
		}
	}
	// в личке прав гильдии нет
	if m.GuildID != "" {
		msg.IsAdmin = hasAdministrator(s, m.Author.ID, m.ChannelID)
	}
	return msg
}

func hasAdministrator(s *discordgo.Session, userID, channelID string) bool {
	perms, err := s.UserChannelPermissions(userID, channelID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Debug("Не удалось получить права")
		return false
	}
	return perms&discordgo.PermissionAdministrator != 0
}

func discordUser(u *discordgo.User) chat.User {
	name := u.GlobalName
	if name == "" {
		name = u.Username
	}
	return chat.User{ID: u.ID, Name: name}
}
