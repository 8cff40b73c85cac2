// Package filters решает, какие сообщения бот вообще обрабатывает.
package filters

import (
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discshop-bot/internal/bot/chat"
)

type ChatFilter struct {
	allowed map[string]struct{}
}

// NewChatFilter создаёт фильтр. Пустой allowedChats разрешает все чаты.
func NewChatFilter(allowedChats []string) *ChatFilter {
	f := &ChatFilter{allowed: make(map[string]struct{}, len(allowedChats))}
	for _, id := range allowedChats {
		f.allowed[id] = struct{}{}
	}
	return f
}

// CheckAccess пропускает сообщение дальше, если:
//  1. его написал не бот и автор известен
//  2. чат разрешён (или список разрешённых пуст)
func (f *ChatFilter) CheckAccess(msg chat.Message) bool {
	logger := log.WithFields(log.Fields{
		"component": "ChatFilter",
		"platform":  msg.Platform,
		"chat_id":   msg.ChatID,
		"user_id":   msg.Author.ID,
	})

	if msg.IsBot {
		return false
	}
	if msg.Author.ID == "" || msg.ChatID == "" {
		logger.Warn("сообщение без автора или чата")
		return false
	}

	if len(f.allowed) == 0 {
		return true
	}
	if _, ok := f.allowed[msg.ChatID]; ok {
		return true
	}
	logger.Debug("deny: чат не в ALLOWED_CHAT_IDS")
	return false
}
