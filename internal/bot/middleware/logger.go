// Package middleware содержит промежуточные обработчики для логирования,
// восстановления после паники и rate-limiting.
package middleware

import (
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discshop-bot/internal/bot/chat"
)

const maxLoggedText = 50

// LogMessage логирует входящее сообщение.
// Записывает: платформу, user_id, chat_id, имя, текст (первые 50 символов).
func LogMessage(msg chat.Message) {
	log.WithFields(log.Fields{
		"platform": msg.Platform,
		"user_id":  msg.Author.ID,
		"chat_id":  msg.ChatID,
		"username": msg.Author.Name,
		"text":     truncate(msg.Text, maxLoggedText),
		"time":     time.Now().Format("15:04:05"),
	}).Debug("Входящее сообщение")
}

// truncate режет по рунам, чтобы не ломать кириллицу и эмодзи.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
