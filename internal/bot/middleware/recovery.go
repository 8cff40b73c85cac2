package middleware

import (
	"fmt"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discshop-bot/internal/bot/chat"
)

// RecoverFromPanic гасит панику обработчика сообщения msg.
// Вызывается через defer: одна упавшая команда не должна ронять транспорт.
func RecoverFromPanic(msg chat.Message) {
	r := recover()
	if r == nil {
		return
	}
	log.WithFields(log.Fields{
		"component": "panic_recovery",
		"platform":  msg.Platform,
		"chat_id":   msg.ChatID,
		"user_id":   msg.Author.ID,
		"text":      truncate(msg.Text, maxLoggedText),
		"panic":     fmt.Sprint(r),
		"stack":     string(debug.Stack()),
	}).Error("Паника при обработке сообщения")
}
