// Package chat описывает то, что обработчики знают о платформе:
// входящую команду и способ ответить. Discord и Telegram реализуют Sender.
package chat

import "context"

// Request — одна распарсенная команда пользователя.
type Request struct {
	ChatID      string
	UserID      string
	DisplayName string
	Command     string
	Args        []string
	// Mentions — ID упомянутых пользователей в порядке появления в тексте.
	Mentions []string
	IsAdmin  bool
}

// Arg возвращает i-й аргумент или пустую строку.
func (r Request) Arg(i int) string {
	if i < 0 || i >= len(r.Args) {
		return ""
	}
	return r.Args[i]
}

// Sender отправляет текстовый ответ в чат.
type Sender interface {
	Send(ctx context.Context, chatID, text string) error
}

// User — участник чата, как его видит транспорт.
type User struct {
	ID   string
	Name string
}

// Message — входящее сообщение от транспорта до разбора команды.
type Message struct {
	Platform string
	ChatID   string
	Author   User
	Text     string
	Mentions []User
	// IsAdmin — права администратора со стороны платформы
	// (бит Administrator у Discord). ADMIN_IDS проверяет бот.
	IsAdmin bool
	IsBot   bool
}
