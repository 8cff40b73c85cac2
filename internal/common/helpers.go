// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: форматирование сумм и длительностей, работа с часовым поясом.
package common

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency — название игровой валюты в ответах бота.
const Currency = "koin"

// printer форматирует числа по-индонезийски: 1.250.000
var printer = message.NewPrinter(language.Indonesian)

// FormatNumber форматирует число с разделителями тысяч.
// Пример: FormatNumber(2350) → "2.350"
func FormatNumber(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatBalance форматирует сумму в читабельную строку.
// Пример: FormatBalance(1500) → "1.500 koin"
func FormatBalance(amount int64) string {
	return FormatNumber(amount) + " " + Currency
}

// FormatSignedAmount создаёт строку вида "+100 koin" или "-50 koin".
//
// Примеры:
//
//	FormatSignedAmount(100) → "+100 koin"
//	FormatSignedAmount(-50) → "-50 koin"
func FormatSignedAmount(amount int64) string {
	if amount >= 0 {
		return "+" + FormatBalance(amount)
	}
	return "-" + FormatBalance(-amount)
}

// FormatDuration показывает оставшееся время кулдауна: "1j 5m 3d".
// Меньше секунды округляется до "1d", чтобы не показывать "0d".
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return "1d"
	}
	d = d.Round(time.Second)

	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)

	var parts []string
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dj", h))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	if s > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%dd", s))
	}
	return strings.Join(parts, " ")
}

// LoadLocation загружает часовой пояс из конфига.
// Если tzdata нет в контейнере — используем WIB (UTC+7) вручную.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("WIB", 7*60*60)
	}
	return loc
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04".
// Используется для отображения дат транзакций.
func FormatDateTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("02.01.2006 15:04")
}
