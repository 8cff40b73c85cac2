// Package shop отвечает на статические команды магазина:
// прайс-лист, реквизиты оплаты, ссылка на отзывы, ping и help.
// Реальных платежей бот не проводит, только показывает реквизиты.
package shop

import (
	"strings"

	"serotonyl.ru/discshop-bot/internal/config"
)

// PriceEntry — строка прайс-листа: раздел и ссылка на него.
type PriceEntry struct {
	Title string
	Link  string
}

// Info — всё, что магазин показывает покупателю.
type Info struct {
	Name         string
	PaymentURL   string
	QRISURL      string
	AdminTag     string
	BankInfo     string
	TestimonyURL string
	Pricelist    []PriceEntry
}

// InfoFromConfig собирает Info из настроек SHOP_*.
func InfoFromConfig(cfg *config.Config) Info {
	return Info{
		Name:         cfg.ShopName,
		PaymentURL:   cfg.ShopPaymentURL,
		QRISURL:      cfg.ShopQRISURL,
		AdminTag:     cfg.ShopAdminTag,
		BankInfo:     cfg.ShopBankInfo,
		TestimonyURL: cfg.ShopTestimonyURL,
		Pricelist:    ParsePricelist(cfg.ShopPricelist),
	}
}

// ParsePricelist разбирает строку "Название|ссылка;Название|ссылка".
// Записи без ссылки остаются заголовками.
func ParsePricelist(raw string) []PriceEntry {
	var out []PriceEntry
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		title, link, _ := strings.Cut(part, "|")
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		out = append(out, PriceEntry{Title: title, Link: strings.TrimSpace(link)})
	}
	return out
}
