// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import (
	"errors"
	"fmt"
	"time"
)

// Ошибки экономики (баланс, переводы)
var (
	// ErrInsufficientBalance — недостаточно монет на счёте
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrSelfTransfer — попытка перевести монеты самому себе
	ErrSelfTransfer = errors.New("нельзя переводить монеты самому себе")
	// ErrInvalidAmount — некорректная сумма (ноль или отрицательная)
	ErrInvalidAmount = errors.New("сумма должна быть положительной")
	// ErrUserNotFound — пользователь не найден в леджере
	ErrUserNotFound = errors.New("пользователь не найден")
	// ErrAlreadyClaimed — ежедневная награда уже получена
	ErrAlreadyClaimed = errors.New("награда уже получена")
)

// Ошибки гачи и инвентаря
var (
	// ErrUnknownGachaType — нет такого пула
	ErrUnknownGachaType = errors.New("неизвестный тип гачи")
	// ErrUnknownItem — предмета нет в инвентаре или каталоге
	ErrUnknownItem = errors.New("неизвестный предмет")
	// ErrNotEnoughItems — пытаются продать больше, чем есть
	ErrNotEnoughItems = errors.New("недостаточно предметов")
)

// Ошибки доступа и лимитов
var (
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
	// ErrCooldownActive — действие ещё на кулдауне
	ErrCooldownActive = errors.New("кулдаун ещё не прошёл")
	// ErrFeatureDisabled — фича выключена флагом
	ErrFeatureDisabled = errors.New("функция временно отключена")
)

// Ошибки мини-игр
var (
	// ErrGameInProgress — в чате уже идёт игра
	ErrGameInProgress = errors.New("игра уже идёт")
	// ErrNoActiveGame — в чате нет активной игры
	ErrNoActiveGame = errors.New("нет активной игры")
	// ErrInvalidChoice — неизвестный ход или ставка
	ErrInvalidChoice = errors.New("неверный выбор")
)

// CooldownError сообщает, сколько ещё ждать до повторного действия.
// errors.Is(err, ErrCooldownActive) == true.
type CooldownError struct {
	Action     string
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: %s (осталось %s)", ErrCooldownActive, e.Action, e.RetryAfter)
}

func (e *CooldownError) Unwrap() error {
	return ErrCooldownActive
}
