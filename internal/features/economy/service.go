// Package economy — service.go содержит бизнес-логику экономики поверх леджера:
// проверка кулдаунов, валидация аргументов, гача, переводы, админ-операции.
package economy

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discshop-bot/internal/common"
	"serotonyl.ru/discshop-bot/internal/cooldown"
	"serotonyl.ru/discshop-bot/internal/features/gacha"
)

// Options — настройки сервиса.
type Options struct {
	CollectInterval time.Duration
	GachaEnabled    bool
}

// Service управляет экономикой бота.
type Service struct {
	store   *Store
	gate    *cooldown.Gate
	catalog *gacha.Catalog
	rng     common.RandSource
	opts    Options
	now     func() time.Time
}

// NewService создаёт новый сервис экономики.
func NewService(store *Store, gate *cooldown.Gate, catalog *gacha.Catalog, rng common.RandSource, opts Options) *Service {
	if opts.CollectInterval <= 0 {
		opts.CollectInterval = time.Hour
	}
	return &Service{
		store:   store,
		gate:    gate,
		catalog: catalog,
		rng:     rng,
		opts:    opts,
		now:     time.Now,
	}
}

// Catalog возвращает каталог пулов гачи.
func (s *Service) Catalog() *gacha.Catalog {
	return s.catalog
}

func (s *Service) acquire(userID, action string) error {
	d := s.gate.TryAcquire(userID, action, s.now())
	if !d.Allowed {
		return &common.CooldownError{Action: action, RetryAfter: d.RetryAfter}
	}
	return nil
}

// Touch регистрирует пользователя и обновляет его имя.
func (s *Service) Touch(userID, displayName string) {
	s.store.Touch(userID, displayName)
}

// Profile возвращает аккаунт (создаёт при первом обращении).
func (s *Service) Profile(userID string) Account {
	return s.store.GetOrCreate(userID)
}

// Daily выдаёт ежедневную награду.
func (s *Service) Daily(userID string) (DailyResult, error) {
	res, err := s.store.ClaimDaily(userID, s.now())
	if err != nil {
		return res, err
	}
	log.WithFields(log.Fields{
		"user_id": userID,
		"amount":  res.Reward.Amount,
		"streak":  res.Reward.NewStreak,
	}).Info("Daily получен")
	return res, nil
}

// Collect выдаёт пассивный доход раз в интервал.
func (s *Service) Collect(userID string) (CollectResult, error) {
	res := s.store.Collect(userID, s.now(), s.opts.CollectInterval)
	if !res.Allowed {
		return res, &common.CooldownError{Action: "collect", RetryAfter: res.RetryAfter}
	}
	return res, nil
}

// Work — заработок за случайную работу.
func (s *Service) Work(userID string) (WorkResult, error) {
	if err := s.acquire(userID, cooldown.ActionWork); err != nil {
		return WorkResult{}, err
	}
	return s.store.ApplyWork(userID, s.rng, s.now()), nil
}

// Crime — рискованный заработок.
func (s *Service) Crime(userID string) (CrimeResult, error) {
	if err := s.acquire(userID, cooldown.ActionCrime); err != nil {
		return CrimeResult{}, err
	}
	res := s.store.ApplyCrime(userID, s.rng, s.now())
	log.WithFields(log.Fields{
		"user_id": userID,
		"action":  "crime",
		"success": res.Success,
		"amount":  res.Amount,
	}).Debug("Crime")
	return res, nil
}

// Transfer переводит монеты от одного пользователя к другому.
// Выполняет все необходимые проверки:
//   - Нельзя переводить себе
//   - Сумма должна быть положительной
//   - Получатель должен быть известен боту
//
// Нехватка баланса — не ошибка, а TransferResult{Success: false}.
func (s *Service) Transfer(from, to string, amount int64) (TransferResult, error) {
	if from == to {
		return TransferResult{}, common.ErrSelfTransfer
	}
	if amount <= 0 {
		return TransferResult{}, common.ErrInvalidAmount
	}
	if !s.store.Exists(to) {
		return TransferResult{}, common.ErrUserNotFound
	}
	if err := s.acquire(from, cooldown.ActionTransfer); err != nil {
		return TransferResult{}, err
	}

	res := s.store.Transfer(from, to, amount)
	if !res.Success {
		s.gate.Release(from, cooldown.ActionTransfer)
		return res, nil
	}

	log.WithFields(log.Fields{
		"from":   from,
		"to":     to,
		"amount": amount,
	}).Info("Перевод выполнен")
	return res, nil
}

// Gacha покупает прокрут в пуле poolName.
func (s *Service) Gacha(userID, poolName string) (PurchaseResult, gacha.Pool, error) {
	if !s.opts.GachaEnabled {
		return PurchaseResult{}, gacha.Pool{}, common.ErrFeatureDisabled
	}
	pool, ok := s.catalog.Pool(poolName)
	if !ok {
		return PurchaseResult{}, gacha.Pool{}, common.ErrUnknownGachaType
	}
	if err := s.acquire(userID, cooldown.ActionGacha); err != nil {
		return PurchaseResult{}, pool, err
	}

	entry := gacha.Draw(pool, s.rng)
	item := GachaItem{Name: entry.Name, Rarity: entry.Rarity, Value: entry.Value, Pool: pool.Name, PoolVersion: pool.Version}

	res, err := s.store.BuyGacha(userID, pool.Name, pool.Cost, item, s.now())
	if err != nil {
		s.gate.Release(userID, cooldown.ActionGacha)
		return res, pool, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"pool":    pool.Name,
		"item":    entry.Name,
		"rarity":  entry.Rarity,
	}).Debug("Gacha")
	return res, pool, nil
}

// Sell продаёт qty предметов по цене из каталога.
func (s *Service) Sell(userID, itemName string, qty int64) (SaleResult, error) {
	if qty <= 0 {
		return SaleResult{}, common.ErrInvalidAmount
	}
	entry, ok := s.catalog.Item(itemName)
	if !ok {
		return SaleResult{}, common.ErrUnknownItem
	}
	return s.store.SellItem(userID, entry.Name, qty, entry.Value)
}

// Inventory возвращает инвентарь пользователя.
func (s *Service) Inventory(userID string) Inventory {
	return s.store.Inventory(userID)
}

// History возвращает последние транзакции.
func (s *Service) History(userID string, limit int) []Transaction {
	return s.store.History(userID, limit)
}

// Leaderboard — топ по состоянию.
func (s *Service) Leaderboard(limit int) []Account {
	return s.store.Leaderboard(limit)
}

// AccountCount — сколько аккаунтов в леджере.
func (s *Service) AccountCount() int {
	return s.store.Count()
}

// GrantXP начисляет опыт за действия вне экономики (победы в играх).
func (s *Service) GrantXP(userID string, amount int64) int {
	return s.store.AddXP(userID, amount)
}

// ResolveUser находит пользователя по ссылке из команды:
// упоминание Discord (<@123>, <@!123>), "@имя", ID или отображаемое имя.
func (s *Service) ResolveUser(ref string) (Account, bool) {
	ref = strings.TrimSpace(ref)
	id := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(ref, "<@"), "!"), ">")
	id = strings.TrimPrefix(id, "@")
	if id == "" {
		return Account{}, false
	}
	if s.store.Exists(id) {
		return s.store.GetOrCreate(id), true
	}
	return s.store.FindByName(id)
}

// AdminAddMoney начисляет деньги пользователю. Проверка прав — на стороне вызывающего.
func (s *Service) AdminAddMoney(adminID, target string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, common.ErrInvalidAmount
	}
	if !s.store.Exists(target) {
		return 0, common.ErrUserNotFound
	}
	balance, err := s.store.AdminAddMoney(target, amount)
	if err != nil {
		return 0, fmt.Errorf("addmoney: %w", err)
	}

	log.WithFields(log.Fields{
		"admin_id": adminID,
		"user_id":  target,
		"amount":   amount,
	}).Info("Админ начислил деньги")
	return balance, nil
}

// AdminReset сбрасывает экономику пользователя и его кулдауны.
func (s *Service) AdminReset(adminID, target string) (Account, error) {
	acc, err := s.store.AdminReset(target)
	if err != nil {
		return Account{}, err
	}
	s.gate.Reset(target)

	log.WithFields(log.Fields{
		"admin_id": adminID,
		"user_id":  target,
	}).Warn("Админ сбросил экономику пользователя")
	return acc, nil
}
