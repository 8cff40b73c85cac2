// Package economy — store.go хранит леджер в памяти процесса.
// Каждый метод Store — одна атомарная операция под общим мьютексом:
// внутри нет ожиданий и I/O, наружу отдаются только копии.
// Сохранение на диск/в БД делает планировщик через Snapshot.
package economy

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"serotonyl.ru/discshop-bot/internal/common"
)

// Notifier получает сигнал "есть несохранённые изменения".
type Notifier interface {
	MarkDirty()
}

type noopNotifier struct{}

func (noopNotifier) MarkDirty() {}

// Store — леджер аккаунтов и инвентарей.
type Store struct {
	mu          sync.Mutex
	accounts    map[string]*Account
	inventories map[string]*Inventory

	startingBalance int64
	notifier        Notifier
	clock           func() time.Time

	// failAfterDebit вызывается между списанием и зачислением перевода.
	// Только для тестов: ошибка откатывает перевод.
	failAfterDebit func() error
}

// NewStore создаёт пустой леджер.
func NewStore(startingBalance int64, notifier Notifier) *Store {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Store{
		accounts:        make(map[string]*Account),
		inventories:     make(map[string]*Inventory),
		startingBalance: startingBalance,
		notifier:        notifier,
		clock:           time.Now,
	}
}

// SetNotifier подключает планировщик сохранения после создания стора.
func (s *Store) SetNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n == nil {
		n = noopNotifier{}
	}
	s.notifier = n
}

// account возвращает аккаунт, создавая его при необходимости.
// Вызывать только под s.mu.
func (s *Store) account(userID string) (*Account, bool) {
	if acc, ok := s.accounts[userID]; ok {
		return acc, false
	}
	acc := newAccount(userID, s.startingBalance)
	s.accounts[userID] = acc
	return acc, true
}

func (s *Store) inventory(userID string) *Inventory {
	inv, ok := s.inventories[userID]
	if !ok {
		inv = newInventory()
		s.inventories[userID] = inv
	}
	return inv
}

// fits — поместится ли зачисление amount в int64 без переполнения.
func fits(acc *Account, amount int64) bool {
	return amount <= math.MaxInt64-acc.Balance && amount <= math.MaxInt64-acc.TotalEarned
}

// applyCredit зачисляет сумму и пишет income-транзакцию.
// Награды упираются в math.MaxInt64; явные зачисления проверяются fits заранее.
func applyCredit(acc *Account, amount int64, reason string, now time.Time) {
	if room := math.MaxInt64 - acc.Balance; amount > room {
		amount = room
	}
	if amount <= 0 {
		return
	}
	acc.Balance += amount
	if acc.TotalEarned > math.MaxInt64-amount {
		acc.TotalEarned = math.MaxInt64
	} else {
		acc.TotalEarned += amount
	}
	acc.Transactions = append(acc.Transactions, Transaction{
		ID:        uuid.NewString(),
		Kind:      TxIncome,
		Amount:    amount,
		Reason:    reason,
		Timestamp: now,
	})
}

// applyDebit списывает сумму, если хватает баланса.
func applyDebit(acc *Account, amount int64, reason string, now time.Time) bool {
	if acc.Balance < amount {
		return false
	}
	acc.Balance -= amount
	acc.TotalSpent += amount
	acc.Transactions = append(acc.Transactions, Transaction{
		ID:        uuid.NewString(),
		Kind:      TxExpense,
		Amount:    amount,
		Reason:    reason,
		Timestamp: now,
	})
	return true
}

// GetOrCreate возвращает копию аккаунта, создавая его с балансом по умолчанию.
// Существующий аккаунт не сбрасывается.
func (s *Store) GetOrCreate(userID string) Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, created := s.account(userID)
	if created {
		s.notifier.MarkDirty()
	}
	return *acc.clone()
}

// Touch создаёт аккаунт при необходимости и запоминает отображаемое имя.
func (s *Store) Touch(userID, displayName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, created := s.account(userID)
	if displayName != "" && acc.DisplayName != displayName {
		acc.DisplayName = displayName
		created = true
	}
	if created {
		s.notifier.MarkDirty()
	}
}

// Exists проверяет, видели ли мы пользователя.
func (s *Store) Exists(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.accounts[userID]
	return ok
}

// FindByName ищет аккаунт по отображаемому имени без учёта регистра.
func (s *Store) FindByName(name string) (Account, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Account{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.sortedIDs() {
		acc := s.accounts[id]
		if strings.EqualFold(acc.DisplayName, name) {
			return *acc.clone(), true
		}
	}
	return Account{}, false
}

// Credit начисляет amount и возвращает новый баланс.
func (s *Store) Credit(userID string, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, common.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, created := s.account(userID)
	if !fits(acc, amount) {
		if created {
			s.notifier.MarkDirty()
		}
		return acc.Balance, common.ErrInvalidAmount
	}
	applyCredit(acc, amount, reason, s.clock())
	s.notifier.MarkDirty()
	return acc.Balance, nil
}

// Debit списывает amount. false — не хватило баланса (или сумма <= 0),
// в этом случае ничего не меняется.
func (s *Store) Debit(userID string, amount int64, reason string) bool {
	if amount <= 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, created := s.account(userID)
	if !applyDebit(acc, amount, reason, s.clock()) {
		if created {
			s.notifier.MarkDirty()
		}
		return false
	}
	s.notifier.MarkDirty()
	return true
}

// AddXP начисляет опыт и возвращает количество повышений уровня.
func (s *Store) AddXP(userID string, amount int64) int {
	if amount <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, _ := s.account(userID)
	levelUps := addXP(acc, amount, s.clock())
	s.notifier.MarkDirty()
	return levelUps
}

// Transfer атомарно переводит amount от from к to.
// Обе стороны и обе записи в истории меняются вместе или не меняются вовсе.
// Переводы не входят в TotalEarned/TotalSpent: те считают только income/expense.
func (s *Store) Transfer(from, to string, amount int64) TransferResult {
	if amount <= 0 {
		return TransferResult{Message: common.ErrInvalidAmount.Error()}
	}
	if from == to {
		return TransferResult{Message: common.ErrSelfTransfer.Error()}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recipient, ok := s.accounts[to]
	if !ok {
		return TransferResult{Message: common.ErrUserNotFound.Error()}
	}
	sender, created := s.account(from)
	if created {
		s.notifier.MarkDirty()
	}
	if sender.Balance < amount {
		return TransferResult{Message: common.ErrInsufficientBalance.Error(), SenderBalance: sender.Balance}
	}
	if amount > math.MaxInt64-recipient.Balance {
		return TransferResult{Message: common.ErrInvalidAmount.Error(), SenderBalance: sender.Balance}
	}

	senderBefore := sender.clone()
	recipientBefore := recipient.clone()

	now := s.clock()
	outID, inID := uuid.NewString(), uuid.NewString()

	sender.Balance -= amount
	sender.Transactions = append(sender.Transactions, Transaction{
		ID:           outID,
		Kind:         TxTransferOut,
		Amount:       amount,
		Reason:       "transfer to " + to,
		Counterparty: to,
		RelatedID:    inID,
		Timestamp:    now,
	})

	if s.failAfterDebit != nil {
		if err := s.failAfterDebit(); err != nil {
			s.accounts[from] = senderBefore
			s.accounts[to] = recipientBefore
			return TransferResult{Message: err.Error(), SenderBalance: senderBefore.Balance}
		}
	}

	recipient.Balance += amount
	recipient.Transactions = append(recipient.Transactions, Transaction{
		ID:           inID,
		Kind:         TxTransferIn,
		Amount:       amount,
		Reason:       "transfer from " + from,
		Counterparty: from,
		RelatedID:    outID,
		Timestamp:    now,
	})

	s.notifier.MarkDirty()
	return TransferResult{
		Success:       true,
		Message:       "ok",
		Amount:        amount,
		OutID:         outID,
		InID:          inID,
		SenderBalance: sender.Balance,
	}
}

// ClaimDaily выдаёт ежедневную награду, если прошли сутки с прошлой.
// ErrAlreadyClaimed — ещё рано, RetryAfter в результате.
func (s *Store) ClaimDaily(userID string, now time.Time) (DailyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, created := s.account(userID)
	reward := ComputeDailyReward(*acc, now)
	if !reward.Allowed {
		if created {
			s.notifier.MarkDirty()
		}
		return DailyResult{Reward: reward, Balance: acc.Balance}, common.ErrAlreadyClaimed
	}

	// lastDaily никогда не уменьшается
	if acc.LastDaily == nil || now.After(*acc.LastDaily) {
		t := now
		acc.LastDaily = &t
	}
	acc.DailyStreak = reward.NewStreak
	applyCredit(acc, reward.Amount, "daily reward (streak "+strconv.Itoa(reward.NewStreak)+")", now)
	levelUps := addXP(acc, XPDaily, now)

	s.notifier.MarkDirty()
	return DailyResult{Reward: reward, Balance: acc.Balance, LevelUps: levelUps}, nil
}

// Collect выдаёт пассивный доход раз в interval.
func (s *Store) Collect(userID string, now time.Time, interval time.Duration) CollectResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, created := s.account(userID)
	if acc.LastCollect != nil {
		if wait := acc.LastCollect.Add(interval).Sub(now); wait > 0 {
			if created {
				s.notifier.MarkDirty()
			}
			return CollectResult{Balance: acc.Balance, RetryAfter: wait}
		}
	}

	t := now
	acc.LastCollect = &t
	amount := CollectAmount(acc.Level)
	applyCredit(acc, amount, "collect", now)
	levelUps := addXP(acc, XPCollect, now)

	s.notifier.MarkDirty()
	return CollectResult{Allowed: true, Amount: amount, Balance: acc.Balance, LevelUps: levelUps}
}

// ApplyWork выбирает работу и начисляет заработок.
func (s *Store) ApplyWork(userID string, rng common.RandSource, now time.Time) WorkResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, _ := s.account(userID)
	outcome := RollWork(rng)
	applyCredit(acc, outcome.Amount, "work: "+outcome.Job, now)
	levelUps := addXP(acc, XPWork, now)

	s.notifier.MarkDirty()
	return WorkResult{WorkOutcome: outcome, Balance: acc.Balance, LevelUps: levelUps}
}

// ApplyCrime разыгрывает преступление. Бросок делается под блокировкой,
// поэтому штраф считается от актуального баланса.
func (s *Store) ApplyCrime(userID string, rng common.RandSource, now time.Time) CrimeResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, _ := s.account(userID)
	outcome := RollCrime(rng, acc.Balance)

	levelUps := 0
	switch {
	case outcome.Success:
		applyCredit(acc, outcome.Amount, "crime: "+outcome.Crime, now)
		levelUps = addXP(acc, XPCrimeSuccess, now)
	case outcome.Amount > 0:
		applyDebit(acc, outcome.Amount, "crime fine: "+outcome.Crime, now)
	}

	s.notifier.MarkDirty()
	return CrimeResult{CrimeOutcome: outcome, Balance: acc.Balance, LevelUps: levelUps}
}

// BuyGacha списывает стоимость, кладёт предмет в инвентарь и даёт XP одним шагом.
func (s *Store) BuyGacha(userID, pool string, cost int64, item GachaItem, now time.Time) (PurchaseResult, error) {
	if cost <= 0 {
		return PurchaseResult{}, common.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, created := s.account(userID)
	if !applyDebit(acc, cost, "gacha "+pool, now) {
		if created {
			s.notifier.MarkDirty()
		}
		return PurchaseResult{Balance: acc.Balance}, common.ErrInsufficientBalance
	}

	item.Timestamp = now
	inv := s.inventory(userID)
	inv.Items[item.Name]++
	inv.GachaItems = append(inv.GachaItems, item)
	levelUps := addXP(acc, XPGacha, now)

	s.notifier.MarkDirty()
	return PurchaseResult{Item: item, Balance: acc.Balance, LevelUps: levelUps}, nil
}

// SellItem продаёт qty штук предмета по unitValue.
func (s *Store) SellItem(userID, item string, qty, unitValue int64) (SaleResult, error) {
	if qty <= 0 || unitValue <= 0 {
		return SaleResult{}, common.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.inventories[userID]
	if !ok {
		return SaleResult{}, common.ErrUnknownItem
	}
	have, ok := inv.Items[item]
	if !ok {
		return SaleResult{}, common.ErrUnknownItem
	}
	if have < qty {
		return SaleResult{Item: item, Remaining: have}, common.ErrNotEnoughItems
	}
	if qty > math.MaxInt64/unitValue {
		return SaleResult{}, common.ErrInvalidAmount
	}
	acc, _ := s.account(userID)
	earned := qty * unitValue
	if !fits(acc, earned) {
		return SaleResult{}, common.ErrInvalidAmount
	}

	remaining := have - qty
	if remaining == 0 {
		delete(inv.Items, item)
	} else {
		inv.Items[item] = remaining
	}

	applyCredit(acc, earned, "sell "+strconv.FormatInt(qty, 10)+"x "+item, s.clock())

	s.notifier.MarkDirty()
	return SaleResult{
		Item:      item,
		Quantity:  qty,
		Earned:    earned,
		Remaining: remaining,
		Balance:   acc.Balance,
	}, nil
}

// Inventory возвращает копию инвентаря (пустой, если его нет).
func (s *Store) Inventory(userID string) Inventory {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.inventories[userID]
	if !ok {
		return *newInventory()
	}
	return *inv.clone()
}

// History возвращает последние limit транзакций, новые первыми.
func (s *Store) History(userID string, limit int) []Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[userID]
	if !ok || limit <= 0 {
		return nil
	}

	txs := acc.Transactions
	if len(txs) > limit {
		txs = txs[len(txs)-limit:]
	}
	out := make([]Transaction, 0, len(txs))
	for i := len(txs) - 1; i >= 0; i-- {
		out = append(out, txs[i])
	}
	return out
}

// AdminAddMoney — привилегированное начисление.
func (s *Store) AdminAddMoney(target string, amount int64) (int64, error) {
	return s.Credit(target, amount, "admin addmoney")
}

// AdminReset возвращает аккаунт к состоянию по умолчанию.
// Имя сохраняется, инвентарь не трогаем.
func (s *Store) AdminReset(target string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.accounts[target]
	if !ok {
		return Account{}, common.ErrUserNotFound
	}
	fresh := newAccount(target, s.startingBalance)
	fresh.DisplayName = old.DisplayName
	s.accounts[target] = fresh

	s.notifier.MarkDirty()
	return *fresh.clone(), nil
}

// Leaderboard возвращает топ по общему состоянию (баланс + банк),
// при равенстве — по ID. Транзакции в результат не копируются.
func (s *Store) Leaderboard(limit int) []Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		row := *acc
		row.Transactions = nil
		row.Achievements = nil
		row.LastDaily = nil
		row.LastCollect = nil
		out = append(out, row)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Wealth() != out[j].Wealth() {
			return out[i].Wealth() > out[j].Wealth()
		}
		return out[i].UserID < out[j].UserID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Count — количество аккаунтов.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

// Snapshot делает глубокую копию всего состояния.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Accounts:    make(map[string]*Account, len(s.accounts)),
		Inventories: make(map[string]*Inventory, len(s.inventories)),
	}
	for id, acc := range s.accounts {
		snap.Accounts[id] = acc.clone()
	}
	for id, inv := range s.inventories {
		snap.Inventories[id] = inv.clone()
	}
	return snap
}

// Restore заменяет состояние копией снапшота. Вызывается один раз при старте.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts = make(map[string]*Account, len(snap.Accounts))
	for id, acc := range snap.Accounts {
		if acc == nil {
			continue
		}
		c := acc.clone()
		c.UserID = id
		if c.Level < 1 {
			c.Level = 1
		}
		if c.Transactions == nil {
			c.Transactions = []Transaction{}
		}
		if c.Achievements == nil {
			c.Achievements = []string{}
		}
		s.accounts[id] = c
	}

	s.inventories = make(map[string]*Inventory, len(snap.Inventories))
	for id, inv := range snap.Inventories {
		if inv == nil {
			continue
		}
		c := inv.clone()
		if c.Items == nil {
			c.Items = map[string]int64{}
		}
		s.inventories[id] = c
	}
}

// ResetBrokenStreaks обнуляет стрики тех, кто не забирал daily больше 2 суток.
// Аккаунты обходятся пачками по chunk, мьютекс отпускается между пачками,
// чтобы команды не ждали весь проход.
func (s *Store) ResetBrokenStreaks(now time.Time, chunk int) int {
	if chunk <= 0 {
		chunk = 200
	}

	s.mu.Lock()
	ids := s.sortedIDs()
	s.mu.Unlock()

	reset := 0
	for start := 0; start < len(ids); start += chunk {
		end := min(start+chunk, len(ids))

		s.mu.Lock()
		changed := 0
		for _, id := range ids[start:end] {
			acc, ok := s.accounts[id]
			if !ok || acc.DailyStreak == 0 || acc.LastDaily == nil {
				continue
			}
			if now.Sub(*acc.LastDaily) > 48*time.Hour {
				acc.DailyStreak = 0
				changed++
			}
		}
		if changed > 0 {
			s.notifier.MarkDirty()
		}
		s.mu.Unlock()

		reset += changed
	}
	return reset
}

func (s *Store) sortedIDs() []string {
	ids := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
