// Package economy управляет виртуальной валютой (koin): леджер аккаунтов,
// награды, переводы и инвентарь гачи.
// models.go описывает аккаунты, транзакции, инвентарь и снапшот.
package economy

import "time"

// TxKind — тип транзакции.
type TxKind string

const (
	TxIncome      TxKind = "income"
	TxExpense     TxKind = "expense"
	TxTransferOut TxKind = "transfer_out"
	TxTransferIn  TxKind = "transfer_in"
)

// Transaction представляет одну операцию с балансом. После добавления не меняется.
type Transaction struct {
	ID           string    `json:"id"`
	Kind         TxKind    `json:"kind"`
	Amount       int64     `json:"amount"` // всегда > 0
	Reason       string    `json:"reason"`
	Counterparty string    `json:"counterparty,omitempty"` // для переводов
	RelatedID    string    `json:"relatedId,omitempty"`    // ID парной транзакции перевода
	Timestamp    time.Time `json:"timestamp"`
}

// Account — запись леджера одного пользователя.
type Account struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`

	Balance int64 `json:"balance"`
	Bank    int64 `json:"bank"` // пока всегда 0, входит в общее состояние

	XP    int64 `json:"xp"`
	Level int64 `json:"level"`

	TotalEarned int64 `json:"totalEarned"`
	TotalSpent  int64 `json:"totalSpent"`

	DailyStreak int        `json:"dailyStreak"`
	LastDaily   *time.Time `json:"lastDaily,omitempty"`
	LastCollect *time.Time `json:"lastCollect,omitempty"`

	Transactions []Transaction `json:"transactions"`
	Achievements []string      `json:"achievements"`
}

// Wealth — общее состояние: баланс + банк.
func (a Account) Wealth() int64 {
	return a.Balance + a.Bank
}

func newAccount(userID string, startingBalance int64) *Account {
	return &Account{
		UserID:       userID,
		Balance:      startingBalance,
		Level:        1,
		Transactions: []Transaction{},
		Achievements: []string{},
	}
}

func (a *Account) clone() *Account {
	c := *a
	c.Transactions = make([]Transaction, len(a.Transactions))
	copy(c.Transactions, a.Transactions)
	c.Achievements = make([]string, len(a.Achievements))
	copy(c.Achievements, a.Achievements)
	if a.LastDaily != nil {
		t := *a.LastDaily
		c.LastDaily = &t
	}
	if a.LastCollect != nil {
		t := *a.LastCollect
		c.LastCollect = &t
	}
	return &c
}

// GachaItem — выпавший из гачи предмет.
type GachaItem struct {
	Name        string    `json:"name"`
	Rarity      string    `json:"rarity"`
	Value       int64     `json:"value"`
	Pool        string    `json:"pool,omitempty"`
	PoolVersion string    `json:"poolVersion,omitempty"` // версия пула на момент прокрута
	Timestamp   time.Time `json:"timestamp"`
}

// Inventory — инвентарь пользователя.
// Items — текущее количество по названию (нулевые записи удаляются),
// GachaItems — история всех выпадений, только дописывается.
type Inventory struct {
	Items      map[string]int64 `json:"items"`
	GachaItems []GachaItem      `json:"gachaItems"`
	Badges     []string         `json:"badges"`
}

func newInventory() *Inventory {
	return &Inventory{
		Items:      map[string]int64{},
		GachaItems: []GachaItem{},
		Badges:     []string{},
	}
}

func (inv *Inventory) clone() *Inventory {
	c := &Inventory{
		Items:      make(map[string]int64, len(inv.Items)),
		GachaItems: make([]GachaItem, len(inv.GachaItems)),
		Badges:     make([]string, len(inv.Badges)),
	}
	copy(c.GachaItems, inv.GachaItems)
	copy(c.Badges, inv.Badges)
	for name, qty := range inv.Items {
		c.Items[name] = qty
	}
	return c
}

// Snapshot — полное состояние леджера для сохранения.
// Ключи обеих карт — ID пользователей.
type Snapshot struct {
	Accounts    map[string]*Account   `json:"accounts"`
	Inventories map[string]*Inventory `json:"inventories"`
}

// Len — количество аккаунтов в снапшоте.
func (s Snapshot) Len() int {
	return len(s.Accounts)
}

// DailyReward — результат расчёта ежедневной награды.
type DailyReward struct {
	Allowed    bool
	Amount     int64
	NewStreak  int
	WeekBonus  bool
	RetryAfter time.Duration
}

// DailyResult — итог .daily.
type DailyResult struct {
	Reward   DailyReward
	Balance  int64
	LevelUps int
}

// CollectResult — итог .collect.
type CollectResult struct {
	Allowed    bool
	Amount     int64
	Balance    int64
	RetryAfter time.Duration
	LevelUps   int
}

// WorkOutcome — выбранная работа и заработок.
type WorkOutcome struct {
	Job    string
	Amount int64
}

// WorkResult — итог .work.
type WorkResult struct {
	WorkOutcome
	Balance  int64
	LevelUps int
}

// CrimeOutcome — результат преступления.
// При провале Amount — фактически списанный штраф (не больше баланса).
type CrimeOutcome struct {
	Crime   string
	Success bool
	Amount  int64
}

// CrimeResult — итог .crime.
type CrimeResult struct {
	CrimeOutcome
	Balance  int64
	LevelUps int
}

// TransferResult — итог перевода.
type TransferResult struct {
	Success       bool
	Message       string
	Amount        int64
	OutID         string
	InID          string
	SenderBalance int64
}

// PurchaseResult — итог покупки в гаче.
type PurchaseResult struct {
	Item     GachaItem
	Balance  int64
	LevelUps int
}

// SaleResult — итог продажи предметов.
type SaleResult struct {
	Item      string
	Quantity  int64
	Earned    int64
	Remaining int64
	Balance   int64
}
