// Package postgres — snapshot_store.go хранит снапшот леджера в таблицах
// ledger_accounts и ledger_inventories (по строке JSONB на пользователя).
// Каждое сохранение переписывает таблицы целиком в одной транзакции.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discshop-bot/internal/features/economy"
)

// SnapshotStore — бэкенд снапшотов поверх PostgreSQL.
type SnapshotStore struct {
	db *pgxpool.Pool
}

// NewSnapshotStore создаёт хранилище. Миграции должны быть уже применены.
func NewSnapshotStore(db *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Load читает снапшот. found=false, если ещё ни разу не сохраняли.
func (s *SnapshotStore) Load(ctx context.Context) (economy.Snapshot, bool, error) {
	snap := economy.Snapshot{
		Accounts:    map[string]*economy.Account{},
		Inventories: map[string]*economy.Inventory{},
	}

	var saved int
	err := s.db.QueryRow(ctx, "SELECT accounts FROM ledger_snapshot_meta WHERE id = 1").Scan(&saved)
	if errors.Is(err, pgx.ErrNoRows) {
		return snap, false, nil
	}
	if err != nil {
		return economy.Snapshot{}, false, fmt.Errorf("ошибка чтения метаданных снапшота: %w", err)
	}

	if err := loadRows(ctx, s.db, "SELECT user_id, data FROM ledger_accounts", func(id string, data []byte) error {
		var acc economy.Account
		if err := json.Unmarshal(data, &acc); err != nil {
			return err
		}
		snap.Accounts[id] = &acc
		return nil
	}); err != nil {
		return economy.Snapshot{}, false, fmt.Errorf("ошибка чтения аккаунтов: %w", err)
	}

	if err := loadRows(ctx, s.db, "SELECT user_id, data FROM ledger_inventories", func(id string, data []byte) error {
		var inv economy.Inventory
		if err := json.Unmarshal(data, &inv); err != nil {
			return err
		}
		snap.Inventories[id] = &inv
		return nil
	}); err != nil {
		return economy.Snapshot{}, false, fmt.Errorf("ошибка чтения инвентарей: %w", err)
	}

	if saved != snap.Len() {
		log.WithFields(log.Fields{
			"component": "postgres",
			"expected":  saved,
			"loaded":    snap.Len(),
		}).Warn("Число аккаунтов не совпадает с метаданными снапшота")
	}
	return snap, true, nil
}

func loadRows(ctx context.Context, db *pgxpool.Pool, query string, fn func(id string, data []byte) error) error {
	rows, err := db.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return err
		}
		if err := fn(id, data); err != nil {
			return fmt.Errorf("user %s: %w", id, err)
		}
	}
	return rows.Err()
}

// Save переписывает обе таблицы в одной транзакции.
func (s *SnapshotStore) Save(ctx context.Context, snap economy.Snapshot) error {
	batch := &pgx.Batch{}
	batch.Queue("DELETE FROM ledger_accounts")
	batch.Queue("DELETE FROM ledger_inventories")

	for id, acc := range snap.Accounts {
		data, err := json.Marshal(acc)
		if err != nil {
			return fmt.Errorf("ошибка сериализации аккаунта %s: %w", id, err)
		}
		batch.Queue("INSERT INTO ledger_accounts (user_id, data) VALUES ($1, $2)", id, data)
	}
	for id, inv := range snap.Inventories {
		data, err := json.Marshal(inv)
		if err != nil {
			return fmt.Errorf("ошибка сериализации инвентаря %s: %w", id, err)
		}
		batch.Queue("INSERT INTO ledger_inventories (user_id, data) VALUES ($1, $2)", id, data)
	}
	batch.Queue(`
		INSERT INTO ledger_snapshot_meta (id, accounts, saved_at) VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET accounts = EXCLUDED.accounts, saved_at = EXCLUDED.saved_at
	`, snap.Len())

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("ошибка записи снапшота: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации снапшота: %w", err)
	}
	return nil
}

// Close закрывает пул соединений.
func (s *SnapshotStore) Close() error {
	s.db.Close()
	return nil
}
