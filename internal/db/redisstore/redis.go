// Package redisstore хранит снапшот леджера в Redis:
// два хеша (аккаунты и инвентари, поле = ID пользователя, значение = JSON)
// и ключ с метаданными. Сохранение идёт одной транзакцией MULTI/EXEC.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discshop-bot/internal/config"
	"serotonyl.ru/discshop-bot/internal/features/economy"
)

// Ключи по умолчанию.
const (
	DefaultPrefix = "discshop"

	keyAccounts    = "%s:ledger:accounts"
	keyInventories = "%s:ledger:inventories"
	keyMeta        = "%s:ledger:saved_at"
)

// Store — бэкенд снапшотов поверх Redis.
type Store struct {
	client *redis.Client
	prefix string
}

// New подключается к Redis и проверяет соединение.
func New(ctx context.Context, cfg *config.Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis недоступен: %w", err)
	}

	log.WithField("addr", cfg.RedisAddr).Info("Подключение к Redis установлено")
	return NewWithClient(client, DefaultPrefix), nil
}

// NewWithClient оборачивает готовый клиент. prefix разделяет данные нескольких ботов.
func NewWithClient(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(format string) string {
	return fmt.Sprintf(format, s.prefix)
}

// Load читает оба хеша. found=false, если снапшот ещё не сохраняли.
func (s *Store) Load(ctx context.Context) (economy.Snapshot, bool, error) {
	snap := economy.Snapshot{
		Accounts:    map[string]*economy.Account{},
		Inventories: map[string]*economy.Inventory{},
	}

	_, err := s.client.Get(ctx, s.key(keyMeta)).Result()
	if errors.Is(err, redis.Nil) {
		return snap, false, nil
	}
	if err != nil {
		return economy.Snapshot{}, false, fmt.Errorf("ошибка чтения метаданных: %w", err)
	}

	accounts, err := s.client.HGetAll(ctx, s.key(keyAccounts)).Result()
	if err != nil {
		return economy.Snapshot{}, false, fmt.Errorf("ошибка чтения аккаунтов: %w", err)
	}
	for id, raw := range accounts {
		var acc economy.Account
		if err := json.Unmarshal([]byte(raw), &acc); err != nil {
			return economy.Snapshot{}, false, fmt.Errorf("повреждён аккаунт %s: %w", id, err)
		}
		snap.Accounts[id] = &acc
	}

	inventories, err := s.client.HGetAll(ctx, s.key(keyInventories)).Result()
	if err != nil {
		return economy.Snapshot{}, false, fmt.Errorf("ошибка чтения инвентарей: %w", err)
	}
	for id, raw := range inventories {
		var inv economy.Inventory
		if err := json.Unmarshal([]byte(raw), &inv); err != nil {
			return economy.Snapshot{}, false, fmt.Errorf("повреждён инвентарь %s: %w", id, err)
		}
		snap.Inventories[id] = &inv
	}
	return snap, true, nil
}

// Save переписывает оба хеша атомарно.
func (s *Store) Save(ctx context.Context, snap economy.Snapshot) error {
	accounts := make(map[string]any, len(snap.Accounts))
	for id, acc := range snap.Accounts {
		data, err := json.Marshal(acc)
		if err != nil {
			return fmt.Errorf("ошибка сериализации аккаунта %s: %w", id, err)
		}
		accounts[id] = data
	}
	inventories := make(map[string]any, len(snap.Inventories))
	for id, inv := range snap.Inventories {
		data, err := json.Marshal(inv)
		if err != nil {
			return fmt.Errorf("ошибка сериализации инвентаря %s: %w", id, err)
		}
		inventories[id] = data
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(keyAccounts), s.key(keyInventories))
		// HSET без полей — ошибка протокола
		if len(accounts) > 0 {
			pipe.HSet(ctx, s.key(keyAccounts), accounts)
		}
		if len(inventories) > 0 {
			pipe.HSet(ctx, s.key(keyInventories), inventories)
		}
		pipe.Set(ctx, s.key(keyMeta), strconv.FormatInt(time.Now().Unix(), 10), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("ошибка записи снапшота в redis: %w", err)
	}
	return nil
}

// Close закрывает клиент.
func (s *Store) Close() error {
	return s.client.Close()
}
