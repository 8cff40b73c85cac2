// Package db описывает хранилище снапшотов леджера.
// Реализации: snapshot (JSON-файлы), postgres, redisstore.
package db

import (
	"context"

	"serotonyl.ru/discshop-bot/internal/features/economy"
)

// SnapshotStore сохраняет и читает снапшот целиком.
// Load возвращает found=false, если снапшота ещё нет: это не ошибка.
type SnapshotStore interface {
	Load(ctx context.Context) (snap economy.Snapshot, found bool, err error)
	Save(ctx context.Context, snap economy.Snapshot) error
	Close() error
}
