// Package snapshot хранит леджер в двух JSON-файлах:
// accounts.json и inventories.json в каталоге SNAPSHOT_DIR.
// Запись атомарна: сначала временный файл, потом rename.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discshop-bot/internal/features/economy"
)

const (
	AccountsFile    = "accounts.json"
	InventoriesFile = "inventories.json"
)

// Store — файловое хранилище снапшотов.
type Store struct {
	dir string
}

// New создаёт хранилище и каталог, если его нет.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Load читает оба файла. Если ни одного нет, found=false.
func (s *Store) Load(ctx context.Context) (economy.Snapshot, bool, error) {
	snap := economy.Snapshot{
		Accounts:    map[string]*economy.Account{},
		Inventories: map[string]*economy.Inventory{},
	}

	foundAccounts, err := readJSON(filepath.Join(s.dir, AccountsFile), &snap.Accounts)
	if err != nil {
		return economy.Snapshot{}, false, err
	}
	foundInventories, err := readJSON(filepath.Join(s.dir, InventoriesFile), &snap.Inventories)
	if err != nil {
		return economy.Snapshot{}, false, err
	}
	if !foundAccounts && !foundInventories {
		return snap, false, nil
	}

	log.WithFields(log.Fields{
		"component": "snapshot",
		"accounts":  snap.Len(),
		"dir":       s.dir,
	}).Info("Снапшот загружен")
	return snap, true, nil
}

// Save записывает оба файла.
func (s *Store) Save(ctx context.Context, snap economy.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(s.dir, AccountsFile), snap.Accounts); err != nil {
		return err
	}
	return writeJSON(filepath.Join(s.dir, InventoriesFile), snap.Inventories)
}

// Close ничего не держит открытым.
func (s *Store) Close() error {
	return nil
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ошибка чтения %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("повреждён файл %s: %w", path, err)
	}
	return true, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // после rename файла уже нет

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("ошибка записи %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("ошибка sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("ошибка замены %s: %w", path, err)
	}
	return nil
}
