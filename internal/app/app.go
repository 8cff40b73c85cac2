// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: хранилище снапшотов, леджер, отложенное сохранение,
// сервисы, обработчики, транспорт, планировщик и HTTP-сервер.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discshop-bot/internal/bot"
	"serotonyl.ru/discshop-bot/internal/bot/filters"
	"serotonyl.ru/discshop-bot/internal/common"
	"serotonyl.ru/discshop-bot/internal/config"
	"serotonyl.ru/discshop-bot/internal/cooldown"
	"serotonyl.ru/discshop-bot/internal/db"
	"serotonyl.ru/discshop-bot/internal/db/postgres"
	"serotonyl.ru/discshop-bot/internal/db/redisstore"
	"serotonyl.ru/discshop-bot/internal/db/snapshot"
	"serotonyl.ru/discshop-bot/internal/features/economy"
	"serotonyl.ru/discshop-bot/internal/features/gacha"
	"serotonyl.ru/discshop-bot/internal/features/games"
	"serotonyl.ru/discshop-bot/internal/features/shop"
	"serotonyl.ru/discshop-bot/internal/httpapi"
	"serotonyl.ru/discshop-bot/internal/jobs"
)

// App содержит все компоненты приложения.
type App struct {
	Transport bot.Transport
	Bot       *bot.Bot
	Store     *economy.Store
	Flusher   *jobs.Flusher
	Scheduler *jobs.Scheduler
	Backend   db.SnapshotStore
	HTTP      *httpapi.Server
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	loc := common.LoadLocation(cfg.AppTimezone)

	// === 1. Хранилище снапшотов ===
	backend, err := NewBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к хранилищу: %w", err)
	}

	// === 2. Леджер ===
	store, err := LoadLedger(ctx, backend, cfg.EconomyStartingBalance)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// === 3. Отложенное сохранение ===
	flusher := jobs.NewFlusher(func(ctx context.Context) error {
		return backend.Save(ctx, store.Snapshot())
	}, cfg.SaveDebounce)
	store.SetNotifier(flusher)

	// === 4. Транспорт ===
	transport, err := bot.NewTransport(cfg)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("ошибка создания транспорта: %w", err)
	}

	// === 5. Сервисы ===
	gate := cooldown.NewGate(map[string]time.Duration{
		cooldown.ActionWork:     cfg.CooldownWork,
		cooldown.ActionCrime:    cfg.CooldownCrime,
		cooldown.ActionGacha:    cfg.CooldownGacha,
		cooldown.ActionTransfer: cfg.CooldownTransfer,
	})
	rng := common.NewRandSource(time.Now().UnixNano())

	economyService := economy.NewService(store, gate, gacha.DefaultCatalog(), rng, economy.Options{
		CollectInterval: cfg.CooldownCollect,
		GachaEnabled:    cfg.FeatureGachaEnabled,
	})
	gameService := games.NewService(rng, economyService, economy.XPGameWin)

	// === 6. Обработчики ===
	var latency shop.LatencyFunc
	if cfg.BotPlatform == config.PlatformDiscord {
		latency = transport.Latency
	}
	economyHandler := economy.NewHandler(economyService, transport, cfg.BotPrefix, loc)
	gamesHandler := games.NewHandler(gameService, transport, cfg.BotPrefix, cfg.FeatureGamesEnabled)
	shopHandler := shop.NewHandler(shop.InfoFromConfig(cfg), transport, cfg.BotPrefix, latency)

	// === 7. Собираем бота ===
	b := bot.New(
		cfg, transport,
		economyService, economyHandler,
		gamesHandler,
		shopHandler,
		filters.NewChatFilter(cfg.AllowedChatIDs),
	)

	// Потеря соединения — сохраняем леджер, не дожидаясь таймера
	transport.OnDisconnect(func() {
		log.WithField("platform", transport.Name()).Warn("Соединение потеряно, сохраняем леджер")
		if err := flusher.FlushNow(context.Background()); err != nil {
			log.WithError(err).Error("Не удалось сохранить леджер при отключении")
		}
	})

	// === 8. Планировщик задач ===
	sweeper := jobs.SweepFunc(func(now time.Time) int {
		return gate.Sweep(now) + gameService.SweepExpired(now)
	})
	scheduler := jobs.NewScheduler(jobs.SchedulerConfig{
		Location:         loc,
		StreakResetSpec:  cfg.StreakResetCron,
		StreakResetChunk: cfg.StreakResetChunk,
	}, store, sweeper, flusher.FlushNow)

	// === 9. HTTP ===
	server := httpapi.New(economyService, flusher, gate, cfg.HTTPPort, cfg.AppEnv == "production")

	return &App{
		Transport: transport,
		Bot:       b,
		Store:     store,
		Flusher:   flusher,
		Scheduler: scheduler,
		Backend:   backend,
		HTTP:      server,
	}, nil
}

// NewBackend выбирает хранилище снапшотов по STORAGE_BACKEND.
func NewBackend(ctx context.Context, cfg *config.Config) (db.SnapshotStore, error) {
	switch cfg.StorageBackend {
	case config.BackendFile:
		return snapshot.New(cfg.SnapshotDir)
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ошибка миграций: %w", err)
		}
		return postgres.NewSnapshotStore(pool), nil
	case config.BackendRedis:
		return redisstore.New(ctx, cfg)
	default:
		return nil, fmt.Errorf("неизвестное хранилище %q", cfg.StorageBackend)
	}
}

// LoadLedger создаёт леджер и восстанавливает его из последнего снапшота.
// Отсутствие снапшота — первый запуск, не ошибка.
func LoadLedger(ctx context.Context, backend db.SnapshotStore, startingBalance int64) (*economy.Store, error) {
	store := economy.NewStore(startingBalance, nil)

	snap, found, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки снапшота: %w", err)
	}
	if !found {
		log.Info("Снапшот не найден, начинаем с пустого леджера")
		return store, nil
	}

	store.Restore(snap)
	log.WithField("accounts", store.Count()).Info("Леджер восстановлен")
	return store, nil
}

// Run запускает планировщик и HTTP-сервер, затем блокируется на транспорте
// до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	if err := a.Scheduler.Start(ctx); err != nil {
		return err
	}
	a.HTTP.Start()

	log.WithField("platform", a.Transport.Name()).Info("=== Бот готов к работе ===")
	err := a.Transport.Run(ctx, a.Bot.HandleMessage)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("транспорт %s: %w", a.Transport.Name(), err)
	}
	return nil
}

// Shutdown останавливает компоненты после того, как транспорт вернулся из Run:
// планировщик, финальное сохранение, HTTP, хранилище.
func (a *App) Shutdown(ctx context.Context) error {
	a.Scheduler.Stop()

	var errs []error
	if err := a.Flusher.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("финальное сохранение: %w", err))
	}
	a.Bot.Close()

	if err := a.HTTP.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("остановка HTTP: %w", err))
	}
	if err := a.Backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("закрытие хранилища: %w", err))
	}
	return errors.Join(errs...)
}
