// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Платформы, на которых умеет работать бот.
const (
	PlatformDiscord  = "discord"
	PlatformTelegram = "telegram"
)

// Бэкенды хранения снапшотов.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Bot ---
	BotPlatform      string `envconfig:"BOT_PLATFORM" default:"discord"`
	DiscordToken     string `envconfig:"DISCORD_TOKEN"`
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	BotPrefix        string `envconfig:"BOT_PREFIX" default:"."`

	// ID админов строками: у Discord это snowflake, у Telegram число.
	AdminIDsRaw string   `envconfig:"ADMIN_IDS"`
	AdminIDs    []string `envconfig:"-"` // заполним вручную

	// Чаты, где бот отвечает. Пусто — везде.
	AllowedChatIDsRaw string   `envconfig:"ALLOWED_CHAT_IDS"`
	AllowedChatIDs    []string `envconfig:"-"`

	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый апдейт" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды), только для Telegram
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"info"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Asia/Jakarta"`
	HTTPPort    int    `envconfig:"HTTP_PORT" default:"10000"`

	// --- Storage ---
	StorageBackend string        `envconfig:"STORAGE_BACKEND" default:"file"`
	SnapshotDir    string        `envconfig:"SNAPSHOT_DIR" default:"data"`
	SaveDebounce   time.Duration `envconfig:"SAVE_DEBOUNCE" default:"10s"`

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"discshop"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"2"`

	// --- Redis ---
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// --- Economy ---
	EconomyStartingBalance int64 `envconfig:"ECONOMY_STARTING_BALANCE" default:"1000"`

	// --- Cooldowns ---
	CooldownWork     time.Duration `envconfig:"COOLDOWN_WORK" default:"1h"`
	CooldownCrime    time.Duration `envconfig:"COOLDOWN_CRIME" default:"2h"`
	CooldownCollect  time.Duration `envconfig:"COOLDOWN_COLLECT" default:"1h"`
	CooldownGacha    time.Duration `envconfig:"COOLDOWN_GACHA" default:"5s"`
	CooldownTransfer time.Duration `envconfig:"COOLDOWN_TRANSFER" default:"10s"`

	// --- Streak ---
	StreakResetCron  string `envconfig:"STREAK_RESET_CRON" default:"0 0 * * *"`
	StreakResetChunk int    `envconfig:"STREAK_RESET_CHUNK" default:"200"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Feature Flags ---
	FeatureGamesEnabled bool `envconfig:"FEATURE_GAMES_ENABLED" default:"true"`
	FeatureGachaEnabled bool `envconfig:"FEATURE_GACHA_ENABLED" default:"true"`

	// --- Shop ---
	ShopName       string `envconfig:"SHOP_NAME" default:"DiscShop"`
	ShopPaymentURL string `envconfig:"SHOP_PAYMENT_URL" default:"https://saweria.co/discshop"`
	ShopQRISURL    string `envconfig:"SHOP_QRIS_URL"`
	ShopAdminTag   string `envconfig:"SHOP_ADMIN_TAG" default:"@admin"`
	// Банковские реквизиты, как их увидит покупатель
	ShopBankInfo     string `envconfig:"SHOP_BANK_INFO"`
	ShopTestimonyURL string `envconfig:"SHOP_TESTIMONY_URL"`
	// Формат: "Название|ссылка;Название|ссылка"
	ShopPricelist string `envconfig:"SHOP_PRICELIST"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// IsAdmin проверяет, есть ли userID в списке ADMIN_IDS.
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (c *Config) Validate() error {
	switch c.BotPlatform {
	case PlatformDiscord:
		if c.DiscordToken == "" {
			return fmt.Errorf("DISCORD_TOKEN не задан")
		}
	case PlatformTelegram:
		if c.TelegramBotToken == "" {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN не задан")
		}
	default:
		return fmt.Errorf("неизвестная платформа BOT_PLATFORM=%q", c.BotPlatform)
	}
	if c.BotPrefix == "" {
		return fmt.Errorf("BOT_PREFIX не может быть пустым")
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}

	switch c.StorageBackend {
	case BackendFile:
		if c.SnapshotDir == "" {
			return fmt.Errorf("SNAPSHOT_DIR не может быть пустым для file-бэкенда")
		}
	case BackendPostgres:
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR не задан")
		}
	default:
		return fmt.Errorf("неизвестный STORAGE_BACKEND=%q", c.StorageBackend)
	}

	if c.SaveDebounce <= 0 {
		return fmt.Errorf("SAVE_DEBOUNCE должен быть > 0")
	}
	if c.EconomyStartingBalance < 0 {
		return fmt.Errorf("ECONOMY_STARTING_BALANCE не может быть отрицательным")
	}
	if c.StreakResetChunk <= 0 {
		return fmt.Errorf("STREAK_RESET_CHUNK должен быть > 0")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("некорректные RATE_LIMIT_REQUESTS/RATE_LIMIT_WINDOW")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	cfg.AdminIDs = parseCSV(cfg.AdminIDsRaw)
	cfg.AllowedChatIDs = parseCSV(cfg.AllowedChatIDsRaw)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseCSV(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
