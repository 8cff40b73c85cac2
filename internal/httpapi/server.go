// Package httpapi поднимает HTTP-сервер на gin: keep-alive для хостинга,
// health-check и публичный лидерборд.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/discshop-bot/internal/features/economy"
)

const (
	defaultLeaderboard = 10
	maxLeaderboard     = 100
)

// Ledger — то, что HTTP-слою нужно от экономики.
type Ledger interface {
	AccountCount() int
	Leaderboard(limit int) []economy.Account
}

// Persistence — состояние отложенного сохранения леджера.
type Persistence interface {
	Pending() bool
	Stats() (saves, failures int)
}

// Counter — размер структуры в памяти (например, активные кулдауны).
type Counter interface {
	Len() int
}

// Server — HTTP-сервер бота.
type Server struct {
	ledger      Ledger
	persistence Persistence
	cooldowns   Counter
	srv         *http.Server
}

// LeaderboardEntry — строка ответа /api/leaderboard.
type LeaderboardEntry struct {
	Rank    int    `json:"rank"`
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
	Bank    int64  `json:"bank"`
	Level   int64  `json:"level"`
}

// New создаёт сервер на порту port. production включает gin.ReleaseMode.
func New(ledger Ledger, persistence Persistence, cooldowns Counter, port int, production bool) *Server {
	if production {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{ledger: ledger, persistence: persistence, cooldowns: cooldowns}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router собирает маршруты. Вынесен отдельно для тестов.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/", s.home)
	router.GET("/healthz", s.health)

	api := router.Group("/api")
	{
		api.GET("/leaderboard", s.leaderboard)
	}
	return router
}

func (s *Server) home(c *gin.Context) {
	c.String(http.StatusOK, "Bot Online 24 Jam")
}

func (s *Server) health(c *gin.Context) {
	saves, failures := s.persistence.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"accounts":      s.ledger.AccountCount(),
		"cooldowns":     s.cooldowns.Len(),
		"save_pending":  s.persistence.Pending(),
		"saves":         saves,
		"save_failures": failures,
	})
}

func (s *Server) leaderboard(c *gin.Context) {
	limit := defaultLeaderboard
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxLeaderboard)
	}

	top := s.ledger.Leaderboard(limit)
	out := make([]LeaderboardEntry, 0, len(top))
	for i, acc := range top {
		name := acc.DisplayName
		if name == "" {
			name = acc.UserID
		}
		out = append(out, LeaderboardEntry{
			Rank:    i + 1,
			UserID:  acc.UserID,
			Name:    name,
			Balance: acc.Balance,
			Bank:    acc.Bank,
			Level:   acc.Level,
		})
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": out})
}

// Start слушает порт в фоне. Ошибка запуска логируется.
func (s *Server) Start() {
	go func() {
		log.WithField("addr", s.srv.Addr).Info("HTTP сервер запущен")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("HTTP сервер упал")
		}
	}()
}

// Shutdown останавливает сервер, дожидаясь активных запросов.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
