// Package jobs управляет фоновыми задачами (cron) и отложенным сохранением.
// scheduler.go настраивает расписание: сброс сломанных стриков,
// очистка кулдаунов и страховочное сохранение леджера.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// StreakResetter обнуляет стрики, которые уже не продолжить.
type StreakResetter interface {
	ResetBrokenStreaks(now time.Time, chunk int) int
}

// Sweeper удаляет истёкшие записи (кулдауны, брошенные игры).
type Sweeper interface {
	Sweep(now time.Time) int
}

// SweepFunc позволяет передать обычную функцию как Sweeper.
type SweepFunc func(now time.Time) int

// Sweep вызывает f(now).
func (f SweepFunc) Sweep(now time.Time) int {
	return f(now)
}

// FlushFunc немедленно сохраняет леджер.
type FlushFunc func(ctx context.Context) error

// SchedulerConfig — расписание и размеры пачек.
type SchedulerConfig struct {
	Location         *time.Location
	StreakResetSpec  string // cron-выражение, по умолчанию "0 0 * * *"
	StreakResetChunk int
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron    *cron.Cron
	cfg     SchedulerConfig
	streaks StreakResetter
	sweeper Sweeper
	flush   FlushFunc
	now     func() time.Time
}

// NewScheduler создаёт планировщик задач в часовом поясе из конфига.
func NewScheduler(cfg SchedulerConfig, streaks StreakResetter, sweeper Sweeper, flush FlushFunc) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.StreakResetSpec == "" {
		cfg.StreakResetSpec = "0 0 * * *"
	}

	return &Scheduler{
		cron:    cron.New(cron.WithLocation(cfg.Location)),
		cfg:     cfg,
		streaks: streaks,
		sweeper: sweeper,
		flush:   flush,
		now:     time.Now,
	}
}

// Start регистрирует и запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.StreakResetSpec, func() { s.resetStreaks() }); err != nil {
		return fmt.Errorf("расписание сброса стриков %q: %w", s.cfg.StreakResetSpec, err)
	}

	// Очистка кулдаунов каждый час
	if _, err := s.cron.AddFunc("0 * * * *", func() { s.sweepCooldowns() }); err != nil {
		return fmt.Errorf("расписание очистки кулдаунов: %w", err)
	}

	// Страховочное сохранение каждые 5 минут
	if _, err := s.cron.AddFunc("@every 5m", func() { s.safetyFlush(ctx) }); err != nil {
		return fmt.Errorf("расписание сохранения: %w", err)
	}

	s.cron.Start()
	log.WithField("timezone", s.cfg.Location.String()).Info("Планировщик задач запущен")
	return nil
}

func (s *Scheduler) resetStreaks() {
	log.Info("[CRON] Сброс сломанных стриков")
	n := s.streaks.ResetBrokenStreaks(s.now(), s.cfg.StreakResetChunk)
	log.WithField("reset", n).Info("[CRON] Стрики сброшены")
}

func (s *Scheduler) sweepCooldowns() {
	n := s.sweeper.Sweep(s.now())
	log.WithField("removed", n).Debug("[CRON] Просроченные записи очищены")
}

func (s *Scheduler) safetyFlush(ctx context.Context) {
	if err := s.flush(ctx); err != nil {
		log.WithError(err).Error("[CRON] Ошибка страховочного сохранения")
	}
}

// Stop останавливает планировщик и ждёт завершения запущенных задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
