// Package jobs — flusher.go откладывает сохранение леджера: изменения
// в пределах окна склеиваются в одно сохранение.
package jobs

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// SaveFunc сохраняет текущее состояние целиком.
type SaveFunc func(ctx context.Context) error

// Timer — то, что нужно флашеру от time.Timer.
type Timer interface {
	Stop() bool
}

// AfterFunc планирует f через d. В тестах подменяется ручными часами.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// DefaultSaveTimeout ограничивает фоновое сохранение по таймеру.
const DefaultSaveTimeout = 30 * time.Second

// Flusher — отложенное сохранение с одним таймером.
// MarkDirty взводит таймер, если он ещё не взведён; по срабатыванию
// состояние сохраняется один раз. Ошибка сохранения логируется,
// флаг dirty возвращается и таймер взводится заново.
type Flusher struct {
	save        SaveFunc
	delay       time.Duration
	saveTimeout time.Duration
	afterFunc   AfterFunc

	mu      sync.Mutex
	dirty   bool
	timer   Timer
	gen     uint64 // номер текущего таймера; устаревшие срабатывания игнорируются
	stopped bool

	// cancelBackground прерывает идущее фоновое сохранение (для Stop)
	cancelBackground context.CancelFunc

	// saveSem не даёт двум сохранениям идти одновременно;
	// ожидание слота уважает ctx вызывающего
	saveSem chan struct{}

	saves    int
	failures int
}

// NewFlusher создаёт флашер с окном delay.
func NewFlusher(save SaveFunc, delay time.Duration) *Flusher {
	return newFlusher(save, delay, realAfterFunc)
}

func newFlusher(save SaveFunc, delay time.Duration, afterFunc AfterFunc) *Flusher {
	return &Flusher{
		save:        save,
		delay:       delay,
		saveTimeout: DefaultSaveTimeout,
		afterFunc:   afterFunc,
		saveSem:     make(chan struct{}, 1),
	}
}

// MarkDirty отмечает несохранённые изменения.
func (f *Flusher) MarkDirty() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.dirty = true
	f.armLocked()
}

func (f *Flusher) armLocked() {
	if f.stopped || f.timer != nil {
		return
	}
	f.gen++
	gen := f.gen
	f.timer = f.afterFunc(f.delay, func() { f.fire(gen) })
}

// disarmLocked останавливает таймер; его запоздавший колбэк станет устаревшим.
func (f *Flusher) disarmLocked() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.gen++
}

func (f *Flusher) fire(gen uint64) {
	f.mu.Lock()
	if gen != f.gen {
		// таймер уже отменён или заменён, сохранением занялся другой вызов
		f.mu.Unlock()
		return
	}
	f.timer = nil
	ctx, cancel := context.WithTimeout(context.Background(), f.saveTimeout)
	f.cancelBackground = cancel
	f.mu.Unlock()

	err := f.flush(ctx)

	f.mu.Lock()
	f.cancelBackground = nil
	f.mu.Unlock()
	cancel()

	if err != nil {
		f.mu.Lock()
		stopped := f.stopped
		f.armLocked()
		f.mu.Unlock()

		if !stopped {
			log.WithError(err).WithField("component", "flusher").Error("Не удалось сохранить леджер, повторим позже")
		}
	}
}

// flush сохраняет состояние, если есть изменения.
func (f *Flusher) flush(ctx context.Context) error {
	select {
	case f.saveSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-f.saveSem }()

	f.mu.Lock()
	if !f.dirty {
		f.mu.Unlock()
		return nil
	}
	// изменения во время save снова выставят dirty и взведут таймер
	f.dirty = false
	f.mu.Unlock()

	start := time.Now()
	err := f.save(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.dirty = true
		f.failures++
		return err
	}
	f.saves++

	log.WithFields(log.Fields{
		"component": "flusher",
		"took":      time.Since(start).String(),
	}).Debug("Леджер сохранён")
	return nil
}

// FlushNow сохраняет немедленно, отменяя ожидающий таймер.
// Вызывается при остановке процесса и при потере соединения с платформой.
func (f *Flusher) FlushNow(ctx context.Context) error {
	f.mu.Lock()
	f.disarmLocked()
	f.mu.Unlock()

	err := f.flush(ctx)
	if err != nil {
		f.mu.Lock()
		f.armLocked()
		f.mu.Unlock()
	}
	return err
}

// Stop отключает таймер, прерывает фоновое сохранение и делает финальное.
// После Stop изменения только отмечаются, таймер больше не взводится.
func (f *Flusher) Stop(ctx context.Context) error {
	f.mu.Lock()
	f.stopped = true
	f.disarmLocked()
	if f.cancelBackground != nil {
		f.cancelBackground()
	}
	f.mu.Unlock()

	return f.flush(ctx)
}

// Pending — есть ли несохранённые изменения.
func (f *Flusher) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirty
}

// Stats — количество успешных и неудачных сохранений.
func (f *Flusher) Stats() (saves, failures int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves, f.failures
}
