// Package cooldown ограничивает частоту действий: одна запись
// "следующее разрешённое время" на пару (пользователь, действие).
package cooldown

import (
	"sync"
	"time"
)

// Действия, которые проходят через гейт.
const (
	ActionWork     = "work"
	ActionCrime    = "crime"
	ActionGacha    = "gacha"
	ActionTransfer = "transfer"
)

// Decision — результат TryAcquire.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

type key struct {
	subject string
	action  string
}

type slot struct {
	next time.Time
	prev time.Time // значение до последнего Acquire, для Release
	had  bool
}

// Gate хранит кулдауны в памяти процесса. Безопасен для конкурентного использования.
type Gate struct {
	mu        sync.Mutex
	intervals map[string]time.Duration
	slots     map[key]slot
}

// NewGate создаёт гейт с интервалами по действиям.
// Действие без интервала (или с нулевым) никогда не ограничивается.
func NewGate(intervals map[string]time.Duration) *Gate {
	copied := make(map[string]time.Duration, len(intervals))
	for action, d := range intervals {
		copied[action] = d
	}
	return &Gate{
		intervals: copied,
		slots:     make(map[key]slot),
	}
}

// TryAcquire пропускает действие, если его время пришло, и сразу
// сдвигает следующее разрешённое время на интервал.
func (g *Gate) TryAcquire(subject, action string, now time.Time) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	interval := g.intervals[action]
	if interval <= 0 {
		return Decision{Allowed: true}
	}

	k := key{subject: subject, action: action}
	cur, ok := g.slots[k]
	if ok && now.Before(cur.next) {
		return Decision{Allowed: false, RetryAfter: cur.next.Sub(now)}
	}

	g.slots[k] = slot{next: now.Add(interval), prev: cur.next, had: ok}
	return Decision{Allowed: true}
}

// Release возвращает слот, если действие после TryAcquire отклонили
// по бизнес-причине (например, не хватило денег на гачу).
func (g *Gate) Release(subject, action string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	k := key{subject: subject, action: action}
	cur, ok := g.slots[k]
	if !ok {
		return
	}
	if !cur.had {
		delete(g.slots, k)
		return
	}
	g.slots[k] = slot{next: cur.prev}
}

// Sweep удаляет истёкшие записи, чтобы карта не росла бесконечно.
// Возвращает количество удалённых записей.
func (g *Gate) Sweep(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for k, s := range g.slots {
		if !now.Before(s.next) {
			delete(g.slots, k)
			removed++
		}
	}
	return removed
}

// Reset снимает все кулдауны пользователя (админский сброс экономики).
func (g *Gate) Reset(subject string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for k := range g.slots {
		if k.subject == subject {
			delete(g.slots, k)
		}
	}
}

// Len — количество активных записей.
func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.slots)
}
