package common

import (
	"math/rand"
	"sync"
	"time"
)

// RandSource — источник случайности для наград и гачи.
// В тестах подменяется детерминированной реализацией.
type RandSource interface {
	Float64() float64 // [0, 1)
	Intn(n int) int   // [0, n)
}

// lockedRand делает *rand.Rand безопасным для нескольких горутин.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandSource создаёт потокобезопасный генератор.
// seed == 0 — сид от текущего времени.
func NewRandSource(seed int64) RandSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// RandRange возвращает случайное число в [lo, hi] включительно.
func RandRange(rng RandSource, lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + int64(rng.Intn(int(hi-lo+1)))
}
