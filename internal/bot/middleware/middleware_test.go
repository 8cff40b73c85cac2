package middleware

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"serotonyl.ru/discshop-bot/internal/bot/chat"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2, time.Minute, func() time.Time { return now })

	assert.True(t, rl.Allow("u1"))
	assert.True(t, rl.Allow("u1"))
	assert.False(t, rl.Allow("u1"))
	assert.True(t, rl.Allow("u2"), "limits are per user")

	now = now.Add(61 * time.Second)
	assert.True(t, rl.Allow("u1"))
}

func TestRateLimiterPrune(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter(5, time.Minute, func() time.Time { return now })

	rl.Allow("u1")
	rl.Allow("u2")
	now = now.Add(30 * time.Second)
	rl.Allow("u2")

	now = now.Add(45 * time.Second)
	rl.prune()
	assert.Equal(t, 1, rl.tracked())
}

func TestRateLimiterCloseIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, time.Second)
	assert.NotPanics(t, func() {
		rl.Close()
		rl.Close()
	})
}

func TestRecoverFromPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		defer RecoverFromPanic(chat.Message{ChatID: "c1", Text: ".slot"})
		panic("boom")
	})
}

func TestTruncateKeepsRunes(t *testing.T) {
	long := strings.Repeat("я", 60)
	got := truncate(long, maxLoggedText)
	assert.Equal(t, strings.Repeat("я", 50)+"...", got)
	assert.Equal(t, "short", truncate("short", maxLoggedText))

	assert.NotPanics(t, func() {
		LogMessage(chat.Message{Text: long, Author: chat.User{ID: "1"}})
	})
}
