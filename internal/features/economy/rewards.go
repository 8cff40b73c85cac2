// Package economy — rewards.go содержит логику наград: XP и уровни,
// ежедневная награда со стриком, работа и преступления.
package economy

import (
	"strconv"
	"time"

	"serotonyl.ru/discshop-bot/internal/common"
)

// XP за действия.
const (
	XPPerLevel = 100

	XPDaily        = 50
	XPWork         = 10
	XPCrimeSuccess = 15
	XPCollect      = 5
	XPGacha        = 5
	XPGameWin      = 5
)

// Ежедневная награда.
const (
	dailyBase       = 100
	dailyPerDay     = 10
	dailyStreakCap  = 200
	dailyWeekBonus  = 500
	dailyWeekLength = 7
)

// Сбор дохода: 50 + 10 за каждый уровень.
const (
	collectBase     = 50
	collectPerLevel = 10
)

// Job — строка таблицы работ.
type Job struct {
	Name     string
	Min, Max int64
}

// Crime — строка таблицы преступлений.
type Crime struct {
	Name             string
	SuccessPct       int // 0..100
	PayMin, PayMax   int64
	FineMin, FineMax int64
}

// Jobs — таблица работ, выбор равновероятный.
var Jobs = []Job{
	{Name: "Programmer", Min: 150, Max: 300},
	{Name: "Desainer", Min: 120, Max: 250},
	{Name: "Kurir", Min: 80, Max: 180},
	{Name: "Kasir", Min: 70, Max: 150},
	{Name: "Streamer", Min: 50, Max: 400},
	{Name: "Admin Toko", Min: 100, Max: 200},
}

// Crimes — таблица преступлений, выбор равновероятный.
var Crimes = []Crime{
	{Name: "Copet", SuccessPct: 60, PayMin: 100, PayMax: 250, FineMin: 50, FineMax: 150},
	{Name: "Hack ATM", SuccessPct: 35, PayMin: 300, PayMax: 700, FineMin: 150, FineMax: 400},
	{Name: "Rampok Toko", SuccessPct: 45, PayMin: 200, PayMax: 450, FineMin: 100, FineMax: 300},
	{Name: "Scam Online", SuccessPct: 50, PayMin: 150, PayMax: 350, FineMin: 80, FineMax: 200},
}

// addXP начисляет опыт и повышает уровень, пока XP хватает на следующий.
// Каждый уровень стоит XPPerLevel опыта; за переход с уровня L
// начисляется бонус L*100. Возвращает количество повышений.
func addXP(acc *Account, amount int64, now time.Time) int {
	if amount <= 0 {
		return 0
	}
	acc.XP += amount

	levelUps := 0
	for acc.XP >= XPPerLevel {
		acc.XP -= XPPerLevel
		bonus := acc.Level * 100
		acc.Level++
		levelUps++
		applyCredit(acc, bonus, "level up → "+strconv.FormatInt(acc.Level, 10), now)
	}
	return levelUps
}

// ComputeDailyReward решает, можно ли забрать ежедневную награду, и считает её.
//
//   - первый раз всегда можно, стрик = 1
//   - прошло меньше суток: нельзя, RetryAfter = сколько осталось
//   - от 1 до 2 суток включительно: стрик продолжается
//   - больше 2 суток: стрик начинается заново
//
// Награда: 100 + min(стрик*10, 200), каждый 7-й день ещё +500.
func ComputeDailyReward(acc Account, now time.Time) DailyReward {
	newStreak := 1
	if acc.LastDaily != nil {
		gap := now.Sub(*acc.LastDaily)
		if gap < 24*time.Hour {
			return DailyReward{RetryAfter: 24*time.Hour - gap}
		}
		if gap <= 48*time.Hour {
			newStreak = acc.DailyStreak + 1
		}
	}

	amount := int64(dailyBase) + min(int64(newStreak)*dailyPerDay, dailyStreakCap)
	weekBonus := newStreak%dailyWeekLength == 0
	if weekBonus {
		amount += dailyWeekBonus
	}

	return DailyReward{
		Allowed:   true,
		Amount:    amount,
		NewStreak: newStreak,
		WeekBonus: weekBonus,
	}
}

// CollectAmount — сколько даёт .collect на данном уровне.
func CollectAmount(level int64) int64 {
	return collectBase + collectPerLevel*level
}

// RollWork выбирает работу и заработок.
func RollWork(rng common.RandSource) WorkOutcome {
	job := Jobs[rng.Intn(len(Jobs))]
	return WorkOutcome{
		Job:    job.Name,
		Amount: common.RandRange(rng, job.Min, job.Max),
	}
}

// RollCrime выбирает преступление и исход. Штраф при провале
// не больше текущего баланса, так что баланс не уходит в минус.
func RollCrime(rng common.RandSource, balance int64) CrimeOutcome {
	crime := Crimes[rng.Intn(len(Crimes))]

	if rng.Intn(100) < crime.SuccessPct {
		return CrimeOutcome{
			Crime:   crime.Name,
			Success: true,
			Amount:  common.RandRange(rng, crime.PayMin, crime.PayMax),
		}
	}

	fine := common.RandRange(rng, crime.FineMin, crime.FineMax)
	return CrimeOutcome{
		Crime:  crime.Name,
		Amount: max(min(fine, balance), 0),
	}
}
