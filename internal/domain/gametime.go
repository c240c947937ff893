package domain

import "fmt"

// Календарные константы
const (
	TicksPerMinute = 1
	MinutesPerHour = 60
	HoursPerDay    = 24
	DaysPerWeek    = 7
	WeeksPerMonth  = 4
	MonthsPerYear  = 12
)

// GameTime - счетчик тиков + календарный рендер для логов и наблюдений.
// Счетчик монотонно растет ровно на 1 за проход планировщика.
type GameTime struct {
	TotalTicks int `json:"totalTicks"`
}

func (t *GameTime) TicksPerHour() int {
	return TicksPerMinute * MinutesPerHour
}

func (t *GameTime) TicksPerDay() int {
	return t.TicksPerHour() * HoursPerDay
}

// AdvanceTicks двигает время; возвращает true, если сменился день
func (t *GameTime) AdvanceTicks(n int) bool {
	oldDay := t.TotalTicks / t.TicksPerDay()
	t.TotalTicks += n
	return t.TotalTicks/t.TicksPerDay() > oldDay
}

func (t *GameTime) Year() int {
	den := t.TicksPerDay() * DaysPerWeek * WeeksPerMonth * MonthsPerYear
	return 1 + t.TotalTicks/den
}

func (t *GameTime) Month() int {
	denYear := t.TicksPerDay() * DaysPerWeek * WeeksPerMonth * MonthsPerYear
	denMonth := t.TicksPerDay() * DaysPerWeek * WeeksPerMonth
	return 1 + (t.TotalTicks%denYear)/denMonth
}

func (t *GameTime) Hour() int {
	return (t.TotalTicks % t.TicksPerDay()) / t.TicksPerHour()
}

func (t *GameTime) Minute() int {
	ticksInDay := t.TotalTicks % t.TicksPerDay()
	return (ticksInDay % t.TicksPerHour()) / TicksPerMinute
}

func (t *GameTime) String() string {
	return fmt.Sprintf("Year %d, Month %d, %02d:%02d", t.Year(), t.Month(), t.Hour(), t.Minute())
}
