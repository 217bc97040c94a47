package world

import "fmt"

const (
	MinutesPerDay = 24 * 60
	StartDay      = 1
	StartMinute   = 8 * 60
	// MonthDays is the spacing of monthly collections.
	MonthDays = 30
)

// GameClock is simulated calendar time. Minute counts minutes into Day so
// the clock never drifts.
type GameClock struct {
	Day    uint32
	Minute uint32
	// Speed is the number of fast ticks per frame: 1, 2 or 4.
	Speed  uint8
	Paused bool
}

func DefaultClock() GameClock {
	return GameClock{Day: StartDay, Minute: StartMinute, Speed: 1}
}

func (c GameClock) Hour() float32 { return float32(c.Minute) / 60 }

func (c GameClock) HourOfDay() int { return int(c.Minute / 60) }

func (c GameClock) MinuteOfHour() int { return int(c.Minute % 60) }

func (c GameClock) IsNight() bool {
	h := c.HourOfDay()
	return h < 6 || h >= 22
}

func (c GameClock) String() string {
	return fmt.Sprintf("day %d %02d:%02d", c.Day, c.HourOfDay(), c.MinuteOfHour())
}

// Advance moves the clock forward and reports whether a day boundary passed.
func (c *GameClock) Advance(minutes int) bool {
	c.Minute += uint32(minutes)
	rolled := false
	for c.Minute >= MinutesPerDay {
		c.Minute -= MinutesPerDay
		c.Day++
		rolled = true
	}
	return rolled
}

func ValidSpeed(s uint8) bool { return s == 1 || s == 2 || s == 4 }

// SlowTickTimer gates systems that run every Interval fast ticks.
type SlowTickTimer struct {
	Interval uint64
}

func (t SlowTickTimer) ShouldRun(tick uint64) bool {
	return t.Interval == 0 || tick%t.Interval == 0
}

type AppState uint8

const (
	AppMainMenu AppState = iota
	AppPlaying
	AppPaused
)

func (s AppState) String() string {
	switch s {
	case AppMainMenu:
		return "MainMenu"
	case AppPlaying:
		return "Playing"
	case AppPaused:
		return "Paused"
	}
	return fmt.Sprintf("AppState(%d)", uint8(s))
}

type SaveLoadState uint8

const (
	SaveIdle SaveLoadState = iota
	SaveSaving
	SaveLoading
	SaveNewGame
)

func (s SaveLoadState) String() string {
	switch s {
	case SaveIdle:
		return "Idle"
	case SaveSaving:
		return "Saving"
	case SaveLoading:
		return "Loading"
	case SaveNewGame:
		return "NewGame"
	}
	return fmt.Sprintf("SaveLoadState(%d)", uint8(s))
}

// syncPause mirrors the clock's pause flag into the app state.
func (w *World) syncPause() {
	if w.app == AppMainMenu {
		return
	}
	if w.clock.Paused {
		w.app = AppPaused
	} else {
		w.app = AppPlaying
	}
}

func (w *World) simulating() bool {
	return w.app == AppPlaying && w.saveLoad == SaveIdle
}

// SetClock jumps the calendar. Tools and tests use it to reach monthly and
// seasonal boundaries without simulating every minute.
func (w *World) SetClock(day uint32, hour float32) {
	w.clock.Day = day
	w.clock.Minute = uint32(hour*60) % MinutesPerDay
}
