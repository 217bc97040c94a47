package world

import (
	"cityforge.dev/internal/sim/stats"
	"cityforge.dev/internal/sim/weather"
)

// Event is something a presentation layer may react to. The buffer holds the
// events of the most recent tick only.
type Event interface {
	EventName() string
}

type NotificationEvent struct {
	ID       uint64
	Text     string
	Priority stats.Priority
	Location *stats.Location
}

type AchievementNotification struct {
	Achievement stats.Achievement
	Bonus       float64
}

type WeatherChangeEvent struct {
	From, To weather.Condition
}

type ColdSnapEvent struct {
	Started bool
	Day     uint32
}

type HeatWaveEvent struct {
	Started bool
	Day     uint32
}

// CsoEvent reports a combined sewer overflow volume.
type CsoEvent struct {
	Volume float64
}

type LandfillWarningEvent struct {
	Tier     uint8
	Fraction float64
}

type WindDamageEvent struct {
	X, Y int
}

type PlaySfxEvent struct {
	Sfx         string
	VolumeScale float32
}

func (NotificationEvent) EventName() string       { return "notification" }
func (AchievementNotification) EventName() string { return "achievement" }
func (WeatherChangeEvent) EventName() string      { return "weather_change" }
func (ColdSnapEvent) EventName() string           { return "cold_snap" }
func (HeatWaveEvent) EventName() string           { return "heat_wave" }
func (CsoEvent) EventName() string                { return "cso" }
func (LandfillWarningEvent) EventName() string    { return "landfill_warning" }
func (WindDamageEvent) EventName() string         { return "wind_damage" }
func (PlaySfxEvent) EventName() string            { return "play_sfx" }

type Events struct {
	items []Event
}

func (e *Events) emit(ev Event) { e.items = append(e.items, ev) }

func (e *Events) reset() { e.items = e.items[:0] }

func (e *Events) Len() int { return len(e.items) }

// Events returns the events raised during the last tick.
func (w *World) Events() []Event {
	return append([]Event(nil), w.events.items...)
}

// notify pushes a notification and raises the matching event.
func (w *World) notify(text string, p stats.Priority, loc *stats.Location) {
	n := w.notes.Push(text, p, loc, w.clock.Day, w.clock.Hour(), w.now)
	w.events.emit(NotificationEvent{ID: n.ID, Text: n.Text, Priority: n.Priority, Location: n.Location})
}

func (w *World) sfx(name string) {
	w.events.emit(PlaySfxEvent{Sfx: name, VolumeScale: 1})
}
