// Package weather drives seasons, temperature, precipitation and wind from the
// game clock. Everything here is a pure function of (day, hour) plus the
// smoothed state carried between updates, so replays see identical weather.
package weather

import "math"

const (
	DaysPerSeason = 90
	DaysPerYear   = 4 * DaysPerSeason

	// Smoothing is the fraction of the gap to the target temperature closed per update.
	Smoothing = 0.3

	// ConstructionFreezeC halts construction at or below this temperature.
	ConstructionFreezeC = -9
)

type Season uint8

const (
	Spring Season = iota
	Summer
	Autumn
	Winter
)

func (s Season) String() string {
	switch s {
	case Spring:
		return "Spring"
	case Summer:
		return "Summer"
	case Autumn:
		return "Autumn"
	case Winter:
		return "Winter"
	default:
		return "Unknown"
	}
}

// SeasonForDay maps a 1-based game day onto the 360-day year.
func SeasonForDay(day uint32) Season {
	if day == 0 {
		day = 1
	}
	return Season(((day - 1) % DaysPerYear) / DaysPerSeason)
}

// BaseTemperature is the seasonal mean in °C.
func (s Season) BaseTemperature() float32 {
	switch s {
	case Summer:
		return 27
	case Autumn:
		return 12
	case Winter:
		return -2
	default:
		return 14
	}
}

// Amplitude is half the diurnal swing.
func (s Season) Amplitude() float32 {
	switch s {
	case Summer:
		return 7
	case Winter:
		return 4
	default:
		return 5
	}
}

// ConstructionSpeed scales building progress by season.
func (s Season) ConstructionSpeed() float32 {
	switch s {
	case Autumn:
		return 0.9
	case Winter:
		return 0.6
	default:
		return 1
	}
}

// precipThreshold is the day-hash cut below which the day is wet.
func (s Season) precipThreshold() uint64 {
	switch s {
	case Spring:
		return 42
	case Summer:
		return 30
	case Autumn:
		return 45
	default:
		return 36
	}
}

type Condition uint8

const (
	Sunny Condition = iota
	PartlyCloudy
	Overcast
	Rain
	HeavyRain
	Snow
	Storm
)

func (c Condition) String() string {
	switch c {
	case Sunny:
		return "Sunny"
	case PartlyCloudy:
		return "PartlyCloudy"
	case Overcast:
		return "Overcast"
	case Rain:
		return "Rain"
	case HeavyRain:
		return "HeavyRain"
	case Snow:
		return "Snow"
	case Storm:
		return "Storm"
	default:
		return "Unknown"
	}
}

// Speed is the construction multiplier for the condition.
func (c Condition) Speed() float32 {
	switch c {
	case Storm:
		return 0
	case HeavyRain, Snow:
		return 0.5
	default:
		return 1
	}
}

func (c Condition) Precipitation() float32 {
	switch c {
	case Rain:
		return 0.4
	case HeavyRain:
		return 0.75
	case Snow:
		return 0.5
	case Storm:
		return 1
	default:
		return 0
	}
}

// CloudCover feeds solar output.
func (c Condition) CloudCover() float32 {
	switch c {
	case Sunny:
		return 0
	case PartlyCloudy:
		return 0.3
	case Overcast:
		return 0.7
	case Rain, Snow:
		return 0.8
	default:
		return 0.95
	}
}

func (c Condition) tempOffset() float32 {
	switch c {
	case Sunny:
		return 1.5
	case Overcast, Rain:
		return -1
	case HeavyRain, Snow:
		return -2
	case Storm:
		return -3
	default:
		return 0
	}
}

// DayHash is the per-day selector for the weather condition.
func DayHash(day uint32) uint64 {
	return uint64(day) * 2654435761 % 100
}

// Weather is the live weather resource.
type Weather struct {
	Condition     Condition
	Temperature   float32
	Precipitation float32
	// WindDir is the direction the wind blows toward, in radians.
	WindDir   float32
	WindSpeed float32
	Extreme   bool
	// LastDay is the day the condition was last rolled; 0 means never.
	LastDay uint32
}

func Default() Weather {
	return Weather{Condition: Sunny, Temperature: Spring.BaseTemperature(), WindSpeed: 3}
}

// Diurnal maps the hour onto [-1,1] with the minimum at 06:00 and the maximum at 15:00.
func Diurnal(hour float32) float32 {
	h := float64(hour)
	switch {
	case h >= 6 && h <= 15:
		return float32(-math.Cos(math.Pi * (h - 6) / 9))
	case h > 15:
		return float32(math.Cos(math.Pi * (h - 15) / 15))
	default:
		return float32(math.Cos(math.Pi * (h + 24 - 15) / 15))
	}
}

// TargetTemperature is where the smoothed temperature is heading.
func TargetTemperature(day uint32, hour float32, c Condition, climateOffset float32) float32 {
	s := SeasonForDay(day)
	return s.BaseTemperature() + s.Amplitude()*Diurnal(hour) + c.tempOffset() + climateOffset
}

// Update advances the weather to (day, hour). The condition is rerolled once
// per day; it reports whether the condition changed.
func (w *Weather) Update(day uint32, hour float32, climateOffset float32) bool {
	changed := false
	if day != w.LastDay {
		prev := w.Condition
		w.roll(day)
		w.LastDay = day
		changed = prev != w.Condition
	}
	target := TargetTemperature(day, hour, w.Condition, climateOffset)
	w.Temperature += Smoothing * (target - w.Temperature)
	w.Precipitation = w.Condition.Precipitation()
	if w.Condition == Rain || w.Condition == HeavyRain {
		if w.Temperature < 0 {
			w.Condition = Snow
			w.Precipitation = Snow.Precipitation()
			changed = true
		}
	}
	return changed
}

func (w *Weather) roll(day uint32) {
	h := DayHash(day)
	s := SeasonForDay(day)
	thr := s.precipThreshold()
	w.Extreme = h < 4
	switch {
	case h < thr/3:
		w.Condition = Storm
	case h < thr*2/3:
		w.Condition = HeavyRain
	case h < thr:
		w.Condition = Rain
	case h < thr+20:
		w.Condition = Overcast
	case h < thr+40:
		w.Condition = PartlyCloudy
	default:
		w.Condition = Sunny
	}
	if s == Winter && (w.Condition == Rain || w.Condition == HeavyRain) {
		w.Condition = Snow
	}
	w.WindDir = float32(h%8) * math.Pi / 4
	w.WindSpeed = 2 + float32(h%7)
	if w.Condition == Storm {
		w.WindSpeed += 10
	}
	if w.Extreme {
		w.WindSpeed += 8
	}
}

// ConstructionSpeed is season speed times weather speed; freezing halts work.
func (w *Weather) ConstructionSpeed(day uint32) float32 {
	if w.Temperature <= ConstructionFreezeC {
		return 0
	}
	return SeasonForDay(day).ConstructionSpeed() * w.Condition.Speed()
}

// IsStorm reports a storm strong enough to knock out generators.
func (w *Weather) IsStorm() bool { return w.Condition == Storm }
