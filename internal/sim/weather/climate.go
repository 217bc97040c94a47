package weather

const (
	// co2PerDegree is the cumulative tonnage that warms the baseline by 1 °C.
	co2PerDegree   = 500_000
	maxClimateRise = 4

	ColdSnapAbsoluteC  = -12
	ColdSnapDeviationC = 11
	ColdSnapDays       = 3

	HeatWaveC    = 35
	HeatWaveDays = 3
)

// Climate tracks long-run warming from generator emissions.
type Climate struct {
	CumulativeCO2 float64
	Offset        float32
}

// AddEmissions records dispatched CO2 tonnage and recomputes the offset.
func (c *Climate) AddEmissions(tons float64) {
	if tons <= 0 {
		return
	}
	c.CumulativeCO2 += tons
	off := float32(c.CumulativeCO2 / co2PerDegree)
	if off > maxClimateRise {
		off = maxClimateRise
	}
	c.Offset = off
}

// ColdSnap counts consecutive cold days. Observe is called once per day with
// that day's temperature.
type ColdSnap struct {
	ConsecutiveDays uint32
	Active          bool
	LastDay         uint32
}

// IsColdDay is the per-day cold-snap criterion.
func IsColdDay(tempC float32, s Season) bool {
	return tempC <= ColdSnapAbsoluteC || tempC <= s.BaseTemperature()-ColdSnapDeviationC
}

// Observe returns started or ended when the snap toggles.
func (c *ColdSnap) Observe(day uint32, tempC float32) (started, ended bool) {
	if day == c.LastDay {
		return false, false
	}
	c.LastDay = day
	if IsColdDay(tempC, SeasonForDay(day)) {
		c.ConsecutiveDays++
	} else {
		c.ConsecutiveDays = 0
	}
	was := c.Active
	c.Active = c.ConsecutiveDays >= ColdSnapDays
	return c.Active && !was, was && !c.Active
}

// PipeBurstProbability is the per-water-cell daily burst chance at tempC.
// It is a standalone helper so the curve can be retuned in isolation.
func PipeBurstProbability(tempC float32) float64 {
	switch {
	case tempC <= -23:
		return 0.10
	case tempC <= -18:
		return 0.05
	case tempC <= -7:
		return 0.01
	case tempC <= 0:
		return 0.001
	default:
		return 0.0001
	}
}

// HeatWave mirrors ColdSnap for hot days.
type HeatWave struct {
	ConsecutiveDays uint32
	Active          bool
	LastDay         uint32
}

func (h *HeatWave) Observe(day uint32, tempC float32) (started, ended bool) {
	if day == h.LastDay {
		return false, false
	}
	h.LastDay = day
	if tempC > HeatWaveC {
		h.ConsecutiveDays++
	} else {
		h.ConsecutiveDays = 0
	}
	was := h.Active
	h.Active = h.ConsecutiveDays >= HeatWaveDays
	return h.Active && !was, was && !h.Active
}
