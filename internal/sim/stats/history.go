package stats

import "gonum.org/v1/gonum/stat"

// HistoryCapacity is how many slow-tick samples each series keeps.
const HistoryCapacity = 240

// Ring is a fixed-size series of samples, oldest overwritten first.
type Ring struct {
	buf   [HistoryCapacity]float64
	next  int
	count int
}

func (r *Ring) Push(v float64) {
	r.buf[r.next] = v
	r.next = (r.next + 1) % HistoryCapacity
	if r.count < HistoryCapacity {
		r.count++
	}
}

func (r *Ring) Len() int { return r.count }

// Values returns the samples oldest first.
func (r *Ring) Values() []float64 {
	out := make([]float64, r.count)
	start := (r.next - r.count + HistoryCapacity) % HistoryCapacity
	for i := range out {
		out[i] = r.buf[(start+i)%HistoryCapacity]
	}
	return out
}

func (r *Ring) Last() (float64, bool) {
	if r.count == 0 {
		return 0, false
	}
	return r.buf[(r.next-1+HistoryCapacity)%HistoryCapacity], true
}

// Load replaces the contents with vs, keeping the newest HistoryCapacity.
func (r *Ring) Load(vs []float64) {
	*r = Ring{}
	if len(vs) > HistoryCapacity {
		vs = vs[len(vs)-HistoryCapacity:]
	}
	for _, v := range vs {
		r.Push(v)
	}
}

// Trend is the least-squares slope per sample over the last n samples.
func (r *Ring) Trend(n int) float64 {
	vs := r.Values()
	if n > 0 && n < len(vs) {
		vs = vs[len(vs)-n:]
	}
	if len(vs) < 2 {
		return 0
	}
	xs := make([]float64, len(vs))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, vs, nil, false)
	return slope
}

// History keeps the charted series, appended once per slow tick.
type History struct {
	Population Ring
	Treasury   Ring
	Happiness  Ring
}

func (h *History) Record(s *CityStats, treasury float64) {
	h.Population.Push(float64(s.Population))
	h.Treasury.Push(treasury)
	h.Happiness.Push(float64(s.AvgHappiness))
}

func (h *History) Reset() { *h = History{} }
