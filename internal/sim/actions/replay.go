package actions

import "sort"

// Entry is an action stamped with the tick it executed on.
type Entry struct {
	Tick   uint64     `json:"tick"`
	Action GameAction `json:"action"`
}

// Recorder captures every action the Input stage executes.
type Recorder struct {
	Enabled bool
	Entries []Entry
}

func (r *Recorder) Record(tick uint64, a GameAction) {
	if r.Enabled {
		r.Entries = append(r.Entries, Entry{Tick: tick, Action: a})
	}
}

// Script returns the recording as a replayable script.
func (r *Recorder) Script() *Script {
	return &Script{Version: ScriptVersion, Entries: append([]Entry{}, r.Entries...)}
}

func (r *Recorder) Reset() { r.Entries = nil }

// Player feeds recorded actions back on the tick they were recorded.
type Player struct {
	entries []Entry
	pos     int
}

// NewPlayer sorts entries by tick, keeping recorded order within a tick.
func NewPlayer(entries []Entry) *Player {
	es := append([]Entry(nil), entries...)
	sort.SliceStable(es, func(i, j int) bool { return es[i].Tick < es[j].Tick })
	return &Player{entries: es}
}

// Due returns the actions recorded for tick. Entries for earlier ticks that
// were never reached are dropped.
func (p *Player) Due(tick uint64) []GameAction {
	for p.pos < len(p.entries) && p.entries[p.pos].Tick < tick {
		p.pos++
	}
	var out []GameAction
	for p.pos < len(p.entries) && p.entries[p.pos].Tick == tick {
		out = append(out, p.entries[p.pos].Action)
		p.pos++
	}
	return out
}

func (p *Player) Done() bool { return p.pos >= len(p.entries) }

func (p *Player) Remaining() int { return len(p.entries) - p.pos }
