package stats

import "sort"

// Priority orders notifications, most urgent first.
type Priority uint8

const (
	Emergency Priority = iota
	Warning
	Attention
	Info
	Positive
)

var priorityLabels = [...]string{"EMERGENCY", "WARNING", "ATTENTION", "INFO", "POSITIVE"}

func (p Priority) String() string {
	if int(p) < len(priorityLabels) {
		return priorityLabels[p]
	}
	return "UNKNOWN"
}

// TTL is how many ticks a notification stays active; 0 means until dismissed.
func (p Priority) TTL() uint64 {
	switch p {
	case Warning:
		return 1500
	case Attention:
		return 1000
	case Info, Positive:
		return 600
	default:
		return 0
	}
}

// Location is an optional cell the notification points at.
type Location struct {
	X, Y int
}

type Notification struct {
	ID       uint64
	Text     string
	Priority Priority
	Location *Location
	Day      uint32
	Hour     float32
	Tick     uint64
}

// JournalSize caps the archive of past notifications.
const JournalSize = 500

// Notifications holds the active queue and the journal.
type Notifications struct {
	Active  []Notification
	Journal []Notification
	NextID  uint64
}

// Push stamps and enqueues a notification, archiving it immediately.
func (n *Notifications) Push(text string, p Priority, loc *Location, day uint32, hour float32, tick uint64) Notification {
	n.NextID++
	note := Notification{ID: n.NextID, Text: text, Priority: p, Location: loc, Day: day, Hour: hour, Tick: tick}
	n.Active = append(n.Active, note)
	n.Journal = append(n.Journal, note)
	if over := len(n.Journal) - JournalSize; over > 0 {
		n.Journal = append(n.Journal[:0], n.Journal[over:]...)
	}
	return note
}

func (n *Notifications) Dismiss(id uint64) bool {
	for i, a := range n.Active {
		if a.ID == id {
			n.Active = append(n.Active[:i], n.Active[i+1:]...)
			return true
		}
	}
	return false
}

// Sweep drops active notifications whose TTL has elapsed.
func (n *Notifications) Sweep(tick uint64) {
	kept := n.Active[:0]
	for _, a := range n.Active {
		if ttl := a.Priority.TTL(); ttl > 0 && tick >= a.Tick+ttl {
			continue
		}
		kept = append(kept, a)
	}
	n.Active = kept
}

// Queue returns active notifications by priority, then oldest first.
func (n *Notifications) Queue() []Notification {
	out := append([]Notification(nil), n.Active...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (n *Notifications) Reset() { *n = Notifications{} }
