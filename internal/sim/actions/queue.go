package actions

// Queue is the FIFO of actions waiting for the next Input stage.
type Queue struct {
	items []GameAction
}

func (q *Queue) Push(a ...GameAction) { q.items = append(q.items, a...) }

func (q *Queue) Len() int { return len(q.items) }

// Drain returns the pending actions in submission order and empties the queue.
func (q *Queue) Drain() []GameAction {
	out := q.items
	q.items = nil
	return out
}

// ResultLogSize is the number of results the log keeps.
const ResultLogSize = 256

// ResultLog is a ring of the most recent action results.
type ResultLog struct {
	buf   [ResultLogSize]Result
	next  int
	count int
}

func (l *ResultLog) Append(r Result) {
	l.buf[l.next] = r
	l.next = (l.next + 1) % ResultLogSize
	if l.count < ResultLogSize {
		l.count++
	}
}

func (l *ResultLog) Len() int { return l.count }

// All returns the retained results oldest first.
func (l *ResultLog) All() []Result {
	out := make([]Result, 0, l.count)
	start := (l.next - l.count + ResultLogSize) % ResultLogSize
	for i := 0; i < l.count; i++ {
		out = append(out, l.buf[(start+i)%ResultLogSize])
	}
	return out
}

// Last returns the most recent result.
func (l *ResultLog) Last() (Result, bool) {
	if l.count == 0 {
		return Result{}, false
	}
	return l.buf[(l.next-1+ResultLogSize)%ResultLogSize], true
}

func (l *ResultLog) Reset() { *l = ResultLog{} }
