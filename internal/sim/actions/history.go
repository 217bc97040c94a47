package actions

import (
	"cityforge.dev/internal/sim/citizen"
	"cityforge.dev/internal/sim/env"
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/roads"
	"cityforge.dev/internal/sim/services"
	"cityforge.dev/internal/sim/utilities"
	"cityforge.dev/internal/sim/zones"
)

// CityActionKind labels what an undo record reverses.
type CityActionKind uint8

const (
	CityPlaceRoadSegment CityActionKind = iota
	CityPlaceGridRoad
	CityPlaceZone
	CityPlaceService
	CityPlaceUtility
	CityBulldoze
	CityComposite
)

func (k CityActionKind) String() string {
	switch k {
	case CityPlaceRoadSegment:
		return "PlaceRoadSegment"
	case CityPlaceGridRoad:
		return "PlaceGridRoad"
	case CityPlaceZone:
		return "PlaceZone"
	case CityPlaceService:
		return "PlaceService"
	case CityPlaceUtility:
		return "PlaceUtility"
	case CityBulldoze:
		return "Bulldoze"
	default:
		return "Composite"
	}
}

// CellChange is one grid cell before and after an action, with the road
// condition byte. Building references in Before are stale after a respawn;
// the world rewrites them.
type CellChange struct {
	Index      int
	Before     grid.Cell
	After      grid.Cell
	BeforeCond uint8
	AfterCond  uint8
}

// BuildingRecord is a removed building with its lifecycle markers.
type BuildingRecord struct {
	Building     zones.Building
	Construction *zones.UnderConstruction
	Fire         *zones.OnFire
	Abandoned    *zones.Abandoned
}

// Layoff is a citizen who lost a job to a demolition.
type Layoff struct {
	Citizen uint32
	Work    citizen.WorkLocation
}

// BarrierChange is the flood protection list around an action.
type BarrierChange struct {
	Before []env.Barrier
	After  []env.Barrier
}

// CityAction holds enough to reverse and reapply one executed action.
type CityAction struct {
	Kind  CityActionKind
	Cells []CellChange

	TreasuryBefore float64
	TreasuryAfter  float64

	// SegmentsBefore and SegmentsAfter are set only when the segment arena
	// changed.
	SegmentsBefore *roads.SegmentStore
	SegmentsAfter  *roads.SegmentStore

	PlacedServices   []services.Site
	RemovedServices  []services.Site
	PlacedUtilities  []utilities.Source
	RemovedUtilities []utilities.Source
	RemovedBuildings []BuildingRecord

	// Evicted and LaidOff are citizens displaced by removed buildings.
	Evicted  []uint32
	LaidOff  []Layoff
	Barriers *BarrierChange

	Children []CityAction
}

// Group wraps several records into one undo step. A single record is
// returned as is.
func Group(children []CityAction) CityAction {
	if len(children) == 1 {
		return children[0]
	}
	return CityAction{Kind: CityComposite, Children: children}
}

// Empty reports whether the record changes nothing.
func (a *CityAction) Empty() bool {
	return len(a.Cells) == 0 && a.SegmentsBefore == nil && len(a.PlacedServices) == 0 &&
		len(a.RemovedServices) == 0 && len(a.PlacedUtilities) == 0 && len(a.RemovedUtilities) == 0 &&
		len(a.RemovedBuildings) == 0 && len(a.Children) == 0 && a.Barriers == nil &&
		a.TreasuryBefore == a.TreasuryAfter
}

// HistoryLimit caps each of the undo and redo stacks.
const HistoryLimit = 100

// History is the undo/redo pair. Recording a new action clears redo.
type History struct {
	undo []CityAction
	redo []CityAction
}

func (h *History) Record(a CityAction) {
	h.undo = push(h.undo, a)
	h.redo = nil
}

// PopUndo takes the latest action and moves it to the redo stack.
func (h *History) PopUndo() (CityAction, bool) {
	if len(h.undo) == 0 {
		return CityAction{}, false
	}
	a := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = push(h.redo, a)
	return a, true
}

// PopRedo takes the latest undone action and moves it back to undo.
func (h *History) PopRedo() (CityAction, bool) {
	if len(h.redo) == 0 {
		return CityAction{}, false
	}
	a := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = push(h.undo, a)
	return a, true
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }
func (h *History) UndoLen() int  { return len(h.undo) }
func (h *History) RedoLen() int  { return len(h.redo) }

func (h *History) Reset() { *h = History{} }

func push(s []CityAction, a CityAction) []CityAction {
	s = append(s, a)
	if len(s) > HistoryLimit {
		s = append(s[:0], s[len(s)-HistoryLimit:]...)
	}
	return s
}
