package world

import (
	"errors"
	"io/fs"
	"math"

	"cityforge.dev/internal/persistence/savefile"
	"cityforge.dev/internal/sim/actions"
	"cityforge.dev/internal/sim/economy"
	"cityforge.dev/internal/sim/grid"
	"cityforge.dev/internal/sim/roads"
	"cityforge.dev/internal/sim/traffic"
)

type actionHandler func(*World, actions.GameAction) error

var actionDispatch = map[actions.Kind]actionHandler{
	actions.KindNewGame:          handleNewGame,
	actions.KindSetPaused:        handleSetPaused,
	actions.KindSetSpeed:         handleSetSpeed,
	actions.KindPlaceRoadLine:    handlePlaceRoadLine,
	actions.KindPlaceRoadSegment: handlePlaceRoadSegment,
	actions.KindZoneRect:         handleZoneRect,
	actions.KindPlaceUtility:     handlePlaceUtility,
	actions.KindPlaceService:     handlePlaceService,
	actions.KindBulldozeRect:     handleBulldozeRect,
	actions.KindSetTaxRates:      handleSetTaxRates,
	actions.KindSave:             handleSave,
	actions.KindLoad:             handleLoad,
	actions.KindTakeLoan:         handleTakeLoan,
	actions.KindSetPolicy:        handleSetPolicy,
	actions.KindSetFreightBan:    handleSetFreightBan,
	actions.KindAddTransitRoute:  handleAddTransitRoute,
	actions.KindUndo:             handleUndo,
	actions.KindRedo:             handleRedo,
}

// sysExecuteActions drains the queue in submission order. Each action either
// applies fully or fails without touching the world.
func (w *World) sysExecuteActions() {
	for _, a := range w.queue.Drain() {
		err := w.execute(a)
		w.tickActions = append(w.tickActions, a)
		w.recorder.Record(w.now, a)
		w.results.Append(actions.Result{Tick: w.now, Action: a, Err: err})
		if err != nil {
			w.tickErrors = append(w.tickErrors, err.Error())
			w.log.Printf("[world] action %s rejected: %v", a, err)
		}
	}
}

func (w *World) execute(a actions.GameAction) error {
	h := actionDispatch[a.Kind]
	if h == nil {
		return actions.Fail(actions.NotSupported, "unknown action kind %q", a.Kind)
	}
	return h(w, a)
}

// Apply executes one action immediately, outside the tick, and refreshes the
// state hash. Tools and tests use it to probe the executor directly.
func (w *World) Apply(a actions.GameAction) error {
	err := w.execute(a)
	w.results.Append(actions.Result{Tick: w.tick.Load(), Action: a, Err: err})
	w.hash = w.computeHash()
	return err
}

func handleNewGame(w *World, a actions.GameAction) error {
	w.newGame(a.Seed, a.CityName)
	return nil
}

func handleSetPaused(w *World, a actions.GameAction) error {
	w.clock.Paused = a.Paused
	return nil
}

func handleSetSpeed(w *World, a actions.GameAction) error {
	if !ValidSpeed(a.Speed) {
		return actions.Fail(actions.InvalidParameter, "speed %d", a.Speed)
	}
	w.clock.Speed = a.Speed
	return nil
}

func parseRoad(s string) (grid.RoadType, error) {
	if s == "" {
		return grid.RoadLocal, nil
	}
	rt, ok := grid.ParseRoad(s)
	if !ok {
		return 0, actions.Fail(actions.InvalidParameter, "road type %q", s)
	}
	return rt, nil
}

func checkBounds(x, y int) error {
	if !grid.InBounds(x, y) {
		return actions.Fail(actions.OutOfBounds, "(%d,%d)", x, y)
	}
	return nil
}

func checkEnds(a actions.GameAction) error {
	if err := checkBounds(a.X0, a.Y0); err != nil {
		return err
	}
	return checkBounds(a.X1, a.Y1)
}

func handlePlaceRoadLine(w *World, a actions.GameAction) error {
	rt, err := parseRoad(a.Road)
	if err != nil {
		return err
	}
	if err := checkEnds(a); err != nil {
		return err
	}
	cells := roads.BresenhamLine(a.X0, a.Y0, a.X1, a.Y1)
	cost, err := w.validateRoadCells(cells, rt)
	if err != nil {
		return err
	}
	edit := w.beginEdit(actions.CityPlaceGridRoad)
	for _, c := range cells {
		edit.touch(c.X, c.Y)
		if w.network.PlaceRoad(w.grid, c.X, c.Y, rt) {
			w.condition.Pave(c.X, c.Y)
		}
	}
	w.budget.Treasury -= cost
	edit.commit()
	w.sfx("place_road")
	return nil
}

// segmentControls returns the four Bézier points of a segment action with
// its ends snapped onto existing nodes. Zero inner points mean a straight
// segment.
func (w *World) segmentControls(a actions.GameAction) (p0, p1, p2, p3 roads.Vec2) {
	x0, y0 := grid.GridToWorld(a.X0, a.Y0)
	x1, y1 := grid.GridToWorld(a.X1, a.Y1)
	p0, p3 = w.segments.SnapEnds(roads.Vec2{X: x0, Y: y0}, roads.Vec2{X: x1, Y: y1})
	if a.CX0 == 0 && a.CY0 == 0 && a.CX1 == 0 && a.CY1 == 0 {
		return p0, p0.Lerp(p3, 1.0/3), p0.Lerp(p3, 2.0/3), p3
	}
	return p0, roads.Vec2{X: a.CX0, Y: a.CY0}, roads.Vec2{X: a.CX1, Y: a.CY1}, p3
}

func handlePlaceRoadSegment(w *World, a actions.GameAction) error {
	rt, err := parseRoad(a.Road)
	if err != nil {
		return err
	}
	if err := checkEnds(a); err != nil {
		return err
	}
	p0, p1, p2, p3 := w.segmentControls(a)
	if roads.ArcLength(p0, p1, p2, p3) < 1e-3 {
		return actions.Fail(actions.InvalidRoadGeometry, "segment has no length")
	}
	cells := roads.Rasterize(p0, p1, p2, p3)
	if len(cells) == 0 {
		return actions.Fail(actions.InvalidRoadGeometry, "segment covers no cells")
	}
	cost, err := w.validateRoadCells(cells, rt)
	if err != nil {
		return err
	}
	edit := w.beginEdit(actions.CityPlaceRoadSegment)
	edit.snapshotSegments()
	for _, c := range cells {
		edit.touch(c.X, c.Y)
	}
	if _, err := w.segments.AddSegment(w.grid, w.network, p0, p1, p2, p3, rt); err != nil {
		edit.abort()
		return actions.Fail(actions.InvalidRoadGeometry, "%v", err)
	}
	for _, c := range cells {
		w.condition.Pave(c.X, c.Y)
	}
	w.budget.Treasury -= cost
	edit.commit()
	w.sfx("place_road")
	return nil
}

// validateRoadCells rejects water, buildings and placed sites, and prices the
// cells that are not already road of type rt.
func (w *World) validateRoadCells(cells []roads.RoadNode, rt grid.RoadType) (float64, error) {
	occupied := w.occupiedCells()
	n := 0
	for _, c := range cells {
		cell := w.grid.At(c.X, c.Y)
		switch {
		case cell.Type == grid.Water:
			return 0, actions.Fail(actions.BlockedByWater, "(%d,%d)", c.X, c.Y)
		case cell.HasBuilding():
			return 0, actions.Fail(actions.BlockedByBuilding, "(%d,%d)", c.X, c.Y)
		case cell.Type != grid.Road && occupied[grid.Index(c.X, c.Y)]:
			return 0, actions.Fail(actions.BlockedByBuilding, "(%d,%d)", c.X, c.Y)
		}
		if cell.Type != grid.Road || cell.Road != rt {
			n++
		}
	}
	cost := rt.Cost() * float64(n)
	if w.budget.Treasury < cost {
		return 0, actions.Fail(actions.InsufficientFunds, "need %.0f", cost)
	}
	return cost, nil
}

// handleZoneRect zones the grass cells of the rectangle that have road
// access and no building. ZoneNone clears zoning without the road check.
func handleZoneRect(w *World, a actions.GameAction) error {
	z, ok := grid.ParseZone(a.Zone)
	if !ok {
		return actions.Fail(actions.InvalidParameter, "zone %q", a.Zone)
	}
	if err := checkEnds(a); err != nil {
		return err
	}
	r := a.Rect()
	occupied := w.occupiedCells()
	edit := w.beginEdit(actions.CityPlaceZone)
	var candidates, zoned int
	r.Each(func(x, y int) {
		c := w.grid.At(x, y)
		if c.Type != grid.Grass || c.HasBuilding() || occupied[grid.Index(x, y)] || c.Zone == z {
			return
		}
		candidates++
		if z != grid.ZoneNone && !w.grid.HasRoadAccess(x, y) {
			return
		}
		edit.touch(x, y)
		c.Zone = z
		zoned++
	})
	if candidates > 0 && zoned == 0 {
		return actions.Fail(actions.ZoneNotAdjacentToRoad, "no cell in rect has road access")
	}
	edit.commit()
	return nil
}

// checkSite validates a single-cell placement.
func (w *World) checkSite(x, y int, cost float64) error {
	if err := checkBounds(x, y); err != nil {
		return err
	}
	if w.budget.Treasury < cost {
		return actions.Fail(actions.InsufficientFunds, "need %.0f", cost)
	}
	c := w.grid.At(x, y)
	if c.Type == grid.Water {
		return actions.Fail(actions.BlockedByWater, "(%d,%d)", x, y)
	}
	if c.HasBuilding() || w.occupiedCells()[grid.Index(x, y)] {
		return actions.Fail(actions.AlreadyExists, "(%d,%d) is occupied", x, y)
	}
	return nil
}

func handleSetTaxRates(w *World, a actions.GameAction) error {
	if a.Taxes == nil {
		return actions.Fail(actions.InvalidParameter, "missing rates")
	}
	clamp := func(v float32) (float32, bool) {
		if math.IsNaN(float64(v)) {
			return 0, false
		}
		return min(max(v, 0), economy.MaxTaxRate), true
	}
	var r economy.ZoneTaxRates
	var ok [4]bool
	r.Residential, ok[0] = clamp(a.Taxes.Residential)
	r.Commercial, ok[1] = clamp(a.Taxes.Commercial)
	r.Industrial, ok[2] = clamp(a.Taxes.Industrial)
	r.Office, ok[3] = clamp(a.Taxes.Office)
	if !ok[0] || !ok[1] || !ok[2] || !ok[3] {
		return actions.Fail(actions.InvalidParameter, "tax rate is NaN")
	}
	w.budget.SetRates(r)
	return nil
}

func handleSave(w *World, a actions.GameAction) error {
	where, err := w.saveTo(a.Slot)
	if err != nil {
		return saveError(err)
	}
	w.log.Printf("[world] saved %q to %s", w.city.Name, where)
	return nil
}

func handleLoad(w *World, a actions.GameAction) error {
	f, err := w.readFrom(a.Slot)
	if err != nil {
		return saveError(err)
	}
	w.Restore(f)
	w.log.Printf("[world] loaded %q day=%d", w.city.Name, w.clock.Day)
	return nil
}

// saveError maps persistence failures onto action errors.
func saveError(err error) error {
	switch {
	case errors.Is(err, ErrNoSaveDir):
		return actions.Fail(actions.NotSupported, "%v", err)
	case errors.Is(err, ErrNoMemorySave), errors.Is(err, savefile.ErrNoSave), errors.Is(err, fs.ErrNotExist):
		return actions.Fail(actions.NotFound, "%v", err)
	case errors.Is(err, savefile.ErrSlotRange):
		return actions.Fail(actions.InvalidParameter, "%v", err)
	}
	return actions.Fail(actions.InternalError, "%v", err)
}

func handleTakeLoan(w *World, a actions.GameAction) error {
	tier, err := economy.ParseLoanTier(a.Loan)
	if err != nil {
		return actions.Fail(actions.InvalidParameter, "%v", err)
	}
	rating := economy.Rate(&w.budget, &w.loans)
	l, err := w.loans.Take(tier, rating, &w.budget.Treasury)
	switch {
	case errors.Is(err, economy.ErrTierLocked):
		return actions.Fail(actions.FeatureLocked, "%v", err)
	case errors.Is(err, economy.ErrTooManyLoans):
		return actions.Fail(actions.NotSupported, "%v", err)
	case err != nil:
		return actions.Fail(actions.InvalidParameter, "%v", err)
	}
	w.log.Printf("[world] loan %d taken principal=%.0f rate=%.3f", l.ID, l.Principal, l.Rate)
	return nil
}

func handleSetPolicy(w *World, a actions.GameAction) error {
	p, err := economy.ParsePolicy(a.Policy)
	if err != nil {
		return actions.Fail(actions.InvalidParameter, "%v", err)
	}
	w.policies.Set(p, a.Enabled)
	return nil
}

// handleSetFreightBan closes or reopens the road cells of a rectangle to
// trucks.
func handleSetFreightBan(w *World, a actions.GameAction) error {
	r, ok := a.Rect().Clip()
	if !ok {
		return actions.Fail(actions.OutOfBounds, "ban rect")
	}
	n := 0
	r.Each(func(x, y int) {
		if w.grid.At(x, y).Type == grid.Road {
			w.freight.SetBan(x, y, a.Enabled)
			n++
		}
	})
	if n == 0 {
		return actions.Fail(actions.NotFound, "no road in rect")
	}
	return nil
}

func parseTransitKind(s string) (traffic.VehicleKind, bool) {
	for _, k := range []traffic.VehicleKind{traffic.Bus, traffic.Tram, traffic.Train} {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

func handleAddTransitRoute(w *World, a actions.GameAction) error {
	kind := traffic.Bus
	if a.Vehicle != "" {
		k, ok := parseTransitKind(a.Vehicle)
		if !ok {
			return actions.Fail(actions.InvalidParameter, "vehicle %q", a.Vehicle)
		}
		kind = k
	}
	stops := make([]roads.RoadNode, len(a.Stops))
	for i, p := range a.Stops {
		if err := checkBounds(p.X, p.Y); err != nil {
			return err
		}
		stops[i] = roads.RoadNode{X: p.X, Y: p.Y}
	}
	w.refreshRoads()
	r, err := w.transit.AddRoute(w.csr, kind, stops)
	switch {
	case errors.Is(err, traffic.ErrStopNotOnRoad):
		return actions.Fail(actions.NotFound, "%v", err)
	case errors.Is(err, traffic.ErrUnreachable):
		return actions.Fail(actions.DependencyMissing, "%v", err)
	case err != nil:
		return actions.Fail(actions.InvalidParameter, "%v", err)
	}
	for _, v := range r.Spawn() {
		w.spawnVehicle(v, 0)
	}
	w.log.Printf("[world] transit route %d %s stops=%d path=%d", r.ID, kind, len(r.Stops), len(r.Path))
	return nil
}

func handleUndo(w *World, _ actions.GameAction) error {
	rec, ok := w.undo.PopUndo()
	if !ok {
		return actions.Fail(actions.NotFound, "nothing to undo")
	}
	w.revert(&rec)
	return nil
}

func handleRedo(w *World, _ actions.GameAction) error {
	rec, ok := w.undo.PopRedo()
	if !ok {
		return actions.Fail(actions.NotFound, "nothing to redo")
	}
	w.reapply(&rec)
	return nil
}
