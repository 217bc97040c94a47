// Package actions defines the player action vocabulary, its intake queue and
// result log, the undo history and the record/replay machinery. Execution
// lives in the world, which owns the state each action touches.
package actions

import (
	"fmt"

	"cityforge.dev/internal/sim/economy"
	"cityforge.dev/internal/sim/grid"
)

type Kind string

const (
	KindNewGame          Kind = "NewGame"
	KindSetPaused        Kind = "SetPaused"
	KindSetSpeed         Kind = "SetSpeed"
	KindPlaceRoadLine    Kind = "PlaceRoadLine"
	KindPlaceRoadSegment Kind = "PlaceRoadSegment"
	KindZoneRect         Kind = "ZoneRect"
	KindPlaceUtility     Kind = "PlaceUtility"
	KindPlaceService     Kind = "PlaceService"
	KindBulldozeRect     Kind = "BulldozeRect"
	KindSetTaxRates      Kind = "SetTaxRates"
	KindSave             Kind = "Save"
	KindLoad             Kind = "Load"
	KindTakeLoan         Kind = "TakeLoan"
	KindSetPolicy        Kind = "SetPolicy"
	KindSetFreightBan    Kind = "SetFreightBan"
	KindAddTransitRoute  Kind = "AddTransitRoute"
	KindUndo             Kind = "Undo"
	KindRedo             Kind = "Redo"
)

var kinds = []Kind{
	KindNewGame,
	KindSetPaused,
	KindSetSpeed,
	KindPlaceRoadLine,
	KindPlaceRoadSegment,
	KindZoneRect,
	KindPlaceUtility,
	KindPlaceService,
	KindBulldozeRect,
	KindSetTaxRates,
	KindSave,
	KindLoad,
	KindTakeLoan,
	KindSetPolicy,
	KindSetFreightBan,
	KindAddTransitRoute,
	KindUndo,
	KindRedo,
}

func Kinds() []Kind { return append([]Kind(nil), kinds...) }

func (k Kind) Valid() bool {
	for _, v := range kinds {
		if v == k {
			return true
		}
	}
	return false
}

// Undoable reports whether executing the kind records a CityAction.
func (k Kind) Undoable() bool {
	switch k {
	case KindPlaceRoadLine, KindPlaceRoadSegment, KindZoneRect, KindPlaceUtility, KindPlaceService, KindBulldozeRect:
		return true
	}
	return false
}

// Point is a grid cell in a transit route.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// GameAction is one player command. Kind selects which of the other fields
// are read; the rest stay zero.
type GameAction struct {
	Kind Kind `json:"kind" jsonschema:"enum=NewGame,enum=SetPaused,enum=SetSpeed,enum=PlaceRoadLine,enum=PlaceRoadSegment,enum=ZoneRect,enum=PlaceUtility,enum=PlaceService,enum=BulldozeRect,enum=SetTaxRates,enum=Save,enum=Load,enum=TakeLoan,enum=SetPolicy,enum=SetFreightBan,enum=AddTransitRoute,enum=Undo,enum=Redo"`

	Seed     uint64 `json:"seed,omitempty"`
	CityName string `json:"city_name,omitempty"`
	Paused   bool   `json:"paused,omitempty"`
	Speed    uint8  `json:"speed,omitempty" jsonschema:"enum=1,enum=2,enum=4"`

	X0 int `json:"x0,omitempty"`
	Y0 int `json:"y0,omitempty"`
	X1 int `json:"x1,omitempty"`
	Y1 int `json:"y1,omitempty"`
	// CX0..CY1 are the inner Bézier control points of a road segment in
	// world units; zero means straight.
	CX0 float32 `json:"cx0,omitempty"`
	CY0 float32 `json:"cy0,omitempty"`
	CX1 float32 `json:"cx1,omitempty"`
	CY1 float32 `json:"cy1,omitempty"`

	Road    string  `json:"road,omitempty"`
	Zone    string  `json:"zone,omitempty"`
	Utility string  `json:"utility,omitempty"`
	Service string  `json:"service,omitempty"`
	Vehicle string  `json:"vehicle,omitempty"`
	Stops   []Point `json:"stops,omitempty"`

	Taxes   *economy.ZoneTaxRates `json:"taxes,omitempty"`
	Loan    string                `json:"loan,omitempty"`
	Policy  string                `json:"policy,omitempty"`
	Enabled bool                  `json:"enabled,omitempty"`

	// Slot names a save slot file; empty saves to memory only.
	Slot string `json:"slot,omitempty"`
}

func (a GameAction) String() string {
	switch a.Kind {
	case KindPlaceRoadLine, KindPlaceRoadSegment, KindZoneRect, KindBulldozeRect:
		return fmt.Sprintf("%s(%d,%d)-(%d,%d)", a.Kind, a.X0, a.Y0, a.X1, a.Y1)
	case KindPlaceUtility:
		return fmt.Sprintf("%s(%s@%d,%d)", a.Kind, a.Utility, a.X0, a.Y0)
	case KindPlaceService:
		return fmt.Sprintf("%s(%s@%d,%d)", a.Kind, a.Service, a.X0, a.Y0)
	default:
		return string(a.Kind)
	}
}

// Rect is the inclusive, normalized cell rectangle spanned by the action.
func (a GameAction) Rect() grid.Rect { return grid.NewRect(a.X0, a.Y0, a.X1, a.Y1) }

func NewGame(seed uint64, name string) GameAction {
	return GameAction{Kind: KindNewGame, Seed: seed, CityName: name}
}

func SetPaused(p bool) GameAction { return GameAction{Kind: KindSetPaused, Paused: p} }

func SetSpeed(s uint8) GameAction { return GameAction{Kind: KindSetSpeed, Speed: s} }

func PlaceRoadLine(x0, y0, x1, y1 int, rt grid.RoadType) GameAction {
	return GameAction{Kind: KindPlaceRoadLine, X0: x0, Y0: y0, X1: x1, Y1: y1, Road: rt.String()}
}

func ZoneRect(x0, y0, x1, y1 int, z grid.ZoneType) GameAction {
	return GameAction{Kind: KindZoneRect, X0: x0, Y0: y0, X1: x1, Y1: y1, Zone: z.String()}
}

func PlaceUtility(name string, x, y int) GameAction {
	return GameAction{Kind: KindPlaceUtility, Utility: name, X0: x, Y0: y}
}

func PlaceService(name string, x, y int) GameAction {
	return GameAction{Kind: KindPlaceService, Service: name, X0: x, Y0: y}
}

func BulldozeRect(x0, y0, x1, y1 int) GameAction {
	return GameAction{Kind: KindBulldozeRect, X0: x0, Y0: y0, X1: x1, Y1: y1}
}

func SetTaxRates(r economy.ZoneTaxRates) GameAction {
	return GameAction{Kind: KindSetTaxRates, Taxes: &r}
}

func TakeLoan(tier string) GameAction { return GameAction{Kind: KindTakeLoan, Loan: tier} }

func SetPolicy(name string, on bool) GameAction {
	return GameAction{Kind: KindSetPolicy, Policy: name, Enabled: on}
}

func Save(slot string) GameAction { return GameAction{Kind: KindSave, Slot: slot} }

func Load(slot string) GameAction { return GameAction{Kind: KindLoad, Slot: slot} }

func Undo() GameAction { return GameAction{Kind: KindUndo} }

func Redo() GameAction { return GameAction{Kind: KindRedo} }

// Result is the outcome of one executed action.
type Result struct {
	Tick   uint64
	Action GameAction
	Err    error
}

func (r Result) OK() bool { return r.Err == nil }

// Code is the ActionError of a failed result, 0 on success.
func (r Result) Code() ActionError { return Code(r.Err) }
