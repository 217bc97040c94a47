// Package services defines service building types and the coverage grids
// they produce.
package services

import "fmt"

// Type codes are persisted; append only.
type Type uint8

const (
	FireHouse Type = iota
	FireStation
	FireHQ
	PoliceKiosk
	PoliceStation
	PoliceHQ
	Clinic
	Hospital
	ElementarySchool
	HighSchool
	University
	SmallPark
	LargePark
	Playground
	Plaza
	Stadium
	CellTower
	BusDepot
	SubwayStation
	TrainStation
	Landfill
	RecyclingCenter
	Incinerator
	Cemetery
	Crematorium
	HomelessShelter
	WaterTreatment
	PostOffice
	HeatingBoiler
	DistrictHeatingPlant
	Airport
	RetentionPond
	RainGarden
	Levee
	Seawall
	typeCount
)

var typeNames = [...]string{
	"FireHouse", "FireStation", "FireHQ",
	"PoliceKiosk", "PoliceStation", "PoliceHQ",
	"Clinic", "Hospital",
	"ElementarySchool", "HighSchool", "University",
	"SmallPark", "LargePark", "Playground",
	"Plaza", "Stadium",
	"CellTower",
	"BusDepot", "SubwayStation", "TrainStation",
	"Landfill", "RecyclingCenter", "Incinerator",
	"Cemetery", "Crematorium",
	"HomelessShelter",
	"WaterTreatment",
	"PostOffice",
	"HeatingBoiler", "DistrictHeatingPlant",
	"Airport",
	"RetentionPond", "RainGarden",
	"Levee", "Seawall",
}

// All lists every type in code order.
func All() []Type {
	out := make([]Type, typeCount)
	for i := range out {
		out[i] = Type(i)
	}
	return out
}

func (t Type) String() string {
	if t < typeCount {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

func (t Type) Valid() bool { return t < typeCount }

func Parse(s string) (Type, error) {
	for i, n := range typeNames {
		if n == s {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("unknown service type %q", s)
}

// Coverage bits, one per category that reaches cells.
const (
	BitHealth        uint8 = 1
	BitEducation     uint8 = 2
	BitPolice        uint8 = 4
	BitPark          uint8 = 8
	BitEntertainment uint8 = 16
	BitTelecom       uint8 = 32
	BitTransport     uint8 = 64
	BitFire          uint8 = 128
)

// Bit is the coverage bit for t, or 0 when the type does not participate.
func (t Type) Bit() uint8 {
	switch t {
	case Clinic, Hospital:
		return BitHealth
	case ElementarySchool, HighSchool, University:
		return BitEducation
	case PoliceKiosk, PoliceStation, PoliceHQ:
		return BitPolice
	case SmallPark, LargePark, Playground:
		return BitPark
	case Plaza, Stadium:
		return BitEntertainment
	case CellTower, PostOffice:
		return BitTelecom
	case BusDepot, SubwayStation, TrainStation, Airport:
		return BitTransport
	case FireHouse, FireStation, FireHQ:
		return BitFire
	default:
		return 0
	}
}

// Tier is 1..3 within tiered families (fire, police); 1 elsewhere.
func (t Type) Tier() uint8 {
	switch t {
	case FireStation, PoliceStation:
		return 2
	case FireHQ, PoliceHQ:
		return 3
	default:
		return 1
	}
}

func (t Type) IsFire() bool   { return t == FireHouse || t == FireStation || t == FireHQ }
func (t Type) IsPolice() bool { return t == PoliceKiosk || t == PoliceStation || t == PoliceHQ }

func (t Type) IsTransitStation() bool {
	return t == BusDepot || t == SubwayStation || t == TrainStation
}

func (t Type) IsGarbage() bool {
	return t == Landfill || t == RecyclingCenter || t == Incinerator
}

func (t Type) IsHeating() bool { return t == HeatingBoiler || t == DistrictHeatingPlant }

func (t Type) IsFloodProtection() bool { return t == Levee || t == Seawall }

// IsStormwater covers retention ponds and rain gardens.
func (t Type) IsStormwater() bool { return t == RetentionPond || t == RainGarden }

// Site is a placed service as seen by coverage passes. Radius is in world units.
type Site struct {
	Type     Type
	X, Y     int
	Radius   float32
	Capacity uint32
}
