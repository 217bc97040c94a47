package grid

// CellType is the terrain class of a cell. Exactly one applies per cell.
type CellType uint8

const (
	Grass CellType = iota
	Water
	Road
)

func (c CellType) String() string {
	switch c {
	case Grass:
		return "Grass"
	case Water:
		return "Water"
	case Road:
		return "Road"
	default:
		return "Unknown"
	}
}

// ZoneType codes are persisted; do not renumber.
type ZoneType uint8

const (
	ZoneNone              ZoneType = 0
	ZoneResidentialLow    ZoneType = 1
	ZoneResidentialHigh   ZoneType = 2
	ZoneCommercialLow     ZoneType = 3
	ZoneCommercialHigh    ZoneType = 4
	ZoneIndustrial        ZoneType = 5
	ZoneOffice            ZoneType = 6
	ZoneResidentialMedium ZoneType = 7
	ZoneMixedUse          ZoneType = 8
)

// AllZones lists every placeable zone in code order.
var AllZones = []ZoneType{
	ZoneResidentialLow,
	ZoneResidentialHigh,
	ZoneCommercialLow,
	ZoneCommercialHigh,
	ZoneIndustrial,
	ZoneOffice,
	ZoneResidentialMedium,
	ZoneMixedUse,
}

func (z ZoneType) Valid() bool { return z <= ZoneMixedUse }

func (z ZoneType) IsResidential() bool {
	switch z {
	case ZoneResidentialLow, ZoneResidentialMedium, ZoneResidentialHigh, ZoneMixedUse:
		return true
	}
	return false
}

func (z ZoneType) IsCommercial() bool {
	switch z {
	case ZoneCommercialLow, ZoneCommercialHigh, ZoneMixedUse:
		return true
	}
	return false
}

func (z ZoneType) IsJobZone() bool {
	switch z {
	case ZoneCommercialLow, ZoneCommercialHigh, ZoneIndustrial, ZoneOffice:
		return true
	}
	return false
}

// MaxLevel is the highest building level this zone's density allows.
func (z ZoneType) MaxLevel() uint8 {
	switch z {
	case ZoneResidentialLow, ZoneCommercialLow:
		return 3
	case ZoneResidentialMedium:
		return 4
	case ZoneNone:
		return 0
	default:
		return 5
	}
}

func (z ZoneType) String() string {
	switch z {
	case ZoneNone:
		return "None"
	case ZoneResidentialLow:
		return "ResidentialLow"
	case ZoneResidentialHigh:
		return "ResidentialHigh"
	case ZoneCommercialLow:
		return "CommercialLow"
	case ZoneCommercialHigh:
		return "CommercialHigh"
	case ZoneIndustrial:
		return "Industrial"
	case ZoneOffice:
		return "Office"
	case ZoneResidentialMedium:
		return "ResidentialMedium"
	case ZoneMixedUse:
		return "MixedUse"
	default:
		return "Unknown"
	}
}

// ParseZone accepts the String() form.
func ParseZone(s string) (ZoneType, bool) {
	for z := ZoneNone; z <= ZoneMixedUse; z++ {
		if z.String() == s {
			return z, true
		}
	}
	return ZoneNone, false
}

type RoadType uint8

const (
	RoadLocal RoadType = iota
	RoadAvenue
	RoadBoulevard
	RoadHighway
	RoadOneWay
	RoadPath
)

func (r RoadType) Valid() bool { return r <= RoadPath }

func (r RoadType) String() string {
	switch r {
	case RoadLocal:
		return "Local"
	case RoadAvenue:
		return "Avenue"
	case RoadBoulevard:
		return "Boulevard"
	case RoadHighway:
		return "Highway"
	case RoadOneWay:
		return "OneWay"
	case RoadPath:
		return "Path"
	default:
		return "Unknown"
	}
}

func ParseRoad(s string) (RoadType, bool) {
	for r := RoadLocal; r <= RoadPath; r++ {
		if r.String() == s {
			return r, true
		}
	}
	return RoadLocal, false
}

// Speed is the free-flow speed multiplier relative to a local street.
func (r RoadType) Speed() float32 {
	switch r {
	case RoadAvenue:
		return 1.5
	case RoadBoulevard:
		return 2.0
	case RoadHighway:
		return 3.0
	case RoadOneWay:
		return 1.2
	case RoadPath:
		return 0.3
	default:
		return 1.0
	}
}

// Capacity is vehicles per cell per tick before congestion sets in.
func (r RoadType) Capacity() float32 {
	switch r {
	case RoadAvenue:
		return 40
	case RoadBoulevard:
		return 60
	case RoadHighway:
		return 100
	case RoadOneWay:
		return 30
	case RoadPath:
		return 5
	default:
		return 20
	}
}

// Cost is the placement cost per cell.
func (r RoadType) Cost() float64 {
	switch r {
	case RoadAvenue:
		return 20
	case RoadBoulevard:
		return 30
	case RoadHighway:
		return 40
	case RoadOneWay:
		return 15
	case RoadPath:
		return 5
	default:
		return 10
	}
}

// Maintenance is the monthly upkeep per cell at full condition.
func (r RoadType) Maintenance() float64 {
	switch r {
	case RoadAvenue:
		return 1.0
	case RoadBoulevard:
		return 1.5
	case RoadHighway:
		return 2.0
	case RoadOneWay:
		return 0.6
	case RoadPath:
		return 0.1
	default:
		return 0.5
	}
}

// NoiseDB is the base emission level of a fully loaded cell.
func (r RoadType) NoiseDB() float32 {
	switch r {
	case RoadAvenue:
		return 60
	case RoadBoulevard:
		return 65
	case RoadHighway:
		return 75
	case RoadOneWay:
		return 55
	case RoadPath:
		return 0
	default:
		return 50
	}
}

// AllowsVehicles is false for pedestrian paths.
func (r RoadType) AllowsVehicles() bool { return r != RoadPath }
