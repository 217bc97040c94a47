package economy

import "fmt"

type Policy uint8

const (
	PolicyScrubbers Policy = iota
	PolicyCatalyticConverters
	PolicyRecycling
	PolicyFreeTransit
	PolicyEnergyEfficiency
	PolicyHeavyTrafficBan
	PolicyNeighborhoodWatch
	PolicySnowPlowing
	policyCount
)

var policyNames = [...]string{
	"Scrubbers",
	"CatalyticConverters",
	"Recycling",
	"FreeTransit",
	"EnergyEfficiency",
	"HeavyTrafficBan",
	"NeighborhoodWatch",
	"SnowPlowing",
}

var policyCosts = [...]float64{300, 200, 250, 500, 300, 100, 150, 200}

func (p Policy) String() string {
	if p < policyCount {
		return policyNames[p]
	}
	return "Unknown"
}

func (p Policy) MonthlyCost() float64 {
	if p < policyCount {
		return policyCosts[p]
	}
	return 0
}

func ParsePolicy(s string) (Policy, error) {
	for i, n := range policyNames {
		if n == s {
			return Policy(i), nil
		}
	}
	return 0, fmt.Errorf("unknown policy %q", s)
}

// Policies is a bitset of enacted policies.
type Policies struct {
	Active uint32
}

func (p Policies) Has(x Policy) bool { return p.Active&(1<<x) != 0 }

func (p *Policies) Set(x Policy, on bool) {
	if on {
		p.Active |= 1 << x
	} else {
		p.Active &^= 1 << x
	}
}

func (p Policies) MonthlyCost() float64 {
	var c float64
	for x := Policy(0); x < policyCount; x++ {
		if p.Has(x) {
			c += x.MonthlyCost()
		}
	}
	return c
}

// Enacted lists active policies in code order.
func (p Policies) Enacted() []Policy {
	var out []Policy
	for x := Policy(0); x < policyCount; x++ {
		if p.Has(x) {
			out = append(out, x)
		}
	}
	return out
}

func (p Policies) PowerPlantEmissionMult() float32 { return p.mult(PolicyScrubbers, 0.5) }
func (p Policies) RoadEmissionMult() float32       { return p.mult(PolicyCatalyticConverters, 0.7) }
func (p Policies) GarbageMult() float32            { return p.mult(PolicyRecycling, 0.7) }
func (p Policies) EnergyDemandMult() float32       { return p.mult(PolicyEnergyEfficiency, 0.85) }
func (p Policies) CrimeMult() float32              { return p.mult(PolicyNeighborhoodWatch, 0.85) }

func (p Policies) mult(x Policy, m float32) float32 {
	if p.Has(x) {
		return m
	}
	return 1
}
