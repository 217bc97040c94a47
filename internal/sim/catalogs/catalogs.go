package catalogs

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"sort"
)

//go:embed defs/*.json
var embedded embed.FS

type Catalogs struct {
	Services   ServiceCatalog
	Generators GeneratorCatalog
	Buildings  BuildingCatalog
}

type ServiceCatalog struct {
	ByID   map[string]ServiceDef
	Digest string
}

type ServiceDef struct {
	ID          string  `json:"id"`
	Category    string  `json:"category"`
	Tier        int     `json:"tier"`
	RadiusCells float32 `json:"radius_cells"`
	BuildCost   float64 `json:"build_cost"`
	MonthlyCost float64 `json:"monthly_cost"`
	Capacity    int     `json:"capacity"`
	NoiseDB     float32 `json:"noise_db,omitempty"`
	Emission    float32 `json:"emission,omitempty"`
	Unlock      string  `json:"unlock,omitempty"`
}

type GeneratorCatalog struct {
	ByID   map[string]GeneratorDef
	Digest string
}

type GeneratorDef struct {
	ID          string  `json:"id"`
	Kind        string  `json:"kind"` // "power" or "water"
	Fuel        string  `json:"fuel,omitempty"`
	CapacityMW  float32 `json:"capacity_mw,omitempty"`
	FuelCost    float32 `json:"fuel_cost_per_mwh,omitempty"`
	CO2PerMWh   float32 `json:"co2_per_mwh,omitempty"`
	StorageMWh  float32 `json:"storage_mwh,omitempty"`
	RangeCells  int     `json:"range_cells"`
	BuildCost   float64 `json:"build_cost"`
	MonthlyCost float64 `json:"monthly_cost"`
	Emission    float32 `json:"emission,omitempty"`
	NoiseDB     float32 `json:"noise_db,omitempty"`
}

type BuildingCatalog struct {
	ByZone map[string]BuildingDef
	Digest string
}

type BuildingDef struct {
	Zone string `json:"zone"`
	// Capacity per level 1..5.
	Capacity [5]uint32 `json:"capacity"`
	// EnergyKWh is monthly demand per level.
	EnergyKWh [5]float32 `json:"energy_kwh"`
	BaseTax   float64    `json:"base_tax"`
	// Imperviousness is the fraction of rainfall that runs off the lot.
	Imperviousness float32 `json:"imperviousness"`
}

// Default loads the catalogs compiled into the binary.
func Default() (*Catalogs, error) {
	sub, err := fs.Sub(embedded, "defs")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub)
}

// MustDefault is for tests and commands where the embedded defs are known good.
func MustDefault() *Catalogs {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads services.json, generators.json and buildings.json from dir.
func Load(configDir string) (*Catalogs, error) {
	return LoadFS(os.DirFS(configDir))
}

func LoadFS(fsys fs.FS) (*Catalogs, error) {
	var c Catalogs
	if err := loadServices(fsys, &c.Services); err != nil {
		return nil, err
	}
	if err := loadGenerators(fsys, &c.Generators); err != nil {
		return nil, err
	}
	if err := loadBuildings(fsys, &c.Buildings); err != nil {
		return nil, err
	}
	return &c, nil
}

// Digest combines the per-file digests; saves record it so a load can warn
// when the defs changed underneath.
func (c *Catalogs) Digest() string {
	return sha256Hex([]byte(c.Services.Digest + c.Generators.Digest + c.Buildings.Digest))
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadServices(fsys fs.FS, out *ServiceCatalog) error {
	raw, err := fs.ReadFile(fsys, "services.json")
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []ServiceDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("services.json: %w", err)
	}
	out.ByID = map[string]ServiceDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("services.json: empty id")
		}
		if _, dup := out.ByID[d.ID]; dup {
			return fmt.Errorf("services.json: duplicate id %s", d.ID)
		}
		if d.RadiusCells < 0 {
			return fmt.Errorf("services.json: %s: negative radius", d.ID)
		}
		out.ByID[d.ID] = d
	}
	return nil
}

func loadGenerators(fsys fs.FS, out *GeneratorCatalog) error {
	raw, err := fs.ReadFile(fsys, "generators.json")
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []GeneratorDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("generators.json: %w", err)
	}
	out.ByID = map[string]GeneratorDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("generators.json: empty id")
		}
		if d.Kind != "power" && d.Kind != "water" {
			return fmt.Errorf("generators.json: %s: kind must be power or water", d.ID)
		}
		out.ByID[d.ID] = d
	}
	return nil
}

func loadBuildings(fsys fs.FS, out *BuildingCatalog) error {
	raw, err := fs.ReadFile(fsys, "buildings.json")
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []BuildingDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("buildings.json: %w", err)
	}
	out.ByZone = map[string]BuildingDef{}
	for _, d := range defs {
		if d.Zone == "" {
			return fmt.Errorf("buildings.json: empty zone")
		}
		for i := 1; i < len(d.Capacity); i++ {
			if d.Capacity[i] < d.Capacity[i-1] {
				return fmt.Errorf("buildings.json: %s: capacity must not shrink with level", d.Zone)
			}
		}
		out.ByZone[d.Zone] = d
	}
	return nil
}

// ServiceIDs lists service ids sorted, for stable iteration in commands.
func (c *Catalogs) ServiceIDs() []string {
	ids := make([]string, 0, len(c.Services.ByID))
	for id := range c.Services.ByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
