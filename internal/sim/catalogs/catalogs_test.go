package catalogs

import (
	"strings"
	"testing"
	"testing/fstest"

	"cityforge.dev/internal/sim/grid"
)

func TestDefault_LoadsEmbeddedDefs(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if c.Services.Digest == "" || c.Generators.Digest == "" || c.Buildings.Digest == "" {
		t.Fatalf("missing digests")
	}
	if len(c.Digest()) != 64 {
		t.Fatalf("combined digest should be hex sha256: %q", c.Digest())
	}
	for _, z := range grid.AllZones {
		if _, ok := c.Buildings.ByZone[z.String()]; !ok {
			t.Fatalf("no building def for %v", z)
		}
	}
	if _, ok := c.Generators.ByID["PowerPlant"]; !ok {
		t.Fatalf("PowerPlant missing")
	}
	ids := c.ServiceIDs()
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Fatalf("service ids not sorted: %v", ids)
		}
	}
}

func validFS() fstest.MapFS {
	return fstest.MapFS{
		"services.json":   {Data: []byte(`[{"id":"FireHouse","category":"fire","tier":1,"radius_cells":10,"build_cost":1,"monthly_cost":1}]`)},
		"generators.json": {Data: []byte(`[{"id":"WaterPump","kind":"water","range_cells":20,"build_cost":1,"monthly_cost":1}]`)},
		"buildings.json":  {Data: []byte(`[{"zone":"Industrial","capacity":[1,2,3,4,5],"energy_kwh":[1,1,1,1,1],"base_tax":1}]`)},
	}
}

func TestLoadFS_Rejects(t *testing.T) {
	if _, err := LoadFS(validFS()); err != nil {
		t.Fatalf("valid defs rejected: %v", err)
	}
	cases := []struct {
		name, file, data, want string
	}{
		{"dup service", "services.json", `[{"id":"A"},{"id":"A"}]`, "duplicate"},
		{"bad kind", "generators.json", `[{"id":"X","kind":"steam"}]`, "kind"},
		{"shrinking capacity", "buildings.json", `[{"zone":"Office","capacity":[5,4,3,2,1]}]`, "shrink"},
		{"malformed", "services.json", `{`, "services.json"},
	}
	for _, tc := range cases {
		fsys := validFS()
		fsys[tc.file] = &fstest.MapFile{Data: []byte(tc.data)}
		_, err := LoadFS(fsys)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: got %v want error containing %q", tc.name, err, tc.want)
		}
	}
}
