package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_OverridesOnlyGivenKeys(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tuning.yaml")
	raw := []byte("slow_tick_interval: 50\nautosave:\n  interval_minutes: 10\n")
	if err := os.WriteFile(p, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.SlowTickInterval != 50 || got.Autosave.IntervalMinutes != 10 {
		t.Fatalf("overrides not applied: %+v", got)
	}
	def := Defaults()
	if got.TickRateHz != def.TickRateHz || got.Roads.BPRAlpha != def.Roads.BPRAlpha || got.Autosave.Slots != def.Autosave.Slots {
		t.Fatalf("defaults lost: %+v", got)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(p, []byte("autosave:\n  interval_minutes: 45\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestDefaults_Valid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}
