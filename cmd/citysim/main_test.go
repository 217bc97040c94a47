package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("citysim %s: %v\nstderr:\n%s", strings.Join(args, " "), err, errOut.String())
	}
	return out.String()
}

func TestRunReplayInspect(t *testing.T) {
	data := t.TempDir()
	script := filepath.Join(data, "actions.json")

	out := execute(t, "run", "--data", data, "-q", "--flat", "--seed", "3", "--ticks", "40",
		"--city", "Testburg", "--save-slot", "1", "--record", script)
	if !strings.Contains(out, "Testburg") || !strings.Contains(out, "digest") {
		t.Fatalf("run output:\n%s", out)
	}

	runs, err := filepath.Glob(filepath.Join(data, "traces", "*"))
	if err != nil || len(runs) != 1 {
		t.Fatalf("trace dirs=%v err=%v", runs, err)
	}
	out = execute(t, "replay", "--data", data, "-q", runs[0])
	if !strings.Contains(out, "replay ok: checked=40") {
		t.Fatalf("replay output:\n%s", out)
	}

	out = execute(t, "slots", "--data", data, "-q")
	if !strings.Contains(out, "slot_01.bin") || !strings.Contains(out, "Testburg") {
		t.Fatalf("slots output:\n%s", out)
	}

	out = execute(t, "inspect", filepath.Join(data, "saves", "slot_01.bin"))
	for _, want := range []string{"Testburg", "KEY", "grid"} {
		if !strings.Contains(out, want) {
			t.Fatalf("inspect output missing %q:\n%s", want, out)
		}
	}

	out = execute(t, "schema", "--validate", script)
	if !strings.Contains(out, "ok, 0 entries") {
		t.Fatalf("schema output:\n%s", out)
	}

	out = execute(t, "history", "--data", data, "-q")
	if !strings.Contains(out, "Testburg") {
		t.Fatalf("history output:\n%s", out)
	}

	out = execute(t, "archive", "--data", data)
	if !strings.Contains(out, "no archives") {
		t.Fatalf("archive output:\n%s", out)
	}
}

func TestSchemaPrintsJSON(t *testing.T) {
	out := execute(t, "schema")
	if !strings.HasPrefix(strings.TrimSpace(out), "{") || !strings.Contains(out, "entries") {
		t.Fatalf("schema output:\n%s", out)
	}
}
