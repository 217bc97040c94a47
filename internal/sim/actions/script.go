package actions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	invschema "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const ScriptVersion = 1

// Script is an action trace on disk.
type Script struct {
	Version int     `json:"version"`
	Entries []Entry `json:"entries"`
}

// Schema reflects the script format from the Go types.
func Schema() *invschema.Schema {
	r := invschema.Reflector{}
	s := r.Reflect(&Script{})
	s.Title = "cityforge action script"
	s.Description = "Tick-stamped player actions replayed against a fresh world."
	return s
}

func SchemaJSON() ([]byte, error) {
	b, err := json.MarshalIndent(Schema(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return append(b, '\n'), nil
}

const schemaURL = "cityforge-action-script.json"

var compiled struct {
	once   sync.Once
	schema *jsonschema.Schema
	err    error
}

func validator() (*jsonschema.Schema, error) {
	compiled.once.Do(func() {
		raw, err := SchemaJSON()
		if err != nil {
			compiled.err = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, bytes.NewReader(raw)); err != nil {
			compiled.err = fmt.Errorf("add schema: %w", err)
			return
		}
		compiled.schema, compiled.err = c.Compile(schemaURL)
	})
	return compiled.schema, compiled.err
}

// ParseScript validates data against the schema, then decodes it. Entries
// must be in non-decreasing tick order.
func ParseScript(data []byte) (*Script, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	sch, err := validator()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate script: %w", err)
	}
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	if s.Version != ScriptVersion {
		return nil, fmt.Errorf("script version %d: want %d", s.Version, ScriptVersion)
	}
	for i := 1; i < len(s.Entries); i++ {
		if s.Entries[i].Tick < s.Entries[i-1].Tick {
			return nil, fmt.Errorf("entry %d: tick %d before %d", i, s.Entries[i].Tick, s.Entries[i-1].Tick)
		}
	}
	return &s, nil
}

func LoadScript(path string) (*Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := ParseScript(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func (s *Script) Marshal() ([]byte, error) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// WriteFile writes the script through a temp file and rename.
func (s *Script) WriteFile(path string) error {
	b, err := s.Marshal()
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
