// Package factors loads emission factors, falling back to built-in defaults.
package factors

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/scope3-tracker/internal/entity"
)

// DefaultPath is used when no location is configured.
const DefaultPath = "data/emission_factors.json"

// Defaults returns the built-in factor set.
func Defaults() entity.EmissionFactors {
	return entity.EmissionFactors{
		SteelPerKg:      2.0,
		PackagingPerKg:  1.5,
		TransportPerTkm: 0.06,
		OtherPerUSD:     0.4,
	}
}

// documentSchema is a JSON-Schema (draft 2020-12 subset) for a factors document.
// Additional keys are tolerated so a document can carry notes or sources.
// Coefficients are optional; absent ones keep their default.
func documentSchema() map[string]any {
	positive := map[string]any{"type": "number", "exclusiveMinimum": 0}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"steel_per_kg":      positive,
			"packaging_per_kg":  positive,
			"transport_per_tkm": positive,
			"other_per_usd":     positive,
		},
	}
}

var compiled = mustCompile(documentSchema())

func mustCompile(schemaMap map[string]any) *jsonschema.Schema {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		panic(err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("factors.json", bytes.NewReader(b)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("factors.json")
}

// Load reads the factors document at path. Any failure yields Defaults(); Load never fails.
func Load(path string, logger *slog.Logger) entity.EmissionFactors {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		path = DefaultPath
	}

	f, err := read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("factors.load.missing", "path", path)
		} else {
			logger.Warn("factors.load.fallback_defaults", "path", path, "error", err)
		}
		return Defaults()
	}
	logger.Debug("factors.load.ok", "path", path,
		"steel_per_kg", f.SteelPerKg,
		"packaging_per_kg", f.PackagingPerKg,
		"transport_per_tkm", f.TransportPerTkm,
		"other_per_usd", f.OtherPerUSD,
	)
	return f
}

func read(path string) (entity.EmissionFactors, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return entity.EmissionFactors{}, err
	}

	var doc any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var m map[string]any
		if err := yaml.Unmarshal(raw, &m); err != nil {
			return entity.EmissionFactors{}, fmt.Errorf("decode yaml: %w", err)
		}
		doc, err = roundTripJSON(m)
		if err != nil {
			return entity.EmissionFactors{}, err
		}
	default:
		if err := json.Unmarshal(raw, &doc); err != nil {
			return entity.EmissionFactors{}, fmt.Errorf("decode json: %w", err)
		}
	}

	if err := compiled.Validate(doc); err != nil {
		return entity.EmissionFactors{}, fmt.Errorf("factors document does not match schema: %w", err)
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return entity.EmissionFactors{}, fmt.Errorf("encode factors: %w", err)
	}
	out := Defaults()
	if err := json.Unmarshal(b, &out); err != nil {
		return entity.EmissionFactors{}, fmt.Errorf("unmarshal factors: %w", err)
	}
	return out, nil
}

// roundTripJSON turns a YAML-decoded map into the generic JSON shape the validator expects.
func roundTripJSON(m map[string]any) (any, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode yaml document: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("decode yaml document: %w", err)
	}
	return v, nil
}
