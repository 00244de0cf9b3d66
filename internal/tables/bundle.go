package tables

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/jsonschema-go/jsonschema"
	"gopkg.in/yaml.v3"

	"co2-mcs/internal/model"
)

// Bundle is a self-contained scenario set: parameters, emission factors and
// optional phases in one YAML or JSON document.
type Bundle struct {
	Name            string                 `json:"name,omitempty" yaml:"name,omitempty"`
	Description     string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters      []BundleParameter      `json:"parameters" yaml:"parameters"`
	EmissionFactors []model.EmissionFactor `json:"emission_factors" yaml:"emission_factors"`
	Phases          []model.Phase          `json:"phases,omitempty" yaml:"phases,omitempty"`
}

// BundleParameter is a parameter row whose value cells may be written as
// numbers or strings.
type BundleParameter struct {
	Scenario string `json:"scenario" yaml:"scenario"`
	Class    string `json:"class" yaml:"class"`
	Param    string `json:"param" yaml:"param"`
	Value    any    `json:"value" yaml:"value"`
	Low      any    `json:"low,omitempty" yaml:"low,omitempty"`
	High     any    `json:"high,omitempty" yaml:"high,omitempty"`
}

var (
	bundleSchema     *jsonschema.Resolved
	bundleSchemaErr  error
	bundleSchemaOnce sync.Once
)

// BundleSchema returns the JSON schema bundles are validated against.
func BundleSchema() (*jsonschema.Resolved, error) {
	bundleSchemaOnce.Do(func() {
		s, err := jsonschema.For[Bundle](nil)
		if err != nil {
			bundleSchemaErr = fmt.Errorf("deriving bundle schema: %w", err)
			return
		}
		bundleSchema, bundleSchemaErr = s.Resolve(nil)
	})
	return bundleSchema, bundleSchemaErr
}

// ParseBundle decodes a YAML or JSON bundle (JSON is valid YAML) and validates it
// against BundleSchema before converting it.
func ParseBundle(data []byte) (*Bundle, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing bundle: %w", err)
	}
	// Round-trip through JSON so the validator sees JSON types only.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("normalizing bundle: %w", err)
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return nil, fmt.Errorf("normalizing bundle: %w", err)
	}

	obj, ok := instance.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("bundle must be a mapping, got %T", instance)
	}
	if _, ok := obj["parameters"]; !ok {
		return nil, fmt.Errorf("bundle has no parameters")
	}

	schema, err := BundleSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(instance); err != nil {
		return nil, fmt.Errorf("bundle does not match schema: %w", err)
	}

	var b Bundle
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("decoding bundle: %w", err)
	}
	return &b, nil
}

// LoadBundle reads and parses a bundle file.
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bundle: %w", err)
	}
	b, err := ParseBundle(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return b, nil
}

// Marshal encodes the bundle as YAML.
func (b *Bundle) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(b); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ScenarioParameters converts bundle rows to the long-format input rows.
func (b *Bundle) ScenarioParameters() []model.ScenarioParameter {
	out := make([]model.ScenarioParameter, len(b.Parameters))
	for i, p := range b.Parameters {
		out[i] = model.ScenarioParameter{
			Scenario: p.Scenario,
			Class:    model.Class(p.Class),
			Param:    p.Param,
			Value:    cellText(p.Value),
			Low:      cellText(p.Low),
			High:     cellText(p.High),
		}
	}
	return out
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprint(x)
	}
}
