package compose

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/goccy/go-yaml"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/compozy/trainconf/engine/core"
)

// Result is a composed, validated run config.
type Result struct {
	Primary    string
	Config     core.Node
	Selections DefaultsList
	// Type is the record type of the primary entry; nil for untyped primaries.
	Type reflect.Type
}

// YAML renders the config as a YAML document.
func (r *Result) YAML() ([]byte, error) {
	out, err := yaml.Marshal(r.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s as yaml: %w", r.Primary, err)
	}
	return out, nil
}

// JSON renders the config as indented JSON.
func (r *Result) JSON() ([]byte, error) {
	out, err := json.Marshal(r.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s as json: %w", r.Primary, err)
	}
	return pretty.Pretty(out), nil
}

// Hash fingerprints the composed config, so identical runs can be recognized.
func (r *Result) Hash() (string, error) {
	return core.Fingerprint(r.Config)
}

// Select returns the value at a gjson path such as "trainer.max_epochs".
func (r *Result) Select(path string) (any, bool, error) {
	out, err := json.Marshal(r.Config)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal %s as json: %w", r.Primary, err)
	}
	res := gjson.GetBytes(out, path)
	if !res.Exists() {
		return nil, false, nil
	}
	// Raw is JSON, which parses as YAML with ints kept as ints.
	value, err := core.ParseValue(res.Raw)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s at %s: %w", r.Primary, path, err)
	}
	return value, true, nil
}

// Decode fills out from the config.
func (r *Result) Decode(out any) error {
	return core.FromMap(r.Config, out)
}

// Instantiate decodes the config into a new value of the primary's record type.
func (r *Result) Instantiate() (any, error) {
	if r.Type == nil {
		return core.CopyNode(r.Config)
	}
	ptr := reflect.New(r.Type)
	if err := r.Decode(ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}
