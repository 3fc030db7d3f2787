package mediawiki

import (
	"fmt"
	"net/url"
	"strings"
)

// Params is a MediaWiki API parameter mapping. Values may be strings,
// numbers, bools, or sequences ([]string, []any, arbitrarily nested);
// sequences are flattened and joined with "|" on the wire, which is the
// MediaWiki convention for multi-valued parameters.
type Params map[string]any

// clone returns a shallow copy so iterators can merge continuation
// parameters without mutating the caller's map.
func (p Params) clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// buildValues merges the three parameter layers into wire form.
// Precedence, highest first: overrides, base, defaults. Defaults are only
// consulted when useDefaults is set. The action defaults to "query" and the
// output format is always forced to JSON regardless of caller input.
func buildValues(base, defaults, overrides Params, useDefaults bool) url.Values {
	merged := make(Params, len(base)+len(defaults)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	if useDefaults {
		for k, v := range defaults {
			if _, ok := merged[k]; !ok {
				merged[k] = v
			}
		}
	}
	for k, v := range overrides {
		merged[k] = v
	}
	if _, ok := merged["action"]; !ok {
		merged["action"] = "query"
	}
	merged["format"] = "json"

	values := url.Values{}
	for k, v := range merged {
		values.Set(k, flattenValue(v))
	}
	return values
}

// flattenValue converts a parameter value to its string form. Nested
// sequences collapse into one flat "|"-joined string, so flattening a
// sequence of sequences gives the same result as pre-flattening by hand.
func flattenValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, "|")
	case []any:
		return strings.Join(flattenSlice(val), "|")
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func flattenSlice(seq []any) []string {
	var flat []string
	for _, el := range seq {
		switch inner := el.(type) {
		case []any:
			flat = append(flat, flattenSlice(inner)...)
		case []string:
			flat = append(flat, inner...)
		default:
			flat = append(flat, flattenValue(inner))
		}
	}
	return flat
}
