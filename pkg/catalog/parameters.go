package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Parameters holds the values currently configured for a node, keyed by
// parameter name. Values are JSON-compatible (string, float64, bool, maps,
// slices).
type Parameters map[string]any

// GetString returns the string value for name, or fallback when the
// parameter is absent or not a string. Callers pass the declared default
// as the fallback.
func (p Parameters) GetString(name string, fallback string) string {
	if v, ok := p[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

// GetBool returns the boolean value for name or fallback.
func (p Parameters) GetBool(name string, fallback bool) bool {
	if v, ok := p[name]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return fallback
}

// GetInt returns the numeric value for name as an int, or fallback.
// JSON numbers decode as float64, so both are accepted.
func (p Parameters) GetInt(name string, fallback int) int {
	if v, ok := p[name]; ok {
		switch val := v.(type) {
		case int:
			return val
		case int64:
			return int(val)
		case float64:
			return int(val)
		}
	}
	return fallback
}

// GetPairs returns the ordered name/value entries of a fixedCollection
// parameter. The entries are expected under a single group key, e.g.
// {"parameters": {"parameter": [{"name": ..., "value": ...}, ...]}}.
func (p Parameters) GetPairs(name, groupKey string) []Pair {
	v, ok := p[name]
	if !ok {
		return nil
	}

	group, ok := v.(map[string]any)
	if !ok {
		return nil
	}

	entries, ok := group[groupKey].([]any)
	if !ok {
		return nil
	}

	pairs := make([]Pair, 0, len(entries))
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		pair := Pair{}
		if n, ok := entry["name"].(string); ok {
			pair.Name = n
		}
		if val, ok := entry["value"].(string); ok {
			pair.Value = val
		}
		pairs = append(pairs, pair)
	}
	return pairs
}

// FoldPairs folds an ordered pair list into a map. Duplicate names silently
// overwrite, last value wins.
func FoldPairs(pairs []Pair) map[string]string {
	folded := make(map[string]string, len(pairs))
	for _, p := range pairs {
		folded[p.Name] = p.Value
	}
	return folded
}

// IsVisible reports whether a property should be shown given the current
// parameter values. A nil DisplayOptions means always visible.
func IsVisible(prop *Property, params Parameters) bool {
	if prop.DisplayOptions == nil {
		return true
	}

	for name, allowed := range prop.DisplayOptions.Show {
		if !valueIn(params[name], allowed) {
			return false
		}
	}

	for name, hidden := range prop.DisplayOptions.Hide {
		if valueIn(params[name], hidden) {
			return false
		}
	}

	return true
}

// VisibleProperties returns the properties visible under the current
// parameter values, in declaration order.
func (d *Description) VisibleProperties(params Parameters) []Property {
	visible := make([]Property, 0, len(d.Properties))
	for i := range d.Properties {
		if IsVisible(&d.Properties[i], params) {
			visible = append(visible, d.Properties[i])
		}
	}
	return visible
}

func valueIn(value any, allowed []any) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
		// JSON numbers arrive as float64 while declarations often use int
		if f, ok := value.(float64); ok {
			if i, ok := a.(int); ok && float64(i) == f {
				return true
			}
		}
	}
	return false
}

// DisplayNameFromName derives a human-readable display name from a
// camelCase or snake_case parameter name, e.g. "newJobName" -> "New Job Name".
func DisplayNameFromName(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r == '_' || r == '-' {
			b.WriteByte(' ')
			continue
		}
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return cases.Title(language.Und, cases.NoLower).String(b.String())
}
