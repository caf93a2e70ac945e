package filter

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/s0up4200/splatctl/bugsplat"
)

// helperFunctions returns the functions available to every expression.
// The string helpers are case-insensitive and accept any field value; the
// expr builtins (lower, upper, now, len and the contains operator) remain available.
func helperFunctions() map[string]any {
	return map[string]any{
		"has": func(v any, substr string) bool {
			return strings.Contains(strings.ToLower(cast.ToString(v)), strings.ToLower(substr))
		},
		"hasPrefix": func(v any, prefix string) bool {
			return strings.HasPrefix(strings.ToLower(cast.ToString(v)), strings.ToLower(prefix))
		},
		"hasSuffix": func(v any, suffix string) bool {
			return strings.HasSuffix(strings.ToLower(cast.ToString(v)), strings.ToLower(suffix))
		},
		"str": func(v any) string { return cast.ToString(v) },
		"parseDate": func(v any) time.Time {
			t, _ := cast.ToTimeE(v)
			return t
		},
		"daysSince": func(t time.Time) int {
			if t.IsZero() {
				return -1
			}
			return int(time.Since(t).Hours() / 24)
		},
	}
}

// recordEnvironment builds the evaluation environment for one record.
// Record fields are top-level variables; helpers shadow fields of the same name.
func recordEnvironment(database string, r bugsplat.Record, helpers map[string]any) map[string]any {
	fields := make(map[string]any, len(r))
	for k, v := range r {
		fields[k] = normalize(v)
	}

	env := make(map[string]any, len(fields)+len(helpers)+2)
	for k, v := range fields {
		env[k] = v
	}
	env["Record"] = fields
	env["Database"] = database
	for k, v := range helpers {
		env[k] = v
	}
	return env
}

// normalize turns json.Number into int64 or float64 so numeric operators work
func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}
