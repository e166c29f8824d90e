// Package queryfilter validates query requests against the registry and a
// deny-list of dangerous tokens. It is pure validation: it never executes
// SQL and never builds query text from caller input — parameters are only
// ever substituted via bind arguments.
package queryfilter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"forecastd/internal/domain"
	"forecastd/internal/registry"
)

// dangerousTokens is the fixed deny-list scanned against every normalized
// string value. Binding already prevents injection structurally; this is
// defense-in-depth against values that are syntactically valid but
// semantically suspicious.
var dangerousTokens = []string{
	";",
	"--",
	"/*",
	"*/",
	" xp_",
	" drop ",
	" alter ",
	" truncate ",
	" delete ",
	" update ",
	" insert ",
	" merge ",
	" grant ",
	" revoke ",
	" execute ",
	" exec ",
	" union ",
}

const dateLayout = "2006-01-02"

// BoundQuery is a validated query ready for execution: the registered
// template with placeholders rewritten to positional markers plus the bind
// arguments in placeholder order.
type BoundQuery struct {
	QueryID string
	SQL     string
	Args    []any
}

// Filter validates query requests against an immutable registry.
type Filter struct {
	registry *registry.Registry
}

// New creates a Filter over the given registry.
func New(reg *registry.Registry) *Filter {
	return &Filter{registry: reg}
}

// Validate checks a query_id and its parameters against the registry entry
// and the deny-list, returning a BoundQuery on success. Extra parameters
// are rejected, not ignored.
func (f *Filter) Validate(queryID string, params map[string]any) (*BoundQuery, error) {
	def, ok := f.registry.Get(queryID)
	if !ok {
		return nil, domain.ErrUnknownQuery("unknown query_id %q", queryID)
	}

	var unexpected []string
	for name := range params {
		if _, ok := def.Param(name); !ok {
			unexpected = append(unexpected, name)
		}
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		return nil, domain.ErrUnexpectedParameter(
			"unexpected parameters for %q: %s", queryID, strings.Join(unexpected, ", "))
	}

	normalized := make(map[string]any, len(def.Params))
	for i := range def.Params {
		spec := &def.Params[i]
		value, err := normalizeValue(spec, params[spec.Name])
		if err != nil {
			return nil, err
		}
		normalized[spec.Name] = value
	}

	var missing []string
	for _, name := range def.RequiredParams() {
		if normalized[name] == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, domain.ErrMissingParameter(
			"missing required parameters for %q: %s", queryID, strings.Join(missing, ", "))
	}

	return bind(def, normalized), nil
}

// normalizeValue validates a single value against its spec. Absent or
// empty optional values normalize to nil and bind as SQL NULL.
func normalizeValue(spec *registry.ParameterSpec, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}

	// The deny-list scan runs before type checks: a type-correct string can
	// still smuggle a dangerous substring.
	if s, ok := raw.(string); ok {
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			return nil, nil
		}
		if token, hit := scanDangerous(trimmed); hit {
			return nil, domain.ErrDangerousInput(
				"value for %q contains blocked token %q", spec.Name, strings.TrimSpace(token))
		}
		raw = trimmed
	}

	switch spec.Type {
	case registry.TypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, domain.ErrInvalidParameterValue(
				"parameter %q must be a string, got %T", spec.Name, raw)
		}
		if !spec.MatchPattern(s) {
			return nil, domain.ErrInvalidParameterValue(
				"parameter %q does not match the allowed pattern", spec.Name)
		}
		return s, nil

	case registry.TypeDate:
		switch v := raw.(type) {
		case string:
			t, err := time.Parse(dateLayout, v)
			if err != nil {
				return nil, domain.ErrInvalidParameterValue(
					"parameter %q must be a date in YYYY-MM-DD form", spec.Name)
			}
			return t.Format(dateLayout), nil
		case time.Time:
			return v.Format(dateLayout), nil
		default:
			return nil, domain.ErrInvalidParameterValue(
				"parameter %q must be a date, got %T", spec.Name, raw)
		}

	case registry.TypeInt:
		n, err := toInt64(raw)
		if err != nil {
			return nil, domain.ErrInvalidParameterValue(
				"parameter %q must be an integer", spec.Name)
		}
		if err := checkRange(spec, float64(n)); err != nil {
			return nil, err
		}
		return n, nil

	case registry.TypeFloat:
		f, err := toFloat64(raw)
		if err != nil {
			return nil, domain.ErrInvalidParameterValue(
				"parameter %q must be a number", spec.Name)
		}
		if err := checkRange(spec, f); err != nil {
			return nil, err
		}
		return f, nil
	}

	return nil, domain.ErrInvalidParameterValue(
		"parameter %q has unsupported type %q", spec.Name, spec.Type)
}

// scanDangerous reports the first deny-listed token found in the
// case-folded, whitespace-collapsed value.
func scanDangerous(value string) (string, bool) {
	folded := strings.ToLower(strings.Join(strings.Fields(value), " "))
	scan := " " + folded + " "
	for _, token := range dangerousTokens {
		if strings.Contains(scan, token) {
			return token, true
		}
	}
	return "", false
}

func checkRange(spec *registry.ParameterSpec, v float64) error {
	if spec.Min != nil && v < *spec.Min {
		return domain.ErrInvalidParameterValue(
			"parameter %q is below the minimum %v", spec.Name, *spec.Min)
	}
	if spec.Max != nil && v > *spec.Max {
		return domain.ErrInvalidParameterValue(
			"parameter %q is above the maximum %v", spec.Name, *spec.Max)
	}
	return nil
}

func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		n := int64(v)
		if float64(n) != v {
			return 0, fmt.Errorf("not an integer: %v", v)
		}
		return n, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	}
	return 0, fmt.Errorf("unsupported type %T", raw)
}

func toFloat64(raw any) (float64, error) {
	switch v := raw.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		return strconv.ParseFloat(v, 64)
	}
	return 0, fmt.Errorf("unsupported type %T", raw)
}

// bind rewrites named placeholders to positional markers and collects the
// bind arguments in order of occurrence. A placeholder referenced more
// than once contributes one argument per occurrence.
func bind(def *registry.QueryDefinition, normalized map[string]any) *BoundQuery {
	names := registry.Placeholders(def.SQL)
	args := make([]any, 0, len(names))
	for _, name := range names {
		args = append(args, normalized[name])
	}

	return &BoundQuery{
		QueryID: def.QueryID,
		SQL:     registry.RewritePositional(def.SQL),
		Args:    args,
	}
}
