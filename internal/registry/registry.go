// Package registry holds the static allowlist of executable queries. Each
// entry maps a symbolic query_id to a parameterized SQL template and its
// parameter schema. Definitions are authored in an embedded YAML document
// and resolved per SQL dialect at load time; the registry is immutable
// afterwards.
package registry

import (
	"fmt"
	"regexp"
	"sort"

	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed registry.yaml
var registryYAML []byte

// Parameter value types.
const (
	TypeString = "string"
	TypeDate   = "date"
	TypeInt    = "int"
	TypeFloat  = "float"
)

// ParameterSpec declares one named placeholder: its type, whether it is
// required, and an optional pattern or range constraint.
type ParameterSpec struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	Required bool     `yaml:"required"`
	Pattern  string   `yaml:"pattern"`
	Min      *float64 `yaml:"min"`
	Max      *float64 `yaml:"max"`

	pattern *regexp.Regexp
}

// MatchPattern reports whether value satisfies the spec's pattern. Specs
// without a pattern accept everything.
func (p *ParameterSpec) MatchPattern(value string) bool {
	if p.pattern == nil {
		return true
	}
	return p.pattern.MatchString(value)
}

// QueryDefinition is one allowlisted query: the dialect-resolved SQL
// template with named placeholders plus the parameter schema.
type QueryDefinition struct {
	QueryID     string
	Description string
	SQL         string
	Params      []ParameterSpec
}

// Param returns the spec for a parameter name.
func (d *QueryDefinition) Param(name string) (*ParameterSpec, bool) {
	for i := range d.Params {
		if d.Params[i].Name == name {
			return &d.Params[i], true
		}
	}
	return nil, false
}

// RequiredParams returns the names of all required parameters.
func (d *QueryDefinition) RequiredParams() []string {
	var names []string
	for _, p := range d.Params {
		if p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}

// OptionalParams returns the names of all optional parameters.
func (d *QueryDefinition) OptionalParams() []string {
	var names []string
	for _, p := range d.Params {
		if !p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}

// Registry is the immutable set of all QueryDefinitions for one dialect.
type Registry struct {
	defs  map[string]*QueryDefinition
	order []string
}

type registryFile struct {
	Queries []struct {
		QueryID     string            `yaml:"query_id"`
		Description string            `yaml:"description"`
		Params      []ParameterSpec   `yaml:"params"`
		SQL         map[string]string `yaml:"sql"`
	} `yaml:"queries"`
}

// placeholderRE matches named placeholders of the form :name in templates.
var placeholderRE = regexp.MustCompile(`:([a-zA-Z_][a-zA-Z0-9_]*)`)

// Load parses the embedded registry document and resolves templates for
// the given SQL dialect. It fails if a template references an undeclared
// placeholder, declares an unused parameter, or has no variant for the
// dialect.
func Load(dialect string) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(registryYAML, &file); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	r := &Registry{defs: make(map[string]*QueryDefinition, len(file.Queries))}

	for _, q := range file.Queries {
		if q.QueryID == "" {
			return nil, fmt.Errorf("registry entry with empty query_id")
		}
		if _, exists := r.defs[q.QueryID]; exists {
			return nil, fmt.Errorf("duplicate query_id %q", q.QueryID)
		}

		sqlText, ok := q.SQL[dialect]
		if !ok {
			return nil, fmt.Errorf("query %q has no SQL variant for dialect %q", q.QueryID, dialect)
		}

		def := &QueryDefinition{
			QueryID:     q.QueryID,
			Description: q.Description,
			SQL:         sqlText,
			Params:      q.Params,
		}

		for i := range def.Params {
			p := &def.Params[i]
			if p.Name == "" {
				return nil, fmt.Errorf("query %q: parameter with empty name", q.QueryID)
			}
			switch p.Type {
			case TypeString, TypeDate, TypeInt, TypeFloat:
			default:
				return nil, fmt.Errorf("query %q: parameter %q has unknown type %q", q.QueryID, p.Name, p.Type)
			}
			if p.Pattern != "" {
				re, err := regexp.Compile(p.Pattern)
				if err != nil {
					return nil, fmt.Errorf("query %q: parameter %q pattern: %w", q.QueryID, p.Name, err)
				}
				p.pattern = re
			}
		}

		// Cross-check placeholders against the declared schema.
		declared := make(map[string]bool, len(def.Params))
		for _, p := range def.Params {
			declared[p.Name] = true
		}
		used := make(map[string]bool)
		for _, name := range Placeholders(sqlText) {
			used[name] = true
			if !declared[name] {
				return nil, fmt.Errorf("query %q: placeholder :%s has no parameter spec", q.QueryID, name)
			}
		}
		for name := range declared {
			if !used[name] {
				return nil, fmt.Errorf("query %q: parameter %q is not referenced by the template", q.QueryID, name)
			}
		}

		r.defs[q.QueryID] = def
		r.order = append(r.order, q.QueryID)
	}

	sort.Strings(r.order)
	return r, nil
}

// Get returns the definition for a query_id.
func (r *Registry) Get(queryID string) (*QueryDefinition, bool) {
	def, ok := r.defs[queryID]
	return def, ok
}

// List returns all definitions sorted by query_id.
func (r *Registry) List() []*QueryDefinition {
	defs := make([]*QueryDefinition, 0, len(r.order))
	for _, id := range r.order {
		defs = append(defs, r.defs[id])
	}
	return defs
}

// Placeholders returns the named placeholders of a template in order of
// occurrence, including repeats.
func Placeholders(sqlText string) []string {
	var names []string
	for _, m := range placeholderRE.FindAllStringSubmatch(sqlText, -1) {
		names = append(names, m[1])
	}
	return names
}

// RewritePositional rewrites every named placeholder to the positional
// marker "?" understood by both supported drivers.
func RewritePositional(sqlText string) string {
	return placeholderRE.ReplaceAllString(sqlText, "?")
}
