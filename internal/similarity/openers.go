package similarity

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// OpenerPattern removes a trailing supporting-act clause from a billing title.
type OpenerPattern struct {
	Name string `yaml:"name"`
	Expr string `yaml:"expr"`
}

type openerFile struct {
	Patterns []OpenerPattern `yaml:"patterns"`
}

// DefaultOpenerPatterns covers the billing conventions seen on venue listings:
// "w/", "with", "feat."/"featuring", "+" and a trailing "and ...".
func DefaultOpenerPatterns() []OpenerPattern {
	return []OpenerPattern{
		{Name: "w_slash", Expr: `(?i)\s+w/\s*.*$`},
		{Name: "with", Expr: `(?i)\s+with\s+.*$`},
		{Name: "featuring", Expr: `(?i)\s+feat(?:uring|\.)?\s+.*$`},
		{Name: "plus", Expr: `\s+\+\s*.*$`},
		{Name: "and", Expr: `(?i)\s+and\s+.*$`},
	}
}

// LoadOpenerPatterns reads a YAML file of the form:
//
//	patterns:
//	  - name: w_slash
//	    expr: '(?i)\s+w/\s*.*$'
func LoadOpenerPatterns(path string) ([]OpenerPattern, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read opener patterns %q: %w", path, err)
	}
	var f openerFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode opener patterns %q: %w", path, err)
	}
	if len(f.Patterns) == 0 {
		return nil, fmt.Errorf("opener patterns %q: no patterns defined", path)
	}
	return f.Patterns, nil
}

// Openers strips opener clauses from titles to expose the headliner.
type Openers struct {
	patterns []*regexp.Regexp
}

func CompileOpeners(patterns []OpenerPattern) (*Openers, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for i, p := range patterns {
		expr := strings.TrimSpace(p.Expr)
		if expr == "" {
			return nil, fmt.Errorf("opener pattern %d (%s): expr is empty", i, p.Name)
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("opener pattern %d (%s): %w", i, p.Name, err)
		}
		compiled = append(compiled, re)
	}
	return &Openers{patterns: compiled}, nil
}

// Headliner applies every pattern in order and returns what is left of title.
func (o *Openers) Headliner(title string) string {
	out := strings.TrimSpace(title)
	if o == nil {
		return out
	}
	for _, re := range o.patterns {
		out = strings.TrimSpace(re.ReplaceAllString(out, ""))
	}
	return out
}
