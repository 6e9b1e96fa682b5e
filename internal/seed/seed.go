// Package seed holds the core identity memories written into a new bank.
package seed

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Set is a seed file: named groups of memories attributed to one speaker.
type Set struct {
	Speaker string  `yaml:"speaker"`
	Groups  []Group `yaml:"groups"`
}

type Group struct {
	Name     string   `yaml:"name"`
	Memories []string `yaml:"memories"`
}

// Default returns the built-in seed set.
func Default() Set {
	s, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("seed: embedded default.yaml: %v", err))
	}
	return s
}

// Load reads a seed set from path. An empty path returns Default.
func Load(path string) (Set, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("read seed file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return Set{}, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a YAML seed set. A missing speaker defaults to "AI".
func Parse(data []byte) (Set, error) {
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Set{}, err
	}
	if s.Speaker == "" {
		s.Speaker = "AI"
	}
	for _, g := range s.Groups {
		for _, m := range g.Memories {
			if strings.TrimSpace(m) == "" {
				return Set{}, fmt.Errorf("group %q: empty memory", g.Name)
			}
		}
	}
	return s, nil
}

// Contents returns the record bodies in file order, each prefixed with the
// speaker.
func (s Set) Contents() []string {
	var out []string
	for _, g := range s.Groups {
		for _, m := range g.Memories {
			out = append(out, s.Speaker+": "+strings.TrimSpace(m))
		}
	}
	return out
}
