package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultSkills is the catalog used when no SKILLS_FILE is configured.
var DefaultSkills = []string{
	"First-Aid",
	"Animal Handling",
	"Cooking",
	"Sewing",
	"Communication",
	"Fundraising",
	"Security",
	"Logistics",
}

// SkillCatalog is the closed set of skill labels volunteers can claim and
// events can require.  Lookups are case-insensitive; the catalog spelling is
// what gets stored.
type SkillCatalog struct {
	Skills []string `yaml:"skills"`
	index  map[string]string
}

// NewSkillCatalog builds a catalog from labels, dropping blanks and duplicates.
func NewSkillCatalog(labels []string) SkillCatalog {
	c := SkillCatalog{index: make(map[string]string, len(labels))}
	for _, l := range labels {
		l = strings.TrimSpace(l)
		key := strings.ToLower(l)
		if l == "" {
			continue
		}
		if _, dup := c.index[key]; dup {
			continue
		}
		c.index[key] = l
		c.Skills = append(c.Skills, l)
	}
	return c
}

// LoadSkillCatalog reads a YAML document of the form
//
//	skills:
//	  - First-Aid
//	  - Cooking
//
// An empty path yields the default catalog.
func LoadSkillCatalog(path string) (SkillCatalog, error) {
	if path == "" {
		return NewSkillCatalog(DefaultSkills), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return SkillCatalog{}, fmt.Errorf("read skills file: %w", err)
	}
	var doc struct {
		Skills []string `yaml:"skills"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return SkillCatalog{}, fmt.Errorf("parse skills file: %w", err)
	}
	cat := NewSkillCatalog(doc.Skills)
	if len(cat.Skills) == 0 {
		return SkillCatalog{}, fmt.Errorf("skills file %s lists no skills", path)
	}
	return cat, nil
}

// Canonical returns the catalog spelling of label.
func (c SkillCatalog) Canonical(label string) (string, bool) {
	s, ok := c.index[strings.ToLower(strings.TrimSpace(label))]
	return s, ok
}

// Normalize maps every label to its catalog spelling, removing duplicates.
// The first label missing from the catalog is returned as the second value.
func (c SkillCatalog) Normalize(labels []string) ([]string, string) {
	out := make([]string, 0, len(labels))
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		s, ok := c.Canonical(l)
		if !ok {
			return nil, l
		}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out, ""
}
