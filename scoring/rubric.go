package scoring

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/a-h/competitionmonitor/models"
	"gopkg.in/yaml.v3"
)

//go:embed rubric.yaml
var defaultRubric []byte

// KeywordGroup scores Weight once if any of Keywords appears in the text.
type KeywordGroup struct {
	Weight   float64  `yaml:"weight"`
	Keywords []string `yaml:"keywords"`
}

type Rubric struct {
	Design    []KeywordGroup `yaml:"design"`
	Animation []KeywordGroup `yaml:"animation"`
	UX        []KeywordGroup `yaml:"ux"`
	Functions []KeywordGroup `yaml:"functions"`
}

func (r Rubric) For(c models.Criterion) []KeywordGroup {
	switch c {
	case models.CriterionDesign:
		return r.Design
	case models.CriterionAnimation:
		return r.Animation
	case models.CriterionUX:
		return r.UX
	case models.CriterionFunctions:
		return r.Functions
	}
	return nil
}

func (r Rubric) Validate() (err error) {
	var errs []error
	for _, c := range models.Criteria {
		groups := r.For(c)
		if len(groups) == 0 {
			errs = append(errs, fmt.Errorf("%s: no keyword groups", c))
			continue
		}
		for i, g := range groups {
			if g.Weight <= 0 {
				errs = append(errs, fmt.Errorf("%s[%d]: weight must be positive, got %v", c, i, g.Weight))
			}
			if len(g.Keywords) == 0 {
				errs = append(errs, fmt.Errorf("%s[%d]: no keywords", c, i))
			}
		}
	}
	return errors.Join(errs...)
}

// normalize lower-cases keywords so matching only has to lower-case the text.
func (r Rubric) normalize() Rubric {
	n := func(groups []KeywordGroup) []KeywordGroup {
		out := make([]KeywordGroup, len(groups))
		for i, g := range groups {
			out[i].Weight = g.Weight
			out[i].Keywords = make([]string, 0, len(g.Keywords))
			for _, k := range g.Keywords {
				if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
					out[i].Keywords = append(out[i].Keywords, k)
				}
			}
		}
		return out
	}
	return Rubric{
		Design:    n(r.Design),
		Animation: n(r.Animation),
		UX:        n(r.UX),
		Functions: n(r.Functions),
	}
}

func ParseRubric(data []byte) (r Rubric, err error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err = dec.Decode(&r); err != nil {
		return r, fmt.Errorf("scoring: failed to decode rubric: %w", err)
	}
	if err = r.Validate(); err != nil {
		return r, fmt.Errorf("scoring: invalid rubric: %w", err)
	}
	return r.normalize(), nil
}

// DefaultRubric returns the built-in design tools rubric.
func DefaultRubric() Rubric {
	r, err := ParseRubric(defaultRubric)
	if err != nil {
		panic(err)
	}
	return r
}

// LoadRubric reads a rubric from a YAML file, or returns the default rubric
// if name is empty.
func LoadRubric(name string) (Rubric, error) {
	if name == "" {
		return DefaultRubric(), nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return Rubric{}, fmt.Errorf("scoring: failed to read rubric file %s: %w", name, err)
	}
	return ParseRubric(data)
}
