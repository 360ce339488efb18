package perplexity

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/a-h/competitionmonitor/models"
)

var ErrUnparsable = errors.New("perplexity: response did not contain a JSON object")

var (
	fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	outerBraces = regexp.MustCompile(`(?s)\{.*\}`)
)

// ExtractJSON finds the JSON object in model output that may be wrapped in a
// markdown code fence or surrounded by prose.
func ExtractJSON(content string) (string, error) {
	if m := fencedBlock.FindStringSubmatch(content); m != nil {
		content = m[1]
	}
	m := outerBraces.FindString(content)
	if m == "" {
		return "", ErrUnparsable
	}
	return m, nil
}

// stringList accepts either a JSON array of strings or a single string.
type stringList []string

func (sl *stringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*sl = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s = strings.TrimSpace(s); s != "" {
		*sl = stringList{s}
	}
	return nil
}

type analysisJSON struct {
	Strengths       stringList `json:"strengths"`
	Weaknesses      stringList `json:"weaknesses"`
	UniqueOffers    stringList `json:"unique_offers"`
	Opportunities   stringList `json:"opportunities"`
	Recommendations stringList `json:"recommendations"`
	Summary         string     `json:"summary"`
}

func orEmpty(sl stringList) []string {
	if sl == nil {
		return []string{}
	}
	return sl
}

// ParseAnalysis decodes a competitor analysis from model output.
func ParseAnalysis(content string) (a models.CompetitorAnalysis, err error) {
	js, err := ExtractJSON(content)
	if err != nil {
		return a, err
	}
	var aj analysisJSON
	if err = json.Unmarshal([]byte(js), &aj); err != nil {
		return a, fmt.Errorf("%w: %w", ErrUnparsable, err)
	}
	return models.CompetitorAnalysis{
		Strengths:       orEmpty(aj.Strengths),
		Weaknesses:      orEmpty(aj.Weaknesses),
		UniqueOffers:    orEmpty(aj.UniqueOffers),
		Opportunities:   orEmpty(aj.Opportunities),
		Recommendations: orEmpty(aj.Recommendations),
		Summary:         aj.Summary,
	}, nil
}
