package models

type Criterion string

const (
	CriterionDesign    Criterion = "design"
	CriterionAnimation Criterion = "animation"
	CriterionUX        Criterion = "ux"
	CriterionFunctions Criterion = "functions"
)

// Criteria lists the rubric criteria in display order.
var Criteria = []Criterion{CriterionDesign, CriterionAnimation, CriterionUX, CriterionFunctions}

type ThreatLevel string

const (
	ThreatLevelLow    ThreatLevel = "low"
	ThreatLevelMedium ThreatLevel = "medium"
	ThreatLevelHigh   ThreatLevel = "high"
)

type Score struct {
	Design          float64               `json:"design"`
	Animation       float64               `json:"animation"`
	UX              float64               `json:"ux"`
	Functions       float64               `json:"functions"`
	Overall         float64               `json:"overall"`
	ThreatLevel     ThreatLevel           `json:"threat_level"`
	StrengthsFocus  map[Criterion]float64 `json:"strengths_focus"`
	Recommendations []string              `json:"recommendations"`
}

// Get returns the score for a single criterion.
func (s Score) Get(c Criterion) float64 {
	switch c {
	case CriterionDesign:
		return s.Design
	case CriterionAnimation:
		return s.Animation
	case CriterionUX:
		return s.UX
	case CriterionFunctions:
		return s.Functions
	}
	return 0
}
