package scoring

import (
	"cmp"
	"slices"
	"strings"

	"github.com/a-h/competitionmonitor/models"
	"github.com/shopspring/decimal"
)

const (
	maxScore = 10.0

	highThreshold   = 7.5
	mediumThreshold = 5.0

	// Criteria scored below this get a recommendation.
	weakThreshold = 5.0
	// Functions scored above this, with no AI weakness, trigger the AI warning.
	aiThreatThreshold = 6.0
)

func New(rubric Rubric) *Scorer {
	return &Scorer{
		rubric: rubric.normalize(),
	}
}

// Scorer applies a keyword rubric to competitor analyses. It holds no mutable
// state and is safe for concurrent use.
type Scorer struct {
	rubric Rubric
}

func (s *Scorer) Rubric() Rubric {
	return s.rubric
}

// ScoreText scores text against a single criterion, from 0 to 10, rounded to
// two decimal places.
func (s *Scorer) ScoreText(text string, c models.Criterion) float64 {
	return round(scoreText(text, s.rubric.For(c)))
}

func scoreText(text string, groups []KeywordGroup) float64 {
	if text == "" || len(groups) == 0 {
		return 0
	}
	text = strings.ToLower(text)
	var score, total float64
	for _, g := range groups {
		total += g.Weight
		for _, k := range g.Keywords {
			if strings.Contains(text, k) {
				score += g.Weight
				break
			}
		}
	}
	if total <= 0 {
		return 0
	}
	return min(maxScore, score/total*maxScore)
}

// Score rates an analysis against every criterion of the rubric.
func (s *Scorer) Score(a models.CompetitorAnalysis) (score models.Score) {
	combined := strings.Join([]string{
		strings.Join(a.Strengths, " "),
		strings.Join(a.Weaknesses, " "),
		strings.Join(a.UniqueOffers, " "),
		a.Summary,
	}, " ")

	design := scoreText(combined, s.rubric.Design)
	animation := scoreText(combined, s.rubric.Animation)
	ux := scoreText(combined, s.rubric.UX)
	functions := scoreText(combined, s.rubric.Functions)
	overall := (design + animation + ux + functions) / 4

	strengths := strings.Join(a.Strengths, " ")
	score.StrengthsFocus = make(map[models.Criterion]float64, len(models.Criteria))
	for _, c := range models.Criteria {
		score.StrengthsFocus[c] = round(scoreText(strengths, s.rubric.For(c)))
	}

	score.Design = round(design)
	score.Animation = round(animation)
	score.UX = round(ux)
	score.Functions = round(functions)
	score.Overall = round(overall)
	score.ThreatLevel = ThreatLevelFor(overall)
	score.Recommendations = recommendations(design, animation, ux, functions, a.Weaknesses)
	return score
}

func ThreatLevelFor(overall float64) models.ThreatLevel {
	switch {
	case overall >= highThreshold:
		return models.ThreatLevelHigh
	case overall >= mediumThreshold:
		return models.ThreatLevelMedium
	default:
		return models.ThreatLevelLow
	}
}

func MaturityFor(avg float64) models.MarketMaturity {
	switch {
	case avg >= highThreshold:
		return models.MarketMaturityMature
	case avg >= mediumThreshold:
		return models.MarketMaturityGrowing
	default:
		return models.MarketMaturityEmerging
	}
}

func recommendations(design, animation, ux, functions float64, weaknesses []string) (recs []string) {
	recs = []string{}
	if design < weakThreshold {
		recs = append(recs, "Improve interface design: invest in UI/UX.")
	}
	if animation < weakThreshold {
		recs = append(recs, "Add micro-animations to improve interaction.")
	}
	if functions < weakThreshold {
		recs = append(recs, "Expand functionality, especially AI features.")
	}
	if ux < weakThreshold {
		recs = append(recs, "Improve accessibility and ergonomics of the interface.")
	}
	w := strings.ToLower(strings.Join(weaknesses, " "))
	if strings.Contains(w, "цена") || strings.Contains(w, "price") {
		recs = append(recs, "Compete on quality rather than price.")
	}
	if !strings.Contains(w, "ai") && functions > aiThreatThreshold {
		recs = append(recs, "The competitor actively uses AI: treat it as a threat.")
	}
	return recs
}

// Entry is a stored, scored analysis taking part in a comparison.
type Entry struct {
	ID         int64
	Competitor string
	Analysis   models.CompetitorAnalysis
	Score      models.Score
}

// Compare ranks entries by overall score, highest first. Ties keep ascending
// ID order.
func Compare(entries []Entry) (resp models.CompareResponse) {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b Entry) int {
		if c := cmp.Compare(b.Score.Overall, a.Score.Overall); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	resp.Competitors = make([]models.ComparedCompetitor, len(entries))
	for i, e := range entries {
		resp.Competitors[i] = models.ComparedCompetitor{
			ID:         e.ID,
			Competitor: e.Competitor,
			Analysis:   e.Analysis,
			Score:      e.Score,
		}
	}
	resp.Ranking = make([]models.RankedCompetitor, len(sorted))
	for i, e := range sorted {
		resp.Ranking[i] = models.RankedCompetitor{
			ID:         e.ID,
			Competitor: e.Competitor,
			Overall:    e.Score.Overall,
			Threat:     e.Score.ThreatLevel,
		}
		switch e.Score.ThreatLevel {
		case models.ThreatLevelHigh:
			resp.ThreatLevels.High++
		case models.ThreatLevelMedium:
			resp.ThreatLevels.Medium++
		default:
			resp.ThreatLevels.Low++
		}
	}
	resp.Market = market(entries)
	return resp
}

func market(entries []Entry) (m models.MarketAnalysis) {
	if len(entries) == 0 {
		m.Maturity = models.MarketMaturityEmerging
		return m
	}
	var design, animation, ux, functions float64
	for _, e := range entries {
		design += e.Score.Design
		animation += e.Score.Animation
		ux += e.Score.UX
		functions += e.Score.Functions
	}
	n := float64(len(entries))
	design, animation, ux, functions = design/n, animation/n, ux/n, functions/n
	m.AvgDesign = round(design)
	m.AvgAnimation = round(animation)
	m.AvgUX = round(ux)
	m.AvgFunctions = round(functions)
	m.Maturity = MaturityFor((design + animation + ux + functions) / 4)
	return m
}

func round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
