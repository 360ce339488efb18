package models

type CompareRequest struct {
	IDs []int64 `json:"ids"`
}

type CompareResponse struct {
	Competitors  []ComparedCompetitor `json:"competitors"`
	Ranking      []RankedCompetitor   `json:"ranking"`
	ThreatLevels ThreatLevelCounts    `json:"threat_levels"`
	Market       MarketAnalysis       `json:"market"`
}

type ComparedCompetitor struct {
	ID         int64              `json:"id"`
	Competitor string             `json:"competitor"`
	Analysis   CompetitorAnalysis `json:"analysis"`
	Score      Score              `json:"score"`
}

type RankedCompetitor struct {
	ID         int64       `json:"id"`
	Competitor string      `json:"competitor"`
	Overall    float64     `json:"overall"`
	Threat     ThreatLevel `json:"threat_level"`
}

type ThreatLevelCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

type MarketMaturity string

const (
	MarketMaturityEmerging MarketMaturity = "emerging"
	MarketMaturityGrowing  MarketMaturity = "growing"
	MarketMaturityMature   MarketMaturity = "mature"
)

type MarketAnalysis struct {
	AvgDesign    float64        `json:"avg_design"`
	AvgAnimation float64        `json:"avg_animation"`
	AvgUX        float64        `json:"avg_ux"`
	AvgFunctions float64        `json:"avg_functions"`
	Maturity     MarketMaturity `json:"maturity"`
}
