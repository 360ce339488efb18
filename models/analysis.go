package models

import "time"

type AnalysisKind string

const (
	AnalysisKindText  AnalysisKind = "text"
	AnalysisKindImage AnalysisKind = "image"
	AnalysisKindParse AnalysisKind = "parse"
)

type AnalyzeRequest struct {
	// Text describing the competitor.
	Text string `json:"text"`

	// Competitor name, defaults to "Competitor".
	Competitor string `json:"competitor"`

	// Score requests the rubric scores.
	Score bool `json:"score"`

	// ImageBase64 is an optional screenshot or marketing image to analyze
	// alongside the text.
	ImageBase64 string `json:"image_base64,omitempty"`
	ImageType   string `json:"image_type,omitempty"`
}

type AnalyzeResponse struct {
	ID         int64              `json:"id"`
	Kind       AnalysisKind       `json:"kind"`
	Competitor string             `json:"competitor"`
	Query      string             `json:"query"`
	Text       string             `json:"text"`
	Analysis   CompetitorAnalysis `json:"analysis"`
	Score      *Score             `json:"score,omitempty"`
	TokensUsed int                `json:"tokens_used"`
	CreatedAt  time.Time          `json:"created_at"`
}

type CompetitorAnalysis struct {
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	UniqueOffers    []string `json:"unique_offers"`
	Opportunities   []string `json:"opportunities"`
	Recommendations []string `json:"recommendations"`
	Summary         string   `json:"summary"`
}

type AskRequest struct {
	Text string `json:"text"`
}

type AskResponse struct {
	Answer string `json:"answer"`
}
