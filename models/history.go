package models

import "time"

type HistoryItem struct {
	ID              int64        `json:"id"`
	Kind            AnalysisKind `json:"kind"`
	Competitor      string       `json:"competitor"`
	RequestSummary  string       `json:"request_summary"`
	ResponseSummary string       `json:"response_summary"`
	Scored          bool         `json:"scored"`
	TokensUsed      int          `json:"tokens_used"`
	CreatedAt       time.Time    `json:"created_at"`
}

type HistoryResponse struct {
	Items []HistoryItem `json:"items"`
	Total int           `json:"total"`
}

type HistoryStats struct {
	TotalRequests   int `json:"total_requests"`
	TextRequests    int `json:"text_requests"`
	ImageRequests   int `json:"image_requests"`
	ParseRequests   int `json:"parse_requests"`
	ScoredRequests  int `json:"scored_requests"`
	TotalTokensUsed int `json:"total_tokens_used"`
	// MaxItems is the retention limit, 0 when history is unlimited.
	MaxItems int `json:"max_items"`
}
