package models

type HealthResponse struct {
	Status               string `json:"status"`
	Service              string `json:"service"`
	Version              string `json:"version"`
	PerplexityConfigured bool   `json:"perplexity_configured"`
	Scoring              bool   `json:"scoring"`
	Store                string `json:"store"`
}
