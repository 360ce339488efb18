package models

type ParseRequest struct {
	URL        string `json:"url"`
	Competitor string `json:"competitor"`
	Score      bool   `json:"score"`
}

type ParsedPage struct {
	URL             string `json:"url"`
	Title           string `json:"title"`
	H1              string `json:"h1"`
	MetaDescription string `json:"meta_description"`
	FirstParagraph  string `json:"first_paragraph"`
}

type ParseResponse struct {
	Page     ParsedPage      `json:"page"`
	Analysis AnalyzeResponse `json:"analysis"`
}
