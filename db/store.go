package db

import (
	"context"
	"time"
)

// Store persists analysis history. Every operation is scoped to an owner.
type Store interface {
	AnalysisPut(ctx context.Context, a Analysis) (id int64, err error)
	AnalysisGet(ctx context.Context, owner string, id int64) (a Analysis, ok bool, err error)
	// AnalysisList returns analyses newest first.
	AnalysisList(ctx context.Context, owner string, limit, offset int) (analyses []Analysis, err error)
	AnalysisCount(ctx context.Context, owner string) (n int64, err error)
	AnalysisDelete(ctx context.Context, owner string, id int64) (ok bool, err error)
	AnalysisClear(ctx context.Context, owner string) (n int64, err error)
	// AnalysisPrune deletes all but the newest keep analyses.
	AnalysisPrune(ctx context.Context, owner string, keep int) (err error)
	AnalysisStats(ctx context.Context, owner string) (stats Stats, err error)
	Ping(ctx context.Context) error
}

type Analysis struct {
	ID         int64
	Owner      string
	Kind       string
	Competitor string
	Query      string
	Answer     string
	// Analysis is the JSON encoded structured analysis.
	Analysis string
	// Score is the JSON encoded score, or empty if the analysis was not scored.
	Score      string
	TokensUsed int64
	CreatedAt  time.Time
}

type Stats struct {
	Total      int64
	Text       int64
	Image      int64
	Parse      int64
	Scored     int64
	TokensUsed int64
}

const statsColumns = `count(*) as total,
  coalesce(sum(case when kind = 'text' then 1 else 0 end), 0) as text,
  coalesce(sum(case when kind = 'image' then 1 else 0 end), 0) as image,
  coalesce(sum(case when kind = 'parse' then 1 else 0 end), 0) as parse,
  coalesce(sum(case when score != '' then 1 else 0 end), 0) as scored,
  coalesce(sum(tokens_used), 0) as tokens_used`
