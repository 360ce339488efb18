// Package analysistest provides an analysis service backed by an in-memory
// store and a fake provider, for testing HTTP handlers.
package analysistest

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/a-h/competitionmonitor/analysis"
	"github.com/a-h/competitionmonitor/db"
	"github.com/a-h/competitionmonitor/models"
	"github.com/a-h/competitionmonitor/perplexity"
	"github.com/a-h/competitionmonitor/scoring"
)

var Discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// Result is returned by the Provider unless changed.
var Result = perplexity.Result{
	Text: `{"strengths": ["Pixel perfect design", "AI assistant"], "weaknesses": ["High price"], "summary": "Market leader."}`,
	Analysis: models.CompetitorAnalysis{
		Strengths:       []string{"Pixel perfect design", "AI assistant"},
		Weaknesses:      []string{"High price"},
		UniqueOffers:    []string{},
		Opportunities:   []string{},
		Recommendations: []string{},
		Summary:         "Market leader.",
	},
	TokensUsed: 100,
}

// Provider returns a fixed result or error.
type Provider struct {
	m      sync.Mutex
	Result perplexity.Result
	Err    error
	Calls  int
}

func (p *Provider) Analyze(ctx context.Context, text string, image *perplexity.Image) (perplexity.Result, error) {
	p.m.Lock()
	defer p.m.Unlock()
	p.Calls++
	return p.Result, p.Err
}

type Fetcher struct {
	Page models.ParsedPage
	Err  error
}

func (f Fetcher) Fetch(ctx context.Context, url string) (models.ParsedPage, error) {
	page := f.Page
	page.URL = url
	return page, f.Err
}

// New creates a scoring enabled service with an in-memory store.
func New(t *testing.T, opts ...analysis.Option) (*analysis.Service, *Provider, db.Store) {
	t.Helper()
	store, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	p := &Provider{Result: Result}
	base := []analysis.Option{
		analysis.WithScorer(scoring.New(scoring.DefaultRubric())),
		analysis.WithClock(clock()),
	}
	svc := analysis.New(Discard, p, store, append(base, opts...)...)
	return svc, p, store
}

func clock() func() time.Time {
	var m sync.Mutex
	t := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		m.Lock()
		defer m.Unlock()
		t = t.Add(time.Minute)
		return t
	}
}
