package analysis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/a-h/competitionmonitor/db"
	"github.com/a-h/competitionmonitor/models"
	"github.com/a-h/competitionmonitor/perplexity"
	"github.com/a-h/competitionmonitor/scoring"
	"github.com/google/go-cmp/cmp"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeProvider struct {
	result perplexity.Result
	err    error

	calls int
	text  string
	image *perplexity.Image
}

func (f *fakeProvider) Analyze(ctx context.Context, text string, image *perplexity.Image) (perplexity.Result, error) {
	f.calls++
	f.text = text
	f.image = image
	return f.result, f.err
}

type fakeFetcher struct {
	page models.ParsedPage
	err  error
}

func (f fakeFetcher) Fetch(ctx context.Context, url string) (models.ParsedPage, error) {
	f.page.URL = url
	return f.page, f.err
}

func newClock() func() time.Time {
	t := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func newStore(t *testing.T) db.Store {
	t.Helper()
	s, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var figmaResult = perplexity.Result{
	Text: `{"strengths": ["Pixel perfect design"], "summary": "Strong AI roadmap."}`,
	Analysis: models.CompetitorAnalysis{
		Strengths:       []string{"Pixel perfect design", "AI assistant"},
		Weaknesses:      []string{"High price"},
		UniqueOffers:    []string{},
		Opportunities:   []string{"Offline mode"},
		Recommendations: []string{},
		Summary:         "Strong AI roadmap.",
	},
	TokensUsed: 321,
}

const figmaText = "Figma is a collaborative interface design tool."

func TestValidateText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{name: "empty text is rejected", text: "", wantErr: true},
		{name: "whitespace is rejected", text: "   \n\t", wantErr: true},
		{name: "short text is rejected", text: "Figma", wantErr: true},
		{name: "ten runes are accepted", text: "Фигма Фигм", wantErr: false},
		{name: "five thousand runes are accepted", text: strings.Repeat("я", 5000), wantErr: false},
		{name: "longer text is rejected", text: strings.Repeat("a", 5001), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateText(tt.text)
			if tt.wantErr && !errors.Is(err, ErrInvalidText) {
				t.Errorf("expected ErrInvalidText, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid text is not sent upstream", func(t *testing.T) {
		p := &fakeProvider{result: figmaResult}
		s := New(discard, p, newStore(t))
		_, err := s.Analyze(ctx, "alice", models.AnalyzeRequest{Text: "short"})
		if !errors.Is(err, ErrInvalidText) {
			t.Errorf("expected ErrInvalidText, got %v", err)
		}
		if p.calls != 0 {
			t.Errorf("expected no upstream calls, got %d", p.calls)
		}
	})
	t.Run("scores cannot be requested when scoring is disabled", func(t *testing.T) {
		p := &fakeProvider{result: figmaResult}
		s := New(discard, p, newStore(t))
		_, err := s.Analyze(ctx, "alice", models.AnalyzeRequest{Text: figmaText, Score: true})
		if !errors.Is(err, ErrScoringDisabled) {
			t.Errorf("expected ErrScoringDisabled, got %v", err)
		}
	})
	t.Run("upstream errors are returned and nothing is stored", func(t *testing.T) {
		store := newStore(t)
		p := &fakeProvider{err: perplexity.ErrTimeout}
		s := New(discard, p, store)
		_, err := s.Analyze(ctx, "alice", models.AnalyzeRequest{Text: figmaText})
		if !errors.Is(err, perplexity.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
		if n, _ := store.AnalysisCount(ctx, "alice"); n != 0 {
			t.Errorf("expected nothing stored, got %d", n)
		}
	})
	t.Run("scored analyses are stored and can be retrieved", func(t *testing.T) {
		scorer := scoring.New(scoring.DefaultRubric())
		s := New(discard, &fakeProvider{result: figmaResult}, newStore(t), WithScorer(scorer), WithClock(newClock()))
		resp, err := s.Analyze(ctx, "alice", models.AnalyzeRequest{Text: "  " + figmaText + "  ", Score: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.ID == 0 {
			t.Error("expected a stored ID")
		}
		if resp.Competitor != DefaultCompetitor {
			t.Errorf("expected default competitor, got %q", resp.Competitor)
		}
		if resp.Query != figmaText {
			t.Errorf("expected trimmed query, got %q", resp.Query)
		}
		if resp.Kind != models.AnalysisKindText {
			t.Errorf("expected text kind, got %q", resp.Kind)
		}
		if resp.Score == nil {
			t.Fatal("expected a score")
		}
		if diff := cmp.Diff(scorer.Score(figmaResult.Analysis), *resp.Score); diff != "" {
			t.Errorf("unexpected score: %v", diff)
		}

		stored, ok, err := s.Get(ctx, "alice", resp.ID)
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if !ok {
			t.Fatal("expected analysis to be found")
		}
		if diff := cmp.Diff(resp, stored); diff != "" {
			t.Errorf("unexpected stored analysis: %v", diff)
		}

		if _, ok, _ := s.Get(ctx, "bob", resp.ID); ok {
			t.Error("expected analysis to be hidden from other owners")
		}
	})
	t.Run("images are decoded and sent upstream", func(t *testing.T) {
		p := &fakeProvider{result: figmaResult}
		s := New(discard, p, newStore(t))
		resp, err := s.Analyze(ctx, "alice", models.AnalyzeRequest{
			Competitor:  "Figma",
			ImageBase64: "data:image/jpeg;base64,cG5n",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Kind != models.AnalysisKindImage {
			t.Errorf("expected image kind, got %q", resp.Kind)
		}
		expected := &perplexity.Image{MIMEType: "image/jpeg", Data: []byte("png")}
		if diff := cmp.Diff(expected, p.image); diff != "" {
			t.Errorf("unexpected image: %v", diff)
		}
		if p.text != imagePrompt {
			t.Errorf("expected the default image prompt, got %q", p.text)
		}
	})
	t.Run("bare base64 images use the given type", func(t *testing.T) {
		p := &fakeProvider{result: figmaResult}
		s := New(discard, p, newStore(t))
		_, err := s.Analyze(ctx, "alice", models.AnalyzeRequest{Text: figmaText, ImageBase64: "cG5n"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.image.MIMEType != DefaultImageType {
			t.Errorf("expected %q, got %q", DefaultImageType, p.image.MIMEType)
		}
		if p.text != figmaText {
			t.Errorf("expected the text to be sent, got %q", p.text)
		}
	})
	t.Run("invalid images are rejected", func(t *testing.T) {
		s := New(discard, &fakeProvider{result: figmaResult}, newStore(t))
		for _, img := range []string{"not base64!", "data:text/plain;base64,cG5n", "data:image/png,cG5n"} {
			_, err := s.Analyze(ctx, "alice", models.AnalyzeRequest{ImageBase64: img})
			if !errors.Is(err, ErrInvalidImage) {
				t.Errorf("%q: expected ErrInvalidImage, got %v", img, err)
			}
		}
	})
	t.Run("history is pruned to the retention limit", func(t *testing.T) {
		store := newStore(t)
		s := New(discard, &fakeProvider{result: figmaResult}, store, WithMaxHistory(2), WithClock(newClock()))
		var ids []int64
		for i := 0; i < 3; i++ {
			resp, err := s.Analyze(ctx, "alice", models.AnalyzeRequest{Text: figmaText})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			ids = append(ids, resp.ID)
		}
		if n, _ := store.AnalysisCount(ctx, "alice"); n != 2 {
			t.Errorf("expected 2 analyses, got %d", n)
		}
		if _, ok, _ := s.Get(ctx, "alice", ids[0]); ok {
			t.Error("expected the oldest analysis to be pruned")
		}
	})
}

func TestParse(t *testing.T) {
	ctx := context.Background()
	page := models.ParsedPage{
		Title:          "Figma",
		H1:             "Design together",
		FirstParagraph: "Collaborative design in the browser.",
	}

	t.Run("page text is analyzed and stored", func(t *testing.T) {
		p := &fakeProvider{result: figmaResult}
		s := New(discard, p, newStore(t), WithFetcher(fakeFetcher{page: page}))
		resp, err := s.Parse(ctx, "alice", models.ParseRequest{URL: "https://figma.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.text != "Figma\nDesign together\nCollaborative design in the browser." {
			t.Errorf("unexpected prompt %q", p.text)
		}
		if resp.Analysis.Kind != models.AnalysisKindParse {
			t.Errorf("expected parse kind, got %q", resp.Analysis.Kind)
		}
		if resp.Analysis.Competitor != "Figma" {
			t.Errorf("expected the title as competitor, got %q", resp.Analysis.Competitor)
		}
		if resp.Analysis.Query != "https://figma.com" {
			t.Errorf("expected the URL as query, got %q", resp.Analysis.Query)
		}
	})
	t.Run("empty pages are rejected", func(t *testing.T) {
		p := &fakeProvider{result: figmaResult}
		s := New(discard, p, newStore(t), WithFetcher(fakeFetcher{}))
		_, err := s.Parse(ctx, "alice", models.ParseRequest{URL: "https://example.com"})
		if !errors.Is(err, ErrInvalidText) {
			t.Errorf("expected ErrInvalidText, got %v", err)
		}
		if p.calls != 0 {
			t.Errorf("expected no upstream calls, got %d", p.calls)
		}
	})
	t.Run("fetch errors are returned", func(t *testing.T) {
		fetchErr := errors.New("connection refused")
		s := New(discard, &fakeProvider{}, newStore(t), WithFetcher(fakeFetcher{err: fetchErr}))
		_, err := s.Parse(ctx, "alice", models.ParseRequest{URL: "https://example.com"})
		if !errors.Is(err, fetchErr) {
			t.Errorf("expected fetch error, got %v", err)
		}
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	long := perplexity.Result{
		Text:     "raw",
		Analysis: models.CompetitorAnalysis{Summary: strings.Repeat("s", 600)},
	}
	p := &fakeProvider{result: long}
	s := New(discard, p, newStore(t), WithScorer(scoring.New(scoring.DefaultRubric())), WithClock(newClock()))

	first, err := s.Analyze(ctx, "alice", models.AnalyzeRequest{Text: strings.Repeat("q", 300), Competitor: "Canva"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.result = figmaResult
	second, err := s.Analyze(ctx, "alice", models.AnalyzeRequest{Text: figmaText, Competitor: "Figma", Score: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err = s.Analyze(ctx, "bob", models.AnalyzeRequest{Text: figmaText}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("items are newest first and summarised", func(t *testing.T) {
		actual, err := s.History(ctx, "alice", 0, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if actual.Total != 2 || len(actual.Items) != 2 {
			t.Fatalf("expected 2 items, got %+v", actual)
		}
		expected := models.HistoryItem{
			ID:              second.ID,
			Kind:            models.AnalysisKindText,
			Competitor:      "Figma",
			RequestSummary:  figmaText,
			ResponseSummary: "Strong AI roadmap.",
			Scored:          true,
			TokensUsed:      321,
			CreatedAt:       second.CreatedAt,
		}
		if diff := cmp.Diff(expected, actual.Items[0]); diff != "" {
			t.Error(diff)
		}
		if actual.Items[1].ID != first.ID {
			t.Errorf("expected the first analysis last, got %d", actual.Items[1].ID)
		}
		if n := len(actual.Items[1].RequestSummary); n != 200 {
			t.Errorf("expected request summary of 200, got %d", n)
		}
		if n := len(actual.Items[1].ResponseSummary); n != 500 {
			t.Errorf("expected response summary of 500, got %d", n)
		}
	})
	t.Run("pages are applied", func(t *testing.T) {
		actual, err := s.History(ctx, "alice", 1, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(actual.Items) != 1 || actual.Items[0].ID != first.ID {
			t.Errorf("expected only the first analysis, got %+v", actual.Items)
		}
		if actual.Total != 2 {
			t.Errorf("expected total of 2, got %d", actual.Total)
		}
	})
	t.Run("stats are per owner", func(t *testing.T) {
		actual, err := s.Stats(ctx, "alice")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := models.HistoryStats{
			TotalRequests:   2,
			TextRequests:    2,
			ScoredRequests:  1,
			TotalTokensUsed: 321,
		}
		if diff := cmp.Diff(expected, actual); diff != "" {
			t.Error(diff)
		}
	})
	t.Run("compare scores unscored analyses", func(t *testing.T) {
		actual, err := s.Compare(ctx, "alice", []int64{first.ID, second.ID, second.ID, 9999})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(actual.Competitors) != 2 {
			t.Fatalf("expected 2 competitors, got %d", len(actual.Competitors))
		}
		if actual.Ranking[0].Competitor != "Figma" {
			t.Errorf("expected Figma to rank first, got %+v", actual.Ranking)
		}
	})
	t.Run("compare requires ids that exist", func(t *testing.T) {
		if _, err := s.Compare(ctx, "alice", nil); !errors.Is(err, ErrNoIDs) {
			t.Errorf("expected ErrNoIDs, got %v", err)
		}
		if _, err := s.Compare(ctx, "bob", []int64{first.ID}); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
	t.Run("delete and clear only affect the owner", func(t *testing.T) {
		ok, err := s.Delete(ctx, "bob", first.ID)
		if err != nil || ok {
			t.Errorf("expected no deletion, got %v, %v", ok, err)
		}
		ok, err = s.Delete(ctx, "alice", first.ID)
		if err != nil || !ok {
			t.Errorf("expected deletion, got %v, %v", ok, err)
		}
		n, err := s.Clear(ctx, "alice")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 cleared, got %d", n)
		}
		bob, _ := s.History(ctx, "bob", 10, 0)
		if bob.Total != 1 {
			t.Errorf("expected bob's history to remain, got %d", bob.Total)
		}
	})
}
