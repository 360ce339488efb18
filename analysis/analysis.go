package analysis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/a-h/competitionmonitor/db"
	"github.com/a-h/competitionmonitor/models"
	"github.com/a-h/competitionmonitor/perplexity"
	"github.com/a-h/competitionmonitor/scoring"
	"github.com/a-h/competitionmonitor/scrape"
)

const (
	MinTextRunes      = 10
	MaxTextRunes      = 5000
	DefaultCompetitor = "Competitor"
	DefaultImageType  = "image/png"

	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100

	requestSummaryRunes  = 200
	responseSummaryRunes = 500

	imagePrompt = "Analyse the competitor product shown in this image."
)

var (
	ErrInvalidText     = errors.New("invalid text")
	ErrInvalidImage    = errors.New("invalid image")
	ErrScoringDisabled = errors.New("scoring is disabled")
	ErrNoIDs           = errors.New("at least one id is required")
	ErrNotFound        = errors.New("analysis not found")
)

// Provider produces a structured competitor analysis.
type Provider interface {
	Analyze(ctx context.Context, text string, image *perplexity.Image) (perplexity.Result, error)
}

// PageFetcher downloads and extracts a competitor's web page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (models.ParsedPage, error)
}

type Option func(*Service)

// WithScorer enables scoring. Without a scorer, requests for scores fail with
// ErrScoringDisabled.
func WithScorer(scorer *scoring.Scorer) Option {
	return func(s *Service) {
		s.scorer = scorer
	}
}

func WithFetcher(f PageFetcher) Option {
	return func(s *Service) {
		s.fetcher = f
	}
}

// WithMaxHistory sets how many analyses are kept per owner. Zero keeps everything.
func WithMaxHistory(n int) Option {
	return func(s *Service) {
		s.maxHistory = max(n, 0)
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(log *slog.Logger, provider Provider, store db.Store, opts ...Option) *Service {
	s := &Service{
		log:      log,
		provider: provider,
		store:    store,
		fetcher:  scrape.New(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type Service struct {
	log        *slog.Logger
	provider   Provider
	store      db.Store
	scorer     *scoring.Scorer
	fetcher    PageFetcher
	maxHistory int
	now        func() time.Time
}

func (s *Service) ScoringEnabled() bool {
	return s.scorer != nil
}

func (s *Service) MaxHistory() int {
	return s.maxHistory
}

// ValidateText checks that text is within the accepted length.
func ValidateText(text string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n == 0 {
		return fmt.Errorf("%w: text is required", ErrInvalidText)
	}
	if n < MinTextRunes || n > MaxTextRunes {
		return fmt.Errorf("%w: text must be between %d and %d characters, got %d", ErrInvalidText, MinTextRunes, MaxTextRunes, n)
	}
	return nil
}

// Analyze sends the request to the provider, optionally scores the result and
// stores it in the owner's history.
func (s *Service) Analyze(ctx context.Context, owner string, req models.AnalyzeRequest) (resp models.AnalyzeResponse, err error) {
	req.Text = strings.TrimSpace(req.Text)
	var image *perplexity.Image
	if req.ImageBase64 != "" {
		if image, err = decodeImage(req.ImageBase64, req.ImageType); err != nil {
			return resp, err
		}
	}
	// Images may be sent without a description.
	if image == nil || req.Text != "" {
		if err = ValidateText(req.Text); err != nil {
			return resp, err
		}
	}
	if req.Score && !s.ScoringEnabled() {
		return resp, ErrScoringDisabled
	}

	kind, prompt := models.AnalysisKindText, req.Text
	if image != nil {
		kind = models.AnalysisKindImage
		if prompt == "" {
			prompt = imagePrompt
		}
	}
	return s.analyze(ctx, owner, request{
		kind:       kind,
		competitor: competitorOrDefault(req.Competitor),
		query:      req.Text,
		prompt:     prompt,
		image:      image,
		score:      req.Score,
	})
}

// Parse fetches a competitor's web page and analyzes its content.
func (s *Service) Parse(ctx context.Context, owner string, req models.ParseRequest) (resp models.ParseResponse, err error) {
	if req.Score && !s.ScoringEnabled() {
		return resp, ErrScoringDisabled
	}
	resp.Page, err = s.fetcher.Fetch(ctx, strings.TrimSpace(req.URL))
	if err != nil {
		return resp, err
	}
	text := scrape.Text(resp.Page)
	if text == "" {
		return resp, fmt.Errorf("%w: no text found at %q", ErrInvalidText, resp.Page.URL)
	}
	competitor := req.Competitor
	if competitor == "" {
		competitor = resp.Page.Title
	}
	resp.Analysis, err = s.analyze(ctx, owner, request{
		kind:       models.AnalysisKindParse,
		competitor: competitorOrDefault(competitor),
		query:      resp.Page.URL,
		prompt:     text,
		score:      req.Score,
	})
	return resp, err
}

type request struct {
	kind       models.AnalysisKind
	competitor string
	query      string
	prompt     string
	image      *perplexity.Image
	score      bool
}

func (s *Service) analyze(ctx context.Context, owner string, req request) (resp models.AnalyzeResponse, err error) {
	result, err := s.provider.Analyze(ctx, req.prompt, req.image)
	if err != nil {
		return resp, err
	}
	resp = models.AnalyzeResponse{
		Kind:       req.kind,
		Competitor: req.competitor,
		Query:      req.query,
		Text:       result.Text,
		Analysis:   result.Analysis,
		TokensUsed: result.TokensUsed,
		CreatedAt:  s.now().UTC().Truncate(time.Millisecond),
	}
	if req.score {
		score := s.scorer.Score(result.Analysis)
		resp.Score = &score
	}

	row, err := newRow(owner, resp)
	if err != nil {
		return resp, err
	}
	if resp.ID, err = s.store.AnalysisPut(ctx, row); err != nil {
		return resp, fmt.Errorf("failed to store analysis: %w", err)
	}
	s.log.Info("analysis stored", slog.Int64("id", resp.ID), slog.String("kind", string(resp.Kind)), slog.String("competitor", resp.Competitor), slog.Bool("scored", resp.Score != nil), slog.Int("tokens", resp.TokensUsed))

	if s.maxHistory > 0 {
		if err = s.store.AnalysisPrune(ctx, owner, s.maxHistory); err != nil {
			s.log.Warn("failed to prune history", slog.String("owner", owner), slog.Any("error", err))
		}
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, owner string, id int64) (resp models.AnalyzeResponse, ok bool, err error) {
	row, ok, err := s.store.AnalysisGet(ctx, owner, id)
	if err != nil || !ok {
		return resp, ok, err
	}
	resp, err = fromRow(row)
	return resp, err == nil, err
}

func (s *Service) Delete(ctx context.Context, owner string, id int64) (ok bool, err error) {
	return s.store.AnalysisDelete(ctx, owner, id)
}

func (s *Service) Clear(ctx context.Context, owner string) (n int64, err error) {
	return s.store.AnalysisClear(ctx, owner)
}

// History returns the owner's analyses, newest first.
func (s *Service) History(ctx context.Context, owner string, limit, offset int) (resp models.HistoryResponse, err error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, MaxHistoryLimit)
	offset = max(offset, 0)

	rows, err := s.store.AnalysisList(ctx, owner, limit, offset)
	if err != nil {
		return resp, err
	}
	total, err := s.store.AnalysisCount(ctx, owner)
	if err != nil {
		return resp, err
	}
	resp.Total = int(total)
	resp.Items = make([]models.HistoryItem, 0, len(rows))
	for _, row := range rows {
		a, err := fromRow(row)
		if err != nil {
			return resp, err
		}
		resp.Items = append(resp.Items, historyItem(a))
	}
	return resp, nil
}

func historyItem(a models.AnalyzeResponse) models.HistoryItem {
	request := a.Query
	if request == "" {
		request = fmt.Sprintf("[%s] %s", a.Kind, a.Competitor)
	}
	response := a.Analysis.Summary
	if response == "" {
		response = a.Text
	}
	return models.HistoryItem{
		ID:              a.ID,
		Kind:            a.Kind,
		Competitor:      a.Competitor,
		RequestSummary:  truncate(request, requestSummaryRunes),
		ResponseSummary: truncate(response, responseSummaryRunes),
		Scored:          a.Score != nil,
		TokensUsed:      a.TokensUsed,
		CreatedAt:       a.CreatedAt,
	}
}

func (s *Service) Stats(ctx context.Context, owner string) (stats models.HistoryStats, err error) {
	st, err := s.store.AnalysisStats(ctx, owner)
	if err != nil {
		return stats, err
	}
	return models.HistoryStats{
		TotalRequests:   int(st.Total),
		TextRequests:    int(st.Text),
		ImageRequests:   int(st.Image),
		ParseRequests:   int(st.Parse),
		ScoredRequests:  int(st.Scored),
		TotalTokensUsed: int(st.TokensUsed),
		MaxItems:        s.maxHistory,
	}, nil
}

// Compare ranks stored analyses against each other. Analyses stored without a
// score are scored now. Unknown ids are skipped.
func (s *Service) Compare(ctx context.Context, owner string, ids []int64) (resp models.CompareResponse, err error) {
	if len(ids) == 0 {
		return resp, ErrNoIDs
	}
	seen := make(map[int64]bool, len(ids))
	var entries []scoring.Entry
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		a, ok, err := s.Get(ctx, owner, id)
		if err != nil {
			return resp, err
		}
		if !ok {
			s.log.Debug("skipping unknown analysis", slog.Int64("id", id))
			continue
		}
		if a.Score == nil {
			if !s.ScoringEnabled() {
				return resp, ErrScoringDisabled
			}
			score := s.scorer.Score(a.Analysis)
			a.Score = &score
		}
		entries = append(entries, scoring.Entry{
			ID:         a.ID,
			Competitor: a.Competitor,
			Analysis:   a.Analysis,
			Score:      *a.Score,
		})
	}
	if len(entries) == 0 {
		return resp, ErrNotFound
	}
	return scoring.Compare(entries), nil
}

func decodeImage(data, mimeType string) (*perplexity.Image, error) {
	// Accept data URLs as well as bare base64.
	if rest, ok := strings.CutPrefix(data, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return nil, fmt.Errorf("%w: malformed data URL", ErrInvalidImage)
		}
		mimeType, data = strings.TrimSuffix(meta, ";base64"), payload
	}
	if mimeType == "" {
		mimeType = DefaultImageType
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: unsupported type %q", ErrInvalidImage, mimeType)
	}
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: image is empty", ErrInvalidImage)
	}
	return &perplexity.Image{MIMEType: mimeType, Data: b}, nil
}

func competitorOrDefault(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return DefaultCompetitor
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}

func newRow(owner string, a models.AnalyzeResponse) (row db.Analysis, err error) {
	analysisJSON, err := json.Marshal(a.Analysis)
	if err != nil {
		return row, fmt.Errorf("failed to encode analysis: %w", err)
	}
	row = db.Analysis{
		Owner:      owner,
		Kind:       string(a.Kind),
		Competitor: a.Competitor,
		Query:      a.Query,
		Answer:     a.Text,
		Analysis:   string(analysisJSON),
		TokensUsed: int64(a.TokensUsed),
		CreatedAt:  a.CreatedAt,
	}
	if a.Score != nil {
		scoreJSON, err := json.Marshal(a.Score)
		if err != nil {
			return row, fmt.Errorf("failed to encode score: %w", err)
		}
		row.Score = string(scoreJSON)
	}
	return row, nil
}

func fromRow(row db.Analysis) (a models.AnalyzeResponse, err error) {
	a = models.AnalyzeResponse{
		ID:         row.ID,
		Kind:       models.AnalysisKind(row.Kind),
		Competitor: row.Competitor,
		Query:      row.Query,
		Text:       row.Answer,
		TokensUsed: int(row.TokensUsed),
		CreatedAt:  row.CreatedAt,
	}
	if err = json.Unmarshal([]byte(row.Analysis), &a.Analysis); err != nil {
		return a, fmt.Errorf("failed to decode analysis %d: %w", row.ID, err)
	}
	if row.Score != "" {
		a.Score = new(models.Score)
		if err = json.Unmarshal([]byte(row.Score), a.Score); err != nil {
			return a, fmt.Errorf("failed to decode score %d: %w", row.ID, err)
		}
	}
	return a, nil
}
