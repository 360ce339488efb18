package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/a-h/competitionmonitor/analysis"
	"github.com/a-h/competitionmonitor/auth"
	"github.com/a-h/competitionmonitor/db"
	analysisdelete "github.com/a-h/competitionmonitor/handlers/analysis/delete"
	analysisget "github.com/a-h/competitionmonitor/handlers/analysis/get"
	analyzetextget "github.com/a-h/competitionmonitor/handlers/analyzetext/get"
	analyzetextpost "github.com/a-h/competitionmonitor/handlers/analyzetext/post"
	askpost "github.com/a-h/competitionmonitor/handlers/ask/post"
	chatpost "github.com/a-h/competitionmonitor/handlers/chat/post"
	comparepost "github.com/a-h/competitionmonitor/handlers/compare/post"
	exportpdfget "github.com/a-h/competitionmonitor/handlers/exportpdf/get"
	healthget "github.com/a-h/competitionmonitor/handlers/health/get"
	historydelete "github.com/a-h/competitionmonitor/handlers/history/delete"
	historyget "github.com/a-h/competitionmonitor/handlers/history/get"
	parsepost "github.com/a-h/competitionmonitor/handlers/parse/post"
	rootget "github.com/a-h/competitionmonitor/handlers/root/get"
	statsget "github.com/a-h/competitionmonitor/handlers/stats/get"
	"github.com/a-h/competitionmonitor/perplexity"
	"github.com/a-h/competitionmonitor/ratelimit"
	"github.com/a-h/competitionmonitor/report"
	"github.com/a-h/competitionmonitor/scoring"
	"github.com/rqlite/gorqlite"
	"github.com/rs/cors"
	"github.com/tmc/langchaingo/llms"
)

type ServeCommand struct {
	ListenAddr        string        `help:"The address to listen on." env:"LISTEN_ADDR" default:"localhost:8000"`
	Store             string        `help:"The history store to use." env:"STORE" enum:"sqlite,rqlite" default:"sqlite"`
	SQLitePath        string        `name:"sqlite-path" help:"The SQLite database file." env:"SQLITE_PATH" default:"analyses.db"`
	RqliteURL         string        `help:"The URL of the rqlite server." env:"RQLITE_URL" default:"http://localhost:4001"`
	PerplexityAPIKey  string        `help:"The Perplexity API key." env:"PERPLEXITY_API_KEY" default:""`
	PerplexityBaseURL string        `help:"The Perplexity API base URL." env:"PERPLEXITY_BASE_URL" default:"https://api.perplexity.ai"`
	PerplexityModel   string        `help:"The Perplexity model to use." env:"PERPLEXITY_MODEL" default:"sonar"`
	PerplexityTimeout time.Duration `help:"The timeout for Perplexity requests." env:"PERPLEXITY_TIMEOUT" default:"30s"`
	SystemPrompt      string        `help:"A file containing the analysis system prompt." env:"SYSTEM_PROMPT" default:""`
	ScoringEnabled    bool          `help:"Enable the keyword scoring post-processor." env:"SCORING_ENABLED" default:"true" negatable:""`
	RubricFile        string        `help:"A YAML file containing the scoring rubric." env:"RUBRIC_FILE" default:""`
	MaxHistoryItems   int           `help:"The number of analyses kept per user, 0 for unlimited." env:"MAX_HISTORY_ITEMS" default:"10"`
	APIKeysFile       string        `help:"The file containing a JSON map of API keys to usernames. Authentication is disabled when empty." env:"API_KEYS_FILE" default:""`
	RateLimit         int           `help:"Requests per minute allowed per caller, 0 to disable." env:"RATE_LIMIT" default:"30"`
	RateBurst         int           `help:"The burst size of the rate limiter." env:"RATE_BURST" default:"5"`
	PDFFontFile       string        `help:"A UTF-8 TrueType font used for PDF reports, defaults to a system DejaVu Sans if one is installed." env:"PDF_FONT_FILE" default:""`
	TLSCertFile       string        `help:"The TLS certificate file." env:"TLS_CERT_FILE" default:""`
	TLSKeyFile        string        `help:"The TLS key file." env:"TLS_KEY_FILE" default:""`
	LogLevel          string        `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

var endpoints = []string{
	"GET /health",
	"GET /analyzetext",
	"GET /analyzetext/scored",
	"POST /analyzetext",
	"POST /ask",
	"POST /chat",
	"POST /parse",
	"GET /history",
	"GET /history/stats",
	"DELETE /history",
	"GET /analysis/{id}",
	"DELETE /analysis/{id}",
	"GET /export-pdf/{id}",
	"POST /compare",
}

func readFileOrDefault(filename, defaultContent string) (string, error) {
	if filename == "" {
		return defaultContent, nil
	}
	contents, err := os.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return string(contents), nil
}

func (c ServeCommand) openStore(log *slog.Logger) (store db.Store, closer func() error, err error) {
	if c.Store == "rqlite" {
		log.Info("connecting to database", slog.String("url", c.RqliteURL))
		databaseURL, err := db.ParseRqliteURL(c.RqliteURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse rqlite URL: %w", err)
		}
		conn, err := gorqlite.Open(databaseURL.DataSourceName())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open connection: %w", err)
		}
		log.Info("migrating database schema")
		version, err := db.Migrate(databaseURL)
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Info("database schema migrated", slog.Uint64("version", uint64(version)))
		return db.New(conn), func() error { conn.Close(); return nil }, nil
	}
	log.Info("opening database", slog.String("path", c.SQLitePath))
	s, err := db.OpenSQLite(c.SQLitePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return s, s.Close, nil
}

func (c ServeCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)

	systemPrompt, err := readFileOrDefault(c.SystemPrompt, "")
	if err != nil {
		return fmt.Errorf("failed to read system prompt: %w", err)
	}

	store, closeStore, err := c.openStore(log)
	if err != nil {
		return err
	}
	defer closeStore()

	log.Info("creating LLM client", slog.String("model", c.PerplexityModel))
	var llm llms.Model
	llm, err = perplexity.NewModel(c.PerplexityAPIKey, c.PerplexityBaseURL, c.PerplexityModel, &http.Client{})
	if errors.Is(err, perplexity.ErrNotConfigured) {
		log.Warn("PERPLEXITY_API_KEY is not set, analysis endpoints will return 503")
		llm, err = nil, nil
	}
	if err != nil {
		return fmt.Errorf("failed to create LLM: %w", err)
	}
	pc := perplexity.New(log, llm, perplexity.WithTimeout(c.PerplexityTimeout), perplexity.WithSystemPrompt(systemPrompt))

	opts := []analysis.Option{analysis.WithMaxHistory(c.MaxHistoryItems)}
	if c.ScoringEnabled {
		rubric, err := scoring.LoadRubric(c.RubricFile)
		if err != nil {
			return fmt.Errorf("failed to load rubric: %w", err)
		}
		opts = append(opts, analysis.WithScorer(scoring.New(rubric)))
	}
	svc := analysis.New(log, pc, store, opts...)

	fontFile := c.PDFFontFile
	if fontFile == "" {
		fontFile = report.FindFont(report.SystemFonts...)
	}
	pdf, err := report.New(fontFile)
	if err != nil {
		return fmt.Errorf("failed to configure PDF reports: %w", err)
	}
	if pdf.UTF8() {
		log.Info("PDF reports use a Unicode font", slog.String("font", fontFile))
	} else {
		log.Warn("no Unicode font found for PDF reports, characters outside cp1252 such as Cyrillic will be dropped; set PDF_FONT_FILE to a TrueType font like DejaVuSans.ttf")
	}

	mux := http.NewServeMux()
	mux.Handle("GET /", rootget.New(svc.ScoringEnabled(), endpoints))
	mux.Handle("GET /health", healthget.New(log, store, healthget.Options{
		PerplexityConfigured: pc.Configured(),
		ScoringEnabled:       svc.ScoringEnabled(),
		StoreName:            c.Store,
	}))
	mux.Handle("GET /analyzetext", analyzetextget.New(log, svc, false))
	mux.Handle("GET /analyzetext/scored", analyzetextget.New(log, svc, true))
	mux.Handle("POST /analyzetext", analyzetextpost.New(log, svc))
	mux.Handle("POST /ask", askpost.New(log, pc))
	mux.Handle("POST /chat", chatpost.New(log, pc))
	mux.Handle("POST /parse", parsepost.New(log, svc))
	mux.Handle("GET /history", historyget.New(log, svc))
	mux.Handle("GET /history/stats", statsget.New(log, svc))
	mux.Handle("DELETE /history", historydelete.New(log, svc))
	mux.Handle("GET /analysis/{id}", analysisget.New(log, svc))
	mux.Handle("DELETE /analysis/{id}", analysisdelete.New(log, svc))
	mux.Handle("GET /export-pdf/{id}", exportpdfget.New(log, svc, pdf))
	mux.Handle("POST /compare", comparepost.New(log, svc))

	var apiKeyToUserName map[string]string
	if c.APIKeysFile != "" {
		apiKeyToUserName, err = auth.LoadFromFile(c.APIKeysFile)
		if err != nil {
			return fmt.Errorf("failed to load API keys: %w", err)
		}
	} else {
		log.Warn("API_KEYS_FILE is not set, authentication is disabled")
	}
	rateLimitedMux := ratelimit.New(log, c.RateLimit, c.RateBurst, mux)
	authenticatedMux := auth.New(log, apiKeyToUserName, rateLimitedMux)
	withCORSAuthenticatedMux := cors.AllowAll().Handler(authenticatedMux)

	log.Info("Listening", slog.String("addr", c.ListenAddr), slog.Bool("scoring", svc.ScoringEnabled()), slog.String("store", c.Store))
	s := &http.Server{
		Addr:              c.ListenAddr,
		Handler:           withCORSAuthenticatedMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if c.TLSCertFile != "" && c.TLSKeyFile != "" {
		log.Info("Enabling TLS mode")
		var cert tls.Certificate
		cert, err = tls.LoadX509KeyPair(c.TLSCertFile, c.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("failed to load cert: %w", err)
		}
		s.TLSConfig = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{cert},
		}
		return s.ListenAndServeTLS(c.TLSCertFile, c.TLSKeyFile)
	}
	return s.ListenAndServe()
}
