package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

type CLI struct {
	Serve   ServeCommand   `cmd:"serve" help:"Start the competition monitor server."`
	Analyze AnalyzeCommand `cmd:"analyze" help:"Analyze a description or screenshot of a competitor."`
	Parse   ParseCommand   `cmd:"parse" help:"Fetch a competitor web page and analyze it."`
	Ask     AskCommand     `cmd:"ask" help:"Ask Perplexity a question."`
	Chat    ChatCommand    `cmd:"chat" help:"Chat with Perplexity through the server."`
	History HistoryCommand `cmd:"history" help:"List, inspect or clear stored analyses."`
	Export  ExportCommand  `cmd:"export" help:"Save an analysis as a PDF report."`
	Compare CompareCommand `cmd:"compare" help:"Compare stored analyses."`
	Import  ImportCommand  `cmd:"import" help:"Analyze competitors stored in a Pocketbase collection."`
	Version VersionCommand `cmd:"version" help:"Print the version of the competition monitor."`
}

func main() {
	// Values already in the environment take precedence over .env.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		getLogger("error").Error("failed to load .env file", slog.Any("error", err))
		os.Exit(1)
	}
	var cli CLI
	ctx := context.Background()
	kctx := kong.Parse(&cli, kong.UsageOnError(), kong.BindTo(ctx, (*context.Context)(nil)))
	if err := kctx.Run(); err != nil {
		log := getLogger("error")
		log.Error("error", slog.Any("error", err))
		os.Exit(1)
	}
}

func getLogger(level string) *slog.Logger {
	ll := slog.LevelInfo
	switch level {
	case "debug":
		ll = slog.LevelDebug
	case "info":
		ll = slog.LevelInfo
	case "warn":
		ll = slog.LevelWarn
	case "error":
		ll = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: ll,
	}))
}
