package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/a-h/competitionmonitor/report"
	"github.com/dustin/go-humanize"
)

type ExportCommand struct {
	ServerFlags `embed:""`
	ID          int64  `arg:"" help:"The ID of the analysis to export."`
	Output      string `help:"The file to write, defaults to analysis_<id>.pdf." short:"o"`
}

func (c ExportCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)
	name := c.Output
	if name == "" {
		name = report.Filename(c.ID)
	}
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()
	if err = c.Client().ExportPDF(ctx, c.ID, f); err != nil {
		os.Remove(name)
		return fmt.Errorf("failed to export analysis: %w", err)
	}
	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat output file: %w", err)
	}
	log.Info("exported analysis", slog.Int64("id", c.ID), slog.String("file", name), slog.String("size", humanize.Bytes(uint64(fi.Size()))))
	return nil
}
