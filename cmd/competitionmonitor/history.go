package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/a-h/competitionmonitor/models"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
)

type HistoryCommand struct {
	List   HistoryListCommand   `cmd:"list" default:"1" help:"List recent analyses, newest first."`
	Show   HistoryShowCommand   `cmd:"show" help:"Print an analysis as JSON."`
	Stats  HistoryStatsCommand  `cmd:"stats" help:"Print history statistics."`
	Delete HistoryDeleteCommand `cmd:"delete" help:"Delete an analysis."`
	Clear  HistoryClearCommand  `cmd:"clear" help:"Delete all of your analyses."`
}

type HistoryListCommand struct {
	ServerFlags `embed:""`
	Limit       int `help:"The number of analyses to list." default:"10"`
	Offset      int `help:"The number of analyses to skip." default:"0"`
}

func (c HistoryListCommand) Run(ctx context.Context) (err error) {
	resp, err := c.Client().HistoryGet(ctx, c.Limit, c.Offset)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}
	fmt.Println(historyTable(resp.Items, time.Now()))
	fmt.Printf("%d of %d analyses\n", len(resp.Items), resp.Total)
	return nil
}

type HistoryShowCommand struct {
	ServerFlags `embed:""`
	ID          int64 `arg:"" help:"The ID of the analysis."`
}

func (c HistoryShowCommand) Run(ctx context.Context) (err error) {
	resp, err := c.Client().AnalysisGet(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("failed to get analysis: %w", err)
	}
	return writeJSON(os.Stdout, resp, true)
}

type HistoryStatsCommand struct {
	ServerFlags `embed:""`
}

func (c HistoryStatsCommand) Run(ctx context.Context) (err error) {
	stats, err := c.Client().HistoryStatsGet(ctx)
	if err != nil {
		return fmt.Errorf("failed to get history stats: %w", err)
	}
	fmt.Println(statsTable(stats))
	return nil
}

type HistoryDeleteCommand struct {
	ServerFlags `embed:""`
	ID          int64 `arg:"" help:"The ID of the analysis."`
}

func (c HistoryDeleteCommand) Run(ctx context.Context) (err error) {
	if err = c.Client().AnalysisDelete(ctx, c.ID); err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	fmt.Printf("Deleted analysis %d\n", c.ID)
	return nil
}

type HistoryClearCommand struct {
	ServerFlags `embed:""`
}

func (c HistoryClearCommand) Run(ctx context.Context) (err error) {
	n, err := c.Client().HistoryDelete(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	fmt.Printf("Deleted %s analyses\n", humanize.Comma(n))
	return nil
}

var (
	tableBorderStyle = lipgloss.NewStyle().Foreground(Comment)
	tableHeaderStyle = lipgloss.NewStyle().Foreground(Purple).Bold(true).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// headerRow is the row index lipgloss passes to StyleFunc for the headers.
const headerRow = 0

func cellStyle(row, col int) lipgloss.Style {
	if row == headerRow {
		return tableHeaderStyle
	}
	return tableCellStyle
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tableBorderStyle).
		StyleFunc(cellStyle).
		Headers(headers...)
}

func historyTable(items []models.HistoryItem, now time.Time) string {
	t := newTable("ID", "Kind", "Competitor", "Request", "Scored", "Tokens", "Created")
	for _, item := range items {
		scored := ""
		if item.Scored {
			scored = "yes"
		}
		t.Row(
			strconv.FormatInt(item.ID, 10),
			string(item.Kind),
			item.Competitor,
			ellipsis(item.RequestSummary, 40),
			scored,
			humanize.Comma(int64(item.TokensUsed)),
			humanize.RelTime(item.CreatedAt, now, "ago", "from now"),
		)
	}
	return t.String()
}

func statsTable(stats models.HistoryStats) string {
	maxItems := "unlimited"
	if stats.MaxItems > 0 {
		maxItems = strconv.Itoa(stats.MaxItems)
	}
	return newTable("Statistic", "Value").
		Row("Total requests", humanize.Comma(int64(stats.TotalRequests))).
		Row("Text requests", humanize.Comma(int64(stats.TextRequests))).
		Row("Image requests", humanize.Comma(int64(stats.ImageRequests))).
		Row("Parse requests", humanize.Comma(int64(stats.ParseRequests))).
		Row("Scored requests", humanize.Comma(int64(stats.ScoredRequests))).
		Row("Tokens used", humanize.Comma(int64(stats.TotalTokensUsed))).
		Row("History limit", maxItems).
		String()
}

func ellipsis(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
