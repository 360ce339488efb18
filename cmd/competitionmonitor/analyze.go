package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"

	"github.com/a-h/competitionmonitor/models"
)

type AnalyzeCommand struct {
	ServerFlags `embed:""`
	Text        string `help:"The description of the competitor." short:"t"`
	Competitor  string `help:"The name of the competitor." short:"c"`
	Image       string `help:"A screenshot of the competitor's product to analyze." type:"existingfile"`
	Score       bool   `help:"Score the analysis." default:"false"`
	Pretty      bool   `help:"Pretty print the JSON output." default:"true" negatable:""`
}

func (c AnalyzeCommand) Run(ctx context.Context) (err error) {
	req := models.AnalyzeRequest{
		Text:       c.Text,
		Competitor: c.Competitor,
		Score:      c.Score,
	}
	if c.Image != "" {
		data, err := os.ReadFile(c.Image)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		req.ImageBase64 = base64.StdEncoding.EncodeToString(data)
		req.ImageType = http.DetectContentType(data)
	}
	resp, err := c.Client().AnalyzeTextPost(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to analyze: %w", err)
	}
	return writeJSON(os.Stdout, resp, c.Pretty)
}

type ParseCommand struct {
	ServerFlags `embed:""`
	URL         string `arg:"" help:"The URL of the competitor's web page."`
	Competitor  string `help:"The name of the competitor, defaults to the page title." short:"c"`
	Score       bool   `help:"Score the analysis." default:"false"`
	Pretty      bool   `help:"Pretty print the JSON output." default:"true" negatable:""`
}

func (c ParseCommand) Run(ctx context.Context) (err error) {
	resp, err := c.Client().ParsePost(ctx, models.ParseRequest{
		URL:        c.URL,
		Competitor: c.Competitor,
		Score:      c.Score,
	})
	if err != nil {
		return fmt.Errorf("failed to parse page: %w", err)
	}
	return writeJSON(os.Stdout, resp, c.Pretty)
}

type AskCommand struct {
	ServerFlags `embed:""`
	Question    string `arg:"" help:"The question to ask."`
}

func (c AskCommand) Run(ctx context.Context) (err error) {
	resp, err := c.Client().AskPost(ctx, models.AskRequest{Text: c.Question})
	if err != nil {
		return fmt.Errorf("failed to ask: %w", err)
	}
	fmt.Println(resp.Answer)
	return nil
}
