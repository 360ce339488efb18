package main

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/a-h/competitionmonitor/analysis"
	"github.com/a-h/competitionmonitor/models"
	"github.com/pluja/pocketbase"
	"github.com/tmc/langchaingo/documentloaders"
	"gopkg.in/yaml.v3"
)

type ImportCommand struct {
	ServerFlags   `embed:""`
	PocketbaseURL string `help:"The URL of the Pocketbase server." env:"POCKETBASE_URL" default:"http://localhost:8090"`
	ID            string `help:"The ID of a single record to import." env:"ID" default:""`
	Collection    string `help:"The name of the collection of competitors." env:"COLLECTION" default:"competitors"`
	Expand        string `help:"The fields to expand." env:"EXPAND" default:""`
	Files         string `help:"Comma separated list of fields that contain Pocketbase file references." env:"FILES" default:""`
	Score         bool   `help:"Score each analysis." env:"SCORE" default:"true" negatable:""`
	DryRun        bool   `help:"Print the text of each competitor without analyzing it." env:"DRY_RUN" default:"false"`
}

func (c ImportCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)

	cmc := c.Client()

	pbe := NewPocketbaseExporter(c.PocketbaseURL, pocketbase.NewClient(c.PocketbaseURL), c.Collection, c.Expand, c.Files)
	for competitor := range pbe.Export(ctx) {
		if c.ID != "" && competitor.ID != c.ID {
			continue
		}
		if c.DryRun {
			log.Info("skipping analysis in dry run mode", slog.String("id", competitor.ID), slog.String("competitor", competitor.Name))
			fmt.Println(competitor.Text)
			continue
		}
		log.Info("analyzing competitor", slog.String("id", competitor.ID), slog.String("competitor", competitor.Name))
		resp, err := cmc.AnalyzeTextPost(ctx, models.AnalyzeRequest{
			Text:       competitor.Text,
			Competitor: competitor.Name,
			Score:      c.Score,
		})
		if err != nil {
			return fmt.Errorf("failed to analyze %q: %w", competitor.Name, err)
		}
		log.Info("competitor analyzed", slog.String("competitor", competitor.Name), slog.Int64("id", resp.ID))
	}
	return pbe.Error
}

func NewPocketbaseExporter(baseURL string, client *pocketbase.Client, collection, expand, files string) *PocketbaseExporter {
	var fileFields []string
	for _, f := range strings.Split(files, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fileFields = append(fileFields, f)
		}
	}
	return &PocketbaseExporter{
		baseURL:    baseURL,
		client:     client,
		collection: collection,
		expand:     expand,
		files:      fileFields,
		PageSize:   10,
	}
}

type PocketbaseExporter struct {
	// baseURL for downloading files, e.g. http://localhost:8090
	baseURL    string
	client     *pocketbase.Client
	collection string
	expand     string
	files      []string
	PageSize   int
	Error      error
}

type ExportedCompetitor struct {
	ID   string
	Name string
	// Text is the record as YAML followed by the text of any PDF attachments,
	// cut to the longest text the server accepts.
	Text string
}

func (p *PocketbaseExporter) Export(ctx context.Context) iter.Seq[ExportedCompetitor] {
	var page int
	return func(yield func(ExportedCompetitor) bool) {
		for {
			if ctx.Err() != nil {
				return
			}
			if p.Error != nil {
				return
			}
			page++
			response, err := p.client.List(p.collection, pocketbase.ParamsList{
				Page:   page,
				Size:   p.PageSize,
				Sort:   "-created",
				Expand: p.expand,
			})
			if err != nil {
				p.Error = err
				return
			}
			if len(response.Items) == 0 {
				return
			}
			for _, item := range response.Items {
				if !yield(p.createCompetitor(ctx, item)) {
					return
				}
			}
		}
	}
}

func useItemOrDefault(item map[string]any, keys []string, defaultValue string) string {
	for _, key := range keys {
		if value, ok := item[key].(string); ok && value != "" {
			return value
		}
	}
	return defaultValue
}

func (p *PocketbaseExporter) createCompetitor(ctx context.Context, item map[string]any) (ec ExportedCompetitor) {
	ec.ID, _ = item["id"].(string)
	ec.Name = useItemOrDefault(item, []string{"name", "title", "competitor"}, analysis.DefaultCompetitor)
	recursivelyApplyExpandedFields(item)
	recursivelyRemoveKeys(item, []string{"id", "collectionId", "collectionName", "created", "updated"})

	sb := new(strings.Builder)
	_ = yaml.NewEncoder(sb).Encode(item)

	for _, fileFieldName := range p.files {
		if ctx.Err() != nil {
			return
		}
		for _, fileName := range fileNames(item[fileFieldName]) {
			if !strings.EqualFold(filepath.Ext(fileName), ".pdf") {
				continue
			}
			fileText, err := p.getPDFText(ctx, p.collection, ec.ID, fileName)
			if err != nil {
				p.Error = fmt.Errorf("failed to get file text: %w", err)
				continue
			}
			sb.WriteString(fileText)
		}
	}

	ec.Text = truncateRunes(strings.TrimSpace(sb.String()), analysis.MaxTextRunes)
	return
}

// fileNames reads a Pocketbase file field, which holds a single name or a
// list of names.
func fileNames(v any) (names []string) {
	switch v := v.(type) {
	case string:
		if v != "" {
			names = append(names, v)
		}
	case []any:
		for _, name := range v {
			if name, ok := name.(string); ok && name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func (p *PocketbaseExporter) getPDFText(ctx context.Context, collection, id, filename string) (string, error) {
	downloadURL, err := createURL(p.baseURL, "api", "files", collection, id, filename)
	if err != nil {
		return "", fmt.Errorf("failed to create download URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download file: unexpected status %d", resp.StatusCode)
	}

	pdfFile, err := os.CreateTemp("", "competitor-import-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer pdfFile.Close()
	defer os.Remove(pdfFile.Name())

	fileSize, err := io.Copy(pdfFile, resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	pdf := documentloaders.NewPDF(pdfFile, fileSize)
	docs, err := pdf.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load PDF: %w", err)
	}

	var sb strings.Builder
	for _, doc := range docs {
		sb.WriteString(doc.PageContent)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func createURL(baseURL string, pathSegments ...string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse baseURL: %w", err)
	}
	u.Path = strings.Join(pathSegments, "/")
	return u.String(), nil
}

// applyExpandedFields replaces relation IDs with the records Pocketbase
// returned under the "expand" key.
func applyExpandedFields(data map[string]any) (changed bool) {
	for key, value := range data {
		switch value := value.(type) {
		case map[string]any:
			if key == "expand" {
				for parentKey := range data {
					if expanded, found := value[parentKey]; found && parentKey != "expand" {
						data[parentKey] = expanded
					}
				}
				delete(data, "expand")
				changed = true
				continue
			}
			if applyExpandedFields(value) {
				changed = true
			}
		case []any:
			for _, item := range value {
				if itemMap, isMap := item.(map[string]any); isMap && applyExpandedFields(itemMap) {
					changed = true
				}
			}
		}
	}
	return changed
}

func recursivelyApplyExpandedFields(data map[string]any) {
	for applyExpandedFields(data) {
	}
}

func recursivelyRemoveKeys(item any, keys []string) {
	switch item := item.(type) {
	case map[string]any:
		for _, key := range keys {
			delete(item, key)
		}
		for k, v := range item {
			recursivelyRemoveKeys(v, keys)
			if isEmpty(v) {
				delete(item, k)
			}
		}
	case []any:
		for _, value := range item {
			recursivelyRemoveKeys(value, keys)
		}
	}
}

func isEmpty(v any) bool {
	switch v := v.(type) {
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case string:
		return v == ""
	}
	return false
}
