package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/a-h/competitionmonitor/models"
	"github.com/go-pdf/fpdf"
)

const (
	coreFont = "Helvetica"
	utf8Font = "Custom"
)

// New creates a PDF writer. fontFile is an optional TrueType font with
// Unicode coverage, without one text is rendered with the core Helvetica
// font and characters outside cp1252 are lost.
func New(fontFile string) (*Writer, error) {
	if fontFile != "" {
		if _, err := os.Stat(fontFile); err != nil {
			return nil, fmt.Errorf("report: font file: %w", err)
		}
	}
	return &Writer{fontFile: fontFile}, nil
}

type Writer struct {
	fontFile string
}

// UTF8 reports whether a Unicode font is configured.
func (w *Writer) UTF8() bool {
	return w.fontFile != ""
}

// SystemFonts are the usual install locations of DejaVu Sans.
var SystemFonts = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu-sans-fonts/DejaVuSans.ttf",
	"/usr/local/share/fonts/DejaVuSans.ttf",
	"/Library/Fonts/DejaVuSans.ttf",
	`C:\Windows\Fonts\DejaVuSans.ttf`,
}

// FindFont returns the first of the candidate font files that exists, or an
// empty string.
func FindFont(candidates ...string) string {
	for _, name := range candidates {
		if fi, err := os.Stat(name); err == nil && !fi.IsDir() {
			return name
		}
	}
	return ""
}

// Filename is the download name of the report for an analysis.
func Filename(id int64) string {
	return fmt.Sprintf("analysis_%d.pdf", id)
}

type section struct {
	title string
	items []string
}

// Write renders the analysis as a PDF document.
func (w *Writer) Write(out io.Writer, a models.AnalyzeResponse) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Analysis: "+a.Competitor, true)
	pdf.SetAuthor("CompetitionMonitor", true)
	pdf.SetCreationDate(a.CreatedAt)
	pdf.SetMargins(20, 20, 20)

	family := coreFont
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if w.fontFile != "" {
		family = utf8Font
		pdf.AddUTF8Font(family, "", w.fontFile)
		pdf.AddUTF8Font(family, "B", w.fontFile)
		tr = func(s string) string { return s }
	}
	pdf.AddPage()

	pdf.SetFont(family, "B", 22)
	pdf.SetTextColor(0x66, 0x7e, 0xea)
	pdf.MultiCell(0, 10, tr("Analysis: "+a.Competitor), "", "C", false)
	pdf.Ln(2)

	pdf.SetFont(family, "", 10)
	pdf.SetTextColor(0x80, 0x80, 0x80)
	pdf.CellFormat(0, 6, tr("Date: "+a.CreatedAt.Format("02.01.2006 15:04")), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	sections := []section{
		{title: "Strengths", items: a.Analysis.Strengths},
		{title: "Weaknesses", items: a.Analysis.Weaknesses},
		{title: "Opportunities", items: a.Analysis.Opportunities},
		{title: "Unique offers", items: a.Analysis.UniqueOffers},
		{title: "Recommendations", items: a.Analysis.Recommendations},
	}
	for _, s := range sections {
		if len(s.items) == 0 {
			continue
		}
		heading(pdf, family, tr(s.title))
		pdf.SetFont(family, "", 11)
		pdf.SetTextColor(0x55, 0x55, 0x55)
		for _, item := range s.items {
			pdf.MultiCell(0, 6, tr("- "+item), "", "L", false)
		}
		pdf.Ln(3)
	}
	if a.Analysis.Summary != "" {
		heading(pdf, family, tr("Summary"))
		pdf.SetFont(family, "", 11)
		pdf.SetTextColor(0x55, 0x55, 0x55)
		pdf.MultiCell(0, 6, tr(a.Analysis.Summary), "", "L", false)
		pdf.Ln(3)
	}
	if a.Score != nil {
		scoreTable(pdf, family, tr, *a.Score)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("report: failed to render PDF: %w", err)
	}
	if err := pdf.Output(out); err != nil {
		return fmt.Errorf("report: failed to write PDF: %w", err)
	}
	return nil
}

func heading(pdf *fpdf.Fpdf, family, title string) {
	pdf.SetFont(family, "B", 14)
	pdf.SetTextColor(0x33, 0x33, 0x33)
	pdf.CellFormat(0, 9, title, "", 1, "L", false, 0, "")
}

func scoreTable(pdf *fpdf.Fpdf, family string, tr func(string) string, s models.Score) {
	heading(pdf, family, tr("Score"))
	rows := [][2]string{
		{"Design", formatScore(s.Design)},
		{"Animation", formatScore(s.Animation)},
		{"UX", formatScore(s.UX)},
		{"Functions", formatScore(s.Functions)},
		{"Overall", formatScore(s.Overall)},
		{"Threat level", strings.ToUpper(string(s.ThreatLevel))},
	}
	pdf.SetTextColor(0x33, 0x33, 0x33)
	for i, row := range rows {
		style := ""
		if i >= 4 {
			style = "B"
		}
		pdf.SetFont(family, style, 11)
		pdf.CellFormat(60, 7, tr(row[0]), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, tr(row[1]), "1", 1, "R", false, 0, "")
	}
	if len(s.Recommendations) > 0 {
		pdf.Ln(3)
		pdf.SetFont(family, "", 11)
		for _, rec := range s.Recommendations {
			pdf.MultiCell(0, 6, tr("- "+rec), "", "L", false)
		}
	}
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.2f / 10", v)
}
