package scrape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/a-h/competitionmonitor/models"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultTimeout = 10 * time.Second
	// MaxBodyBytes caps the size of a fetched page.
	MaxBodyBytes = 2 << 20
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var (
	ErrInvalidURL  = errors.New("scrape: URL must be an absolute http or https URL")
	ErrFetchFailed = errors.New("scrape: failed to fetch page")
)

func New() *Fetcher {
	return NewWithClient(resty.New())
}

// NewWithClient configures the given resty client for scraping.
func NewWithClient(client *resty.Client) *Fetcher {
	client.
		SetTimeout(DefaultTimeout).
		SetResponseBodyLimit(MaxBodyBytes).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml")
	return &Fetcher{client: client}
}

type Fetcher struct {
	client *resty.Client
}

// Fetch downloads a page and extracts the fields used to describe a competitor.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (page models.ParsedPage, err error) {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return page, ErrInvalidURL
	}
	resp, err := f.client.R().SetContext(ctx).Get(u.String())
	if err != nil {
		return page, fmt.Errorf("%w %q: %w", ErrFetchFailed, pageURL, err)
	}
	if !resp.IsSuccess() {
		return page, fmt.Errorf("%w %q: unexpected status %d", ErrFetchFailed, pageURL, resp.StatusCode())
	}
	page, err = Parse(bytes.NewReader(resp.Body()))
	if err != nil {
		return page, err
	}
	page.URL = pageURL
	return page, nil
}

// Parse extracts the title, first heading, meta description and first
// non-empty paragraph of an HTML document.
func Parse(r io.Reader) (page models.ParsedPage, err error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return page, fmt.Errorf("scrape: failed to parse HTML: %w", err)
	}
	page.Title = clean(doc.Find("title").First().Text())
	page.H1 = clean(doc.Find("h1").First().Text())
	page.MetaDescription = clean(doc.Find(`meta[name="description"]`).First().AttrOr("content", ""))
	doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		page.FirstParagraph = clean(s.Text())
		return page.FirstParagraph == ""
	})
	return page, nil
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Text joins the non-empty page fields, one per line.
func Text(page models.ParsedPage) string {
	var lines []string
	for _, s := range []string{page.Title, page.H1, page.MetaDescription, page.FirstParagraph} {
		if s != "" {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n")
}
