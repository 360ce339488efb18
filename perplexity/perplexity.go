package perplexity

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/competitionmonitor/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	DefaultBaseURL = "https://api.perplexity.ai"
	DefaultModel   = "sonar"
	DefaultTimeout = 30 * time.Second

	// maxAnalysisRunes is the amount of input text embedded in the analysis prompt.
	maxAnalysisRunes = 3000
)

var (
	ErrNotConfigured = errors.New("perplexity: API key not configured")
	ErrTimeout       = errors.New("perplexity: request timed out")
	ErrUpstream      = errors.New("perplexity: upstream request failed")
)

// NewModel creates a chat model for Perplexity's OpenAI compatible API.
func NewModel(apiKey, baseURL, model string, httpClient *http.Client) (llms.Model, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return openai.New(
		openai.WithToken(apiKey),
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
		openai.WithHTTPClient(httpClient))
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithSystemPrompt(prompt string) Option {
	return func(c *Client) {
		if prompt != "" {
			c.systemPrompt = prompt
		}
	}
}

// New creates a client. A nil llm creates a client that returns
// ErrNotConfigured from every call.
func New(log *slog.Logger, llm llms.Model, opts ...Option) *Client {
	c := &Client{
		log:          log,
		llm:          llm,
		systemPrompt: analysisSystemPrompt,
		timeout:      DefaultTimeout,
		temperature:  0.7,
		topP:         0.9,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type Client struct {
	log          *slog.Logger
	llm          llms.Model
	systemPrompt string
	timeout      time.Duration
	temperature  float64
	topP         float64
}

func (c *Client) Configured() bool {
	return c.llm != nil
}

// Image is attached to the analysis prompt as a data URL.
type Image struct {
	MIMEType string
	Data     []byte
}

func (i Image) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MIMEType, base64.StdEncoding.EncodeToString(i.Data))
}

type Result struct {
	// Text is the raw model output.
	Text       string
	Analysis   models.CompetitorAnalysis
	TokensUsed int
}

// Analyze asks the model for a structured competitor analysis of text.
func (c *Client) Analyze(ctx context.Context, text string, image *Image) (r Result, err error) {
	parts := []llms.ContentPart{llms.TextContent{Text: analysisPrompt(text)}}
	if image != nil {
		parts = append(parts, llms.ImageURLPart(image.DataURL()))
	}
	msgs := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, c.systemPrompt),
		{Role: llms.ChatMessageTypeHuman, Parts: parts},
	}

	start := time.Now()
	resp, err := c.generate(ctx, msgs, 2000)
	if err != nil {
		return r, err
	}
	r.Text = resp.Content
	r.TokensUsed = tokensUsed(resp.GenerationInfo)
	c.log.Info("analysis received", slog.Duration("elapsed", time.Since(start)), slog.Int("chars", len(r.Text)), slog.Int("tokens", r.TokensUsed))

	r.Analysis, err = ParseAnalysis(r.Text)
	if err != nil {
		return r, err
	}
	return r, nil
}

// Ask sends a single question and returns the model's answer.
func (c *Client) Ask(ctx context.Context, question string) (answer string, err error) {
	resp, err := c.generate(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, question),
	}, 1000)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Stream continues a conversation, passing each chunk of the reply to f.
func (c *Client) Stream(ctx context.Context, msgs []models.ChatMessage, f func(ctx context.Context, chunk []byte) error) (err error) {
	if c.llm == nil {
		return ErrNotConfigured
	}
	content := make([]llms.MessageContent, len(msgs))
	for i, m := range msgs {
		content[i] = llms.TextParts(llms.ChatMessageType(m.Type), m.Content)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err = c.llm.GenerateContent(ctx, content,
		llms.WithTemperature(c.temperature),
		llms.WithTopP(c.topP),
		llms.WithMaxTokens(1000),
		llms.WithStreamingFunc(f))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %v: %w", ErrTimeout, c.timeout, err)
		}
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return nil
}

func (c *Client) generate(ctx context.Context, msgs []llms.MessageContent, maxTokens int) (choice *llms.ContentChoice, err error) {
	if c.llm == nil {
		return nil, ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.llm.GenerateContent(ctx, msgs,
		llms.WithTemperature(c.temperature),
		llms.WithTopP(c.topP),
		llms.WithMaxTokens(maxTokens))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %v: %w", ErrTimeout, c.timeout, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrUpstream)
	}
	return resp.Choices[0], nil
}

func tokensUsed(info map[string]any) int {
	switch v := info["TotalTokens"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

const analysisSystemPrompt = `You are an expert in competitor analysis. Your job is to analyse information about competitors in depth and provide structured, practical insights.

Analyse the following aspects:
1. STRENGTHS - what does the competitor do well?
2. WEAKNESSES - where are its gaps?
3. UNIQUE OFFERS - what sets it apart in the market?
4. OPPORTUNITIES - how can we compete with or attack it?
5. RECOMMENDATIONS - concrete steps to counter it.

Reply ONLY with JSON, without any additional text.`

const analysisPromptTemplate = `Analyse the following information about a competitor:

%s

Reply using exactly this JSON format:
{
    "strengths": ["strength 1", "strength 2"],
    "weaknesses": ["weakness 1", "weakness 2"],
    "unique_offers": ["unique offer 1", "unique offer 2"],
    "opportunities": ["opportunity 1", "opportunity 2"],
    "recommendations": ["recommendation 1", "recommendation 2"],
    "summary": "A short summary of the analysis (3-5 sentences)"
}

Be specific. Every item must be actionable.`

func analysisPrompt(text string) string {
	if r := []rune(text); len(r) > maxAnalysisRunes {
		text = string(r[:maxAnalysisRunes])
	}
	return fmt.Sprintf(analysisPromptTemplate, text)
}
