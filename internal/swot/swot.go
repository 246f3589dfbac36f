// Package swot generates a SWOT analysis for a company through an
// OpenAI-compatible chat-completions gateway. The model reply is
// treated as untrusted text: the first JSON object found in it is
// parsed, and anything unparseable falls back to a fixed, clearly
// generic analysis rather than an error.
package swot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"github.com/rs/zerolog"
)

const defaultGatewayURL = "https://ai.gateway.lovable.dev/v1/chat/completions"

const systemPrompt = "You are a senior financial analyst specializing in equity research. " +
	"Provide detailed, accurate SWOT analyses based on your knowledge of companies, markets, and industries. " +
	"Always respond with valid JSON only, no markdown or additional text."

// jsonObject grabs the outermost {...} span from a model reply that
// may be wrapped in prose or markdown fences.
var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// HTTPClient describes an HTTP client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request carries the company facts interpolated into the prompt.
type Request struct {
	Company       string   `json:"company"`
	Ticker        string   `json:"ticker"`
	Price         *float64 `json:"price"`
	ChangePercent *float64 `json:"changePercent"`
	Sector        string   `json:"sector"`
}

// Analysis is the SWOT payload returned to the client UI.
type Analysis struct {
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Opportunities []string `json:"opportunities"`
	Threats       []string `json:"threats"`
	Summary       string   `json:"summary"`
}

// StatusError is a gateway status the proxy passes through verbatim
// (rate limiting, quota exhaustion).
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	switch e.Code {
	case http.StatusTooManyRequests:
		return "Rate limit exceeded. Please try again later."
	case http.StatusPaymentRequired:
		return "AI credits exhausted. Please add funds."
	}
	return fmt.Sprintf("AI gateway error: %d", e.Code)
}

// Client calls the LLM gateway.
type Client struct {
	gatewayURL string
	apiKey     string
	model      string
	httpClient HTTPClient
	logger     zerolog.Logger
}

// Option is a configuration option for the Client.
type Option func(*Client)

func WithGatewayURL(u string) Option {
	return func(c *Client) { c.gatewayURL = u }
}

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(apiKey string, options ...Option) *Client {
	c := &Client{
		gatewayURL: defaultGatewayURL,
		apiKey:     apiKey,
		model:      "google/gemini-2.5-flash",
		httpClient: http.DefaultClient,
		logger:     zerolog.Nop(),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Analyze asks the gateway for a SWOT analysis. Gateway 429/402 are
// returned as StatusError for the HTTP layer to pass through; a reply
// the model mangled beyond parsing degrades to Fallback.
func (c *Client) Analyze(ctx context.Context, r Request) (*Analysis, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(r)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling AI gateway: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusPaymentRequired:
		return nil, &StatusError{Code: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		c.logger.Error().Int("status", resp.StatusCode).Str("body", string(b)).Msg("AI gateway error")
		return nil, fmt.Errorf("AI gateway error: %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("decoding gateway response: %w", err)
	}
	var content string
	if len(chat.Choices) > 0 {
		content = chat.Choices[0].Message.Content
	}

	analysis, ok := parseAnalysis(content)
	if !ok {
		c.logger.Warn().Str("ticker", r.Ticker).Msg("unparseable SWOT reply, using fallback")
		fb := Fallback(r.Company, r.Sector)
		return &fb, nil
	}
	return analysis, nil
}

func parseAnalysis(content string) (*Analysis, bool) {
	raw := jsonObject.FindString(content)
	if raw == "" {
		return nil, false
	}
	var a Analysis
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, false
	}
	return &a, true
}

// Fallback is the fixed analysis served when the model output cannot
// be parsed.
func Fallback(company, sector string) Analysis {
	if sector == "" {
		sector = "technology"
	}
	return Analysis{
		Strengths:     []string{"Strong market position", "Innovative product portfolio", "Solid financial performance"},
		Weaknesses:    []string{"Market concentration risk", "Regulatory challenges", "Competition pressure"},
		Opportunities: []string{"Emerging market expansion", "New product development", "Strategic partnerships"},
		Threats:       []string{"Economic uncertainty", "Technological disruption", "Changing consumer preferences"},
		Summary:       fmt.Sprintf("%s maintains a competitive position in the %s sector with both opportunities and challenges ahead.", company, sector),
	}
}

func buildPrompt(r Request) string {
	price := "N/A"
	if r.Price != nil {
		price = fmt.Sprintf("%.2f", *r.Price)
	}
	change := "N/A"
	if r.ChangePercent != nil {
		change = fmt.Sprintf("%.2f", *r.ChangePercent)
	}
	sector := r.Sector
	if sector == "" {
		sector = "Technology"
	}
	return fmt.Sprintf(`Analyze %s (%s) and generate a comprehensive SWOT analysis.

Company Info:
- Ticker: %s
- Current Price: $%s
- Price Change: %s%%
- Sector: %s

Please provide a detailed SWOT analysis in the following JSON format:
{
  "strengths": ["strength1", "strength2", "strength3"],
  "weaknesses": ["weakness1", "weakness2", "weakness3"],
  "opportunities": ["opportunity1", "opportunity2", "opportunity3"],
  "threats": ["threat1", "threat2", "threat3"],
  "summary": "A brief 2-3 sentence summary of the company's position"
}

Base your analysis on general knowledge about the company, its industry position, market trends, and competitive landscape. Be specific and insightful.`,
		r.Company, r.Ticker, r.Ticker, price, change, sector)
}
