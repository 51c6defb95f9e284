package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/moneymaker/moneymaker/internal/domain"
)

// Config holds the Gemini client parameters.
type Config struct {
	APIKey              string
	Model               string
	BaseURL             string
	MaxRetries          int
	Timeout             time.Duration
	ConfidenceThreshold float64
}

// Client calls the Gemini generateContent REST API to turn a batch of
// candidate markets into ranked trade suggestions. It implements
// domain.SuggestionSource.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

var _ domain.SuggestionSource = (*Client)(nil)

// NewClient creates a Gemini suggestion client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With("component", "gemini"),
		now:    time.Now,
	}
}

// generateRequest is the generateContent request body.
type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType"`
}

// generateResponse is the subset of the generateContent response we
// read: the text of the first candidate.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// analysisResponse is the JSON shape the prompt instructs the model to
// produce.
type analysisResponse struct {
	Suggestions []struct {
		MarketID              string  `json:"market_id"`
		MarketQuestion        string  `json:"market_question"`
		RecommendedOutcome    string  `json:"recommended_outcome"`
		Confidence            float64 `json:"confidence"`
		Reasoning             string  `json:"reasoning"`
		SuggestedPositionSize float64 `json:"suggested_position_size"`
		RiskLevel             string  `json:"risk_level"`
	} `json:"suggestions"`
	MarketsAnalyzed int    `json:"markets_analyzed"`
	Sentiment       string `json:"overall_market_sentiment"`
}

// Analyze asks the model for up to maxSuggestions trade suggestions
// over the given markets. The model's reply is decoded strictly; a
// reply that is not the requested JSON is an error, not a salvage.
func (c *Client) Analyze(ctx context.Context, markets []domain.Market, maxSuggestions int) ([]domain.Suggestion, error) {
	if len(markets) == 0 {
		return nil, nil
	}

	prompt := buildAnalysisPrompt(markets, maxSuggestions, c.cfg.ConfidenceThreshold, c.now())

	text, err := c.generateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("gemini: analyze markets: %w", err)
	}

	suggestions, err := c.parseResponse(text, markets)
	if err != nil {
		return nil, fmt.Errorf("gemini: analyze markets: %w", err)
	}

	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}

	c.logger.Info("analysis complete",
		"markets_analyzed", len(markets),
		"suggestions", len(suggestions))

	return suggestions, nil
}

// generateContent posts the prompt to the generateContent endpoint and
// returns the first candidate's text. Rate limits and server errors
// are retried with backoff up to MaxRetries.
func (c *Client) generateContent(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{
			{Parts: []part{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:      0.7,
			ResponseMimeType: "application/json",
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)

	var lastErr error
	attempts := c.cfg.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			c.logger.Warn("retrying generate", "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, retryable, err := c.doGenerate(ctx, endpoint, payload)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}

	return "", lastErr
}

func (c *Client) doGenerate(ctx context.Context, endpoint string, payload []byte) (text string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", true, domain.ErrRateLimited
	case resp.StatusCode >= 500:
		return "", true, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	case resp.StatusCode >= 400:
		return "", false, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", false, fmt.Errorf("empty response")
	}

	return genResp.Candidates[0].Content.Parts[0].Text, false, nil
}

// parseResponse decodes the model's JSON reply into domain suggestions.
// Markdown code fences around the JSON are tolerated. Current prices
// are looked up from the analyzed markets, not trusted from the model.
func (c *Client) parseResponse(text string, markets []domain.Market) ([]domain.Suggestion, error) {
	text = stripCodeFences(text)

	var analysis analysisResponse
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}

	byID := make(map[string]domain.Market, len(markets))
	for _, m := range markets {
		byID[m.ID] = m
	}

	suggestions := make([]domain.Suggestion, 0, len(analysis.Suggestions))
	for _, s := range analysis.Suggestions {
		if s.MarketID == "" || s.RecommendedOutcome == "" {
			c.logger.Warn("skipping malformed suggestion", "market_id", s.MarketID)
			continue
		}

		var price float64
		if m, ok := byID[s.MarketID]; ok {
			price, _ = m.OutcomePrice(s.RecommendedOutcome)
		}

		suggestions = append(suggestions, domain.Suggestion{
			MarketID:          s.MarketID,
			Question:          s.MarketQuestion,
			Outcome:           s.RecommendedOutcome,
			CurrentPrice:      price,
			Confidence:        s.Confidence,
			SuggestedFraction: s.SuggestedPositionSize,
			Risk:              domain.ParseRiskLevel(s.RiskLevel),
			Reasoning:         s.Reasoning,
		})
	}

	return suggestions, nil
}

// stripCodeFences removes a surrounding markdown code block, with or
// without a language tag, leaving bare JSON untouched.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) > 1 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[1 : len(lines)-1]
	} else {
		lines = lines[1:]
	}
	return strings.Join(lines, "\n")
}
