package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneymaker/moneymaker/internal/domain"
)

func testMarkets() []domain.Market {
	end := time.Now().Add(45 * time.Minute)
	return []domain.Market{
		{
			ID:       "0xabc",
			Question: "Will it rain in NYC today?",
			Category: "Weather",
			EndDate:  &end,
			Volume:   5000,
			Outcomes: []domain.Outcome{
				{Name: "Yes", Price: 0.40},
				{Name: "No", Price: 0.60},
			},
		},
	}
}

func candidateBody(t *testing.T, analysisJSON string) string {
	t.Helper()
	resp := map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": analysisJSON}}}},
		},
	}
	b, err := json.Marshal(resp)
	require.NoError(t, err)
	return string(b)
}

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		APIKey:              "test-key",
		Model:               "gemini-2.0-flash",
		BaseURL:             baseURL,
		MaxRetries:          2,
		ConfidenceThreshold: 0.7,
	}, slog.New(slog.DiscardHandler))
}

func TestAnalyzeParsesSuggestions(t *testing.T) {
	analysis := `{
		"suggestions": [{
			"market_id": "0xabc",
			"market_question": "Will it rain in NYC today?",
			"recommended_outcome": "Yes",
			"confidence": 0.82,
			"reasoning": "Radar shows an incoming front.",
			"suggested_position_size": 0.1,
			"risk_level": "low"
		}],
		"markets_analyzed": 1,
		"overall_market_sentiment": "neutral"
	}`

	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		fmt.Fprint(w, candidateBody(t, analysis))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	suggestions, err := c.Analyze(context.Background(), testMarkets(), 5)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)

	s := suggestions[0]
	assert.Equal(t, "0xabc", s.MarketID)
	assert.Equal(t, "Yes", s.Outcome)
	assert.Equal(t, 0.40, s.CurrentPrice)
	assert.Equal(t, 0.82, s.Confidence)
	assert.Equal(t, 0.1, s.SuggestedFraction)
	assert.Equal(t, domain.RiskLow, s.Risk)

	assert.Equal(t, "/models/gemini-2.0-flash:generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)
}

func TestAnalyzeStripsCodeFences(t *testing.T) {
	analysis := "```json\n" + `{"suggestions": [{"market_id": "0xabc", "recommended_outcome": "No", "confidence": 0.9, "suggested_position_size": 0.05, "risk_level": "medium"}]}` + "\n```"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, candidateBody(t, analysis))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	suggestions, err := c.Analyze(context.Background(), testMarkets(), 5)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "No", suggestions[0].Outcome)
	assert.Equal(t, 0.60, suggestions[0].CurrentPrice)
}

func TestAnalyzeCapsSuggestions(t *testing.T) {
	analysis := `{"suggestions": [
		{"market_id": "m1", "recommended_outcome": "Yes", "confidence": 0.9, "risk_level": "low"},
		{"market_id": "m2", "recommended_outcome": "Yes", "confidence": 0.85, "risk_level": "low"},
		{"market_id": "m3", "recommended_outcome": "No", "confidence": 0.8, "risk_level": "medium"}
	]}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, candidateBody(t, analysis))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	suggestions, err := c.Analyze(context.Background(), testMarkets(), 2)
	require.NoError(t, err)
	assert.Len(t, suggestions, 2)
	assert.Equal(t, "m1", suggestions[0].MarketID)
	assert.Equal(t, "m2", suggestions[1].MarketID)
}

func TestAnalyzeSkipsMalformedSuggestions(t *testing.T) {
	analysis := `{"suggestions": [
		{"market_id": "", "recommended_outcome": "Yes", "confidence": 0.9},
		{"market_id": "m2", "recommended_outcome": "", "confidence": 0.9},
		{"market_id": "0xabc", "recommended_outcome": "Yes", "confidence": 0.75, "risk_level": "high"}
	]}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, candidateBody(t, analysis))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	suggestions, err := c.Analyze(context.Background(), testMarkets(), 5)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "0xabc", suggestions[0].MarketID)
}

func TestAnalyzeRetriesServerErrors(t *testing.T) {
	analysis := `{"suggestions": []}`

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, candidateBody(t, analysis))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	suggestions, err := c.Analyze(context.Background(), testMarkets(), 5)
	require.NoError(t, err)
	assert.Empty(t, suggestions)
	assert.Equal(t, 2, calls)
}

func TestAnalyzeDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Analyze(context.Background(), testMarkets(), 5)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestAnalyzeInvalidJSONIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, candidateBody(t, "the market looks bullish to me"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Analyze(context.Background(), testMarkets(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode suggestions")
}

func TestAnalyzeEmptyMarkets(t *testing.T) {
	c := newTestClient("http://unused.invalid")
	suggestions, err := c.Analyze(context.Background(), nil, 5)
	require.NoError(t, err)
	assert.Nil(t, suggestions)
}

func TestBuildAnalysisPrompt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := now.Add(30 * time.Minute)
	markets := []domain.Market{{
		ID:        "0xdef",
		Question:  "Will the game go to overtime?",
		EndDate:   &end,
		Volume:    1200,
		Liquidity: 800,
		Outcomes:  []domain.Outcome{{Name: "Yes", Price: 0.25}, {Name: "No", Price: 0.75}},
	}}

	prompt := buildAnalysisPrompt(markets, 3, 0.7, now)

	assert.Contains(t, prompt, "### Market 1")
	assert.Contains(t, prompt, "- ID: 0xdef")
	assert.Contains(t, prompt, "- Category: Unknown")
	assert.Contains(t, prompt, "- Time to Resolution: 0.50 hours")
	assert.Contains(t, prompt, "Yes: 25.0%, No: 75.0%")
	assert.Contains(t, prompt, "Maximum Suggestions: 3")
	assert.Contains(t, prompt, "Respond with ONLY valid JSON")
	assert.True(t, strings.HasPrefix(prompt, "You are an expert prediction market analyst"))
}
