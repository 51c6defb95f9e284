package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/moneymaker/moneymaker/internal/domain"
)

// SuggesterConfig holds the suggestion post-filtering parameters.
type SuggesterConfig struct {
	ConfidenceThreshold float64
	MaxSuggestions      int
	MaxRisk             domain.RiskLevel
}

// SuggesterService asks the suggestion source to analyze candidate
// markets and filters the replies by confidence and risk tier. The
// model is told the threshold too, but its output is never trusted to
// have honored it.
type SuggesterService struct {
	source domain.SuggestionSource
	cfg    SuggesterConfig
	logger *slog.Logger
}

// NewSuggesterService creates a SuggesterService.
func NewSuggesterService(source domain.SuggestionSource, cfg SuggesterConfig, logger *slog.Logger) *SuggesterService {
	return &SuggesterService{
		source: source,
		cfg:    cfg,
		logger: logger.With("component", "suggester_service"),
	}
}

// Analyze returns high-confidence suggestions for the given markets,
// capped at the configured maximum and stripped of tiers above the
// configured risk ceiling.
func (s *SuggesterService) Analyze(ctx context.Context, markets []domain.Market) ([]domain.Suggestion, error) {
	if len(markets) == 0 {
		return nil, nil
	}

	suggestions, err := s.source.Analyze(ctx, markets, s.cfg.MaxSuggestions)
	if err != nil {
		return nil, fmt.Errorf("suggester_service: analyze: %w", err)
	}

	kept := make([]domain.Suggestion, 0, len(suggestions))
	for _, sg := range suggestions {
		if sg.Confidence < s.cfg.ConfidenceThreshold {
			continue
		}
		kept = append(kept, sg)
	}
	kept = domain.FilterByRisk(kept, s.cfg.MaxRisk)

	if len(kept) > s.cfg.MaxSuggestions {
		kept = kept[:s.cfg.MaxSuggestions]
	}

	s.logger.InfoContext(ctx, "suggester_service: analysis complete",
		slog.Int("markets", len(markets)),
		slog.Int("raw", len(suggestions)),
		slog.Int("kept", len(kept)),
	)
	return kept, nil
}
