package engine

import (
	"fmt"

	"github.com/moneymaker/moneymaker/internal/domain"
)

// minTradeSize is the smallest viable position in currency units.
const minTradeSize = 1.0

// GateConfig holds the trade approval and sizing parameters.
type GateConfig struct {
	ConfidenceThreshold float64
	MinBalanceToTrade   float64
	MaxBetAmount        float64
	MaxPositionPercent  float64
}

// GateDecision is the outcome of evaluating one suggestion against the
// wallet balance. Size is zero unless Trade is true.
type GateDecision struct {
	Trade  bool    `json:"trade"`
	Reason string  `json:"reason"`
	Size   float64 `json:"size"`
}

// Gate decides whether a suggestion becomes a trade and how much to
// risk on it.
type Gate struct {
	cfg GateConfig
}

// NewGate builds a gate over the given sizing rules.
func NewGate(cfg GateConfig) *Gate {
	return &Gate{cfg: cfg}
}

// ShouldTrade evaluates a suggestion against the caller-supplied
// balance. Rules apply in order and the first failing rule names the
// rejection. The size is the smallest of the suggested fraction of
// balance, the absolute bet cap, and the per-position percentage cap.
func (g *Gate) ShouldTrade(s domain.Suggestion, balance float64) GateDecision {
	if s.Confidence < g.cfg.ConfidenceThreshold {
		return GateDecision{
			Reason: fmt.Sprintf("Confidence %.0f%% below threshold %.0f%%", s.Confidence*100, g.cfg.ConfidenceThreshold*100),
		}
	}

	if balance < g.cfg.MinBalanceToTrade {
		return GateDecision{
			Reason: fmt.Sprintf("Balance $%.2f below minimum $%.2f", balance, g.cfg.MinBalanceToTrade),
		}
	}

	size := min(s.SuggestedFraction*balance, g.cfg.MaxBetAmount, g.cfg.MaxPositionPercent*balance)
	if size < minTradeSize {
		return GateDecision{
			Reason: fmt.Sprintf("Position size $%.2f too small", size),
		}
	}

	return GateDecision{Trade: true, Reason: "Trade approved", Size: size}
}
