package enums

import "fmt"

// InvestmentStatus maps to the investment_status_enum enum in Postgres.
type InvestmentStatus string

const (
	InvestmentStatusPending   InvestmentStatus = "pending"
	InvestmentStatusConfirmed InvestmentStatus = "confirmed"
	InvestmentStatusCompleted InvestmentStatus = "completed"
	InvestmentStatusFailed    InvestmentStatus = "failed"
	InvestmentStatusRefunded  InvestmentStatus = "refunded"
)

var validInvestmentStatuses = []InvestmentStatus{
	InvestmentStatusPending,
	InvestmentStatusConfirmed,
	InvestmentStatusCompleted,
	InvestmentStatusFailed,
	InvestmentStatusRefunded,
}

var investmentTransitions = map[InvestmentStatus][]InvestmentStatus{
	InvestmentStatusPending:   {InvestmentStatusConfirmed, InvestmentStatusRefunded},
	InvestmentStatusConfirmed: {InvestmentStatusCompleted, InvestmentStatusRefunded},
}

func (s InvestmentStatus) IsValid() bool {
	for _, candidate := range validInvestmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the investment can no longer change.
func (s InvestmentStatus) IsTerminal() bool {
	return s == InvestmentStatusCompleted || s == InvestmentStatusFailed || s == InvestmentStatusRefunded
}

// CanTransitionTo reports whether s -> target is a legal forward move.
func (s InvestmentStatus) CanTransitionTo(target InvestmentStatus) bool {
	for _, next := range investmentTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

func ParseInvestmentStatus(value string) (InvestmentStatus, error) {
	for _, candidate := range validInvestmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid investment status %q", value)
}
