package enums

import "fmt"

// RoundStage maps to the round_stage_enum enum in Postgres.
type RoundStage string

const (
	RoundStageApproval RoundStage = "approval"
	RoundStageFund     RoundStage = "fund"
	RoundStageLaunch   RoundStage = "launch"
	RoundStageLive     RoundStage = "live"
	RoundStageClosed   RoundStage = "closed"
	RoundStageRejected RoundStage = "rejected"
)

var validRoundStages = []RoundStage{
	RoundStageApproval,
	RoundStageFund,
	RoundStageLaunch,
	RoundStageLive,
	RoundStageClosed,
	RoundStageRejected,
}

// forward order of the happy path; rejected sits outside it.
var roundStageOrder = map[RoundStage]int{
	RoundStageApproval: 0,
	RoundStageFund:     1,
	RoundStageLaunch:   2,
	RoundStageLive:     3,
	RoundStageClosed:   4,
}

// IsValid reports whether the value matches the canonical round stage enum.
func (s RoundStage) IsValid() bool {
	for _, candidate := range validRoundStages {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further stage change is possible.
func (s RoundStage) IsTerminal() bool {
	return s == RoundStageClosed || s == RoundStageRejected
}

// CanAdvanceTo reports whether moving from s to target is a legal single step.
// Stages only move forward one at a time; approval may also end in rejected.
func (s RoundStage) CanAdvanceTo(target RoundStage) bool {
	if target == RoundStageRejected {
		return s == RoundStageApproval
	}
	from, okFrom := roundStageOrder[s]
	to, okTo := roundStageOrder[target]
	if !okFrom || !okTo {
		return false
	}
	return to == from+1
}

// AcceptsEscrow reports whether funds may be held against a round in this stage.
func (s RoundStage) AcceptsEscrow() bool {
	return s == RoundStageFund || s == RoundStageLaunch
}

// ParseRoundStage converts raw input into RoundStage.
func ParseRoundStage(value string) (RoundStage, error) {
	for _, candidate := range validRoundStages {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid round stage %q", value)
}
