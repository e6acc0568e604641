package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateFundingRound OutboxAggregateType = "funding_round"
	AggregateInvestment   OutboxAggregateType = "investment"
	AggregateEscrowRecord OutboxAggregateType = "escrow_record"
	AggregateApproval     OutboxAggregateType = "approval"
	AggregateShare        OutboxAggregateType = "share"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateFundingRound,
	AggregateInvestment,
	AggregateEscrowRecord,
	AggregateApproval,
	AggregateShare,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventInvestmentRecorded      OutboxEventType = "investment_recorded"
	EventInvestmentConfirmed     OutboxEventType = "investment_confirmed"
	EventInvestmentCompleted     OutboxEventType = "investment_completed"
	EventInvestmentRefunded      OutboxEventType = "investment_refunded"
	EventEscrowHeld              OutboxEventType = "escrow_held"
	EventEscrowReleased          OutboxEventType = "escrow_released"
	EventEscrowRefunded          OutboxEventType = "escrow_refunded"
	EventEscrowExpired           OutboxEventType = "escrow_expired"
	EventEscrowAttentionRequired OutboxEventType = "escrow_attention_required"
	EventApprovalSubmitted       OutboxEventType = "approval_submitted"
	EventApprovalApproved        OutboxEventType = "approval_approved"
	EventApprovalRejected        OutboxEventType = "approval_rejected"
	EventRoundStageChanged       OutboxEventType = "round_stage_changed"
	EventSharesVested            OutboxEventType = "shares_vested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventInvestmentRecorded,
	EventInvestmentConfirmed,
	EventInvestmentCompleted,
	EventInvestmentRefunded,
	EventEscrowHeld,
	EventEscrowReleased,
	EventEscrowRefunded,
	EventEscrowExpired,
	EventEscrowAttentionRequired,
	EventApprovalSubmitted,
	EventApprovalApproved,
	EventApprovalRejected,
	EventRoundStageChanged,
	EventSharesVested,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
