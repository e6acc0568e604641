package enums

import "fmt"

// ApprovalStatus maps to the approval_status_enum enum in Postgres.
type ApprovalStatus string

const (
	ApprovalStatusPending     ApprovalStatus = "pending"
	ApprovalStatusUnderReview ApprovalStatus = "under_review"
	ApprovalStatusApproved    ApprovalStatus = "approved"
	ApprovalStatusRejected    ApprovalStatus = "rejected"
)

var validApprovalStatuses = []ApprovalStatus{
	ApprovalStatusPending,
	ApprovalStatusUnderReview,
	ApprovalStatusApproved,
	ApprovalStatusRejected,
}

// OutstandingApprovalStatuses are the statuses that block a new submission.
var OutstandingApprovalStatuses = []ApprovalStatus{
	ApprovalStatusPending,
	ApprovalStatusUnderReview,
}

func (s ApprovalStatus) IsValid() bool {
	for _, candidate := range validApprovalStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsOutstanding reports whether the approval still awaits a decision.
func (s ApprovalStatus) IsOutstanding() bool {
	return s == ApprovalStatusPending || s == ApprovalStatusUnderReview
}

func ParseApprovalStatus(value string) (ApprovalStatus, error) {
	for _, candidate := range validApprovalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid approval status %q", value)
}
