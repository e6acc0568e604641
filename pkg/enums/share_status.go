package enums

import "fmt"

// ShareStatus maps to the share_status_enum enum in Postgres.
type ShareStatus string

const (
	ShareStatusAllocated   ShareStatus = "allocated"
	ShareStatusVested      ShareStatus = "vested"
	ShareStatusTransferred ShareStatus = "transferred"
	ShareStatusCancelled   ShareStatus = "cancelled"
)

var validShareStatuses = []ShareStatus{
	ShareStatusAllocated,
	ShareStatusVested,
	ShareStatusTransferred,
	ShareStatusCancelled,
}

var shareTransitions = map[ShareStatus][]ShareStatus{
	ShareStatusAllocated: {ShareStatusVested, ShareStatusTransferred, ShareStatusCancelled},
	ShareStatusVested:    {ShareStatusTransferred},
}

func (s ShareStatus) IsValid() bool {
	for _, candidate := range validShareStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether s -> target is allowed by the share lifecycle.
func (s ShareStatus) CanTransitionTo(target ShareStatus) bool {
	for _, next := range shareTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

func ParseShareStatus(value string) (ShareStatus, error) {
	for _, candidate := range validShareStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid share status %q", value)
}

// ShareType maps to the share_type_enum enum in Postgres.
type ShareType string

const (
	ShareTypeCommon    ShareType = "common"
	ShareTypePreferred ShareType = "preferred"
)

func (t ShareType) IsValid() bool {
	return t == ShareTypeCommon || t == ShareTypePreferred
}

func ParseShareType(value string) (ShareType, error) {
	t := ShareType(value)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid share type %q", value)
	}
	return t, nil
}
