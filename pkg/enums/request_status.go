package enums

import "fmt"

// RequestStatus tracks the review state of balance top-up and cash-out requests.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

var validRequestStatuses = []RequestStatus{
	RequestStatusPending,
	RequestStatusApproved,
	RequestStatusRejected,
}

// IsProcessed reports whether the request has already been decided.
func (s RequestStatus) IsProcessed() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// IsValid reports whether the value is a known RequestStatus.
func (s RequestStatus) IsValid() bool {
	for _, candidate := range validRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseRequestStatus converts raw input into a RequestStatus.
func ParseRequestStatus(value string) (RequestStatus, error) {
	for _, candidate := range validRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid request status %q", value)
}

// RequestDecision is the action a reviewer takes on a pending request.
type RequestDecision string

const (
	RequestDecisionApprove RequestDecision = "approve"
	RequestDecisionReject  RequestDecision = "reject"
)

// IsValid reports whether the value is a known RequestDecision.
func (d RequestDecision) IsValid() bool {
	return d == RequestDecisionApprove || d == RequestDecisionReject
}

// ParseRequestDecision converts raw input into a RequestDecision.
func ParseRequestDecision(value string) (RequestDecision, error) {
	switch RequestDecision(value) {
	case RequestDecisionApprove:
		return RequestDecisionApprove, nil
	case RequestDecisionReject:
		return RequestDecisionReject, nil
	}
	return "", fmt.Errorf("invalid request decision %q", value)
}
