package enums

import "fmt"

// GigStatus maps to the gig_status_enum enum in Postgres.
type GigStatus string

const (
	GigStatusActive GigStatus = "active"
	GigStatusPaused GigStatus = "paused"
	GigStatusDraft  GigStatus = "draft"
)

var validGigStatuses = []GigStatus{
	GigStatusActive,
	GigStatusPaused,
	GigStatusDraft,
}

// IsValid reports whether the value is a known GigStatus.
func (s GigStatus) IsValid() bool {
	for _, candidate := range validGigStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseGigStatus converts raw input into a GigStatus.
func ParseGigStatus(value string) (GigStatus, error) {
	for _, candidate := range validGigStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gig status %q", value)
}
