// Package domain provides core business rules for the leads bounded context.
package domain

// Priority is the urgency bucket assigned to a lead.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

var knownPriorities = map[Priority]struct{}{
	PriorityLow:    {},
	PriorityMedium: {},
	PriorityHigh:   {},
	PriorityUrgent: {},
}

func IsKnownPriority(p Priority) bool {
	_, ok := knownPriorities[p]
	return ok
}

// lowVolumeThreshold is the trailing 30-day lead count below which a business
// is considered starved for leads: every new lead it gets is high priority.
const lowVolumeThreshold = 10

// ScorePriority computes a lead's urgency from its source and the business's
// trailing 30-day lead volume. First matching rule wins; when no rule
// matches, the current priority is returned unchanged. Pure and total.
func ScorePriority(source Source, trailingVolume int, current Priority) Priority {
	if trailingVolume < lowVolumeThreshold || source == SourceReferral {
		return PriorityHigh
	}
	if source == SourceEnrichment || source == SourceSocialMedia {
		return PriorityMedium
	}
	return current
}
