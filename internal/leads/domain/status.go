package domain

import "fmt"

// Status is the lifecycle state of a lead.
type Status string

const (
	StatusNew       Status = "NEW"
	StatusContacted Status = "CONTACTED"
	StatusQualified Status = "QUALIFIED"
	StatusConverted Status = "CONVERTED"
	StatusLost      Status = "LOST"
)

var knownStatuses = map[Status]struct{}{
	StatusNew:       {},
	StatusContacted: {},
	StatusQualified: {},
	StatusConverted: {},
	StatusLost:      {},
}

func IsKnownStatus(s Status) bool {
	_, ok := knownStatuses[s]
	return ok
}

// terminalStatuses are statuses where no further handler actions occur.
var terminalStatuses = map[Status]bool{
	StatusConverted: true,
	StatusLost:      true,
}

// IsTerminalStatus returns true if the status is terminal.
func IsTerminalStatus(s Status) bool {
	return terminalStatuses[s]
}

// successor maps each status in the ordered chain to its direct successor.
var successor = map[Status]Status{
	StatusNew:       StatusContacted,
	StatusContacted: StatusQualified,
	StatusQualified: StatusConverted,
}

// ErrInvalidTransition reports an illegal status transition request.
type ErrInvalidTransition struct {
	From Status
	To   Status
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// CanTransition reports whether a transition from one status to another is
// legal. A target is accepted when it equals the current status, is a
// terminal status, or is the current status's direct successor in the chain
// NEW -> CONTACTED -> QUALIFIED -> CONVERTED.
func CanTransition(from, to Status) bool {
	if !IsKnownStatus(from) || !IsKnownStatus(to) {
		return false
	}
	if to == from {
		return true
	}
	if IsTerminalStatus(to) {
		return true
	}
	return successor[from] == to
}

// Transition validates a status change request. On success it returns the
// target status and whether this transition enters CONTACTED for the first
// time (the caller stamps the first-response timestamp exactly once). On
// failure it returns *ErrInvalidTransition and the lead must stay unmodified.
func Transition(from, to Status, hasFirstResponse bool) (Status, bool, error) {
	if !CanTransition(from, to) {
		return from, false, &ErrInvalidTransition{From: from, To: to}
	}

	stampFirstResponse := to == StatusContacted && !hasFirstResponse
	return to, stampFirstResponse, nil
}
