package domain

import "strings"

// Status is the progress state of a task. The zero value means "absent".
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Statuses lists every valid status in board order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

// Priority ranks a task's urgency. The zero value means "absent".
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Priorities lists every valid priority from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// NormalizeStatus maps input onto one of the three statuses, ignoring case
// and surrounding whitespace. Unrecognized input yields the empty Status.
func NormalizeStatus(input string) Status {
	upper := strings.ToUpper(strings.TrimSpace(input))
	for _, s := range Statuses {
		if string(s) == upper {
			return s
		}
	}
	return ""
}

// NormalizePriority is the Priority counterpart of NormalizeStatus.
func NormalizePriority(input string) Priority {
	upper := strings.ToUpper(strings.TrimSpace(input))
	for _, p := range Priorities {
		if string(p) == upper {
			return p
		}
	}
	return ""
}

func (s Status) Valid() bool {
	return s != "" && NormalizeStatus(string(s)) == s
}

func (p Priority) Valid() bool {
	return p != "" && NormalizePriority(string(p)) == p
}

// ParseStatuses splits comma-separated values, normalizes each one and drops
// anything unrecognized. Duplicates are removed, order is preserved.
func ParseStatuses(values ...string) []Status {
	var out []Status
	seen := make(map[Status]bool)
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			s := NormalizeStatus(part)
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
