package domain

import (
	"slices"
	"strings"
)

// TaskFilter narrows a task listing. Zero fields match everything.
type TaskFilter struct {
	CollectionID string
	Statuses     []Status
	LabelIDs     []string
}

func (f TaskFilter) IsZero() bool {
	return f.CollectionID == "" && len(f.Statuses) == 0 && len(f.LabelIDs) == 0
}

// Match applies the same rules the server uses: collection equality, status
// membership and "carries any of the labels".
func (f TaskFilter) Match(t Task) bool {
	if f.CollectionID != "" && (t.CollectionID == nil || *t.CollectionID != f.CollectionID) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, t.Status) {
		return false
	}
	if len(f.LabelIDs) > 0 && !slices.ContainsFunc(f.LabelIDs, t.HasLabel) {
		return false
	}
	return true
}

// SplitIDs parses comma-separated or repeated id query values.
func SplitIDs(values ...string) []string {
	var parts []string
	for _, v := range values {
		parts = append(parts, strings.Split(v, ",")...)
	}
	return mergeIDs(parts)
}
