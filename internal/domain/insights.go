package domain

import (
	"cmp"
	"slices"
)

type StatusCount struct {
	Status Status `json:"status"`
	Count  int64  `json:"count"`
}

type CollectionCount struct {
	CollectionID *string `json:"collectionId"`
	Count        int64   `json:"count"`
}

// Insights is the aggregate returned by GET /tasks/insights.
type Insights struct {
	Total        int64             `json:"total"`
	ByStatus     []StatusCount     `json:"byStatus"`
	ByCollection []CollectionCount `json:"byCollection"`
}

// ComputeInsights aggregates tasks the way the server does. Tasks without a
// collection are grouped under a nil CollectionID.
func ComputeInsights(tasks []Task) Insights {
	byStatus := make(map[Status]int64)
	byCollection := make(map[string]int64)
	var detached int64
	for _, t := range tasks {
		byStatus[t.Status]++
		if t.CollectionID == nil {
			detached++
		} else {
			byCollection[*t.CollectionID]++
		}
	}

	out := Insights{Total: int64(len(tasks))}
	for status, n := range byStatus {
		out.ByStatus = append(out.ByStatus, StatusCount{Status: status, Count: n})
	}
	if detached > 0 {
		out.ByCollection = append(out.ByCollection, CollectionCount{Count: detached})
	}
	for id, n := range byCollection {
		out.ByCollection = append(out.ByCollection, CollectionCount{CollectionID: StringPtr(id), Count: n})
	}
	SortInsights(&out)
	return out
}

// SortInsights orders statuses by board position and collections by id with
// the detached group first.
func SortInsights(in *Insights) {
	rank := func(s Status) int {
		if i := slices.Index(Statuses, s); i >= 0 {
			return i
		}
		return len(Statuses)
	}
	slices.SortFunc(in.ByStatus, func(a, b StatusCount) int {
		return cmp.Compare(rank(a.Status), rank(b.Status))
	})
	slices.SortFunc(in.ByCollection, func(a, b CollectionCount) int {
		switch {
		case a.CollectionID == nil && b.CollectionID == nil:
			return 0
		case a.CollectionID == nil:
			return -1
		case b.CollectionID == nil:
			return 1
		}
		return cmp.Compare(*a.CollectionID, *b.CollectionID)
	})
}
