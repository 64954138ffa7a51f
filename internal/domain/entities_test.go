package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTaskCloneIsDeep(t *testing.T) {
	due := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	orig := Task{
		ID:           "t1",
		Title:        "Write report",
		Description:  StringPtr("quarterly"),
		CollectionID: StringPtr("c1"),
		Labels:       []Label{{ID: "l1", Name: "Work", Color: StringPtr("#2563eb")}},
		Extras: &Extras{
			ID:       "e1",
			TaskID:   "t1",
			DueDate:  &due,
			Priority: PriorityHigh,
			Labels:   []Label{{ID: "l1", Name: "Work"}},
		},
	}

	cp := orig.Clone()
	*cp.Description = "changed"
	*cp.CollectionID = "c2"
	cp.Labels[0].Name = "Home"
	*cp.Labels[0].Color = "#000000"
	cp.Extras.Priority = PriorityLow
	*cp.Extras.DueDate = due.Add(time.Hour)
	cp.Extras.Labels[0].Name = "Other"

	if *orig.Description != "quarterly" {
		t.Error("description shared with clone")
	}
	if *orig.CollectionID != "c1" {
		t.Error("collection id shared with clone")
	}
	if orig.Labels[0].Name != "Work" || *orig.Labels[0].Color != "#2563eb" {
		t.Error("labels shared with clone")
	}
	if orig.Extras.Priority != PriorityHigh || !orig.Extras.DueDate.Equal(due) {
		t.Error("extras shared with clone")
	}
	if orig.Extras.Labels[0].Name != "Work" {
		t.Error("extras labels shared with clone")
	}
}

func TestTempIDs(t *testing.T) {
	a := NewTempID()
	b := NewTempID()
	if a == b {
		t.Fatalf("expected distinct temp ids, got %q twice", a)
	}
	if !strings.HasPrefix(a, TempIDPrefix) || !IsTempID(a) {
		t.Errorf("expected %q to carry the temp prefix", a)
	}
	if IsTempID("0195c2a4-9a51-7b3e-8f00-1f6c2d3e4a5b") {
		t.Error("server uuid reported as temporary")
	}
}

func TestTaskFilterMatch(t *testing.T) {
	task := Task{
		ID:           "t1",
		Status:       StatusInProgress,
		CollectionID: StringPtr("c1"),
		Labels:       []Label{{ID: "l1"}, {ID: "l2"}},
	}

	tests := []struct {
		name   string
		filter TaskFilter
		want   bool
	}{
		{"zero filter", TaskFilter{}, true},
		{"same collection", TaskFilter{CollectionID: "c1"}, true},
		{"other collection", TaskFilter{CollectionID: "c2"}, false},
		{"status in set", TaskFilter{Statuses: []Status{StatusTodo, StatusInProgress}}, true},
		{"status not in set", TaskFilter{Statuses: []Status{StatusDone}}, false},
		{"any label", TaskFilter{LabelIDs: []string{"l9", "l2"}}, true},
		{"no label", TaskFilter{LabelIDs: []string{"l9"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(task); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}

	if (TaskFilter{CollectionID: "c1"}).Match(Task{ID: "t2"}) {
		t.Error("task without collection matched a collection filter")
	}
}

func TestSplitIDs(t *testing.T) {
	got := SplitIDs("a,b", "b", " c ", "")
	want := []string{"a", "b", "c"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("SplitIDs() = %v, want %v", got, want)
	}
}

func TestInputValidation(t *testing.T) {
	if err := (TaskInput{Title: "  "}).Validate(); err != ErrTitleRequired {
		t.Errorf("expected ErrTitleRequired, got %v", err)
	}
	if err := (TaskInput{Title: "ok"}).Validate(); err != nil {
		t.Errorf("expected valid input, got %v", err)
	}
	empty := ""
	if err := (TaskPatch{Title: &empty}).Validate(); err != ErrTitleEmpty {
		t.Errorf("expected ErrTitleEmpty, got %v", err)
	}
	if err := (CollectionInput{}).Validate(); err != ErrNameRequired {
		t.Errorf("expected ErrNameRequired, got %v", err)
	}
	if err := (LabelPatch{}).Validate(); err != nil {
		t.Errorf("expected empty label patch to be valid, got %v", err)
	}
}

func TestAllLabelIDs(t *testing.T) {
	in := TaskInput{
		Title:    "x",
		LabelIDs: []string{"l1", "l2"},
		Extras:   &ExtrasInput{LabelIDs: &[]string{"l2", "l3"}},
	}
	got := in.AllLabelIDs()
	if strings.Join(got, ",") != "l1,l2,l3" {
		t.Errorf("AllLabelIDs() = %v", got)
	}
}

func TestExtrasLabelsClear(t *testing.T) {
	p := TaskPatch{Extras: &ExtrasInput{LabelIDs: &[]string{}}}
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"labelIds":[]`) {
		t.Errorf("empty extras labels dropped from %s", raw)
	}

	var decoded TaskPatch
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ids, ok := decoded.LabelChange()
	if !ok || len(ids) != 0 {
		t.Errorf("LabelChange() = %v, %v; want empty, true", ids, ok)
	}

	if _, ok := (TaskPatch{Extras: &ExtrasInput{Priority: "high"}}).LabelChange(); ok {
		t.Error("patch without labels reported a label change")
	}
}
