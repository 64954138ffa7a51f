package syncer

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/domain"
)

// LoadLabels hydrates the label cache. Labels keep server order.
func (s *Synchronizer) LoadLabels(ctx context.Context) (LoadResult, error) {
	return load(ctx, s, s.labels, loadSpec[domain.Label]{
		match: func(domain.Label) bool { return true },
		fetch: s.remote.ListLabels,
		prune: true,
	})
}

func (s *Synchronizer) CreateLabel(ctx context.Context, in domain.LabelInput) (domain.Label, error) {
	if err := in.Validate(); err != nil {
		return domain.Label{}, err
	}
	return create(ctx, s, s.labels, createSpec[domain.Label]{
		op: "create label",
		build: func(user domain.User, tempID string) domain.Label {
			return domain.Label{ID: tempID, Name: in.Name, Color: nonEmpty(in.Color), UserID: user.ID}
		},
		send: func(ctx context.Context) (domain.Label, error) {
			return s.remote.CreateLabel(ctx, in)
		},
		discard: s.remote.DeleteLabel,
	})
}

// UpdateLabel renames or recolors a label. Once confirmed, the copies
// embedded in cached tasks are refreshed too.
func (s *Synchronizer) UpdateLabel(ctx context.Context, id string, p domain.LabelPatch) (domain.Label, error) {
	if err := p.Validate(); err != nil {
		return domain.Label{}, err
	}
	saved, err := update(ctx, s, s.labels, id, updateSpec[domain.Label]{
		op: "update label",
		apply: func(l *domain.Label) {
			if p.Name != nil {
				l.Name = *p.Name
			}
			if p.Color != nil {
				l.Color = domain.StringPtr(*p.Color)
			}
		},
		send: func(ctx context.Context) (domain.Label, error) {
			return s.remote.UpdateLabel(ctx, id, p)
		},
	})
	if err != nil {
		return saved, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rewriteTasks(func(t *domain.Task) bool {
		changed := replaceLabel(t.Labels, saved)
		if t.Extras != nil && replaceLabel(t.Extras.Labels, saved) {
			changed = true
		}
		return changed
	})
	return saved, nil
}

// DeleteLabel removes the label and strips it from cached tasks. Both are
// restored if the server refuses.
func (s *Synchronizer) DeleteLabel(ctx context.Context, id string) error {
	return remove(ctx, s, s.labels, id, removeSpec{
		op: "delete label",
		send: func(ctx context.Context) error {
			return s.remote.DeleteLabel(ctx, id)
		},
		detach: func() func() {
			return s.rewriteTasks(func(t *domain.Task) bool {
				var changed bool
				t.Labels, changed = stripLabel(t.Labels, id)
				if t.Extras != nil {
					var extrasChanged bool
					t.Extras.Labels, extrasChanged = stripLabel(t.Extras.Labels, id)
					changed = changed || extrasChanged
				}
				return changed
			})
		},
	})
}

func replaceLabel(labels []domain.Label, l domain.Label) bool {
	changed := false
	for i := range labels {
		if labels[i].ID == l.ID {
			labels[i] = l.Clone()
			changed = true
		}
	}
	return changed
}

func stripLabel(labels []domain.Label, id string) ([]domain.Label, bool) {
	out := labels[:0:0]
	for _, l := range labels {
		if l.ID != id {
			out = append(out, l)
		}
	}
	if len(out) == len(labels) {
		return labels, false
	}
	return out, true
}
