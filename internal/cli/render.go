package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/domain"
)

// theme holds the styles for one output stream. Colors are dropped when
// the stream is not a terminal.
type theme struct {
	title   lipgloss.Style
	dim     lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	id      lipgloss.Style
	label   lipgloss.Style
	status  map[domain.Status]lipgloss.Style
	urgency map[domain.Priority]lipgloss.Style
}

func newTheme(w io.Writer) *theme {
	r := lipgloss.NewRenderer(w)
	return &theme{
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7aa2f7")),
		dim:   r.NewStyle().Foreground(lipgloss.Color("#565f89")),
		ok:    r.NewStyle().Foreground(lipgloss.Color("#9ece6a")),
		warn:  r.NewStyle().Foreground(lipgloss.Color("#e0af68")),
		id:    r.NewStyle().Foreground(lipgloss.Color("#565f89")).Width(10),
		label: r.NewStyle().Foreground(lipgloss.Color("#bb9af7")),
		status: map[domain.Status]lipgloss.Style{
			domain.StatusTodo:       r.NewStyle().Foreground(lipgloss.Color("#c0caf5")).Width(13),
			domain.StatusInProgress: r.NewStyle().Foreground(lipgloss.Color("#e0af68")).Width(13),
			domain.StatusDone:       r.NewStyle().Foreground(lipgloss.Color("#9ece6a")).Width(13),
		},
		urgency: map[domain.Priority]lipgloss.Style{
			domain.PriorityLow:    r.NewStyle().Foreground(lipgloss.Color("#565f89")),
			domain.PriorityMedium: r.NewStyle().Foreground(lipgloss.Color("#7dcfff")),
			domain.PriorityHigh:   r.NewStyle().Foreground(lipgloss.Color("#e0af68")),
			domain.PriorityUrgent: r.NewStyle().Foreground(lipgloss.Color("#f7768e")).Bold(true),
		},
	}
}

func shortID(id string) string {
	if domain.IsTempID(id) {
		return "pending"
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (t *theme) statusText(s domain.Status) string {
	style, ok := t.status[s]
	if !ok {
		style = t.dim.Width(13)
	}
	if s == "" {
		s = "-"
	}
	return style.Render(string(s))
}

func (t *theme) taskLine(task domain.Task) string {
	var b strings.Builder
	b.WriteString(t.id.Render(shortID(task.ID)))
	b.WriteString(t.statusText(task.Status))
	b.WriteString(task.Title)
	for _, l := range task.Labels {
		b.WriteString(" ")
		b.WriteString(t.label.Render("#" + l.Name))
	}
	if e := task.Extras; e != nil {
		if e.Priority != "" {
			b.WriteString(" ")
			b.WriteString(t.urgency[e.Priority].Render("!" + string(e.Priority)))
		}
		if e.DueDate != nil {
			b.WriteString(" ")
			b.WriteString(t.dim.Render("due " + e.DueDate.Format(dateLayout)))
		}
	}
	return b.String()
}

func (t *theme) printTasks(w io.Writer, tasks []domain.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, t.dim.Render("No tasks"))
		return
	}
	for _, task := range tasks {
		fmt.Fprintln(w, t.taskLine(task))
	}
}

func (t *theme) printTask(w io.Writer, task domain.Task, collection string) {
	fmt.Fprintln(w, t.title.Render(task.Title))
	row := func(k, v string) { fmt.Fprintf(w, "  %s %s\n", t.dim.Render(fmt.Sprintf("%-12s", k)), v) }
	row("id", task.ID)
	row("status", t.statusText(task.Status))
	if task.Description != nil {
		row("description", *task.Description)
	}
	if collection != "" {
		row("collection", collection)
	}
	if len(task.Labels) > 0 {
		names := make([]string, len(task.Labels))
		for i, l := range task.Labels {
			names[i] = t.label.Render("#" + l.Name)
		}
		row("labels", strings.Join(names, " "))
	}
	if e := task.Extras; e != nil {
		if e.Priority != "" {
			row("priority", t.urgency[e.Priority].Render(string(e.Priority)))
		}
		if e.DueDate != nil {
			row("due", e.DueDate.Format(dateLayout))
		}
	}
	row("created", task.CreatedAt.Local().Format("2006-01-02 15:04"))
}

func (t *theme) colorName(name string, color *string) string {
	if color == nil || *color == "" {
		return name
	}
	return t.label.Foreground(lipgloss.Color(*color)).Render(name)
}
