package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/domain"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/syncer"
)

const dateLayout = "2006-01-02"

// restore resumes the saved session or explains how to start one.
func (a *app) restore(ctx context.Context) (domain.User, error) {
	u, err := a.sync.Restore(ctx)
	if errors.Is(err, syncer.ErrNoUser) {
		return domain.User{}, errors.New("not logged in: run `donezo login` first")
	}
	return u, err
}

// prepare restores the session and loads labels and collections so that
// names and id prefixes can be resolved.
func (a *app) prepare(ctx context.Context) error {
	if _, err := a.restore(ctx); err != nil {
		return err
	}
	if _, err := a.sync.LoadLabels(ctx); err != nil {
		return err
	}
	_, err := a.sync.LoadCollections(ctx)
	return err
}

func (a *app) noteOffline(result syncer.LoadResult) {
	if result == syncer.LoadedLocal {
		fmt.Fprintln(a.out, a.ui.warn.Render("server unreachable, showing local copy"))
	}
}

func (a *app) taskID(ref string) (string, error) {
	tasks := a.sync.Tasks()
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return resolve("task", ref, ids)
}

func (a *app) collectionID(ref string) (string, error) {
	var ids []string
	for _, c := range a.sync.Collections() {
		if strings.EqualFold(c.Name, ref) {
			return c.ID, nil
		}
		ids = append(ids, c.ID)
	}
	return resolve("collection", ref, ids)
}

// labelIDs resolves a comma-separated list of label names or id prefixes.
func (a *app) labelIDs(refs string) ([]string, error) {
	labels := a.sync.Labels()
	ids := make([]string, len(labels))
	for i, l := range labels {
		ids[i] = l.ID
	}
	out := []string{}
	for _, ref := range splitList(refs) {
		id := ""
		for _, l := range labels {
			if strings.EqualFold(l.Name, ref) {
				id = l.ID
				break
			}
		}
		if id == "" {
			var err error
			if id, err = resolve("label", ref, ids); err != nil {
				return nil, err
			}
		}
		out = append(out, id)
	}
	return out, nil
}

func signupCommand(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("signup")
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (at least 6 characters)")
	name := fs.String("name", "", "Display name")
	if err := parse(fs, args); err != nil {
		return err
	}
	u, err := a.sync.Signup(ctx, domain.SignupInput{Email: *email, Password: *password, Name: *name})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %s <%s>\n", a.ui.ok.Render("Signed up as"), u.Name, u.Email)
	return nil
}

func loginCommand(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password")
	if err := parse(fs, args); err != nil {
		return err
	}
	u, err := a.sync.Login(ctx, domain.LoginInput{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %s <%s>\n", a.ui.ok.Render("Logged in as"), u.Name, u.Email)
	return nil
}

func logoutCommand(ctx context.Context, a *app, args []string) error {
	if err := parse(newFlagSet("logout"), args); err != nil {
		return err
	}
	if _, err := a.sync.Restore(ctx); err != nil && !errors.Is(err, syncer.ErrNoUser) {
		a.logger.Debug("restore before logout failed", "error", err)
	}
	if err := a.sync.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, a.ui.ok.Render("Logged out"))
	return nil
}

func whoamiCommand(ctx context.Context, a *app, args []string) error {
	if err := parse(newFlagSet("whoami"), args); err != nil {
		return err
	}
	u, err := a.restore(ctx)
	if err != nil {
		return err
	}
	onboarding := "pending"
	if u.HasCompletedOnboarding {
		onboarding = "done"
	}
	fmt.Fprintf(a.out, "%s <%s>\n", a.ui.title.Render(u.Name), u.Email)
	fmt.Fprintf(a.out, "%s %s\n", a.ui.dim.Render("onboarding"), onboarding)
	return nil
}

func onboardCommand(ctx context.Context, a *app, args []string) error {
	if err := parse(newFlagSet("onboard"), args); err != nil {
		return err
	}
	if _, err := a.restore(ctx); err != nil {
		return err
	}
	if _, err := a.sync.CompleteOnboarding(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, a.ui.ok.Render("Onboarding complete"))
	return nil
}

func tasksCommand(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("tasks")
	collection := fs.String("collection", "", "Only tasks in this collection (name or id)")
	status := fs.String("status", "", "Comma-separated statuses")
	labels := fs.String("label", "", "Comma-separated label names or ids; matches any")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := a.prepare(ctx); err != nil {
		return err
	}

	var f domain.TaskFilter
	if *collection != "" {
		id, err := a.collectionID(*collection)
		if err != nil {
			return err
		}
		f.CollectionID = id
	}
	if *status != "" {
		if f.Statuses = domain.ParseStatuses(*status); len(f.Statuses) == 0 {
			return fmt.Errorf("unknown status %q", *status)
		}
	}
	if *labels != "" {
		ids, err := a.labelIDs(*labels)
		if err != nil {
			return err
		}
		f.LabelIDs = ids
	}

	result, err := a.sync.LoadTasks(ctx, f)
	if err != nil {
		return err
	}
	a.noteOffline(result)

	var tasks []domain.Task
	for _, t := range a.sync.Tasks() {
		if f.Match(t) {
			tasks = append(tasks, t)
		}
	}
	a.ui.printTasks(a.out, tasks)
	return nil
}

func showCommand(ctx context.Context, a *app, args []string) error {
	ref, rest := splitID(args)
	if err := parse(newFlagSet("show"), rest); err != nil {
		return err
	}
	if err := a.prepare(ctx); err != nil {
		return err
	}
	result, err := a.sync.LoadTasks(ctx, domain.TaskFilter{})
	if err != nil {
		return err
	}
	a.noteOffline(result)
	id, err := a.taskID(ref)
	if err != nil {
		return err
	}
	a.sync.Select(id)
	task, _ := a.sync.SelectedTask()
	collection := ""
	if task.CollectionID != nil {
		if c, ok := a.sync.Collection(*task.CollectionID); ok {
			collection = c.Name
		}
	}
	a.ui.printTask(a.out, task, collection)
	return nil
}

// taskFlags are shared by add and edit.
type taskFlags struct {
	fs          *flag.FlagSet
	title       *string
	description *string
	status      *string
	collection  *string
	labels      *string
	priority    *string
	due         *string
}

func newTaskFlags(name string) taskFlags {
	fs := newFlagSet(name)
	return taskFlags{
		fs:          fs,
		title:       fs.String("title", "", "Task title"),
		description: fs.String("desc", "", "Description"),
		status:      fs.String("status", "", "TODO, IN_PROGRESS or DONE"),
		collection:  fs.String("collection", "", "Collection name or id"),
		labels:      fs.String("label", "", "Comma-separated label names or ids"),
		priority:    fs.String("priority", "", "LOW, MEDIUM, HIGH or URGENT"),
		due:         fs.String("due", "", "Due date (YYYY-MM-DD)"),
	}
}

func (tf taskFlags) extras(set map[string]bool) (*domain.ExtrasInput, error) {
	if !set["priority"] && !set["due"] {
		return nil, nil
	}
	extras := &domain.ExtrasInput{Priority: *tf.priority}
	if set["priority"] && domain.NormalizePriority(*tf.priority) == "" {
		return nil, fmt.Errorf("unknown priority %q", *tf.priority)
	}
	if set["due"] {
		due, err := time.ParseInLocation(dateLayout, *tf.due, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid due date %q: want YYYY-MM-DD", *tf.due)
		}
		extras.DueDate = &due
	}
	return extras, nil
}

func visited(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func addCommand(ctx context.Context, a *app, args []string) error {
	tf := newTaskFlags("add")
	if err := parse(tf.fs, args); err != nil {
		return err
	}
	if err := a.prepare(ctx); err != nil {
		return err
	}
	set := visited(tf.fs)

	in := domain.TaskInput{Title: *tf.title, Status: *tf.status}
	if set["desc"] {
		in.Description = tf.description
	}
	if *tf.collection != "" {
		id, err := a.collectionID(*tf.collection)
		if err != nil {
			return err
		}
		in.CollectionID = &id
	}
	if *tf.labels != "" {
		ids, err := a.labelIDs(*tf.labels)
		if err != nil {
			return err
		}
		in.LabelIDs = ids
	}
	extras, err := tf.extras(set)
	if err != nil {
		return err
	}
	in.Extras = extras

	task, err := a.sync.CreateTask(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %s %s\n", a.ui.ok.Render("Created"), task.Title, a.ui.dim.Render(task.ID))
	return nil
}

func editCommand(ctx context.Context, a *app, args []string) error {
	ref, rest := splitID(args)
	tf := newTaskFlags("edit")
	if err := parse(tf.fs, rest); err != nil {
		return err
	}
	if err := a.prepare(ctx); err != nil {
		return err
	}
	if _, err := a.sync.LoadTasks(ctx, domain.TaskFilter{}); err != nil {
		return err
	}
	id, err := a.taskID(ref)
	if err != nil {
		return err
	}

	set := visited(tf.fs)
	var p domain.TaskPatch
	if set["title"] {
		p.Title = tf.title
	}
	if set["desc"] {
		p.Description = tf.description
	}
	if set["status"] {
		if domain.NormalizeStatus(*tf.status) == "" {
			return fmt.Errorf("unknown status %q", *tf.status)
		}
		p.Status = tf.status
	}
	if set["collection"] {
		cid := ""
		if *tf.collection != "none" && *tf.collection != "" {
			if cid, err = a.collectionID(*tf.collection); err != nil {
				return err
			}
		}
		p.CollectionID = &cid
	}
	if set["label"] {
		ids, err := a.labelIDs(*tf.labels)
		if err != nil {
			return err
		}
		p.LabelIDs = &ids
	}
	if p.Extras, err = tf.extras(set); err != nil {
		return err
	}

	task, err := a.sync.UpdateTask(ctx, id, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %s\n", a.ui.ok.Render("Updated"), a.ui.taskLine(task))
	return nil
}

func rmCommand(ctx context.Context, a *app, args []string) error {
	ref, rest := splitID(args)
	if err := parse(newFlagSet("rm"), rest); err != nil {
		return err
	}
	if _, err := a.restore(ctx); err != nil {
		return err
	}
	if _, err := a.sync.LoadTasks(ctx, domain.TaskFilter{}); err != nil {
		return err
	}
	id, err := a.taskID(ref)
	if err != nil {
		return err
	}
	task, _ := a.sync.Task(id)
	if err := a.sync.DeleteTask(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %s\n", a.ui.ok.Render("Deleted"), task.Title)
	return nil
}

func collectionsCommand(ctx context.Context, a *app, args []string) error {
	if err := parse(newFlagSet("collections"), args); err != nil {
		return err
	}
	if _, err := a.restore(ctx); err != nil {
		return err
	}
	result, err := a.sync.LoadCollections(ctx)
	if err != nil {
		return err
	}
	a.noteOffline(result)
	collections := a.sync.Collections()
	if len(collections) == 0 {
		fmt.Fprintln(a.out, a.ui.dim.Render("No collections"))
		return nil
	}
	for _, c := range collections {
		fmt.Fprintf(a.out, "%s%s\n", a.ui.id.Render(shortID(c.ID)), a.ui.colorName(c.Name, c.Color))
	}
	return nil
}

func collectionCommand(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	sub, ref, rest := args[0], "", args[1:]
	if sub != "add" {
		ref, rest = splitID(rest)
	}
	fs := newFlagSet("collection " + sub)
	name := fs.String("name", "", "Collection name")
	color := fs.String("color", "", "Color, e.g. #2563eb")
	if err := parse(fs, rest); err != nil {
		return err
	}
	if err := a.prepare(ctx); err != nil {
		return err
	}

	switch sub {
	case "add":
		c, err := a.sync.CreateCollection(ctx, domain.CollectionInput{Name: *name, Color: domain.StringPtr(*color)})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s %s %s\n", a.ui.ok.Render("Created collection"), c.Name, a.ui.dim.Render(c.ID))
	case "rename":
		id, err := a.collectionID(ref)
		if err != nil {
			return err
		}
		current, _ := a.sync.Collection(id)
		in := domain.CollectionInput{Name: *name, Color: current.Color}
		if *color != "" {
			in.Color = color
		}
		c, err := a.sync.UpdateCollection(ctx, id, in)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s %s\n", a.ui.ok.Render("Renamed collection to"), c.Name)
	case "rm":
		id, err := a.collectionID(ref)
		if err != nil {
			return err
		}
		if _, err := a.sync.LoadTasks(ctx, domain.TaskFilter{}); err != nil {
			return err
		}
		if err := a.sync.DeleteCollection(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(a.out, a.ui.ok.Render("Deleted collection"))
	default:
		return fmt.Errorf("%w: unknown collection command %q", ErrUsage, sub)
	}
	return nil
}

func labelsCommand(ctx context.Context, a *app, args []string) error {
	if err := parse(newFlagSet("labels"), args); err != nil {
		return err
	}
	if _, err := a.restore(ctx); err != nil {
		return err
	}
	result, err := a.sync.LoadLabels(ctx)
	if err != nil {
		return err
	}
	a.noteOffline(result)
	for _, l := range a.sync.Labels() {
		fmt.Fprintf(a.out, "%s%s\n", a.ui.id.Render(shortID(l.ID)), a.ui.colorName(l.Name, l.Color))
	}
	return nil
}

func labelCommand(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	sub, ref, rest := args[0], "", args[1:]
	if sub != "add" {
		ref, rest = splitID(rest)
	}
	fs := newFlagSet("label " + sub)
	name := fs.String("name", "", "Label name")
	color := fs.String("color", "", "Color, e.g. #dc2626")
	if err := parse(fs, rest); err != nil {
		return err
	}
	if err := a.prepare(ctx); err != nil {
		return err
	}

	switch sub {
	case "add":
		l, err := a.sync.CreateLabel(ctx, domain.LabelInput{Name: *name, Color: domain.StringPtr(*color)})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s %s %s\n", a.ui.ok.Render("Created label"), l.Name, a.ui.dim.Render(l.ID))
	case "rename":
		ids, err := a.labelIDs(ref)
		if err != nil {
			return err
		}
		if len(ids) != 1 {
			return fmt.Errorf("%w: missing label id", ErrUsage)
		}
		var p domain.LabelPatch
		if *name != "" {
			p.Name = name
		}
		if *color != "" {
			p.Color = color
		}
		l, err := a.sync.UpdateLabel(ctx, ids[0], p)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s %s\n", a.ui.ok.Render("Renamed label to"), l.Name)
	case "rm":
		ids, err := a.labelIDs(ref)
		if err != nil {
			return err
		}
		if len(ids) != 1 {
			return fmt.Errorf("%w: missing label id", ErrUsage)
		}
		if _, err := a.sync.LoadTasks(ctx, domain.TaskFilter{}); err != nil {
			return err
		}
		if err := a.sync.DeleteLabel(ctx, ids[0]); err != nil {
			return err
		}
		fmt.Fprintln(a.out, a.ui.ok.Render("Deleted label"))
	default:
		return fmt.Errorf("%w: unknown label command %q", ErrUsage, sub)
	}
	return nil
}

func insightsCommand(ctx context.Context, a *app, args []string) error {
	if err := parse(newFlagSet("insights"), args); err != nil {
		return err
	}
	if err := a.prepare(ctx); err != nil {
		return err
	}
	if _, err := a.sync.LoadTasks(ctx, domain.TaskFilter{}); err != nil {
		return err
	}
	in := a.sync.Insights(ctx)

	fmt.Fprintf(a.out, "%s %d\n", a.ui.title.Render("Tasks"), in.Total)
	for _, s := range in.ByStatus {
		fmt.Fprintf(a.out, "  %s%d\n", a.ui.statusText(s.Status), s.Count)
	}
	if len(in.ByCollection) > 0 {
		fmt.Fprintln(a.out, a.ui.title.Render("Collections"))
	}
	for _, c := range in.ByCollection {
		name := "No collection"
		if c.CollectionID != nil {
			name = shortID(*c.CollectionID)
			if col, ok := a.sync.Collection(*c.CollectionID); ok {
				name = col.Name
			}
		}
		fmt.Fprintf(a.out, "  %-20s %d\n", name, c.Count)
	}
	return nil
}
