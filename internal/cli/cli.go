// Package cli implements the donezo command-line client.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/config"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/localstore"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/logging"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/remote"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/syncer"
)

// Version is set via ldflags at build time.
var Version = "dev"

const settingSessionToken = "session.token"

// ErrUsage reports a malformed command line. The usage text has already
// been printed.
var ErrUsage = errors.New("invalid usage")

// app is one invocation of the client.
type app struct {
	cfg    *config.ClientConfig
	out    io.Writer
	ui     *theme
	logger *slog.Logger

	store  *localstore.Store
	client *remote.Client
	sync   *syncer.Synchronizer
}

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"signup":      {"signup -email E -password P -name N", signupCommand},
	"login":       {"login -email E -password P", loginCommand},
	"logout":      {"logout", logoutCommand},
	"whoami":      {"whoami", whoamiCommand},
	"onboard":     {"onboard", onboardCommand},
	"tasks":       {"tasks [-collection ID] [-status S,...] [-label NAME|ID,...]", tasksCommand},
	"show":        {"show ID", showCommand},
	"add":         {"add -title T [-desc D] [-status S] [-collection ID] [-label NAME|ID,...] [-priority P] [-due YYYY-MM-DD]", addCommand},
	"edit":        {"edit ID [-title T] [-desc D] [-status S] [-collection ID|none] [-label NAME|ID,...] [-priority P] [-due YYYY-MM-DD]", editCommand},
	"rm":          {"rm ID", rmCommand},
	"collections": {"collections", collectionsCommand},
	"collection":  {"collection add -name N [-color C] | rename ID -name N | rm ID", collectionCommand},
	"labels":      {"labels", labelsCommand},
	"label":       {"label add -name N [-color C] | rename ID -name N | rm ID", labelCommand},
	"insights":    {"insights", insightsCommand},
}

var commandOrder = []string{
	"signup", "login", "logout", "whoami", "onboard",
	"tasks", "show", "add", "edit", "rm",
	"collections", "collection", "labels", "label", "insights",
}

// Run executes the donezo CLI.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("donezo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }
	configPath := fs.String("config", config.DefaultClientPath(), "Path to the client config file")
	showVersion := fs.Bool("version", false, "Show version")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return ErrUsage
	}
	if *showVersion {
		fmt.Fprintln(stdout, "donezo", Version)
		return nil
	}

	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(stderr)
		return ErrUsage
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", rest[0])
		printUsage(stderr)
		return ErrUsage
	}

	cfg, err := config.LoadClient(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a, err := open(cfg, stdout, stderr)
	if err != nil {
		return err
	}
	runErr := cmd.run(ctx, a, rest[1:])
	if errors.Is(runErr, ErrUsage) {
		fmt.Fprintf(stderr, "usage: donezo %s\n", cmd.usage)
	}
	return errors.Join(runErr, a.close(ctx))
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: donezo [-config PATH] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
}

func open(cfg *config.ClientConfig, stdout, stderr io.Writer) (*app, error) {
	logger := slog.New(logging.NewJSONHandler(stderr, logging.ParseLevel(cfg.LogLevel)))

	store, err := localstore.Open(cfg.StorePath(), logger)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}
	client, err := remote.New(cfg.APIURL, cfg.Timeout.Duration)
	if err != nil {
		store.Close()
		return nil, err
	}
	token, err := store.GetSetting(context.Background(), settingSessionToken)
	if err != nil {
		logger.Warn("reading saved session failed", "error", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	var notifier syncer.Notifier = syncer.LogNotifier{Logger: logger}
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Release: "donezo@" + Version}); err != nil {
			logger.Warn("sentry init failed", "error", err)
		} else {
			notifier = syncer.SentryNotifier{Next: notifier}
		}
	}

	return &app{
		cfg:    cfg,
		out:    stdout,
		ui:     newTheme(stdout),
		logger: logger,
		store:  store,
		client: client,
		sync:   syncer.New(client, store, syncer.WithLogger(logger), syncer.WithNotifier(notifier)),
	}, nil
}

// close drains local writes and saves the session token for the next run.
func (a *app) close(ctx context.Context) error {
	a.sync.Close()
	var err error
	if token := a.client.Token(); token != "" {
		err = a.store.SetSetting(ctx, settingSessionToken, token)
	} else {
		err = a.store.DeleteSetting(ctx, settingSessionToken)
	}
	if a.cfg.SentryDSN != "" {
		sentry.Flush(2 * time.Second)
	}
	return errors.Join(err, a.store.Close())
}

// splitID separates a leading positional id from the flags that follow it.
func splitID(args []string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return "", args
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
	}
	return nil
}

// resolve matches ref against ids exactly or by unique prefix.
func resolve(kind, ref string, ids []string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("%w: missing %s id", ErrUsage, kind)
	}
	var match string
	for _, id := range ids {
		if id == ref {
			return id, nil
		}
		if strings.HasPrefix(id, ref) {
			if match != "" {
				return "", fmt.Errorf("%s id %q is ambiguous", kind, ref)
			}
			match = id
		}
	}
	if match == "" {
		return "", fmt.Errorf("no %s matches %q", kind, ref)
	}
	return match, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
