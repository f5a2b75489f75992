// Package main implements the taskgraph command.
//
// Run without a subcommand it opens the interactive tree; the
// subcommands script the same engine from a shell.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/taskgraph/internal/app"
	"github.com/nhle/taskgraph/internal/engine"
	"github.com/nhle/taskgraph/internal/graph"
	"github.com/nhle/taskgraph/internal/itemref"
	"github.com/nhle/taskgraph/internal/model"
	"github.com/nhle/taskgraph/internal/store"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps missing items to status 2 so scripts can tell them apart
// from other failures.
func exitCode(err error) int {
	if errors.Is(err, graph.ErrNotFound) {
		return 2
	}
	return 1
}

var rootCmd = &cobra.Command{
	Use:   "taskgraph",
	Short: "A hierarchical task graph with blockers and unlock dates",
	Long: `taskgraph keeps a forest of ambitions, objectives, missions and tasks.

Items can be blocked by other items or locked until a date. Without a
subcommand the interactive tree is opened.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runTUI,
}

var (
	flagConfig string
	flagDB     string
	flagOwner  string
	flagLog    string
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", model.DefaultConfigPath(), "config file")
	pf.StringVar(&flagDB, "db", "", "SQLite database path (overrides the config)")
	pf.StringVar(&flagOwner, "owner", "", "owner whose items are loaded (overrides the config)")
	pf.StringVar(&flagLog, "log", "", "append engine logs to this file")
}

// loadConfig reads the config file and applies the command-line overrides.
func loadConfig() (*model.AppConfig, error) {
	cfg, err := model.LoadConfig(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagDB != "" {
		cfg.Database.Path = flagDB
	}
	if flagOwner != "" {
		cfg.Owner.ID = flagOwner
	}
	return cfg, nil
}

// session is an open store with a populated engine on top of it.
type session struct {
	cfg     *model.AppConfig
	store   *store.SQLiteStore
	engine  *engine.Engine
	logFile *os.File
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
	}

	s := &session{cfg: cfg}
	var out io.Writer = io.Discard
	if flagLog != "" {
		f, err := os.OpenFile(flagLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		s.logFile = f
		out = f
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s.store = st
	s.engine = engine.New(st, cfg.Owner.ID,
		engine.WithStorageTimeout(cfg.StorageTimeout()),
		engine.WithLogger(log.New(out, "taskgraph: ", log.LstdFlags)),
	)
	if err := s.engine.Populate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) Close() {
	if s.store != nil {
		s.store.Close()
	}
	if s.logFile != nil {
		s.logFile.Close()
	}
}

// resolve looks up an item reference against the current snapshot.
func (s *session) resolve(ref string) (model.Item, error) {
	return itemref.Resolve(s.engine.Snapshot(), ref)
}

// withSession opens a session for the duration of fn.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	return withSession(cmd, func(_ context.Context, s *session) error {
		p := tea.NewProgram(app.New(s.engine, s.cfg, flagConfig), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("running program: %w", err)
		}
		return nil
	})
}

// describe names an item for command output.
func describe(it model.Item) string {
	return fmt.Sprintf("%s %q", itemref.ShortID(it.ID), it.Title)
}
