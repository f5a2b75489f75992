package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/nhle/taskgraph/internal/graph"
)

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"taskgraph": main,
	})
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
		Setup: func(env *testscript.Env) error {
			home := filepath.Join(env.WorkDir, "home")
			if err := os.MkdirAll(home, 0o755); err != nil {
				return err
			}
			env.Setenv("HOME", home)
			env.Setenv("XDG_DATA_HOME", filepath.Join(home, "data"))
			env.Setenv("TZ", "UTC")
			return nil
		},
	})
}

func TestRootCommandName(t *testing.T) {
	if rootCmd.Use != "taskgraph" {
		t.Fatalf("expected root command name taskgraph, got %q", rootCmd.Use)
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("move: %w", graph.NotFoundError{Kind: "item", ID: "x"}), 2},
		{"other", os.ErrPermission, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCode(tc.err); got != tc.want {
				t.Errorf("exitCode = %d, want %d", got, tc.want)
			}
		})
	}
}
