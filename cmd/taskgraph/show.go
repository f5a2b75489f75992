package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/taskgraph/internal/graph"
	"github.com/nhle/taskgraph/internal/model"
	"github.com/nhle/taskgraph/internal/ui/detail"
)

var showCmd = &cobra.Command{
	Use:   "show <ref>",
	Short: "Show an item and why it is blocked",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var showRender bool

func init() {
	showCmd.Flags().BoolVar(&showRender, "render", false, "render the styled detail view instead of plain text")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(_ context.Context, s *session) error {
		it, err := s.resolve(args[0])
		if err != nil {
			return err
		}
		snap := s.engine.Snapshot()
		if showRender {
			fmt.Fprintln(cmd.OutOrStdout(), detail.Render(snap, s.engine.Resolver(), it, s.cfg.Display.Theme, 80))
			return nil
		}
		writeItem(cmd.OutOrStdout(), snap, s.engine.Resolver(), it)
		return nil
	})
}

func writeItem(w io.Writer, snap *graph.Snapshot, r graph.Resolver, it model.Item) {
	field := func(label, value string) {
		fmt.Fprintf(w, "%-10s %s\n", label+":", value)
	}

	field("ID", it.ID)
	field("Title", it.Title)

	typ := graph.EffectiveType(snap, it)
	if it.ManualType {
		field("Type", string(typ)+" (pinned)")
	} else {
		field("Type", string(typ))
	}

	rep := r.Report(snap, it.ID)
	switch {
	case it.Completed:
		field("Status", "done")
	case rep.Blocked:
		field("Status", "blocked")
	default:
		field("Status", "open")
	}

	if anc := snap.AncestorsOf(it.ID); len(anc) > 0 {
		titles := make([]string, len(anc))
		for i, a := range anc {
			titles[i] = a.Title
		}
		field("Path", strings.Join(titles, " / "))
	}
	if gate, ok := snap.DateGateOf(it.ID); ok {
		field("Unlocks", gate.UnblockAt.Local().Format("2006-01-02 15:04"))
	}

	if lines := detail.ReportLines(snap, rep); len(lines) > 0 && !it.Completed {
		fmt.Fprintln(w, "Blocked because:")
		for _, l := range lines {
			fmt.Fprintf(w, "  - %s\n", l)
		}
	}
	if deps := snap.BlockedBy(it.ID); len(deps) > 0 {
		fmt.Fprintln(w, "Blocks:")
		for _, d := range deps {
			if b, ok := snap.Item(d.BlockedTaskID); ok {
				fmt.Fprintf(w, "  - %s\n", b.Title)
			}
		}
	}
	if kids := snap.ChildrenOf(&it.ID); len(kids) > 0 {
		fmt.Fprintln(w, "Children:")
		for _, k := range kids {
			mark := " "
			if k.Completed {
				mark = "x"
			}
			fmt.Fprintf(w, "  [%s] %s\n", mark, k.Title)
		}
	}
	if d := strings.TrimSpace(it.Description); d != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, d)
	}
}
