package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/taskgraph/internal/graph"
	"github.com/nhle/taskgraph/internal/itemref"
	"github.com/nhle/taskgraph/internal/ui/tasklist"
)

// list
var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Print the task forest",
	Long: `Print the task forest in tree order.

Items hidden by a filter still appear, marked with "·", when one of
their descendants is shown.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var (
	listActionable bool
	listHideDone   bool
	listGrep       string
	listIDs        bool
)

// move
var moveCmd = &cobra.Command{
	Use:   "move <ref>",
	Short: "Reparent or reorder an item",
	Long: `Move an item under a new parent, to the root level, or to another
position among its current siblings.

--at is a zero-based position, clamped into the destination group. When
it is omitted the item goes last.`,
	Args: cobra.ExactArgs(1),
	RunE: runMove,
}

var (
	moveUnder string
	moveRoot  bool
	moveAt    int
)

func init() {
	listCmd.Flags().BoolVarP(&listActionable, "actionable", "a", false, "only open, unblocked leaves")
	listCmd.Flags().BoolVar(&listHideDone, "hide-done", false, "hide completed items")
	listCmd.Flags().StringVarP(&listGrep, "grep", "g", "", "only items whose title contains this text")
	listCmd.Flags().BoolVar(&listIDs, "ids", false, "prefix each line with the short item id")

	moveCmd.Flags().StringVar(&moveUnder, "under", "", "new parent item")
	moveCmd.Flags().BoolVar(&moveRoot, "root", false, "move to the root level")
	moveCmd.Flags().IntVar(&moveAt, "at", -1, "position among the new siblings")
	moveCmd.MarkFlagsMutuallyExclusive("under", "root")

	rootCmd.AddCommand(listCmd, moveCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	return withSession(cmd, func(_ context.Context, s *session) error {
		rows := tasklist.BuildRows(s.engine.Snapshot(), s.engine.Resolver(), tasklist.Options{
			ShowCompleted:  !listHideDone,
			ActionableOnly: listActionable,
			Query:          listGrep,
		})
		if len(rows) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no items")
			return nil
		}
		writeRows(cmd.OutOrStdout(), rows, listIDs)
		return nil
	})
}

// writeRows prints one line per row:
//
//	├─ [ ] Title (task) ⊘ ⏲ 2026-08-01
func writeRows(w io.Writer, rows []tasklist.Row, ids bool) {
	for _, row := range rows {
		var b strings.Builder
		if ids {
			b.WriteString(itemref.ShortID(row.Item.ID))
			b.WriteString("  ")
		}
		b.WriteString(row.Prefix)
		switch {
		case row.Dimmed:
			b.WriteString("·   ")
		case row.Item.Completed:
			b.WriteString("[x] ")
		default:
			b.WriteString("[ ] ")
		}
		b.WriteString(row.Item.Title)
		fmt.Fprintf(&b, " (%s)", row.Type)
		if row.Blocked && !row.Item.Completed {
			b.WriteString(" ⊘")
		}
		if row.UnlockAt != nil {
			b.WriteString(" ⏲ ")
			b.WriteString(row.UnlockAt.Local().Format("2006-01-02"))
		}
		fmt.Fprintln(w, b.String())
	}
}

func runMove(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *session) error {
		snap := s.engine.Snapshot()
		it, err := s.resolve(args[0])
		if err != nil {
			return err
		}

		parentID := it.ParentID
		switch {
		case moveRoot:
			parentID = nil
		case moveUnder != "":
			parent, err := s.resolve(moveUnder)
			if err != nil {
				return err
			}
			parentID = &parent.ID
		}

		pos := moveAt
		if pos < 0 {
			pos = len(snap.ChildrenOf(parentID))
		}
		if err := s.engine.Move(ctx, it.ID, parentID, pos); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "moved %s to %s\n", describe(it), placement(s.engine.Snapshot(), it.ID))
		return nil
	})
}

// placement describes where id sits, e.g. `position 1 under "Launch"`.
func placement(snap *graph.Snapshot, id string) string {
	it, ok := snap.Item(id)
	if !ok {
		return "nowhere"
	}
	if it.ParentID == nil {
		return fmt.Sprintf("position %d at the root", it.Position)
	}
	parent, _ := snap.Item(*it.ParentID)
	return fmt.Sprintf("position %d under %q", it.Position, parent.Title)
}
