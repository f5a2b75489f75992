package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/taskgraph/internal/engine"
	"github.com/nhle/taskgraph/internal/importer"
	"github.com/nhle/taskgraph/internal/itemref"
	"github.com/nhle/taskgraph/internal/model"
)

// add
var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add an item",
	Long: `Add an item at the end of its sibling group.

Without --under the item becomes a new root. --type pins the type;
otherwise it is derived from the item's place in the tree.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

var (
	addUnder       string
	addDescription string
	addType        string
	addUnlock      string
)

// done / undo
var doneCmd = &cobra.Command{
	Use:   "done <ref>...",
	Short: "Mark items completed",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setCompleted(cmd, args, true)
	},
}

var undoCmd = &cobra.Command{
	Use:     "undo <ref>...",
	Aliases: []string{"reopen"},
	Short:   "Mark items not completed",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setCompleted(cmd, args, false)
	},
}

// edit
var editCmd = &cobra.Command{
	Use:   "edit <ref>",
	Short: "Change an item's title or description",
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

var (
	editTitle       string
	editDescription string
)

// rm
var rmCmd = &cobra.Command{
	Use:     "rm <ref>",
	Aliases: []string{"delete"},
	Short:   "Delete an item",
	Long: `Delete an item.

Its children move up to take its place unless --cascade is given, in
which case the whole subtree is removed.`,
	Args: cobra.ExactArgs(1),
	RunE: runRm,
}

var rmCascade bool

// type
var typeCmd = &cobra.Command{
	Use:   "type <ref> <task|mission|objective|ambition|auto>",
	Short: "Pin an item's type, or derive it again with auto",
	Args:  cobra.ExactArgs(2),
	RunE:  runType,
}

// repair
var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Renumber sibling positions so each group is 0..n-1",
	Args:  cobra.NoArgs,
	RunE:  runRepair,
}

func init() {
	addCmd.Flags().StringVar(&addUnder, "under", "", "parent item")
	addCmd.Flags().StringVarP(&addDescription, "description", "d", "", "markdown description")
	addCmd.Flags().StringVarP(&addType, "type", "t", "", "pin the type (task, mission, objective, ambition)")
	addCmd.Flags().StringVar(&addUnlock, "unlock", "", "lock until this date (RFC 3339 or YYYY-MM-DD)")

	editCmd.Flags().StringVar(&editTitle, "title", "", "new title")
	editCmd.Flags().StringVarP(&editDescription, "description", "d", "", "new markdown description")

	rmCmd.Flags().BoolVar(&rmCascade, "cascade", false, "delete the whole subtree")

	rootCmd.AddCommand(addCmd, doneCmd, undoCmd, editCmd, rmCmd, typeCmd, repairCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	draft := model.ItemDraft{
		Title:       args[0],
		Description: addDescription,
	}
	if addType != "" {
		t := model.ItemType(strings.ToLower(addType))
		if !t.IsValid() {
			return fmt.Errorf("unknown type %q", addType)
		}
		draft.Type = model.TypePtr(t)
		draft.ManualType = true
	}

	return withSession(cmd, func(ctx context.Context, s *session) error {
		if addUnder != "" {
			parent, err := s.resolve(addUnder)
			if err != nil {
				return err
			}
			draft.ParentID = &parent.ID
		}

		it, err := s.engine.Create(ctx, draft)
		if err != nil {
			return err
		}
		if addUnlock != "" {
			at, err := importer.ParseTime(addUnlock)
			if err != nil {
				return err
			}
			if err := s.engine.SetUnlockDate(ctx, it.ID, at); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", describe(it))
		return nil
	})
}

func setCompleted(cmd *cobra.Command, refs []string, completed bool) error {
	verb := "completed"
	if !completed {
		verb = "reopened"
	}
	return withSession(cmd, func(ctx context.Context, s *session) error {
		for _, ref := range refs {
			it, err := s.resolve(ref)
			if err != nil {
				return err
			}
			it, err = s.engine.Update(ctx, it.ID, model.ItemPatch{Completed: model.BoolPtr(completed)})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, describe(it))
		}
		return nil
	})
}

func runEdit(cmd *cobra.Command, args []string) error {
	var patch model.ItemPatch
	if cmd.Flags().Changed("title") {
		patch.Title = &editTitle
	}
	if cmd.Flags().Changed("description") {
		patch.Description = &editDescription
	}
	if patch.IsEmpty() {
		return fmt.Errorf("nothing to change: pass --title or --description")
	}

	return withSession(cmd, func(ctx context.Context, s *session) error {
		it, err := s.resolve(args[0])
		if err != nil {
			return err
		}
		it, err = s.engine.Update(ctx, it.ID, patch)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", describe(it))
		return nil
	})
}

func runRm(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *session) error {
		it, err := s.resolve(args[0])
		if err != nil {
			return err
		}
		removed := 1
		if rmCascade {
			removed += len(s.engine.Snapshot().DescendantsOf(it.ID))
		}
		if err := s.engine.Delete(ctx, it.ID, engine.DeleteOptions{Cascade: rmCascade}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s (%d item(s))\n", describe(it), removed)
		return nil
	})
}

func runType(cmd *cobra.Command, args []string) error {
	patch, err := itemref.TypePatch(args[1])
	if err != nil {
		return err
	}
	return withSession(cmd, func(ctx context.Context, s *session) error {
		it, err := s.resolve(args[0])
		if err != nil {
			return err
		}
		if _, err := s.engine.Update(ctx, it.ID, patch); err != nil {
			return err
		}
		typ, err := s.engine.EffectiveType(it.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", describe(it), typ)
		return nil
	})
}

func runRepair(cmd *cobra.Command, _ []string) error {
	return withSession(cmd, func(ctx context.Context, s *session) error {
		n, err := s.engine.Repair(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "repair rewrote %d position(s)\n", n)
		return nil
	})
}
