package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/taskgraph/internal/importer"
	"github.com/nhle/taskgraph/internal/model"
)

// block / unblock
var blockCmd = &cobra.Command{
	Use:   "block <ref> --by <ref>",
	Short: "Make one item wait for another",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBlock(cmd, args[0], true)
	},
}

var unblockCmd = &cobra.Command{
	Use:   "unblock <ref> --by <ref>",
	Short: "Remove a blocker from an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBlock(cmd, args[0], false)
	},
}

var blockBy string

// unlock
var unlockCmd = &cobra.Command{
	Use:   "unlock <ref>",
	Short: "Lock an item until a date, or clear its date",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnlock,
}

var (
	unlockAt    string
	unlockClear bool
)

// deps
var depsCmd = &cobra.Command{
	Use:   "deps <ref>",
	Short: "Replace every dependency of an item",
	Long: `Replace the blockers and the unlock date of an item in one step.

Dependencies not listed are removed, so "deps X" with no flags clears
them all.`,
	Args: cobra.ExactArgs(1),
	RunE: runDeps,
}

var (
	depsBy     []string
	depsUnlock string
)

func init() {
	for _, c := range []*cobra.Command{blockCmd, unblockCmd} {
		c.Flags().StringVar(&blockBy, "by", "", "the blocking item")
		_ = c.MarkFlagRequired("by")
	}

	unlockCmd.Flags().StringVar(&unlockAt, "at", "", "unlock date (RFC 3339 or YYYY-MM-DD)")
	unlockCmd.Flags().BoolVar(&unlockClear, "clear", false, "remove the unlock date")
	unlockCmd.MarkFlagsMutuallyExclusive("at", "clear")
	unlockCmd.MarkFlagsOneRequired("at", "clear")

	depsCmd.Flags().StringArrayVar(&depsBy, "by", nil, "a blocking item (repeatable)")
	depsCmd.Flags().StringVar(&depsUnlock, "unlock", "", "unlock date (RFC 3339 or YYYY-MM-DD)")

	rootCmd.AddCommand(blockCmd, unblockCmd, unlockCmd, depsCmd)
}

func runBlock(cmd *cobra.Command, ref string, add bool) error {
	return withSession(cmd, func(ctx context.Context, s *session) error {
		blocked, err := s.resolve(ref)
		if err != nil {
			return err
		}
		blocking, err := s.resolve(blockBy)
		if err != nil {
			return err
		}
		if add {
			if err := s.engine.AddBlocker(ctx, blocked.ID, blocking.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s now waits on %s\n", describe(blocked), describe(blocking))
			return nil
		}
		if err := s.engine.RemoveBlocker(ctx, blocked.ID, blocking.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s no longer waits on %s\n", describe(blocked), describe(blocking))
		return nil
	})
}

func runUnlock(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *session) error {
		it, err := s.resolve(args[0])
		if err != nil {
			return err
		}
		if unlockClear {
			if err := s.engine.ClearUnlockDate(ctx, it.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared unlock date of %s\n", describe(it))
			return nil
		}

		at, err := importer.ParseTime(unlockAt)
		if err != nil {
			return err
		}
		if err := s.engine.SetUnlockDate(ctx, it.ID, at); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s unlocks at %s\n", describe(it), at.Format("2006-01-02 15:04"))
		return nil
	})
}

func runDeps(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *session) error {
		it, err := s.resolve(args[0])
		if err != nil {
			return err
		}

		var desired []model.Dependency
		for _, ref := range depsBy {
			blocking, err := s.resolve(ref)
			if err != nil {
				return err
			}
			desired = append(desired, model.TaskDep(model.TaskDependency{
				BlockingTaskID: blocking.ID,
				BlockedTaskID:  it.ID,
			}))
		}
		if depsUnlock != "" {
			at, err := importer.ParseTime(depsUnlock)
			if err != nil {
				return err
			}
			desired = append(desired, model.DateDep(model.DateDependency{TaskID: it.ID, UnblockAt: at}))
		}

		result, err := s.engine.SetDependencies(ctx, it.ID, desired)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s has %d dependenc%s\n", describe(it), len(result), pluralY(len(result)))
		return nil
	})
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
