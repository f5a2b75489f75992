package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/taskgraph/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a YAML tree of items",
	Long: `Import a YAML tree of items. Use "-" to read standard input.

Each item has a title and may carry description, type, done, unlock_at,
blocked_by (titles) and children.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var importUnder string

var exportCmd = &cobra.Command{
	Use:   "export [ref]",
	Short: "Export the forest, or one subtree, as YAML",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

var exportOutput string

func init() {
	importCmd.Flags().StringVar(&importUnder, "under", "", "parent for the imported roots")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to this file instead of standard output")
	rootCmd.AddCommand(importCmd, exportCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	doc, err := importer.Parse(data)
	if err != nil {
		return err
	}

	return withSession(cmd, func(ctx context.Context, s *session) error {
		var parentID *string
		if importUnder != "" {
			parent, err := s.resolve(importUnder)
			if err != nil {
				return err
			}
			parentID = &parent.ID
		}
		n, err := importer.Import(ctx, s.engine, doc, parentID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d item(s)\n", n)
		return nil
	})
}

func runExport(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(_ context.Context, s *session) error {
		var rootID *string
		if len(args) == 1 {
			it, err := s.resolve(args[0])
			if err != nil {
				return err
			}
			rootID = &it.ID
		}
		doc, err := importer.Export(s.engine.Snapshot(), rootID)
		if err != nil {
			return err
		}
		out, err := importer.Marshal(doc)
		if err != nil {
			return err
		}
		if exportOutput != "" {
			return os.WriteFile(exportOutput, out, 0o644)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	})
}
