// =============================================================================
// Sales Import - Mapping Memory Commands
// =============================================================================
//
// COMMAND USAGE:
//   salesimport memory list            # remembered mappings by pattern
//   salesimport memory clear           # forget every remembered mapping
//   salesimport memory pattern NAME    # the pattern a file name maps to
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sales-import/internal/memory"
)

// errMemoryDisabled is returned by commands that need a memory store when
// the backend is "none".
var errMemoryDisabled = errors.New("mapping memory is disabled (memory.backend is none)")

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect or clear remembered column mappings",
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remembered mappings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()
		if store == nil {
			return errMemoryDisabled
		}

		mem, err := store.Load(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if mem.Patterns() == 0 {
			fmt.Fprintln(out, subtleStyle.Render("no remembered mappings"))
			return nil
		}

		t := newTable(out, "Pattern", "Column", "Field")
		for _, pattern := range sortedKeys(mem) {
			columns := mem[pattern]
			for _, column := range sortedKeys(columns) {
				t.row(pattern, column, columns[column])
			}
		}
		return t.flush()
	},
}

var memoryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every remembered mapping",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()
		if store == nil {
			return errMemoryDisabled
		}

		if err := memory.NewManager(store, logger).Forget(cmd.Context()); err != nil {
			return fmt.Errorf("failed to clear mapping memory: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(successIcon+" mapping memory cleared"))
		return nil
	},
}

var memoryPatternCmd = &cobra.Command{
	Use:   "pattern NAME",
	Short: "Show the memory pattern for a file name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pattern := memory.GetFilePattern(args[0])
		if pattern == "" {
			fmt.Fprintln(cmd.OutOrStdout(), warningStyle.Render(warningIcon+" no pattern; mappings for this file are not remembered"))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), pattern)
		return nil
	},
}

func init() {
	memoryCmd.AddCommand(memoryListCmd)
	memoryCmd.AddCommand(memoryClearCmd)
	memoryCmd.AddCommand(memoryPatternCmd)
	rootCmd.AddCommand(memoryCmd)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
