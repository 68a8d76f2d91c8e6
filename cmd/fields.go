package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sales-import/internal/export"
)

// fieldsXSD prints an XML schema for exports instead of the table.
var fieldsXSD bool

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the fields columns can be mapped to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadRegistry()
		if err != nil {
			return err
		}
		defs := registry.Definitions()
		out := cmd.OutOrStdout()

		if fieldsXSD {
			_, err := out.Write(export.GenerateXSD(defs, cfg.Required.Core))
			return err
		}

		t := newTable(out, "Key", "Label", "Type", "Required", "Aliases")
		for _, def := range defs {
			required := ""
			switch {
			case slices.Contains(cfg.Required.BatchOnly, def.Key):
				required = "batch"
			case def.Required || slices.Contains(cfg.Required.Core, def.Key):
				required = "yes"
			}
			t.row(def.Key, def.Label, string(def.Type), required, strings.Join(def.Aliases, ", "))
		}
		if err := t.flush(); err != nil {
			return err
		}

		fmt.Fprintln(out, subtleStyle.Render(fmt.Sprintf("\n%d fields", registry.Len())))
		return nil
	},
}

func init() {
	fieldsCmd.Flags().BoolVar(&fieldsXSD, "xsd", false, "print an XML schema for exported rows")
	rootCmd.AddCommand(fieldsCmd)
}
