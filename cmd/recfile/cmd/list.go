/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/recfile/pkg/codec"
	"github.com/ssargent/recfile/pkg/index"
	"github.com/ssargent/recfile/pkg/store"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List records",
	Long: `List every record from --from to the end of the file, optionally
ordered by a column.

Examples:
  recfile list
  recfile list --from 10
  recfile list --sort age --desc`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetInt64("from")
		sortBy, _ := cmd.Flags().GetString("sort")
		desc, _ := cmd.Flags().GetBool("desc")

		return withStore(cmd, func(s *settings, rs *store.RecordStore[codec.Row]) error {
			if err := rs.SeekRecord(from); err != nil {
				return err
			}
			rows, err := rs.ReadHereToEnd()
			if err != nil {
				return err
			}
			indexes := sequence(from, len(rows))

			if sortBy != "" {
				idx, err := index.Build(s.columns, sortBy, rows)
				if err != nil {
					return err
				}
				order := idx.Records(desc)
				sorted := make([]codec.Row, len(order))
				for i, pos := range order {
					sorted[i] = rows[pos]
					order[i] = indexes[pos]
				}
				rows, indexes = sorted, order
			}

			return printRecords(cmd.OutOrStdout(), s.columns, indexes, rows)
		})
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().Int64("from", 0, "First record index to list")
	listCmd.Flags().String("sort", "", "Column to order by")
	listCmd.Flags().Bool("desc", false, "Reverse the --sort order")
}
