/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/recfile/pkg/codec"
	"github.com/ssargent/recfile/pkg/index"
	"github.com/ssargent/recfile/pkg/store"
)

// findCmd represents the find command
var findCmd = &cobra.Command{
	Use:   "find <column> <value>",
	Short: "Find records by column value",
	Long: `Find every record whose column equals a value. With --to, find records
with value <= column < to instead.

Examples:
  recfile find name Alice
  recfile find age 18 --to 30`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		column, raw := args[0], args[1]
		to, _ := cmd.Flags().GetString("to")

		return withStore(cmd, func(s *settings, rs *store.RecordStore[codec.Row]) error {
			col := s.columns.Index(column)
			if col < 0 {
				return fmt.Errorf("%w: %q", index.ErrUnknownColumn, column)
			}
			value, err := codec.ParseField(s.columns[col].Type, raw)
			if err != nil {
				return err
			}

			rows, err := rs.ReadStartToEnd()
			if err != nil {
				return err
			}
			idx, err := index.Build(s.columns, column, rows)
			if err != nil {
				return err
			}

			var matches []int64
			if cmd.Flags().Changed("to") {
				end, err := codec.ParseField(s.columns[col].Type, to)
				if err != nil {
					return err
				}
				matches = idx.SearchRange(value, end)
			} else {
				matches = idx.Search(value)
			}

			found := make([]codec.Row, len(matches))
			for i, pos := range matches {
				found[i] = rows[pos]
			}
			return printRecords(cmd.OutOrStdout(), s.columns, matches, found)
		})
	},
}

func init() {
	rootCmd.AddCommand(findCmd)
	findCmd.Flags().String("to", "", "Exclusive upper bound for a range search")
}
