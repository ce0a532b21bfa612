/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/recfile/pkg/codec"
	"github.com/ssargent/recfile/pkg/store"
)

// insertCmd represents the insert command
var insertCmd = &cobra.Command{
	Use:   "insert <index> <value>...",
	Short: "Insert a record before the record at an index",
	Long: `Insert a record before the record at an index. Every later record moves up
by one, so the cost grows with the number of records after the index.

Example:
  recfile insert 3 Carol 25 4.0 4.0 true`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := parseIndex(args[0])
		if err != nil {
			return err
		}

		return withStore(cmd, func(s *settings, rs *store.RecordStore[codec.Row]) error {
			row, err := codec.ParseRow(s.columns, args[1:])
			if err != nil {
				return err
			}
			count, err := rs.Count()
			if err != nil {
				return err
			}
			if idx > count {
				return fmt.Errorf("record index %d is past the end (%d records)", idx, count)
			}

			if err := rs.SeekRecord(idx); err != nil {
				return err
			}
			if err := rs.Append(row); err != nil {
				return err
			}

			cmd.Printf("Record inserted at %d\n", idx)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(insertCmd)
}
