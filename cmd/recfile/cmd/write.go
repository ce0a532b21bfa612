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

// writeCmd represents the write command
var writeCmd = &cobra.Command{
	Use:   "write <value>...",
	Short: "Write a record, one value per column",
	Long: `Write a record after the last one, or over the record at --at.

Values are given in column order. Text longer than the configured length is
truncated.

Examples:
  recfile write Alice 30 3.5 3.75 true
  recfile write --at 2 Bob 41 2.0 2.0 false`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		at, _ := cmd.Flags().GetInt64("at")

		return withStore(cmd, func(s *settings, rs *store.RecordStore[codec.Row]) error {
			row, err := codec.ParseRow(s.columns, args)
			if err != nil {
				return err
			}

			count, err := rs.Count()
			if err != nil {
				return err
			}
			if at > count {
				return fmt.Errorf("record index %d is past the end (%d records)", at, count)
			}
			idx := count
			if at >= 0 {
				idx = at
			}
			if err := rs.WriteRecord(idx, row); err != nil {
				return err
			}

			cmd.Printf("Record %d written\n", idx)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(writeCmd)
	writeCmd.Flags().Int64("at", -1, "Record index to overwrite (default: after the last record)")
}
