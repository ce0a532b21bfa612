/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/recfile/pkg/codec"
	"github.com/ssargent/recfile/pkg/store"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read <index>",
	Short: "Read the record at an index",
	Long: `Read the record at an index.

Example:
  recfile read 0`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := parseIndex(args[0])
		if err != nil {
			return err
		}

		return withStore(cmd, func(s *settings, rs *store.RecordStore[codec.Row]) error {
			if err := rs.SeekRecord(idx); err != nil {
				return err
			}
			row, err := rs.Read()
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), s.columns, []int64{idx}, []codec.Row{row})
		})
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
}
