/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/recfile/pkg/codec"
	"github.com/ssargent/recfile/pkg/store"
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <index>",
	Short: "Delete the record at an index",
	Long: `Delete the record at an index. Every later record moves down by one.

Example:
  recfile delete 3`,
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
			if err := rs.Delete(); err != nil {
				return err
			}

			cmd.Printf("Record %d deleted\n", idx)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
