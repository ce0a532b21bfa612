/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ssargent/recfile/pkg/codec"
	"github.com/ssargent/recfile/pkg/store"
)

// truncateCmd represents the truncate command
var truncateCmd = &cobra.Command{
	Use:   "truncate <records>",
	Short: "Cut or extend the file to a number of records",
	Long: `Set the file length to exactly <records> records. Shrinking drops the
records past the new end; growing appends zero-filled records. A partial
trailing record is always dropped or completed.

Example:
  recfile truncate 10`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid record count %q", args[0])
		}

		return withStore(cmd, func(s *settings, rs *store.RecordStore[codec.Row]) error {
			if err := rs.SetLength(n * int64(rs.RecordSize())); err != nil {
				return err
			}

			cmd.Printf("File now holds %d records\n", n)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(truncateCmd)
}
