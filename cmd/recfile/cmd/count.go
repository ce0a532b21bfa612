/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/recfile/pkg/codec"
	"github.com/ssargent/recfile/pkg/store"
)

// countCmd represents the count command
var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Show the number of records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(s *settings, rs *store.RecordStore[codec.Row]) error {
			stats, err := rs.Stats()
			if err != nil {
				return err
			}

			cmd.Printf("Records:     %d\n", stats.Records)
			cmd.Printf("Record size: %d bytes\n", stats.RecordSize)
			cmd.Printf("File size:   %d bytes\n", stats.SizeBytes)
			if extra := stats.SizeBytes - stats.Records*int64(stats.RecordSize); extra > 0 {
				cmd.Printf("Trailing:    %d bytes (partial record)\n", extra)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(countCmd)
}
