/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ssargent/recfile/pkg/codec"
)

// printRecords writes rows as an aligned table with their record indexes
func printRecords(w io.Writer, columns codec.Columns, indexes []int64, rows []codec.Row) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	header := append([]string{"#"}, columns.Names()...)
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for i, row := range rows {
		cells := make([]string, 0, len(row)+1)
		cells = append(cells, strconv.FormatInt(indexes[i], 10))
		for _, f := range row {
			cells = append(cells, codec.FormatField(f))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// sequence returns from, from+1, ... for n values
func sequence(from int64, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = from + int64(i)
	}
	return out
}

func parseIndex(arg string) (int64, error) {
	idx, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || idx < 0 {
		return 0, fmt.Errorf("invalid record index %q: must be a non-negative integer", arg)
	}
	return idx, nil
}
