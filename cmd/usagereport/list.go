package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/usagereport/internal/usage"
	"github.com/jgoulah/usagereport/pkg/models"
)

var listInputDir string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracker exports that a report would read",
	Long:  `Displays every matching input file with its tracker category, size and row counts.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listInputDir, "input-dir", "", "Directory containing tracker exports")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	dir := cfg.GetInputDir()
	if listInputDir != "" {
		dir = listInputDir
	}

	sources, err := usage.Discover(dir, cfg.GetFilePattern(), cfg.GetCategories())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "------------------------------------------------------------")
	fmt.Fprintf(out, "%-14s  %10s  %8s  %8s  %s\n", "Category", "Size", "Rows", "Invalid", "File")
	fmt.Fprintln(out, "------------------------------------------------------------")

	var totalRows int
	for _, src := range sources {
		size := "-"
		if info, err := os.Stat(src.Path); err == nil {
			size = humanize.Bytes(uint64(info.Size()))
		}

		var rows, invalid int
		err := usage.ReadFile(src.Path, func(_ models.UsageRow, rowErr error) error {
			rows++
			if rowErr != nil {
				invalid++
			}
			return nil
		})
		if err != nil {
			fmt.Fprintf(out, "%-14s  %10s  %8s  %8s  %s (%v)\n", src.Category, size, "-", "-", src.Path, err)
			continue
		}

		fmt.Fprintf(out, "%-14s  %10s  %8s  %8s  %s\n", src.Category, size,
			humanize.Comma(int64(rows)), humanize.Comma(int64(invalid)), src.Path)
		totalRows += rows
	}

	fmt.Fprintln(out, "------------------------------------------------------------")
	fmt.Fprintf(out, "Total: %s rows in %d files\n", humanize.Comma(int64(totalRows)), len(sources))
	return nil
}
