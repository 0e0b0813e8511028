package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wesm/mailcontacts/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show contact cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.CachePath()
		stats, err := store.ReadStats(path)
		if err != nil {
			return fmt.Errorf("read stats: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Cache: %s\n", path)
		fmt.Fprintf(out, "  Contacts:    %d\n", stats.ContactCount)
		fmt.Fprintf(out, "  Messages:    %d\n", stats.MessageCount)
		fmt.Fprintf(out, "  Size:        %.2f MB\n", float64(stats.DatabaseSize)/(1024*1024))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
