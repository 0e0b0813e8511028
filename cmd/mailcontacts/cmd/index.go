package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/wesm/mailcontacts/internal/contacts"
	"github.com/wesm/mailcontacts/internal/importer"
	"github.com/wesm/mailcontacts/internal/store"
)

var (
	indexWorkers int
	indexRebuild bool
	indexNoWait  bool
)

var indexCmd = &cobra.Command{
	Use:   "index [paths...]",
	Short: "Index mail folders into the contact cache",
	Long: `Index Maildir trees, mbox files and Apple Mail folders, adding every
address seen in From, To, Cc and Bcc to the contact cache.

Messages already in the cache are skipped, so re-running index only picks up
new mail. Without arguments the [index] maildirs from config.toml are used.

Examples:
  mailcontacts index ~/Maildir
  mailcontacts index ~/mail/archive.mbox ~/Library/Mail/V10
  mailcontacts index --rebuild`,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := args
		if len(paths) == 0 {
			paths = cfg.Index.Maildirs
		}
		if len(paths) == 0 {
			return fmt.Errorf("no mail folders given and none configured in %s", cfg.ConfigFilePath())
		}
		if err := cfg.EnsureHomeDir(); err != nil {
			return fmt.Errorf("create data directory %s: %w", cfg.Data.DataDir, err)
		}

		workers := cfg.Index.Workers
		if cmd.Flags().Changed("workers") {
			workers = indexWorkers
		}

		cachePath := cfg.CachePath()
		lock := store.NewLock(cachePath)
		if indexNoWait {
			ok, err := lock.TryLock()
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("cache %s is locked by another index run", cachePath)
			}
		} else if err := lock.Lock(); err != nil {
			return err
		}
		defer func() { _ = lock.Unlock() }()

		cache := contacts.NewCache()
		if !indexRebuild {
			var err error
			if cache, err = store.LoadCache(cachePath); err != nil {
				return fmt.Errorf("load cache: %w (rerun with --rebuild to start over)", err)
			}
		}

		opts := importer.Options{
			Workers:         workers,
			MaxMessageBytes: cfg.Index.MaxMessageBytes,
			Logger:          logger,
		}
		if isTerminal(os.Stderr) {
			opts.Progress = progressPrinter(cmd.ErrOrStderr(), time.Now())
		}

		summary, err := importer.Index(cmd.Context(), cache, paths, opts)
		if opts.Progress != nil {
			fmt.Fprint(cmd.ErrOrStderr(), "\r\033[K")
		}
		if err != nil {
			return err
		}

		if err := store.SaveCache(cachePath, cache); err != nil {
			return fmt.Errorf("save cache: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Index complete.")
		fmt.Fprintf(out, "  Sources:        %d\n", summary.Sources)
		fmt.Fprintf(out, "  Messages:       %d seen, %d indexed, %d already indexed\n",
			summary.MessagesSeen, summary.MessagesIndexed, summary.MessagesSkipped)
		fmt.Fprintf(out, "  Addresses:      %d merged, %d invalid\n", summary.Observations, summary.InvalidAddresses)
		fmt.Fprintf(out, "  Contacts:       %d\n", cache.Len())
		fmt.Fprintf(out, "  Errors:         %d\n", summary.Errors)
		fmt.Fprintf(out, "  Elapsed:        %s\n", summary.Duration.Round(time.Millisecond))
		return nil
	},
}

// progressPrinter returns an importer progress callback that redraws a
// single status line on w.
func progressPrinter(w io.Writer, start time.Time) func(importer.Progress) {
	return func(p importer.Progress) {
		elapsed := time.Since(start)
		rate := 0.0
		if s := elapsed.Seconds(); s > 0 {
			rate = float64(p.Messages) / s
		}
		fmt.Fprintf(w, "\r\033[K  Files: %d/%d | Messages: %d | Rate: %.0f/s | Elapsed: %s",
			p.SourcesDone, p.SourcesTotal, p.Messages, rate, elapsed.Round(time.Second))
	}
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().IntVar(&indexWorkers, "workers", 0, "files parsed in parallel (default: number of CPUs)")
	indexCmd.Flags().BoolVar(&indexRebuild, "rebuild", false, "discard the existing cache and index from scratch")
	indexCmd.Flags().BoolVar(&indexNoWait, "no-wait", false, "fail instead of waiting when another index run holds the cache")
}
