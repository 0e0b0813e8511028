package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/wesm/mailcontacts/internal/contacts"
	"github.com/wesm/mailcontacts/internal/export"
	"github.com/wesm/mailcontacts/internal/store"
)

var cfindFormat string

var cfindCmd = &cobra.Command{
	Use:   "cfind [pattern]",
	Short: "Find contacts and export them",
	Long: `Find contacts whose name or address matches a POSIX extended regular
expression and print them in the selected format. Without a pattern every
contact is printed.

Formats: ` + strings.Join(export.Formats(), ", ") + `

Examples:
  mailcontacts cfind
  mailcontacts cfind 'example\.com$' --format mutt-alias >> ~/.mutt/aliases
  mailcontacts cfind Kröger --format bbdb`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := cfg.Cfind.Format
		if cmd.Flags().Changed("format") {
			format = cfindFormat
		}
		var pattern string
		if len(args) == 1 {
			pattern = args[0]
		}

		n, err := runCfind(cmd.OutOrStdout(), cfg.CachePath(), pattern, format)
		if err != nil {
			return err
		}
		logger.Debug("cfind", "pattern", pattern, "format", format, "matches", n)
		return nil
	},
}

// runCfind writes the contacts of the cache at cachePath that match pattern
// to out. The format and pattern are checked before the cache is read, so
// a bad invocation never produces partial output.
func runCfind(out io.Writer, cachePath, pattern, formatName string) (int, error) {
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return 0, err
	}
	matcher, err := contacts.CompilePattern(pattern)
	if err != nil {
		return 0, err
	}

	cache, err := loadCacheShared(cachePath)
	if err != nil {
		return 0, fmt.Errorf("load cache: %w", err)
	}

	bw := bufio.NewWriter(out)
	n, err := export.WriteAll(bw, format, slices.Values(matcher.Select(cache)))
	if err != nil {
		return n, fmt.Errorf("write %s: %w", format, err)
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("write %s: %w", format, err)
	}
	return n, nil
}

// loadCacheShared loads the cache under the shared lock. A data directory
// that was never created means nothing was indexed yet; the cache is empty
// and nothing is created on disk.
func loadCacheShared(cachePath string) (*contacts.Cache, error) {
	if _, err := os.Stat(filepath.Dir(cachePath)); errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
		return contacts.NewCache(), nil
	}
	lock := store.NewLock(cachePath)
	if err := lock.RLock(); err != nil {
		return nil, err
	}
	defer func() { _ = lock.Unlock() }()
	return store.LoadCache(cachePath)
}

func init() {
	rootCmd.AddCommand(cfindCmd)
	cfindCmd.Flags().StringVarP(&cfindFormat, "format", "o", "plain", "output format ("+strings.Join(export.Formats(), ", ")+")")
}
