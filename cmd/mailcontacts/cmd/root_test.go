package cmd

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wesm/mailcontacts/internal/testutil"
	"github.com/wesm/mailcontacts/internal/testutil/email"
)

// TestIndex_CancelledContextLeavesNoCache verifies that cancellation from
// ExecuteContext reaches the importer and nothing is saved.
func TestIndex_CancelledContextLeavesNoCache(t *testing.T) {
	saveGlobals(t)
	home := t.TempDir()
	mail := t.TempDir()
	email.WriteMaildir(t, mail, email.NewMessage().Bytes())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"--home", home, "index", mail})
	err := ExecuteContext(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("index error = %v, want context.Canceled", err)
	}
	testutil.MustNotExist(t, filepath.Join(home, "contacts.db"))
}

// TestIndex_CancelledAfterEarlierRun checks that a context from an earlier
// execution does not stick to the subcommand.
func TestIndex_CancelledAfterEarlierRun(t *testing.T) {
	saveGlobals(t)
	home := t.TempDir()
	mail := t.TempDir()
	email.WriteMaildir(t, mail, email.NewMessage().Bytes())

	execute(t, "--home", t.TempDir(), "index", mail)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"--home", home, "index", mail})
	err := ExecuteContext(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("index error = %v, want context.Canceled", err)
	}
	testutil.MustNotExist(t, filepath.Join(home, "contacts.db"))
}

func TestIndex_NoSources(t *testing.T) {
	saveGlobals(t)
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"--home", t.TempDir(), "index"})
	err := ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "no mail folders") {
		t.Fatalf("index error = %v, want no mail folders", err)
	}
}

func TestRoot_BadConfig(t *testing.T) {
	saveGlobals(t)
	home := t.TempDir()
	testutil.WriteFile(t, home, "config.toml", []byte("[cfind\n"))

	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"--home", home, "stats"})
	err := ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("stats error = %v, want load config failure", err)
	}
}
