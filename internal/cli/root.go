// Package cli provides the command-line interface for engram.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/engramhq/engram/internal/agent"
	"github.com/engramhq/engram/internal/config"
	"github.com/engramhq/engram/internal/crypto"
	"github.com/engramhq/engram/internal/engramerr"
	"github.com/engramhq/engram/internal/storage"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and memory handle
	cfg config.Config
	mem *agent.AgentMemory

	theme Theme
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "engram",
	Short: "Persistent, searchable episodic memory for autonomous agents",
	Long: `Engram is a persistent, searchable episodic memory store for autonomous
agents: remember facts, events, trades and lessons; recall them by BM25
+ recency relevance; supersede stale facts; verify the store has not
been tampered with.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		theme = themeFor(os.Stdout)

		var store storage.Store
		if cfg.StorageURL != "" {
			store = storage.NewRemoteStore(cfg.StorageURL)
		} else {
			logger, _ := config.SetupLogger(cfg.LogFile, cfg.LogLevel, cfg.AgentID)
			store = storage.NewLocalStore(cfg.BasePath, logger)
		}

		keySource := crypto.KeySource{
			RawKeyHex: cfg.RawKeyHex,
			Password:  cfg.Password,
		}
		synFiles := synonymFiles(cfg.SynonymsPath)
		if local, ok := store.(*storage.LocalStore); ok {
			keySource.SaltPath = local.SaltPath()
			keySource.KeyFilePath = local.KeyPath()
			synFiles = append(synFiles, local.SynonymsPath())
		}

		mem = agent.New(store, agent.Options{
			AgentID:           cfg.AgentID,
			SynonymFiles:      synFiles,
			EncryptionEnabled: cfg.EncryptionEnabled,
			KeySource:         keySource,
		})
		return nil
	},
}

func synonymFiles(path string) []string {
	if path == "" {
		return nil
	}
	return []string{path}
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(rememberCmd)
	rootCmd.AddCommand(recallCmd)
	rootCmd.AddCommand(recentCmd)
	rootCmd.AddCommand(temporalCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(forgetCmd)
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(injectCmd)
	rootCmd.AddCommand(hourlySummaryCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(reindexCmd)
}

// exitCode constants: 0 success, 1 hard error, 2 not-found.
const (
	exitOK       = 0
	exitError    = 1
	exitNotFound = 2
)

// exitWithError prints a single-line message styled as an error and
// exits with the given code. It never prints partial cipher or key
// material; callers must not pass err values that embed either.
func exitWithError(code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, theme.errorStyle().Render("Error: "+msg))
	os.Exit(code)
}

// exitOnErr maps err to an exit code: ErrNotFound exits 2, everything
// else exits 1.
func exitOnErr(err error) {
	if err == nil {
		return
	}
	if isNotFound(err) {
		exitWithError(exitNotFound, "%v", err)
	}
	exitWithError(exitError, "%v", err)
}

func isNotFound(err error) bool {
	return errors.Is(err, engramerr.ErrNotFound)
}
