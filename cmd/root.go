// Package cmd defines and implements the CLI commands for the lawfetch
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lawfetch",
		Short: "A multi-strategy fetch engine for restricted legal content",
		Long: `lawfetch acquires Persian-language legal and government web content
that sits behind blocking infrastructure. It rotates through bypass
strategies (direct, alternate DNS, bot headers, CORS relay, mirror hosts),
detects block pages, scores legal relevance and deduplicates by content
hash.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newFetchCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
