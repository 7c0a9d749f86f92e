package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/parsalaw/lawfetch/internal/config"
	"github.com/parsalaw/lawfetch/internal/logging"
)

// newFetchCmd creates the 'fetch' subcommand for one-shot acquisitions.
func newFetchCmd() *cobra.Command {
	var maxAttempts int

	cmd := &cobra.Command{
		Use:   "fetch URL [URL...]",
		Short: "Fetch one or more URLs and print the results as JSON",
		Long: `Runs the strategy loop against each URL synchronously and prints one
JSON result per line. Useful for spot checks and for feeding a single
document into the configured store.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			eng, err := buildEngine(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer eng.close(ctx, logger)

			pol := cfg.Policy()
			if maxAttempts > 0 {
				pol.MaxAttempts = maxAttempts
			}

			enc := json.NewEncoder(os.Stdout)
			failed := 0
			for _, url := range args {
				res, err := eng.orch.Fetch(ctx, url, pol)
				if err != nil {
					return fmt.Errorf("fetch %s: %w", url, err)
				}
				if !res.Success {
					failed++
				}
				if err := enc.Encode(map[string]any{"url": url, "result": res}); err != nil {
					return fmt.Errorf("encode result: %w", err)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d fetches exhausted all strategies", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "override the configured number of retry rounds")
	return cmd
}
