package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/FranksOps/outreach/internal/admin"
	"github.com/FranksOps/outreach/internal/config"
	"github.com/FranksOps/outreach/internal/extract"
	"github.com/FranksOps/outreach/internal/fingerprint"
	"github.com/FranksOps/outreach/internal/metrics"
	"github.com/FranksOps/outreach/internal/report"
	"github.com/FranksOps/outreach/internal/scraper"
	"github.com/FranksOps/outreach/internal/search"
	"github.com/FranksOps/outreach/internal/storage"
	"github.com/FranksOps/outreach/internal/storage/memory"
	"github.com/FranksOps/outreach/internal/storage/postgres"
	"github.com/FranksOps/outreach/internal/storage/sqlite"
	"github.com/FranksOps/outreach/internal/workflow"
	"github.com/FranksOps/outreach/pkg/proxy"
	"github.com/FranksOps/outreach/pkg/ratelimit"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "outreach",
		Short:         "Find Reddit users of a product",
		Long:          "outreach discovers Reddit pages discussing a product, scrapes them, and extracts users with evidence of actual usage.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.AddCommand(newCreateProductCmd(), newFindUsersCmd(), newServeCmd())
	return root
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch {
	case cfg.DatabaseURL != "":
		return postgres.New(ctx, cfg.DatabaseURL)
	case cfg.SQLitePath != "":
		return sqlite.New(cfg.SQLitePath)
	default:
		return memory.New(), nil
	}
}

func newCreateProductCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-product <name>",
		Short: "Register a product so workflow runs can target it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			product, err := store.CreateProduct(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("create product: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "product %q (%s)\n", product.Name, product.ID)
			return nil
		},
	}
}

func newFindUsersCmd() *cobra.Command {
	var (
		maxURLs    int
		jsonOut    bool
		htmlReport string
	)

	cmd := &cobra.Command{
		Use:   "find-users <product-name>",
		Short: "Run the full discovery workflow for a product",
		Long: "Searches every configured LLM provider for Reddit URLs mentioning the " +
			"product, scrapes them, extracts users with usage evidence, and " +
			"persists the results. Exits non-zero when no URLs are found at all.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := cfg.NewLogger()

			if cfg.OpenAIKey == "" {
				return &workflow.ConfigurationError{Reason: "evidence extraction needs OUTREACH_OPENAI_API_KEY"}
			}

			store, err := openStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			if cfg.MetricsPort > 0 {
				msrv := metrics.Start(cfg.MetricsPort, nil)
				defer msrv.Stop(context.Background())
			}

			orch, err := buildOrchestrator(ctx, cfg, store, maxURLs, logger)
			if err != nil {
				return err
			}

			summary, runErr := orch.Run(ctx, args[0])
			if summary != nil {
				if jsonOut {
					if err := report.WriteJSON(cmd.OutOrStdout(), summary); err != nil {
						return err
					}
				} else if err := report.WriteText(cmd.OutOrStdout(), summary); err != nil {
					return err
				}
				if htmlReport != "" {
					if err := writeHTMLReport(htmlReport, summary); err != nil {
						return err
					}
				}
			}
			return runErr
		},
	}

	cmd.Flags().IntVar(&maxURLs, "max-urls", 0, "max candidate URLs per provider (default from config)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the run summary as JSON")
	cmd.Flags().StringVar(&htmlReport, "report-html", "", "also write an HTML report to this path")
	return cmd
}

func buildOrchestrator(ctx context.Context, cfg *config.Config, store storage.Store, maxURLs int, logger *slog.Logger) (*workflow.Orchestrator, error) {
	providers := search.Configured(ctx, search.Config{
		OpenAIKey:      cfg.OpenAIKey,
		OpenAIModel:    cfg.OpenAIModel,
		GeminiKey:      cfg.GeminiKey,
		GeminiModel:    cfg.GeminiModel,
		AnthropicKey:   cfg.AnthropicKey,
		AnthropicModel: cfg.AnthropicModel,
	}, logger)
	if len(providers) == 0 {
		return nil, &workflow.ConfigurationError{Reason: "no search provider configured, set at least one API key"}
	}

	var proxyPool *proxy.Pool
	if cfg.ProxyFile != "" {
		proxyPool = proxy.NewPool(proxy.Options{})
		if err := proxyPool.LoadFile(cfg.ProxyFile); err != nil {
			return nil, err
		}
	}

	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
		Timeout:     cfg.ScrapeTimeout,
		ProxyPool:   proxyPool,
		Fingerprint: fingerprint.Profile(cfg.Fingerprint),
		Limiter:     ratelimit.New(cfg.RateLimitRPS, cfg.RateJitter),
	})
	if err != nil {
		return nil, err
	}

	pageScraper := scraper.NewPageScraper(fetcher, scraper.Options{
		MaxAttempts:   cfg.ScrapeMaxAttempts,
		InitialDelay:  cfg.ScrapeBackoff,
		MaxDelay:      cfg.ScrapeMaxBackoff,
		MinTextLength: cfg.MinTextLength,
		UseOldReddit:  true,
	}, logger)

	extractor := extract.NewOpenAI(cfg.OpenAIKey, cfg.ExtractModel)

	opts := workflow.Options{
		MaxURLsPerProvider: cfg.MaxURLsPerProvider,
		ProviderTimeout:    cfg.ProviderTimeout,
		ScrapeWorkers:      cfg.ScrapeWorkers,
	}
	if maxURLs > 0 {
		opts.MaxURLsPerProvider = maxURLs
	}

	return workflow.New(providers, pageScraper, extractor, store, opts, logger), nil
}

func writeHTMLReport(path string, summary *workflow.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()
	return report.WriteHTML(f, summary)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin API (and metrics when configured)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := cfg.NewLogger()

			store, err := openStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			if cfg.MetricsPort > 0 {
				msrv := metrics.Start(cfg.MetricsPort, nil)
				defer msrv.Stop(context.Background())
			}

			srv := admin.NewServer(cfg.AdminAddr, store, logger)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logger.Info("shutting down admin api")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}
}
