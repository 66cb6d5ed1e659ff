// Package cmd defines the fellowcrawler CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/fellowship-crawler/internal/app"
	"github.com/JakeFAU/fellowship-crawler/internal/config"
	"github.com/JakeFAU/fellowship-crawler/internal/dispatcher"
	"github.com/JakeFAU/fellowship-crawler/internal/logging"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App is the set of services the commands use. Tests inject a fake.
type App interface {
	Close()
	Logger() *zap.Logger
	RunCrawl(ctx context.Context) (dispatcher.Summary, error)
	Handler() http.Handler
	Port() int
}

// AppFactory builds the App from the --config path.
type AppFactory func(ctx context.Context, cfgPath string) (App, error)

// newApp loads configuration, installs the global logger and assembles the
// application services.
func newApp(ctx context.Context, cfgPath string) (App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return app.New(ctx, cfg, logger)
}

// newRootCmd creates the root command with its subcommands.
func newRootCmd(factory AppFactory) *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "fellowcrawler",
		Short: "Discovers, crawls and stores technical fellowship listings.",
		Long: `fellowcrawler searches for fellowship and internship pages, renders each
candidate, extracts its name and deadline, and upserts the result into the
configured store. The serve command exposes the stored records over HTTP.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := factory(cmd.Context(), cfgPath)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a YAML config file")
	cmd.AddCommand(newCrawlCmd(), newServeCmd())
	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := newRootCmd(newApp).ExecuteContext(context.Background()); err != nil {
		zap.L().Error("command execution failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
