// Package cli is the command line front end.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"web-testgen/internal/bootstrap"
	"web-testgen/internal/config"
	"web-testgen/internal/document"

	"github.com/spf13/cobra"
)

// ErrCasesFailed is returned by run when at least one case failed, so the
// process exits non-zero.
var ErrCasesFailed = errors.New("test cases failed")

type options struct {
	format string
	engine string
	store  bool
	conf   *config.Config
}

func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "webtestgen",
		Short:         "Scan web pages and generate browser tests",
		Long:          "Scans a page for interactive elements, synthesizes test cases for them and replays the cases against the live page.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&opts.format, "format", "", "Output format: json, yaml (default OUTPUT_FORMAT)")
	root.PersistentFlags().StringVar(&opts.engine, "engine", "", "Browser engine: playwright, chromedp, static (default BROWSER_ENGINE)")
	root.PersistentFlags().BoolVar(&opts.store, "store", false, "Enable the document store (same as STORE_ENABLED=true)")

	root.AddCommand(
		newScanCommand(opts),
		newGenerateCommand(opts),
		newRunCommand(opts),
		newInteractCommand(opts),
		newDocsCommand(opts),
		newServeCommand(opts),
		newConsoleCommand(opts),
	)

	return root
}

func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		if !errors.Is(err, ErrCasesFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}

		return 1
	}

	return 0
}

func (o *options) load(cmd *cobra.Command) error {
	conf, err := config.GetConfig()
	if err != nil {
		return err
	}

	if o.format != "" {
		conf.OutputConfig.Format = o.format
	}

	if o.engine != "" {
		conf.BrowserConfig.Engine = o.engine
	}

	if cmd.Flags().Changed("store") {
		conf.StoreConfig.Enabled = o.store
	}

	if err := conf.Validate(); err != nil {
		return err
	}

	o.conf = conf

	return nil
}

// run starts the app for one command. ctx is cancelled on interrupt.
func (o *options) run(cmd *cobra.Command, fn func(context.Context, *bootstrap.Runtime) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return bootstrap.Run(ctx, o.conf, fn)
}

func (o *options) print(cmd *cobra.Command, v any) error {
	return document.Encode(cmd.OutOrStdout(), o.conf.OutputConfig.Format, v)
}
