package cli

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"web-testgen/internal/bootstrap"
	"web-testgen/internal/document"
	"web-testgen/internal/entity"
	"web-testgen/internal/request"

	"github.com/spf13/cobra"
)

func newScanCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <url>",
		Short: "List the interactive elements of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.Scan{URL: args[0]}
			if err := req.Validate(); err != nil {
				return err
			}

			return opts.run(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				res, err := rt.Usecase.Pipeline.Scan(ctx, req.URL)
				if err != nil {
					return err
				}

				return opts.print(cmd, res)
			})
		},
	}
}

func newGenerateCommand(opts *options) *cobra.Command {
	var (
		save   bool
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "generate <url>",
		Short: "Scan a page, synthesize test cases and write the document and test file",
		Example: `  webtestgen generate https://example.com/login
  webtestgen generate https://example.com/login --save --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.Synthesize{URL: args[0], Save: save}
			if err := req.Validate(); err != nil {
				return err
			}

			if outDir != "" {
				opts.conf.OutputConfig.Dir = outDir
			}

			return opts.run(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				gen, err := rt.Usecase.Pipeline.Generate(ctx, req)
				if err != nil {
					return err
				}

				if gen.Document == nil {
					if err := opts.print(cmd, gen); err != nil {
						return err
					}

					return fmt.Errorf("scan %s: %s", gen.Scan.Status, gen.Scan.Error)
				}

				export, err := rt.Usecase.Pipeline.Export(gen.Document)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.ErrOrStderr(), "Document:  %s\nTest file: %s\n", export.Document, export.TestFile)

				return opts.print(cmd, gen.Document)
			})
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Store the document (requires the store)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default OUTPUT_DIR)")

	return cmd
}

func newRunCommand(opts *options) *cobra.Command {
	var cases []string

	cmd := &cobra.Command{
		Use:   "run <file|url|run_id>",
		Short: "Replay a test document against the live page",
		Long: `Replay a test document. The source is a document file (.json, .yaml, .yml),
a URL whose latest stored document is used, or a stored run id.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := runRequest(args[0], cases)
			if err != nil {
				return err
			}

			if err := req.Validate(); err != nil {
				return err
			}

			return opts.run(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				report, err := rt.Usecase.Runner.Run(ctx, req)
				if err != nil {
					return err
				}

				if err := opts.print(cmd, report); err != nil {
					return err
				}

				if report.Failed > 0 {
					return ErrCasesFailed
				}

				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&cases, "case", nil, "Only run these test ids (repeatable or comma separated)")

	return cmd
}

func newInteractCommand(opts *options) *cobra.Command {
	var (
		pageURL    string
		targetSpec string
		action     string
		input      string
	)

	cmd := &cobra.Command{
		Use:   "interact",
		Short: "Perform one action on one element and report its effects",
		Example: `  webtestgen interact --url https://example.com --action click \
    --target '{"category":"button","locators":[{"strategy":"css","value":"#submit"}],"state":{"is_visible":true,"is_enabled":true}}'
  webtestgen interact --url https://example.com --action input_text --input hello --target @target.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := readTarget(targetSpec)
			if err != nil {
				return err
			}

			req := request.Interact{URL: pageURL, Target: target, Action: entity.Action(action)}
			if cmd.Flags().Changed("input") {
				req.InputValue = &input
			}

			if err := req.Validate(); err != nil {
				return err
			}

			return opts.run(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				res, err := rt.Usecase.Pipeline.Interact(ctx, req)
				if err != nil {
					return err
				}

				return opts.print(cmd, res)
			})
		},
	}

	cmd.Flags().StringVar(&pageURL, "url", "", "Load this page first")
	cmd.Flags().StringVar(&targetSpec, "target", "", "Target as JSON, or @file")
	cmd.Flags().StringVar(&action, "action", "", "Action to perform")
	cmd.Flags().StringVar(&input, "input", "", "Input value for input_text and select actions")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("action")

	return cmd
}

func newDocsCommand(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "docs [run_id]",
		Short: "List stored documents, or print one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				if len(args) == 1 {
					doc, err := rt.Usecase.Documents.Get(ctx, args[0])
					if err != nil {
						return err
					}

					return opts.print(cmd, doc)
				}

				summaries, err := rt.Usecase.Documents.List(ctx, limit)
				if err != nil {
					return err
				}

				return opts.print(cmd, summaries)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of documents (0 for all)")

	return cmd
}

func newServeCommand(opts *options) *cobra.Command {
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the toolkit over HTTP or MCP",
	}

	var httpAddr string

	httpCmd := &cobra.Command{
		Use:   "http",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if httpAddr != "" {
				opts.conf.ServerConfig.HTTPAddr = httpAddr
			}

			return opts.run(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				return rt.HTTP.ListenAndServe(ctx)
			})
		},
	}
	httpCmd.Flags().StringVar(&httpAddr, "addr", "", "Listen address (default HTTP_ADDR)")

	var (
		transport string
		mcpAddr   string
	)

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the Model Context Protocol tools",
		Long: `Serve scan_page, synthesize_tests, interact_element and run_tests as MCP tools.

Supported transports:
  stdio   Standard I/O (default)
  http    Streamable HTTP`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if transport != "" {
				opts.conf.ServerConfig.MCPTransport = transport
			}

			if mcpAddr != "" {
				opts.conf.ServerConfig.MCPAddr = mcpAddr
			}

			if err := opts.conf.Validate(); err != nil {
				return err
			}

			return opts.run(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				return rt.MCP.Serve(ctx)
			})
		},
	}
	mcpCmd.Flags().StringVar(&transport, "transport", "", "Transport: stdio, http (default MCP_TRANSPORT)")
	mcpCmd.Flags().StringVar(&mcpAddr, "addr", "", "Listen address for http (default MCP_ADDR)")

	serve.AddCommand(httpCmd, mcpCmd)

	return serve
}

func newConsoleCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Start the interactive console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return bootstrap.RunConsole(cmd.Context(), opts.conf)
		},
	}
}

// runRequest picks the run source from its shape: a document file, a URL or
// a run id.
func runRequest(source string, cases []string) (request.Run, error) {
	req := request.Run{TestIDs: cases}

	if u, err := url.Parse(source); err == nil && u.Scheme != "" && u.Host != "" {
		req.URL = source

		return req, nil
	}

	if _, err := os.Stat(source); err == nil {
		doc, err := document.ReadFile(source)
		if err != nil {
			return req, err
		}

		req.Document = doc

		return req, nil
	}

	req.RunID = source

	return req, nil
}

// readTarget decodes a target given inline as JSON or as @file, where the
// file may be JSON or YAML.
func readTarget(spec string) (entity.Target, error) {
	var target entity.Target

	path, fromFile := strings.CutPrefix(spec, "@")
	if !fromFile {
		return target, document.Decode(strings.NewReader(spec), document.FormatJSON, &target)
	}

	f, err := os.Open(path)
	if err != nil {
		return target, fmt.Errorf("read target: %w", err)
	}
	defer f.Close()

	return target, document.Decode(f, document.FormatFor(path), &target)
}
