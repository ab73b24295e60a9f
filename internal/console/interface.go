package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"web-testgen/internal/config"
	"web-testgen/internal/document"
	"web-testgen/internal/entity"
	"web-testgen/internal/request"
	"web-testgen/internal/usecase"
	"web-testgen/pkg/apperr"
	"web-testgen/pkg/logg"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var errExit = errors.New("exit")

type Interface struct {
	config  *config.Config
	logger  *zap.Logger
	usecase *usecase.Service
	in      io.Reader
	out     io.Writer

	mu       sync.Mutex
	cancel   context.CancelFunc
	sigChan  chan os.Signal
	stopping bool
}

type Params struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Usecase *usecase.Service
}

func NewInterface(params Params) *Interface {
	return &Interface{
		config:  params.Config,
		logger:  params.Logger.With(zap.String(logg.Layer, "Console")),
		usecase: params.Usecase,
		in:      os.Stdin,
		out:     os.Stdout,
		sigChan: make(chan os.Signal, 1),
	}
}

// WithIO swaps the terminal for the given streams.
func (i *Interface) WithIO(in io.Reader, out io.Writer) *Interface {
	i.in = in
	i.out = out

	return i
}

// Start reads commands until exit or end of input. An interrupt cancels the
// command in flight, not the console.
func (i *Interface) Start(ctx context.Context) error {
	i.printBanner()
	i.printHelp()

	signal.Notify(i.sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(i.sigChan)

	go func() {
		for range i.sigChan {
			fmt.Fprintln(i.out, "\nInterrupt received, cancelling current command...")
			i.cancelCurrent()
		}
	}()

	scanner := bufio.NewScanner(i.in)

	for !i.isStopping() {
		fmt.Fprint(i.out, "\n> ")

		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if err := i.handleCommand(ctx, input); err != nil {
			if errors.Is(err, errExit) {
				break
			}

			i.logger.Error("Command error", zap.Error(err))
			fmt.Fprintf(i.out, "Error [%s]: %v\n", apperr.CodeOf(err), err)
		}
	}

	return scanner.Err()
}

func (i *Interface) Stop() error {
	i.mu.Lock()
	if i.stopping {
		i.mu.Unlock()

		return nil
	}

	i.stopping = true
	i.mu.Unlock()

	i.logger.Info("Stopping console interface...")
	i.cancelCurrent()

	return nil
}

func (i *Interface) isStopping() bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.stopping
}

func (i *Interface) cancelCurrent() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cancel != nil {
		i.cancel()
	}
}

func (i *Interface) handleCommand(ctx context.Context, input string) error {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	i.mu.Lock()
	i.cancel = cancel
	i.mu.Unlock()

	switch cmd {
	case "help", "h":
		i.printHelp()

		return nil
	case "exit", "quit", "q":
		fmt.Fprintln(i.out, "Shutting down...")

		return errExit
	case "scan":
		if len(args) != 1 {
			return usage("scan <url>")
		}

		return i.scan(ctx, args[0])
	case "generate", "gen":
		if len(args) < 1 || len(args) > 2 || (len(args) == 2 && args[1] != "--save") {
			return usage("generate <url> [--save]")
		}

		return i.generate(ctx, args[0], len(args) == 2)
	case "run":
		if len(args) < 1 {
			return usage("run <file|url|run_id> [TC_001 ...]")
		}

		return i.run(ctx, args[0], args[1:])
	case "docs":
		return i.documents(ctx)
	default:
		return apperr.MalformedInputError("handleCommand", "command", fmt.Errorf("unknown command %q, type help", cmd))
	}
}

func (i *Interface) scan(ctx context.Context, target string) error {
	res, err := i.usecase.Pipeline.Scan(ctx, target)
	if err != nil {
		return err
	}

	i.printScan(res)

	return nil
}

func (i *Interface) generate(ctx context.Context, target string, save bool) error {
	gen, err := i.usecase.Pipeline.Generate(ctx, request.Synthesize{URL: target, Save: save})
	if err != nil {
		return err
	}

	i.printScan(gen.Scan)

	if gen.Document == nil {
		return nil
	}

	fmt.Fprintf(i.out, "\nTest cases (%d):\n", len(gen.Document.Cases))

	for _, tc := range gen.Document.Cases {
		fmt.Fprintf(i.out, "  %s  %-8s %-10s %s\n", tc.TestID, tc.Priority, tc.CategoryTag, tc.TestName)
	}

	export, err := i.usecase.Pipeline.Export(gen.Document)
	if err != nil {
		return err
	}

	fmt.Fprintf(i.out, "\nDocument:  %s\nTest file: %s\n", export.Document, export.TestFile)

	if gen.Saved {
		fmt.Fprintf(i.out, "Stored as run %s\n", gen.Document.RunID)
	}

	return nil
}

func (i *Interface) run(ctx context.Context, source string, ids []string) error {
	req := request.Run{TestIDs: ids}

	switch {
	case isDocumentFile(source):
		doc, err := document.ReadFile(source)
		if err != nil {
			return err
		}

		req.Document = doc
	case isURL(source):
		req.URL = source
	default:
		req.RunID = source
	}

	report, err := i.usecase.Runner.Run(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(i.out, "\nRun %s against %s\n", report.RunID, report.Source.URL)

	for _, res := range report.Results {
		line := fmt.Sprintf("  %s  %-7s", res.TestID, res.Outcome)
		if res.Result != nil && res.Result.ResultType != "" {
			line += "  " + res.Result.ResultType
		}

		if res.Reason != "" {
			line += "  " + res.Reason
		}

		fmt.Fprintln(i.out, line)
	}

	fmt.Fprintf(i.out, "\nPassed: %d  Failed: %d  Skipped: %d\n", report.Passed, report.Failed, report.Skipped)

	return nil
}

func (i *Interface) documents(ctx context.Context) error {
	summaries, err := i.usecase.Documents.List(ctx, 20)
	if err != nil {
		return err
	}

	if len(summaries) == 0 {
		fmt.Fprintln(i.out, "No stored documents")

		return nil
	}

	for _, s := range summaries {
		fmt.Fprintf(i.out, "  %s  %s  %3d cases  %s\n", s.RunID, s.CreatedAt.Format("2006-01-02 15:04:05"), s.Cases, s.URL)
	}

	return nil
}

func (i *Interface) printScan(res *entity.ScanResult) {
	fmt.Fprintf(i.out, "\nScan %s: %s (%s)\n", res.RunID, res.Status, res.Source.URL)

	if res.Error != "" {
		fmt.Fprintf(i.out, "  error [%s]: %s\n", res.Code, res.Error)

		return
	}

	if res.Source.PageTitle != "" {
		fmt.Fprintf(i.out, "  title: %s\n", res.Source.PageTitle)
	}

	for _, el := range res.Elements {
		visibility := ""
		if !el.State.IsVisible {
			visibility = " (hidden)"
		}

		label := el.Text
		if label == "" {
			label = el.Name
		}

		fmt.Fprintf(i.out, "  %-20s <%s> %s%s\n", el.Category, el.Tag, label, visibility)
	}

	for _, w := range res.Warnings {
		fmt.Fprintf(i.out, "  warning: %s\n", w)
	}

	if len(res.Skipped) > 0 {
		fmt.Fprintf(i.out, "  skipped nodes: %d\n", len(res.Skipped))
	}
}

func (i *Interface) printBanner() {
	fmt.Fprintln(i.out, `
+-----------------------------------------------------------+
|                                                           |
|                 web-testgen console                       |
|                                                           |
|   Scan pages, synthesize test cases, replay them live     |
|                                                           |
+-----------------------------------------------------------+`)
}

func (i *Interface) printHelp() {
	fmt.Fprintf(i.out, `
Available commands:
  scan <url>                       - List the interactive elements of a page
  generate <url> [--save]          - Scan, synthesize test cases and write them to %s
  run <file|url|run_id> [ids...]   - Replay a document's cases against the live page
  docs                             - List stored documents
  help, h                          - Show this help message
  exit, quit, q                    - Exit the application

Engine: %s
`, i.config.OutputConfig.Dir, i.config.BrowserConfig.Engine)
}

func usage(text string) error {
	return apperr.MalformedInputError("handleCommand", "args", fmt.Errorf("usage: %s", text))
}

func isDocumentFile(s string) bool {
	switch strings.ToLower(s[strings.LastIndex(s, ".")+1:]) {
	case "json", "yaml", "yml":
		return !isURL(s)
	}

	return false
}

func isURL(s string) bool {
	u, err := url.Parse(s)

	return err == nil && u.Scheme != "" && (u.Host != "" || u.Scheme == "file" || u.Scheme == "about")
}
