package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sophialabs/declarecheck/internal/app"
	"github.com/sophialabs/declarecheck/internal/domain/declare"
	"github.com/sophialabs/declarecheck/internal/infrastructure/inbound/cli"
	"github.com/sophialabs/declarecheck/internal/infrastructure/outbound/export"
	"github.com/sophialabs/declarecheck/internal/infrastructure/outbound/logging"
	"github.com/sophialabs/declarecheck/internal/infrastructure/services"
	"github.com/sophialabs/declarecheck/internal/infrastructure/usecases"
	"github.com/sophialabs/declarecheck/internal/infrastructure/wiring"
)

var (
	logFile         string
	prefix          bool
	verbose         bool
	reportFile      string
	xlsxFile        string
	failOnViolation bool

	queryTemplates []string
	query          services.Query
)

var errViolations = errors.New("log violates the model")

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the check API over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := app.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize: %w", err)
		}
		return a.Run(cmd.Context())
	},
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the supported DECLARE templates",
	Run: func(cmd *cobra.Command, _ []string) {
		cli.NewPrinter(cmd.OutOrStdout()).Templates(declare.Templates())
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check an event log against the model",
	Example: `  declarecheck check --model ./model --log orders.xes
  declarecheck check -m ./model -l running.json --prefix --report default`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Logs go to stderr so reports can be piped.
	logger := logging.NewText(cmd.ErrOrStderr(), cfg.LogLevel)
	container, err := wiring.New(app.Params(cfg, logger))
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer container.Close()

	m, err := container.LoadModelUseCase().Execute(ctx)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}

	log, err := readLog(ctx, container, logFile)
	if err != nil {
		return err
	}

	progress := cli.NewProgress(cmd.ErrOrStderr(), len(log.Traces), "checking")
	result, err := container.CheckLogUseCase().Execute(ctx, m, usecases.CheckLogRequest{
		Client:   "cli",
		Log:      log,
		Done:     !prefix,
		Workers:  cfg.Workers,
		Progress: progress.Tick,
	})
	progress.Finish()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printer := cli.NewPrinter(out)
	if verbose {
		keys := log.TraceKeys()
		for _, key := range keys {
			printer.Trace(key, m, result.Results[key])
		}
	}

	if reportFile != "" {
		source := ""
		if reportFile != "default" {
			data, err := os.ReadFile(reportFile)
			if err != nil {
				return fmt.Errorf("failed to read report template: %w", err)
			}
			source = string(data)
		}
		rendered, err := container.RenderReportUseCase().Execute(cfg.DefaultEngine, reportFile, source)
		if err != nil {
			return fmt.Errorf("failed to render report: %w", err)
		}
		if _, err := out.Write(rendered); err != nil {
			return err
		}
	} else {
		printer.Summary(len(log.Traces), result.Summary, result.Malformed)
	}

	if xlsxFile != "" {
		if err := writeXLSX(container, xlsxFile); err != nil {
			return err
		}
	}

	if failOnViolation {
		for _, row := range result.Summary {
			if row.Violated > 0 {
				return errViolations
			}
		}
	}
	return nil
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Find the constraints an event log satisfies",
	Long: `query instantiates DECLARE templates with the activities of a log and
reports those whose support reaches --min-support.

Leaving --activation or --target empty tries every activity of the log in
that slot.`,
	Example: `  declarecheck query --log orders.xes --template Response --min-support 0.8
  declarecheck query -l orders.json --template existence --activation Pay --max-cardinality 3`,
	RunE: runQuery,
}

func runQuery(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	q := query
	for _, name := range queryTemplates {
		t, err := declare.ParseTemplate(name)
		if err != nil {
			return err
		}
		q.Templates = append(q.Templates, t)
	}

	logger := logging.NewText(cmd.ErrOrStderr(), cfg.LogLevel)
	container, err := wiring.New(app.Params(cfg, logger))
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer container.Close()

	log, err := readLog(ctx, container, logFile)
	if err != nil {
		return err
	}

	progress := cli.NewProgress(cmd.ErrOrStderr(), len(log.Traces), "querying")
	result, err := container.QueryLogUseCase().Execute(ctx, usecases.QueryLogRequest{
		Client:   "cli",
		Log:      log,
		Query:    q,
		Workers:  cfg.Workers,
		Progress: progress.Tick,
	})
	progress.Finish()
	if err != nil {
		return err
	}

	cli.NewPrinter(cmd.OutOrStdout()).Query(result.Traces, result.QueryResult)
	return nil
}

func readLog(ctx context.Context, container *wiring.Container, path string) (*declare.Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := bufio.NewReader(f)
	head, _ := r.Peek(512)
	format := services.DetectLogFormat("", path, head)

	log, err := container.Reader(format).ReadLog(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("failed to read log %s: %w", path, err)
	}
	return log, nil
}

func writeXLSX(container *wiring.Container, path string) error {
	rc, err := container.RenderReportUseCase().Latest()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := export.WriteXLSX(f, rc); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
