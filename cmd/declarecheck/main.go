// declarecheck checks event logs against DECLARE process models.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sophialabs/declarecheck/internal/app"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

var cfg = app.DefaultConfig()

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "declarecheck",
	Short: "Check event logs against DECLARE models",
	Long: `declarecheck evaluates DECLARE constraints over event traces.

Models are YAML files under a model directory. Logs are XES or JSON.`,
	Version:       fmt.Sprintf("%s (%s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfg.ModelDir, "model", "m", cfg.ModelDir, "Model directory")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().IntVar(&cfg.Workers, "workers", cfg.Workers, "Traces checked concurrently")
	rootCmd.PersistentFlags().IntVar(&cfg.CacheSize, "cache-size", cfg.CacheSize, "Compiled condition cache entries")
	rootCmd.PersistentFlags().StringVar(&cfg.TracesPath, "traces-path", cfg.TracesPath, "JSONPath of the trace array in JSON logs")
	rootCmd.PersistentFlags().StringVar(&cfg.DefaultEngine, "engine", cfg.DefaultEngine, "Report template engine (expr, jinja2)")

	serveCmd.Flags().IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	serveCmd.Flags().IntVar(&cfg.HistorySize, "history-size", cfg.HistorySize, "Number of check history entries to keep")
	serveCmd.Flags().Float64Var(&cfg.RateLimit, "rate", cfg.RateLimit, "Trace checks per second per client (0 disables)")
	serveCmd.Flags().IntVar(&cfg.RateBurst, "burst", cfg.RateBurst, "Rate limit burst")
	serveCmd.Flags().DurationVar(&cfg.WatcherDebounce, "debounce", cfg.WatcherDebounce, "Model reload debounce")

	checkCmd.Flags().StringVarP(&logFile, "log", "l", "", "Event log file (.xes or .json)")
	checkCmd.Flags().BoolVar(&prefix, "prefix", false, "Treat traces as running prefixes")
	checkCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print every trace verdict")
	checkCmd.Flags().StringVar(&reportFile, "report", "", "Render a report template file ('default' for the built-in one)")
	checkCmd.Flags().StringVar(&xlsxFile, "xlsx", "", "Write results to an xlsx workbook")
	checkCmd.Flags().BoolVar(&failOnViolation, "fail-on-violation", false, "Exit non-zero if any trace violates a constraint")
	_ = checkCmd.MarkFlagRequired("log")

	queryCmd.Flags().StringVarP(&logFile, "log", "l", "", "Event log file (.xes or .json)")
	queryCmd.Flags().StringSliceVarP(&queryTemplates, "template", "t", nil, "Templates to try (repeatable, default all)")
	queryCmd.Flags().StringVar(&query.Activation, "activation", "", "Fix the activation activity")
	queryCmd.Flags().StringVar(&query.Target, "target", "", "Fix the target activity of binary templates")
	queryCmd.Flags().StringVar(&query.ActivationCondition, "act-cond", "", "Activation condition for every candidate")
	queryCmd.Flags().StringVar(&query.CorrelationCondition, "corr-cond", "", "Correlation condition for every candidate")
	queryCmd.Flags().StringVar(&query.TimeCondition, "time-cond", "", "Time condition for every candidate")
	queryCmd.Flags().Float64Var(&query.MinSupport, "min-support", 1, "Minimum share of satisfying traces")
	queryCmd.Flags().IntVar(&query.MaxCardinality, "max-cardinality", 1, "Largest n tried for cardinality templates")
	queryCmd.Flags().BoolVar(&query.ConsiderVacuity, "consider-vacuity", false, "Count vacuously satisfied traces as satisfied")
	_ = queryCmd.MarkFlagRequired("log")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(queryCmd)
}
