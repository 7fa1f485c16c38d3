package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/paveg/colcsv"
	"github.com/paveg/colcsv/internal/config"
	"github.com/paveg/colcsv/internal/logging"
	"github.com/paveg/colcsv/internal/monitoring"
	"github.com/paveg/colcsv/internal/version"
)

const defaultHead = 10

// app carries the state shared by every subcommand of one invocation.
type app struct {
	configFile  string
	logLevel    string
	logFormat   string
	metricsAddr string

	// Read overrides, applied only when set on the command line
	delimiter    string
	noHeader     bool
	skipRows     int
	threads      int
	batchSize    int
	sampleSize   int
	ignoreErrors bool
	lossy        bool
	columns      []string
	dtypes       map[string]string
	limit        int
	noRechunk    bool

	cfg     config.Config
	logger  *zap.Logger
	metrics *monitoring.MetricsCollector
	server  *monitoring.Server
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "colcsv",
		Short: "colcsv - parallel CSV reader and aggregator",
		Long: `colcsv parses delimited text into typed columns using every core,
and computes aggregates over it in a single pass.

Settings are taken from the config file (--config), then COLCSV_*
environment variables, then command line flags.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "Path to a JSON or YAML config file")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&a.logFormat, "log-format", "", "Log encoding (json, console)")
	pf.StringVar(&a.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")

	pf.StringVarP(&a.delimiter, "delimiter", "d", ",", `Field delimiter, a single byte or "\t"`)
	pf.BoolVar(&a.noHeader, "no-header", false, "Treat the first line as data")
	pf.IntVar(&a.skipRows, "skip-rows", 0, "Lines to skip before the header")
	pf.IntVarP(&a.threads, "threads", "t", 0, "Parser threads (0 = number of CPUs)")
	pf.IntVar(&a.batchSize, "batch-size", config.DefaultReadBatchSize, "Rows per parsed batch")
	pf.IntVar(&a.sampleSize, "sample-size", config.DefaultSampleSize, "Rows sampled for schema inference")
	pf.BoolVar(&a.ignoreErrors, "ignore-errors", false, "Drop malformed rows instead of failing")
	pf.BoolVar(&a.lossy, "lossy", false, "Replace invalid UTF-8 instead of failing")
	pf.StringSliceVarP(&a.columns, "columns", "c", nil, "Columns to read (default all)")
	pf.StringToStringVar(&a.dtypes, "dtype", nil, "Column type overrides, e.g. id=int64,price=float64")
	pf.IntVar(&a.limit, "limit", 0, "Stop after about this many rows (0 = read all)")
	pf.BoolVar(&a.noRechunk, "no-rechunk", false, "Keep one physical chunk per parsed batch")

	root.AddCommand(
		a.readCmd(),
		a.schemaCmd(),
		a.aggCmd(),
		a.convertCmd(),
		versionCmd(),
	)
	return root
}

// setup resolves the configuration and builds the logger and metrics.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg := config.NewConfig()
	if a.configFile != "" {
		loaded, err := config.LoadFromFile(a.configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg = config.ApplyEnv(cfg)
	a.applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	config.SetGlobalConfig(cfg)
	a.cfg = cfg

	logger, err := logging.FromConfig(cfg.Logging)
	if err != nil {
		return err
	}
	a.logger = logger

	if cfg.MetricsCollection || a.metricsAddr != "" {
		a.metrics = monitoring.NewMetricsCollector(true)
	}
	if a.metricsAddr != "" {
		a.server = monitoring.NewMonitoringServer(a.metrics, a.metricsAddr)
		go func() {
			if err := a.server.Start(); err != nil {
				a.logger.Debug("metrics server stopped", zap.Error(err))
			}
		}()
		a.logger.Info("serving metrics", zap.String("addr", a.metricsAddr))
	}
	return nil
}

func (a *app) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	r := &cfg.Read
	if flags.Changed("delimiter") {
		r.Delimiter = a.delimiter
	}
	if flags.Changed("no-header") {
		r.HasHeader = !a.noHeader
	}
	if flags.Changed("skip-rows") {
		r.SkipRows = a.skipRows
	}
	if flags.Changed("threads") {
		r.Threads = a.threads
	}
	if flags.Changed("batch-size") {
		r.BatchSize = a.batchSize
	}
	if flags.Changed("sample-size") {
		r.SampleSize = a.sampleSize
	}
	if flags.Changed("ignore-errors") {
		r.IgnoreParserErrors = a.ignoreErrors
	}
	if flags.Changed("lossy") && a.lossy {
		r.Encoding = config.EncodingLossyUTF8
	}
	if flags.Changed("columns") {
		r.Columns = a.columns
	}
	if flags.Changed("dtype") {
		r.DTypes = a.dtypes
	}
	if flags.Changed("limit") {
		r.StopAfterNRows = a.limit
	}
	if flags.Changed("no-rechunk") {
		r.Rechunk = !a.noRechunk
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Encoding = a.logFormat
	}
}

func (a *app) teardown(_ *cobra.Command, _ []string) error {
	if a.metrics != nil {
		a.logger.Info("metrics summary", zap.Any("summary", a.metrics.GetSummary()))
	}
	if a.server != nil {
		if err := a.server.Stop(); err != nil {
			return err
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return nil
}

// options builds the read options of this invocation.
func (a *app) options() colcsv.Options {
	opts := colcsv.OptionsFromConfig(a.cfg)
	opts.Logger = a.logger
	opts.Metrics = a.metrics
	return opts
}

func (a *app) readCmd() *cobra.Command {
	var head int
	var fingerprint bool

	cmd := &cobra.Command{
		Use:   "read FILE",
		Short: "Parse a file and print its first rows as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return colcsv.WithDataFrame(func() (*colcsv.DataFrame, error) {
				return colcsv.ReadCSVFile(cmd.Context(), args[0], a.options())
			}, func(df *colcsv.DataFrame) error {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d rows x %d columns\n", df.Len(), df.Width())
				if fingerprint {
					fmt.Fprintf(cmd.OutOrStdout(), "%016x\n", df.Fingerprint())
					return nil
				}

				out := df
				if head > 0 {
					out = df.Slice(0, head)
					defer out.Release()
				}
				return colcsv.WriteCSV(cmd.OutOrStdout(), out, a.cfg.Write)
			})
		},
	}
	cmd.Flags().IntVarP(&head, "head", "n", defaultHead, "Rows to print (0 = all)")
	cmd.Flags().BoolVar(&fingerprint, "fingerprint", false, "Print a hash of the parsed values instead of rows")
	return cmd
}

func (a *app) schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema FILE",
		Short: "Print the inferred schema of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := openSource(args[0])
			if err != nil {
				return err
			}
			defer src.Close()

			sc, err := colcsv.InferSchema(cmd.Context(), src, a.options())
			if err != nil {
				return err
			}
			for _, f := range sc.Fields() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", f.Name, f.Type)
			}
			return nil
		},
	}
}

func (a *app) aggCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agg FILE SPEC...",
		Short: "Compute aggregates in a single pass",
		Long: `Compute aggregates without building the table. Each SPEC is
func(column) or func:column, with func one of count, count_all, sum,
min, max or mean. count_all accepts * as its column.

Example:
  colcsv agg sales.csv 'sum(amount)' 'count_all(*)'`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			specs := make([]colcsv.Spec, 0, len(args)-1)
			for _, arg := range args[1:] {
				spec, err := colcsv.ParseSpec(arg)
				if err != nil {
					return err
				}
				specs = append(specs, spec)
			}

			results, err := colcsv.AggregateFile(cmd.Context(), args[0], a.options(), specs...)
			if err != nil {
				return err
			}
			for i, spec := range specs {
				value := "null"
				if results[i].IsValid() {
					value = results[i].String()
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", spec, value)
			}
			return nil
		},
	}
}

func (a *app) convertCmd() *cobra.Command {
	var outDelimiter, dateFormat, timestampFormat string
	var noOutHeader bool

	cmd := &cobra.Command{
		Use:   "convert IN OUT",
		Short: "Re-write a delimited file with normalized values",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wcfg := a.cfg.Write
			if cmd.Flags().Changed("out-delimiter") {
				wcfg.Delimiter = outDelimiter
			}
			if cmd.Flags().Changed("date-format") {
				wcfg.DateFormat = dateFormat
			}
			if cmd.Flags().Changed("timestamp-format") {
				wcfg.TimestampFormat = timestampFormat
			}
			if noOutHeader {
				wcfg.Header = false
			}

			return colcsv.WithDataFrame(func() (*colcsv.DataFrame, error) {
				return colcsv.ReadCSVFile(cmd.Context(), args[0], a.options())
			}, func(df *colcsv.DataFrame) error {
				return writeFile(cmd, args[1], func(w io.Writer) error {
					return colcsv.WriteCSV(w, df, wcfg)
				})
			})
		},
	}
	cmd.Flags().StringVar(&outDelimiter, "out-delimiter", ",", "Output field delimiter")
	cmd.Flags().StringVar(&dateFormat, "date-format", config.DefaultDateFormat, "Go layout for date columns")
	cmd.Flags().StringVar(&timestampFormat, "timestamp-format", config.DefaultTimestampFormat, "Go layout for timestamp columns")
	cmd.Flags().BoolVar(&noOutHeader, "no-out-header", false, "Omit the header line")
	return cmd
}

func versionCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Info()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			fmt.Fprint(cmd.OutOrStdout(), info.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

// openSource memory-maps a file argument.
func openSource(path string) (colcsv.Source, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("empty file name")
	}
	return colcsv.OpenFile(path)
}

// writeFile runs write against path, or against the command output when
// path is "-". A partially written file is left in place on error.
func writeFile(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(cmd.OutOrStdout())
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
