package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dreamsxin/xperformance/bridge"
	"github.com/dreamsxin/xperformance/environ"
	"github.com/dreamsxin/xperformance/export"
	"github.com/dreamsxin/xperformance/system"
	"github.com/dreamsxin/xperformance/types"
	"github.com/dreamsxin/xperformance/util"
)

var (
	logLevel string
	logFile  string

	pkg           string
	cpu           bool
	memory        bool
	thread        bool
	verbose       bool
	interval      int
	serial        string
	adbPath       string
	bridgeTimeout time.Duration
	outputRoot    string
	memoryHistory int
	topThreads    int
	sqlite        bool
	metrics       string
	otlpEndpoint  string
	otlpInsecure  bool
)

var rootCmd = &cobra.Command{
	Use:   "xperformance",
	Short: "Monitor CPU and memory of an Android app over adb",
	Long: `xperformance samples CPU, per-thread CPU and memory of an Android package
through adb, follows the app across restarts and exports the collected data
as CSV, chart datasets, SQLite or OpenTelemetry metrics.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLvl, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		if verbose && logLvl < log.DebugLevel {
			logLvl = log.DebugLevel
		}
		log.SetLevel(logLvl)

		if logFile != "" {
			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return errors.Wrapf(err, "open log file %s", logFile)
			}
			log.SetOutput(io.MultiWriter(os.Stderr, f))
		}
		return nil
	},
	RunE: run,
}

func init() {
	flags := rootCmd.Flags()
	rootCmd.PersistentFlags().StringVar(&logLevel,
		"log-level",
		environ.GetString("LOG_LEVEL", "info"),
		"Log level. One of trace, debug, info, warn, error, fatal, panic.",
	)
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", environ.GetString("LOG_FILE", ""), "Also write logs to this file.")

	flags.StringVarP(&pkg, "package", "p", environ.GetString("PACKAGE", ""), "Package name of the app to monitor.")
	flags.BoolVar(&cpu, "cpu", environ.GetBool("CPU", false), "Monitor CPU usage.")
	flags.BoolVar(&memory, "memory", environ.GetBool("MEMORY", false), "Monitor memory usage.")
	flags.BoolVar(&thread, "thread", environ.GetBool("THREAD", false), "List the busiest threads on every sample and keep per-thread series.")
	flags.BoolVarP(&verbose, "verbose", "v", environ.GetBool("VERBOSE", false), "Verbose output, same as --log-level=debug.")
	flags.IntVarP(&interval, "interval", "i", environ.GetInt("INTERVAL", 1), "Sampling interval in seconds.")
	flags.StringVarP(&serial, "serial", "s", environ.GetString("SERIAL", ""), "Device serial, required when several devices are connected.")
	flags.StringVar(&adbPath, "adb", environ.GetString("ADB", "adb"), "Path to the adb executable.")
	flags.DurationVar(&bridgeTimeout, "bridge-timeout", environ.GetDuration("BRIDGE_TIMEOUT", types.DefaultBridgeTimeout), "Timeout of a single adb call.")
	flags.StringVarP(&outputRoot, "output", "o", environ.GetString("OUTPUT", "log"), "Output directory.")
	flags.IntVar(&memoryHistory, "memory-history", environ.GetInt("MEMORY_HISTORY", types.DefaultMemoryHistory), "Number of memory samples kept in memory.")
	flags.IntVar(&topThreads, "top-threads", environ.GetInt("TOP_THREADS", types.DefaultTopThreads), "Number of threads kept per CPU sample.")
	flags.BoolVar(&sqlite, "sqlite", environ.GetBool("SQLITE", false), "Also store samples in a SQLite database.")
	flags.StringVar(&metrics, "metrics", environ.GetString("METRICS", string(export.ExporterNone)), "OpenTelemetry metrics exporter. One of none, stdout, otlp-grpc, otlp-http.")
	flags.StringVar(&otlpEndpoint, "otlp-endpoint", environ.GetString("OTLP_ENDPOINT", ""), "OTLP collector endpoint, e.g. localhost:4317.")
	flags.BoolVar(&otlpInsecure, "otlp-insecure", environ.GetBool("OTLP_INSECURE", false), "Connect to the OTLP collector without TLS.")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if !cpu && !memory {
		fmt.Println("No metric selected. Use --cpu and/or --memory.")
		return cmd.Help()
	}

	cfg := types.DefaultMonitorConfig(pkg)
	cfg.CPU = cpu
	cfg.Memory = memory
	cfg.Thread = thread
	cfg.Verbose = verbose
	cfg.Interval = time.Duration(interval) * time.Second
	cfg.TopThreads = topThreads
	cfg.MemoryHistory = memoryHistory
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	adb := bridge.NewADB(
		bridge.WithPath(adbPath),
		bridge.WithSerial(serial),
		bridge.WithTimeout(bridgeTimeout),
	)
	if err := adb.Ping(ctx); err != nil {
		return errors.Wrap(err, "adb is not usable or no device is connected")
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := exporter.Close(context.Background()); err != nil {
			log.Warnf("failed to close exporters: %v", err)
		}
	}()

	session, err := system.NewSession(system.Options{
		Config:    cfg,
		Bridge:    adb,
		Exporter:  exporter,
		SessionID: util.NewSessionID(),
	})
	if err != nil {
		return err
	}

	stop := notifySignals(func(sig os.Signal) {
		log.Infof("received signal: %v", sig)
		session.Stop()
	})
	defer stop()

	log.WithField("session", util.ShortID(session.ID())).Infof("Monitoring %s every %s", cfg.Package, cfg.Interval)
	return session.Run(ctx)
}

func newExporter(ctx context.Context, cfg types.MonitorConfig) (*export.Multi, error) {
	multi := export.NewMulti(
		export.NewLog(log.StandardLogger()),
		export.NewCSV(outputRoot),
		export.NewChart(outputRoot),
	)

	if sqlite {
		db, err := export.NewSQLite(filepath.Join(outputRoot, cfg.Package))
		if err != nil {
			return nil, err
		}
		multi.Add(db)
	}

	exporterType, err := export.ParseExporterType(metrics)
	if err != nil {
		return nil, err
	}
	if exporterType != export.ExporterNone {
		mcfg := export.DefaultMetricsConfig()
		mcfg.ExporterType = exporterType
		mcfg.OTLPEndpoint = otlpEndpoint
		mcfg.OTLPInsecure = otlpInsecure
		mcfg.Attributes = map[string]string{"package": cfg.Package}
		m, err := export.NewMetrics(ctx, mcfg)
		if err != nil {
			return nil, err
		}
		multi.Add(m)
	}
	return multi, nil
}
