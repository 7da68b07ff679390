package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
	"github.com/spf13/cobra"

	"github.com/ironsheep/scan-annotate-mcp/internal/analysis"
	"github.com/ironsheep/scan-annotate-mcp/internal/annotate"
	"github.com/ironsheep/scan-annotate-mcp/internal/config"
	"github.com/ironsheep/scan-annotate-mcp/internal/pipeline"
	"github.com/ironsheep/scan-annotate-mcp/internal/server"
	"github.com/ironsheep/scan-annotate-mcp/internal/storage"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configFile string
	logLevel   string
	outputDir  string
	seed       uint64
	workers    int
	confidence float64
)

var rootCmd = &cobra.Command{
	Use:   "scan-mcp",
	Short: "MCP server for quick scan analysis and annotation",
	Long: `scan-mcp synthesizes detection points for scan images, classifies them by
confidence tier and writes annotated copies. Without a subcommand it serves
the MCP protocol over stdin/stdout.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the MCP protocol over stdin/stdout",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>...",
	Short: "Analyze images and print their analysis records as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyze,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("scan-annotate-mcp %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (default $SCAN_MCP_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for annotated artifacts and uploads")
	rootCmd.PersistentFlags().Uint64Var(&seed, "seed", 0, "Seed for the random source (0 seeds from the clock)")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 0, "Parallel analyses per batch")

	analyzeCmd.Flags().Float64Var(&confidence, "confidence", 0, "Use this confidence in [0, 1) instead of a random draw")

	rootCmd.AddCommand(serveCmd, analyzeCmd, versionCmd)
}

func main() {
	// stdout is reserved for MCP frames and analysis output
	log.SetHandler(text.New(os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.WithError(err).Error("scan-mcp failed")
		os.Exit(1)
	}
}

// loadConfig layers command-line flags over the file and environment settings.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = outputDir
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("workers") {
		cfg.BatchWorkers = workers
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log.SetLevel(cfg.Level())
	return cfg, nil
}

func newAnalyzer(cfg *config.Config) (*pipeline.Analyzer, error) {
	s := cfg.Seed
	if s == 0 {
		s = uint64(time.Now().UnixNano())
	}
	rng := analysis.NewLockedSource(analysis.NewSeededSource(s))
	synth := analysis.NewSynthesizer(rng, analysis.WithConfidenceRange(cfg.ConfidenceMin, cfg.ConfidenceMax))

	renderer, err := annotate.NewRenderer(
		annotate.WithPalette(cfg.Palette),
		annotate.WithPrefix(cfg.ArtifactPrefix),
	)
	if err != nil {
		return nil, err
	}

	logger := log.WithField("component", "pipeline")
	return pipeline.NewAnalyzer(synth, renderer, storage.NewDirStore(cfg.OutputDir),
		pipeline.WithLogger(logger),
		pipeline.WithMaxBytes(cfg.MaxImageBytes),
		pipeline.WithWorkers(cfg.BatchWorkers),
	), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	analyzer, err := newAnalyzer(cfg)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"version":    Version,
		"built":      BuildTime,
		"commit":     GitCommit,
		"output_dir": cfg.OutputDir,
	}).Debug("starting scan MCP server")

	srv := server.New(server.Options{
		Analyzer:  analyzer,
		UploadDir: cfg.OutputDir,
		MaxBytes:  cfg.MaxImageBytes,
		Version:   Version,
		Logger:    log.WithField("component", "server"),
	})
	return srv.Run(cmd.Context())
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	analyzer, err := newAnalyzer(cfg)
	if err != nil {
		return err
	}

	var results []analysis.Result
	if cmd.Flags().Changed("confidence") {
		if confidence < 0 || confidence >= 1 {
			return fmt.Errorf("--confidence must be in [0, 1), got %g", confidence)
		}
		for _, path := range args {
			results = append(results, analyzer.AnalyzeFileWithConfidence(cmd.Context(), path, confidence))
		}
	} else {
		results = analyzer.AnalyzeBatch(cmd.Context(), args)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
