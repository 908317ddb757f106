package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/OpenTraceLab/OpenTraceBoard/internal/config"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/layers"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/loader"
)

var (
	// Global flags
	cfgFile     string
	verbose     bool
	logLevel    string
	layerTables string

	// Set up by the root command before any subcommand runs
	cfg    *config.Config
	logger *zap.Logger
	reg    *layers.Registry
	ldr    *loader.Loader
)

var rootCmd = &cobra.Command{
	Use:   "otb",
	Short: "OpenTraceBoard - EAGLE and KiCad board inspection",
	Long: `OpenTraceBoard (otb) loads EAGLE (.brd) and KiCad (.kicad_pcb) boards
into one unified model and lets you query, render and serve it.

Examples:
  otb info board.brd                     # Summary, bounds and warnings
  otb nets board.kicad_pcb GND           # Shapes of one net
  otb export board.brd out.svg           # Render to SVG or PNG
  otb serve board.kicad_pcb              # Read-only HTTP API with live reload`,
	Version:           "0.9.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&layerTables, "layers", "", "YAML file replacing the built-in layer tables")
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}
	if layerTables != "" {
		cfg.LayerTables = layerTables
	}

	logger, err = newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	reg, err = cfg.Registry()
	if err != nil {
		return fmt.Errorf("error loading layer tables: %w", err)
	}
	ldr = loader.New(loader.WithRegistry(reg), loader.WithLogger(logger))
	return nil
}

func newLogger(c *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if verbose {
		zc = zap.NewDevelopmentConfig()
	}
	level := c.Level()
	if logLevel != "" {
		l, err := zapcore.ParseLevel(logLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q", logLevel)
		}
		level = l
	} else if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// load parses a board with the configured loader.
func load(path string) (*loader.Result, error) {
	res, err := ldr.Load(path)
	if err != nil {
		return nil, fmt.Errorf("error loading board: %w", err)
	}
	return res, nil
}
