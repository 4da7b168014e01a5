package main

import (
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Version is set at build time via -ldflags
var Version = "dev"

// Options holds the CLI surface. Environment variables mirror the long
// flags so the pipeline can run unattended in CI.
type Options struct {
	ConfigFile string `short:"c" long:"config"     env:"CONFIG_FILE" description:"Path to configuration file" default:""`
	DataDir    string `short:"d" long:"data-dir"   env:"DATA_DIR"    description:"Directory containing cached source datasets"`
	OutputDir  string `short:"o" long:"output-dir" env:"OUTPUT_DIR"  description:"Directory receiving generated artifacts"`

	TopologyOnly  bool `short:"t" long:"topology-only"  description:"Build the topology artifact and exit"`
	HierarchyOnly bool `short:"g" long:"hierarchy-only" description:"Build the hierarchy artifact and exit"`

	LogLevel  string `long:"log-level"  env:"LOG_LEVEL"  description:"Log level: trace, debug, info, warn, error" default:"info"`
	LogFormat string `long:"log-format" env:"LOG_FORMAT" description:"Log format: console or json" default:"console"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	setupLogger(opts.LogLevel, opts.LogFormat)
	log.Info().Str("version", Version).Msg("atlas starting")

	app, err := NewApp(opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}

	switch {
	case opts.TopologyOnly && opts.HierarchyOnly:
		log.Fatal().Msg("--topology-only and --hierarchy-only are mutually exclusive")
	case opts.TopologyOnly:
		err = app.RunTopology()
	case opts.HierarchyOnly:
		err = app.RunHierarchy()
	default:
		err = app.Run()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Pipeline failed")
	}
}

func setupLogger(level, format string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
