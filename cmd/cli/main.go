package main

import (
	"fmt"
	"os"

	"cutvalid/internal"
	"cutvalid/internal/config"
	"cutvalid/internal/container"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// globals are the persistent flags shared by every command
type globals struct {
	configPath string
	logLevel   string
	lumi       float64
	outputDir  string
	jsonOut    bool

	container *container.Container
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:           "cutvalid",
		Short:         "Validate parametrised selection cuts against the true cut",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if g.container == nil {
				return nil
			}
			return g.container.Shutdown(cmd.Context())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&g.configPath, "config", "", "YAML config file (default $"+config.ConfigFileEnv+")")
	flags.StringVar(&g.logLevel, "log-level", "", "ERROR, WARN, INFO, DEBUG or TRACE (default $LOG_LEVEL)")
	flags.Float64Var(&g.lumi, "lumi", 0, "integrated luminosity in fb^-1 (default $TEST_LUMI or 2000)")
	flags.StringVar(&g.outputDir, "output", "", "output directory (default $OUTPUT_DIR)")
	flags.BoolVar(&g.jsonOut, "json", false, "print JSON instead of tables")

	rootCmd.AddCommand(
		newInspectCmd(g),
		newChi2Cmd(g),
		newDeviationCmd(g),
		newCutEffectCmd(g),
		newBatchCmd(g),
		newFramesCmd(g),
		newGenerateCmd(g),
	)
	return rootCmd
}

// setup loads .env and config, applies flag overrides and builds the container
func (g *globals) setup(cmd *cobra.Command) error {
	_ = godotenv.Load()

	path := g.configPath
	if path == "" {
		path = os.Getenv(config.ConfigFileEnv)
	}
	cfg, err := config.LoadWithFile(path)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("lumi") {
		cfg.Analysis.TestLumi = g.lumi
	}
	if cmd.Flags().Changed("output") {
		cfg.Output.Dir = g.outputDir
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
	internal.DefaultLogger = logger

	c, err := container.New(cfg, logger)
	if err != nil {
		return err
	}
	g.container = c
	return nil
}
