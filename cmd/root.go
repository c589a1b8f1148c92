package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ontoschema/pkg/config"
	"github.com/ekaya-inc/ontoschema/pkg/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	cfgFile string

	cfg    *config.Config
	logger = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "ontoschema",
	Short:         "Compile an OWL/RDFS ontology into a class model and a relational schema.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		logger = logging.NewLogger(cfg.Logging)
		logger.Debug("Configuration loaded",
			zap.String("config", cfgFile),
			zap.String("ontology", cfg.Ontology.File),
			zap.String("output_dir", cfg.Output.Dir))
		return nil
	},
}

// Execute adds all child commands to the root command and runs it with ctx.
func Execute(ctx context.Context) error {
	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newStagesCmd())
	rootCmd.AddCommand(newApplyCmd())

	err := rootCmd.ExecuteContext(ctx)
	defer func() { _ = logger.Sync() }()
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		logger.Warn("Interrupted")
		return err
	}
	if cfg != nil {
		logger.Error("Command failed", zap.String("error", logging.SanitizeError(err)))
	} else {
		fmt.Fprintln(os.Stderr, "Error:", logging.SanitizeError(err))
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: environment only)")
}

// loadConfig reads the YAML file when one is given, otherwise the
// environment alone.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
