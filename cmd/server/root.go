package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alanyang/promptledger/internal/config"
)

var (
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:           "promptledger",
	Short:         "Versioned prompt registry and run ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		level, _ := cfg.SlogLevel()
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (YAML); environment variables override it")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

// fail logs err and returns it so cobra exits non-zero without printing usage.
func fail(msg string, err error) error {
	slog.Error(msg, "error", err)
	return fmt.Errorf("%s: %w", msg, err)
}
