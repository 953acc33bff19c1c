package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alanyang/promptledger/internal/seed"
	"github.com/alanyang/promptledger/internal/wire"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Load prompts from a YAML file; existing names are skipped",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fail("open seed file", err)
		}
		defer f.Close()

		doc, err := seed.Parse(f)
		if err != nil {
			return fail("parse seed file", err)
		}

		app, err := wire.Build(cmd.Context(), cfg)
		if err != nil {
			return fail("failed to build application", err)
		}
		defer app.Close()

		rep, err := seed.Apply(cmd.Context(), app.PromptSvc, doc)
		if err != nil {
			return fail("seed", err)
		}
		slog.Info("seed complete", "created", rep.Created, "skipped", rep.Skipped)
		return nil
	},
}
