package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geocrime/geocrime-cli/internal/ingest"
)

var (
	synthCount int
	synthSeed  int64
)

var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Generate synthetic incidents for development",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		incidents, err := ingest.Synthesize(synthCount, synthSeed)
		if err != nil {
			return err
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		n, err := s.SaveIncidents(ctx, incidents)
		if err != nil {
			return err
		}
		zap.L().Info("synthetic incidents generated",
			zap.Int("count", n),
			zap.Int64("seed", synthSeed),
		)
		return nil
	},
}

func init() {
	synthCmd.Flags().IntVar(&synthCount, "count", 1000, "number of incidents to generate")
	synthCmd.Flags().Int64Var(&synthSeed, "seed", 42, "random seed")
	rootCmd.AddCommand(synthCmd)
}
