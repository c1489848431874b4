package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geocrime/geocrime-cli/internal/classifier"
	"github.com/geocrime/geocrime-cli/internal/features"
	"github.com/geocrime/geocrime-cli/internal/model"
	"github.com/geocrime/geocrime-cli/internal/store"
)

var trainHoldout float64

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the risk classifier on stored incidents",
	Long:  "Labels incidents by severity percentile, trains the random forest, reports holdout metrics, and saves the model artifact.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if trainHoldout < 0 || trainHoldout >= 1 {
			return eris.Wrapf(model.ErrConfiguration, "train: holdout must be in [0, 1), got %g", trainHoldout)
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		incidents, err := s.ListIncidents(ctx, store.IncidentFilter{})
		if err != nil {
			return err
		}

		X, err := features.Matrix(incidents)
		if err != nil {
			return err
		}
		y, err := features.RiskLabels(features.SeverityValues(incidents), cfg.Classifier.RiskPercentile)
		if err != nil {
			return err
		}

		f, err := classifier.New(classifier.Config{
			Trees:    cfg.Classifier.Trees,
			MaxDepth: cfg.Classifier.MaxDepth,
			MinLeaf:  classifier.DefaultMinLeaf,
			Seed:     cfg.Classifier.Seed,
		})
		if err != nil {
			return err
		}

		// Time-ordered split: the most recent slice becomes the holdout.
		split := len(X) - int(float64(len(X))*trainHoldout)
		if err := f.Train(X[:split], y[:split]); err != nil {
			return err
		}

		if split < len(X) {
			eval, err := f.Evaluate(X[split:], y[split:])
			if err != nil {
				return err
			}
			zap.L().Info("holdout evaluation",
				zap.Int("holdout_size", len(X)-split),
				zap.Float64("accuracy", eval.Accuracy),
				zap.Float64("high_risk_precision", eval.HighRisk.Precision),
				zap.Float64("high_risk_recall", eval.HighRisk.Recall),
				zap.Float64("high_risk_f1", eval.HighRisk.F1),
			)
		}

		artifact := modelPath("classifier")
		if err := f.Save(artifact); err != nil {
			return err
		}
		zap.L().Info("classifier trained",
			zap.Int("samples", split),
			zap.String("artifact", artifact),
		)
		return nil
	},
}

func init() {
	trainCmd.Flags().Float64Var(&trainHoldout, "holdout", 0.2, "fraction of newest incidents held out for evaluation")
	rootCmd.AddCommand(trainCmd)
}
