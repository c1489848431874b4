package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geocrime/geocrime-cli/internal/anomaly"
	"github.com/geocrime/geocrime-cli/internal/features"
	"github.com/geocrime/geocrime-cli/internal/store"
)

var anomalyCity string

var anomalyCmd = &cobra.Command{
	Use:   "anomaly",
	Short: "Flag spatially anomalous incidents",
	Long:  "Fits an isolation forest on stored incident coordinates and severity and reports the records flagged as outliers.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		incidents, err := s.ListIncidents(ctx, store.IncidentFilter{City: anomalyCity})
		if err != nil {
			return err
		}

		det, err := anomaly.New(anomaly.Config{
			Contamination: cfg.Anomaly.Contamination,
			Trees:         cfg.Anomaly.Trees,
			SampleSize:    cfg.Anomaly.SampleSize,
			Seed:          cfg.Anomaly.Seed,
		})
		if err != nil {
			return err
		}

		labels, err := det.FitPredict(features.WeightedCoordinates(incidents))
		if err != nil {
			return err
		}

		var flagged int
		for i, l := range labels {
			if l != anomaly.LabelAnomalous {
				continue
			}
			flagged++
			in := incidents[i]
			zap.L().Info("anomalous incident",
				zap.Int64("id", in.ID),
				zap.Float64("latitude", in.Latitude),
				zap.Float64("longitude", in.Longitude),
				zap.String("crime_type", in.CrimeType),
				zap.String("city", in.City),
			)
		}
		zap.L().Info("anomaly scan complete",
			zap.Int("incidents", len(incidents)),
			zap.Int("flagged", flagged),
		)

		if err := det.Save(modelPath("anomaly")); err != nil {
			return err
		}
		return nil
	},
}

func init() {
	anomalyCmd.Flags().StringVar(&anomalyCity, "city", "", "restrict the scan to one city")
	rootCmd.AddCommand(anomalyCmd)
}
