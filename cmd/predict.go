package main

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/geocrime/geocrime-cli/internal/classifier"
	"github.com/geocrime/geocrime-cli/internal/features"
	"github.com/geocrime/geocrime-cli/internal/model"
)

var (
	predictLat  float64
	predictLon  float64
	predictDate string
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict risk for a location and time",
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := time.Parse(time.RFC3339, predictDate)
		if err != nil {
			return eris.Wrapf(model.ErrValidation, "predict: date must be RFC 3339, got %q", predictDate)
		}

		f, err := classifier.Load(modelPath("classifier"))
		if err != nil {
			return err
		}

		tf := features.Extract(at)
		row := [][]float64{{predictLat, predictLon, float64(tf.Hour), float64(tf.DayOfWeek), float64(tf.Month)}}
		proba, err := f.PredictProba(row)
		if err != nil {
			return err
		}

		level := model.LabelLowRisk
		if proba[0] >= 0.5 {
			level = model.LabelHighRisk
		}

		out, _ := json.MarshalIndent(map[string]any{
			"risk_level": level,
			"risk_score": proba[0],
		}, "", "  ")
		cmd.Println(string(out))
		return nil
	},
}

func init() {
	predictCmd.Flags().Float64Var(&predictLat, "lat", 0, "latitude")
	predictCmd.Flags().Float64Var(&predictLon, "lon", 0, "longitude")
	predictCmd.Flags().StringVar(&predictDate, "date", "", "timestamp (RFC 3339)")
	predictCmd.MarkFlagRequired("lat")
	predictCmd.MarkFlagRequired("lon")
	predictCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(predictCmd)
}
