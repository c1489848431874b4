package main

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geocrime/geocrime-cli/internal/cluster"
	"github.com/geocrime/geocrime-cli/internal/model"
	"github.com/geocrime/geocrime-cli/internal/riskindex"
	"github.com/geocrime/geocrime-cli/pkg/geocode"
)

var (
	riskLat   float64
	riskLon   float64
	riskAt    string
	riskPlace string
)

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Compute the risk index for a location",
	Long:  "Computes the heuristic risk index for coordinates or a geocoded place name, factoring in known hotspots when available.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		lat, lon := riskLat, riskLon
		if riskPlace != "" {
			cache, err := geocode.NewFileCache(cfg.Geocode.CachePath)
			if err != nil {
				return err
			}
			client := geocode.NewClient(
				geocode.NewNominatim(cfg.Geocode.UserAgent, geocode.WithCountry(cfg.Geocode.Country)),
				geocode.WithCache(cache),
			)
			r, err := client.Geocode(ctx, riskPlace)
			if err != nil {
				return err
			}
			if !r.Matched {
				return eris.Wrapf(model.ErrValidation, "risk: could not geocode %q", riskPlace)
			}
			lat, lon = r.Latitude, r.Longitude
		}

		var at time.Time
		if riskAt != "" {
			var err error
			at, err = time.Parse(time.RFC3339, riskAt)
			if err != nil {
				return eris.Wrapf(model.ErrValidation, "risk: at must be RFC 3339, got %q", riskAt)
			}
		}

		opts := []riskindex.Option{}
		if cfg.RiskIndex.UseHotspots {
			if hotspots, err := cluster.Load(modelPath("hotspots")); err == nil {
				opts = append(opts, riskindex.WithHotspots(hotspots))
			} else {
				zap.L().Debug("no hotspot model, proximity factor disabled", zap.Error(err))
			}
		}

		result := riskindex.New(opts...).Calculate(lat, lon, at)
		out, _ := json.MarshalIndent(result, "", "  ")
		cmd.Println(string(out))
		return nil
	},
}

func init() {
	riskCmd.Flags().Float64Var(&riskLat, "lat", 0, "latitude")
	riskCmd.Flags().Float64Var(&riskLon, "lon", 0, "longitude")
	riskCmd.Flags().StringVar(&riskAt, "at", "", "timestamp (RFC 3339, default now)")
	riskCmd.Flags().StringVar(&riskPlace, "place", "", "place name to geocode instead of coordinates")
	rootCmd.AddCommand(riskCmd)
}
