package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geocrime/geocrime-cli/internal/anomaly"
	"github.com/geocrime/geocrime-cli/internal/api"
	"github.com/geocrime/geocrime-cli/internal/classifier"
	"github.com/geocrime/geocrime-cli/internal/cluster"
	"github.com/geocrime/geocrime-cli/internal/riskindex"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve risk predictions over HTTP",
	Long:  "Loads trained model artifacts and serves hotspot, prediction, risk-index, and anomaly endpoints.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts := api.Options{
			AnomalyCfg: anomaly.Config{
				Contamination: cfg.Anomaly.Contamination,
				Trees:         cfg.Anomaly.Trees,
				SampleSize:    cfg.Anomaly.SampleSize,
				Seed:          cfg.Anomaly.Seed,
			},
		}

		// Missing artifacts are not fatal: the affected endpoints degrade.
		if hotspots, err := cluster.Load(modelPath("hotspots")); err == nil {
			opts.Hotspots = hotspots
		} else {
			zap.L().Warn("hotspot model not loaded", zap.Error(err))
		}
		if f, err := classifier.Load(modelPath("classifier")); err == nil {
			opts.Classifier = f
		} else {
			zap.L().Warn("classifier model not loaded", zap.Error(err))
		}

		riskOpts := []riskindex.Option{}
		if cfg.RiskIndex.UseHotspots && opts.Hotspots != nil {
			riskOpts = append(riskOpts, riskindex.WithHotspots(opts.Hotspots))
		}
		opts.Risk = riskindex.New(riskOpts...)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		return api.NewServer(opts).Run(ctx, port)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
