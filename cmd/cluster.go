package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geocrime/geocrime-cli/internal/cluster"
	"github.com/geocrime/geocrime-cli/internal/features"
	"github.com/geocrime/geocrime-cli/internal/model"
	"github.com/geocrime/geocrime-cli/internal/store"
)

var clusterAlgorithm string

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Detect crime hotspots from stored incidents",
	Long:  "Fits the configured clustering algorithm over stored incidents, persists per-incident labels and the fitted model artifact.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		incidents, err := s.ListIncidents(ctx, store.IncidentFilter{})
		if err != nil {
			return err
		}
		if len(incidents) == 0 {
			return eris.Wrap(model.ErrValidation, "cluster: no incidents in store")
		}

		algorithm := clusterAlgorithm
		if algorithm == "" {
			algorithm = cfg.Cluster.Algorithm
		}

		m, err := cluster.New(algorithm, clusterParams(algorithm))
		if err != nil {
			return err
		}

		points := clusterInput(algorithm, incidents)
		labels, err := m.FitPredict(points)
		if err != nil {
			return err
		}

		assignments := make([]model.ClusterAssignment, len(incidents))
		for i, in := range incidents {
			assignments[i] = model.ClusterAssignment{IncidentID: in.ID, Label: labels[i]}
		}
		runID, err := s.SaveAssignments(ctx, algorithm, assignments)
		if err != nil {
			return err
		}

		artifact := modelPath("hotspots")
		if err := m.Save(artifact); err != nil {
			return err
		}

		zap.L().Info("clustering complete",
			zap.String("algorithm", algorithm),
			zap.String("run_id", runID),
			zap.Int("incidents", len(incidents)),
			zap.Int("hotspots", len(m.Centroids())),
			zap.String("artifact", artifact),
		)
		return nil
	},
}

// clusterParams assembles algorithm parameters from configuration.
func clusterParams(algorithm string) map[string]float64 {
	switch algorithm {
	case cluster.AlgorithmKMeans:
		return map[string]float64{"n_clusters": float64(cfg.Cluster.NClusters)}
	case cluster.AlgorithmSTDBSCAN:
		return map[string]float64{
			"eps_spatial":  cfg.Cluster.EpsSpatial,
			"eps_temporal": cfg.Cluster.EpsTemporal,
			"min_samples":  float64(cfg.Cluster.MinSamples),
		}
	default:
		return map[string]float64{
			"eps":         cfg.Cluster.Eps,
			"min_samples": float64(cfg.Cluster.MinSamples),
		}
	}
}

// clusterInput extracts the coordinate matrix each algorithm expects.
func clusterInput(algorithm string, incidents []model.Incident) [][]float64 {
	switch algorithm {
	case cluster.AlgorithmKMeans:
		return features.WeightedCoordinates(incidents)
	case cluster.AlgorithmSTDBSCAN:
		return features.SpatioTemporalCoordinates(incidents)
	default:
		return features.Coordinates(incidents)
	}
}

func init() {
	clusterCmd.Flags().StringVar(&clusterAlgorithm, "algorithm", "", "clustering algorithm: dbscan, kmeans, or stdbscan (default from config)")
	rootCmd.AddCommand(clusterCmd)
}
