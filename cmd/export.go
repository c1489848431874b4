package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geocrime/geocrime-cli/internal/cluster"
	"github.com/geocrime/geocrime-cli/internal/model"
	"github.com/geocrime/geocrime-cli/internal/report"
	"github.com/geocrime/geocrime-cli/internal/store"
)

var (
	exportXLSX    string
	exportGeoJSON string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export hotspots and incidents for analysts",
	Long:  "Writes the fitted hotspot centroids to an XLSX workbook and/or a GeoJSON file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if exportXLSX == "" && exportGeoJSON == "" {
			return eris.New("one of --xlsx or --geojson is required")
		}

		hotspots, err := cluster.Load(modelPath("hotspots"))
		if err != nil {
			return eris.Wrapf(model.ErrPersistence, "export: no hotspot model, run cluster first: %v", err)
		}
		centroids := hotspots.Centroids()

		if exportXLSX != "" {
			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			incidents, err := s.ListIncidents(ctx, store.IncidentFilter{})
			if err != nil {
				return err
			}
			if err := report.WriteWorkbook(exportXLSX, centroids, incidents); err != nil {
				return err
			}
			zap.L().Info("workbook written", zap.String("path", exportXLSX))
		}

		if exportGeoJSON != "" {
			data, err := report.HotspotsGeoJSON(centroids)
			if err != nil {
				return err
			}
			if err := os.WriteFile(exportGeoJSON, data, 0o644); err != nil {
				return eris.Wrapf(model.ErrPersistence, "export: write geojson: %v", err)
			}
			zap.L().Info("geojson written", zap.String("path", exportGeoJSON))
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportXLSX, "xlsx", "", "path for the XLSX workbook")
	exportCmd.Flags().StringVar(&exportGeoJSON, "geojson", "", "path for the GeoJSON file")
	rootCmd.AddCommand(exportCmd)
}
