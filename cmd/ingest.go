package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geocrime/geocrime-cli/internal/ingest"
	"github.com/geocrime/geocrime-cli/internal/model"
)

var (
	ingestCSV       string
	ingestURL       string
	ingestShapefile string
	ingestCity      string
	ingestType      string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load incident records into the store",
	Long:  "Loads incidents from a local CSV, a remote dataset URL, or a point shapefile.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var (
			incidents []model.Incident
			err       error
		)
		switch {
		case ingestCSV != "":
			f, ferr := os.Open(ingestCSV)
			if ferr != nil {
				return eris.Wrapf(ferr, "open %s", ingestCSV)
			}
			defer f.Close()
			incidents, err = ingest.LoadCSV(f)
		case ingestURL != "":
			fetcher := ingest.NewFetcher(ingest.FetcherOptions{CacheDir: cfg.Data.CacheDir})
			path, ferr := fetcher.FetchDataset(ctx, ingestURL)
			if ferr != nil {
				return ferr
			}
			f, ferr := os.Open(path)
			if ferr != nil {
				return eris.Wrapf(ferr, "open %s", path)
			}
			defer f.Close()
			incidents, err = ingest.LoadCSV(f)
		case ingestShapefile != "":
			incidents, err = ingest.LoadShapefile(ingestShapefile, ingest.ShapefileOptions{
				TypeField:   "TYPE",
				DateField:   "DATE",
				CityField:   "CITY",
				DefaultType: ingestType,
				DefaultCity: ingestCity,
			})
		default:
			return eris.New("one of --csv, --url, or --shapefile is required")
		}
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
		zap.L().Info("incidents ingested", zap.Int("count", n))
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestCSV, "csv", "", "path to a local CSV file")
	ingestCmd.Flags().StringVar(&ingestURL, "url", "", "URL of a remote CSV dataset")
	ingestCmd.Flags().StringVar(&ingestShapefile, "shapefile", "", "path to a point shapefile")
	ingestCmd.Flags().StringVar(&ingestCity, "city", "", "default city for records missing one")
	ingestCmd.Flags().StringVar(&ingestType, "type", "", "default crime type for records missing one")
	rootCmd.AddCommand(ingestCmd)
}
