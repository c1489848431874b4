// Package report exports hotspot and incident data for analysts: XLSX
// workbooks and GeoJSON feature collections.
package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/geocrime/geocrime-cli/internal/cluster"
	"github.com/geocrime/geocrime-cli/internal/model"
)

// WriteWorkbook writes an XLSX workbook with a Hotspots sheet and, when
// incidents are given, an Incidents sheet.
func WriteWorkbook(path string, centroids []cluster.Centroid, incidents []model.Incident) error {
	f := xlsx.NewFile()

	hotspots, err := f.AddSheet("Hotspots")
	if err != nil {
		return eris.Wrap(err, "report: add hotspots sheet")
	}
	writeHeader(hotspots, "Cluster", "Latitude", "Longitude", "Incidents", "Weight")
	for _, c := range centroids {
		row := hotspots.AddRow()
		row.AddCell().SetInt(c.Label)
		row.AddCell().SetFloat(c.Latitude)
		row.AddCell().SetFloat(c.Longitude)
		row.AddCell().SetInt(c.Size)
		row.AddCell().SetFloat(c.Weight)
	}

	if len(incidents) > 0 {
		sheet, err := f.AddSheet("Incidents")
		if err != nil {
			return eris.Wrap(err, "report: add incidents sheet")
		}
		writeHeader(sheet, "Latitude", "Longitude", "Timestamp", "Crime Type", "Severity", "City")
		for _, in := range incidents {
			row := sheet.AddRow()
			row.AddCell().SetFloat(in.Latitude)
			row.AddCell().SetFloat(in.Longitude)
			row.AddCell().SetString(in.Timestamp.UTC().Format("2006-01-02 15:04:05"))
			row.AddCell().SetString(in.CrimeType)
			row.AddCell().SetInt(in.Severity)
			row.AddCell().SetString(in.City)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(model.ErrPersistence, "report: save workbook: %v", err)
	}
	return nil
}

func writeHeader(sheet *xlsx.Sheet, names ...string) {
	row := sheet.AddRow()
	for _, name := range names {
		row.AddCell().SetString(name)
	}
}
