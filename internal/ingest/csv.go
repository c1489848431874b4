// Package ingest loads incident records from CSV files, remote datasets,
// shapefiles, and a seeded synthetic generator.
package ingest

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geocrime/geocrime-cli/internal/model"
)

// Column aliases accepted in CSV headers, lowercased.
var columnAliases = map[string]string{
	"latitude":   "latitude",
	"lat":        "latitude",
	"longitude":  "longitude",
	"lon":        "longitude",
	"lng":        "longitude",
	"timestamp":  "timestamp",
	"datetime":   "timestamp",
	"date":       "timestamp",
	"crime_type": "crime_type",
	"type":       "crime_type",
	"category":   "crime_type",
	"severity":   "severity",
	"city":       "city",
}

// timeLayouts are tried in order when parsing the timestamp column.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// LoadCSV parses incidents from CSV. The header row maps columns by name;
// latitude, longitude and timestamp are required, crime_type, severity and
// city are optional. Rows that fail to parse or validate are skipped with a
// warning rather than aborting the load.
func LoadCSV(r io.Reader) ([]model.Incident, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.Wrap(model.ErrValidation, "ingest: empty CSV")
	}
	if err != nil {
		return nil, eris.Wrapf(model.ErrValidation, "ingest: read header: %v", err)
	}

	cols := map[string]int{}
	for i, h := range header {
		if canonical, ok := columnAliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			if _, dup := cols[canonical]; !dup {
				cols[canonical] = i
			}
		}
	}
	for _, required := range []string{"latitude", "longitude", "timestamp"} {
		if _, ok := cols[required]; !ok {
			return nil, eris.Wrapf(model.ErrValidation, "ingest: CSV missing required column %q", required)
		}
	}

	log := zap.L().With(zap.String("component", "ingest.csv"))

	var incidents []model.Incident
	var skipped int
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(model.ErrValidation, "ingest: read row %d: %v", line, err)
		}

		in, err := parseRecord(record, cols)
		if err != nil {
			skipped++
			log.Warn("skipping malformed row", zap.Int("line", line), zap.Error(err))
			continue
		}
		incidents = append(incidents, in)
	}

	if skipped > 0 {
		log.Info("CSV load finished with skipped rows",
			zap.Int("loaded", len(incidents)),
			zap.Int("skipped", skipped),
		)
	}
	if len(incidents) == 0 {
		return nil, eris.Wrap(model.ErrValidation, "ingest: no valid rows in CSV")
	}
	return incidents, nil
}

func parseRecord(record []string, cols map[string]int) (model.Incident, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	lat, err := strconv.ParseFloat(field("latitude"), 64)
	if err != nil {
		return model.Incident{}, eris.Wrapf(model.ErrValidation, "ingest: bad latitude %q", field("latitude"))
	}
	lon, err := strconv.ParseFloat(field("longitude"), 64)
	if err != nil {
		return model.Incident{}, eris.Wrapf(model.ErrValidation, "ingest: bad longitude %q", field("longitude"))
	}
	ts, err := parseTime(field("timestamp"))
	if err != nil {
		return model.Incident{}, err
	}

	severity := model.MinSeverity
	if raw := field("severity"); raw != "" {
		severity, err = strconv.Atoi(raw)
		if err != nil {
			return model.Incident{}, eris.Wrapf(model.ErrValidation, "ingest: bad severity %q", raw)
		}
	}

	in := model.Incident{
		Latitude:  lat,
		Longitude: lon,
		Timestamp: ts,
		CrimeType: field("crime_type"),
		Severity:  severity,
		City:      field("city"),
	}
	if err := in.Validate(); err != nil {
		return model.Incident{}, err
	}
	return in, nil
}

func parseTime(raw string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, eris.Wrapf(model.ErrValidation, "ingest: bad timestamp %q", raw)
}
