package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geocrime/geocrime-cli/internal/model"
)

// ShapefileOptions maps attribute fields to incident columns. Field names are
// matched case-insensitively; empty names fall back to the given defaults.
type ShapefileOptions struct {
	TypeField     string
	SeverityField string
	DateField     string
	CityField     string

	DefaultType     string
	DefaultSeverity int
	DefaultCity     string
}

// LoadShapefile imports point records from an ESRI shapefile. Non-point
// shapes and rows with unparseable attributes are skipped with a warning.
func LoadShapefile(path string, opts ShapefileOptions) ([]model.Incident, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "ingest: open shapefile: %v", err)
	}
	defer func() { _ = reader.Close() }()

	if opts.DefaultSeverity == 0 {
		opts.DefaultSeverity = model.MinSeverity
	}

	typeIdx := fieldIndex(reader, opts.TypeField)
	sevIdx := fieldIndex(reader, opts.SeverityField)
	dateIdx := fieldIndex(reader, opts.DateField)
	cityIdx := fieldIndex(reader, opts.CityField)

	log := zap.L().With(zap.String("component", "ingest.shapefile"))

	var incidents []model.Incident
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		pt, ok := shape.(*shp.Point)
		if !ok {
			skipped++
			continue
		}

		in := model.Incident{
			Latitude:  pt.Y,
			Longitude: pt.X,
			CrimeType: opts.DefaultType,
			Severity:  opts.DefaultSeverity,
			City:      opts.DefaultCity,
			Timestamp: time.Now().UTC(),
		}
		if typeIdx >= 0 {
			if v := strings.TrimSpace(reader.Attribute(typeIdx)); v != "" {
				in.CrimeType = v
			}
		}
		if cityIdx >= 0 {
			if v := strings.TrimSpace(reader.Attribute(cityIdx)); v != "" {
				in.City = v
			}
		}
		if sevIdx >= 0 {
			if v := strings.TrimSpace(reader.Attribute(sevIdx)); v != "" {
				sev, err := strconv.Atoi(v)
				if err != nil {
					skipped++
					log.Warn("skipping record with bad severity", zap.String("value", v))
					continue
				}
				in.Severity = sev
			}
		}
		if dateIdx >= 0 {
			if v := strings.TrimSpace(reader.Attribute(dateIdx)); v != "" {
				ts, err := parseTime(v)
				if err != nil {
					skipped++
					log.Warn("skipping record with bad date", zap.String("value", v))
					continue
				}
				in.Timestamp = ts
			}
		}

		if err := in.Validate(); err != nil {
			skipped++
			log.Warn("skipping invalid record", zap.Error(err))
			continue
		}
		incidents = append(incidents, in)
	}

	if skipped > 0 {
		log.Info("shapefile load finished with skipped records",
			zap.Int("loaded", len(incidents)),
			zap.Int("skipped", skipped),
		)
	}
	if len(incidents) == 0 {
		return nil, eris.Wrap(model.ErrValidation, "ingest: no point records in shapefile")
	}
	return incidents, nil
}

func fieldIndex(reader *shp.Reader, name string) int {
	if name == "" {
		return -1
	}
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
