// Package model defines the core data types shared across the risk engine.
package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// Severity bounds for incident records.
const (
	MinSeverity = 1
	MaxSeverity = 5
)

// Incident is a single historical crime record. Records are immutable once
// ingested; all engine components consume them read-only.
type Incident struct {
	ID        int64     `json:"id,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
	CrimeType string    `json:"crime_type"`
	Severity  int       `json:"severity"`
	City      string    `json:"city,omitempty"`
}

// Validate checks coordinate ranges and the severity scale.
func (in Incident) Validate() error {
	if in.Latitude < -90 || in.Latitude > 90 {
		return eris.Wrapf(ErrValidation, "incident: latitude %.4f out of range [-90, 90]", in.Latitude)
	}
	if in.Longitude < -180 || in.Longitude > 180 {
		return eris.Wrapf(ErrValidation, "incident: longitude %.4f out of range [-180, 180]", in.Longitude)
	}
	if in.Severity < MinSeverity || in.Severity > MaxSeverity {
		return eris.Wrapf(ErrValidation, "incident: severity %d out of range [%d, %d]", in.Severity, MinSeverity, MaxSeverity)
	}
	return nil
}

// ClusterAssignment attaches a hotspot label to an incident row. Label -1
// means noise. Assignments are recomputed on every clustering run; only label
// equality and -1 carry meaning, not the numbering itself.
type ClusterAssignment struct {
	IncidentID int64 `json:"incident_id"`
	Label      int   `json:"cluster_label"`
}

// NoiseLabel is the cluster label for points that belong to no hotspot.
const NoiseLabel = -1
