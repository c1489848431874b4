// Package store persists incidents and clustering run output. Two backends
// are provided: SQLite for local workflows and Postgres for shared
// deployments.
package store

import (
	"context"
	"time"

	"github.com/geocrime/geocrime-cli/internal/model"
)

// IncidentFilter specifies criteria for listing incidents.
type IncidentFilter struct {
	City  string    `json:"city,omitempty"`
	Since time.Time `json:"since,omitempty"`
	Until time.Time `json:"until,omitempty"`
	Limit int       `json:"limit,omitempty"`
}

// ClusterRun records one persisted clustering pass over the incident table.
type ClusterRun struct {
	ID        string    `json:"id"`
	Algorithm string    `json:"algorithm"`
	CreatedAt time.Time `json:"created_at"`
}

// Store defines the persistence interface for incidents and cluster labels.
type Store interface {
	// Incidents
	SaveIncidents(ctx context.Context, incidents []model.Incident) (int, error)
	ListIncidents(ctx context.Context, filter IncidentFilter) ([]model.Incident, error)
	CountIncidents(ctx context.Context) (int, error)

	// Cluster assignments. SaveAssignments records a labeled run and returns
	// its id; ListAssignments returns an empty slice when the run is unknown
	// so downstream consumers can degrade instead of failing.
	SaveAssignments(ctx context.Context, algorithm string, assignments []model.ClusterAssignment) (string, error)
	ListAssignments(ctx context.Context, runID string) ([]model.ClusterAssignment, error)
	ListRuns(ctx context.Context) ([]ClusterRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
