package cluster

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geocrime/geocrime-cli/internal/model"
)

// envelope is the on-disk model format. The algorithm tag, its parameters and
// the fitted state travel together so a load can never mix state from one
// algorithm with the identity of another.
type envelope struct {
	Algorithm string             `json:"algorithm"`
	Params    map[string]float64 `json:"parameters"`
	Centroids []Centroid         `json:"centroids,omitempty"`
	Fitted    bool               `json:"fitted"`
}

// Save writes the model to path as a single JSON blob. The write goes through
// a temp file and rename so concurrent readers never observe a partial file.
// Concurrent writers to the same path must be serialized by the caller.
func (m *Model) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(model.ErrPersistence, "cluster: create model dir: %v", err)
	}

	data, err := json.MarshalIndent(envelope{
		Algorithm: m.Algorithm,
		Params:    m.Params,
		Centroids: m.centroids,
		Fitted:    m.fitted,
	}, "", "  ")
	if err != nil {
		return eris.Wrap(err, "cluster: marshal model")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(model.ErrPersistence, "cluster: write model file: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return eris.Wrapf(model.ErrPersistence, "cluster: rename model file: %v", err)
	}

	zap.L().Info("cluster: model saved",
		zap.String("path", path),
		zap.String("algorithm", m.Algorithm),
	)
	return nil
}

// Load restores a model from path, reconstructing the implementation named by
// the stored algorithm tag together with its parameters and fitted state.
// Missing or corrupt files fail with a persistence error; callers may treat
// that as recoverable and fall back to an unfitted model.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "cluster: read model %s: %v", path, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "cluster: decode model %s: %v", path, err)
	}

	m, err := New(env.Algorithm, env.Params)
	if err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "cluster: restore model: %v", err)
	}
	m.centroids = env.Centroids
	m.fitted = env.Fitted

	zap.L().Info("cluster: model loaded",
		zap.String("path", path),
		zap.String("algorithm", m.Algorithm),
		zap.Int("centroids", len(m.centroids)),
	)
	return m, nil
}
