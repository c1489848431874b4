package anomaly

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/geocrime/geocrime-cli/internal/model"
)

// envelope is the on-disk detector format. Persistence exists for reuse of a
// fitted forest, but correctness never depends on it: every CLI and API path
// re-fits per batch.
type envelope struct {
	Config    Config  `json:"config"`
	Trees     []*node `json:"trees,omitempty"`
	FitSample int     `json:"fit_sample"`
}

// Save writes the detector, including any fitted forest, to path.
func (d *Detector) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(model.ErrPersistence, "anomaly: create model dir: %v", err)
	}
	data, err := json.Marshal(envelope{Config: d.cfg, Trees: d.trees, FitSample: d.fitSample})
	if err != nil {
		return eris.Wrap(err, "anomaly: marshal detector")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(model.ErrPersistence, "anomaly: write model file: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return eris.Wrapf(model.ErrPersistence, "anomaly: rename model file: %v", err)
	}
	return nil
}

// Load restores a detector from path.
func Load(path string) (*Detector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "anomaly: read model %s: %v", path, err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "anomaly: decode model %s: %v", path, err)
	}
	d, err := New(env.Config)
	if err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "anomaly: restore detector: %v", err)
	}
	d.trees = env.Trees
	d.fitSample = env.FitSample
	return d, nil
}
