package classifier

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geocrime/geocrime-cli/internal/model"
)

// envelope is the on-disk forest format. The feature order travels with the
// trees so a loaded model rejects matrices shaped for a different contract.
type envelope struct {
	Config   Config      `json:"config"`
	Features []string    `json:"features"`
	Trees    []*treeNode `json:"trees"`
}

// Save writes the trained forest to path atomically.
func (f *Forest) Save(path string) error {
	if !f.Trained() {
		return eris.Wrap(model.ErrConfiguration, "classifier: save before train")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(model.ErrPersistence, "classifier: create model dir: %v", err)
	}

	data, err := json.Marshal(envelope{Config: f.cfg, Features: FeatureOrder, Trees: f.trees})
	if err != nil {
		return eris.Wrap(err, "classifier: marshal forest")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(model.ErrPersistence, "classifier: write model file: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return eris.Wrapf(model.ErrPersistence, "classifier: rename model file: %v", err)
	}

	zap.L().Info("classifier: model saved", zap.String("path", path), zap.Int("trees", len(f.trees)))
	return nil
}

// Load restores a trained forest from path.
func Load(path string) (*Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "classifier: read model %s: %v", path, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "classifier: decode model %s: %v", path, err)
	}
	if len(env.Features) != len(FeatureOrder) {
		return nil, eris.Wrapf(model.ErrPersistence, "classifier: model expects %d features, this build uses %d", len(env.Features), len(FeatureOrder))
	}

	f, err := New(env.Config)
	if err != nil {
		return nil, eris.Wrapf(model.ErrPersistence, "classifier: restore forest: %v", err)
	}
	f.trees = env.Trees
	f.features = len(env.Features)

	zap.L().Info("classifier: model loaded", zap.String("path", path), zap.Int("trees", len(f.trees)))
	return f, nil
}
