package tabular

import (
	"encoding/gob"
	"io"
	"time"

	"github.com/YuminosukeSato/featurekit/core/model"
	"github.com/YuminosukeSato/featurekit/pkg/errors"
	"github.com/YuminosukeSato/featurekit/pkg/log"
	"github.com/YuminosukeSato/featurekit/preprocessing"
)

// SnapshotVersion is the persisted format version.
const SnapshotVersion = 1

func init() {
	gob.Register(&preprocessing.SimpleImputer{})
	gob.Register(&preprocessing.KNNImputer{})
	gob.Register(&preprocessing.StandardScaler{})
	gob.Register(&preprocessing.MinMaxScaler{})
	gob.Register(&preprocessing.RobustScaler{})
}

// Snapshot is the persisted form of a pipeline.
type Snapshot struct {
	Version int
	Config  Config
	Fitted  bool
	State   *FittedState
}

func (p *Pipeline) snapshot() *Snapshot {
	s, ok := p.current().fittedState()
	return &Snapshot{Version: SnapshotVersion, Config: p.cfg, Fitted: ok, State: s}
}

// Save writes the pipeline, fitted or not, to w.
func (p *Pipeline) Save(w io.Writer) (err error) {
	start := time.Now()
	defer func() { p.observe(log.OperationSave, start, 0, err) }()
	return model.SaveModelToWriter(p.snapshot(), w)
}

// SaveFile writes the pipeline to path. The file is closed on every path.
func (p *Pipeline) SaveFile(path string) (err error) {
	start := time.Now()
	defer func() { p.observe(log.OperationSave, start, 0, err) }()
	return model.SaveModel(p.snapshot(), path)
}

// Load reads a pipeline written by Save.
func Load(r io.Reader, opts ...PipelineOption) (*Pipeline, error) {
	var snap Snapshot
	if err := model.LoadModelFromReader(&snap, r); err != nil {
		return nil, err
	}
	return fromSnapshot(&snap, opts...)
}

// LoadFile reads a pipeline written by SaveFile.
func LoadFile(path string, opts ...PipelineOption) (*Pipeline, error) {
	var snap Snapshot
	if err := model.LoadModel(&snap, path); err != nil {
		return nil, err
	}
	return fromSnapshot(&snap, opts...)
}

func fromSnapshot(snap *Snapshot, opts ...PipelineOption) (*Pipeline, error) {
	if snap.Version != SnapshotVersion {
		return nil, errors.NewValueError("tabular.Load", "unsupported snapshot version")
	}
	p, err := New(snap.Config, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "invalid persisted configuration")
	}
	if !snap.Fitted {
		return p, nil
	}
	if snap.State == nil {
		return nil, errors.NewValueError("tabular.Load", "snapshot marked fitted without state")
	}
	if err := snap.State.validate(); err != nil {
		return nil, err
	}
	p.state = fitted{s: snap.State}
	return p, nil
}

// validate checks the decoded state is internally consistent.
func (s *FittedState) validate() error {
	if len(s.Numerical) > 0 && (s.Imputer == nil || !s.Imputer.IsFitted()) {
		return errors.NewNotFittedError("Imputer", "Load")
	}
	if s.Scaler != nil && !s.Scaler.IsFitted() {
		return errors.NewNotFittedError("Scaler", "Load")
	}
	if len(s.Vocabularies) != len(s.Categorical) {
		return errors.NewDimensionError("tabular.Load", len(s.Categorical), len(s.Vocabularies), 0)
	}
	if s.Selector != nil && !s.Selector.IsFitted() {
		return errors.NewNotFittedError("Selector", "Load")
	}
	if s.PCA != nil && !s.PCA.IsFitted() {
		return errors.NewNotFittedError("PCA", "Load")
	}
	return nil
}
