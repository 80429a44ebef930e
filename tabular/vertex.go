package tabular

import (
	"math"
	"time"

	"github.com/YuminosukeSato/featurekit/frame"
	"github.com/YuminosukeSato/featurekit/pkg/errors"
	"github.com/YuminosukeSato/featurekit/pkg/log"
)

// VertexLabelKey is the instance key the target value is exported under.
const VertexLabelKey = "label"

// VertexAIPayload is the batch request body accepted by Vertex AI:
// one object per row in "instances".
type VertexAIPayload struct {
	Instances []map[string]any `json:"instances"`
}

// ToVertexAIFormat transforms f and emits one instance per row. When target
// names a column of f, its raw value is exported as "label" and removed from
// the features. Missing values become JSON null.
func (p *Pipeline) ToVertexAIFormat(f *frame.Frame, target string) (payload *VertexAIPayload, err error) {
	start := time.Now()
	defer func() { p.observe(log.OperationExport, start, rowsOf(f), err) }()
	defer errors.Recover(&err, "TabularPipeline.ToVertexAIFormat")

	s, err := p.fittedState("ToVertexAIFormat")
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errors.NewValidationError("dataset", "must not be nil", nil)
	}
	out, err := transformWith(p.cfg, s, f)
	if err != nil {
		return nil, err
	}

	var label *frame.Column
	if target != "" {
		out = out.Drop(target)
		if c, ok := f.Column(target); ok {
			label = c.Renamed(VertexLabelKey)
		}
	}

	cols := out.Columns()
	if label != nil {
		// Last, so the label wins over a feature of the same name.
		cols = append(cols, label)
	}
	instances := make([]map[string]any, out.NRows())
	for i := range instances {
		inst := make(map[string]any, len(cols))
		for _, c := range cols {
			inst[c.Name] = jsonValue(c, i)
		}
		instances[i] = inst
	}
	return &VertexAIPayload{Instances: instances}, nil
}

func jsonValue(c *frame.Column, i int) any {
	if c.Kind == frame.Numerical {
		v := c.Floats[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	}
	return c.Value(i)
}
