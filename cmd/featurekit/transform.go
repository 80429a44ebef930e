package main

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/featurekit/frame"
	"github.com/YuminosukeSato/featurekit/stream"
)

func newTransformCmd(a *app) *cobra.Command {
	var (
		data      string
		out       string
		format    string
		batchSize int
		workers   int
		ref       modelRef
	)
	cmd := &cobra.Command{
		Use:     "transform",
		Short:   "Apply a fitted pipeline to a dataset",
		Example: `  featurekit transform --model churn.gob --data batch.csv --out features.csv`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := ref.load(cmd.Context(), a)
			if err != nil {
				return err
			}
			in, err := readFrame(cmd, data, schemaKinds(p))
			if err != nil {
				return err
			}
			var features *frame.Frame
			if batchSize > 0 {
				proc := stream.NewProcessor(stream.WithWorkers(workers))
				features, err = proc.TransformChunked(cmd.Context(), p, in, batchSize)
				m := proc.Metrics()
				a.logger.Info("batches transformed",
					"batches", m.Batches,
					"rows", m.Rows,
					"rows_per_second", m.RowsPerSecond(),
				)
			} else {
				features, err = p.Transform(in)
			}
			if err != nil {
				return err
			}
			return writeOutput(cmd, out, format, features)
		},
	}
	f := cmd.Flags()
	f.StringVar(&data, "data", "", "input data; - reads CSV from stdin")
	f.StringVar(&out, "out", "-", "output file; - writes to stdout")
	f.StringVar(&format, "format", "", "output format: csv or json (default from --out)")
	f.IntVar(&batchSize, "batch-size", 0, "transform each batch of this many rows independently (0 transforms the whole input)")
	f.IntVar(&workers, "workers", 0, "concurrent batches (0 uses one per CPU)")
	ref.addFlags(f)
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func newVertexCmd(a *app) *cobra.Command {
	var (
		data   string
		target string
		out    string
		ref    modelRef
	)
	cmd := &cobra.Command{
		Use:     "vertex",
		Short:   "Export transformed rows as a Vertex AI batch payload",
		Example: `  featurekit vertex --model churn.gob --data batch.csv --target churned --out payload.json`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := ref.load(cmd.Context(), a)
			if err != nil {
				return err
			}
			in, err := readFrame(cmd, data, schemaKinds(p))
			if err != nil {
				return err
			}
			payload, err := p.ToVertexAIFormat(in, target)
			if err != nil {
				return err
			}
			return writeJSONOutput(cmd, out, payload)
		},
	}
	f := cmd.Flags()
	f.StringVar(&data, "data", "", "input data")
	f.StringVar(&target, "target", "", "column exported as the instance label")
	f.StringVar(&out, "out", "-", "output file; - writes to stdout")
	ref.addFlags(f)
	_ = cmd.MarkFlagRequired("data")
	return cmd
}
