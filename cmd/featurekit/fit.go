package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/featurekit/pkg/log"
	"github.com/YuminosukeSato/featurekit/tabular"
)

func newFitCmd(a *app) *cobra.Command {
	var (
		data        string
		target      string
		categorical []string
		numerical   []string
		scaling     string
		encoding    string
		imputation  string
		outliers    string
		selectK     int
		pca         int
		neighbors   int
		ref         modelRef
	)
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit a pipeline on a training set and save it",
		Example: `  featurekit fit --data train.csv --target churned --model churn.gob
  featurekit fit --data train.csv --target churned --select 10 --name churn --redis-addr localhost:6379`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := ref.check(); err != nil {
				return err
			}
			pc := &a.file.Pipeline
			flags := cmd.Flags()
			if flags.Changed("scaling") {
				pc.ScalingMethod = scaling
			}
			if flags.Changed("encoding") {
				pc.EncodingMethod = encoding
			}
			if flags.Changed("imputation") {
				pc.ImputationMethod = imputation
			}
			if flags.Changed("outliers") {
				pc.OutlierMethod = outliers
			}
			if flags.Changed("select") {
				pc.FeatureSelection = true
				pc.NFeatures = selectK
			}
			if flags.Changed("pca") {
				pc.PCAComponents = pca
			}
			if flags.Changed("knn-neighbors") {
				pc.KNNNeighbors = neighbors
			}
			cfg, err := a.file.PipelineConfig()
			if err != nil {
				return err
			}

			opts := a.file.FitOptions()
			if flags.Changed("target") {
				opts.Target = target
			}
			if flags.Changed("categorical") {
				opts.Categorical = categorical
			}
			if flags.Changed("numerical") {
				opts.Numerical = numerical
			}

			train, err := readFrame(cmd, data, columnKinds(opts.Numerical, opts.Categorical))
			if err != nil {
				return err
			}
			p, err := tabular.New(cfg, tabular.WithLogger(log.GetLoggerWithName("TabularPipeline")))
			if err != nil {
				return err
			}
			start := time.Now()
			if err := p.Fit(train, opts); err != nil {
				return err
			}
			if err := ref.save(cmd.Context(), a, p); err != nil {
				return err
			}

			schema, _ := p.Schema()
			a.logger.Info("pipeline saved",
				log.ModelNameKey, "TabularPipeline",
				log.EstimatorIDKey, ref.path+ref.name,
				log.SamplesKey, train.NRows(),
				log.DurationMsKey, time.Since(start).Milliseconds(),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "fitted %s on %d rows: %d numerical, %d categorical -> %d features\n",
				cfg, train.NRows(), len(schema.Numerical), len(schema.Categorical), len(schema.Output))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&data, "data", "", "training data (CSV, or JSON records with a .json extension)")
	f.StringVar(&target, "target", "", "target column")
	f.StringSliceVar(&categorical, "categorical", nil, "columns to treat as categorical")
	f.StringSliceVar(&numerical, "numerical", nil, "columns to treat as numerical")
	f.StringVar(&scaling, "scaling", "", "scaling method: standard, minmax, robust or none")
	f.StringVar(&encoding, "encoding", "", "encoding method: onehot, label or ordinal")
	f.StringVar(&imputation, "imputation", "", "imputation method: mean, median, mode or knn")
	f.StringVar(&outliers, "outliers", "", "outlier method: iqr, zscore or none")
	f.IntVar(&selectK, "select", 0, "keep the K most informative features (0 keeps half)")
	f.IntVar(&pca, "pca", 0, "number of principal components (0 disables PCA)")
	f.IntVar(&neighbors, "knn-neighbors", 0, "neighbours of the knn imputer")
	ref.addFlags(f)
	_ = cmd.MarkFlagRequired("data")
	return cmd
}
