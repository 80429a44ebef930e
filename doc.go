// Package featurekit turns raw tabular data into model-ready features for
// backend services and batch jobs.
//
// A pipeline learns imputation, scaling and categorical vocabularies from a
// training set, optionally keeps the most informative features and projects
// them onto principal components, and then applies exactly the same
// transformation to every later batch. Fitted pipelines are plain values:
// they can be saved, shipped to another process and loaded again.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "log"
//	    "os"
//
//	    "github.com/YuminosukeSato/featurekit/dataio"
//	    "github.com/YuminosukeSato/featurekit/tabular"
//	)
//
//	func main() {
//	    train, err := dataio.ReadCSVFile("train.csv")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    cfg, err := tabular.NewConfig(
//	        tabular.WithScaling(tabular.ScalingRobust),
//	        tabular.WithFeatureSelection(10),
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    p, err := tabular.New(cfg)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := p.Fit(train, tabular.FitOptions{Target: "churned"}); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    features, err := p.Transform(train)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    _ = dataio.WriteCSV(os.Stdout, features)
//	}
//
// # Packages
//
//   - frame: Columnar dataset of numerical and categorical columns
//   - preprocessing: Imputers, scalers, encoders, outlier handling, PCA
//   - featureselection: Mutual-information scoring and top-K selection
//   - tabular: The pipeline, persistence, export, splitting and drift checks
//   - dataio: CSV (via gota) and JSON record IO
//   - store: Named pipelines in a directory or in Redis
//   - stream: Ordered worker-pool transforms over row batches
//   - monitor: Online ADWIN drift windows for served traffic
//   - server: HTTP service over a store
//   - report: Markdown tables and importance charts
//   - config: YAML configuration
//   - core/model: Estimator state and gob persistence
//   - core/parallel: Row-parallel helpers
//   - pkg/errors, pkg/log: Typed errors and structured logging
//
// The featurekit command (cmd/featurekit) wraps all of the above.
package featurekit

// Version is the featurekit release.
const Version = "0.3.0"
