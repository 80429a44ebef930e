// Package log defines standard attribute keys for feature-engineering operations.
//
// Keys follow a hierarchical naming convention ("model.name", "data.samples")
// so log pipelines can filter on them.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model or transformer.
	// Examples: "TabularPipeline", "StandardScaler", "KNNImputer"
	ModelNameKey = "model.name"

	// EstimatorIDKey identifies a specific pipeline instance or stored artifact.
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies the package performing the operation.
	ComponentKey = "ml.component"

	// StageKey identifies a pipeline stage ("impute", "outliers", "encode", ...).
	StageKey = "ml.stage"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of rows in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of feature columns in the dataset.
	FeaturesKey = "data.features"

	// ColumnKey names a single column.
	ColumnKey = "data.column"

	// NumericalColumnsKey lists the frozen numerical columns.
	NumericalColumnsKey = "data.numerical_columns"

	// CategoricalColumnsKey lists the frozen categorical columns.
	CategoricalColumnsKey = "data.categorical_columns"

	// TargetKey names the target column.
	TargetKey = "data.target"
)

// Performance
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)

// Error Context
const (
	// ErrorKey carries the error value itself.
	ErrorKey = "error"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"
)

// Configuration
const (
	// HyperParamsKey contains the pipeline configuration as a structured object.
	HyperParamsKey = "model.hyperparams"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationImportance   = "feature_importance"
	OperationExport       = "export"
	OperationSave         = "save"
	OperationLoad         = "load"
	OperationSplit        = "split"
	OperationDrift        = "drift"
)
