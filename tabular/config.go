package tabular

import (
	"fmt"

	"github.com/YuminosukeSato/featurekit/pkg/errors"
	"github.com/YuminosukeSato/featurekit/preprocessing"
)

type (
	// ScalingMethod selects the numerical scaler.
	ScalingMethod = preprocessing.ScalingMethod
	// EncodingMethod selects the categorical encoder.
	EncodingMethod = preprocessing.EncodingMethod
	// ImputationMethod selects the numerical imputer.
	ImputationMethod = preprocessing.ImputationMethod
	// OutlierMethod selects the outlier policy.
	OutlierMethod = preprocessing.OutlierMethod
)

const (
	ScalingStandard = preprocessing.ScalingStandard
	ScalingMinMax   = preprocessing.ScalingMinMax
	ScalingRobust   = preprocessing.ScalingRobust
	ScalingNone     = preprocessing.ScalingNone

	EncodeOneHot  = preprocessing.EncodeOneHot
	EncodeLabel   = preprocessing.EncodeLabel
	EncodeOrdinal = preprocessing.EncodeOrdinal

	ImputeMean   = preprocessing.ImputeMean
	ImputeMedian = preprocessing.ImputeMedian
	ImputeMode   = preprocessing.ImputeMode
	ImputeKNN    = preprocessing.ImputeKNN

	OutlierIQR    = preprocessing.OutlierIQR
	OutlierZScore = preprocessing.OutlierZScore
	OutlierNone   = preprocessing.OutlierNone
)

// Config describes which transformation runs at each stage. It is a value:
// build it with NewConfig and pass it to New.
type Config struct {
	ScalingMethod    ScalingMethod    `json:"scaling_method" yaml:"scaling_method"`
	EncodingMethod   EncodingMethod   `json:"encoding_method" yaml:"encoding_method"`
	ImputationMethod ImputationMethod `json:"imputation_method" yaml:"imputation_method"`
	OutlierMethod    OutlierMethod    `json:"outlier_method" yaml:"outlier_method"`

	// FeatureSelection keeps the NFeatures columns with the highest mutual
	// information against the target. Requires a target at fit time.
	FeatureSelection bool `json:"feature_selection" yaml:"feature_selection"`
	// NFeatures is the number of selected features; 0 keeps half.
	NFeatures int `json:"n_features" yaml:"n_features"`

	// PCAComponents projects the features onto that many principal
	// components; 0 disables PCA.
	PCAComponents int `json:"pca_components" yaml:"pca_components"`

	// KNNNeighbors is the neighbour count of the knn imputer.
	KNNNeighbors int `json:"knn_neighbors" yaml:"knn_neighbors"`
}

// DefaultConfig returns standard scaling, one-hot encoding, mean imputation
// and IQR clipping, with selection and PCA disabled.
func DefaultConfig() Config {
	return Config{
		ScalingMethod:    ScalingStandard,
		EncodingMethod:   EncodeOneHot,
		ImputationMethod: ImputeMean,
		OutlierMethod:    OutlierIQR,
		KNNNeighbors:     preprocessing.DefaultNeighbors,
	}
}

// Validate checks every field and returns the first ConfigurationError.
func (c Config) Validate() error {
	if !c.ScalingMethod.Valid() {
		return errors.NewConfigurationError("scaling_method", c.ScalingMethod, preprocessing.ScalingMethods...)
	}
	if !c.EncodingMethod.Valid() {
		return errors.NewConfigurationError("encoding_method", c.EncodingMethod, preprocessing.EncodingMethods...)
	}
	if !c.ImputationMethod.Valid() {
		return errors.NewConfigurationError("imputation_method", c.ImputationMethod, preprocessing.ImputationMethods...)
	}
	if !c.OutlierMethod.Valid() {
		return errors.NewConfigurationError("outlier_method", c.OutlierMethod, preprocessing.OutlierMethods...)
	}
	if c.NFeatures < 0 {
		return errors.NewConfigurationErrorf("n_features", c.NFeatures, "must not be negative")
	}
	if c.PCAComponents < 0 {
		return errors.NewConfigurationErrorf("pca_components", c.PCAComponents, "must not be negative")
	}
	if c.KNNNeighbors <= 0 {
		return errors.NewConfigurationErrorf("knn_neighbors", c.KNNNeighbors, "must be positive")
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("Config(scaling=%s, encoding=%s, imputation=%s, outliers=%s, selection=%t, n_features=%d, pca=%d, knn=%d)",
		c.ScalingMethod, c.EncodingMethod, c.ImputationMethod, c.OutlierMethod,
		c.FeatureSelection, c.NFeatures, c.PCAComponents, c.KNNNeighbors)
}

// Option configures a Config.
type Option func(*Config)

// WithScaling sets the scaling method.
func WithScaling(m ScalingMethod) Option {
	return func(c *Config) { c.ScalingMethod = m }
}

// WithEncoding sets the categorical encoding method.
func WithEncoding(m EncodingMethod) Option {
	return func(c *Config) { c.EncodingMethod = m }
}

// WithImputation sets the numerical imputation method.
func WithImputation(m ImputationMethod) Option {
	return func(c *Config) { c.ImputationMethod = m }
}

// WithOutliers sets the outlier policy.
func WithOutliers(m OutlierMethod) Option {
	return func(c *Config) { c.OutlierMethod = m }
}

// WithFeatureSelection enables mutual-information selection of n features
// (0 keeps half).
func WithFeatureSelection(n int) Option {
	return func(c *Config) {
		c.FeatureSelection = true
		c.NFeatures = n
	}
}

// WithPCA enables projection onto n principal components.
func WithPCA(n int) Option {
	return func(c *Config) { c.PCAComponents = n }
}

// WithKNNNeighbors sets the knn imputer's neighbour count.
func WithKNNNeighbors(k int) Option {
	return func(c *Config) { c.KNNNeighbors = k }
}

// NewConfig applies opts over DefaultConfig and validates the result.
func NewConfig(opts ...Option) (Config, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
