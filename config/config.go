// Package config loads featurekit settings from YAML files.
//
// A file may set any subset of sections; absent keys keep their defaults.
//
//	pipeline:
//	  scaling_method: robust
//	  feature_selection: true
//	  n_features: 10
//	data:
//	  target: churned
//	  categorical: [zip_code]
//	store:
//	  redis_addr: localhost:6379
//	  ttl: 24h
package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/featurekit/pkg/errors"
	"github.com/YuminosukeSato/featurekit/tabular"
)

// File is the top-level configuration document.
type File struct {
	Pipeline Pipeline `mapstructure:"pipeline"`
	Data     Data     `mapstructure:"data"`
	Split    Split    `mapstructure:"split"`
	Store    Store    `mapstructure:"store"`
	Server   Server   `mapstructure:"server"`
	Log      Log      `mapstructure:"log"`
}

// Pipeline mirrors tabular.Config.
type Pipeline struct {
	ScalingMethod    string `mapstructure:"scaling_method"`
	EncodingMethod   string `mapstructure:"encoding_method"`
	ImputationMethod string `mapstructure:"imputation_method"`
	OutlierMethod    string `mapstructure:"outlier_method"`
	FeatureSelection bool   `mapstructure:"feature_selection"`
	NFeatures        int    `mapstructure:"n_features"`
	PCAComponents    int    `mapstructure:"pca_components"`
	KNNNeighbors     int    `mapstructure:"knn_neighbors"`
}

// Data names the target and, optionally, the feature columns.
type Data struct {
	Target      string   `mapstructure:"target"`
	Categorical []string `mapstructure:"categorical"`
	Numerical   []string `mapstructure:"numerical"`
}

// Split configures TrainTestSplit.
type Split struct {
	TestSize float64 `mapstructure:"test_size"`
	Stratify bool    `mapstructure:"stratify"`
	Seed     uint64  `mapstructure:"seed"`
}

// Store selects where named pipelines live. RedisAddr wins over Dir.
type Store struct {
	Dir           string        `mapstructure:"dir"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	Prefix        string        `mapstructure:"prefix"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// Server configures the HTTP service.
type Server struct {
	Addr string `mapstructure:"addr"`
}

// Log configures the logging provider.
type Log struct {
	Level string `mapstructure:"level"`
}

// Default returns the configuration used when no file is given.
func Default() File {
	cfg := tabular.DefaultConfig()
	split := tabular.DefaultSplitOptions()
	return File{
		Pipeline: Pipeline{
			ScalingMethod:    string(cfg.ScalingMethod),
			EncodingMethod:   string(cfg.EncodingMethod),
			ImputationMethod: string(cfg.ImputationMethod),
			OutlierMethod:    string(cfg.OutlierMethod),
			KNNNeighbors:     cfg.KNNNeighbors,
		},
		Split: Split{
			TestSize: split.TestSize,
			Stratify: split.Stratify,
			Seed:     split.Seed,
		},
		Store:  Store{Dir: ".featurekit"},
		Server: Server{Addr: ":8080"},
		Log:    Log{Level: "info"},
	}
}

// Parse decodes YAML from r over Default. Unknown keys are rejected.
func Parse(r io.Reader) (File, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return File{}, errors.Wrap(err, "failed to read config")
	}
	f := Default()
	if len(bytes.TrimSpace(body)) == 0 {
		return f, nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal(body, &raw); err != nil {
		return File{}, errors.Wrap(err, "failed to parse config yaml")
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &f,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return File{}, errors.Wrap(err, "failed to create config decoder")
	}
	if err := dec.Decode(raw); err != nil {
		return File{}, errors.Wrap(err, "invalid config")
	}
	if _, err := f.PipelineConfig(); err != nil {
		return File{}, err
	}
	return f, nil
}

// Load reads and parses the file at path.
func Load(path string) (File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return File{}, errors.Wrapf(err, "failed to open config %s", path)
	}
	defer fh.Close()
	return Parse(fh)
}

// PipelineConfig converts the pipeline section into a validated
// tabular.Config.
func (f File) PipelineConfig() (tabular.Config, error) {
	p := f.Pipeline
	opts := []tabular.Option{
		tabular.WithScaling(tabular.ScalingMethod(p.ScalingMethod)),
		tabular.WithEncoding(tabular.EncodingMethod(p.EncodingMethod)),
		tabular.WithImputation(tabular.ImputationMethod(p.ImputationMethod)),
		tabular.WithOutliers(tabular.OutlierMethod(p.OutlierMethod)),
		tabular.WithPCA(p.PCAComponents),
		tabular.WithKNNNeighbors(p.KNNNeighbors),
	}
	if p.FeatureSelection {
		opts = append(opts, tabular.WithFeatureSelection(p.NFeatures))
	}
	return tabular.NewConfig(opts...)
}

// FitOptions converts the data section.
func (f File) FitOptions() tabular.FitOptions {
	return tabular.FitOptions{
		Target:      f.Data.Target,
		Categorical: f.Data.Categorical,
		Numerical:   f.Data.Numerical,
	}
}

// SplitOptions converts the split section.
func (f File) SplitOptions() tabular.SplitOptions {
	return tabular.SplitOptions{
		TestSize: f.Split.TestSize,
		Stratify: f.Split.Stratify,
		Seed:     f.Split.Seed,
	}
}
