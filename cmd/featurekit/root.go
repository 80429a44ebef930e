package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/YuminosukeSato/featurekit/config"
	"github.com/YuminosukeSato/featurekit/dataio"
	"github.com/YuminosukeSato/featurekit/frame"
	"github.com/YuminosukeSato/featurekit/pkg/errors"
	"github.com/YuminosukeSato/featurekit/pkg/log"
	"github.com/YuminosukeSato/featurekit/store"
	"github.com/YuminosukeSato/featurekit/tabular"
)

// app holds the state shared by all subcommands.
type app struct {
	configPath string
	logLevel   string
	storeDir   string
	redisAddr  string

	file   config.File
	logger log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{file: config.Default()}
	root := &cobra.Command{
		Use:          "featurekit",
		Short:        "Tabular feature engineering pipelines",
		Long:         `featurekit fits preprocessing pipelines on tabular data, applies them to new batches and serves them over HTTP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.StringVar(&a.storeDir, "store-dir", "", "directory of named pipelines")
	pf.StringVar(&a.redisAddr, "redis-addr", "", "Redis address of named pipelines; overrides --store-dir")

	root.AddCommand(
		newFitCmd(a),
		newTransformCmd(a),
		newVertexCmd(a),
		newImportanceCmd(a),
		newDriftCmd(a),
		newSplitCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	f := config.Default()
	if a.configPath != "" {
		var err error
		if f, err = config.Load(a.configPath); err != nil {
			return err
		}
	}
	if a.logLevel != "" {
		f.Log.Level = a.logLevel
	}
	if a.storeDir != "" {
		f.Store.Dir = a.storeDir
	}
	if a.redisAddr != "" {
		f.Store.RedisAddr = a.redisAddr
	}

	level, err := log.ParseLevel(f.Log.Level)
	if err != nil {
		return err
	}
	log.SetProvider(log.NewZerologProviderWithWriter(cmd.ErrOrStderr(), level))
	a.file = f
	a.logger = log.GetLoggerWithName("cli").With("command", cmd.Name())
	return nil
}

// openStore returns the configured named-pipeline store.
func (a *app) openStore() (store.Store, func(), error) {
	s := a.file.Store
	if s.RedisAddr != "" {
		var opts []store.RedisOption
		if s.Prefix != "" {
			opts = append(opts, store.WithPrefix(s.Prefix))
		}
		if s.TTL > 0 {
			opts = append(opts, store.WithTTL(s.TTL))
		}
		rs := store.NewRedisStore(s.RedisAddr, s.RedisPassword, s.RedisDB, opts...)
		return rs, func() { _ = rs.Close() }, nil
	}
	fs, err := store.NewFileStore(s.Dir)
	if err != nil {
		return nil, nil, err
	}
	return fs, func() {}, nil
}

// modelRef locates a pipeline either as a file or as a named store entry.
type modelRef struct {
	path string
	name string
}

func (m *modelRef) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&m.path, "model", "", "pipeline file")
	fs.StringVar(&m.name, "name", "", "pipeline name in the store")
}

func (m *modelRef) check() error {
	if (m.path == "") == (m.name == "") {
		return errors.NewValidationError("model", "exactly one of --model and --name is required", m.path+m.name)
	}
	return nil
}

func (m *modelRef) load(ctx context.Context, a *app) (*tabular.Pipeline, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	opts := []tabular.PipelineOption{tabular.WithLogger(log.GetLoggerWithName("TabularPipeline"))}
	if m.path != "" {
		return tabular.LoadFile(m.path, opts...)
	}
	s, closeStore, err := a.openStore()
	if err != nil {
		return nil, err
	}
	defer closeStore()
	return store.LoadPipeline(ctx, s, m.name, opts...)
}

func (m *modelRef) save(ctx context.Context, a *app, p *tabular.Pipeline) error {
	if err := m.check(); err != nil {
		return err
	}
	if m.path != "" {
		return p.SaveFile(m.path)
	}
	s, closeStore, err := a.openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	return store.SavePipeline(ctx, s, m.name, p)
}

// readFrame reads CSV, or JSON records when path ends in .json. "-" is stdin.
// Columns named in kinds are read as that kind; the rest are detected.
func readFrame(cmd *cobra.Command, path string, kinds map[string]frame.Kind) (*frame.Frame, error) {
	if path == "" {
		return nil, errors.NewValidationError("data", "an input file is required", path)
	}
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		fh, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open %s", path)
		}
		defer fh.Close()
		r = fh
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return dataio.ReadJSONRecords(r, kinds)
	}
	return dataio.ReadCSVKinds(r, kinds)
}

// writeOutput writes f as CSV or JSON records to path, or to stdout for "-".
func writeOutput(cmd *cobra.Command, path, format string, f *frame.Frame) error {
	if format == "" {
		format = "csv"
		if strings.EqualFold(filepath.Ext(path), ".json") {
			format = "json"
		}
	}
	var write func(io.Writer, *frame.Frame) error
	switch format {
	case "csv":
		write = dataio.WriteCSV
	case "json":
		write = dataio.WriteRecords
	default:
		return errors.NewConfigurationError("format", format, "csv", "json")
	}
	if path == "" || path == "-" {
		return write(cmd.OutOrStdout(), f)
	}
	return writeFile(path, func(w io.Writer) error { return write(w, f) })
}

func writeFile(path string, fn func(io.Writer) error) (err error) {
	fh, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer func() {
		if cerr := fh.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "failed to close %s", path)
		}
	}()
	return fn(fh)
}

func writeJSONOutput(cmd *cobra.Command, path string, v any) error {
	if path == "" || path == "-" {
		return dataio.WriteJSON(cmd.OutOrStdout(), v)
	}
	return writeFile(path, func(w io.Writer) error { return dataio.WriteJSON(w, v) })
}

// schemaKinds returns the fitted column kinds, so that code-like values such
// as zip codes read as text and all-missing numerical columns stay numerical.
func schemaKinds(p *tabular.Pipeline) map[string]frame.Kind {
	s, err := p.Schema()
	if err != nil {
		return nil
	}
	return s.Kinds()
}

// columnKinds maps explicitly listed columns to their kinds.
func columnKinds(numerical, categorical []string) map[string]frame.Kind {
	return tabular.Schema{Numerical: numerical, Categorical: categorical}.Kinds()
}
