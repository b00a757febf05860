package file

import (
	"fmt"
	"os"
	"time"

	"github.com/marinedk/mdk"
	"github.com/marinedk/mdk/registry"
	"github.com/marinedk/mdk/termstat"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Main contains the configuration for an extraction from a local catalog
// directory.
type Main struct {
	Path        string `help:"Directory containing the asset export CSV files."`
	MappingPath string `help:"Directory containing the mapping workbook tab CSVs. Defaults to <path>/mapping."`
	Store       string `help:"Registry database file to dump the extracted assets into. Empty skips the dump."`
	Backend     string `help:"Registry backend: bolt or leveldb."`
	Debug       bool   `help:"Enable debug logging."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		Path:    "assets",
		Backend: "bolt",
	}
}

// Run extracts the asset graph and optionally dumps it to a registry store.
func (m *Main) Run() error {
	loader, logger, err := m.extract()
	if err != nil {
		return err
	}
	defer logger.Sync()

	for _, w := range loader.Warnings() {
		logger.Sugar().Warnf("%s: %s", w.Subject, w.Msg)
	}
	if m.Store == "" {
		return nil
	}
	store, err := registry.Open(m.Backend, m.Store)
	if err != nil {
		return errors.Wrap(err, "opening registry store")
	}
	defer store.Close()
	if err := registry.Dump(store, loader.Graph()); err != nil {
		return errors.Wrap(err, "dumping graph to registry")
	}
	logger.Sugar().Infof("dumped asset graph to %s (%s)", m.Store, m.Backend)
	return nil
}

func (m *Main) extract() (*mdk.Loader, *zap.Logger, error) {
	logger, err := newLogger(m.Debug)
	if err != nil {
		return nil, nil, errors.Wrap(err, "building logger")
	}

	var opts []CatOption
	if m.MappingPath != "" {
		opts = append(opts, OptCatMappingDir(m.MappingPath))
	}
	cat := NewCatalog(m.Path, opts...)

	loader := mdk.NewLoader()
	loader.Log = mdk.ZapLogger{S: logger.Sugar()}
	loader.Stats = termstat.NewCollector(os.Stderr)
	if err := loader.Extract(cat); err != nil {
		logger.Sync()
		return nil, nil, errors.Wrap(err, "extracting assets")
	}
	return loader, logger, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// ReportMain contains the configuration for a deployment readiness report
// over a local catalog directory.
type ReportMain struct {
	Path        string `help:"Directory containing the asset export CSV files."`
	MappingPath string `help:"Directory containing the mapping workbook tab CSVs. Defaults to <path>/mapping."`
	Cutoff      string `help:"Deployment cutoff date (YYYY-MM-DD, YYYY-MM, or YYYY). Empty reports until program end."`
	Level       int    `help:"Maximum report detail level to print."`
	Debug       bool   `help:"Enable debug logging."`
}

// NewReportMain gets a new ReportMain with the default configuration.
func NewReportMain() *ReportMain {
	return &ReportMain{
		Path:  "assets",
		Level: 2,
	}
}

// Run extracts the asset graph, analyzes it by the cutoff date, and prints
// the report to stdout.
func (m *ReportMain) Run() error {
	var cutoff *time.Time
	if m.Cutoff != "" {
		t, err := mdk.ParseDate(m.Cutoff, time.Time{})
		if err != nil {
			return errors.Wrapf(err, "parsing cutoff date %q", m.Cutoff)
		}
		cutoff = &t
	}

	em := Main{Path: m.Path, MappingPath: m.MappingPath, Debug: m.Debug}
	loader, logger, err := em.extract()
	if err != nil {
		return err
	}
	defer logger.Sync()

	rep, err := loader.Analyze(cutoff)
	if err != nil {
		return errors.Wrap(err, "analyzing assets")
	}
	fmt.Fprint(os.Stdout, rep.Render(m.Level))
	return nil
}
