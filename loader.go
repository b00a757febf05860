package mdk

import (
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Categories is the fixed processing order for source categories. The
// NodeTypes export is deliberately seeded before everything else - node
// parsing depends on it - and the mapping workbook tabs (MAP: prefix) run
// last so their authoritative overrides land on already-populated objects.
var Categories = []string{
	// Mapping seed early
	"NodeTypes",
	// Core concept attribute reports (decomposed: one attribute per row)
	"AttributeReportArrays",
	"AttributeReportClass",
	"AttributeReportDataProducts",
	"AttributeReportFamilies",
	"AttributeReportMakeModel",
	"AttributeReportNodes",
	"AttributeReportPorts",
	"AttributeReportReferenceDesignator",
	"AttributeReportSeries",
	"AttributeReportSites",
	"AttributeReportSubseries",
	"AttributeReportSubsites",
	// Additional attributes and links from aggregate reports
	"NodeTypes",
	"InstrumentCatalogFull",
	"DataQCLookupTables",
	"DataProductSpreadsheet",
	"AllSensorTypeCounts",
	// Mapping spreadsheet tabs
	"MAP:Arrays",
	"MAP:Sites",
	"MAP:Subsites",
	"MAP:NodeType",
	"MAP:Nodes",
	"MAP:Instruments",
	"MAP:PlatformAgents",
	"MAP:Series",
	"MAP:InstAgents",
	"MAP:DataAgents",
	"MAP:AgentMap",
	"MAP:ModelMap",
	"MAP:DPS",
}

// Loader owns one extraction: it populates a Graph from a Catalog's rows,
// runs the post-processing passes and the reference checks, and serves
// queries over the finished graph. A Loader is single use and not safe for
// concurrent use; run concurrent extractions on independent Loaders.
type Loader struct {
	Log   Logger
	Stats Statter

	// Checks is the reference-integrity check registry run after post
	// processing. Replaceable by callers with stricter needs.
	Checks []RefCheck

	graph        *Graph
	childDevices map[string][]string
	extracted    bool
	cloned       bool
}

// NewLoader returns a Loader with a fresh graph, quiet logging and the
// default check registry.
func NewLoader() *Loader {
	return &Loader{
		Log:    NopLogger{},
		Stats:  NopStatter{},
		Checks: DefaultChecks(),
		graph:  NewGraph(),
	}
}

// Graph exposes the underlying graph.
func (l *Loader) Graph() *Graph { return l.graph }

// TypeAssets returns the id->Object mapping for an object type.
func (l *Loader) TypeAssets(objType string) map[string]Object {
	return l.graph.TypeAssets(objType)
}

// Warnings returns this extraction's accumulated warnings.
func (l *Loader) Warnings() []Warning { return l.graph.Warnings() }

// ChildDevices returns the parent designator -> child device ids index
// built during post-processing (child nodes and instruments).
func (l *Loader) ChildDevices() map[string][]string { return l.childDevices }

// Extract parses every category the catalog can serve, in declared order,
// then post-processes and validates the graph. Warnings accumulate and the
// run completes; only structural corruption (empty ids, unexpandable
// clones, malformed required values) aborts. Extract is idempotent - a
// second call is a no-op.
func (l *Loader) Extract(cat Catalog) error {
	if l.extracted {
		return nil
	}
	for _, category := range Categories {
		name := strings.TrimPrefix(category, "MAP:")
		parse, ok := categoryParsers[name]
		if !ok {
			return errors.Errorf("no parser registered for category %s", category)
		}
		src, err := cat.Open(category)
		if err != nil {
			l.Log.Printf("asset category %s unavailable: %v", category, err)
			continue
		}
		rows := 0
		for {
			row, err := src.Row()
			if err == io.EOF {
				break
			}
			if err != nil {
				return errors.Wrapf(err, "reading %s rows", category)
			}
			if err := parse(l, row); err != nil {
				return errors.Wrapf(err, "parsing %s row %d", category, rows+1)
			}
			rows++
		}
		l.Stats.Count("rows", int64(rows), 1, "category:"+name)
		l.Log.Debugf("loaded assets %s: %d rows read", category, rows)
	}

	if err := l.postProcess(); err != nil {
		return err
	}
	l.runChecks()

	if warns := l.graph.Warnings(); len(warns) > 0 {
		l.Stats.Count("warnings", int64(len(warns)), 1)
		l.Log.Printf("extraction finished with %d warnings", len(warns))
	}
	for _, typ := range l.graph.Types() {
		l.Log.Debugf("found entries: %s: %d", typ, len(l.graph.TypeAssets(typ)))
	}
	l.extracted = true
	return nil
}

// put is the parsers' shorthand for Graph.Put.
func (l *Loader) put(objType, objID, key string, value interface{}, opts ...PutOption) error {
	return l.graph.Put(objType, objID, key, value, opts...)
}

func (l *Loader) warnf(subject, format string, args ...interface{}) {
	l.graph.Warnf(subject, format, args...)
}
