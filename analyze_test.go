package mdk

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/marinedk/mdk/test"
	"github.com/pkg/errors"
)

// memCatalog serves categories from memory. Categories it does not carry
// open with an error, which the loader treats as an absent export file.
type memCatalog map[string][]Row

func (c memCatalog) Open(category string) (Source, error) {
	rows, ok := c[category]
	if !ok {
		return nil, errors.Errorf("no category %s", category)
	}
	return &memSource{rows: rows}, nil
}

type memSource struct {
	rows []Row
	i    int
}

func (s *memSource) Row() (Row, error) {
	if s.i >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.i]
	s.i++
	return row, nil
}

// reportCatalog is one surface mooring with two instruments: an OPTAA with a
// registered data agent, and a CTDBP the mapping workbook never covered.
func reportCatalog() memCatalog {
	return memCatalog{
		"NodeTypes": {
			{"LNodeType": "SB", "Name": "Surface Buoy"},
		},
		"AttributeReportClass": {
			{"Class": "OPTAA", "Class_Name": "Spectrophotometer", "Attribute": "Description", "AttributeValue": "absorption"},
		},
		"AttributeReportSubsites": {
			{"Subsite": "CE02SHSM", "Subsite_Name": "Oregon Shelf Surface Mooring", "Attribute": "First Deployment Date", "AttributeValue": "2015-04"},
		},
		"AttributeReportNodes": {
			{"Node": "CE02SHSM-SBD11", "Node_Type": "SB", "Attribute": "First Deployment Date", "AttributeValue": "2015-04"},
		},
		"AttributeReportSeries": {
			{"Class": "OPTAA", "Series": "D", "Series_Name": "AC-S", "Attribute": "x", "AttributeValue": "y"},
			{"Class": "CTDBP", "Series": "C", "Series_Name": "CTD", "Attribute": "x", "AttributeValue": "y"},
		},
		"AttributeReportReferenceDesignator": {
			{"Reference_Designator": "CE02SHSM-SBD11-08-OPTAAD000", "Class": "OPTAA", "Attribute": "First Deployment Date", "AttributeValue": "2015-05"},
			{"Reference_Designator": "CE02SHSM-SBD11-03-CTDBPC000", "Class": "CTDBP", "Attribute": "First Deployment Date", "AttributeValue": "2015-05"},
		},
		"DataQCLookupTables": {
			{"ReferenceDesignator": "CE02SHSM-SBD11-08-OPTAAD000", "SClass_PublicID": "OPTAA", "Data_Product_With_Level": "OPTABSN (L2)"},
		},
		"DataProductSpreadsheet": {
			{"Data_Product_Identifier": "OPTABSN", "Data_Product_Level1": "L2", "Data_Product_Name": "Optical Absorption", "Instrument_Class": "OPTAA"},
		},
		"MAP:Nodes": {
			{"Reference ID": "CE02SHSM-SBD11", "Platform Reference ID": "CE02SHSM-SBD11",
				"Platform Agent Type": "MOORV3", "SAF": "Yes",
				"lat": "44.64", "lon": "-124.3", "depth": "80"},
		},
		"MAP:PlatformAgents": {
			{"Code": "MOORV3", "Name": "Mooring v3", "RT Data Path": "File Transfer", "RT Data Acquisition": "Partial"},
		},
		"MAP:Series": {
			{"Class Code": "OPTAA", "Series": "D", "DA RT": "Yes", "DA RT Code": "dart_optaa",
				"Tier 1": "Yes", "First Availability": "2014-06"},
		},
		"MAP:DataAgents": {
			{"Agent Code": "dart_optaa", "Active": "Yes", "Present": "Yes"},
		},
	}
}

func TestAnalyzeRequiresExtract(t *testing.T) {
	l := NewLoader()
	if _, err := l.Analyze(nil); err == nil {
		t.Fatal("expected error before extraction")
	}
}

func TestAnalyzeDeploymentReport(t *testing.T) {
	l := NewLoader()
	test.ErrNil(t, l.Extract(reportCatalog()), "extract")

	cutoff := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	rep, err := l.Analyze(&cutoff)
	test.ErrNil(t, err, "analyze")

	test.MustBe(t, rep.Counts["platform"], 1, "platform count")
	test.MustBe(t, rep.Counts["node"], 0, "node count")
	test.MustBe(t, rep.Counts["instd"], 1, "deployed instrument count")
	test.MustBe(t, rep.Counts["insti"], 1, "postponed instrument count")
	test.MustBe(t, rep.PostponedCount, 1, "postponed count")

	if _, ok := rep.Platforms["CE02SHSM-SBD11"]; !ok {
		t.Fatalf("platform missing from report: %v", rep.Platforms)
	}

	di, ok := rep.Instruments["CE02SHSM-SBD11-08-OPTAAD000"]
	if !ok {
		t.Fatalf("deployed instrument missing: %v", rep.Instruments)
	}
	test.MustBe(t, di.IsData, true, "uncabled instrument uses data agent")
	test.MustBe(t, di.AgentCode, "dart_optaa", "agent code")
	test.MustBe(t, di.DAReady, true, "agent present")
	test.MustBe(t, di.DAActive, true, "agent active")
	test.MustBe(t, di.SeriesPlatform, "MOORV3:OPTAAD", "series platform combo")

	// The CTDBP has no availability entry, so its date pushes past the cutoff.
	if _, ok := rep.Instruments["CE02SHSM-SBD11-03-CTDBPC000"]; ok {
		t.Fatal("postponed instrument should not be recorded as deployed")
	}

	// Products aggregate regardless of the cutoff.
	test.MustBe(t, rep.DataProducts["OPTABSN_L2"],
		[]string{"CE02SHSM-SBD11-08-OPTAAD000"}, "data product instruments")
	test.MustBe(t, rep.DataProductTypes["OPTABSN"], []string{"OPTAAD"}, "data product series")

	out := rep.Render(2)
	for _, want := range []string{
		"ASSET REPORT - DEPLOYMENT UNTIL 2016-01-01",
		"2015-04-01 CE02SHSM-SBD11 Oregon Shelf Surface Mooring - Surface Buoy MOORV3",
		"DA dart_optaa",
		"CE02SHSM-SBD11-03-CTDBPC000: DA undefined (DEPLOY_POSTPONED)",
		"Instrument models (unique): (1) OPTAAD",
		"Instrument models (RT data agent): (1) OPTAAD",
		"Data product variants: (1) OPTABSN_L2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(rep.Render(0), "DEPLOY_POSTPONED") {
		t.Error("instrument detail leaked into the level 0 report")
	}
}

func TestAnalyzeNoCutoffDeploysEverything(t *testing.T) {
	l := NewLoader()
	test.ErrNil(t, l.Extract(reportCatalog()), "extract")

	rep, err := l.Analyze(nil)
	test.ErrNil(t, err, "analyze")
	test.MustBe(t, rep.Counts["instd"], 2, "everything deployed at program end")
	test.MustBe(t, rep.PostponedCount, 0, "nothing postponed")
	if !strings.Contains(rep.Render(0), "DEPLOYMENT UNTIL PROGRAM END") {
		t.Errorf("unexpected header:\n%s", rep.Render(0))
	}
}

func TestAnalyzePlatformInstrumentsFromChildIndex(t *testing.T) {
	l := NewLoader()
	err := l.put("node", "CE02SHSM-SBD11", "", nil, Static(Object{
		"platform_id": "CE02SHSM-SBD11",
		"name":        "platform",
		"deploy_date": time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC),
	}))
	test.ErrNil(t, err, "seed platform")
	err = l.put("instrument", "CE02SHSM-SBD11-08-OPTAAD000", "class", "OPTAA")
	test.ErrNil(t, err, "seed instrument")
	l.childDevices = l.buildChildDevices()
	l.extracted = true

	rep, err := l.Analyze(nil)
	test.ErrNil(t, err, "analyze")

	// The platform line lists instruments from the child-device index, the
	// same index the node subtree walk uses.
	test.MustBe(t, rep.Counts["instd"], 1, "instrument reported on the platform")
	out := rep.Render(2)
	if !strings.Contains(out, "+-CE02SHSM-SBD11-08-OPTAAD000") {
		t.Errorf("platform instrument missing from report:\n%s", out)
	}
	if !strings.Contains(out, "(OPTAAD)") {
		t.Errorf("platform series summary missing from report:\n%s", out)
	}
}

func TestAnalyzeClampsChildNodeDates(t *testing.T) {
	l := NewLoader()
	platformDate := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
	err := l.put("node", "CE02SHSM-SBD11", "", nil, Static(Object{
		"platform_id": "CE02SHSM-SBD11",
		"name":        "platform",
		"deploy_date": platformDate,
	}))
	test.ErrNil(t, err, "seed platform")
	err = l.put("node", "CE02SHSM-RID26", "", nil, Static(Object{
		"platform_id": "CE02SHSM-SBD11",
		"parent_id":   "CE02SHSM-SBD11",
		"name":        "riser",
		"deploy_date": time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	test.ErrNil(t, err, "seed child")
	l.extracted = true

	rep, err := l.Analyze(nil)
	test.ErrNil(t, err, "analyze")

	child := l.TypeAssets("node")["CE02SHSM-RID26"]
	got, _ := child.Date("deploy_date")
	test.MustBe(t, got, platformDate, "child clamped up to platform date")
	test.MustBe(t, rep.Counts["node"], 1, "child node reported")
}
