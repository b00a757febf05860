package mdk

import (
	"strings"
	"testing"
	"time"

	"github.com/marinedk/mdk/test"
)

func TestParseSubsiteNegatesLongitude(t *testing.T) {
	l := NewLoader()
	err := parseAttributeReportSubsites(l, Row{
		"Subsite":        "CE02SHSM",
		"Attribute":      "longitude",
		"AttributeValue": "124.304",
		"Subsite_Name":   "Oregon Shelf Surface Mooring",
	})
	test.ErrNil(t, err, "parse")
	obj := l.TypeAssets("subsite")["CE02SHSM"]
	test.MustBe(t, obj.Str("longitude"), "-124.304", "sign flipped")
	test.MustBe(t, obj.Str("name"), "Oregon Shelf Surface Mooring", "static name")
}

func TestParseInvalidDesignatorSkipsRow(t *testing.T) {
	l := NewLoader()
	err := parseAttributeReportNodes(l, Row{
		"Node":           "NOT-A-NODE",
		"Attribute":      "latitude",
		"AttributeValue": "44.6",
	})
	test.ErrNil(t, err, "parse")
	test.MustBe(t, len(l.TypeAssets("node")), 0, "no node created")
	test.MustBe(t, len(l.Warnings()), 1, "warning recorded")
	if !strings.Contains(l.Warnings()[0].Msg, "invalid_rd") {
		t.Fatalf("unexpected warning: %v", l.Warnings()[0])
	}
}

func TestParseSeriesCompositeKey(t *testing.T) {
	l := NewLoader()
	err := parseAttributeReportSeries(l, Row{
		"Class":          "OPTAA",
		"Series":         "D",
		"Series_Name":    "Absorption Spectrophotometer",
		"Attribute":      "Description",
		"AttributeValue": "measures absorption",
	})
	test.ErrNil(t, err, "parse")
	obj := l.TypeAssets("series")["OPTAAD"]
	test.MustBe(t, obj.Str("description"), "measures absorption", "keymapped attr")
	test.MustBe(t, obj.Str("Class"), "OPTAA", "class static")
	test.MustBe(t, obj.Str("Series"), "D", "series static")
}

func TestParseDataProductsLeveledKey(t *testing.T) {
	l := NewLoader()
	err := parseAttributeReportDataProducts(l, Row{
		"Data_Product_Identifier": " DENSITY ",
		"Data_Product_Level":      "2",
		"Data_Product_Name":       "Density",
		"Attribute":               "Regime(s)",
		"AttributeValue":          "global",
	})
	test.ErrNil(t, err, "parse")
	obj := l.TypeAssets("data_product_type")["DENSITY"]
	test.MustBe(t, obj.Str("regime"), "global", "keymapped regime")
}

func TestParseMapNodesEntry(t *testing.T) {
	l := NewLoader()
	err := parseMapNodes(l, Row{
		"Reference ID":          "CE02SHSM-SBD11",
		"Full Name":             "Oregon Shelf Buoy",
		"Platform Reference ID": "CE02SHSM-SBD11",
		"SAF":                   "Yes",
		"lat":                   "44.64",
		"lon":                   "-124.3",
		"depth":                 "0",
	})
	test.ErrNil(t, err, "parse")
	node := l.TypeAssets("node")["CE02SHSM-SBD11"]
	test.MustBe(t, node.Bool("is_platform"), true, "is_platform")
	test.MustBe(t, node.Bool("in_saf"), true, "in_saf")
	test.MustBe(t, node.Bool("in_mapping"), true, "in_mapping")
	test.MustBe(t, node.Str("latitude"), "44.64", "geo override")
	test.MustBe(t, node.Str("name"), "Oregon Shelf Buoy", "name")

	// The node type learns which arrays use it.
	nt := l.TypeAssets("nodetype")["SB"]
	test.MustBe(t, nt.Strs("array_list"), []string{"CE"}, "array_list")
}

func TestParseMapNodesIgnoreAndPush(t *testing.T) {
	l := NewLoader()
	test.ErrNil(t, parseMapNodes(l, Row{"Reference ID": "CE02SHSM-SBD11", "Ignore": "Yes"}), "ignored row")
	test.MustBe(t, len(l.TypeAssets("node")), 0, "ignored")

	test.ErrNil(t, parseMapNodes(l, Row{
		"Reference ID":          "CE04OSSM-SBD11",
		"Platform Reference ID": "CE04OSSM-SBD11",
		"SAF":                   "No",
		"Push":                  "Yes",
	}), "pushed row")
	node := l.TypeAssets("node")["CE04OSSM-SBD11"]
	test.MustBe(t, node.Str("deployment_start"), "2019-01-01", "push pin date")
}

func TestParseMapSeriesGuards(t *testing.T) {
	l := NewLoader()
	// Seed the series from the export.
	test.ErrNil(t, parseAttributeReportSeries(l, Row{
		"Class": "OPTAA", "Series": "D", "Attribute": "x", "AttributeValue": "y",
	}), "seed")

	// Multi-letter series code is skipped.
	test.ErrNil(t, parseMapSeries(l, Row{"Class Code": "OPTAA", "Series": "DD"}), "bad code")
	// Series missing from the export is skipped.
	test.ErrNil(t, parseMapSeries(l, Row{"Class Code": "CTDBP", "Series": "C"}), "missing series")
	if _, ok := l.TypeAssets("series")["CTDBPC"]; ok {
		t.Fatal("series fabricated from mapping row")
	}

	test.ErrNil(t, parseMapSeries(l, Row{
		"Class Code":         "OPTAA",
		"Series":             "D",
		"IA":                 "Yes",
		"IA Code":            "optaa_d",
		"DA RT":              "Yes",
		"DA RT Code":         "dart_optaa",
		"Tier 1":             "Yes",
		"First Availability": "2014-06",
	}), "good row")
	obj := l.TypeAssets("series")["OPTAAD"]
	test.MustBe(t, obj.Str("ia_code"), "optaa_d", "ia code")
	test.MustBe(t, obj.Bool("tier1"), true, "tier1")
	avail, ok := obj.Date("first_avail")
	test.MustBe(t, ok, true, "first_avail set")
	test.MustBe(t, avail, time.Date(2014, 6, 1, 0, 0, 0, 0, time.UTC), "first_avail parsed")

	ia := l.TypeAssets("instagent")["optaa_d"]
	test.MustBe(t, ia.Str("inst_class"), "OPTAA", "agent class")
	test.MustBe(t, ia.Strs("series_list"), []string{"OPTAAD"}, "agent series list")
	da := l.TypeAssets("dataagent")["dart_optaa"]
	test.MustBe(t, da.Strs("series_list"), []string{"OPTAAD"}, "data agent series list")
}

func TestParseMapAgentMapOrder(t *testing.T) {
	l := NewLoader()
	test.ErrNil(t, parseAttributeReportSeries(l, Row{
		"Class": "OPTAA", "Series": "D", "Attribute": "x", "AttributeValue": "y",
	}), "seed")

	test.ErrNil(t, parseMapAgentMap(l, Row{
		"Instrument Series": "OPTAAD", "Agent Code": "special", "RD Prefix": "CE02SHSM",
	}), "first mapping")
	test.ErrNil(t, parseMapAgentMap(l, Row{
		"Instrument Series": "OPTAAD", "Agent Code": "general", "RD Prefix": "CE",
	}), "second mapping")

	list := l.TypeAssets("series")["OPTAAD"].List("agentmap")
	test.MustBe(t, list, []interface{}{
		AgentRef{Code: "special", Prefix: "CE02SHSM"},
		AgentRef{Code: "general", Prefix: "CE"},
	}, "insertion order kept")
}

func TestParseInstrumentCatalogFull(t *testing.T) {
	l := NewLoader()
	err := parseInstrumentCatalogFull(l, Row{
		"ReferenceDesignator":   "CE02SHSM-SBD11-08-OPTAAD000",
		"SClass_PublicID":       "OPTAA",
		"SSeries_PublicID":      "D",
		"SSubseries_PublicID":   "01",
		"MMInstrument_PublicID": "AC-S",
		"Textbox11":             "SB (Surface Buoy)",
	})
	test.ErrNil(t, err, "parse")
	inst := l.TypeAssets("instrument")["CE02SHSM-SBD11-08-OPTAAD000"]
	test.MustBe(t, inst.Str("instrument_model"), "OPTAAD", "model")
	test.MustBe(t, inst.Str("makemodel"), "AC-S", "makemodel")
	test.MustBe(t, l.TypeAssets("class")["OPTAA"].Strs("makemodel"), []string{"AC-S"}, "class makemodel list")
	test.MustBe(t, l.TypeAssets("series")["OPTAAD"].Str("makemodel"), "AC-S", "series makemodel")
	test.MustBe(t, l.TypeAssets("nodetype")["SB"].Strs("array_list"), []string{"CE"}, "nodetype arrays")
}

func TestParseDataQCLookupTables(t *testing.T) {
	l := NewLoader()
	err := parseDataQCLookupTables(l, Row{
		"ReferenceDesignator":     "CE02SHSM-SBD11-08-OPTAAD000",
		"SClass_PublicID":         "OPTAA",
		"Data_Product_With_Level": "OPTABSN (L2)",
	})
	test.ErrNil(t, err, "parse")
	inst := l.TypeAssets("instrument")["CE02SHSM-SBD11-08-OPTAAD000"]
	test.MustBe(t, inst.Strs("data_product_list"), []string{"OPTABSN_L2"}, "data product list")

	err = parseDataQCLookupTables(l, Row{
		"ReferenceDesignator":     "CE02SHSM-SBD11-08-OPTAAD000",
		"SClass_PublicID":         "OPTAA",
		"Data_Product_With_Level": "garbage",
	})
	test.ErrNil(t, err, "bad level row")
	test.MustBe(t, len(l.Warnings()), 1, "warning on bad product")
}

func TestParseMapSitesBuildsOsite(t *testing.T) {
	l := NewLoader()
	err := parseMapSites(l, Row{
		"Reference ID":   "CE02",
		"Full Name":      "Oregon Shelf",
		"Name Extension": "Shelf",
	})
	test.ErrNil(t, err, "parse")
	test.MustBe(t, l.TypeAssets("site")["CE02"].Str("osite"), "Oregon Shelf", "site->osite link")
	osite := l.TypeAssets("osite")["Oregon Shelf"]
	test.MustBe(t, osite.Strs("site_rd_list"), []string{"CE02"}, "osite site list")
}

func TestCategoriesAllHaveParsers(t *testing.T) {
	for _, category := range Categories {
		name := strings.TrimPrefix(category, "MAP:")
		if _, ok := categoryParsers[name]; !ok {
			t.Errorf("category %s has no parser", category)
		}
	}
}
