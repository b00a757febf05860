package mdk

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/marinedk/mdk/rd"
	"github.com/pkg/errors"
)

// parseFunc handles one raw row of one category. Row validation failures are
// warnings and skip the whole row (no partial writes); only empty primary
// identifiers and malformed required values abort the run.
type parseFunc func(*Loader, Row) error

// categoryParsers is the static dispatch table from category name (without
// the MAP: prefix) to handler. Built once; no reflection.
var categoryParsers = map[string]parseFunc{
	"NodeTypes":                          parseNodeTypes,
	"AttributeReportArrays":              parseAttributeReportArrays,
	"AttributeReportClass":               parseAttributeReportClass,
	"AttributeReportDataProducts":        parseAttributeReportDataProducts,
	"AttributeReportFamilies":            parseAttributeReportFamilies,
	"AttributeReportMakeModel":           parseAttributeReportMakeModel,
	"AttributeReportNodes":               parseAttributeReportNodes,
	"AttributeReportPorts":               parseAttributeReportPorts,
	"AttributeReportReferenceDesignator": parseAttributeReportReferenceDesignator,
	"AttributeReportSeries":              parseAttributeReportSeries,
	"AttributeReportSites":               parseAttributeReportSites,
	"AttributeReportSubseries":           parseAttributeReportSubseries,
	"AttributeReportSubsites":            parseAttributeReportSubsites,
	"InstrumentCatalogFull":              parseInstrumentCatalogFull,
	"DataQCLookupTables":                 parseDataQCLookupTables,
	"DataProductSpreadsheet":             parseDataProductSpreadsheet,
	"AllSensorTypeCounts":                parseAllSensorTypeCounts,
	"Arrays":                             parseMapArrays,
	"Sites":                              parseMapSites,
	"Subsites":                           parseMapSubsites,
	"NodeType":                           parseMapNodeType,
	"Nodes":                              parseMapNodes,
	"Instruments":                        parseMapInstruments,
	"PlatformAgents":                     parseMapPlatformAgents,
	"Series":                             parseMapSeries,
	"InstAgents":                         parseMapInstAgents,
	"DataAgents":                         parseMapDataAgents,
	"AgentMap":                           parseMapAgentMap,
	"ModelMap":                           parseMapModelMap,
	"DPS":                                parseMapDPS,
}

// assetRD validates s as an asset designator of the wanted subtype,
// recording a warning on failure.
func (l *Loader) assetRD(s, subtype string) (*rd.Designator, bool) {
	d, err := rd.Parse(s)
	if err != nil || d.Type != rd.TypeAsset || d.Subtype != subtype {
		l.warnf(s, "invalid_rd: %s is not a %s designator", s, subtype)
		return nil, false
	}
	return d, true
}

// negLongitude negates a decomposed-report longitude value. The SAF export
// uses a positive-west convention; the graph stores signed east longitudes.
func (l *Loader) negLongitude(row Row) (string, bool) {
	value := row["AttributeValue"]
	if row["Attribute"] != "longitude" || value == "" {
		return value, true
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		l.warnf(value, "invalid_longitude: cannot negate %q", value)
		return "", false
	}
	return strconv.FormatFloat(-f, 'f', -1, 64), true
}

// ---- Decomposed SAF export categories. One attribute per row, plus static
// attributes repeated on every row. ----

func parseAttributeReportArrays(l *Loader, row Row) error {
	d, ok := l.assetRD(row["Array"], rd.SubtypeArray)
	if !ok {
		return nil
	}
	return l.put("array", d.RD, row["Attribute"], row["AttributeValue"],
		KeyMap(map[string]string{"Array_Name": "name"}),
		Static(Object{"Array_Name": row["Array_Name"]}))
}

func parseAttributeReportClass(l *Loader, row Row) error {
	d, err := rd.Parse(row["Class"])
	if err != nil || d.Type != rd.TypeInstClass {
		l.warnf(row["Class"], "invalid_rd: %s is not an instrument class designator", row["Class"])
		return nil
	}
	return l.put("class", d.RD, row["Attribute"], row["AttributeValue"],
		KeyMap(map[string]string{
			"Description":                     "description",
			"Alternate Instrument Class Name": "alt_name",
		}),
		Static(Object{"name": row["Class_Name"]}))
}

func parseAttributeReportDataProducts(l *Loader, row Row) error {
	dpType := strings.TrimSpace(row["Data_Product_Identifier"])
	key := dpType + "_L" + strings.TrimSpace(row["Data_Product_Level"])
	d, err := rd.Parse(key)
	if err != nil || d.Type != rd.TypeDataProduct || d.Subtype != rd.SubtypeLevel {
		l.warnf(key, "invalid_rd: %s is not a data product designator", key)
		return nil
	}
	return l.put("data_product_type", dpType, row["Attribute"], row["AttributeValue"],
		KeyMap(map[string]string{"Regime(s)": "regime"}),
		Static(Object{
			"Data_Product_Name":  row["Data_Product_Name"],
			"Data_Product_Level": row["Data_Product_Level"],
		}))
}

func parseAttributeReportFamilies(l *Loader, row Row) error {
	return l.put("family", row["Family"], row["Attribute"], row["AttributeValue"],
		Static(Object{"name": row["Family_Name"]}))
}

func parseAttributeReportMakeModel(l *Loader, row Row) error {
	return l.put("makemodel", row["Make_Model"], row["Attribute"], row["Attribute_Value"],
		Static(Object{
			"name":                   row["Make_Model"],
			"Manufacturer":           row["Manufacturer"],
			"Make_Model_Description": row["Make_Model_Description"],
		}))
}

func parseAttributeReportNodes(l *Loader, row Row) error {
	d, ok := l.assetRD(row["Node"], rd.SubtypeNode)
	if !ok {
		return nil
	}
	value, ok := l.negLongitude(row)
	if !ok {
		return nil
	}
	return l.put("node", d.RD, row["Attribute"], value,
		Static(Object{
			"Node_Type":          row["Node_Type"],
			"Node_Site_Sequence": row["Node_Site_Sequence"],
		}))
}

func parseNodeTypes(l *Loader, row Row) error {
	return l.put("nodetype", row["LNodeType"], "", nil,
		KeyMap(map[string]string{"Name": "name"}),
		Static(Object{"Name": row["Name"]}))
}

func parseAttributeReportPorts(l *Loader, row Row) error {
	d, ok := l.assetRD(row["Port"], rd.SubtypePort)
	if !ok {
		return nil
	}
	return l.put("port", d.RD, row["Attribute"], row["AttributeValue"])
}

func parseAttributeReportReferenceDesignator(l *Loader, row Row) error {
	d, ok := l.assetRD(row["Reference_Designator"], rd.SubtypeInstrument)
	if !ok {
		return nil
	}
	value, ok := l.negLongitude(row)
	if !ok {
		return nil
	}
	return l.put("instrument", d.RD, row["Attribute"], value,
		Static(Object{"Class": row["Class"]}))
}

func parseAttributeReportSeries(l *Loader, row Row) error {
	key := row["Class"] + row["Series"]
	return l.put("series", key, row["Attribute"], row["AttributeValue"],
		KeyMap(map[string]string{"Description": "description"}),
		Static(Object{
			"Series": row["Series"],
			"name":   row["Series_Name"],
			"Class":  row["Class"],
		}))
}

func parseAttributeReportSites(l *Loader, row Row) error {
	d, ok := l.assetRD(row["Site"], rd.SubtypeSite)
	if !ok {
		return nil
	}
	return l.put("site", d.RD, row["Attribute"], row["AttributeValue"],
		Static(Object{"name": row["Site_Name"]}))
}

func parseAttributeReportSubseries(l *Loader, row Row) error {
	key := row["Class"] + row["Series"] + row["Subseries"]
	return l.put("subseries", key, row["Attribute"], row["AttributeValue"],
		KeyMap(map[string]string{"Description": "description"}),
		Static(Object{
			"Subseries": row["Subseries"],
			"name":      row["Subseries_Name"],
			"Class":     row["Class"],
		}))
}

func parseAttributeReportSubsites(l *Loader, row Row) error {
	d, ok := l.assetRD(row["Subsite"], rd.SubtypeSubsite)
	if !ok {
		return nil
	}
	value, ok := l.negLongitude(row)
	if !ok {
		return nil
	}
	return l.put("subsite", d.RD, row["Attribute"], value,
		Static(Object{"name": row["Subsite_Name"]}))
}

// ---- Aggregate report categories. ----

// parseInstrumentCatalogFull attaches series/subseries/make-model data to
// current instruments and records which arrays use each node type and
// instrument class.
func parseInstrumentCatalogFull(l *Loader, row Row) error {
	refid := row["ReferenceDesignator"]
	seriesID := row["SClass_PublicID"] + row["SSeries_PublicID"]
	subseriesID := seriesID + row["SSubseries_PublicID"]
	makemodel := row["MMInstrument_PublicID"]

	err := l.put("instrument", refid, "", nil, Static(Object{
		"instrument_class":     row["SClass_PublicID"],
		"instrument_series":    row["SSeries_PublicID"],
		"instrument_subseries": row["SSubseries_PublicID"],
		"instrument_model1":    row["SClass_PublicID"],
		"instrument_model":     seriesID,
		"makemodel":            makemodel,
		"ready_for_2013":       row["Ready_For_2013_"],
	}))
	if err != nil {
		return err
	}

	if makemodel != "" {
		if err := l.put("class", row["SClass_PublicID"], "makemodel", makemodel, AsList(), DupOK()); err != nil {
			return err
		}
		if err := l.put("series", seriesID, "", nil, Static(Object{"makemodel": makemodel})); err != nil {
			return err
		}
		if err := l.put("subseries", subseriesID, "", nil, Static(Object{"makemodel": makemodel})); err != nil {
			return err
		}
	}

	if len(refid) < 2 {
		return nil
	}
	arrayID := refid[:2]
	// The node type column carries "XX (Name)" text; the code is the prefix.
	if ntype := row["Textbox11"]; len(ntype) >= 2 {
		if err := l.put("nodetype", ntype[:2], "array_list", arrayID, AsList(), DupOK()); err != nil {
			return err
		}
	}
	if err := l.put("class", row["SClass_PublicID"], "array_list", arrayID, AsList(), DupOK()); err != nil {
		return err
	}
	return l.put("series", seriesID, "array_list", arrayID, AsList(), DupOK())
}

var dataProductWithLevelRe = regexp.MustCompile(`^([A-Z0-9_]{7})\s+\((L\d)\)$`)

// parseDataQCLookupTables adds the list of leveled data products to each
// instrument.
func parseDataQCLookupTables(l *Loader, row Row) error {
	refid := row["ReferenceDesignator"]
	if err := l.put("instrument", refid, "", nil, Static(Object{"Class": row["SClass_PublicID"]})); err != nil {
		return err
	}
	m := dataProductWithLevelRe.FindStringSubmatch(row["Data_Product_With_Level"])
	if m == nil {
		l.warnf(refid, "invalid_rd: %s is not a data product designator", row["Data_Product_With_Level"])
		return nil
	}
	return l.put("instrument", refid, "data_product_list", m[1]+"_"+m[2], AsList())
}

func parseDataProductSpreadsheet(l *Loader, row Row) error {
	dpType := strings.TrimSpace(row["Data_Product_Identifier"])
	key := dpType + "_" + strings.TrimSpace(row["Data_Product_Level1"])

	// Seed the leveled product from the type-level attributes, then overlay
	// the spreadsheet columns.
	entry := Object{}
	if dptObj, ok := l.TypeAssets("data_product_type")[dpType]; ok {
		entry = dptObj.Copy()
		delete(entry, "id")
	}
	entry["name"] = strings.TrimSpace(row["Data_Product_Name"])
	entry["code"] = dpType
	entry["level"] = strings.TrimSpace(row["Data_Product_Level1"])
	entry["units"] = strings.TrimSpace(row["Units"])
	entry["dps"] = strings.TrimSpace(row["DPS_DCN_s_"])
	entry["diagrams"] = strings.TrimSpace(row["Processing_Flow_Diagram_DCN_s_"])

	if err := l.put("data_product", key, "", nil, Static(entry)); err != nil {
		return err
	}
	return l.put("data_product", key, "instrument_class_list",
		strings.TrimSpace(row["Instrument_Class"]), AsList())
}

func parseAllSensorTypeCounts(l *Loader, row Row) error {
	return l.put("class", strings.TrimSpace(row["Class"]), "family", strings.TrimSpace(row["Family"]))
}

// ---- Mapping workbook tabs. The workbook is the authoritative override
// source, hence the liberal ChangeOK. Rows whose referent is missing from
// the SAF export are skipped, never fabricated - the workbook is expected to
// lag or lead the export. ----

func parseMapArrays(l *Loader, row Row) error {
	return l.put("array", row["Reference ID"], "name", row["Name"], ChangeOK())
}

func parseMapSites(l *Loader, row Row) error {
	ooiRD := row["Reference ID"]
	name := row["Full Name"]
	if err := l.put("site", ooiRD, "name", name, ChangeOK()); err != nil {
		return err
	}
	// Aggregated site group ("osite") entries.
	if err := l.put("site", ooiRD, "osite", name); err != nil {
		return err
	}
	if err := l.put("osite", name, "", nil, Static(Object{
		"name":       name,
		"local_name": row["Name Extension"],
	})); err != nil {
		return err
	}
	return l.put("osite", name, "site_rd_list", ooiRD, AsList())
}

func parseMapSubsites(l *Loader, row Row) error {
	ooiRD := row["Reference ID"]
	name := row["Full Name"]
	if err := l.put("subsite", ooiRD, "ssite", name); err != nil {
		return err
	}
	if err := l.put("ssite", name, "", nil, Static(Object{
		"name":       name,
		"local_name": row["Local Name"],
		"geo_area":   row["Site Name"],
	})); err != nil {
		return err
	}
	if err := l.put("ssite", name, "subsite_rd_list", ooiRD, AsList()); err != nil {
		return err
	}
	if row["lat_north"] == "" {
		return nil
	}
	coords := Object{}
	for _, col := range []string{"lat_north", "lat_south", "lon_east", "lon_west", "depth_min", "depth_max"} {
		if row[col] == "" {
			continue
		}
		f, err := strconv.ParseFloat(row[col], 64)
		if err != nil {
			return errors.Wrapf(err, "subsite %s mapping column %s", ooiRD, col)
		}
		coords[col] = f
	}
	return l.put("ssite", name, "", nil, Static(coords))
}

func parseMapNodes(l *Loader, row Row) error {
	if row["Ignore"] == "Yes" {
		return nil
	}
	ooiRD := row["Reference ID"]
	entry := Object{
		"local_name":           row["Name Extension"],
		"parent_id":            row["Parent Reference ID"],
		"platform_id":          row["Platform Reference ID"],
		"platform_config_type": row["Platform Configuration Type"],
		"platform_agent_type":  row["Platform Agent Type"],
		"is_platform":          row["Platform Reference ID"] == ooiRD,
		"in_saf":               row["SAF"] != "No",
		"self_port":            row["Self Port"],
		"uplink_node":          row["Uplink Node"],
		"uplink_port":          row["Uplink Port"],
		"deployment_start":     row["Start Deployment Cruise"], // date column, yyyy-mm-dd
		"clone_rd":             row["Clone"],
		"in_mapping":           true,
	}
	// A pushed node without a clone reference is unconditionally deferred.
	if row["Push"] == "Yes" && row["Clone"] == "" {
		entry["deployment_start"] = "2019-01-01"
	}
	if err := l.put("node", ooiRD, "", nil, Static(entry)); err != nil {
		return err
	}
	if err := l.put("node", ooiRD, "name", row["Full Name"], ChangeOK()); err != nil {
		return err
	}

	if row["lat"] != "" || row["lon"] != "" || row["depth"] != "" {
		geo := Object{}
		if row["lat"] != "" {
			geo["latitude"] = row["lat"]
		}
		if row["lon"] != "" {
			geo["longitude"] = row["lon"]
		}
		if row["depth"] != "" {
			geo["depth_subsite"] = row["depth"]
		}
		if err := l.put("node", ooiRD, "", nil, ChangeOK(), Static(geo)); err != nil {
			return err
		}
	}

	if len(ooiRD) >= 11 {
		return l.put("nodetype", ooiRD[9:11], "array_list", ooiRD[:2], AsList(), DupOK())
	}
	return nil
}

func parseMapNodeType(l *Loader, row Row) error {
	code := row["Code"]
	if err := l.put("nodetype", code, "", nil, ChangeOK(), Static(Object{"name": row["Name"]})); err != nil {
		return err
	}
	return l.put("nodetype", code, "", nil, Static(Object{
		"pa_code":         row["PA Code"],
		"platform_family": row["Platform Family"],
		"platform_type":   row["Platform Type"],
		"comp_name":       row["Composite Name"],
	}))
}

func parseMapInstruments(l *Loader, row Row) error {
	if row["Ignore"] == "Yes" {
		return nil
	}
	ooiRD := row["Reference ID"]
	entry := Object{
		"deployment_start": row["First Deploy Date"], // date column, yyyy-mm-dd
		"clone_rd":         row["Clone"],
	}
	if row["Push"] == "Yes" {
		entry["deployment_start"] = "2019-02-01"
	}
	if err := l.put("instrument", ooiRD, "", nil, Static(entry)); err != nil {
		return err
	}

	if row["lat"] == "" && row["lon"] == "" && row["depth_min"] == "" && row["depth_max"] == "" {
		return nil
	}
	geo := Object{}
	if row["lat"] != "" {
		geo["latitude"] = row["lat"]
	}
	if row["lon"] != "" {
		geo["longitude"] = row["lon"]
	}
	if row["depth_min"] != "" {
		geo["depth_port_min"] = row["depth_min"]
	}
	if row["depth_max"] != "" {
		geo["depth_port_max"] = row["depth_max"]
	}
	return l.put("instrument", ooiRD, "", nil, ChangeOK(), Static(geo))
}

func parseMapPlatformAgents(l *Loader, row Row) error {
	return l.put("platformagent", row["Code"], "", nil, Static(Object{
		"name":                  row["Name"],
		"agent_type":            row["Agent Type"],
		"node_types":            row["Node Types"],
		"rt_control_path":       row["RT Control Path"],
		"rt_data_path":          row["RT Data Path"],
		"rt_data_acquisition":   row["RT Data Acquisition"],
		"full_data_acquisition": row["Full Data Acquisition"],
		"ci_interface_location": row["Marine-CI Interface Location"],
	}))
}

func parseMapSeries(l *Loader, row Row) error {
	code := row["Class Code"]
	series := row["Series"]
	seriesRD := code + series
	iaExists := row["IA"] == "Yes"
	dartExists := row["DA RT"] == "Yes"
	daprExists := row["DA PR"] == "Yes"
	tier1 := row["Tier 1"] == "Yes"

	if len(series) != 1 {
		l.Log.Printf("ignoring asset mappings Series row %s-%s - not a valid code", code, series)
		return nil
	}
	if _, ok := l.TypeAssets("series")[seriesRD]; !ok {
		// Lets the mapping workbook move ahead of the current SAF export.
		l.Log.Printf("ignoring asset mappings Series %s-%s - not in current SAF export", code, series)
		return nil
	}

	firstAvail := DefaultMaxDate
	if row["First Availability"] != "" {
		firstAvail, _ = ParseDate(row["First Availability"], DefaultMaxDate)
	}
	entry := Object{
		"connection":  row["Connection"],
		"ia_code":     "",
		"dart_code":   "",
		"dapr_code":   "",
		"ia_exists":   iaExists,
		"dart_exists": dartExists,
		"dapr_exists": daprExists,
		"tier1":       tier1,
		"first_avail": firstAvail,
	}
	if iaExists {
		entry["ia_code"] = row["IA Code"]
	}
	if dartExists {
		entry["dart_code"] = row["DA RT Code"]
	}
	if daprExists {
		entry["dapr_code"] = row["DA PR Code"]
	}
	if err := l.put("series", seriesRD, "", nil, Static(entry)); err != nil {
		return err
	}

	if iaExists && row["IA Code"] != "" && row["IA Code"] != "NA" {
		if err := l.put("instagent", row["IA Code"], "", nil, Static(Object{
			"inst_class": code,
			"tier1":      tier1,
		})); err != nil {
			return err
		}
		if err := l.put("instagent", row["IA Code"], "series_list", seriesRD, AsList(), DupOK()); err != nil {
			return err
		}
	}
	if dartExists && row["DA RT Code"] != "" && row["DA RT Code"] != "NA" {
		if err := l.put("dataagent", row["DA RT Code"], "", nil, Static(Object{
			"inst_class": code,
			"tier1":      tier1,
		})); err != nil {
			return err
		}
		if err := l.put("dataagent", row["DA RT Code"], "series_list", seriesRD, AsList(), DupOK()); err != nil {
			return err
		}
	}
	return nil
}

func parseMapInstAgents(l *Loader, row Row) error {
	code := row["Agent Code"]
	if code == "" {
		return nil
	}
	return l.put("instagent", code, "", nil, Static(Object{
		"active":  row["Active"] == "Yes",
		"present": row["Present"] == "Yes",
	}))
}

func parseMapDataAgents(l *Loader, row Row) error {
	code := row["Agent Code"]
	if code == "" {
		return nil
	}
	return l.put("dataagent", code, "", nil, Static(Object{
		"active":  row["Active"] == "Yes",
		"present": row["Present"] == "Yes",
	}))
}

func parseMapAgentMap(l *Loader, row Row) error {
	series := row["Instrument Series"]
	nodeType := row["Node Type"]
	ref := AgentRef{Code: row["Agent Code"], Prefix: row["RD Prefix"]}

	if _, ok := l.TypeAssets("series")[series]; series != "" && ok {
		if err := l.put("series", series, "agentmap", ref, AsList(), NoSort()); err != nil {
			return err
		}
		for _, agentType := range []string{"dataagent", "instagent"} {
			if _, ok := l.TypeAssets(agentType)[ref.Code]; !ok {
				continue
			}
			if err := l.put(agentType, ref.Code, "series_list", series, AsList(), DupOK()); err != nil {
				return err
			}
			if len(series) >= 5 {
				if err := l.put(agentType, ref.Code, "", nil, Static(Object{"inst_class": series[:5]})); err != nil {
					return err
				}
			}
		}
	}

	if _, ok := l.TypeAssets("nodetype")[nodeType]; nodeType != "" && ok {
		return l.put("nodetype", nodeType, "agentmap", ref, AsList(), NoSort())
	}
	return nil
}

func parseMapModelMap(l *Loader, row Row) error {
	return l.put("modelmap", row["Instrument Series"], "", nil,
		Static(Object{"primary_series": row["Primary Series"]}))
}

func parseMapDPS(l *Loader, row Row) error {
	code := row["Code"]
	refType := row["Ref Type"]
	if refType == "" || code == "" {
		return nil
	}
	if err := l.put("datalink", code, refType, row["URL"], AsList()); err != nil {
		return err
	}
	return l.put("datalink", code, refType+"_doc", row["Document Name"], AsList())
}
