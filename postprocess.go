package mdk

import (
	"sort"
	"strconv"
	"strings"

	"github.com/marinedk/mdk/geo"
	"github.com/marinedk/mdk/rd"
)

// postProcess runs the ordered enrichment passes over the freshly parsed
// graph. Pass order matters: site groups need named subsites, node
// enrichment needs the child index, instruments inherit from enriched nodes,
// and clone expansion runs against fully enriched originals.
func (l *Loader) postProcess() error {
	l.addSynthetics()
	l.nameNodeTypes()
	l.boundSiteGroups()
	l.childDevices = l.buildChildDevices()
	l.enrichNodes()
	l.checkSeriesMapped()
	l.enrichInstruments()
	if err := l.expandClones(); err != nil {
		return err
	}
	return nil
}

// sortedIDs returns the object ids in ascending order. Every pass iterates
// in sorted order so warnings and derived values come out identical across
// runs.
func sortedIDs(objs map[string]Object) []string {
	ids := make([]string, 0, len(objs))
	for id := range objs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// synthetics are catalog entries for non-commercial hardware that the export
// does not carry. Each clones a commercial sibling and overrides the
// identifying attributes.
var synthetics = []struct {
	objType string
	baseID  string
	id      string
	attrs   Object
}{
	{"class", "PPSDN", "D1000", Object{
		"name":          "Thermistor",
		"ClassLongName": "Thermistor",
		"alt_name":      "Thermistor",
		"description":   "Thermistor for RASFL and PPSDN instruments",
		"makemodel":     []interface{}{"non-commercial D1000"},
	}},
	{"series", "PPSDNA", "D1000A", Object{
		"name":                            "D1000 Thermistor",
		"description":                     "Thermistor for RASFL and PPSDN instruments",
		"Class":                           "D1000",
		"Alternate Instrument Class Name": "Thermistor",
		"ClassLongName":                   "Thermistor",
		"ia_code":                         "D1000",
		"makemodel":                       "non-commercial D1000",
	}},
	{"makemodel", "non-commercial PPSDN", "non-commercial D1000", Object{
		"name":                   "non-commercial D1000",
		"Make_Model_Description": "non-commercial D1000",
		"Manufacturer":           "non-commercial",
	}},
}

// addSynthetics injects the D1000 thermistor class, series and make-model,
// cloned from their PPSDN water sampler counterparts, and points the D1000
// instrument agent at them when it is registered.
func (l *Loader) addSynthetics() {
	for _, syn := range synthetics {
		objs := l.graph.TypeAssets(syn.objType)
		base, ok := objs[syn.baseID]
		if !ok {
			l.warnf(syn.id, "synthetic %s %s skipped: base object %s missing", syn.objType, syn.id, syn.baseID)
			continue
		}
		obj := base.Copy()
		obj["id"] = syn.id
		for k, v := range syn.attrs {
			obj[k] = v
		}
		objs[syn.id] = obj
	}

	if ia, ok := l.TypeAssets("instagent")["D1000"]; ok {
		ia["inst_class"] = "D1000"
		ia["series_list"] = []interface{}{"D1000A"}
		ia["tier1"] = false
	}
}

// nameNodeTypes backfills a placeholder name on node types the export never
// named. "(XX)" keeps the code visible in composed node names.
func (l *Loader) nameNodeTypes() {
	for _, obj := range l.TypeAssets("nodetype") {
		if !obj.Set("name") {
			obj["name"] = "(" + obj.ID() + ")"
		}
	}
}

// boundSiteGroups derives bounding boxes, geohash labels, representative
// designators and parent links for the ssite and osite grouping objects.
// ssites aggregate their subsites' coordinates; osites aggregate their
// ssites' boxes.
func (l *Loader) boundSiteGroups() {
	subsites := l.TypeAssets("subsite")
	sites := l.TypeAssets("site")
	osites := l.TypeAssets("osite")
	ssites := l.TypeAssets("ssite")

	for _, key := range sortedIDs(ssites) {
		ssite := ssites[key]
		subsiteRDs := ssite.Strs("subsite_rd_list")
		if len(subsiteRDs) == 0 {
			l.warnf(key, "ssite %s has no subsites", key)
			continue
		}
		if !ssite.Set("lat_north") {
			var pts []geo.Point
			for _, subsiteRD := range subsiteRDs {
				sub, ok := subsites[subsiteRD]
				if !ok {
					continue
				}
				if p, ok := objPoint(sub, "depth_subsite"); ok {
					pts = append(pts, p)
				}
			}
			if box, ok := geo.BoundPoints(pts); ok {
				putBox(ssite, box)
			}
		}
		ssite["rd"] = subsiteRDs[0]

		d, err := rd.Parse(subsiteRDs[0])
		if err != nil {
			l.warnf(key, "ssite %s: bad subsite designator %q", key, subsiteRDs[0])
			continue
		}
		site, ok := sites[d.Site]
		if !ok {
			l.warnf(key, "ssite %s: site %s not found", key, d.Site)
			continue
		}
		osite, ok := osites[site.Str("osite")]
		if !ok {
			l.warnf(key, "ssite %s: osite %q not found", key, site.Str("osite"))
			continue
		}
		osite["ssite_list"] = append(osite.List("ssite_list"), key)
		if siteRDs := osite.Strs("site_rd_list"); len(siteRDs) > 0 {
			ssite["parent_id"] = siteRDs[0]
		}
	}

	for _, key := range sortedIDs(osites) {
		osite := osites[key]
		var boxes []geo.Box
		for _, ssiteID := range osite.Strs("ssite_list") {
			if ssite, ok := ssites[ssiteID]; ok {
				if box, ok := objBox(ssite); ok {
					boxes = append(boxes, box)
				}
			}
		}
		if box, ok := geo.BoundBoxes(boxes); ok {
			putBox(osite, box)
		}
		if siteRDs := osite.Strs("site_rd_list"); len(siteRDs) > 0 {
			osite["rd"] = siteRDs[0]
		} else {
			l.warnf(key, "osite %s has no sites", key)
		}
	}
}

// objPoint extracts a geo point from an object with string or float
// latitude/longitude attributes. depthKey selects the depth attribute.
func objPoint(obj Object, depthKey string) (geo.Point, bool) {
	lat, ok := objFloat(obj, "latitude")
	if !ok {
		return geo.Point{}, false
	}
	lon, ok := objFloat(obj, "longitude")
	if !ok {
		return geo.Point{}, false
	}
	depth, _ := objFloat(obj, depthKey)
	return geo.Point{Lat: lat, Lon: lon, Depth: depth}, true
}

func objFloat(obj Object, key string) (float64, bool) {
	switch v := obj[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

func objBox(obj Object) (geo.Box, bool) {
	var b geo.Box
	var ok bool
	if b.LatNorth, ok = obj.Float("lat_north"); !ok {
		return geo.Box{}, false
	}
	b.LatSouth, _ = obj.Float("lat_south")
	b.LonEast, _ = obj.Float("lon_east")
	b.LonWest, _ = obj.Float("lon_west")
	b.DepthMin, _ = obj.Float("depth_min")
	b.DepthMax, _ = obj.Float("depth_max")
	return b, true
}

func putBox(obj Object, b geo.Box) {
	obj["lat_north"] = b.LatNorth
	obj["lat_south"] = b.LatSouth
	obj["lon_east"] = b.LonEast
	obj["lon_west"] = b.LonWest
	obj["depth_min"] = b.DepthMin
	obj["depth_max"] = b.DepthMax
	obj["geohash"] = b.Hash()
}

// buildChildDevices indexes parent designator to child device ids: child
// nodes under their parent node, instruments under their node. Children are
// sorted so every downstream walk is deterministic.
func (l *Loader) buildChildDevices() map[string][]string {
	nodes := l.TypeAssets("node")
	insts := l.TypeAssets("instrument")
	tree := make(map[string][]string)

	for nodeID, node := range nodes {
		parentID := node.Str("parent_id")
		if nodeID != parentID {
			tree[parentID] = append(tree[parentID], nodeID)
		}
	}
	for instID := range insts {
		d, err := rd.Parse(instID)
		if err != nil || d.Subtype != rd.SubtypeInstrument {
			continue
		}
		tree[d.Node] = append(tree[d.Node], instID)
	}
	for _, children := range tree {
		sort.Strings(children)
	}
	return tree
}

// enrichNodes fills in node names, geospatial extents aggregated from child
// nodes, platform agent connection flags, and the resolved deployment dates.
func (l *Loader) enrichNodes() {
	nodes := l.TypeAssets("node")
	nodetypes := l.TypeAssets("nodetype")
	subsites := l.TypeAssets("subsite")
	pagents := l.TypeAssets("platformagent")

	for _, nodeID := range sortedIDs(nodes) {
		node := nodes[nodeID]
		if !node.Bool("in_mapping") {
			l.Log.Printf("node %s has no entry in mapping workbook", nodeID)
		}

		d, err := rd.Parse(nodeID)
		if err != nil || d.Subtype != rd.SubtypeNode {
			l.warnf(nodeID, "node %s is not a valid node designator", nodeID)
			continue
		}

		if !node.Set("name") {
			subsiteName, nodetypeName := "", ""
			if sub, ok := subsites[d.Subsite]; ok {
				subsiteName = sub.Str("name")
			}
			if nt, ok := nodetypes[d.NodeType]; ok {
				nodetypeName = nt.Str("name")
			}
			node["name"] = subsiteName + " - " + nodetypeName
		}

		if !node.Set("latitude") {
			l.aggregateChildGeo(nodeID, node)
		}
		if !node.Set("latitude") {
			l.Log.Printf("node %s has no geospatial info", nodeID)
		}

		if pagent, ok := pagents[node.Str("platform_agent_type")]; ok {
			node["instrument_agent_rt"] = pagent.Str("rt_data_path") == "Direct"
			node["data_agent_rt"] = pagent.Str("rt_data_path") == "File Transfer"
			node["data_agent_recovery"] = pagent.Str("rt_data_acquisition") == "Partial"
		}

		if !node.Set("deployment_start") {
			l.Log.Printf("node %s missing from mapping workbook deployment columns", nodeID)
		}
		// SAF date comes from the subsite when the node itself is not in the
		// SAF export.
		safSource := node.Str("First Deployment Date")
		if !node.Bool("in_saf") {
			safSource = ""
			if sub, ok := subsites[d.Subsite]; ok {
				safSource = sub.Str("First Deployment Date")
			}
		}
		safDate, _ := ParseDate(safSource, DefaultMaxDate)
		node["SAF_deploy_date"] = safDate
		deployDate, _ := ParseDate(node.Str("deployment_start"), safDate)
		node["deploy_date"] = deployDate
	}
}

// aggregateChildGeo sets a node's latitude, longitude and depth range to the
// "min,max" span of its child nodes' coordinates.
func (l *Loader) aggregateChildGeo(nodeID string, node Object) {
	nodes := l.TypeAssets("node")
	var lats, lons, deps []float64
	for _, childID := range l.childDevices[nodeID] {
		child, ok := nodes[childID]
		if !ok {
			continue
		}
		if v, ok := objFloat(child, "latitude"); ok {
			lats = append(lats, v)
		}
		if v, ok := objFloat(child, "longitude"); ok {
			lons = append(lons, v)
		}
		if v, ok := objFloat(child, "depth_subsite"); ok {
			deps = append(deps, v)
		}
	}
	if !node.Set("latitude") && len(lats) > 0 {
		node["latitude"] = spanString(lats)
	}
	if !node.Set("longitude") && len(lons) > 0 {
		node["longitude"] = spanString(lons)
	}
	if !node.Set("depth_subsite") && len(deps) > 0 {
		node["depth_subsite"] = spanString(deps)
	}
}

func spanString(vals []float64) string {
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return strconv.FormatFloat(lo, 'f', -1, 64) + "," + strconv.FormatFloat(hi, 'f', -1, 64)
}

// checkSeriesMapped flags series the mapping workbook never covered.
func (l *Loader) checkSeriesMapped() {
	series := l.TypeAssets("series")
	for _, id := range sortedIDs(series) {
		if _, ok := series[id]["tier1"]; !ok {
			l.Log.Printf("series %s missing from mapping workbook", id)
		}
	}
}

// enrichInstruments resolves instrument deployment dates and inherits
// geospatial values from the hosting node.
func (l *Loader) enrichInstruments() {
	insts := l.TypeAssets("instrument")
	nodes := l.TypeAssets("node")

	for _, instID := range sortedIDs(insts) {
		inst := insts[instID]
		safDate, _ := ParseDate(inst.Str("First Deployment Date"), DefaultMaxDate)
		inst["SAF_deploy_date"] = safDate
		deployDate, _ := ParseDate(inst.Str("deployment_start"), safDate)
		inst["deploy_date"] = deployDate

		d, err := rd.Parse(instID)
		if err != nil || d.Subtype != rd.SubtypeInstrument {
			l.warnf(instID, "instrument %s is not a valid instrument designator", instID)
			continue
		}
		node, ok := nodes[d.Node]
		if !ok {
			l.warnf(instID, "instrument %s: node %s not found", instID, d.Node)
			continue
		}

		if !inst.Set("latitude") && node.Set("latitude") {
			inst["latitude"] = node["latitude"]
		}
		if !inst.Set("longitude") && node.Set("longitude") {
			inst["longitude"] = node["longitude"]
		}
		// A node depth of "min,max" splits into the port depth range; a
		// single value serves as both ends.
		if depth := node.Str("depth_subsite"); depth != "" {
			parts := strings.SplitN(depth, ",", 2)
			if !inst.Set("depth_port_min") {
				inst["depth_port_min"] = parts[0]
			}
			if !inst.Set("depth_port_max") {
				inst["depth_port_max"] = parts[len(parts)-1]
			}
		}
	}
}
