package mdk

import (
	"sort"
	"strings"

	"github.com/marinedk/mdk/rd"
	"github.com/pkg/errors"
)

// cabledSubsites are the coastal subsites wired into the cabled network
// despite living under a coastal array code.
var cabledSubsites = map[string]bool{
	"CE02SHBP": true,
	"CE04OSBP": true,
	"CE04OSHY": true,
}

// selfLoggingClasses are instrument classes that record to local storage
// even on cabled infrastructure, so their data arrives via a dataset agent.
var selfLoggingClasses = map[string]bool{
	"HYDBB": true,
	"HYDLF": true,
	"OBSBB": true,
	"OBSBK": true,
	"OBSSP": true,
	"FLOBN": true,
	"OSMOI": true,
}

// IsCabled reports whether the designator sits on the cabled infrastructure.
func IsCabled(d *rd.Designator) bool {
	return d.MarineIO() == "RSN" || cabledSubsites[d.Subsite]
}

// IsDataAgent reports whether the asset's data arrives through a dataset
// agent rather than a live instrument agent. Everything uncabled does;
// cabled assets only when the instrument class is self-logging.
func IsDataAgent(d *rd.Designator) bool {
	if !IsCabled(d) {
		return true
	}
	return selfLoggingClasses[d.InstClass]
}

// AgentCode resolves the agent code serving an instrument or node
// designator. Agent-map prefix entries take precedence; otherwise
// instruments fall back to their series' dataset or instrument agent code
// and nodes to their node type's platform agent code or a derived default.
func (l *Loader) AgentCode(d *rd.Designator) (string, error) {
	if d.Type != rd.TypeAsset {
		return "", errors.Errorf("agent code needs an instrument or node designator: %s", d.RD)
	}

	var agentMap []interface{}
	var seriesObj, nodetypeObj Object
	switch d.Subtype {
	case rd.SubtypeInstrument:
		obj, ok := l.TypeAssets("series")[d.SeriesRD]
		if !ok {
			return "", errors.Errorf("instrument %s: series %s not found", d.RD, d.SeriesRD)
		}
		seriesObj = obj
		agentMap = obj.List("agentmap")
	case rd.SubtypeNode:
		obj, ok := l.TypeAssets("nodetype")[d.NodeType]
		if !ok {
			return "", errors.Errorf("node %s: node type %s not found", d.RD, d.NodeType)
		}
		nodetypeObj = obj
		agentMap = obj.List("agentmap")
	default:
		return "", errors.Errorf("agent code needs an instrument or node designator: %s", d.RD)
	}

	for _, entry := range agentMap {
		ref, ok := entry.(AgentRef)
		if !ok {
			continue
		}
		if strings.HasPrefix(d.RD, ref.Prefix) {
			return ref.Code, nil
		}
	}

	isDA := IsDataAgent(d)
	if d.Subtype == rd.SubtypeInstrument {
		if isDA {
			return seriesObj.Str("dart_code"), nil
		}
		return seriesObj.Str("ia_code"), nil
	}
	if pa := nodetypeObj.Str("pa_code"); pa != "" {
		return pa, nil
	}
	if isDA {
		return "DART_" + d.NodeType, nil
	}
	return d.NodeType, nil
}

// OrgIDs maps the designators' marine implementing organizations to the
// owning facility org ids, deduplicated, sorted and comma-joined.
func OrgIDs(rds []string) string {
	orgs := map[string]bool{}
	for _, s := range rds {
		switch rd.MarineIO(s) {
		case "CG":
			orgs["MF_CGSN"] = true
		case "RSN":
			orgs["MF_RSN"] = true
		case "EA":
			orgs["MF_EA"] = true
		}
	}
	out := make([]string, 0, len(orgs))
	for org := range orgs {
		out = append(out, org)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}
