package mdk

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/marinedk/mdk/rd"
	"github.com/pkg/errors"
)

// ReportLine is one line of the readiness report at an importance level.
// Level 0 is the summary skeleton; higher levels add detail.
type ReportLine struct {
	Level int
	Text  string
}

// DeployedInstrument captures the agent-readiness facts of one instrument
// that falls inside the analysis cutoff.
type DeployedInstrument struct {
	IsData         bool
	AgentCode      string
	Series         string
	PlatformType   string
	SeriesPlatform string
	IAType         string
	DAType         string
	IAReady        bool
	IAActive       bool
	DAReady        bool
	DAActive       bool
}

// Report is the result of one deployment analysis run.
type Report struct {
	Cutoff *time.Time
	Lines  []ReportLine

	Platforms        map[string]Object
	Instruments      map[string]DeployedInstrument
	PostponedCount   int
	DataProducts     map[string][]string
	DataProductTypes map[string][]string
	Counts           map[string]int
}

// Render returns the report text including lines up to maxLevel.
func (r *Report) Render(maxLevel int) string {
	var b strings.Builder
	for _, line := range r.Lines {
		if line.Level > maxLevel {
			continue
		}
		b.WriteString(line.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

// Analyze walks the extracted graph and determines which platforms, nodes
// and instruments are deployed by the cutoff date (nil means program end),
// resolving the agent serving each and its readiness. Node deployment dates
// are clamped up to their platform's date first; instrument dates combine
// series availability and the hosting node's date. Analyze mutates
// deploy_date attributes and must run after Extract.
func (l *Loader) Analyze(cutoff *time.Time) (*Report, error) {
	if !l.extracted {
		return nil, errors.New("analyze requires a completed extraction")
	}
	nodes := l.TypeAssets("node")
	nodetypes := l.TypeAssets("nodetype")
	insts := l.TypeAssets("instrument")
	series := l.TypeAssets("series")

	rep := &Report{
		Cutoff:           cutoff,
		Platforms:        map[string]Object{},
		Instruments:      map[string]DeployedInstrument{},
		DataProducts:     map[string][]string{},
		DataProductTypes: map[string][]string{},
		Counts:           map[string]int{"platform": 0, "node": 0, "instd": 0, "insti": 0},
	}
	dpTypeSeries := map[string]map[string]bool{}

	// Pass 1: clamp child node dates up to their platform's, build the
	// parent-child hierarchy, select deployed platforms, and roll minimum
	// dates up to node types.
	platformChildren := map[string][]string{}
	for _, nodeID := range sortedIDs(nodes) {
		node := nodes[nodeID]
		platformID := node.Str("platform_id")
		platform, ok := nodes[platformID]
		if !ok {
			l.warnf(nodeID, "node %s: platform %s not found", nodeID, platformID)
			continue
		}
		nodeDate, _ := node.Date("deploy_date")
		platformDate, _ := platform.Date("deploy_date")
		if nodeDate.Before(platformDate) {
			node["deploy_date"] = platformDate
		}

		if parentID := node.Str("parent_id"); parentID != "" && parentID != nodeID {
			platformChildren[parentID] = append(platformChildren[parentID], nodeID)
		}

		if cutoff == nil || !nodeDate.After(*cutoff) {
			if nodeID == platformID {
				rep.Platforms[nodeID] = node
				rep.Counts["platform"]++
			}
		}

		if len(nodeID) >= 11 {
			if nt, ok := nodetypes[nodeID[9:11]]; ok {
				cur, has := nt.Date("deploy_date")
				if !has {
					cur = DefaultMaxDate
				}
				date, _ := node.Date("deploy_date")
				nt["deploy_date"] = minDate(date, cur)
			}
		}
	}
	for _, children := range platformChildren {
		sort.Strings(children)
	}

	// Pass 2: resolve instrument deploy dates from series availability and
	// hosting node, roll minimum dates up to series.
	for _, instID := range sortedIDs(insts) {
		inst := insts[instID]
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
		deployDate, _ := inst.Date("deploy_date")
		if seriesObj, ok := series[d.SeriesRD]; ok {
			if firstAvail, has := seriesObj.Date("first_avail"); has {
				deployDate = maxDate(deployDate, firstAvail)
			} else {
				// Not in the availability overrides: treat as unavailable.
				deployDate = DefaultMaxDate
			}
			nodeDate, _ := node.Date("deploy_date")
			deployDate = maxDate(deployDate, nodeDate)
			inst["deploy_date"] = deployDate
			cur, has := seriesObj.Date("deploy_date")
			if !has {
				cur = DefaultMaxDate
			}
			seriesObj["deploy_date"] = minDate(deployDate, cur)
		} else {
			l.warnf(instID, "instrument %s: series %s not found", instID, d.SeriesRD)
		}
	}

	// Compose the report: platforms ordered by (deploy date, name), each
	// followed by its instruments and its node subtree.
	header := "ASSET REPORT - DEPLOYMENT UNTIL PROGRAM END"
	if cutoff != nil {
		header = "ASSET REPORT - DEPLOYMENT UNTIL " + cutoff.Format("2006-01-02")
	}
	rep.line(0, header)
	rep.line(0, "Platforms by deployment date:")

	platformList := make([]Object, 0, len(rep.Platforms))
	for _, p := range rep.Platforms {
		platformList = append(platformList, p)
	}
	sort.Slice(platformList, func(i, j int) bool {
		di, _ := platformList[i].Date("deploy_date")
		dj, _ := platformList[j].Date("deploy_date")
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return platformList[i].Str("name") < platformList[j].Str("name")
	})

	for _, platform := range platformList {
		platformID := platform.ID()
		acode, isData := l.reportAgent(platformID)
		instLines, instSeries := l.followInstruments(rep, dpTypeSeries, l.instrumentsOn(platformID), 0)
		date, _ := platform.Date("deploy_date")
		rep.line(0, fmt.Sprintf("  %s %s %s %s: %s %s (%s)",
			date.Format("2006-01-02"), platformID, platform.Str("name"),
			platform.Str("platform_agent_type"), agentKind(isData, "DA", "PA"), acode,
			strings.Join(instSeries, ", ")))
		rep.Lines = append(rep.Lines, instLines...)

		if err := l.followChildNodes(rep, dpTypeSeries, platformChildren, platformID); err != nil {
			return nil, err
		}
	}

	l.summarize(rep, dpTypeSeries)
	return rep, nil
}

func (r *Report) line(level int, text string) {
	r.Lines = append(r.Lines, ReportLine{Level: level, Text: text})
}

func agentKind(isData bool, data, direct string) string {
	if isData {
		return data
	}
	return direct
}

// reportAgent resolves a node's or instrument's agent code for the report,
// degrading to "undefined" when resolution fails.
func (l *Loader) reportAgent(id string) (acode string, isData bool) {
	d, err := rd.Parse(id)
	if err != nil {
		return "undefined", false
	}
	isData = IsDataAgent(d)
	code, err := l.AgentCode(d)
	if err != nil || code == "" {
		return "undefined", isData
	}
	return code, isData
}

// followInstruments renders and records the instruments on one node. The
// returned series list is sorted and deduplicated.
func (l *Loader) followInstruments(rep *Report, dpTypeSeries map[string]map[string]bool, instIDs []string, level int) ([]ReportLine, []string) {
	insts := l.TypeAssets("instrument")
	instagents := l.TypeAssets("instagent")
	dataagents := l.TypeAssets("dataagent")
	nodes := l.TypeAssets("node")

	var lines []ReportLine
	seriesSet := map[string]bool{}
	for _, instID := range instIDs {
		inst := insts[instID]
		d, err := rd.Parse(instID)
		if err != nil {
			continue
		}
		patype := ""
		if node, ok := nodes[d.Node]; ok {
			patype = node.Str("platform_agent_type")
		}
		deployDate, has := inst.Date("deploy_date")
		if !has {
			deployDate = DefaultMaxDate
		}

		acode, isData := l.reportAgent(instID)
		di := DeployedInstrument{
			IsData:         isData,
			AgentCode:      acode,
			Series:         d.SeriesRD,
			PlatformType:   patype,
			SeriesPlatform: patype + ":" + d.SeriesRD,
		}
		var qualifiers []string
		if isData {
			di.DAType = acode
			if agent, ok := dataagents[acode]; ok {
				di.DAReady = agent.Bool("present")
				di.DAActive = agent.Bool("active")
			}
			if acode != "undefined" && !di.DAReady {
				qualifiers = append(qualifiers, "NOT_READY")
			}
			if acode != "undefined" && !di.DAActive {
				qualifiers = append(qualifiers, "NOT_ACTIVE")
			}
		} else {
			di.IAType = acode
			if agent, ok := instagents[acode]; ok {
				di.IAReady = agent.Bool("present")
				di.IAActive = agent.Bool("active")
			}
			if acode != "undefined" && !di.IAReady {
				qualifiers = append(qualifiers, "NOT_READY")
			}
			if acode != "undefined" && !di.IAActive {
				qualifiers = append(qualifiers, "NOT_ACTIVE")
			}
		}

		if rep.Cutoff == nil || !deployDate.After(*rep.Cutoff) {
			rep.Instruments[instID] = di
			rep.Counts["instd"]++
			seriesSet[d.SeriesRD] = true
		} else {
			qualifiers = append([]string{"DEPLOY_POSTPONED"}, qualifiers...)
			rep.PostponedCount++
			rep.Counts["insti"]++
		}
		lines = append(lines, ReportLine{Level: 2, Text: fmt.Sprintf("%s               +-%s: %s %s (%s)",
			strings.Repeat("  ", level), instID, agentKind(isData, "DA", "IA"), acode,
			strings.Join(qualifiers, ", "))})

		// Data products aggregate for postponed instruments too; product
		// planning ignores the cutoff.
		for _, dp := range inst.Strs("data_product_list") {
			rep.DataProducts[dp] = append(rep.DataProducts[dp], instID)
			if i := strings.LastIndex(dp, "_"); i > 0 {
				dpt := dp[:i]
				if dpTypeSeries[dpt] == nil {
					dpTypeSeries[dpt] = map[string]bool{}
				}
				dpTypeSeries[dpt][d.SeriesRD] = true
			}
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Text < lines[j].Text })
	return lines, sortedKeys(seriesSet)
}

// followChildNodes walks a platform's node subtree iteratively, depth first,
// rendering each node inside the cutoff. A repeated node means the
// parent-child hierarchy has a cycle, which is fatal.
func (l *Loader) followChildNodes(rep *Report, dpTypeSeries map[string]map[string]bool, platformChildren map[string][]string, platformID string) error {
	nodes := l.TypeAssets("node")

	type frame struct {
		id    string
		level int
	}
	stack := make([]frame, 0, len(platformChildren[platformID]))
	for i := len(platformChildren[platformID]) - 1; i >= 0; i-- {
		stack = append(stack, frame{platformChildren[platformID][i], 0})
	}
	visited := map[string]bool{}

	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[fr.id] {
			return errors.Errorf("platform %s: cycle in node hierarchy at %s", platformID, fr.id)
		}
		visited[fr.id] = true

		node, ok := nodes[fr.id]
		if !ok {
			l.warnf(fr.id, "platform %s: child node %s not found", platformID, fr.id)
			continue
		}
		deployDate, has := node.Date("deploy_date")
		if !has {
			deployDate = DefaultMaxDate
		}
		if rep.Cutoff != nil && deployDate.After(*rep.Cutoff) {
			continue
		}
		rep.Counts["node"]++

		acode, isData := l.reportAgent(fr.id)
		instLines, instSeries := l.followInstruments(rep, dpTypeSeries, l.instrumentsOn(fr.id), fr.level)
		rep.line(1, fmt.Sprintf("%s             +-%s %s %s: %s %s (%s)",
			strings.Repeat("  ", fr.level), fr.id, node.Str("name"),
			node.Str("platform_agent_type"), agentKind(isData, "DA", "PA"), acode,
			strings.Join(instSeries, ", ")))
		rep.Lines = append(rep.Lines, instLines...)

		children := platformChildren[fr.id]
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{children[i], fr.level + 1})
		}
	}
	return nil
}

// instrumentsOn lists the instrument ids hosted on a node, sorted.
func (l *Loader) instrumentsOn(nodeID string) []string {
	var out []string
	for _, childID := range l.childDevices[nodeID] {
		if _, ok := l.TypeAssets("instrument")[childID]; ok {
			out = append(out, childID)
		}
	}
	return out
}

// summarize appends the aggregate counts and unique-set lines.
func (l *Loader) summarize(rep *Report, dpTypeSeries map[string]map[string]bool) {
	rep.line(0, "Asset Counts:")
	rep.line(0, fmt.Sprintf("  Platforms: %d", len(rep.Platforms)))
	rep.line(1, fmt.Sprintf("    Assembly/component nodes: %d", rep.Counts["node"]))
	rep.line(1, fmt.Sprintf("    Instruments (deployed): %d", len(rep.Instruments)))
	rep.line(1, fmt.Sprintf("    Instruments (postponed): %d", rep.Counts["insti"]))

	allSeries := rep.uniqueSeries(nil)
	rep.line(0, fmt.Sprintf("  Instrument models (unique): (%d) %s", len(allSeries), strings.Join(allSeries, ",")))
	iaSeries := rep.uniqueSeries(func(di DeployedInstrument) bool { return !di.IsData })
	rep.line(0, fmt.Sprintf("  Instrument models (RT inst agent): (%d) %s", len(iaSeries), strings.Join(iaSeries, ",")))
	daSeries := rep.uniqueSeries(func(di DeployedInstrument) bool { return di.IsData })
	rep.line(0, fmt.Sprintf("  Instrument models (RT data agent): (%d) %s", len(daSeries), strings.Join(daSeries, ",")))

	iaTypes := rep.uniqueAgents(false)
	rep.line(0, fmt.Sprintf("  Instrument agent types: (%d) %s", len(iaTypes), strings.Join(iaTypes, ",")))
	readyTypes := rep.uniqueAgentsWhere(false, func(di DeployedInstrument) bool { return di.IAReady })
	rep.line(0, fmt.Sprintf("    Ready types: (%d) %s", len(readyTypes), strings.Join(readyTypes, ",")))
	daTypes := rep.uniqueAgents(true)
	rep.line(0, fmt.Sprintf("  RT data agent types: (%d) %s", len(daTypes), strings.Join(daTypes, ",")))

	combos := map[string]bool{}
	patypes := map[string]bool{}
	for _, di := range rep.Instruments {
		if di.SeriesPlatform != "" {
			combos[di.SeriesPlatform] = true
		}
		if di.PlatformType != "" {
			patypes[di.PlatformType] = true
		}
	}
	rep.line(0, fmt.Sprintf("  Instrument model x Platform type combinations: %d", len(combos)))
	for _, patype := range sortedKeys(patypes) {
		pt := patype
		series := rep.uniqueSeries(func(di DeployedInstrument) bool { return di.PlatformType == pt })
		rep.line(1, fmt.Sprintf("    %s: (%d) %s", patype, len(series), strings.Join(series, ",")))
	}

	dptNames := make([]string, 0, len(dpTypeSeries))
	for dpt, set := range dpTypeSeries {
		dptNames = append(dptNames, dpt)
		rep.DataProductTypes[dpt] = sortedKeys(set)
	}
	sort.Strings(dptNames)
	rep.line(0, fmt.Sprintf("  Data product types: (%d) %s", len(dpTypeSeries), strings.Join(dptNames, ",")))
	dpNames := make([]string, 0, len(rep.DataProducts))
	for dp := range rep.DataProducts {
		dpNames = append(dpNames, dp)
	}
	sort.Strings(dpNames)
	rep.line(0, fmt.Sprintf("  Data product variants: (%d) %s", len(rep.DataProducts), strings.Join(dpNames, ",")))
}

func (rep *Report) uniqueSeries(filter func(DeployedInstrument) bool) []string {
	set := map[string]bool{}
	for _, di := range rep.Instruments {
		if di.Series == "" {
			continue
		}
		if filter != nil && !filter(di) {
			continue
		}
		set[di.Series] = true
	}
	return sortedKeys(set)
}

func (rep *Report) uniqueAgents(data bool) []string {
	return rep.uniqueAgentsWhere(data, nil)
}

func (rep *Report) uniqueAgentsWhere(data bool, filter func(DeployedInstrument) bool) []string {
	set := map[string]bool{}
	for _, di := range rep.Instruments {
		if di.IsData != data {
			continue
		}
		if filter != nil && !filter(di) {
			continue
		}
		code := di.IAType
		if data {
			code = di.DAType
		}
		if code == "" || code == "undefined" {
			continue
		}
		set[code] = true
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
