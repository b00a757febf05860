// Package rd decomposes marine observatory reference designators into their
// typed components. A reference designator is a structured identifier which
// encodes an asset's position in the observatory hierarchy, e.g.
// "CE02SHSM-SBD11-08-OPTAAD000" names an instrument on port 08 of node SBD11
// at subsite CE02SHSM. Parsing is pure - no lookups, no state.
package rd

import (
	"regexp"

	"github.com/pkg/errors"
)

// Designator types.
const (
	TypeAsset       = "asset"
	TypeInstClass   = "inst_class"
	TypeDataProduct = "dataproduct"
)

// Asset subtypes (plus the data product "level" subtype).
const (
	SubtypeArray      = "array"
	SubtypeSite       = "site"
	SubtypeSubsite    = "subsite"
	SubtypeNode       = "node"
	SubtypePort       = "port"
	SubtypeInstrument = "instrument"
	SubtypeLevel      = "level"
)

var (
	arrayRe    = regexp.MustCompile(`^[A-Z0-9]{2}$`)
	siteRe     = regexp.MustCompile(`^[A-Z0-9]{4}$`)
	classRe    = regexp.MustCompile(`^[A-Z0-9]{5}$`)
	subsiteRe  = regexp.MustCompile(`^[A-Z0-9]{8}$`)
	nodeRe     = regexp.MustCompile(`^[A-Z0-9]{8}-[A-Z0-9]{5}$`)
	portRe     = regexp.MustCompile(`^[A-Z0-9]{8}-[A-Z0-9]{5}-[A-Z0-9]{2}$`)
	instRe     = regexp.MustCompile(`^[A-Z0-9]{8}-[A-Z0-9]{5}-[A-Z0-9]{2}-[A-Z0-9]{5}[A-Z0-9][0-9]{3}$`)
	dpTypeRe   = regexp.MustCompile(`^[A-Z0-9_]{7}$`)
	dpLevelRe  = regexp.MustCompile(`^[A-Z0-9_]{7}_L[0-9]$`)
)

// Designator is the decomposed form of a reference designator string. Only
// the fields implied by the subtype are populated; e.g. a subsite designator
// has no Node or Port parts.
type Designator struct {
	RD      string
	Type    string
	Subtype string

	// Asset hierarchy prefixes (cumulative designator strings).
	Array   string // first 2 chars
	Site    string // first 4 chars
	Subsite string // first 8 chars
	Node    string // subsite + node code (14 chars)
	Port    string // node + port code (17 chars)

	NodeCode string // 5-char node code
	NodeType string // first 2 chars of the node code
	PortCode string // 2-char port code

	Inst       string // 9-char instrument part (class+series+sequence)
	InstClass  string // 5-char instrument class
	InstSeries string // 1-char series code
	SeriesRD   string // class + series (6 chars)

	// Data product parts.
	DPType  string
	DPLevel string
}

// Parse decomposes s into a Designator. It returns an error when s matches
// none of the known designator shapes.
func Parse(s string) (*Designator, error) {
	d := &Designator{RD: s}
	switch {
	case arrayRe.MatchString(s):
		d.Type, d.Subtype = TypeAsset, SubtypeArray
		d.Array = s
	case siteRe.MatchString(s):
		d.Type, d.Subtype = TypeAsset, SubtypeSite
		d.Array, d.Site = s[:2], s
	case classRe.MatchString(s):
		d.Type = TypeInstClass
		d.InstClass = s
	case dpTypeRe.MatchString(s):
		d.Type = TypeDataProduct
		d.DPType = s
	case dpLevelRe.MatchString(s):
		d.Type, d.Subtype = TypeDataProduct, SubtypeLevel
		d.DPType, d.DPLevel = s[:7], s[8:]
	case subsiteRe.MatchString(s):
		d.Type, d.Subtype = TypeAsset, SubtypeSubsite
		d.fillSubsite(s)
	case nodeRe.MatchString(s):
		d.Type, d.Subtype = TypeAsset, SubtypeNode
		d.fillNode(s)
	case portRe.MatchString(s):
		d.Type, d.Subtype = TypeAsset, SubtypePort
		d.fillPort(s)
	case instRe.MatchString(s):
		d.Type, d.Subtype = TypeAsset, SubtypeInstrument
		d.fillPort(s[:17])
		d.Inst = s[18:]
		d.InstClass = s[18:23]
		d.InstSeries = s[23:24]
		d.SeriesRD = d.InstClass + d.InstSeries
	default:
		return nil, errors.Errorf("unrecognized reference designator: %q", s)
	}
	return d, nil
}

func (d *Designator) fillSubsite(s string) {
	d.Array, d.Site, d.Subsite = s[:2], s[:4], s[:8]
}

func (d *Designator) fillNode(s string) {
	d.fillSubsite(s[:8])
	d.Node = s[:14]
	d.NodeCode = s[9:14]
	d.NodeType = s[9:11]
}

func (d *Designator) fillPort(s string) {
	d.fillNode(s[:14])
	d.Port = s[:17]
	d.PortCode = s[15:17]
}

// MarineIO returns the marine implementing organization code for the
// designator's array: RSN for the cabled regional network, EA for
// engineering/test arrays, CG for the coastal/global networks.
func (d *Designator) MarineIO() string {
	switch {
	case len(d.Array) < 2:
		return ""
	case d.Array[:2] == "RS":
		return "RSN"
	case d.Array[:2] == "EA":
		return "EA"
	default:
		return "CG"
	}
}

// MarineIO parses s and reports its marine IO code, or "" when s is not a
// valid designator.
func MarineIO(s string) string {
	d, err := Parse(s)
	if err != nil {
		return ""
	}
	return d.MarineIO()
}
