package rd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAssetHierarchy(t *testing.T) {
	d, err := Parse("CE")
	require.NoError(t, err)
	require.Equal(t, TypeAsset, d.Type)
	require.Equal(t, SubtypeArray, d.Subtype)

	d, err = Parse("CE02")
	require.NoError(t, err)
	require.Equal(t, SubtypeSite, d.Subtype)
	require.Equal(t, "CE", d.Array)

	d, err = Parse("CE02SHSM")
	require.NoError(t, err)
	require.Equal(t, SubtypeSubsite, d.Subtype)
	require.Equal(t, "CE02", d.Site)
	require.Equal(t, "CE02SHSM", d.Subsite)
}

func TestParseNodeAndPort(t *testing.T) {
	d, err := Parse("CE02SHSM-SBD11")
	require.NoError(t, err)
	require.Equal(t, SubtypeNode, d.Subtype)
	require.Equal(t, "CE02SHSM-SBD11", d.Node)
	require.Equal(t, "SBD11", d.NodeCode)
	require.Equal(t, "SB", d.NodeType)

	d, err = Parse("CE02SHSM-SBD11-08")
	require.NoError(t, err)
	require.Equal(t, SubtypePort, d.Subtype)
	require.Equal(t, "08", d.PortCode)
	require.Equal(t, "CE02SHSM-SBD11", d.Node)
}

func TestParseInstrument(t *testing.T) {
	d, err := Parse("CE02SHSM-SBD11-08-OPTAAD000")
	require.NoError(t, err)
	require.Equal(t, SubtypeInstrument, d.Subtype)
	require.Equal(t, "CE02SHSM", d.Subsite)
	require.Equal(t, "CE02SHSM-SBD11", d.Node)
	require.Equal(t, "CE02SHSM-SBD11-08", d.Port)
	require.Equal(t, "OPTAAD000", d.Inst)
	require.Equal(t, "OPTAA", d.InstClass)
	require.Equal(t, "D", d.InstSeries)
	require.Equal(t, "OPTAAD", d.SeriesRD)
}

func TestParseClassAndDataProduct(t *testing.T) {
	d, err := Parse("OPTAA")
	require.NoError(t, err)
	require.Equal(t, TypeInstClass, d.Type)
	require.Equal(t, "OPTAA", d.InstClass)

	d, err = Parse("DENSITY")
	require.NoError(t, err)
	require.Equal(t, TypeDataProduct, d.Type)
	require.Equal(t, "DENSITY", d.DPType)
	require.Equal(t, "", d.Subtype)

	d, err = Parse("DENSITY_L2")
	require.NoError(t, err)
	require.Equal(t, SubtypeLevel, d.Subtype)
	require.Equal(t, "DENSITY", d.DPType)
	require.Equal(t, "L2", d.DPLevel)
}

func TestParseUnrecognized(t *testing.T) {
	for _, s := range []string{"", "ce02shsm", "CE02SHSM-SB", "X", "CE02SHSM-SBD11-08-OPTAAD00"} {
		if _, err := Parse(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestMarineIO(t *testing.T) {
	require.Equal(t, "RSN", MarineIO("RS01SBPS"))
	require.Equal(t, "CG", MarineIO("CE02SHSM"))
	require.Equal(t, "EA", MarineIO("EA"))
	require.Equal(t, "", MarineIO("bogus"))
}
