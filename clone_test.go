package mdk

import (
	"strings"
	"testing"

	"github.com/marinedk/mdk/test"
)

func seedCloneSource(t *testing.T, l *Loader) {
	t.Helper()
	err := l.put("node", "CE02SHSM-SBD11", "", nil, Static(Object{
		"platform_id":      "CE02SHSM-SBD11",
		"parent_id":        "",
		"deployment_start": "2015-06-01",
		"in_mapping":       true,
		"in_saf":           true,
		"name":             "source buoy",
		"latitude":         "44.64",
		"longitude":        "-124.3",
	}))
	test.ErrNil(t, err, "seed source node")
	err = l.put("instrument", "CE02SHSM-SBD11-08-OPTAAD000", "", nil, Static(Object{
		"instrument_model": "OPTAAD",
		"makemodel":        "AC-S",
	}))
	test.ErrNil(t, err, "seed source instrument")
}

func TestExpandClonesNode(t *testing.T) {
	l := NewLoader()
	seedCloneSource(t, l)
	err := l.put("node", "CE04OSSM-SBD11", "", nil, Static(Object{
		"platform_id":      "CE04OSSM-SBD11",
		"parent_id":        "",
		"clone_rd":         "CE02SHSM-SBD11",
		"deployment_start": "2019-01-01",
		"in_mapping":       true,
		"in_saf":           true,
	}))
	test.ErrNil(t, err, "seed clone target")
	test.ErrNil(t, l.postProcess(), "post process")

	target := l.TypeAssets("node")["CE04OSSM-SBD11"]
	// Attributes the target already carried survive the merge.
	test.MustBe(t, target.Str("deployment_start"), "2019-01-01", "target date kept")
	test.MustBe(t, target.Str("latitude"), "44.64", "missing attr copied")
	test.MustBe(t, target.ID(), "CE04OSSM-SBD11", "id survives merge")

	clone, ok := l.TypeAssets("instrument")["CE04OSSM-SBD11-08-OPTAAD000"]
	if !ok {
		t.Fatal("cloned instrument missing")
	}
	test.MustBe(t, clone.Str("makemodel"), "AC-S", "instrument attrs copied")

	// Original is untouched and the child index covers the clone.
	src := l.TypeAssets("instrument")["CE02SHSM-SBD11-08-OPTAAD000"]
	test.MustBe(t, src.ID(), "CE02SHSM-SBD11-08-OPTAAD000", "source unchanged")
	test.MustBe(t, l.ChildDevices()["CE04OSSM-SBD11"],
		[]string{"CE04OSSM-SBD11-08-OPTAAD000"}, "child index rebuilt")
}

func TestExpandClonesInstrument(t *testing.T) {
	l := NewLoader()
	seedCloneSource(t, l)
	err := l.put("instrument", "CE04OSSM-SBD11-08-OPTAAD000", "", nil, Static(Object{
		"clone_rd":         "CE02SHSM-SBD11-08-OPTAAD000",
		"deployment_start": "2019-02-01",
	}))
	test.ErrNil(t, err, "seed clone target")
	test.ErrNil(t, l.postProcess(), "post process")

	clone := l.TypeAssets("instrument")["CE04OSSM-SBD11-08-OPTAAD000"]
	test.MustBe(t, clone.Str("deployment_start"), "2019-02-01", "target date kept")
	test.MustBe(t, clone.Str("makemodel"), "AC-S", "source attr merged")
}

func TestExpandClonesMissingSourceWarns(t *testing.T) {
	l := NewLoader()
	err := l.put("node", "CE04OSSM-SBD11", "", nil, Static(Object{
		"platform_id": "CE04OSSM-SBD11",
		"clone_rd":    "GI01SUMO-SBD11",
		"in_mapping":  true,
		"in_saf":      true,
		"name":        "x",
		"latitude":    "60.0",
	}))
	test.ErrNil(t, err, "seed")
	test.ErrNil(t, l.postProcess(), "post process")

	found := false
	for _, w := range l.Warnings() {
		if strings.Contains(w.Msg, "clone node GI01SUMO-SBD11 not found") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected missing clone warning, got %v", l.Warnings())
	}
}

func TestExpandClonesChildNodeFatal(t *testing.T) {
	l := NewLoader()
	seedCloneSource(t, l)
	// Hang a child node off the clone source.
	err := l.put("node", "CE02SHSM-RID26", "", nil, Static(Object{
		"platform_id": "CE02SHSM-SBD11",
		"parent_id":   "CE02SHSM-SBD11",
		"in_mapping":  true,
		"in_saf":      true,
		"name":        "riser",
		"latitude":    "44.64",
	}))
	test.ErrNil(t, err, "seed child node")
	err = l.put("node", "CE04OSSM-SBD11", "", nil, Static(Object{
		"platform_id": "CE04OSSM-SBD11",
		"clone_rd":    "CE02SHSM-SBD11",
		"in_mapping":  true,
		"in_saf":      true,
	}))
	test.ErrNil(t, err, "seed target")

	err = l.postProcess()
	if err == nil || !strings.Contains(err.Error(), "cannot clone platform with child nodes") {
		t.Fatalf("expected child node error, got %v", err)
	}
}

func TestMergeMissing(t *testing.T) {
	dst := Object{"id": "a", "x": "set", "empty": ""}
	src := Object{"id": "b", "x": "other", "empty": "filled", "new": "v"}
	mergeMissing(dst, src)
	test.MustBe(t, dst.ID(), "a", "id kept")
	test.MustBe(t, dst.Str("x"), "set", "truthy value kept")
	test.MustBe(t, dst.Str("empty"), "filled", "empty value replaced")
	test.MustBe(t, dst.Str("new"), "v", "missing value copied")
}
