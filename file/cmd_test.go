package file

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestReportMainCutoffPrecisions(t *testing.T) {
	dir, err := ioutil.TempDir("", "mdk-report")
	if err != nil {
		t.Fatalf("tempdir: %v", err)
	}
	defer os.RemoveAll(dir)

	writeFile(t, filepath.Join(dir, "NodeTypes.csv"),
		exportPreamble()+"LNodeType,Name\nSB,Surface Buoy\n")

	// Cutoff dates arrive at day, month, or year precision.
	for _, cutoff := range []string{"2015-06-01", "2015-06", "2015"} {
		m := NewReportMain()
		m.Path = dir
		m.Cutoff = cutoff
		if err := m.Run(); err != nil {
			t.Errorf("cutoff %q: %v", cutoff, err)
		}
	}

	m := NewReportMain()
	m.Path = dir
	m.Cutoff = "06/2015"
	if err := m.Run(); err == nil {
		t.Fatal("expected error for malformed cutoff")
	}
}
