package registry

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/marinedk/mdk"
)

// eachBackend runs fn against a fresh store of every backend.
func eachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()
	for _, backend := range []string{"bolt", "leveldb"} {
		t.Run(backend, func(t *testing.T) {
			dir, err := ioutil.TempDir("", "mdk-registry")
			if err != nil {
				t.Fatalf("tempdir: %v", err)
			}
			defer os.RemoveAll(dir)

			path := filepath.Join(dir, "registry.db")
			s, err := Open(backend, path)
			if err != nil {
				t.Fatalf("opening %s store: %v", backend, err)
			}
			defer s.Close()
			fn(t, s)
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("couch", "x"); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		if err := s.PutDoc("node", "CE02SHSM-SBD11", []byte(`{"name":"buoy"}`)); err != nil {
			t.Fatalf("put: %v", err)
		}
		buf, err := s.GetDoc("node", "CE02SHSM-SBD11")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if string(buf) != `{"name":"buoy"}` {
			t.Fatalf("got %q", buf)
		}

		// Missing documents are nil, not an error.
		buf, err = s.GetDoc("node", "nope")
		if err != nil || buf != nil {
			t.Fatalf("missing doc: %q, %v", buf, err)
		}

		if err := s.DeleteDoc("node", "CE02SHSM-SBD11"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		buf, err = s.GetDoc("node", "CE02SHSM-SBD11")
		if err != nil || buf != nil {
			t.Fatalf("deleted doc still present: %q, %v", buf, err)
		}
	})
}

func TestDumpAndTombstone(t *testing.T) {
	eachBackend(t, func(t *testing.T, s Store) {
		g := mdk.NewGraph()
		if err := g.Put("instrument", "CE02SHSM-SBD11-08-OPTAAD000", "name", "AC-S"); err != nil {
			t.Fatalf("put: %v", err)
		}
		if err := g.Put("node", "CE02SHSM-SBD11", "name", "buoy"); err != nil {
			t.Fatalf("put: %v", err)
		}
		// Grouping objects have no resource type and never get tombstoned.
		if err := g.Put("ssite", "Oregon Shelf SM", "name", "Oregon Shelf SM"); err != nil {
			t.Fatalf("put: %v", err)
		}
		if err := Dump(s, g); err != nil {
			t.Fatalf("dump: %v", err)
		}

		docs, err := ReadDocs(s)
		if err != nil {
			t.Fatalf("read docs: %v", err)
		}
		if len(docs) != 3 {
			t.Fatalf("expected 3 docs, got %v", docs)
		}
		inst := docs["instrument/CE02SHSM-SBD11-08-OPTAAD000"]
		if inst == nil {
			t.Fatalf("instrument doc missing: %v", docs)
		}
		if got, _ := inst["type_"].(string); got != "InstrumentDevice" {
			t.Fatalf("instrument type_: %q", got)
		}
		if _, ok := docs["ssite/Oregon Shelf SM"]["type_"]; ok {
			t.Fatal("grouping doc should have no resource type")
		}

		objs, assocs := mdk.Tombstones(docs)
		if len(objs) != 2 || len(assocs) != 0 {
			t.Fatalf("tombstones: %d objs, %d assocs", len(objs), len(assocs))
		}
		if err := ApplyTombstones(s, objs); err != nil {
			t.Fatalf("apply: %v", err)
		}

		// The live document is gone; the tombstone records the deletion.
		buf, err := s.GetDoc("instrument", "CE02SHSM-SBD11-08-OPTAAD000")
		if err != nil || buf != nil {
			t.Fatalf("live doc survived: %q, %v", buf, err)
		}
		buf, err = s.GetDoc("tombstone", "instrument/CE02SHSM-SBD11-08-OPTAAD000")
		if err != nil || buf == nil {
			t.Fatalf("tombstone missing: %v", err)
		}
		buf, err = s.GetDoc("ssite", "Oregon Shelf SM")
		if err != nil || buf == nil {
			t.Fatalf("untombstoned doc missing: %v", err)
		}
	})
}
