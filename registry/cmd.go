package registry

import (
	"log"

	"github.com/marinedk/mdk"
	"github.com/pkg/errors"
)

// Main contains the configuration for tombstoning a registry's asset
// documents ahead of a reload.
type Main struct {
	Store   string `help:"Registry database file to tombstone."`
	Backend string `help:"Registry backend: bolt or leveldb."`
	DryRun  bool   `help:"Report what would be tombstoned without writing."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		Backend: "bolt",
	}
}

// Run computes the tombstone set over every document in the store and
// applies it.
func (m *Main) Run() error {
	store, err := Open(m.Backend, m.Store)
	if err != nil {
		return errors.Wrap(err, "opening registry store")
	}
	defer store.Close()

	docs, err := ReadDocs(store)
	if err != nil {
		return errors.Wrap(err, "reading registry docs")
	}
	objs, assocs := mdk.Tombstones(docs)
	log.Printf("tombstoning %d resources and %d associations", len(objs), len(assocs))
	if m.DryRun {
		return nil
	}
	if err := ApplyTombstones(store, objs); err != nil {
		return errors.Wrap(err, "applying resource tombstones")
	}
	return errors.Wrap(ApplyTombstones(store, assocs), "applying association tombstones")
}
