// Package registry persists extracted asset graphs as JSON documents in an
// embedded key/value store, bucketed by object type, and applies tombstone
// sets computed by the engine.
package registry

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/marinedk/mdk"
	"github.com/pkg/errors"
)

// Store is the persistence interface for registry documents. Buckets group
// documents by type; backends without native buckets encode the bucket into
// the key.
type Store interface {
	PutDoc(bucket, id string, doc []byte) error
	GetDoc(bucket, id string) ([]byte, error)
	DeleteDoc(bucket, id string) error
	AllDocs(fn func(bucket, id string, doc []byte) error) error
	Close() error
}

// Open opens a store of the named backend ("bolt" or "leveldb") at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "bolt":
		return OpenBolt(path)
	case "leveldb":
		return OpenLevel(path)
	}
	return nil, errors.Errorf("unknown registry backend %q", backend)
}

// docTypes maps graph object types to registry resource types. Types without
// an entry are dumped but never tombstoned.
var docTypes = map[string]string{
	"array":         "Observatory",
	"site":          "Subsite",
	"subsite":       "PlatformSite",
	"node":          "PlatformDevice",
	"instrument":    "InstrumentDevice",
	"nodetype":      "PlatformModel",
	"series":        "InstrumentModel",
	"instagent":     "InstrumentAgent",
	"dataagent":     "InstrumentAgent",
	"platformagent": "PlatformAgent",
	"data_product":  "DataProduct",
}

// Dump writes every object of the graph into the store, one JSON document
// per object under its type's bucket. Documents carry "_id" (bucket/id),
// "_rev" and, for resource types, "type_", so a later load can compute
// tombstones against them.
func Dump(s Store, g *mdk.Graph) error {
	for _, objType := range g.Types() {
		objs := g.TypeAssets(objType)
		ids := make([]string, 0, len(objs))
		for id := range objs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			doc := objs[id].Copy()
			doc["_id"] = objType + "/" + id
			doc["_rev"] = "1"
			if t, ok := docTypes[objType]; ok {
				doc["type_"] = t
			}
			buf, err := json.Marshal(doc)
			if err != nil {
				return errors.Wrapf(err, "marshaling %s %s", objType, id)
			}
			if err := s.PutDoc(objType, id, buf); err != nil {
				return errors.Wrapf(err, "storing %s %s", objType, id)
			}
		}
	}
	return nil
}

// ReadDocs loads every document of the store keyed by its "_id".
func ReadDocs(s Store) (map[string]mdk.Doc, error) {
	docs := map[string]mdk.Doc{}
	err := s.AllDocs(func(bucket, id string, buf []byte) error {
		doc := mdk.Doc{}
		if err := json.Unmarshal(buf, &doc); err != nil {
			return errors.Wrapf(err, "unmarshaling %s/%s", bucket, id)
		}
		docID, _ := doc["_id"].(string)
		if docID == "" {
			docID = bucket + "/" + id
		}
		docs[docID] = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// ApplyTombstones deletes each tombstoned document from its bucket and
// records the tombstone under the "tombstone" bucket.
func ApplyTombstones(s Store, stones map[string]mdk.Doc) error {
	ids := make([]string, 0, len(stones))
	for id := range stones {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		bucket, key := splitDocID(id)
		if bucket != "" {
			if err := s.DeleteDoc(bucket, key); err != nil {
				return errors.Wrapf(err, "deleting %s", id)
			}
		}
		buf, err := json.Marshal(stones[id])
		if err != nil {
			return errors.Wrapf(err, "marshaling tombstone %s", id)
		}
		if err := s.PutDoc("tombstone", id, buf); err != nil {
			return errors.Wrapf(err, "storing tombstone %s", id)
		}
	}
	return nil
}

func splitDocID(id string) (bucket, key string) {
	if i := strings.Index(id, "/"); i > 0 {
		return id[:i], id[i+1:]
	}
	return "", id
}
