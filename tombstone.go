package mdk

import "strings"

// assetDocTypes are the registry document types owned by an asset load. A
// reload tombstones all of them plus the associations touching them.
var assetDocTypes = map[string]bool{
	"InstrumentModel":         true,
	"PlatformModel":           true,
	"Observatory":             true,
	"Subsite":                 true,
	"PlatformSite":            true,
	"InstrumentSite":          true,
	"InstrumentAgent":         true,
	"InstrumentAgentInstance": true,
	"InstrumentDevice":        true,
	"PlatformAgent":           true,
	"PlatformAgentInstance":   true,
	"PlatformDevice":          true,
	"Deployment":              true,
	"DataProduct":             true,
}

// Doc is one registry document. "_id" and "_rev" identify the stored
// revision; "type_" carries the resource type.
type Doc map[string]interface{}

func (d Doc) str(key string) string {
	s, _ := d[key].(string)
	return s
}

// Tombstone returns the deletion marker for a document: id and revision
// preserved, everything else replaced by the deleted flag.
func Tombstone(d Doc) Doc {
	return Doc{"_id": d.str("_id"), "_rev": d.str("_rev"), "_deleted": true}
}

// Tombstones selects the asset-owned documents and their associations from
// docs and returns tombstoned copies of both sets, keyed by document id.
// Design documents and documents without a type are ignored. An association
// is tombstoned when either its subject or object is. The input documents
// are not modified; applying the result to a store is the caller's business.
func Tombstones(docs map[string]Doc) (objs, assocs map[string]Doc) {
	objs = map[string]Doc{}
	assocs = map[string]Doc{}

	deleted := map[string]bool{}
	for id, doc := range docs {
		if skipDoc(id, doc) {
			continue
		}
		if assetDocTypes[doc.str("type_")] {
			objs[id] = Tombstone(doc)
			deleted[id] = true
		}
	}
	for id, doc := range docs {
		if skipDoc(id, doc) || doc.str("type_") != "Association" {
			continue
		}
		if deleted[doc.str("s")] || deleted[doc.str("o")] {
			assocs[id] = Tombstone(doc)
		}
	}
	return objs, assocs
}

func skipDoc(id string, doc Doc) bool {
	return strings.HasPrefix(id, "_design") || doc == nil
}
