package mdk

import "io"

// Row is one raw input row: a mapping from column name to string value.
// Empty cells are absent - lookups of missing columns yield "".
type Row map[string]string

// Source is the interface for getting rows of one category one at a time.
// Row returns io.EOF after the last row.
type Source interface {
	Row() (Row, error)
}

// Catalog resolves a category name to a Source of its rows. Category names
// prefixed "MAP:" come from the mapping workbook; all others come from
// per-category export files. Acquisition of the raw bytes (local files, S3
// objects, workbook unpacking) is entirely the Catalog's concern.
type Catalog interface {
	Open(category string) (Source, error)
}

// NamedReadCloser is a reader along with the name of the thing being read.
type NamedReadCloser interface {
	io.ReadCloser
	Name() string
}

// RawSource is the interface for getting raw per-file readers out of some
// store of files (a local directory, an S3 prefix).
type RawSource interface {
	NextReader() (NamedReadCloser, error)
}
