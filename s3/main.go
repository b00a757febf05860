package s3

import (
	"github.com/marinedk/mdk/file"
	"github.com/pkg/errors"
)

// Main contains the configuration for syncing an asset catalog down from S3
// and extracting it.
type Main struct {
	Bucket  string `help:"S3 bucket holding the asset export."`
	Prefix  string `help:"Key prefix of the catalog within the bucket."`
	Region  string `help:"AWS region."`
	Dir     string `help:"Local directory to sync the catalog into."`
	Store   string `help:"Registry database file to dump the extracted assets into. Empty skips the dump."`
	Backend string `help:"Registry backend: bolt or leveldb."`
	Debug   bool   `help:"Enable debug logging."`
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		Region:  "us-east-1",
		Dir:     "assets",
		Backend: "bolt",
	}
}

// Run syncs the bucket prefix into the local directory and runs a file
// extraction over it.
func (m *Main) Run() error {
	rs, err := NewRawSource(
		OptSrcBucket(m.Bucket),
		OptSrcPrefix(m.Prefix),
		OptSrcRegion(m.Region),
	)
	if err != nil {
		return errors.Wrap(err, "getting raw s3 source")
	}
	if err := file.Sync(rs, m.Dir); err != nil {
		return errors.Wrap(err, "syncing catalog from s3")
	}

	fm := file.Main{Path: m.Dir, Store: m.Store, Backend: m.Backend, Debug: m.Debug}
	return fm.Run()
}
