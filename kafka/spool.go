package kafka

import (
	"encoding/csv"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/marinedk/mdk"
	"github.com/marinedk/mdk/file"
	"github.com/pkg/errors"
)

// Spool writes rows into the CSV catalog layout: one file per category, the
// mapping tabs under mapping/. Export files get the standard preamble so the
// file catalog's line skipping finds the header where it expects it. The
// header is fixed by the first row seen for a category; later rows only
// contribute the columns it names.
type Spool struct {
	dir   string
	files map[string]*spoolFile
}

type spoolFile struct {
	f      *os.File
	w      *csv.Writer
	header []string
}

// NewSpool returns a Spool writing into dir.
func NewSpool(dir string) *Spool {
	return &Spool{
		dir:   dir,
		files: map[string]*spoolFile{},
	}
}

// Add appends one row to the category's spool file, creating it on first
// use.
func (sp *Spool) Add(category string, row mdk.Row) error {
	sf, ok := sp.files[category]
	if !ok {
		var err error
		sf, err = sp.create(category, row)
		if err != nil {
			return err
		}
		sp.files[category] = sf
	}
	rec := make([]string, len(sf.header))
	for i, col := range sf.header {
		rec[i] = row[col]
	}
	return errors.Wrapf(sf.w.Write(rec), "spooling %s row", category)
}

func (sp *Spool) create(category string, row mdk.Row) (*spoolFile, error) {
	filename := path.Join(sp.dir, category+".csv")
	preamble := file.ExportSkipLines
	if tab := strings.TrimPrefix(category, "MAP:"); tab != category {
		filename = path.Join(sp.dir, "mapping", tab+".csv")
		preamble = 0
	}
	if err := os.MkdirAll(path.Dir(filename), 0755); err != nil {
		return nil, errors.Wrapf(err, "creating spool directory for %s", category)
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "creating spool file %s", filename)
	}
	for i := 0; i < preamble; i++ {
		if _, err := f.WriteString("\n"); err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "writing preamble of %s", filename)
		}
	}

	header := make([]string, 0, len(row))
	for col := range row {
		header = append(header, col)
	}
	sort.Strings(header)
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "writing header of %s", filename)
	}
	return &spoolFile{f: f, w: w, header: header}, nil
}

// Close flushes and closes every spool file.
func (sp *Spool) Close() error {
	var firstErr error
	for category, sf := range sp.files {
		sf.w.Flush()
		err := sf.w.Error()
		if cerr := sf.f.Close(); err == nil {
			err = cerr
		}
		if err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "closing spool of %s", category)
		}
	}
	sp.files = map[string]*spoolFile{}
	return firstErr
}
