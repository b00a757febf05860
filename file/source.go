// Package file serves asset categories from a directory of export CSV files
// plus a mapping/ subdirectory holding the workbook tabs as CSVs.
package file

import (
	"bufio"
	"encoding/csv"
	"io"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/marinedk/mdk"
	"github.com/pkg/errors"
)

// ExportSkipLines is the number of preamble lines on exported report files
// before the header row. The export tool writes title and filter junk there.
const ExportSkipLines = 9

// Catalog resolves categories to CSV files: "<dir>/<category>.csv" for
// export categories (with the preamble skipped) and
// "<mapping dir>/<tab>.csv" for MAP: categories.
type Catalog struct {
	dir        string
	mappingDir string
	skipLines  int
}

// CatOption is a functional option for the Catalog.
type CatOption func(c *Catalog)

// OptCatMappingDir overrides the mapping tab directory, which defaults to
// the "mapping" subdirectory of the catalog directory.
func OptCatMappingDir(dir string) CatOption {
	return func(c *Catalog) {
		c.mappingDir = dir
	}
}

// OptCatSkipLines overrides the number of preamble lines skipped on export
// files.
func OptCatSkipLines(n int) CatOption {
	return func(c *Catalog) {
		c.skipLines = n
	}
}

// NewCatalog returns a Catalog over the given directory.
func NewCatalog(dir string, opts ...CatOption) *Catalog {
	c := &Catalog{
		dir:        dir,
		mappingDir: path.Join(dir, "mapping"),
		skipLines:  ExportSkipLines,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open implements mdk.Catalog.
func (c *Catalog) Open(category string) (mdk.Source, error) {
	filename := path.Join(c.dir, category+".csv")
	skip := c.skipLines
	if tab := strings.TrimPrefix(category, "MAP:"); tab != category {
		filename = path.Join(c.mappingDir, tab+".csv")
		skip = 0
	}

	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", filename)
	}
	buf := bufio.NewReader(f)
	for i := 0; i < skip; i++ {
		if _, err := buf.ReadString('\n'); err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "skipping preamble of %s", filename)
		}
	}

	r := csv.NewReader(buf)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "reading header of %s", filename)
	}
	return &csvSource{f: f, r: r, header: header}, nil
}

// csvSource yields one Row per CSV record, keyed by the header columns.
// Empty cells stay absent from the Row.
type csvSource struct {
	f      *os.File
	r      *csv.Reader
	header []string
}

func (s *csvSource) Row() (mdk.Row, error) {
	rec, err := s.r.Read()
	if err == io.EOF {
		s.f.Close()
		return nil, io.EOF
	}
	if err != nil {
		s.f.Close()
		return nil, errors.Wrapf(err, "reading %s", s.f.Name())
	}
	row := make(mdk.Row, len(s.header))
	for i, col := range s.header {
		if i < len(rec) && rec[i] != "" {
			row[col] = rec[i]
		}
	}
	return row, nil
}

// RawSource hands out a reader per file of a directory, in name order.
type RawSource struct {
	files   []string
	fileIdx *uint64
}

// NewRawSource returns a RawSource over a file or every file in a directory.
func NewRawSource(pathname string) (*RawSource, error) {
	fileIdx := uint64(0)
	s := &RawSource{
		fileIdx: &fileIdx,
	}
	info, err := os.Stat(pathname)
	if err != nil {
		return nil, errors.Wrap(err, "statting path")
	}
	if info.IsDir() {
		infos, err := ioutil.ReadDir(pathname)
		if err != nil {
			return nil, errors.Wrap(err, "reading directory")
		}
		s.files = make([]string, 0, len(infos))
		for _, info = range infos {
			if info.IsDir() {
				continue
			}
			s.files = append(s.files, path.Join(pathname, info.Name()))
		}
	} else {
		s.files = []string{pathname}
	}
	return s, nil
}

type namedFile struct {
	*os.File
}

func (m *namedFile) Name() string {
	return filepath.Base(m.File.Name())
}

// NextReader implements mdk.RawSource.
func (s *RawSource) NextReader() (mdk.NamedReadCloser, error) {
	idx := atomic.AddUint64(s.fileIdx, 1) - 1
	if int(idx) >= len(s.files) {
		return nil, io.EOF
	}

	file, err := os.Open(s.files[idx])
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", s.files[idx])
	}
	return &namedFile{file}, nil
}

// Sync copies every reader of a raw source into dir, named by the reader.
// Readers with path separators in the name land in matching subdirectories.
// This is how remote catalogs (S3, Kafka spools) become local directories a
// Catalog can serve.
func Sync(rs mdk.RawSource, dir string) error {
	for {
		reader, err := rs.NextReader()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "getting next reader")
		}
		dst := filepath.Join(dir, filepath.FromSlash(reader.Name()))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			reader.Close()
			return errors.Wrapf(err, "creating directory for %s", dst)
		}
		f, err := os.Create(dst)
		if err != nil {
			reader.Close()
			return errors.Wrapf(err, "creating %s", dst)
		}
		_, err = io.Copy(f, reader)
		reader.Close()
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return errors.Wrapf(err, "writing %s", dst)
		}
	}
}
