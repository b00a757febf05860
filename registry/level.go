package registry

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
)

// LevelStore is a Store on a goleveldb directory. Buckets are encoded into
// the key as "<bucket>\x00<id>".
type LevelStore struct {
	db *leveldb.DB
}

// OpenLevel opens (or creates) a leveldb-backed store at path.
func OpenLevel(path string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "opening leveldb")
	}
	return &LevelStore{db: db}, nil
}

func levelKey(bucket, id string) []byte {
	key := make([]byte, 0, len(bucket)+len(id)+1)
	key = append(key, bucket...)
	key = append(key, 0)
	key = append(key, id...)
	return key
}

// PutDoc implements Store.
func (s *LevelStore) PutDoc(bucket, id string, doc []byte) error {
	return s.db.Put(levelKey(bucket, id), doc, nil)
}

// GetDoc implements Store. A missing document returns nil bytes and no
// error.
func (s *LevelStore) GetDoc(bucket, id string) ([]byte, error) {
	v, err := s.db.Get(levelKey(bucket, id), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	return v, err
}

// DeleteDoc implements Store.
func (s *LevelStore) DeleteDoc(bucket, id string) error {
	return s.db.Delete(levelKey(bucket, id), nil)
}

// AllDocs implements Store, visiting documents in key order.
func (s *LevelStore) AllDocs(fn func(bucket, id string, doc []byte) error) error {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()
	for iter.Next() {
		key := iter.Key()
		i := bytes.IndexByte(key, 0)
		if i < 0 {
			continue
		}
		doc := append([]byte{}, iter.Value()...)
		if err := fn(string(key[:i]), string(key[i+1:]), doc); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Close closes the underlying database.
func (s *LevelStore) Close() error {
	return s.db.Close()
}
