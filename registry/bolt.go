package registry

import (
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
)

// BoltStore is a Store on a single boltdb file, one boltdb bucket per
// document bucket.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) a boltdb-backed store at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening bolt db")
	}
	return &BoltStore{db: db}, nil
}

// PutDoc implements Store.
func (s *BoltStore) PutDoc(bucket, id string, doc []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return errors.Wrapf(err, "creating bucket %s", bucket)
		}
		return b.Put([]byte(id), doc)
	})
}

// GetDoc implements Store. A missing document returns nil bytes and no
// error.
func (s *BoltStore) GetDoc(bucket, id string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(id)); v != nil {
			out = append([]byte{}, v...)
		}
		return nil
	})
	return out, err
}

// DeleteDoc implements Store. Deleting from a missing bucket is a no-op.
func (s *BoltStore) DeleteDoc(bucket, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(id))
	})
}

// AllDocs implements Store, visiting documents bucket by bucket in key
// order.
func (s *BoltStore) AllDocs(fn func(bucket, id string, doc []byte) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, b *bolt.Bucket) error {
			return b.ForEach(func(k, v []byte) error {
				return fn(string(name), string(k), v)
			})
		})
	})
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
