// Package argcache persists parsed docopt-style argument grammars across
// shell invocations, so that sourcing an unchanged rc file on every startup
// does not re-run the grammar parser (C10) each time. It is grounded on the
// teacher's pkg/store, which opens one *bolt.DB per process with one bucket
// per concern. Records here are keyed by command and doc name, not by a
// big-endian sequence number.
package argcache

import (
	"errors"

	bolt "go.etcd.io/bbolt"
)

var bucketGrammars = []byte("grammars")

// Cache is a handle on the on-disk grammar cache.
type Cache struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketGrammars)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Cache{db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error { return c.db.Close() }

func recordKey(command, docName string) []byte {
	return []byte(command + "\x00" + docName)
}

// Get looks up the cached grammar for (command, docName). ok is false if
// there is no entry, or its stored mtime does not equal mtime.
func (c *Cache) Get(command, docName string, mtime int64) (grammar []byte, ok bool) {
	_ = c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketGrammars)
		v := b.Get(recordKey(command, docName))
		if v == nil {
			return nil
		}
		storedMtime, payload, err := decodeRecord(v)
		if err != nil {
			return nil
		}
		if storedMtime == mtime {
			grammar = append([]byte(nil), payload...)
			ok = true
		}
		return nil
	})
	return grammar, ok
}

// Put stores grammar for (command, docName) along with the mtime of the
// source doc text it was parsed from.
func (c *Cache) Put(command, docName string, mtime int64, grammar []byte) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketGrammars)
		return b.Put(recordKey(command, docName), encodeRecord(mtime, grammar))
	})
}

func encodeRecord(mtime int64, grammar []byte) []byte {
	buf := make([]byte, 8+len(grammar))
	putInt64(buf, mtime)
	copy(buf[8:], grammar)
	return buf
}

func decodeRecord(v []byte) (int64, []byte, error) {
	if len(v) < 8 {
		return 0, nil, errors.New("argcache: truncated record")
	}
	return getInt64(v), v[8:], nil
}

func putInt64(b []byte, v int64) {
	u := uint64(v)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (56 - 8*i))
	}
}

func getInt64(b []byte) int64 {
	var u uint64
	for i := 0; i < 8; i++ {
		u = u<<8 | uint64(b[i])
	}
	return int64(u)
}
