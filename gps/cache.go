package gps

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/jmank88/nuts"
	"github.com/pkg/errors"
)

// BoltDependencyCache is the default DependencyCache: one BoltDB file per
// workspace cache directory, one top-level bucket per package identity, and
// one key per revision inside that bucket (§4.5, §11). Grounded on the
// teacher's bolt-backed source cache, simplified to the single
// revision->manifest mapping this module needs rather than the teacher's
// full manifest/lock/package-tree cache.
type BoltDependencyCache struct {
	db *bolt.DB
}

// OpenBoltDependencyCache opens (creating if absent) a BoltDB file under
// cacheDir for use as a DependencyCache.
func OpenBoltDependencyCache(cacheDir string) (*BoltDependencyCache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating cache directory %s", cacheDir)
	}
	path := filepath.Join(cacheDir, "deps.db")
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening dependency cache %s", path)
	}
	return &BoltDependencyCache{db: db}, nil
}

// Close releases the underlying BoltDB file.
func (c *BoltDependencyCache) Close() error {
	return errors.Wrap(c.db.Close(), "closing dependency cache")
}

// bucketKey encodes id's length-prefixed bytes so that identities sharing a
// prefix don't collide as bolt bucket names.
func bucketKey(id PackageIdentity) []byte {
	b := string(id)
	key := make(nuts.Key, nuts.KeyLen(uint64(len(b)))+len(b))
	n := nuts.KeyLen(uint64(len(b)))
	key[:n].Put(uint64(len(b)))
	copy(key[n:], b)
	return key
}

func (c *BoltDependencyCache) Get(id PackageIdentity, rev Revision) (Manifest, bool, error) {
	var m Manifest
	var found bool
	err := c.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketKey(id))
		if bucket == nil {
			return nil
		}
		raw := bucket.Get([]byte(rev))
		if raw == nil {
			return nil
		}
		found = true
		return json.NewDecoder(bytes.NewReader(raw)).Decode(&m)
	})
	if err != nil {
		return Manifest{}, false, errors.Wrapf(err, "reading cached manifest for %s@%s", id, rev)
	}
	return m, found, nil
}

func (c *BoltDependencyCache) Put(id PackageIdentity, rev Revision, m Manifest) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(m); err != nil {
		return errors.Wrapf(err, "encoding manifest for %s@%s", id, rev)
	}
	err := c.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketKey(id))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(rev), buf.Bytes())
	})
	return errors.Wrapf(err, "writing cached manifest for %s@%s", id, rev)
}

var _ DependencyCache = (*BoltDependencyCache)(nil)
