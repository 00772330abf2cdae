package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
)

var (
	bucketBioseqInfo = []byte("bioseq_info")
	bucketSi2csi     = []byte("si2csi")
)

// BoltTier keeps the cache in a local bbolt file
type BoltTier struct {
	db     *bolt.DB
	path   string
	logger *zap.Logger
}

// OpenBoltTier opens (creating if needed) the cache file and its buckets
func OpenBoltTier(path string, logger *zap.Logger) (*BoltTier, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt cache %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketBioseqInfo, bucketSi2csi} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("creating bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Bolt cache opened", zap.String("path", path))
	return &BoltTier{db: db, path: path, logger: logger}, nil
}

// FetchBioseqInfo scans every record of the accession and filters by key
func (b *BoltTier) FetchBioseqInfo(ctx context.Context, key model.BioseqKey) ([]model.BioseqRecord, error) {
	var out []model.BioseqRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		prefix := bioseqPrefix(key.Accession)
		c := tx.Bucket(bucketBioseqInfo).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var rec model.BioseqRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decoding bioseq_info %q: %w", key.Accession, err)
			}
			if key.Matches(rec) {
				out = append(out, rec)
			}
		}
		return nil
	})
	return out, err
}

// FetchSi2csi scans every mapping of the secondary id and filters by type
func (b *BoltTier) FetchSi2csi(ctx context.Context, key model.Si2csiKey) ([]model.Si2csiRecord, error) {
	var out []model.Si2csiRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		prefix := si2csiPrefix(key.SecSeqID)
		c := tx.Bucket(bucketSi2csi).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var rec model.Si2csiRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decoding si2csi %q: %w", key.SecSeqID, err)
			}
			if key.Matches(rec) {
				out = append(out, rec)
			}
		}
		return nil
	})
	return out, err
}

// PutBioseqInfo stores or replaces a record
func (b *BoltTier) PutBioseqInfo(ctx context.Context, rec model.BioseqRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal bioseq_info: %w", err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBioseqInfo).Put(bioseqKey(rec), data)
	})
}

// PutSi2csi stores or replaces a mapping
func (b *BoltTier) PutSi2csi(ctx context.Context, rec model.Si2csiRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal si2csi: %w", err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSi2csi).Put(si2csiKey(rec), data)
	})
}

// Ping verifies the file is readable
func (b *BoltTier) Ping(ctx context.Context) error {
	return b.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketBioseqInfo) == nil {
			return fmt.Errorf("bolt cache %s: bucket %s not found", b.path, bucketBioseqInfo)
		}
		return nil
	})
}

// Close closes the bolt file
func (b *BoltTier) Close() error {
	return b.db.Close()
}
