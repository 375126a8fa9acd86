package metadata

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
	"lukechampine.com/blake3"
)

var (
	// ErrMetadataUnavailable is returned when a reference resolves to nothing.
	ErrMetadataUnavailable = errors.New("metadata: unavailable")
	// ErrInvalidRef is returned for references that are not b3-addressed.
	ErrInvalidRef = errors.New("metadata: invalid reference")
)

const refPrefix = "b3:"

var bucketBlobs = []byte("blobs")

// Store is the content-addressed sidecar for prompt and profile documents.
// The ledger keeps only the reference string; the document bytes live here,
// keyed by their BLAKE3 digest so a reference can never be repointed.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the metadata database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("metadata: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBlobs)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Ref computes the reference string for a document without storing it.
func Ref(content []byte) string {
	digest := blake3.Sum256(content)
	return refPrefix + hex.EncodeToString(digest[:])
}

// Put stores the document and returns its reference. Storing the same bytes
// twice is idempotent.
func (s *Store) Put(content []byte) (string, error) {
	if s == nil || s.db == nil {
		return "", ErrMetadataUnavailable
	}
	digest := blake3.Sum256(content)
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketBlobs)
		if bucket.Get(digest[:]) != nil {
			return nil
		}
		stored := make([]byte, len(content))
		copy(stored, content)
		return bucket.Put(digest[:], stored)
	})
	if err != nil {
		return "", err
	}
	return refPrefix + hex.EncodeToString(digest[:]), nil
}

// Get resolves a reference back to the stored document.
func (s *Store) Get(ref string) ([]byte, error) {
	if s == nil || s.db == nil {
		return nil, ErrMetadataUnavailable
	}
	digest, err := parseRef(ref)
	if err != nil {
		return nil, err
	}
	var out []byte
	err = s.db.View(func(tx *bolt.Tx) error {
		stored := tx.Bucket(bucketBlobs).Get(digest)
		if stored == nil {
			return ErrMetadataUnavailable
		}
		out = make([]byte, len(stored))
		copy(out, stored)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Has reports whether the reference resolves without copying the document.
func (s *Store) Has(ref string) (bool, error) {
	if s == nil || s.db == nil {
		return false, ErrMetadataUnavailable
	}
	digest, err := parseRef(ref)
	if err != nil {
		return false, err
	}
	var found bool
	err = s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(bucketBlobs).Get(digest) != nil
		return nil
	})
	return found, err
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func parseRef(ref string) ([]byte, error) {
	trimmed := strings.TrimSpace(ref)
	if !strings.HasPrefix(trimmed, refPrefix) {
		return nil, ErrInvalidRef
	}
	digest, err := hex.DecodeString(strings.TrimPrefix(trimmed, refPrefix))
	if err != nil || len(digest) != 32 {
		return nil, ErrInvalidRef
	}
	return digest, nil
}
