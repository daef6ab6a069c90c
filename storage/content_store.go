package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"meta-anchor/conf"
)

// Fingerprint content derived identifier returned by a content store on write
type Fingerprint string

func (f Fingerprint) String() string {
	return string(f)
}

// ContentStore put by content, get by fingerprint
type ContentStore interface {
	Put(ctx context.Context, data []byte) (Fingerprint, error)
	Get(ctx context.Context, fp Fingerprint) ([]byte, error)
	// ID identifies the store and doubles as a liveness probe
	ID(ctx context.Context) (string, error)
}

// NewContentStore create content store by configuration
func NewContentStore() (ContentStore, error) {
	if conf.Cfg.Storage.Type == "ipfs" {
		return NewIPFSContentStore(conf.Cfg.IPFS.ApiUrl, time.Duration(conf.Cfg.IPFS.Timeout)*time.Second), nil
	}

	backend, err := NewStorage()
	if err != nil {
		return nil, err
	}
	log.Printf("Content store backed by %s blob storage", conf.Cfg.Storage.Type)
	return NewBlobContentStore(backend, conf.Cfg.Storage.Type, "content/"), nil
}

// BlobContentStore content addressing over a plain blob backend.
// The fingerprint is the hex SHA-256 of the bytes.
type BlobContentStore struct {
	backend Storage
	name    string
	prefix  string
}

// NewBlobContentStore wraps a blob backend
func NewBlobContentStore(backend Storage, name, prefix string) *BlobContentStore {
	return &BlobContentStore{backend: backend, name: name, prefix: prefix}
}

// BlobFingerprint fingerprint of data in a blob content store
func BlobFingerprint(data []byte) Fingerprint {
	sum := sha256.Sum256(data)
	return Fingerprint(hex.EncodeToString(sum[:]))
}

func (s *BlobContentStore) key(fp Fingerprint) string {
	// two level fan out keeps directories small on local disks
	return s.prefix + string(fp[:2]) + "/" + string(fp)
}

// Put stores data under its fingerprint. Writing existing content is a no-op.
func (s *BlobContentStore) Put(ctx context.Context, data []byte) (Fingerprint, error) {
	fp := BlobFingerprint(data)
	key := s.key(fp)
	if s.backend.Exists(key) {
		return fp, nil
	}
	if err := s.backend.Save(key, data); err != nil {
		return "", fmt.Errorf("store content %s: %w", fp, err)
	}
	return fp, nil
}

// Get returns the content for fp, ErrNotFound if absent
func (s *BlobContentStore) Get(ctx context.Context, fp Fingerprint) ([]byte, error) {
	if !validBlobFingerprint(fp) {
		return nil, ErrNotFound
	}
	return s.backend.Get(s.key(fp))
}

// ID pings the backend
func (s *BlobContentStore) ID(ctx context.Context) (string, error) {
	if err := s.backend.Ping(ctx); err != nil {
		return "", err
	}
	return "blob:" + s.name, nil
}

func validBlobFingerprint(fp Fingerprint) bool {
	if len(fp) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(string(fp))
	return err == nil
}
