// Package storage keeps a usage ledger of model calls in a BBolt file. Only
// accounting data is recorded, never prompts or generated content.
package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/young1lin/openclaw-responses/internal/jsonx"
	"github.com/young1lin/openclaw-responses/pkg/logger"
)

var bucketName = []byte("usage")

// Record is the accounting entry of one model call
type Record struct {
	ID           string    `json:"id"`
	ResponseID   string    `json:"responseId,omitempty"`
	Model        string    `json:"model"`
	Mode         string    `json:"mode"`
	FinishReason string    `json:"finishReason"`
	InputTokens  int       `json:"inputTokens"`
	OutputTokens int       `json:"outputTokens"`
	TotalTokens  int       `json:"totalTokens"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UsageStore provides persistent storage for usage records using BBolt
type UsageStore struct {
	db *bbolt.DB
}

// NewUsageStore opens (or creates) the ledger at path
func NewUsageStore(path string) (*UsageStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	// Create bucket if not exists
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledger bucket: %w", err)
	}

	logger.Info("usage store initialized", zap.String("path", path))
	return &UsageStore{db: db}, nil
}

// Put saves rec keyed by its response id. A record without a response id
// gets a generated key. Missing ID and CreatedAt are filled in.
func (s *UsageStore) Put(rec *Record) error {
	if rec.ID == "" {
		rec.ID = rec.ResponseID
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	data, err := jsonx.Marshal(rec)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.Put([]byte(rec.ID), data)
	})
}

// Get retrieves a record by id.
// Returns the record and true if found, nil and false otherwise
func (s *UsageStore) Get(id string) (*Record, bool) {
	var rec *Record

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		data := b.Get([]byte(id))
		if data == nil {
			return nil
		}
		rec = &Record{}
		return jsonx.Unmarshal(data, rec)
	})

	if err != nil || rec == nil {
		return nil, false
	}

	return rec, true
}

// List returns records whose id starts with prefix, in key order. An empty
// prefix lists everything; limit <= 0 means no limit.
func (s *UsageStore) List(prefix string, limit int) ([]Record, error) {
	var records []Record

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			var rec Record
			if err := jsonx.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record %s: %w", k, err)
			}
			records = append(records, rec)
			if limit > 0 && len(records) >= limit {
				break
			}
		}
		return nil
	})

	return records, err
}

// Delete removes a record by id
func (s *UsageStore) Delete(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.Delete([]byte(id))
	})
}

// Close closes the database connection
func (s *UsageStore) Close() error {
	return s.db.Close()
}
