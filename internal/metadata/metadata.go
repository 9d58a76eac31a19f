package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when no record matches a lookup.
var ErrNotFound = errors.New("group not found in catalog")

const (
	groupPrefix = "group:"
	keyPrefix   = "key:"
)

// GroupRecord describes one uploaded group.
type GroupRecord struct {
	GroupID    string `json:"group_id"`
	GroupKey   string `json:"group_key"`
	Backend    string `json:"backend"`
	FileName   string `json:"file_name"`
	FileSize   int64  `json:"file_size"`
	BlockCount int    `json:"block_count"`
	RunID      string `json:"run_id"`
	CreatedAt  int64  `json:"created_at"` // Unix timestamp
}

// Catalog wraps BadgerDB for the local record of uploaded groups.
type Catalog struct {
	db *badger.DB
}

// OpenCatalog opens (or creates) a BadgerDB at the given path.
func OpenCatalog(dbPath string) (*Catalog, error) {
	db, err := badger.Open(badger.DefaultOptions(dbPath).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close closes the BadgerDB.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Put stores rec and points its group key at it. A later upload under
// the same key takes over the key.
func (c *Catalog) Put(rec GroupRecord) error {
	if rec.GroupID == "" {
		return errors.New("group record has no group id")
	}
	val, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(groupPrefix+rec.GroupID), val); err != nil {
			return err
		}
		if rec.GroupKey == "" {
			return nil
		}
		return txn.Set([]byte(keyPrefix+rec.GroupKey), []byte(rec.GroupID))
	})
}

// Get retrieves a record by group ID.
func (c *Catalog) Get(groupID string) (GroupRecord, error) {
	var rec GroupRecord
	err := c.db.View(func(txn *badger.Txn) error {
		return readRecord(txn, groupID, &rec)
	})
	return rec, err
}

// FindByKey retrieves the most recent record uploaded under key.
func (c *Catalog) FindByKey(key string) (GroupRecord, error) {
	var rec GroupRecord
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return readRecord(txn, string(id), &rec)
	})
	return rec, err
}

// Resolve accepts either a group ID or a group key.
func (c *Catalog) Resolve(ref string) (GroupRecord, error) {
	rec, err := c.Get(ref)
	if errors.Is(err, ErrNotFound) {
		return c.FindByKey(ref)
	}
	return rec, err
}

// List returns every record, newest first.
func (c *Catalog) List() ([]GroupRecord, error) {
	var records []GroupRecord
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(groupPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec GroupRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].CreatedAt > records[j].CreatedAt })
	return records, nil
}

func readRecord(txn *badger.Txn, groupID string, rec *GroupRecord) error {
	item, err := txn.Get([]byte(groupPrefix + groupID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, rec)
	})
}

// NewGroupRecord is a helper to create a record stamped with the current time.
func NewGroupRecord(groupID, groupKey, backend, fileName string, fileSize int64, blockCount int, runID string) GroupRecord {
	return GroupRecord{
		GroupID:    groupID,
		GroupKey:   groupKey,
		Backend:    backend,
		FileName:   fileName,
		FileSize:   fileSize,
		BlockCount: blockCount,
		RunID:      runID,
		CreatedAt:  time.Now().Unix(),
	}
}
