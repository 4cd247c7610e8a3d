// Package index defines the types shared by every index implementation
// (currently only the B+-tree) without depending on any one of them.
package index

import (
	"storemy/pkg/primitives"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
)

// IndexType identifies which index structure backs an index file.
type IndexType int

const (
	BTreeIndex IndexType = iota
	HashIndex
)

func (t IndexType) String() string {
	switch t {
	case BTreeIndex:
		return "btree"
	case HashIndex:
		return "hash"
	default:
		return "unknown"
	}
}

// IndexMetadata describes an index over one field of one table, enough to
// open or (re)create its backing file.
type IndexMetadata struct {
	IndexID    primitives.IndexID
	IndexName  string
	TableID    primitives.TableID
	FieldIndex int
	FieldName  string
	KeyType    types.Type
	IndexType  IndexType
	IsUnique   bool
	IsPrimary  bool
	FilePath   string
}

// IndexEntry is one (key, tuple location) pair stored in a leaf page.
type IndexEntry struct {
	Key types.Field
	RID *tuple.RecordID
}

// Equals reports whether two entries carry the same key and point at the
// same tuple.
func (e *IndexEntry) Equals(other *IndexEntry) bool {
	if e == nil || other == nil {
		return e == other
	}
	if !e.Key.Equals(other.Key) {
		return false
	}
	return e.RID.Equals(other.RID)
}

// Index is the interface every index structure (B+-tree today, hash index
// tomorrow) must satisfy to be usable by the optimizer and execution layer.
type Index interface {
	Insert(tid *primitives.TransactionID, key types.Field, rid *tuple.RecordID) error
	Delete(tid *primitives.TransactionID, key types.Field, rid *tuple.RecordID) error
	Search(tid *primitives.TransactionID, key types.Field) ([]*tuple.RecordID, error)
	RangeSearch(tid *primitives.TransactionID, startKey, endKey types.Field) ([]*tuple.RecordID, error)
	GetIndexType() IndexType
	GetKeyType() types.Type
	Close() error
}
