package btree

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"storemy/pkg/primitives"
)

// BTreePageID identifies a page within a single B+-tree index file. Mirrors
// page.PageDescriptor's layout so both page kinds satisfy primitives.PageID
// with the same wire format.
type BTreePageID struct {
	tableID  primitives.IndexID
	pageNum  primitives.PageNumber
	category primitives.PageCategory
}

// NewBTreePageID creates a new B+Tree page ID. Category defaults to
// LeafCategory; callers that need a specific category use WithCategory.
func NewBTreePageID(tableID primitives.IndexID, pageNum primitives.PageNumber) *BTreePageID {
	return &BTreePageID{tableID: tableID, pageNum: pageNum, category: primitives.LeafCategory}
}

// WithCategory returns a copy of this page ID tagged with the given category.
func (bpid *BTreePageID) WithCategory(cat primitives.PageCategory) *BTreePageID {
	return &BTreePageID{tableID: bpid.tableID, pageNum: bpid.pageNum, category: cat}
}

// Category reports which of the four B+-tree page kinds this ID names.
func (bpid *BTreePageID) Category() primitives.PageCategory {
	return bpid.category
}

// GetTableID returns the index ID this page belongs to.
func (bpid *BTreePageID) GetTableID() primitives.TableID {
	return bpid.tableID
}

// PageNo returns the page number.
func (bpid *BTreePageID) PageNo() primitives.PageNumber {
	return bpid.pageNum
}

// Serialize returns this page ID as a fixed-width byte array.
func (bpid *BTreePageID) Serialize() []byte {
	buf := make([]byte, 17)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(bpid.tableID))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(bpid.pageNum))
	buf[16] = byte(bpid.category)
	return buf
}

// Equals checks if two B+Tree page IDs are equal.
func (bpid *BTreePageID) Equals(other primitives.PageID) bool {
	if other == nil {
		return false
	}
	return bpid.tableID == other.GetTableID() && bpid.pageNum == other.PageNo()
}

// String returns a string representation of this B+Tree page ID.
func (bpid *BTreePageID) String() string {
	return fmt.Sprintf("BTreePageID(index=%d, page=%d, category=%s)", bpid.tableID, bpid.pageNum, bpid.category)
}

// HashCode returns a hash code for this B+Tree page ID.
func (bpid *BTreePageID) HashCode() primitives.HashCode {
	h := fnv.New64a()
	h.Write(bpid.Serialize())
	return primitives.HashCode(h.Sum64())
}
