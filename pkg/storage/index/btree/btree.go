package btree

import (
	"fmt"
	"storemy/pkg/primitives"
	"storemy/pkg/storage/index"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
)

// BTree implements the Index interface for B+Tree indexes
type BTree struct {
	indexID    primitives.IndexID
	keyType    types.Type
	file       *BTreeFile
	rootPageID *BTreePageID
}

// NewBTree creates a new B+Tree index
func NewBTree(indexID primitives.IndexID, keyType types.Type, file *BTreeFile) *BTree {
	file.SetIndexID(indexID)
	return &BTree{
		indexID: indexID,
		keyType: keyType,
		file:    file,
	}
}

// Insert adds a key-value pair to the B+Tree
func (bt *BTree) Insert(tid *primitives.TransactionID, key types.Field, rid *tuple.RecordID) error {
	if key.Type() != bt.keyType {
		return fmt.Errorf("key type mismatch: expected %v, got %v", bt.keyType, key.Type())
	}

	// Get or create root page
	rootPage, err := bt.getRootPage(tid)
	if err != nil {
		return fmt.Errorf("failed to get root page: %w", err)
	}

	// If root is empty, insert directly
	if rootPage.GetNumEntries() == 0 && rootPage.IsLeafPage() {
		return bt.insertIntoLeaf(tid, rootPage, &index.IndexEntry{Key: key, RID: rid})
	}

	// Find the appropriate leaf page
	leafPage, err := bt.findLeafPage(tid, rootPage, key)
	if err != nil {
		return fmt.Errorf("failed to find leaf page: %w", err)
	}

	// Check if leaf is full - if so, split it
	if leafPage.IsFull() {
		return bt.insertAndSplit(tid, leafPage, key, rid)
	}

	// Insert into leaf
	return bt.insertIntoLeaf(tid, leafPage, &index.IndexEntry{Key: key, RID: rid})
}

// Delete removes a key-value pair from the B+Tree
func (bt *BTree) Delete(tid *primitives.TransactionID, key types.Field, rid *tuple.RecordID) error {
	if key.Type() != bt.keyType {
		return fmt.Errorf("key type mismatch: expected %v, got %v", bt.keyType, key.Type())
	}

	rootPage, err := bt.getRootPage(tid)
	if err != nil {
		return fmt.Errorf("failed to get root page: %w", err)
	}

	// Find the leaf page containing the key
	leafPage, err := bt.findLeafPage(tid, rootPage, key)
	if err != nil {
		return fmt.Errorf("failed to find leaf page: %w", err)
	}

	// Find and remove the entry
	return bt.deleteFromLeaf(tid, leafPage, &index.IndexEntry{Key: key, RID: rid})
}

// Search finds all tuple locations for a given key
func (bt *BTree) Search(tid *primitives.TransactionID, key types.Field) ([]*tuple.RecordID, error) {
	if key.Type() != bt.keyType {
		return nil, fmt.Errorf("key type mismatch: expected %v, got %v", bt.keyType, key.Type())
	}

	rootPage, err := bt.getRootPage(tid)
	if err != nil {
		return nil, fmt.Errorf("failed to get root page: %w", err)
	}

	if rootPage.GetNumEntries() == 0 {
		return []*tuple.RecordID{}, nil
	}

	// Find the leaf page
	leafPage, err := bt.findLeafPage(tid, rootPage, key)
	if err != nil {
		return nil, fmt.Errorf("failed to find leaf page: %w", err)
	}

	// Search within the leaf
	var results []*tuple.RecordID
	for _, entry := range leafPage.entries {
		if entry.Key.Equals(key) {
			results = append(results, entry.RID)
		}
	}

	return results, nil
}

// RangeSearch finds all tuples where key is in [startKey, endKey]
func (bt *BTree) RangeSearch(tid *primitives.TransactionID, startKey, endKey types.Field) ([]*tuple.RecordID, error) {
	if startKey.Type() != bt.keyType || endKey.Type() != bt.keyType {
		return nil, fmt.Errorf("key type mismatch")
	}

	rootPage, err := bt.getRootPage(tid)
	if err != nil {
		return nil, fmt.Errorf("failed to get root page: %w", err)
	}

	if rootPage.GetNumEntries() == 0 {
		return []*tuple.RecordID{}, nil
	}

	// Find the leftmost leaf page containing startKey
	leafPage, err := bt.findLeafPage(tid, rootPage, startKey)
	if err != nil {
		return nil, fmt.Errorf("failed to find start leaf page: %w", err)
	}

	var results []*tuple.RecordID

	// Scan through leaf pages until we exceed endKey
	for leafPage != nil {
		for _, entry := range leafPage.entries {
			// Check if key >= startKey
			geStart, _ := entry.Key.Compare(types.GreaterThanOrEqual, startKey)
			// Check if key <= endKey
			leEnd, _ := entry.Key.Compare(types.LessThanOrEqual, endKey)

			if geStart && leEnd {
				results = append(results, entry.RID)
			} else if !leEnd {
				// We've passed endKey, stop scanning
				return results, nil
			}
		}

		// Move to next leaf page
		if leafPage.nextLeaf == primitives.InvalidPageNumber {
			break
		}

		nextPageID := NewBTreePageID(bt.indexID, leafPage.nextLeaf)
		leafPage, err = bt.file.ReadBTreePage(nextPageID)
		if err != nil {
			return nil, fmt.Errorf("failed to read next leaf page: %w", err)
		}
	}

	return results, nil
}

// GetIndexType returns BTreeIndex
func (bt *BTree) GetIndexType() index.IndexType {
	return index.BTreeIndex
}

// GetKeyType returns the type of keys this index handles
func (bt *BTree) GetKeyType() types.Type {
	return bt.keyType
}

// Close releases resources held by the index
func (bt *BTree) Close() error {
	return bt.file.Close()
}

// getRootPage retrieves the root page of the B+Tree
func (bt *BTree) getRootPage(tid *primitives.TransactionID) (*BTreePage, error) {
	if bt.rootPageID == nil {
		// Create initial root page (leaf)
		bt.rootPageID = NewBTreePageID(bt.indexID, 0)
		rootPage := NewBTreeLeafPage(bt.rootPageID, bt.keyType, primitives.InvalidPageNumber)
		rootPage.MarkDirty(true, tid)
		bt.file.WritePage(rootPage)
		return rootPage, nil
	}

	return bt.file.ReadBTreePage(bt.rootPageID)
}

// findLeafPage navigates from root to the leaf page that should contain the key
func (bt *BTree) findLeafPage(tid *primitives.TransactionID, currentPage *BTreePage, key types.Field) (*BTreePage, error) {
	// If we're at a leaf, we're done
	if currentPage.IsLeafPage() {
		return currentPage, nil
	}

	// Find the appropriate child pointer
	childPID := bt.findChildPointer(currentPage, key)
	if childPID == nil {
		return nil, fmt.Errorf("failed to find child pointer for key")
	}

	// Read the child page
	childPage, err := bt.file.ReadBTreePage(childPID)
	if err != nil {
		return nil, fmt.Errorf("failed to read child page: %w", err)
	}

	// Recursively search
	return bt.findLeafPage(tid, childPage, key)
}

// findChildPointer finds the appropriate child pointer for a given key in an internal node
func (bt *BTree) findChildPointer(internalPage *BTreePage, key types.Field) *BTreePageID {
	if !internalPage.IsInternalPage() || len(internalPage.children) == 0 {
		return nil
	}

	// In B+Tree internal nodes:
	// children[0] contains keys < children[1].Key
	// children[i] contains keys >= children[i].Key and < children[i+1].Key
	for i := len(internalPage.children) - 1; i >= 1; i-- {
		childPtr := internalPage.children[i]
		// If key >= childPtr.Key, go to this child
		if ge, _ := key.Compare(types.GreaterThanOrEqual, childPtr.Key); ge {
			return childPtr.ChildPID
		}
	}

	// Key is less than all separator keys, go to first child
	return internalPage.children[0].ChildPID
}

// compareKeys compares two keys and returns -1, 0, or 1
func compareKeys(k1, k2 types.Field) int {
	if k1.Equals(k2) {
		return 0
	}
	if lt, _ := k1.Compare(types.LessThan, k2); lt {
		return -1
	}
	return 1
}
