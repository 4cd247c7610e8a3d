package btree

import (
	"fmt"
	"storemy/pkg/storage/index"
)

// BTreeIndexFile bundles a B+Tree and the on-disk file backing it, opened
// from an index.IndexMetadata descriptor. It is the entry point callers use
// to open a named index rather than wiring BTreeFile/BTree together by hand.
type BTreeIndexFile struct {
	*BTree
}

// NewBTreeIndexFile opens (or creates) the B+Tree index file described by metadata.
func NewBTreeIndexFile(metadata *index.IndexMetadata) (*BTreeIndexFile, error) {
	if metadata == nil {
		return nil, fmt.Errorf("index metadata cannot be nil")
	}

	file, err := NewBTreeFile(metadata.FilePath, metadata.KeyType)
	if err != nil {
		return nil, fmt.Errorf("failed to open btree file: %w", err)
	}

	bt := NewBTree(metadata.IndexID, metadata.KeyType, file)
	return &BTreeIndexFile{BTree: bt}, nil
}
