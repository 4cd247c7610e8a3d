package heap

import (
	"storemy/pkg/primitives"
	"storemy/pkg/storage/page"
)

// NewHeapPageID builds a page identifier for a heap page. Heap pages are
// identified the same way as any other page in the buffer pool
// (page.PageDescriptor); this constructor just spells out the heap-specific
// name callers expect.
func NewHeapPageID(tableID primitives.TableID, pageNum primitives.PageNumber) *page.PageDescriptor {
	return page.NewPageDescriptor(tableID, pageNum)
}
