package execution

import (
	"fmt"
	"storemy/pkg/catalog"
	"storemy/pkg/iterator"
	"storemy/pkg/primitives"
	"storemy/pkg/tuple"
)

// SeqScan is a thin wrapper around a table's underlying DbFileIterator: it
// resolves a table id to its file via the catalog and streams every tuple
// the file contains, in whatever order the file's storage layout produces
// them.
type SeqScan struct {
	tid       *primitives.TransactionID
	tableID   primitives.TableID
	catalog   *catalog.Catalog
	tupleDesc *tuple.TupleDescription
	fileIter  iterator.DbFileIterator

	opened        bool
	nextTuple     *tuple.Tuple
	hasNextCalled bool
}

// NewSeqScan creates a scan of tableID on behalf of tid. The catalog is
// consulted immediately to resolve the table's schema; the underlying file
// iterator is not opened until Open is called.
func NewSeqScan(tid *primitives.TransactionID, tableID primitives.TableID, cat *catalog.Catalog) (*SeqScan, error) {
	if cat == nil {
		return nil, fmt.Errorf("catalog cannot be nil")
	}

	file, err := cat.DatabaseFile(tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve table %v: %v", tableID, err)
	}

	return &SeqScan{
		tid:       tid,
		tableID:   tableID,
		catalog:   cat,
		tupleDesc: file.GetTupleDesc(),
	}, nil
}

func (ss *SeqScan) Open() error {
	if ss.opened {
		return fmt.Errorf("seq scan already opened")
	}

	file, err := ss.catalog.DatabaseFile(ss.tableID)
	if err != nil {
		return fmt.Errorf("failed to resolve table %v: %v", ss.tableID, err)
	}

	ss.fileIter = file.Iterator(ss.tid)
	if err := ss.fileIter.Open(); err != nil {
		return fmt.Errorf("failed to open file iterator: %v", err)
	}

	ss.opened = true
	ss.nextTuple = nil
	ss.hasNextCalled = false
	return nil
}

func (ss *SeqScan) Close() error {
	if ss.fileIter != nil {
		ss.fileIter.Close()
		ss.fileIter = nil
	}
	ss.opened = false
	ss.nextTuple = nil
	ss.hasNextCalled = false
	return nil
}

func (ss *SeqScan) Rewind() error {
	if !ss.opened {
		return fmt.Errorf("seq scan not opened")
	}
	if err := ss.fileIter.Rewind(); err != nil {
		return err
	}
	ss.nextTuple = nil
	ss.hasNextCalled = false
	return nil
}

func (ss *SeqScan) GetTupleDesc() *tuple.TupleDescription {
	return ss.tupleDesc
}

func (ss *SeqScan) HasNext() (bool, error) {
	if !ss.opened {
		return false, fmt.Errorf("seq scan not opened")
	}
	if !ss.hasNextCalled {
		var err error
		ss.nextTuple, err = ss.readNext()
		if err != nil {
			return false, err
		}
		ss.hasNextCalled = true
	}
	return ss.nextTuple != nil, nil
}

func (ss *SeqScan) Next() (*tuple.Tuple, error) {
	if !ss.opened {
		return nil, fmt.Errorf("seq scan not opened")
	}
	if !ss.hasNextCalled {
		hasNext, err := ss.HasNext()
		if err != nil {
			return nil, err
		}
		if !hasNext {
			return nil, fmt.Errorf("no more tuples available")
		}
	}

	result := ss.nextTuple
	ss.nextTuple = nil
	ss.hasNextCalled = false
	return result, nil
}

func (ss *SeqScan) readNext() (*tuple.Tuple, error) {
	hasNext, err := ss.fileIter.HasNext()
	if err != nil {
		return nil, err
	}
	if !hasNext {
		return nil, nil
	}
	return ss.fileIter.Next()
}
