package wal

import (
	"fmt"
	"io"
	"maps"
	"os"
	"storemy/pkg/log/record"
	"storemy/pkg/primitives"
	"sync"
)

const (
	FirstLSN primitives.LSN = 0
)

// WAL manages the write-ahead log
type WAL struct {
	file       *os.File
	activeTxns map[*primitives.TransactionID]*record.TransactionLogInfo
	dirtyPages map[primitives.PageID]primitives.LSN
	mutex      sync.RWMutex
	flushCond  *sync.Cond
	writer     *LogWriter
}

// NewWAL creates a new WAL instance
func NewWAL(logPath string, bufferSize int) (*WAL, error) {
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_RDWR|os.O_SYNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file: %v", err)
	}

	pos, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to seek to end of WAL: %v", err)
	}

	writer := NewLogWriter(file, bufferSize, primitives.LSN(pos), primitives.LSN(pos))

	w := &WAL{
		file:       file,
		writer:     writer,
		activeTxns: make(map[*primitives.TransactionID]*record.TransactionLogInfo),
		dirtyPages: make(map[primitives.PageID]primitives.LSN),
	}

	w.flushCond = sync.NewCond(&w.mutex)
	return w, nil
}

func (w *WAL) LogBegin(tid *primitives.TransactionID) (primitives.LSN, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	lsn, err := w.logTransactionOperation(record.BeginRecord, tid, FirstLSN)
	if err != nil {
		return 0, err
	}

	w.activeTxns[tid] = &record.TransactionLogInfo{
		FirstLSN: lsn,
		LastLSN:  lsn,
	}
	return lsn, nil
}

// CRITICAL: This must FORCE the log to disk before returning (durability guarantee)
// After this returns successfully, the transaction is durable even if system crashes
func (w *WAL) LogCommit(tid *primitives.TransactionID) (primitives.LSN, error) {
	w.mutex.Lock()

	txnInfo, err := w.getTransactionInfo(tid)
	if err != nil {
		w.mutex.Unlock()
		return 0, err
	}

	lsn, err := w.logTransactionOperation(record.CommitRecord, tid, txnInfo.LastLSN)
	if err != nil {
		w.mutex.Unlock()
		return 0, err
	}

	txnInfo.LastLSN = lsn
	w.mutex.Unlock()

	if err := w.Force(lsn); err != nil {
		return 0, fmt.Errorf("failed to force commit record to disk: %v", err)
	}

	w.mutex.Lock()
	delete(w.activeTxns, tid)
	w.mutex.Unlock()
	return lsn, nil
}

// LogAbort logs a transaction abort
// This initiates the undo process for the transaction
func (w *WAL) LogAbort(tid *primitives.TransactionID) (primitives.LSN, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	txnInfo, err := w.getTransactionInfo(tid)
	if err != nil {
		return 0, err
	}

	lsn, err := w.logTransactionOperation(record.AbortRecord, tid, txnInfo.LastLSN)
	if err != nil {
		return 0, err
	}

	txnInfo.LastLSN = lsn
	txnInfo.UndoNextLSN = txnInfo.LastLSN
	return lsn, nil
}

// Close closes the WAL gracefully
// Flushes any remaining buffered data and closes the file
func (w *WAL) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if err := w.writer.Close(); err != nil {
		return fmt.Errorf("failed to close WAL writer: %v", err)
	}

	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close WAL file: %v", err)
	}

	return nil
}

// LogUpdate logs a page update with before and after images
// The buffer pool calls this at commit for each page the transaction dirtied
func (w *WAL) LogUpdate(tid *primitives.TransactionID, pageID primitives.PageID, beforeImage, afterImage []byte) (primitives.LSN, error) {
	return w.logDataOperation(record.UpdateRecord, tid, pageID, beforeImage, afterImage)
}

// LogInsert logs a tuple insertion
// Only needs after image - there's nothing to undo to (tuple didn't exist)
// During recovery, we REDO the insert by applying the after image
func (w *WAL) LogInsert(tid *primitives.TransactionID, pageID primitives.PageID, afterImage []byte) (primitives.LSN, error) {
	return w.logDataOperation(record.InsertRecord, tid, pageID, nil, afterImage)
}

// LogDelete logs a tuple deletion
// Only needs before image - this is what we restore during UNDO
// During recovery, REDO means "ensure tuple is deleted" (no-op if already gone)
func (w *WAL) LogDelete(tid *primitives.TransactionID, pageID primitives.PageID, beforeImage []byte) (primitives.LSN, error) {
	return w.logDataOperation(record.DeleteRecord, tid, pageID, beforeImage, nil)
}

// GetDirtyPages returns a copy of the dirty page table
// Used during checkpointing
func (w *WAL) GetDirtyPages() map[primitives.PageID]primitives.LSN {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	pages := make(map[primitives.PageID]primitives.LSN, len(w.dirtyPages))
	maps.Copy(pages, w.dirtyPages)
	return pages
}

// GetActiveTransactions returns a list of active transaction IDs
// Used during checkpointing
func (w *WAL) GetActiveTransactions() []*primitives.TransactionID {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	txns := make([]*primitives.TransactionID, 0, len(w.activeTxns))
	for tid := range w.activeTxns {
		txns = append(txns, tid)
	}
	return txns
}

// GetLastLSN returns the last primitives.LSN for a transaction
// Used for building PrevLSN chains
func (w *WAL) GetLastLSN(tid *primitives.TransactionID) (primitives.LSN, error) {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	txnInfo, exists := w.activeTxns[tid]
	if !exists {
		return 0, fmt.Errorf("transaction %v not found", tid)
	}

	return txnInfo.LastLSN, nil
}

// Rollback performs the reverse-scan ARIES-lite undo for an aborted
// transaction: it walks the log from its current tail back to tid's
// BeginRecord and, for each page tid touched, returns the before-image of
// the first (i.e. most recent) UPDATE/DELETE record it finds for that page.
// Earlier records for an already-seen page are skipped, since the most
// recent before-image already restores the page to its pre-transaction
// state. For every image returned, Rollback appends a CLR so a crash during
// undo never causes recovery to redo work this rollback already performed.
// Rollback does not install the images; writing each image into its page is
// left to the caller. Pages whose only records are INSERTs (no before-image)
// are not returned.
func (w *WAL) Rollback(tid *primitives.TransactionID) (map[primitives.PageID][]byte, error) {
	w.mutex.Lock()
	txnInfo, err := w.getTransactionInfo(tid)
	if err == nil {
		err = w.writer.Force(w.writer.CurrentLSN())
	}
	w.mutex.Unlock()
	if err != nil {
		return nil, err
	}

	all, err := w.readAllRecords()
	if err != nil {
		return nil, err
	}

	undone := make(map[primitives.PageID][]byte)
	type pageKey struct {
		table primitives.TableID
		page  primitives.PageNumber
	}
	seen := make(map[pageKey]bool)

	for i := len(all) - 1; i >= 0; i-- {
		rec := all[i]
		if rec.TID == nil || !rec.TID.Equals(tid) {
			continue
		}
		if rec.Type == record.BeginRecord {
			break
		}
		if rec.Type != record.UpdateRecord && rec.Type != record.InsertRecord && rec.Type != record.DeleteRecord {
			continue
		}
		if rec.PageID == nil || rec.BeforeImage == nil {
			continue
		}
		key := pageKey{rec.PageID.GetTableID(), rec.PageID.PageNo()}
		if seen[key] {
			continue
		}
		seen[key] = true
		undone[rec.PageID] = rec.BeforeImage

		w.mutex.Lock()
		clr := record.NewLogRecord(record.CLRRecord, tid, rec.PageID, nil, rec.BeforeImage, txnInfo.LastLSN)
		clr.UndoNextLSN = rec.PrevLSN
		if lsn, werr := w.writeRecord(clr); werr == nil {
			txnInfo.LastLSN = lsn
		}
		w.mutex.Unlock()
	}

	return undone, nil
}

// RecoveryPlan is the outcome of the analysis pass run on startup: the pages
// that were dirty and the transactions that were still active when the
// system previously stopped, plus every record that must be considered for
// REDO.
type RecoveryPlan struct {
	DirtyPages  map[primitives.PageID]primitives.LSN
	LosersTxns  []*primitives.TransactionID
	RedoRecords []*record.LogRecord
}

// Recover runs the ARIES-lite analysis pass: it replays the whole log,
// rebuilds the dirty-page table and the set of transactions that never
// committed or aborted ("losers"), and returns every record so the caller
// can REDO them in LSN order before undoing the losers with Rollback.
func (w *WAL) Recover() (*RecoveryPlan, error) {
	all, err := w.readAllRecords()
	if err != nil {
		return nil, err
	}

	dirty := make(map[primitives.PageID]primitives.LSN)
	losers := make(map[int64]*primitives.TransactionID)

	for _, rec := range all {
		if rec.TID == nil {
			continue
		}
		switch rec.Type {
		case record.BeginRecord:
			losers[rec.TID.ID()] = rec.TID
		case record.CommitRecord, record.AbortRecord:
			delete(losers, rec.TID.ID())
		case record.UpdateRecord, record.InsertRecord, record.DeleteRecord:
			if rec.PageID != nil {
				if _, exists := dirty[rec.PageID]; !exists {
					dirty[rec.PageID] = rec.LSN
				}
			}
		}
	}

	loserList := make([]*primitives.TransactionID, 0, len(losers))
	for _, tid := range losers {
		loserList = append(loserList, tid)
	}

	w.mutex.Lock()
	w.dirtyPages = dirty
	for _, tid := range loserList {
		if _, exists := w.activeTxns[tid]; !exists {
			w.activeTxns[tid] = &record.TransactionLogInfo{}
		}
	}
	w.mutex.Unlock()

	return &RecoveryPlan{
		DirtyPages:  dirty,
		LosersTxns:  loserList,
		RedoRecords: all,
	}, nil
}

// readAllRecords opens an independent reader over the WAL file and returns
// every record currently on disk. Used by both Rollback and Recover, which
// each need their own sequential pass over the log.
func (w *WAL) readAllRecords() ([]*record.LogRecord, error) {
	reader, err := NewLogReader(w.file.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to open log for scanning: %w", err)
	}
	defer reader.Close()

	return reader.ReadAll()
}

func (w *WAL) writeRecord(rec *record.LogRecord) (primitives.LSN, error) {
	data, err := record.SerializeLogRecord(rec)
	if err != nil {
		return 0, err
	}

	return w.writer.Write(data)
}

// Force ensures all log records up to the given primitives.LSN are on disk
// This is called during commit to ensure durability
func (w *WAL) Force(lsn primitives.LSN) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	return w.writer.Force(lsn)
}

func (w *WAL) getTransactionInfo(tid *primitives.TransactionID) (*record.TransactionLogInfo, error) {
	txnInfo, exists := w.activeTxns[tid]
	if !exists {
		return nil, fmt.Errorf("transaction %v not found in active transactions", tid)
	}
	return txnInfo, nil
}

// logDataOperation is a helper for logging data operations (insert, update, delete)
func (w *WAL) logDataOperation(recordType record.LogRecordType, tid *primitives.TransactionID, pageID primitives.PageID, beforeImage, afterImage []byte) (primitives.LSN, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	txnInfo, err := w.getTransactionInfo(tid)
	if err != nil {
		return FirstLSN, err
	}

	rec := record.NewLogRecord(recordType, tid, pageID, beforeImage, afterImage, txnInfo.LastLSN)

	lsn, err := w.writeRecord(rec)
	if err != nil {
		return 0, err
	}

	txnInfo.LastLSN = lsn

	if _, exists := w.dirtyPages[pageID]; !exists {
		w.dirtyPages[pageID] = lsn
	}

	return lsn, nil
}

func (w *WAL) logTransactionOperation(recordType record.LogRecordType, tid *primitives.TransactionID, prevLSN primitives.LSN) (primitives.LSN, error) {
	rec := record.NewLogRecord(recordType, tid, nil, nil, nil, prevLSN)
	return w.writeRecord(rec)
}
