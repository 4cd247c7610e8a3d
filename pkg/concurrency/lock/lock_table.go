package lock

import (
	"storemy/pkg/primitives"
)

// LockTable manages the mapping of pages to locks and transactions to their held locks.
type LockTable struct {
	pageLocks        map[primitives.PageID][]*Lock
	transactionLocks map[*primitives.TransactionID]map[primitives.PageID]LockType
}

func NewLockTable() *LockTable {
	return &LockTable{
		pageLocks:        make(map[primitives.PageID][]*Lock),
		transactionLocks: make(map[*primitives.TransactionID]map[primitives.PageID]LockType),
	}
}

// HasSufficientLock checks if the transaction already holds a sufficient lock on the page.
func (lt *LockTable) HasSufficientLock(tid *primitives.TransactionID, pid primitives.PageID, reqLockType LockType) bool {
	transactionPages, exists := lt.transactionLocks[tid]
	if !exists {
		return false
	}

	currentLockType, hasPage := transactionPages[pid]
	if !hasPage {
		return false
	}

	if currentLockType == ExclusiveLock {
		return true
	}

	return currentLockType == SharedLock && reqLockType == SharedLock
}

func (lt *LockTable) HasLockType(tid *primitives.TransactionID, pid primitives.PageID, lockType LockType) bool {
	if txPages, exists := lt.transactionLocks[tid]; exists {
		if currentLock, hasPage := txPages[pid]; hasPage {
			return currentLock == lockType
		}
	}
	return false
}

func (lt *LockTable) GetPageLocks(pid primitives.PageID) []*Lock {
	return lt.pageLocks[pid]
}

func (lt *LockTable) AddLock(tid *primitives.TransactionID, pid primitives.PageID, lockType LockType) {
	l := NewLock(tid, lockType)
	lt.pageLocks[pid] = append(lt.pageLocks[pid], l)

	if lt.transactionLocks[tid] == nil {
		lt.transactionLocks[tid] = make(map[primitives.PageID]LockType)
	}
	lt.transactionLocks[tid][pid] = lockType
}

func (lt *LockTable) IsPageLocked(pid primitives.PageID) bool {
	locks, exists := lt.pageLocks[pid]
	return exists && len(locks) > 0
}

// UpgradeLock atomically raises a transaction's sole SHARED lock on pid to EXCLUSIVE.
// The caller must already have verified via CanUpgradeLock that no other
// transaction holds a lock on pid.
func (lt *LockTable) UpgradeLock(tid *primitives.TransactionID, pid primitives.PageID) {
	for _, l := range lt.pageLocks[pid] {
		if l.TID == tid {
			l.LockType = ExclusiveLock
			break
		}
	}
	lt.transactionLocks[tid][pid] = ExclusiveLock
}

// ReleaseAllLocks removes every lock held by tid and returns the pages whose
// wait queues should be re-examined as a result.
func (lt *LockTable) ReleaseAllLocks(tid *primitives.TransactionID) []primitives.PageID {
	txPages, exists := lt.transactionLocks[tid]
	if !exists {
		return nil
	}

	affectedPages := make([]primitives.PageID, 0, len(txPages))
	for pid := range txPages {
		affectedPages = append(affectedPages, pid)
	}

	for _, pid := range affectedPages {
		lt.removeHolder(tid, pid)
	}

	delete(lt.transactionLocks, tid)
	return affectedPages
}

// ReleaseLock removes the single lock tid holds on pid, pruning the page's
// entry entirely once its holder list is empty.
func (lt *LockTable) ReleaseLock(tid *primitives.TransactionID, pid primitives.PageID) {
	lt.removeHolder(tid, pid)

	if txPages, exists := lt.transactionLocks[tid]; exists {
		delete(txPages, pid)
		if len(txPages) == 0 {
			delete(lt.transactionLocks, tid)
		}
	}
}

func (lt *LockTable) removeHolder(tid *primitives.TransactionID, pid primitives.PageID) {
	locks, exists := lt.pageLocks[pid]
	if !exists {
		return
	}

	newLocks := make([]*Lock, 0, len(locks))
	for _, l := range locks {
		if l.TID != tid {
			newLocks = append(newLocks, l)
		}
	}

	if len(newLocks) > 0 {
		lt.pageLocks[pid] = newLocks
	} else {
		delete(lt.pageLocks, pid)
	}
}
