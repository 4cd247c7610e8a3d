package lock

import (
	"fmt"
	"slices"
	"storemy/pkg/primitives"
	"sync"
	"time"
)

type LockType int

const (
	SharedLock LockType = iota
	ExclusiveLock
)

type Lock struct {
	TID       *primitives.TransactionID
	LockType  LockType
	GrantTime time.Time
}

func NewLock(tid *primitives.TransactionID, lockType LockType) *Lock {
	return &Lock{
		TID:       tid,
		LockType:  lockType,
		GrantTime: time.Now(),
	}
}

// LockGrantor decides whether a lock request can be satisfied against the
// current state of a LockTable, without mutating it.
type LockGrantor struct {
	lockTable *LockTable
}

func NewLockGrantor(lt *LockTable) *LockGrantor {
	return &LockGrantor{lockTable: lt}
}

// CanGrantImmediately determines if a lock can be granted without waiting.
// For exclusive locks, no other transaction can hold any lock on the page.
// For shared locks, no other transaction can hold an exclusive lock on the page.
func (lg *LockGrantor) CanGrantImmediately(tid *primitives.TransactionID, pid primitives.PageID, lockType LockType) bool {
	locks := lg.lockTable.GetPageLocks(pid)
	if len(locks) == 0 {
		return true
	}

	if lockType == ExclusiveLock {
		return !slices.ContainsFunc(locks, func(l *Lock) bool {
			return l.TID != tid
		})
	}

	return !slices.ContainsFunc(locks, func(l *Lock) bool {
		return l.TID != tid && l.LockType == ExclusiveLock
	})
}

// CanUpgradeLock checks if a lock can be upgraded from shared to exclusive.
// A lock can only be upgraded if the transaction holds a shared lock and
// no other transactions hold any locks on the page.
func (lg *LockGrantor) CanUpgradeLock(tid *primitives.TransactionID, pid primitives.PageID) bool {
	if !lg.lockTable.HasLockType(tid, pid, SharedLock) {
		return false
	}

	locks := lg.lockTable.GetPageLocks(pid)
	return !slices.ContainsFunc(locks, func(l *Lock) bool {
		return l.TID != tid
	})
}

// LockManager grants per-page SHARED/EXCLUSIVE locks to transactions.
//
// Blocked requests retry against a bounded counter rather than joining a
// waits-for graph: there is no deadlock detection here, only the give-up
// discipline of converting persistent contention into an abort signal.
type LockManager struct {
	mutex     sync.Mutex
	cond      *sync.Cond
	lockTable *LockTable
	grantor   *LockGrantor
}

const (
	maxLockRetries = 3
	lockRetryDelay = 10 * time.Millisecond
)

// NewLockManager creates and initializes a new LockManager instance.
func NewLockManager() *LockManager {
	lt := NewLockTable()
	lm := &LockManager{
		lockTable: lt,
		grantor:   NewLockGrantor(lt),
	}
	lm.cond = sync.NewCond(&lm.mutex)
	return lm
}

// LockPage attempts to acquire a SHARED (exclusive=false) or EXCLUSIVE
// (exclusive=true) lock on pid for tid.
//
// If the request cannot be granted immediately it waits on a condition
// variable, woken by a lock release or after lockRetryDelay, and then
// retries, up to maxLockRetries times. Persistent contention past that bound
// surfaces as an error, which the caller should treat as "abort tid".
func (lm *LockManager) LockPage(tid *primitives.TransactionID, pid primitives.PageID, exclusive bool) error {
	if tid == nil {
		return fmt.Errorf("transaction ID cannot be nil")
	}

	lockType := SharedLock
	if exclusive {
		lockType = ExclusiveLock
	}

	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	for attempt := 0; ; attempt++ {
		if lm.lockTable.HasSufficientLock(tid, pid, lockType) {
			return nil
		}

		if lockType == ExclusiveLock && lm.grantor.CanUpgradeLock(tid, pid) {
			lm.lockTable.UpgradeLock(tid, pid)
			return nil
		}

		if lm.grantor.CanGrantImmediately(tid, pid, lockType) {
			lm.lockTable.AddLock(tid, pid, lockType)
			return nil
		}

		if attempt >= maxLockRetries {
			return fmt.Errorf("transaction %d should abort: could not acquire lock on page %v", tid.ID(), pid)
		}

		timer := time.AfterFunc(lockRetryDelay, func() {
			lm.mutex.Lock()
			lm.cond.Broadcast()
			lm.mutex.Unlock()
		})
		lm.cond.Wait()
		timer.Stop()
	}
}

// releasePage removes tid's lock on pid, if any, and wakes waiters.
func (lm *LockManager) releasePage(tid *primitives.TransactionID, pid primitives.PageID) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	lm.lockTable.ReleaseLock(tid, pid)
	lm.cond.Broadcast()
}

// ReleasePage is the exported form of releasePage, used by callers outside
// this package that release a single page lock (e.g. a failed probe during
// tuple insertion).
func (lm *LockManager) ReleasePage(tid *primitives.TransactionID, pid primitives.PageID) {
	lm.releasePage(tid, pid)
}

// UnlockAllPages releases every lock tid holds, waking any waiters on the
// affected pages. Called on both commit and abort.
func (lm *LockManager) UnlockAllPages(tid *primitives.TransactionID) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	lm.lockTable.ReleaseAllLocks(tid)
	lm.cond.Broadcast()
}

// HoldsLock reports whether tid currently holds any lock on pid.
func (lm *LockManager) HoldsLock(tid *primitives.TransactionID, pid primitives.PageID) bool {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	return lm.lockTable.HasLockType(tid, pid, SharedLock) || lm.lockTable.HasLockType(tid, pid, ExclusiveLock)
}

// IsPageLocked checks if any locks are currently held on a page.
func (lm *LockManager) IsPageLocked(pid primitives.PageID) bool {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	return lm.lockTable.IsPageLocked(pid)
}
