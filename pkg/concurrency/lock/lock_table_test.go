package lock

import (
	"storemy/pkg/primitives"
	"storemy/pkg/storage/heap"
	"testing"
)

func TestNewLockTable(t *testing.T) {
	lt := NewLockTable()

	if lt == nil {
		t.Fatal("NewLockTable() returned nil")
	}
	if lt.pageLocks == nil {
		t.Error("pageLocks map not initialized")
	}
	if lt.transactionLocks == nil {
		t.Error("transactionLocks map not initialized")
	}
}

func TestAddLock(t *testing.T) {
	lt := NewLockTable()
	tid := primitives.NewTransactionID()
	pid := heap.NewHeapPageID(1, 1)

	lt.AddLock(tid, pid, SharedLock)

	locks := lt.GetPageLocks(pid)
	if len(locks) != 1 {
		t.Fatalf("expected 1 lock, got %d", len(locks))
	}
	if locks[0].TID != tid {
		t.Error("lock has wrong transaction ID")
	}
	if locks[0].LockType != SharedLock {
		t.Error("lock has wrong type")
	}
	if lt.transactionLocks[tid][pid] != SharedLock {
		t.Error("transaction lock type mismatch")
	}
}

func TestAddMultipleLocks(t *testing.T) {
	lt := NewLockTable()
	tid1 := primitives.NewTransactionID()
	tid2 := primitives.NewTransactionID()
	pid := heap.NewHeapPageID(1, 1)

	lt.AddLock(tid1, pid, SharedLock)
	lt.AddLock(tid2, pid, SharedLock)

	locks := lt.GetPageLocks(pid)
	if len(locks) != 2 {
		t.Fatalf("expected 2 locks, got %d", len(locks))
	}
	if lt.transactionLocks[tid1][pid] != SharedLock {
		t.Error("transaction 1 lock type mismatch")
	}
	if lt.transactionLocks[tid2][pid] != SharedLock {
		t.Error("transaction 2 lock type mismatch")
	}
}

func TestHasSufficientLock(t *testing.T) {
	lt := NewLockTable()
	tid := primitives.NewTransactionID()
	pid := heap.NewHeapPageID(1, 1)

	if lt.HasSufficientLock(tid, pid, SharedLock) {
		t.Error("should not have sufficient lock when no lock exists")
	}

	lt.AddLock(tid, pid, SharedLock)

	if !lt.HasSufficientLock(tid, pid, SharedLock) {
		t.Error("shared lock should be sufficient for shared request")
	}
	if lt.HasSufficientLock(tid, pid, ExclusiveLock) {
		t.Error("shared lock should not be sufficient for exclusive request")
	}

	lt.UpgradeLock(tid, pid)

	if !lt.HasSufficientLock(tid, pid, SharedLock) {
		t.Error("exclusive lock should be sufficient for shared request")
	}
	if !lt.HasSufficientLock(tid, pid, ExclusiveLock) {
		t.Error("exclusive lock should be sufficient for exclusive request")
	}
}

func TestHasLockType(t *testing.T) {
	lt := NewLockTable()
	tid := primitives.NewTransactionID()
	pid := heap.NewHeapPageID(1, 1)

	if lt.HasLockType(tid, pid, SharedLock) {
		t.Error("should not have lock type when no lock exists")
	}

	lt.AddLock(tid, pid, SharedLock)

	if !lt.HasLockType(tid, pid, SharedLock) {
		t.Error("should have shared lock type")
	}
	if lt.HasLockType(tid, pid, ExclusiveLock) {
		t.Error("should not have exclusive lock type")
	}

	lt.UpgradeLock(tid, pid)

	if lt.HasLockType(tid, pid, SharedLock) {
		t.Error("should not have shared lock type after upgrade")
	}
	if !lt.HasLockType(tid, pid, ExclusiveLock) {
		t.Error("should have exclusive lock type after upgrade")
	}
}

func TestIsPageLocked(t *testing.T) {
	lt := NewLockTable()
	tid := primitives.NewTransactionID()
	pid := heap.NewHeapPageID(1, 1)

	if lt.IsPageLocked(pid) {
		t.Error("page should not be locked initially")
	}

	lt.AddLock(tid, pid, SharedLock)
	if !lt.IsPageLocked(pid) {
		t.Error("page should be locked after adding lock")
	}

	lt.ReleaseLock(tid, pid)
	if lt.IsPageLocked(pid) {
		t.Error("page should not be locked after releasing lock")
	}
}

func TestUpgradeLock(t *testing.T) {
	lt := NewLockTable()
	tid := primitives.NewTransactionID()
	pid := heap.NewHeapPageID(1, 1)

	lt.AddLock(tid, pid, SharedLock)
	if lt.GetPageLocks(pid)[0].LockType != SharedLock {
		t.Error("initial lock should be shared")
	}

	lt.UpgradeLock(tid, pid)

	if lt.GetPageLocks(pid)[0].LockType != ExclusiveLock {
		t.Error("lock should be upgraded to exclusive")
	}
	if !lt.HasLockType(tid, pid, ExclusiveLock) {
		t.Error("transaction should have exclusive lock after upgrade")
	}
}

func TestReleaseLock(t *testing.T) {
	lt := NewLockTable()
	tid1 := primitives.NewTransactionID()
	tid2 := primitives.NewTransactionID()
	pid := heap.NewHeapPageID(1, 1)

	lt.AddLock(tid1, pid, SharedLock)
	lt.AddLock(tid2, pid, SharedLock)

	if len(lt.GetPageLocks(pid)) != 2 {
		t.Fatalf("expected 2 locks, got %d", len(lt.GetPageLocks(pid)))
	}

	lt.ReleaseLock(tid1, pid)

	locks := lt.GetPageLocks(pid)
	if len(locks) != 1 {
		t.Fatalf("expected 1 lock after release, got %d", len(locks))
	}
	if locks[0].TID != tid2 {
		t.Error("wrong lock remained after release")
	}
	if _, exists := lt.transactionLocks[tid1]; exists {
		t.Error("transaction 1 should be removed from lock table")
	}

	lt.ReleaseLock(tid2, pid)
	if lt.IsPageLocked(pid) {
		t.Error("page should not be locked after releasing all locks")
	}
	if _, exists := lt.transactionLocks[tid2]; exists {
		t.Error("transaction 2 should be removed from lock table")
	}
}

func TestReleaseAllLocks(t *testing.T) {
	lt := NewLockTable()
	tid := primitives.NewTransactionID()
	pid1 := heap.NewHeapPageID(1, 1)
	pid2 := heap.NewHeapPageID(1, 2)
	pid3 := heap.NewHeapPageID(2, 1)

	lt.AddLock(tid, pid1, SharedLock)
	lt.AddLock(tid, pid2, ExclusiveLock)
	lt.AddLock(tid, pid3, SharedLock)

	if !lt.IsPageLocked(pid1) || !lt.IsPageLocked(pid2) || !lt.IsPageLocked(pid3) {
		t.Error("all pages should be locked")
	}

	affected := lt.ReleaseAllLocks(tid)
	if len(affected) != 3 {
		t.Fatalf("expected 3 affected pages, got %d", len(affected))
	}
	if lt.IsPageLocked(pid1) || lt.IsPageLocked(pid2) || lt.IsPageLocked(pid3) {
		t.Error("no pages should be locked after releasing all")
	}
	if _, exists := lt.transactionLocks[tid]; exists {
		t.Error("transaction should be removed from lock table")
	}

	other := primitives.NewTransactionID()
	if affected := lt.ReleaseAllLocks(other); affected != nil {
		t.Error("should return nil for non-existent transaction")
	}
}

func TestReleaseAllLocksWithMultipleTransactions(t *testing.T) {
	lt := NewLockTable()
	tid1 := primitives.NewTransactionID()
	tid2 := primitives.NewTransactionID()
	pid := heap.NewHeapPageID(1, 1)

	lt.AddLock(tid1, pid, SharedLock)
	lt.AddLock(tid2, pid, SharedLock)

	lt.ReleaseAllLocks(tid1)

	locks := lt.GetPageLocks(pid)
	if len(locks) != 1 {
		t.Fatalf("expected 1 lock after release, got %d", len(locks))
	}
	if locks[0].TID != tid2 {
		t.Error("wrong lock remained after release")
	}
	if !lt.IsPageLocked(pid) {
		t.Error("page should still be locked")
	}
}

func TestGetPageLocks(t *testing.T) {
	lt := NewLockTable()
	pid := heap.NewHeapPageID(1, 1)

	if locks := lt.GetPageLocks(pid); locks != nil {
		t.Error("should return nil for non-existent page")
	}

	tid := primitives.NewTransactionID()
	lt.AddLock(tid, pid, SharedLock)

	locks := lt.GetPageLocks(pid)
	if len(locks) != 1 {
		t.Fatalf("expected 1 lock, got %d", len(locks))
	}
	if locks[0].TID != tid {
		t.Error("lock has wrong transaction ID")
	}
}
