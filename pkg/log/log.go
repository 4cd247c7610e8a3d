// Package log is the write-ahead log facade consumed by the rest of the
// engine. The durability protocol itself (record layout, buffered writer,
// ARIES-lite recovery/rollback) lives in the wal and record subpackages;
// this file just re-exports the surface callers actually need so they can
// import "storemy/pkg/log" without reaching into an internal subpackage.
package log

import "storemy/pkg/log/wal"

type WAL = wal.WAL

type RecoveryPlan = wal.RecoveryPlan

func NewWAL(logPath string, bufferSize int) (*WAL, error) {
	return wal.NewWAL(logPath, bufferSize)
}
