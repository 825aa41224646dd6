// Package audit records sensitive mutations durably.
// Writes go straight to the audit log store; when that fails the record is parked
// in a dead-letter queue in the key-value store and replayed by the Reconciler.
package audit

import "errors"

// Sentinel errors for audit operations.
var (
	// ErrStorageWrite indicates the audit log store rejected or could not accept a record.
	ErrStorageWrite = errors.New("audit log store write failed")

	// ErrEnqueue indicates the record could not be parked in the dead-letter queue.
	// Record only surfaces it together with ErrStorageWrite, when the record is lost.
	ErrEnqueue = errors.New("audit dead-letter enqueue failed")
)
