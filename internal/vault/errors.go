package vault

import (
	"errors"
	"fmt"
)

var (
	// ErrPolicyViolation is returned when a vault operation is attempted
	// without a passing policy decision. It indicates an integration defect
	// and is never swallowed.
	ErrPolicyViolation = errors.New("vault: operation attempted without a passing policy decision")

	// ErrKeyUnavailable is returned when the wrapping key material for an
	// encrypted record is missing or has been discarded. The read fails
	// closed; the content stays encrypted.
	ErrKeyUnavailable = errors.New("vault: decryption key unavailable")

	// ErrNotFound is returned when no record exists under the given id.
	ErrNotFound = errors.New("vault: record not found")
)

// IntegrityError reports a checksum mismatch or an authentication failure on
// read. Corrupted content is never returned; the record is flagged, not
// auto-repaired.
type IntegrityError struct {
	RecordID string
	Detail   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("vault: integrity check failed for record %s: %s", e.RecordID, e.Detail)
}
