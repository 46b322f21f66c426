package flashing

import "fmt"

// VerifyMismatchError means the chip rejected a verify (A6) chunk,
// spec.md §7 VerifyMismatch{offset}.
type VerifyMismatchError struct {
	Offset uint32
}

func (e *VerifyMismatchError) Error() string {
	return fmt.Sprintf("flashing: verify mismatch at offset 0x%08x", e.Offset)
}
