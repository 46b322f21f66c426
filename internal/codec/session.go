package codec

// Session-key derivation, spec.md §4.B "Session-key derivation" and the
// Open Question in §9 (no hardware trace was available to this pack; see
// SPEC_FULL.md §5 for the resolution pinned here).
//
// checksum = sum(uid) & 0xFF
// A3 payload[i] = seed[i] XOR uid[i % 8], for the 30-byte seed the host
// generates and sends to the chip
// xor_key = checksum XOR seed[0]
//
// This reproduces the spec's worked write-chunk example bit-for-bit (see
// session_test.go) and satisfies the XOR-involution property of §8 item 3
// by construction: XOR with a constant byte is its own inverse.

const SeedSize = 30

// Checksum computes the single-byte UID checksum used by DeriveXORKey.
// The A3 payload built by BuildSetKeyPayload does not include it.
func Checksum(uid [8]byte) uint8 {
	var sum uint8
	for _, b := range uid {
		sum += b
	}
	return sum
}

// BuildSetKeyPayload constructs the 30-byte A3 payload from the UID and a
// host-generated seed buffer.
func BuildSetKeyPayload(uid [8]byte, seed [SeedSize]byte) []byte {
	payload := make([]byte, SeedSize)
	for i := range payload {
		payload[i] = seed[i] ^ uid[i%8]
	}
	return payload
}

// DeriveXORKey computes the single-byte session XOR key from the UID and
// the same seed used to build the A3 payload.
func DeriveXORKey(uid [8]byte, seed [SeedSize]byte) uint8 {
	return Checksum(uid) ^ seed[0]
}

// XOR applies the session XOR key byte-wise to data, in place semantics
// avoided: it returns a new slice. Spec.md §4.B: code write/verify (A5/A6)
// and EEPROM write (AA) payloads are obfuscated this way; reads are not.
// Applying XOR twice with the same key returns the original bytes (§8
// item 3), since byte-wise XOR with a constant is an involution.
func XOR(data []byte, key uint8) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ key
	}
	return out
}
