package chipdb

import (
	"fmt"
	"strconv"
	"strings"
)

func decimalString(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}

// parseSize normalizes a flash/EEPROM size string into bytes, spec.md
// §4.C: "NK", "NKiB", plain decimal, or a raw integer.
func parseSize(raw string) (uint32, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	upper := strings.ToUpper(s)
	switch {
	case strings.HasSuffix(upper, "KIB"):
		n, err := strconv.ParseUint(strings.TrimSpace(upper[:len(upper)-3]), 10, 32)
		if err != nil {
			return 0, fmt.Errorf("chipdb: bad size %q: %w", raw, err)
		}
		return uint32(n) * 1024, nil
	case strings.HasSuffix(upper, "K"):
		n, err := strconv.ParseUint(strings.TrimSpace(upper[:len(upper)-1]), 10, 32)
		if err != nil {
			return 0, fmt.Errorf("chipdb: bad size %q: %w", raw, err)
		}
		return uint32(n) * 1024, nil
	default:
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("chipdb: bad size %q: %w", raw, err)
		}
		return uint32(n), nil
	}
}
