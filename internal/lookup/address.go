package lookup

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidAddress = errors.New("invalid IPv4 address")

// AddressToInt packs a dotted-quad address big-endian into a uint32.
// Exactly four decimal octets in [0,255] are accepted.
func AddressToInt(s string) (uint32, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}

	var n uint32
	for _, p := range parts {
		o, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
		n = n<<8 | uint32(o)
	}
	return n, nil
}

// IntToAddress is the inverse of AddressToInt.
func IntToAddress(n uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}
