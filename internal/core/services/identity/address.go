package identity

import (
	"encoding/hex"
	"strings"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
)

// ClassifyAddress reads the two most significant bits of the first address
// octet. Addresses that cannot be parsed are reported as public.
func ClassifyAddress(address string) domain.AddressType {
	first, ok := firstOctet(address)
	if !ok {
		return domain.AddressPublic
	}
	switch first & 0xC0 {
	case 0xC0:
		return domain.AddressRandomStatic
	case 0x40:
		return domain.AddressResolvablePrivate
	case 0x00:
		return domain.AddressNonResolvablePrivate
	default:
		return domain.AddressPublic
	}
}

func firstOctet(address string) (byte, bool) {
	s := strings.TrimSpace(address)
	s = strings.NewReplacer(":", "", "-", "", ".", "").Replace(s)
	if len(s) < 2 {
		return 0, false
	}
	b, err := hex.DecodeString(s[:2])
	if err != nil {
		return 0, false
	}
	return b[0], true
}
