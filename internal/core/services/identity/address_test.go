package identity

import (
	"testing"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestClassifyAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    domain.AddressType
	}{
		{"random static", "C3:11:22:33:44:55", domain.AddressRandomStatic},
		{"resolvable private", "4A:11:22:33:44:55", domain.AddressResolvablePrivate},
		{"non resolvable private", "12:11:22:33:44:55", domain.AddressNonResolvablePrivate},
		{"public range", "8C:11:22:33:44:55", domain.AddressPublic},
		{"dash separated", "4a-11-22-33-44-55", domain.AddressResolvablePrivate},
		{"garbage", "ZZ:11", domain.AddressPublic},
		{"empty", "", domain.AddressPublic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyAddress(tt.address))
		})
	}
}
