package lookup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressToInt(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
	}{
		{"0.0.0.0", 0},
		{"0.0.0.1", 1},
		{"0.0.1.0", 256},
		{"10.0.0.0", 167772160},
		{"10.0.0.255", 167772415},
		{"192.168.1.1", 3232235777},
		{"255.255.255.255", 4294967295},
		{"010.0.0.1", 167772161},
	}
	for _, tt := range tests {
		got, err := AddressToInt(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestAddressToIntInvalid(t *testing.T) {
	for _, in := range []string{
		"",
		"1.2.3",
		"1.2.3.4.5",
		"256.0.0.1",
		"1.2.3.-4",
		"1.2.3.+4",
		"a.b.c.d",
		"1..2.3",
		"1.2.3.4 ",
		"::1",
		"1.2.3.0x1",
	} {
		_, err := AddressToInt(in)
		assert.ErrorIs(t, err, ErrInvalidAddress, "%q", in)
	}
}

func TestIntToAddressRoundTrip(t *testing.T) {
	for _, n := range []uint32{0, 1, 255, 256, 65535, 167772160, 2147483648, 3232235777, 4294967295} {
		addr := IntToAddress(n)
		got, err := AddressToInt(addr)
		require.NoError(t, err, addr)
		assert.Equal(t, n, got)
	}
	assert.Equal(t, "10.0.0.5", IntToAddress(167772165))
}
