package serial

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigEffective(t *testing.T) {
	testCases := []struct {
		name   string
		conf   Config
		expect Config
	}{
		{
			name:   "defaults",
			conf:   Config{DevName: "/dev/ttyS0"},
			expect: Config{DevName: "/dev/ttyS0", Speed: Baud115200, Bits: 8},
		},
		{
			name:   "supported",
			conf:   Config{Speed: Baud9600, Bits: 7, Parity: ParityOdd, UseParityBit: true},
			expect: Config{Speed: Baud9600, Bits: 7, Parity: ParityOdd, UseParityBit: true},
		},
		{
			name:   "unsupported speed",
			conf:   Config{Speed: 4800, Bits: 8},
			expect: Config{Speed: Baud115200, Bits: 8},
		},
		{
			name:   "unsupported bits",
			conf:   Config{Speed: Baud230400, Bits: 9},
			expect: Config{Speed: Baud230400, Bits: 8},
		},
		{
			name:   "parity without parity bit",
			conf:   Config{Speed: Baud57600, Bits: 8, Parity: ParityEven},
			expect: Config{Speed: Baud57600, Bits: 8},
		},
		{
			name:   "parity bit without parity",
			conf:   Config{Speed: Baud57600, Bits: 8, UseParityBit: true},
			expect: Config{Speed: Baud57600, Bits: 8},
		},
		{
			name:   "unknown parity",
			conf:   Config{Speed: Baud19200, Bits: 6, Parity: Parity(7), UseParityBit: true},
			expect: Config{Speed: Baud19200, Bits: 6},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, tc.conf.Effective())
		})
	}
}

func TestConfigValidate(t *testing.T) {
	require.Error(t, (&Config{}).Validate())
	require.NoError(t, (&Config{DevName: "/dev/ttyUSB0"}).Validate())
}

func TestParityText(t *testing.T) {
	var p Parity
	require.NoError(t, p.UnmarshalText([]byte("Odd")))
	require.Equal(t, ParityOdd, p)
	require.NoError(t, p.UnmarshalText([]byte("even")))
	require.Equal(t, ParityEven, p)
	require.Error(t, p.UnmarshalText([]byte("mark")))
	text, err := ParityOdd.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "odd", string(text))
}
