package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeISBN(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"978-0-13-468599-1", "9780134685991"},
		{"9780134685991", "9780134685991"},
		{"978 0 13 468599 1", "9780134685991"},
		{"0-306-40615-2", "0306406152"},
		{"080442957X", "080442957X"},
		{"0-8044-2957-X", "080442957X"},
		{" 9780134685991 ", "9780134685991"},
	}
	for _, tc := range cases {
		got, err := NormalizeISBN(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestNormalizeISBNEqualForms(t *testing.T) {
	a, err := NormalizeISBN("978-0-13-468599-1")
	require.NoError(t, err)
	b, err := NormalizeISBN("9780134685991")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNormalizeISBNRejectsBadShapes(t *testing.T) {
	bad := []string{
		"",
		"12345",
		"123456789012",     // 12 digits
		"12345678901234",   // 14 digits
		"abcdefghij",       // letters
		"12345678X9",       // X not in check position
		"978013468599X",    // X not allowed in ISBN-13
		"978-0-13-468599-1-000000000", // over 20 chars once normalized
	}
	for _, raw := range bad {
		_, err := NormalizeISBN(raw)
		assert.ErrorIs(t, err, ErrInvalidISBN, raw)
	}
}
