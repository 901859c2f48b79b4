package durationx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParse_Numeric(t *testing.T) {
	d, err := Parse("72", time.Hour)
	require.NoError(t, err)
	require.Equal(t, 72*time.Hour, d)
}

func TestParse_Suffixed(t *testing.T) {
	cases := map[string]time.Duration{
		"1d12h":  36 * time.Hour,
		"4h30m":  4*time.Hour + 30*time.Minute,
		"90s":    90 * time.Second,
		"1D":     24 * time.Hour,
		"5m":     5 * time.Minute,
	}
	for raw, want := range cases {
		d, err := Parse(raw, time.Hour)
		require.NoError(t, err, raw)
		require.Equal(t, want, d, raw)
	}
}

func TestParse_EmptyIsInvalid(t *testing.T) {
	_, err := Parse("", time.Hour)
	require.Error(t, err)
	_, err = Parse("   ", time.Hour)
	require.Error(t, err)
}

func TestParse_NegativeIsInvalid(t *testing.T) {
	_, err := Parse("-5h", time.Hour)
	require.Error(t, err)
	_, err = Parse("-1", time.Hour)
	require.Error(t, err)
}

func TestParse_UnparseableIsInvalid(t *testing.T) {
	_, err := Parse("banana", time.Hour)
	require.Error(t, err)
	_, err = Parse("5x", time.Hour)
	require.Error(t, err)
}
