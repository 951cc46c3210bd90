package timefmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n, err := New(DefaultTimezone)
	require.NoError(t, err)
	return n
}

func TestNormalize_Valid(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		raw  string
		want string
	}{
		{"08/12/2025 20:00", "08/12/2025 20:00:00"},
		{"08/12/2025 20:00:31", "08/12/2025 20:00:31"},
		{"01/01/2024 00:00:00", "01/01/2024 00:00:00"},
		{"29/02/2024 12:30", "29/02/2024 12:30:00"}, // leap day
		{"31/12/2025 23:59:59", "31/12/2025 23:59:59"},
	}
	for _, tc := range tests {
		got, err := n.Normalize(tc.raw)
		require.NoError(t, err, "raw %q", tc.raw)
		assert.Equal(t, tc.want, got)
	}
}

func TestNormalize_InvalidFormat(t *testing.T) {
	n := newTestNormalizer(t)

	for _, raw := range []string{
		"",
		"2025-02-31T10:00:00Z", // ISO form is rejected outright
		"8/12/2025 20:00",      // day must be two digits
		"08/12/25 20:00",       // year must be four digits
		"08/12/2025",           // time is required
		"08/12/2025 24:00",     // hour out of range
		"08/12/2025 20:60",     // minute out of range
		"08/12/2025 20:00:61",  // second out of range
		"32/12/2025 20:00",     // day out of range
		"08/13/2025 20:00",     // month out of range
		"08/12/2025  20:00",    // double space
	} {
		_, err := n.Normalize(raw)
		assert.ErrorIs(t, err, ErrInvalidFormat, "raw %q", raw)
	}
}

func TestNormalize_InvalidCalendarDate(t *testing.T) {
	n := newTestNormalizer(t)

	for _, raw := range []string{
		"31/02/2025 10:00:00",
		"30/02/2024 10:00",
		"29/02/2025 10:00", // 2025 is not a leap year
		"31/04/2025 10:00",
		"31/11/2025 10:00",
	} {
		_, err := n.Normalize(raw)
		assert.ErrorIs(t, err, ErrInvalidCalendarDate, "raw %q", raw)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	n := newTestNormalizer(t)

	first, err := n.Normalize("15/06/2025 08:45")
	require.NoError(t, err)
	second, err := n.Normalize(first)
	require.NoError(t, err)
	assert.Equal(t, first, second, "normalizing a normalized value must be a fixpoint")
}

func TestNew_UnknownTimezone(t *testing.T) {
	_, err := New("Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestNew_EmptyDefaultsToSaoPaulo(t *testing.T) {
	n, err := New("")
	require.NoError(t, err)
	got, err := n.Normalize("08/12/2025 20:00")
	require.NoError(t, err)
	assert.Equal(t, "08/12/2025 20:00:00", got)
}
