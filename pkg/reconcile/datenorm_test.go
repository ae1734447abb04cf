package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSheetDate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{name: "with time is utc", raw: "12/7/2025 18:10:47", want: "2025-07-12T18:10:47.000Z", ok: true},
		{name: "date only is close of business", raw: "13/7/2025", want: "2025-07-13T21:00:00.000Z", ok: true},
		{name: "two digit day and month", raw: "01/12/2024 00:00:00", want: "2024-12-01T00:00:00.000Z", ok: true},
		{name: "surrounding spaces", raw: "  5/3/2025  ", want: "2025-03-05T21:00:00.000Z", ok: true},
		{name: "garbage", raw: "not-a-date", ok: false},
		{name: "empty", raw: "", ok: false},
		{name: "iso is not a sheet date", raw: "2025-07-13", ok: false},
		{name: "invalid day", raw: "31/2/2025", ok: false},
		{name: "invalid month", raw: "1/13/2025", ok: false},
		{name: "invalid hour", raw: "1/1/2025 24:00:00", ok: false},
		{name: "missing seconds", raw: "1/1/2025 10:00", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeSheetDate(tt.raw)
			require.Equal(t, tt.ok, ok)
			if !tt.ok {
				assert.True(t, got.IsZero(), "failed normalisation must not produce a date")
				return
			}
			assert.Equal(t, tt.want, InstantKey(got))
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestNormalizeSheetDateDateOnlyMatchesExplicitOffset(t *testing.T) {
	got, ok := NormalizeSheetDate("13/7/2025")
	require.True(t, ok)
	want, err := time.Parse(time.RFC3339, "2025-07-13T18:00:00-03:00")
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
}

func TestParseCalendarDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{raw: "2025-07-13", want: "2025-07-13", ok: true},
		{raw: "2025-07-13T00:00:00.000Z", want: "2025-07-13", ok: true},
		{raw: "2025-07-13T10:30:00", want: "2025-07-13", ok: true},
		{raw: "13/7/2025", want: "2025-07-13", ok: true},
		{raw: "2024-03", want: "2024-03-01", ok: true},
		{raw: "2024-Q2", want: "2024-04-01", ok: true},
		{raw: "2024 T4", want: "2024-10-01", ok: true},
		{raw: "30/2/2024", ok: false},
		{raw: "yesterday", ok: false},
		{raw: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseCalendarDate(tt.raw)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, DateKey(got))
			}
		})
	}
}
