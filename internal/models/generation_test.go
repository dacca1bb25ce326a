package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFingerprintKey_RoundTrip tests that a key parses back to its fingerprint
func TestFingerprintKey_RoundTrip(t *testing.T) {
	fp := NewFingerprint(" 123 ", MarketTotals, []string{"Betano", "bet365", "betano"}, "")
	assert.Equal(t, "odds|123|totals|bet365,betano", fp.Key())

	parsed, err := ParseFingerprintKey(fp.Key())
	require.NoError(t, err)
	assert.Equal(t, fp, parsed)

	_, err = ParseFingerprintKey("odds|1|2|totals|bet365")
	assert.Error(t, err)
}

// TestValidateEventID tests that ids holding key separators are rejected
func TestValidateEventID(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "trimmed", in: " 123 ", want: "123"},
		{name: "empty", in: "  ", wantErr: true},
		{name: "pipe", in: "12|3", wantErr: true},
		{name: "comma", in: "1,2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateEventID(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
