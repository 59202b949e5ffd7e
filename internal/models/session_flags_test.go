package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionFlagValuesAreStable(t *testing.T) {
	assert.Equal(t, SessionFlags(1), SessionHTTPOnly)
	assert.Equal(t, SessionFlags(2), SessionSecure)
	assert.Equal(t, SessionFlags(4), SessionSameSite)
	assert.Equal(t, SessionFlags(8), SessionSameSiteStrict)
	assert.Equal(t, SessionFlags(15), DefaultSessionFlags)
}

func TestParseSessionFlags(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want SessionFlags
	}{
		{"default list", "http-only,secure,same-site,same-site-strict", DefaultSessionFlags},
		{"spaces", "http-only, same-site", SessionHTTPOnly | SessionSameSite},
		{"single", "secure", SessionSecure},
		{"empty", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSessionFlags(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSessionFlagsUnknown(t *testing.T) {
	_, err := ParseSessionFlags("http-only,sticky")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"sticky"`)
}

func TestSessionFlagsRoundTrip(t *testing.T) {
	for f := SessionFlags(0); f <= DefaultSessionFlags; f++ {
		got, err := ParseSessionFlags(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, got, "flags %d", f)
	}
}
