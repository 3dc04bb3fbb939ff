package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsVersionGreaterOrEqualThan(t *testing.T) {
	tests := []struct {
		version string
		target  string
		want    bool
	}{
		{version: "0.2.0", target: "0.1.9", want: true},
		{version: "0.2.0", target: "0.2.0", want: true},
		{version: "0.2.1", target: "0.10.0", want: false},
		{version: "1.0.0", target: "0.99.99", want: true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsVersionGreaterOrEqualThan(tt.version, tt.target), "%s >= %s", tt.version, tt.target)
	}
}

func TestIsVersionGreaterThan(t *testing.T) {
	assert.True(t, IsVersionGreaterThan("0.2.1", "0.2.0"))
	assert.False(t, IsVersionGreaterThan("0.2.0", "0.2.0"))
	assert.False(t, IsVersionGreaterThan("0.1.5", "0.2.0"))
}

func TestGetMinorVersion(t *testing.T) {
	assert.Equal(t, "0.2", GetMinorVersion("0.2.0"))
	assert.Equal(t, "1.10", GetMinorVersion("1.10.3"))
	assert.Equal(t, "", GetMinorVersion("1"))
}
