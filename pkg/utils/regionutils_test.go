package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidRegion(t *testing.T) {
	assert.True(t, IsValidRegion("us-east-1"))
	assert.True(t, IsValidRegion("ap-northeast-2"))
	assert.False(t, IsValidRegion("us-moon-1"))
	assert.False(t, IsValidRegion(""))
}

func TestGetRegionDescriptiveName(t *testing.T) {
	assert.Equal(t, "US East (N. Virginia)", GetRegionDescriptiveName("us-east-1"))
	// Unknown regions fall back to the code itself.
	assert.Equal(t, "us-moon-1", GetRegionDescriptiveName("us-moon-1"))
}
