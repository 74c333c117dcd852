package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersion(t *testing.T) {
	// version.txt is generated at release time; without it the fallback
	// version is reported.
	assert.NotEmpty(t, Version())
}

func TestFindPort(t *testing.T) {
	seen := make(map[int]bool)
	for range 10 {
		p := FindPort()
		assert.Greater(t, p, 0)
		assert.LessOrEqual(t, p, 65535)
		assert.False(t, seen[p], "port %d handed out twice", p)
		seen[p] = true
	}
}
