package version

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersion(t *testing.T) {
	oldVersion, oldHash := Version, GitHash
	defer func() { Version, GitHash = oldVersion, oldHash }()

	Version, GitHash = "v1.2.0", "None"
	assert.Equal(t, "v1.2.0", GetVersion())

	GitHash = "0123456789abcdef"
	assert.Equal(t, "v1.2.0-0123456", GetVersion())

	var buf bytes.Buffer
	Fprint(&buf)
	assert.Contains(t, buf.String(), "v1.2.0-0123456")
}
