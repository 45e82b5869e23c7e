package util

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSONStringify(t *testing.T) {
	assert.Equal(t, `{"a":1}`, JSONStringify(map[string]int{"a": 1}))
	assert.Equal(t, `null`, JSONStringify(nil))
}

func TestExists(t *testing.T) {
	assert.True(t, Exists(os.TempDir()))
	assert.False(t, Exists("/this/path/should/not/exist"))
}
