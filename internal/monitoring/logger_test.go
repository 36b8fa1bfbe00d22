package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) { called = true })
	Logf("progress: %d", 3)
	assert.True(t, called)

	// nil installs a no-op, not a nil func.
	called = false
	SetLogger(nil)
	Logf("dropped")
	assert.False(t, called)
}

func TestDebugfGated(t *testing.T) {
	original := Logf
	defer func() {
		Logf = original
		SetDebug(false)
	}()

	var lines []string
	SetLogger(func(format string, v ...interface{}) { lines = append(lines, format) })

	Debugf("partition detail")
	assert.Empty(t, lines)

	SetDebug(true)
	Debugf("partition detail")
	assert.Equal(t, []string{"partition detail"}, lines)
}
