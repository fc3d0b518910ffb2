package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	for _, tc := range []struct {
		name  string
		json  bool
		debug bool
	}{
		{"console info", false, false},
		{"json debug", true, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			l, err := New(tc.json, tc.debug)
			require.NoError(t, err)
			require.NotNil(t, l)
			assert.Equal(t, tc.debug, l.Core().Enabled(zap.DebugLevel))
		})
	}
}

func TestTruncateForLog(t *testing.T) {
	assert.Equal(t, "", TruncateForLog("abc", 0))
	assert.Equal(t, "abc", TruncateForLog("  abc  ", 5))
	assert.Equal(t, "ab...", TruncateForLog("abcdef", 2))
	assert.Equal(t, "éé...", TruncateForLog("ééé", 2))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := zap.NewExample()
	assert.Same(t, l, OrNop(l))
}
