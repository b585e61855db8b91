package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	for level, want := range map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"WARN":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	} {
		log, err := New(level)
		require.NoError(t, err, level)
		assert.True(t, log.Core().Enabled(want), level)
		assert.False(t, log.Core().Enabled(want-1), level)
	}

	_, err := New("verbose")
	assert.Error(t, err)
	_, err = New("fatal")
	assert.Error(t, err)
}
