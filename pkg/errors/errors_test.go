package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

func TestError(t *testing.T) {
	e1 := New("cause1")
	e2 := New("cause2").Wrap(e1)
	e := New("dummy").Wrap(e2)
	e3 := e.Unwrap()
	assert.True(t, Is(e, e1))
	assert.True(t, Is(e, e2))
	assert.True(t, e3 == e2)
}

func TestWrapKeepsSentinel(t *testing.T) {
	sentinel := NewKind(KindContentCopyNotFound, "content copy not found")
	wrapped := sentinel.WrapMessage("data set %s", "20180101-1")

	assert.True(t, Is(wrapped, sentinel))
	assert.Equal(t, "content copy not found", sentinel.Error(), "sentinel must not be mutated")
	assert.Equal(t, "content copy not found: data set 20180101-1", wrapped.Error())
	assert.Equal(t, KindContentCopyNotFound, KindOf(wrapped))
}

func TestKindOf(t *testing.T) {
	inner := NewKind(KindDuplicateKey, "duplicate key")
	outer := New("cannot set properties").Wrap(fmt.Errorf("parsing: %w", inner))

	assert.Equal(t, KindDuplicateKey, outer.Kind())
	assert.Equal(t, KindDuplicateKey, KindOf(outer))
	assert.Equal(t, KindUnknown, KindOf(fmt.Errorf("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))

	assert.True(t, KindDuplicateKey.IsRecoverable())
	assert.False(t, KindSubprocess.IsRecoverable())
	assert.False(t, KindUnknown.IsRecoverable())
}

func TestWrapWithLog(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	l := zap.New(core)

	err := New("failed to add content copy").WrapWithLog(l, fmt.Errorf("boom"), zap.String("path", "/data"))
	require.Error(t, err)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "failed to add content copy", entry.Message)
	assert.Equal(t, "/data", entry.ContextMap()["path"])
}
