package logger

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// lockedBuffer 背景 worker 與測試同時存取
type lockedBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.String()
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]LogMode{"": ModeDev, "DEV": ModeDev, "prod": ModeProd, "quiet": ModeSilence} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseMode("loud")
	require.Error(t, err)
	require.Equal(t, "prod", ModeProd.String())
}

func TestAsyncHandlerDrainsOnClose(t *testing.T) {
	var buf lockedBuffer
	ah := NewAsyncHandler(slog.NewTextHandler(&buf, nil), 64)
	log := slog.New(ah).With("pid", 1)

	for i := 0; i < 10; i++ {
		log.Info("cycle found", "rock", i)
	}
	ah.Close()
	ah.Close()

	out := buf.String()
	require.Contains(t, out, "pid=1")
	require.Contains(t, out, "rock=9")
	require.Equal(t, uint64(0), ah.Dropped())

	log.Info("after close")
	require.Equal(t, uint64(1), ah.Dropped())
	require.NotContains(t, buf.String(), "after close")
}

func TestAsyncHandlerNil(t *testing.T) {
	var ah *AsyncHandler
	require.False(t, ah.Ready())
	require.Zero(t, ah.Dropped())
	require.NoError(t, ah.Handle(context.Background(), slog.Record{}))
	ah.Close()
}

func TestSilenceDisabled(t *testing.T) {
	log := NewDefaultLogger(ModeSilence)
	require.False(t, log.Enabled(context.Background(), slog.LevelError))
}
