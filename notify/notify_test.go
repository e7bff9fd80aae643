package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogNotifier(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, n.Notify(context.Background(), "trade executed", "BUY 100 AAPL.US @ 180.50"))

	out := buf.String()
	assert.Contains(t, out, "trade executed")
	assert.Contains(t, out, "AAPL.US")
}

func TestLogNotifierNilLogger(t *testing.T) {
	t.Parallel()

	n := NewLogNotifier(nil)
	assert.NoError(t, n.Notify(context.Background(), "t", "b"))
}
