package realtime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamSend(t *testing.T) {
	rec := httptest.NewRecorder()

	stream, err := Open(rec, http.Header{"X-Stream": {"session"}})
	require.NoError(t, err)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "session", rec.Header().Get("X-Stream"))

	require.NoError(t, stream.Send(Event{Name: "session", ID: "1", Data: "line1\nline2", Retry: 2 * time.Second}))

	assert.Equal(t, "retry: 2000\nid: 1\nevent: session\ndata: line1\ndata: line2\n\n", rec.Body.String())
}

func TestStreamSendJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	stream, err := Open(rec, nil)
	require.NoError(t, err)

	require.NoError(t, stream.SendJSON("session", "7", map[string]bool{"authenticated": true}))
	assert.Equal(t, "id: 7\nevent: session\ndata: {\"authenticated\":true}\n\n", rec.Body.String())

	assert.Error(t, stream.SendJSON("session", "8", func() {}))
}

func TestStreamClosed(t *testing.T) {
	rec := httptest.NewRecorder()
	stream, err := Open(rec, nil)
	require.NoError(t, err)

	require.NoError(t, stream.Ping())
	assert.Equal(t, ": ping\n\n", rec.Body.String())

	stream.Close()
	assert.ErrorIs(t, stream.Send(Event{Data: "late"}), ErrClosed)
	assert.ErrorIs(t, stream.Ping(), ErrClosed)
}

type plainWriter struct{ http.ResponseWriter }

func TestOpenRequiresFlusher(t *testing.T) {
	_, err := Open(plainWriter{httptest.NewRecorder()}, nil)
	assert.ErrorIs(t, err, ErrNoFlush)
}
