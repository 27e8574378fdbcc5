package rest

import (
	"bytes"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pondpilot/cors-proxy/utils/errors"
)

func newStreamContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/proxy", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRelayBody_WithinLimit(t *testing.T) {
	c, rec := newStreamContext(t)
	payload := bytes.Repeat([]byte("x"), 3*relayChunkSize)

	var written int64
	err := relayBody(c, bytes.NewReader(payload), http.StatusOK, int64(len(payload)), &written)
	require.NoError(t, err)

	assert.Equal(t, int64(len(payload)), written)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payload, rec.Body.Bytes())
}

func TestRelayBody_EmptyBodyCommitsStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"empty 404 keeps its status", http.StatusNotFound},
		{"empty 204 keeps its status", http.StatusNoContent},
		{"empty 500 keeps its status", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newStreamContext(t)

			var written int64
			err := relayBody(c, bytes.NewReader(nil), tt.statusCode, 1024, &written)
			require.NoError(t, err)

			assert.Equal(t, int64(0), written)
			assert.Equal(t, tt.statusCode, rec.Code)
			assert.Equal(t, 0, rec.Body.Len())
		})
	}
}

func TestRelayBody_OverflowBeforeCommit(t *testing.T) {
	c, rec := newStreamContext(t)
	c.Response().Header().Set("Content-Type", "text/csv")
	c.Response().Header().Set("X-Request-ID", "req-123")

	payload := bytes.Repeat([]byte("x"), 64)

	var written int64
	err := relayBody(c, bytes.NewReader(payload), http.StatusOK, 32, &written)
	require.Error(t, err)

	var appErr *errors.AppContextError
	require.True(t, stderrors.As(err, &appErr))
	assert.Equal(t, errors.CodeSizeLimit, appErr.Code)

	assert.Equal(t, int64(0), written)
	assert.Equal(t, 0, rec.Body.Len(), "no body byte may be flushed on a pre-commit overflow")
	assert.Empty(t, c.Response().Header().Get("Content-Type"), "staged headers are discarded")
	assert.Equal(t, "req-123", c.Response().Header().Get("X-Request-ID"), "request id survives the discard")
}

func TestRelayBody_OverflowAfterCommitAbortsHandler(t *testing.T) {
	c, rec := newStreamContext(t)

	// First chunk fits, second chunk crosses the ceiling after the status
	// line is already on the wire.
	payload := bytes.Repeat([]byte("x"), 2*relayChunkSize)
	limit := int64(relayChunkSize + 16)

	var written int64
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		_ = relayBody(c, bytes.NewReader(payload), http.StatusOK, limit, &written)
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, relayChunkSize, rec.Body.Len(), "bytes up to the ceiling were already relayed")
	assert.Equal(t, int64(relayChunkSize), written, "relayed bytes stay counted across the abort")
}

type failingReader struct {
	data []byte
	read bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		return copy(p, r.data), nil
	}
	return 0, io.ErrUnexpectedEOF
}

func TestRelayBody_UpstreamFailureBeforeCommit(t *testing.T) {
	c, rec := newStreamContext(t)

	var written int64
	err := relayBody(c, &failingReader{}, http.StatusOK, 1024, &written)
	require.Error(t, err)

	var appErr *errors.AppContextError
	require.True(t, stderrors.As(err, &appErr))
	assert.Equal(t, errors.CodeExternalAPI, appErr.Code)
	assert.Equal(t, int64(0), written)
	assert.Equal(t, 0, rec.Body.Len())
}

func TestRelayBody_UpstreamFailureAfterCommitAbortsHandler(t *testing.T) {
	c, _ := newStreamContext(t)

	reader := &failingReader{data: []byte("partial")}
	var written int64
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		_ = relayBody(c, reader, http.StatusOK, 1024, &written)
	})
	assert.Equal(t, int64(len("partial")), written)
}

func TestDiscardStagedHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "text/csv")
	h.Set("Cache-Control", "public, max-age=3600")
	h.Set("X-Request-ID", "req-42")

	discardStagedHeaders(h)

	assert.Empty(t, h.Get("Content-Type"))
	assert.Empty(t, h.Get("Cache-Control"))
	assert.Equal(t, "req-42", h.Get("X-Request-ID"))
}
