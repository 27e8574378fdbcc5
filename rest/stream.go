package rest

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pondpilot/cors-proxy/utils/errors"
)

const relayChunkSize = 32 * 1024

// errClientGone signals that the client closed the connection while the
// relay was still writing. The transfer is over but the upstream response
// itself was fine, so the caller records it as aborted, not failed.
var errClientGone = stderrors.New("client closed the connection")

// relayBody streams the upstream body to the client while enforcing the
// byte ceiling, adding each relayed chunk to *written so the count stays
// accurate even when the relay aborts. The check runs ahead of every write
// because streaming HTTP cannot retract a status code once the first byte
// is flushed:
//
//   - overflow before anything is written: the staged headers are discarded
//     and a size-limit error is returned for the error handler to turn into
//     a clean 413 with Cache-Control: no-store;
//   - overflow after the response is committed: the only corrective action
//     left is dropping the connection, so the handler is aborted and the
//     client sees a truncated transfer.
//
// An empty upstream body still commits statusCode, so a bodiless 404 or 204
// reaches the client with its original status. *written is monotonically
// non-decreasing over the life of the stream and never exceeds maxBytes.
func relayBody(c echo.Context, body io.Reader, statusCode int, maxBytes int64, written *int64) error {
	res := c.Response()
	buf := make([]byte, relayChunkSize)

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if *written+int64(n) > maxBytes {
				if !res.Committed {
					discardStagedHeaders(res.Header())
					return errors.NewSizeLimitContextError(
						fmt.Sprintf("Response exceeds the maximum allowed size of %d bytes", maxBytes),
						"StreamRelay", "enforce_size_limit",
						map[string]interface{}{"max_bytes": maxBytes},
					)
				}
				// Headers and partial body are already on the wire. Abort
				// the handler so the server drops the connection.
				panic(http.ErrAbortHandler)
			}

			if !res.Committed {
				res.WriteHeader(statusCode)
			}
			if _, writeErr := res.Write(buf[:n]); writeErr != nil {
				return errClientGone
			}
			*written += int64(n)
		}

		if readErr == io.EOF {
			if !res.Committed {
				res.WriteHeader(statusCode)
			}
			return nil
		}
		if readErr != nil {
			if !res.Committed {
				return errors.NewExternalAPIContextError(
					"Upstream transfer failed", "rest", "StreamRelay", "read_upstream",
					readErr, nil,
				)
			}
			// Mid-stream upstream failure: no clean status is possible.
			panic(http.ErrAbortHandler)
		}
	}
}

// discardStagedHeaders wipes headers staged for the aborted response, keeping
// the request ID for correlation.
func discardStagedHeaders(h http.Header) {
	requestID := h.Get("X-Request-ID")
	for name := range h {
		delete(h, name)
	}
	if requestID != "" {
		h.Set("X-Request-ID", requestID)
	}
}
