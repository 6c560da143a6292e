package security

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func limited(max int64, captured *string) http.Handler {
	return BodyLimit{Max: max}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		if captured != nil {
			*captured = string(data)
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestBodyLimit(t *testing.T) {
	cart := `{"items":[]}`
	cases := []struct {
		name     string
		max      int64
		body     io.Reader
		declared int64
		status   int
		code     string
	}{
		{name: "within limit", max: 64, body: strings.NewReader(cart), declared: int64(len(cart)), status: http.StatusOK},
		{name: "exactly at limit", max: int64(len(cart)), body: strings.NewReader(cart), declared: int64(len(cart)), status: http.StatusOK},
		{name: "streamed oversize", max: 5, body: strings.NewReader(cart), declared: -1, status: http.StatusRequestEntityTooLarge, code: "PAYLOAD_TOO_LARGE"},
		{name: "declared oversize", max: 5, body: strings.NewReader("tiny"), declared: 100, status: http.StatusRequestEntityTooLarge, code: "PAYLOAD_TOO_LARGE"},
		{name: "unreadable", max: 64, body: failingReader{}, declared: -1, status: http.StatusBadRequest, code: "BAD_REQUEST"},
		{name: "disabled", max: 0, body: strings.NewReader(cart), declared: -1, status: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var captured string
			req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", tc.body)
			req.ContentLength = tc.declared
			rr := httptest.NewRecorder()
			limited(tc.max, &captured).ServeHTTP(rr, req)

			require.Equal(t, tc.status, rr.Code)
			if tc.code != "" {
				require.Contains(t, rr.Body.String(), tc.code)
				return
			}
			require.Equal(t, cart, captured)
		})
	}
}
