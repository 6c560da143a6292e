package security

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/noah-isme/backend-pos/internal/common"
)

// ErrBodyTooLarge is reported when a payload exceeds BodyLimit.Max.
var ErrBodyTooLarge = errors.New("security: request body too large")

// BodyLimit caps request payloads. The body is read up front so handlers
// decoding carts never see a truncated stream.
type BodyLimit struct {
	Max int64
}

func (b BodyLimit) read(r *http.Request) ([]byte, error) {
	if r.ContentLength > b.Max {
		return nil, ErrBodyTooLarge
	}
	defer func() { _ = r.Body.Close() }()
	buf, err := io.ReadAll(io.LimitReader(r.Body, b.Max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(buf)) > b.Max {
		return nil, ErrBodyTooLarge
	}
	return buf, nil
}

// Middleware answers 413 for oversized bodies and 400 for unreadable ones.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		buf, err := b.read(r)
		switch {
		case errors.Is(err, ErrBodyTooLarge):
			common.WriteError(w, common.NewAppError("PAYLOAD_TOO_LARGE", "request entity too large", http.StatusRequestEntityTooLarge, err), "")
			return
		case err != nil:
			common.WriteError(w, common.NewAppError("BAD_REQUEST", "invalid request body", http.StatusBadRequest, err), "")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(buf))
		r.ContentLength = int64(len(buf))
		next.ServeHTTP(w, r)
	})
}
