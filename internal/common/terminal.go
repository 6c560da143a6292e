package common

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const terminalIDKey ctxKey = "pos/terminal-id"

// TerminalHeader identifies the register or kiosk that issued a request.
const TerminalHeader = "X-Terminal-ID"

// WithTerminalID stores the calling terminal identifier on the provided context.
func WithTerminalID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, terminalIDKey, id)
}

// TerminalID extracts the terminal identifier from the context if present.
func TerminalID(ctx context.Context) (string, bool) {
	v := ctx.Value(terminalIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// TerminalMiddleware copies the terminal header onto the request context.
func TerminalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(TerminalHeader)); id != "" {
			r = r.WithContext(WithTerminalID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
