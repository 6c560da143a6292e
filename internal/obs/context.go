package obs

import "context"

type routeKey struct{}

// WithRoutePattern pins a route pattern for metrics and logs. Handlers that
// are not routed by chi use it to name themselves.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routeKey{}, pattern)
}

// RoutePatternFromContext returns the pinned pattern or "".
func RoutePatternFromContext(ctx context.Context) string {
	pattern, _ := ctx.Value(routeKey{}).(string)
	return pattern
}
