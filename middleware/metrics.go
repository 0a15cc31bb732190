package middleware

import (
	"net/http"
	"time"
)

// HTTPObserver records handled requests.
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, duration time.Duration)
}

// Metrics records every request under its route pattern, so path parameters
// do not explode label cardinality.
func Metrics(observer HTTPObserver) Middleware {
	return func(next http.Handler) http.Handler {
		if observer == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := wrapRecorder(w)
			next.ServeHTTP(recorder, r)

			route := routePattern(r)
			if route == "" {
				route = "unmatched"
			}
			observer.ObserveHTTP(r.Method, route, recorder.Status(), time.Since(start))
		})
	}
}
