package www

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitByIP wraps handler so that each client IP may issue at most
// 'requests' requests per 'window'. Excess requests receive 429 Too Many Requests.
// If requests is zero or negative, handler is returned unchanged.
func RateLimitByIP(handler http.Handler, requests int, window time.Duration) http.Handler {
	if requests <= 0 {
		return handler
	}
	return httprate.Limit(requests, window, httprate.WithKeyFuncs(httprate.KeyByIP))(handler)
}
