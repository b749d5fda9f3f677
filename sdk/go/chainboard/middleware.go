package chainboard

import (
	"encoding/json"
	"net/http"

	"github.com/ppiankov/chainboard/internal/client"
)

// ReadOnly wraps an http.RoundTripper with the same GET-only guard the
// SDK's client runs behind: any non-GET request fails with ErrReadOnly
// before it leaves the process. A nil next uses http.DefaultTransport.
func ReadOnly(next http.RoundTripper) http.RoundTripper {
	return client.ReadOnlyTransport(next)
}

// Middleware returns an http.Handler that rejects mutating methods with
// a 405 JSON body, for hosts that re-serve board state. GET and HEAD
// pass through.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Allow", "GET, HEAD")
			w.WriteHeader(http.StatusMethodNotAllowed)
			json.NewEncoder(w).Encode(map[string]any{
				"blocked": true,
				"reason":  "board surfaces are read-only",
				"method":  r.Method,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
