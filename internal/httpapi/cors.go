package httpapi

import "net/http"

// allowedOrigins are the frontend origins permitted to call the API.
var allowedOrigins = map[string]bool{
	"http://localhost:4200": true,
	"http://127.0.0.1:4200": true,
	"http://localhost:3000": true,
}

// withCORS adds CORS headers for known origins and answers preflight
// requests directly.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
