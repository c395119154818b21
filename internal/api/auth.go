package api

import "net/http"

// Principal identifies the caller. Identity comes from trusted gateway
// headers; this service sits behind the platform's auth proxy and does not
// verify tokens itself.
type Principal struct {
	Role        string // admin, collector
	CollectorID string
}

func (p Principal) IsAdmin() bool { return p.Role == "admin" }

func getPrincipal(r *http.Request) Principal {
	role := r.Header.Get("X-Role")
	if role == "" {
		role = "admin"
	}
	return Principal{
		Role:        role,
		CollectorID: r.Header.Get("X-Collector-Id"),
	}
}
