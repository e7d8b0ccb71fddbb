package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures Cross-Origin Resource Sharing.
type CORSConfig struct {
	// AllowOrigins lists allowed origins. Empty or "*" allows any origin.
	AllowOrigins []string
	// AllowMethods defaults to the methods the storefront API serves.
	AllowMethods []string
	// AllowHeaders, when empty, echoes Access-Control-Request-Headers.
	AllowHeaders  []string
	ExposeHeaders []string
	// AllowCredentials disables the "*" origin; the request origin is
	// echoed instead.
	AllowCredentials bool
	// MaxAge is the preflight cache lifetime in seconds. Zero omits it.
	MaxAge int
}

var defaultCORSMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
}

type corsPolicy struct {
	anyOrigin   bool
	echoOrigin  bool
	origins     map[string]string // lower-case -> configured spelling
	methods     string
	headers     string
	expose      string
	credentials bool
	maxAge      string
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	p := &corsPolicy{
		origins:     make(map[string]string, len(cfg.AllowOrigins)),
		headers:     strings.Join(cfg.AllowHeaders, ", "),
		expose:      strings.Join(cfg.ExposeHeaders, ", "),
		credentials: cfg.AllowCredentials,
	}
	p.anyOrigin = len(cfg.AllowOrigins) == 0
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			p.anyOrigin = true
			continue
		}
		p.origins[strings.ToLower(o)] = o
	}
	if p.anyOrigin && p.credentials {
		p.anyOrigin, p.echoOrigin = false, true
	}

	methods := cfg.AllowMethods
	if len(methods) == 0 {
		methods = defaultCORSMethods
	}
	p.methods = strings.Join(methods, ", ")

	switch {
	case cfg.MaxAge > 0:
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	case cfg.MaxAge < 0:
		p.maxAge = "0"
	}
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when it is not allowed.
func (p *corsPolicy) allowOrigin(origin string) string {
	switch {
	case p.anyOrigin:
		return "*"
	case p.echoOrigin:
		return origin
	}
	return p.origins[strings.ToLower(origin)]
}

// CORS answers preflight requests with 204 and decorates actual cross-origin
// requests with the allow headers.
func CORS(cfg CORSConfig) Middleware {
	p := newCORSPolicy(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if !p.anyOrigin {
				h.Add("Vary", "Origin")
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			allow := p.allowOrigin(origin)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Add("Vary", "Access-Control-Request-Method")
				h.Add("Vary", "Access-Control-Request-Headers")
				if allow != "" {
					h.Set("Access-Control-Allow-Origin", allow)
					h.Set("Access-Control-Allow-Methods", p.methods)
					if p.headers != "" {
						h.Set("Access-Control-Allow-Headers", p.headers)
					} else if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
						h.Set("Access-Control-Allow-Headers", req)
					}
					if p.credentials {
						h.Set("Access-Control-Allow-Credentials", "true")
					}
					if p.maxAge != "" {
						h.Set("Access-Control-Max-Age", p.maxAge)
					}
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if allow != "" {
				h.Set("Access-Control-Allow-Origin", allow)
				if p.credentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if p.expose != "" {
					h.Set("Access-Control-Expose-Headers", p.expose)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
