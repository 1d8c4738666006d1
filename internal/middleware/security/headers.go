package security

import (
	"net/http"
	"strconv"
	"strings"
)

// HeadersConfig holds the response headers applied to every page.
type HeadersConfig struct {
	// CSP directives, joined with "; "
	CSP []string

	FrameOptions      string
	ReferrerPolicy    string
	PermissionsPolicy string
	CrossOriginOpener string
}

// DefaultHeadersConfig allows only same-origin scripts, styles and
// websocket connections.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP: []string{
			"default-src 'self'",
			"script-src 'self'",
			"style-src 'self'",
			"img-src 'self' data:",
			"connect-src 'self'",
			"object-src 'none'",
			"frame-ancestors 'none'",
			"base-uri 'self'",
			"form-action 'self'",
		},
		FrameOptions:      "DENY",
		ReferrerPolicy:    "same-origin",
		PermissionsPolicy: "geolocation=(), microphone=(), camera=(), payment=()",
		CrossOriginOpener: "same-origin",
	}
}

// HeadersMiddleware applies security headers to responses
type HeadersMiddleware struct {
	config HeadersConfig
	csp    string
}

func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	return &HeadersMiddleware{
		config: config,
		csp:    strings.Join(config.CSP, "; "),
	}
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		if h.config.FrameOptions != "" {
			headers.Set("X-Frame-Options", h.config.FrameOptions)
		}
		if h.csp != "" {
			headers.Set("Content-Security-Policy", h.csp)
		}
		if h.config.ReferrerPolicy != "" {
			headers.Set("Referrer-Policy", h.config.ReferrerPolicy)
		}
		if h.config.PermissionsPolicy != "" {
			headers.Set("Permissions-Policy", h.config.PermissionsPolicy)
		}
		if h.config.CrossOriginOpener != "" {
			headers.Set("Cross-Origin-Opener-Policy", h.config.CrossOriginOpener)
		}
		next.ServeHTTP(w, r)
	})
}

// StaticAssetMiddleware adds caching headers for static assets
func StaticAssetMiddleware(maxAge int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxAge > 0 {
				w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(maxAge))
			}
			next.ServeHTTP(w, r)
		})
	}
}
