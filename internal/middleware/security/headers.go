package security

import (
	"fmt"
	"net/http"
)

// HeadersConfig holds security headers configuration
type HeadersConfig struct {
	// Content Security Policy
	CSP string

	// HSTS settings
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	CrossOriginResource string
	// CacheControl is applied to every response; the API serves private
	// financial data.
	CacheControl string
}

// DefaultHeadersConfig returns defaults for a JSON API that never serves
// active content.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP:                   "default-src 'none'; frame-ancestors 'none'; base-uri 'none'",
		HSTSMaxAge:            31536000, // 1 year
		HSTSIncludeSubdomains: true,
		XFrameOptions:         "DENY",
		XContentTypeOptions:   "nosniff",
		ReferrerPolicy:        "no-referrer",
		CrossOriginResource:   "same-origin",
		CacheControl:          "no-store",
	}
}

// Headers returns middleware applying cfg to every response.
func Headers(cfg HeadersConfig) func(http.Handler) http.Handler {
	hsts := ""
	if cfg.HSTSMaxAge > 0 {
		hsts = fmt.Sprintf("max-age=%d", cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
	}

	set := func(h http.Header, name, value string) {
		if value != "" {
			h.Set(name, value)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			set(h, "Content-Security-Policy", cfg.CSP)
			set(h, "X-Frame-Options", cfg.XFrameOptions)
			set(h, "X-Content-Type-Options", cfg.XContentTypeOptions)
			set(h, "Referrer-Policy", cfg.ReferrerPolicy)
			set(h, "Cross-Origin-Resource-Policy", cfg.CrossOriginResource)
			set(h, "Cache-Control", cfg.CacheControl)

			// HSTS header (only for HTTPS)
			if r.TLS != nil {
				set(h, "Strict-Transport-Security", hsts)
			}

			next.ServeHTTP(w, r)
		})
	}
}
