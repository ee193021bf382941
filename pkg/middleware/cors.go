package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig controls the CORS headers served to the storefront web
// client. Zero-value fields fall back to defaults that cover the API's
// own methods and headers.
type CORSConfig struct {
	// AllowedOrigins lists origins that may call the API. A "*" entry
	// allows everything, which is only safe in development.
	AllowedOrigins []string

	// AllowedMethods defaults to the verbs the cart and checkout
	// endpoints actually serve.
	AllowedMethods []string

	// AllowedHeaders defaults to the auth and correlation headers the
	// web client sends.
	AllowedHeaders []string

	// ExposedHeaders the browser is allowed to read back.
	ExposedHeaders []string

	// MaxAge in seconds for caching preflight results. Defaults to 3600.
	MaxAge int

	// AllowCredentials advertises cookie/auth-header support.
	AllowCredentials bool

	// Environment gates the wildcard: origins other than an explicit
	// "*" only wildcard in "development".
	Environment string
}

var (
	defaultCORSMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	defaultCORSHeaders = []string{"Accept", "Authorization", "Content-Type", "X-Correlation-ID", "X-User-ID"}
)

// CORS returns middleware answering preflight requests and stamping CORS
// headers on everything else. Header values are joined once up front.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = defaultCORSMethods
	}
	if len(cfg.AllowedHeaders) == 0 {
		cfg.AllowedHeaders = defaultCORSHeaders
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 3600
	}

	allowWildcard := cfg.Environment == "development"
	originSet := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			allowWildcard = true
		}
		originSet[o] = struct{}{}
	}

	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	exposed := strings.Join(cfg.ExposedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch origin := r.Header.Get("Origin"); {
			case allowWildcard:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "":
				if _, ok := originSet[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
				}
			}

			w.Header().Set("Access-Control-Allow-Methods", methods)
			w.Header().Set("Access-Control-Allow-Headers", headers)
			if exposed != "" {
				w.Header().Set("Access-Control-Expose-Headers", exposed)
			}
			w.Header().Set("Access-Control-Max-Age", maxAge)

			if cfg.AllowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
