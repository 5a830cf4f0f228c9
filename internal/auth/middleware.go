package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
)

const maxAuditBody = 1 << 20

// RequireAPIKey validates the x-api-key header against the store.
// Requests from localhost and requests carrying the default key skip
// validation but are still written to the audit log.
func RequireAPIKey(store *Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("x-api-key")
			ip := remoteIP(r)
			model := modelFromRequest(r)

			if isLocalhost(ip) || key == DefaultKey {
				logKey := key
				if logKey == "" {
					logKey = "localhost-bypass"
				}
				store.LogAccess(r.Context(), logKey, ip, r.URL.Path, model)
				next.ServeHTTP(w, r)
				return
			}

			if key == "" {
				writeAuthError(w, http.StatusUnauthorized, "Missing x-api-key header")
				return
			}
			ok, err := store.ValidateKey(r.Context(), key)
			if err != nil {
				writeAuthError(w, http.StatusInternalServerError, "auth unavailable")
				return
			}
			if !ok {
				writeAuthError(w, http.StatusForbidden, "Invalid API Key")
				return
			}

			store.LogAccess(r.Context(), key, ip, r.URL.Path, model)
			next.ServeHTTP(w, r)
		})
	}
}

// RequireMasterKey guards the admin surface with the x-master-key header.
func RequireMasterKey(masterKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("x-master-key") != masterKey {
				writeAuthError(w, http.StatusForbidden, "Invalid Master Key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "error",
		"message": msg,
	})
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func isLocalhost(ip string) bool {
	return ip == "127.0.0.1" || ip == "::1"
}

// modelFromRequest peeks the site profile out of a JSON request body for the
// audit trail, restoring the body for the handler.
func modelFromRequest(r *http.Request) string {
	if r.Body == nil || r.Method != http.MethodPost {
		return "unknown"
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxAuditBody))
	if err != nil {
		return "unknown"
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var payload struct {
		Model string `json:"model"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return "unknown"
	}
	if payload.Model == "" {
		return "generic"
	}
	return payload.Model
}
