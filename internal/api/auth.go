// SPDX-License-Identifier: MIT
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// requireToken guards mutating endpoints. Requests must carry the
// configured token either as "Authorization: Bearer <token>" or in the
// X-API-Token header. With no token configured the endpoint is disabled
// rather than open.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIToken == "" {
			writeError(w, r, http.StatusForbidden, "refresh endpoint disabled: no API token configured")
			return
		}

		presented := r.Header.Get("X-API-Token")
		if presented == "" {
			auth := r.Header.Get("Authorization")
			if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
				presented = after
			}
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(s.cfg.APIToken)) != 1 {
			writeError(w, r, http.StatusUnauthorized, "invalid or missing API token")
			return
		}

		next.ServeHTTP(w, r)
	})
}
