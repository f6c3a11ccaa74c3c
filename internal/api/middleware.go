package api

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/theirongolddev/spendgrid/internal/authz"
)

// identify copies the caller id from the trusted header into the request
// context, falling back to the configured dev user.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(s.cfg.UserHeader))
		if userID == "" {
			userID = s.cfg.DevUser
		}
		if userID != "" {
			r = r.WithContext(authz.WithUserID(r.Context(), userID))
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		user, _ := authz.UserIDFrom(r.Context())
		if user == "" {
			user = "-"
		}
		log.Printf("spendgrid %s %s %d %s user=%s",
			r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Microsecond), user)
	})
}
