package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(Identity)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

type ctxKey int

const callerKey ctxKey = iota

// Identity: resolve caller dari collaborator identity. Di boundary ini
// cuma header X-User-Id; auth beneran hidup di luar service ini.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if uid := r.Header.Get("X-User-Id"); uid != "" {
			r = r.WithContext(context.WithValue(r.Context(), callerKey, uid))
		}
		next.ServeHTTP(w, r)
	})
}

// CallerID: user id hasil middleware Identity; "" kalau tidak ada.
func CallerID(r *http.Request) string {
	uid, _ := r.Context().Value(callerKey).(string)
	return uid
}
