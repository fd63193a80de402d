package apigateway

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/duel-arena/internal/arena/presence"
)

// Targets são as bases HTTP dos serviços internos
type Targets struct {
	Arena   string
	Wallet  string
	History string
}

func rp(to string, log *zap.Logger) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(to)
	if err != nil {
		return nil, err
	}
	p := httputil.NewSingleHostReverseProxy(u)
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn("upstream failed", zap.String("upstream", u.Host), zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}
	return p, nil
}

// NewRouter monta o proxy: /ws e /api/arena -> arena, /api/wallet -> wallet, /api/history -> history
func NewRouter(t Targets, log *zap.Logger) (http.Handler, error) {
	arena, err := rp(t.Arena, log)
	if err != nil {
		return nil, err
	}
	wallet, err := rp(t.Wallet, log)
	if err != nil {
		return nil, err
	}
	history, err := rp(t.History, log)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(withCORS)

	// WebSocket passa direto; o ReverseProxy cuida do upgrade
	r.Handle("/ws", arena)
	r.Handle("/api/arena/*", http.StripPrefix("/api/arena", arena))
	r.Handle("/api/wallet/*", http.StripPrefix("/api/wallet", wallet))
	r.Handle("/api/history/*", http.StripPrefix("/api/history", history))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r, nil
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+presence.HeaderUser)
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
