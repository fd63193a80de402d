package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/duel-arena/internal/arena/presence"
	"github.com/radieske/duel-arena/pkg/contracts/events"
	"github.com/radieske/duel-arena/pkg/contracts/topics"
)

type ReadRepo interface {
	Recent(ctx context.Context, kinds []string, limit int) ([]events.RecentResult, error)
	Audit(ctx context.Context, username string, limit int) ([]events.AuditEntry, error)
}

type Cache interface {
	Recent(ctx context.Context, key string, limit int) ([]events.RecentResult, bool, error)
	GetAudit(ctx context.Context, username string, dst any) (bool, error)
	SetAudit(ctx context.Context, username string, v any, ttl time.Duration) error
}

const (
	defaultLimit = 20
	auditTTL     = 30 * time.Second
)

// API expõe o histórico de duelos, rodadas clássicas e a auditoria por usuário.
// Redis primeiro; Postgres quando o cache está vazio ou fora.
type API struct {
	Log      *zap.Logger
	ReadRepo ReadRepo
	Cache    Cache // opcional
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/v1/duels/recent", a.recentDuels)
	r.Get("/v1/classic/recent", a.recentClassic)
	r.Get("/v1/users/{id}/audit", a.userAudit)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// limit aceita ?limit= entre 1 e o tamanho das listas recentes
func limit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > topics.RecentLimit {
		return topics.RecentLimit
	}
	return n
}

func (a *API) recentDuels(w http.ResponseWriter, r *http.Request) {
	a.recent(w, r, topics.RecentDuelsKey, []string{events.KindSettled, events.KindAborted})
}

func (a *API) recentClassic(w http.ResponseWriter, r *http.Request) {
	a.recent(w, r, topics.RecentClassicKey, []string{events.KindClassic})
}

func (a *API) recent(w http.ResponseWriter, r *http.Request, key string, kinds []string) {
	n := limit(r)
	if a.Cache != nil {
		out, ok, err := a.Cache.Recent(r.Context(), key, n)
		if err != nil {
			a.Log.Warn("redis recent failed, falling back to postgres", zap.String("key", key), zap.Error(err))
		}
		if ok {
			writeJSON(w, http.StatusOK, out)
			return
		}
	}

	out, err := a.ReadRepo.Recent(r.Context(), kinds, n)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) userAudit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !presence.ValidIdentity(id) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return
	}

	if a.Cache != nil {
		var cached []events.AuditEntry
		if ok, _ := a.Cache.GetAudit(r.Context(), id, &cached); ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	out, err := a.ReadRepo.Audit(r.Context(), id, topics.RecentLimit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if a.Cache != nil {
		_ = a.Cache.SetAudit(r.Context(), id, out, auditTTL) // salva no cache por 30s
	}
	writeJSON(w, http.StatusOK, out)
}
