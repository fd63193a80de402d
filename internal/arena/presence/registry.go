package presence

import (
	"errors"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var ErrInvalidIdentity = errors.New("invalid identity")

var identityRe = regexp.MustCompile(`^[A-Za-z0-9]{3,24}$`)

// ValidIdentity aplica a regra de nome de usuário: 3 a 24 letras ou dígitos
func ValidIdentity(id string) bool { return identityRe.MatchString(id) }

// Registry mapeia conexões para identidades.
// Uma identidade fica online enquanto tiver ao menos uma conexão aberta.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]string              // connID -> identity
	byID  map[string]map[string]struct{} // identity -> connIDs
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]string),
		byID:  make(map[string]map[string]struct{}),
	}
}

// Connect registra a conexão; devolve true se a identidade acabou de ficar online
func (r *Registry) Connect(connID, identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[connID] = identity
	set, ok := r.byID[identity]
	if !ok {
		set = make(map[string]struct{})
		r.byID[identity] = set
	}
	set[connID] = struct{}{}
	return !ok
}

// Disconnect remove a conexão; devolve a identidade e se ela saiu do conjunto online
func (r *Registry) Disconnect(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.conns[connID]
	if !ok {
		return "", false
	}
	delete(r.conns, connID)
	set := r.byID[identity]
	delete(set, connID)
	if len(set) == 0 {
		delete(r.byID, identity)
		return identity, true
	}
	return identity, false
}

func (r *Registry) Online(identity string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[identity]
	return ok
}

// Roster lista as identidades online em ordem alfabética
func (r *Registry) Roster() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.byID))
	for id := range r.byID {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Authenticator resolve a identidade de uma requisição de upgrade.
// A emissão de identidade (login, token) fica fora deste serviço.
type Authenticator interface {
	Identify(r *http.Request) (string, error)
}

// HeaderAuthenticator confia no header X-Arena-User (posto pelo gateway) ou em ?user=
type HeaderAuthenticator struct{}

const HeaderUser = "X-Arena-User"

func (HeaderAuthenticator) Identify(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(HeaderUser))
	if id == "" {
		id = strings.TrimSpace(r.URL.Query().Get("user"))
	}
	if !ValidIdentity(id) {
		return "", ErrInvalidIdentity
	}
	return id, nil
}
