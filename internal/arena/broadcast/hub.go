package broadcast

import (
	"encoding/json"
	"sync"

	"github.com/radieske/duel-arena/internal/shared/metrics"
)

// Envelope é o formato de toda mensagem no WebSocket
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Encode monta o envelope serializado; data nil vira envelope sem corpo
func Encode(typ string, data any) []byte {
	env := Envelope{Type: typ}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil
		}
		env.Data = raw
	}
	b, _ := json.Marshal(env)
	return b
}

// Client é a ponta de saída de uma conexão; Send é drenado pelo writePump
type Client struct {
	ID       string
	Identity string
	Send     chan []byte
}

// Hub guarda as conexões abertas indexadas por id e por identidade
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	byID    map[string]map[string]*Client
	metrics *metrics.Arena
}

func NewHub(m *metrics.Arena) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		byID:    make(map[string]map[string]*Client),
		metrics: m,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
	set, ok := h.byID[c.Identity]
	if !ok {
		set = make(map[string]*Client)
		h.byID[c.Identity] = set
	}
	set[c.ID] = c
}

// Unregister remove e fecha o canal de saída; chamar duas vezes é seguro
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	delete(h.clients, c.ID)
	if set := h.byID[c.Identity]; set != nil {
		delete(set, c.ID)
		if len(set) == 0 {
			delete(h.byID, c.Identity)
		}
	}
	close(c.Send)
}

// Broadcast envia para todas as conexões; buffer cheio descarta
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		h.deliver(c, msg)
	}
}

// SendTo entrega só para as conexões da identidade
func (h *Hub) SendTo(identity string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.byID[identity] {
		h.deliver(c, msg)
	}
}

// SendToClient entrega para uma conexão específica (respostas e erros)
func (h *Hub) SendToClient(connID string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[connID]; ok {
		h.deliver(c, msg)
	}
}

func (h *Hub) deliver(c *Client, msg []byte) {
	select {
	case c.Send <- msg:
	default:
		h.metrics.Dropped()
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
