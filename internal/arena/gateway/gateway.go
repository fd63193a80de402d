package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/radieske/duel-arena/internal/arena/broadcast"
	"github.com/radieske/duel-arena/internal/arena/classic"
	"github.com/radieske/duel-arena/internal/arena/duel"
	"github.com/radieske/duel-arena/internal/arena/presence"
	"github.com/radieske/duel-arena/internal/ledger"
	"github.com/radieske/duel-arena/internal/shared/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 8 << 10
	sendBuffer     = 256
)

type Options struct {
	StartingBalance int64
	RatePerSec      float64
	RateBurst       int
	AllowOrigin     func(r *http.Request) bool
}

// Gateway aceita conexões WebSocket e traduz comandos para a mesa e o motor clássico
type Gateway struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	opts     Options

	auth     presence.Authenticator
	presence *presence.Registry
	hub      *broadcast.Hub
	bc       *broadcast.Broadcaster
	table    *duel.Table
	classic  *classic.Engine
	ledger   ledger.Ledger
	metrics  *metrics.Arena
}

type Deps struct {
	Log         *zap.Logger
	Auth        presence.Authenticator
	Presence    *presence.Registry
	Hub         *broadcast.Hub
	Broadcaster *broadcast.Broadcaster
	Table       *duel.Table
	Classic     *classic.Engine
	Ledger      ledger.Ledger
	Metrics     *metrics.Arena
}

func New(d Deps, opts Options) *Gateway {
	if opts.AllowOrigin == nil {
		opts.AllowOrigin = func(*http.Request) bool { return true }
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 10
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 20
	}
	if d.Auth == nil {
		d.Auth = presence.HeaderAuthenticator{}
	}
	return &Gateway{
		log:      d.Log,
		upgrader: websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096, CheckOrigin: opts.AllowOrigin},
		opts:     opts,
		auth:     d.Auth,
		presence: d.Presence,
		hub:      d.Hub,
		bc:       d.Broadcaster,
		table:    d.Table,
		classic:  d.Classic,
		ledger:   d.Ledger,
		metrics:  d.Metrics,
	}
}

// Connection é uma conexão WebSocket autenticada
type Connection struct {
	client  *broadcast.Client
	conn    *websocket.Conn
	limiter *rate.Limiter
	g       *Gateway
	log     *zap.Logger
}

type initPayload struct {
	Identity string             `json:"identity"`
	Balance  int64              `json:"balance"`
	State    broadcast.Snapshot `json:"state"`
}

// HandleWS autentica, abre a conta se preciso e sobe as bombas de leitura/escrita
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	identity, err := g.auth.Identify(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	balance, err := g.ledger.EnsureAccount(ctx, identity, g.opts.StartingBalance)
	cancel()
	if err != nil {
		g.log.Error("ensure account failed", zap.String("user", identity), zap.Error(err))
		http.Error(w, "ledger unavailable", http.StatusServiceUnavailable)
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("upgrade error", zap.Error(err))
		return
	}

	c := &Connection{
		client:  &broadcast.Client{ID: uuid.New().String(), Identity: identity, Send: make(chan []byte, sendBuffer)},
		conn:    ws,
		limiter: rate.NewLimiter(rate.Limit(g.opts.RatePerSec), g.opts.RateBurst),
		g:       g,
	}
	c.log = g.log.With(zap.String("conn", c.client.ID), zap.String("user", identity))

	g.hub.Register(c.client)
	g.presence.Connect(c.client.ID, identity)
	g.metrics.ConnOpened()
	c.log.Info("client connected", zap.Int("online", g.presence.Count()))

	g.hub.SendToClient(c.client.ID, broadcast.Encode(broadcast.TypeInit, initPayload{
		Identity: identity,
		Balance:  balance,
		State:    g.bc.Snapshot(),
	}))
	g.bc.Changed()

	go c.writePump()
	go c.readPump()
}

// close desfaz o registro; a última conexão da identidade dispara o cancelamento na mesa
func (c *Connection) close() {
	g := c.g
	g.hub.Unregister(c.client)
	identity, offline := g.presence.Disconnect(c.client.ID)
	g.metrics.ConnClosed()

	if offline {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		stillOffline := func() bool { return !g.presence.Online(identity) }
		if err := g.table.DisconnectIf(ctx, identity, stillOffline); err != nil {
			c.log.Warn("table disconnect failed", zap.Error(err))
		}
		cancel()
	}
	g.bc.Changed()
	c.log.Info("client disconnected", zap.Bool("offline", offline))
}

func (c *Connection) readPump() {
	defer func() {
		c.close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("read error", zap.Error(err))
			}
			return
		}
		if !c.limiter.Allow() {
			c.g.metrics.Command("rate", "limited")
			c.reply(broadcast.TypeError, errorPayload{Code: CodeRateLimited, Message: "too many commands"})
			continue
		}
		c.handleMessage(message)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.client.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) reply(typ string, data any) {
	c.g.hub.SendToClient(c.client.ID, broadcast.Encode(typ, data))
}
