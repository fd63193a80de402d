package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/duel-arena/internal/arena/broadcast"
	"github.com/radieske/duel-arena/internal/arena/classic"
	"github.com/radieske/duel-arena/internal/arena/duel"
	"github.com/radieske/duel-arena/internal/arena/presence"
	"github.com/radieske/duel-arena/internal/ledger"
)

type arena struct {
	srv   *httptest.Server
	table *duel.Table
	led   *ledger.Memory
	reg   *presence.Registry
}

func newArena(t *testing.T, opts Options) *arena {
	t.Helper()
	log := zap.NewNop()
	led := ledger.NewMemory()
	hub := broadcast.NewHub(nil)
	reg := presence.NewRegistry()
	bc := broadcast.New(hub, broadcast.Viewers{Presence: reg}, nil)

	table := duel.New("main", duel.Deps{Log: log, Ledger: led, Notifier: bc})
	eng := classic.New(classic.Config{}, classic.Deps{Log: log, Ledger: led, Notifier: bc})
	bc.SetSources(broadcast.Viewers{Presence: reg, Duel: table, Classic: eng})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = bc.Run(ctx, 0) }()

	if opts.StartingBalance == 0 {
		opts.StartingBalance = 1000
	}
	g := New(Deps{
		Log: log, Presence: reg, Hub: hub, Broadcaster: bc,
		Table: table, Classic: eng, Ledger: led,
	}, opts)

	srv := httptest.NewServer(http.HandlerFunc(g.HandleWS))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		table.Stop()
		eng.Stop()
	})
	return &arena{srv: srv, table: table, led: led, reg: reg}
}

func (a *arena) dial(t *testing.T, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(a.srv.URL, "http") + "/?user=" + user
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, broadcast.Encode(typ, data)))
}

// waitFor lê mensagens até achar o tipo pedido
func waitFor(t *testing.T, conn *websocket.Conn, typ string) broadcast.Envelope {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", typ)
		var env broadcast.Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		if env.Type == typ {
			return env
		}
	}
}

func TestRejectsMissingIdentity(t *testing.T) {
	a := newArena(t, Options{})
	url := "ws" + strings.TrimPrefix(a.srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestInitCarriesIdentityAndBalance(t *testing.T) {
	a := newArena(t, Options{StartingBalance: 750})
	conn := a.dial(t, "alice")

	env := waitFor(t, conn, broadcast.TypeInit)
	var payload initPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.Equal(t, "alice", payload.Identity)
	require.Equal(t, int64(750), payload.Balance)
	require.Equal(t, duel.StateOpen, payload.State.Duel.State)

	bal, err := a.led.Balance(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, int64(750), bal)
}

func TestSitUpdatesEveryone(t *testing.T) {
	a := newArena(t, Options{})
	alice := a.dial(t, "alice")
	bob := a.dial(t, "bob")
	waitFor(t, alice, broadcast.TypeInit)
	waitFor(t, bob, broadcast.TypeInit)

	send(t, alice, "sit", map[string]string{"side": "left"})

	require.Eventually(t, func() bool {
		return a.table.View().Seats.Left == "alice"
	}, 2*time.Second, 10*time.Millisecond)

	for {
		env := waitFor(t, bob, broadcast.TypeStateUpdate)
		var snap broadcast.Snapshot
		require.NoError(t, json.Unmarshal(env.Data, &snap))
		if snap.Duel.Seats.Left == "alice" {
			break
		}
	}
}

func TestErrorsGoOnlyToSender(t *testing.T) {
	a := newArena(t, Options{})
	alice := a.dial(t, "alice")
	bob := a.dial(t, "bob")
	waitFor(t, alice, broadcast.TypeInit)
	waitFor(t, bob, broadcast.TypeInit)

	send(t, alice, "sit", map[string]string{"side": "left"})
	require.Eventually(t, func() bool {
		return a.table.View().Seats.Left == "alice"
	}, 2*time.Second, 10*time.Millisecond)
	send(t, bob, "sit", map[string]string{"side": "left"})

	env := waitFor(t, bob, broadcast.TypeError)
	var e errorPayload
	require.NoError(t, json.Unmarshal(env.Data, &e))
	require.Equal(t, CodeSeatTaken, e.Code)
	require.Equal(t, "sit", e.Command)

	send(t, bob, "fly", nil)
	env = waitFor(t, bob, broadcast.TypeError)
	require.NoError(t, json.Unmarshal(env.Data, &e))
	require.Equal(t, CodeUnknownCommand, e.Code)

	// alice só vê estado e o pong, nunca o erro do bob
	send(t, alice, "ping", nil)
	for {
		require.NoError(t, alice.SetReadDeadline(time.Now().Add(3*time.Second)))
		_, raw, err := alice.ReadMessage()
		require.NoError(t, err)
		var got broadcast.Envelope
		require.NoError(t, json.Unmarshal(raw, &got))
		require.NotEqual(t, broadcast.TypeError, got.Type)
		if got.Type == broadcast.TypePong {
			break
		}
	}
}

func TestDisconnectReleasesSeat(t *testing.T) {
	a := newArena(t, Options{})
	alice := a.dial(t, "alice")
	waitFor(t, alice, broadcast.TypeInit)

	send(t, alice, "sit", map[string]string{"side": "right"})
	require.Eventually(t, func() bool {
		return a.table.View().Seats.Right == "alice"
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, alice.Close())
	require.Eventually(t, func() bool {
		return !a.reg.Online("alice") && a.table.View().Seats.Right == ""
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSecondConnectionKeepsSeat(t *testing.T) {
	a := newArena(t, Options{})
	first := a.dial(t, "alice")
	waitFor(t, first, broadcast.TypeInit)
	second := a.dial(t, "alice")
	waitFor(t, second, broadcast.TypeInit)

	send(t, first, "sit", map[string]string{"side": "left"})
	require.Eventually(t, func() bool {
		return a.table.View().Seats.Left == "alice"
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, first.Close())
	require.Never(t, func() bool {
		return a.table.View().Seats.Left != "alice"
	}, 300*time.Millisecond, 20*time.Millisecond)
	require.True(t, a.reg.Online("alice"))

	require.NoError(t, second.Close())
	require.Eventually(t, func() bool {
		return !a.reg.Online("alice") && a.table.View().Seats.Left == ""
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRateLimit(t *testing.T) {
	a := newArena(t, Options{RatePerSec: 0.001, RateBurst: 1})
	conn := a.dial(t, "alice")
	waitFor(t, conn, broadcast.TypeInit)

	send(t, conn, "ping", nil)
	send(t, conn, "ping", nil)

	env := waitFor(t, conn, broadcast.TypeError)
	var e errorPayload
	require.NoError(t, json.Unmarshal(env.Data, &e))
	require.Equal(t, CodeRateLimited, e.Code)
}

func TestParseResponse(t *testing.T) {
	ok, err := parseResponse(json.RawMessage(`"accept"`))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = parseResponse(json.RawMessage(`{"accept":false}`))
	require.NoError(t, err)
	require.False(t, ok)

	_, err = parseResponse(json.RawMessage(`"maybe"`))
	require.ErrorIs(t, err, errBadRequest)
}

func TestCodeMapping(t *testing.T) {
	require.Equal(t, CodeInsufficientFunds, Code(ledger.ErrInsufficientFunds))
	require.Equal(t, CodeInvalidSelection, Code(classic.ErrInvalidSelection))
	require.Equal(t, CodeNotAddressee, Code(duel.ErrNotAddressee))
	require.Equal(t, CodeInternal, Code(errors.New("boom")))
}
