package client

import (
	"context"
	"encoding/json"
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
)

func snap(v duel.View) broadcast.Snapshot { return broadcast.Snapshot{Duel: v} }

func TestDecideDuel(t *testing.T) {
	cmd, ok := DecideDuel("alice", snap(duel.View{State: duel.StateOpen}), 10)
	require.True(t, ok)
	require.Equal(t, "sit", cmd.Type)
	require.Equal(t, map[string]string{"side": "left"}, cmd.Data)

	cmd, ok = DecideDuel("bob", snap(duel.View{State: duel.StateOpen, Seats: duel.SeatsView{Left: "alice"}}), 10)
	require.True(t, ok)
	require.Equal(t, map[string]string{"side": "right"}, cmd.Data)

	_, ok = DecideDuel("carol", snap(duel.View{State: duel.StateOpen, Seats: duel.SeatsView{Left: "alice", Right: "bob"}}), 10)
	require.False(t, ok)

	cmd, ok = DecideDuel("alice", snap(duel.View{State: duel.StateOpen, Seats: duel.SeatsView{Left: "alice", Right: "bob"}}), 10)
	require.True(t, ok)
	require.Equal(t, "propose", cmd.Type)
	require.Equal(t, int64(10), cmd.Data.(duel.Settings).Bet)

	_, ok = DecideDuel("bob", snap(duel.View{State: duel.StateOpen, Seats: duel.SeatsView{Left: "alice", Right: "bob"}}), 10)
	require.False(t, ok)

	cmd, ok = DecideDuel("bob", snap(duel.View{
		State:    duel.StateProposed,
		Seats:    duel.SeatsView{Left: "alice", Right: "bob"},
		Proposal: &duel.Proposal{From: "alice", To: "bob"},
	}), 10)
	require.True(t, ok)
	require.Equal(t, "respond", cmd.Type)
	require.Equal(t, "ACCEPT", cmd.Data)

	active := duel.View{
		State: duel.StateMatchActive,
		Seats: duel.SeatsView{Left: "alice", Right: "bob"},
		Match: &duel.MatchView{ID: "m1", Round: 1, Phase: duel.PhaseAct, Acted: duel.LocksView{Left: true}},
	}
	_, ok = DecideDuel("alice", snap(active), 10)
	require.False(t, ok)
	cmd, ok = DecideDuel("bob", snap(active), 10)
	require.True(t, ok)
	require.Equal(t, "act", cmd.Type)
	require.Equal(t, "act:m1:1", cmd.Key)
}

// arenaStub aceita uma conexão, manda as mensagens e devolve o que o bot enviou
func arenaStub(t *testing.T, script [][]byte) (*httptest.Server, chan broadcast.Envelope, chan string) {
	t.Helper()
	got := make(chan broadcast.Envelope, 16)
	users := make(chan string, 1)
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		users <- r.Header.Get(presence.HeaderUser)
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, msg := range script {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env broadcast.Envelope
			if json.Unmarshal(raw, &env) == nil {
				got <- env
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, got, users
}

func TestBotBetsOncePerRound(t *testing.T) {
	betting := classic.PhaseEvent{Phase: classic.PhaseBetting, RoundID: "r1", Timer: 15}
	script := [][]byte{
		broadcast.Encode(broadcast.TypeClassicPhase, betting),
		broadcast.Encode(broadcast.TypeClassicPhase, betting),
		broadcast.Encode(broadcast.TypeClassicPhase, classic.PhaseEvent{Phase: classic.PhaseBetting, RoundID: "r2"}),
	}
	srv, got, users := arenaStub(t, script)

	bot := &Bot{
		URL:      "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		Identity: "botalpha",
		BetSize:  25,
		Log:      zap.NewNop(),
		Pick:     func() classic.Color { return classic.Blue },
	}
	require.NoError(t, bot.Validate())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bot.Start(ctx)

	require.Equal(t, "botalpha", <-users)
	for i := 0; i < 2; i++ {
		select {
		case env := <-got:
			require.Equal(t, "place_bet_classic", env.Type)
			var req struct {
				Selection string `json:"selection"`
				Amount    int64  `json:"amount"`
			}
			require.NoError(t, json.Unmarshal(env.Data, &req))
			require.Equal(t, "BLUE", req.Selection)
			require.Equal(t, int64(25), req.Amount)
		case <-time.After(3 * time.Second):
			t.Fatal("bot did not bet")
		}
	}
	select {
	case env := <-got:
		t.Fatalf("unexpected extra command %s", env.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestValidateRejectsBadIdentity(t *testing.T) {
	require.ErrorIs(t, (&Bot{Identity: "x"}).Validate(), ErrNoIdentity)
}
