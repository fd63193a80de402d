package client

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/duel-arena/internal/arena/broadcast"
	"github.com/radieske/duel-arena/internal/arena/classic"
	"github.com/radieske/duel-arena/internal/arena/presence"
)

// Bot conecta no arena-service como uma identidade e joga sozinho.
// Aposta em toda fase BETTING do clássico e, com Duel ligado, senta e duela.
type Bot struct {
	URL      string // ws://host:port/ws
	Identity string
	BetSize  int64
	Duel     bool
	Log      *zap.Logger
	Pick     func() classic.Color // opcional, padrão é cor aleatória

	OnSent    func(cmd string) // métricas
	OnBalance func(amount int64)

	lastKey map[string]string // última chave enviada por categoria
}

// Start mantém a conexão viva, reconectando com espera fixa
func (b *Bot) Start(ctx context.Context) {
	log := b.Log.With(zap.String("bot", b.Identity))
	for {
		if err := b.connectAndPlay(ctx, log); err != nil {
			log.Warn("connection closed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			log.Info("context canceled, stopping bot")
			return
		case <-time.After(3 * time.Second):
		}
	}
}

func (b *Bot) dialURL() (string, error) {
	u, err := url.Parse(b.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("user", b.Identity)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (b *Bot) connectAndPlay(ctx context.Context, log *zap.Logger) error {
	target, err := b.dialURL()
	if err != nil {
		return err
	}
	hdr := http.Header{}
	hdr.Set(presence.HeaderUser, b.Identity)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, hdr)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Info("connected to arena", zap.String("url", b.URL))

	// fecha a conexão quando o contexto acaba pra destravar o ReadMessage
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	b.lastKey = map[string]string{}
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}

		var env broadcast.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			log.Warn("invalid message", zap.Error(err))
			continue
		}
		cmd, ok := b.react(env, log)
		if !ok {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, broadcast.Encode(cmd.Type, cmd.Data)); err != nil {
			return err
		}
		if b.OnSent != nil {
			b.OnSent(cmd.Type)
		}
	}
}

// react traduz uma mensagem do servidor na próxima jogada, se houver
func (b *Bot) react(env broadcast.Envelope, log *zap.Logger) (Command, bool) {
	switch env.Type {
	case broadcast.TypeClassicPhase:
		var ev classic.PhaseEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil || ev.Phase != classic.PhaseBetting {
			return Command{}, false
		}
		return b.once("classic", Command{
			Type: "place_bet_classic",
			Data: map[string]any{"selection": b.pick(), "amount": b.BetSize},
			Key:  "classic:" + ev.RoundID,
		})

	case broadcast.TypeStateUpdate:
		if !b.Duel {
			return Command{}, false
		}
		var snap broadcast.Snapshot
		if err := json.Unmarshal(env.Data, &snap); err != nil {
			return Command{}, false
		}
		cmd, ok := DecideDuel(b.Identity, snap, b.BetSize)
		if !ok {
			return Command{}, false
		}
		return b.once("duel", cmd)

	case broadcast.TypeBalanceUpdate:
		var bal broadcast.BalanceUpdate
		if err := json.Unmarshal(env.Data, &bal); err == nil && b.OnBalance != nil {
			b.OnBalance(bal.Amount)
		}

	case broadcast.TypeError:
		log.Debug("command rejected", zap.ByteString("error", env.Data))
	}
	return Command{}, false
}

func (b *Bot) once(category string, cmd Command) (Command, bool) {
	if b.lastKey == nil {
		b.lastKey = map[string]string{}
	}
	if cmd.Key != "" && cmd.Key == b.lastKey[category] {
		return Command{}, false
	}
	b.lastKey[category] = cmd.Key
	return cmd, true
}

func (b *Bot) pick() classic.Color {
	if b.Pick != nil {
		return b.Pick()
	}
	return classic.Colors[rand.IntN(len(classic.Colors))]
}

var ErrNoIdentity = errors.New("bot identity is invalid")

// Validate confere a identidade antes de subir o loop
func (b *Bot) Validate() error {
	if !presence.ValidIdentity(b.Identity) {
		return ErrNoIdentity
	}
	return nil
}
