package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/radieske/duel-arena/internal/arena/broadcast"
	"github.com/radieske/duel-arena/internal/arena/classic"
	"github.com/radieske/duel-arena/internal/arena/duel"
)

var (
	errBadRequest     = errors.New("bad request")
	errUnknownCommand = errors.New("unknown command")
)

const maxChatLen = 500

type sitReq struct {
	Side duel.Side `json:"side"`
}

type specBetReq struct {
	Side   duel.Side `json:"side"`
	Amount int64     `json:"amount"`
}

type classicBetReq struct {
	Selection classic.Color `json:"selection"`
	Amount    int64         `json:"amount"`
}

type chatReq struct {
	Text string `json:"text"`
}

type chatMsg struct {
	From string    `json:"from"`
	Text string    `json:"text"`
	Ts   time.Time `json:"ts"`
}

func (c *Connection) handleMessage(data []byte) {
	var env broadcast.Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		c.reply(broadcast.TypeError, errorPayload{Code: CodeBadRequest, Message: "invalid message format"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := c.dispatch(ctx, env)
	result := "ok"
	if err != nil {
		result = Code(err)
		c.reply(broadcast.TypeError, errorPayload{Code: result, Command: env.Type, Message: err.Error()})
		c.log.Debug("command rejected", zap.String("cmd", env.Type), zap.Error(err))
	}
	c.g.metrics.Command(env.Type, result)
}

func (c *Connection) dispatch(ctx context.Context, env broadcast.Envelope) error {
	id := c.client.Identity
	g := c.g

	switch env.Type {
	case "sit":
		var req sitReq
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return g.table.Sit(ctx, id, req.Side)

	case "leave":
		return g.table.Leave(ctx, id)

	case "update_settings":
		var req duel.Settings
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return g.table.UpdateSettings(ctx, id, req)

	case "lock":
		return g.table.Lock(ctx, id)

	case "propose":
		var req duel.Settings
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return g.table.Propose(ctx, id, req)

	case "respond":
		accept, err := parseResponse(env.Data)
		if err != nil {
			return err
		}
		return g.table.Respond(ctx, id, accept)

	case "act":
		return g.table.Act(ctx, id)

	case "spec_bet":
		var req specBetReq
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return g.table.SpectatorBet(ctx, id, req.Side, req.Amount)

	case "place_bet_classic":
		var req classicBetReq
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		return g.classic.PlaceBet(ctx, id, classic.Color(strings.ToUpper(string(req.Selection))), req.Amount)

	case "chat":
		var req chatReq
		if err := decode(env.Data, &req); err != nil {
			return err
		}
		text := strings.TrimSpace(req.Text)
		if text == "" {
			return errBadRequest
		}
		if utf8.RuneCountInString(text) > maxChatLen {
			text = string([]rune(text)[:maxChatLen])
		}
		g.hub.Broadcast(broadcast.Encode(broadcast.TypeMsg, chatMsg{From: id, Text: text, Ts: time.Now().UTC()}))
		return nil

	case "ping":
		c.reply(broadcast.TypePong, nil)
		return nil
	}
	return errUnknownCommand
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errBadRequest
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errBadRequest
	}
	return nil
}

// parseResponse aceita "ACCEPT"/"DECLINE" ou {"accept": bool}
func parseResponse(raw json.RawMessage) (bool, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToUpper(s) {
		case "ACCEPT":
			return true, nil
		case "DECLINE":
			return false, nil
		}
		return false, errBadRequest
	}
	var obj struct {
		Accept *bool `json:"accept"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj.Accept == nil {
		return false, errBadRequest
	}
	return *obj.Accept, nil
}
