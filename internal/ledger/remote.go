package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/radieske/duel-arena/internal/wallet-service/dto"
)

// Remote fala com o wallet-service via HTTP
type Remote struct {
	BaseURL string
	HTTP    *http.Client
}

func NewRemote(base string) *Remote {
	return &Remote{
		BaseURL: strings.TrimRight(base, "/"),
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

func (c *Remote) Balance(ctx context.Context, identity string) (int64, error) {
	var out dto.WalletResponse
	err := c.do(ctx, http.MethodGet, "/wallet?userId="+url.QueryEscape(identity), nil, &out)
	return out.Balance, err
}

// Ping consulta /ping do wallet-service; não cria carteira
func (c *Remote) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/ping", nil, nil)
}

func (c *Remote) EnsureAccount(ctx context.Context, identity string, opening int64) (int64, error) {
	var out dto.WalletResponse
	err := c.do(ctx, http.MethodPost, "/wallet/open", dto.OpenRequest{UserID: identity, Opening: &opening}, &out)
	return out.Balance, err
}

func (c *Remote) Credit(ctx context.Context, identity string, amount int64, reason Reason, ref string) (int64, error) {
	var out dto.WalletResponse
	err := c.do(ctx, http.MethodPost, "/wallet/credit",
		dto.AmountRequest{UserID: identity, Amount: amount, Reason: string(reason), Ref: ref}, &out)
	return out.Balance, err
}

func (c *Remote) Debit(ctx context.Context, identity string, amount int64, reason Reason, ref string) (int64, error) {
	var out dto.WalletResponse
	err := c.do(ctx, http.MethodPost, "/wallet/debit",
		dto.AmountRequest{UserID: identity, Amount: amount, Reason: string(reason), Ref: ref}, &out)
	return out.Balance, err
}

func (c *Remote) Escrow(ctx context.Context, ref string, holds ...Hold) error {
	req := dto.EscrowRequest{Ref: ref, Holds: make([]dto.HoldRequest, 0, len(holds))}
	for _, h := range holds {
		req.Holds = append(req.Holds, dto.HoldRequest{UserID: h.Identity, Amount: h.Amount, Reason: string(h.Reason)})
	}
	return c.do(ctx, http.MethodPost, "/wallet/escrow", req, nil)
}

// do envia a requisição e traduz o status HTTP para os erros do pacote
func (c *Remote) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusConflict:
		return ErrInsufficientFunds
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		return ErrInvalidAmount
	}
	if res.StatusCode >= 300 {
		return fmt.Errorf("wallet %s http %d", path, res.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
