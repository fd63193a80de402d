package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/duel-arena/internal/ledger"
	"github.com/radieske/duel-arena/internal/wallet-service/dto"
)

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b)))
	return rec
}

func TestWalletCreatedWithStartingBalance(t *testing.T) {
	h := NewServer(zap.NewNop(), ledger.NewMemory(), 1000).Router()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wallet?userId=alice", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var out dto.WalletResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	require.Equal(t, dto.WalletResponse{UserID: "alice", Balance: 1000}, out)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wallet", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDepositWithdrawStatusCodes(t *testing.T) {
	mem := ledger.NewMemory()
	h := NewServer(zap.NewNop(), mem, 0).WithEntries(mem).Router()

	rec := post(t, h, "/wallet/deposit", dto.AmountRequest{UserID: "bob", Amount: 30})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = post(t, h, "/wallet/withdraw", dto.AmountRequest{UserID: "bob", Amount: 31})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = post(t, h, "/wallet/withdraw", dto.AmountRequest{UserID: "bob", Amount: 0})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, h, "/wallet/withdraw", dto.AmountRequest{UserID: "ghost", Amount: 1})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = post(t, h, "/wallet/withdraw", dto.AmountRequest{UserID: "bob", Amount: 30})
	require.Equal(t, http.StatusOK, rec.Code)

	bal, err := mem.Balance(context.Background(), "bob")
	require.NoError(t, err)
	require.Zero(t, bal)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wallet/entries?userId=bob", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []dto.EntryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&entries))
	require.Len(t, entries, 2)
	require.Equal(t, "WITHDRAW", entries[0].Reason)
}

func TestEscrowRejectsWholeBatch(t *testing.T) {
	mem := ledger.NewMemory()
	ctx := context.Background()
	_, _ = mem.EnsureAccount(ctx, "alice", 10)
	_, _ = mem.EnsureAccount(ctx, "bob", 5)
	h := NewServer(zap.NewNop(), mem, 0).Router()

	rec := post(t, h, "/wallet/escrow", dto.EscrowRequest{Ref: "m1", Holds: []dto.HoldRequest{
		{UserID: "alice", Amount: 10, Reason: "DUEL_ESCROW"},
		{UserID: "bob", Amount: 10, Reason: "DUEL_ESCROW"},
	}})
	require.Equal(t, http.StatusConflict, rec.Code)

	a, _ := mem.Balance(ctx, "alice")
	require.EqualValues(t, 10, a)

	rec = post(t, h, "/wallet/escrow", dto.EscrowRequest{Ref: "m1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
