package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/radieske/duel-arena/internal/ledger"
	"github.com/radieske/duel-arena/internal/wallet-service/dto"
)

// Server expõe endpoints HTTP para operações de carteira (wallet)
type Server struct {
	log     *zap.Logger
	ledger  ledger.Ledger
	lister  ledger.EntryLister
	opening int64
}

// NewServer instancia o servidor HTTP de wallet.
// opening é o saldo inicial de carteiras criadas no primeiro acesso.
func NewServer(log *zap.Logger, l ledger.Ledger, opening int64) *Server {
	return &Server{log: log, ledger: l, opening: opening}
}

// WithEntries habilita GET /wallet/entries quando o backend guarda o livro-razão
func (s *Server) WithEntries(lister ledger.EntryLister) *Server {
	s.lister = lister
	return s
}

// Router retorna o mux HTTP com as rotas da API de wallet
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", s.ping)
	mux.HandleFunc("/wallet", s.getWallet)         // GET ?userId=...
	mux.HandleFunc("/wallet/open", s.open)         // POST
	mux.HandleFunc("/wallet/deposit", s.deposit)   // POST
	mux.HandleFunc("/wallet/withdraw", s.withdraw) // POST
	mux.HandleFunc("/wallet/credit", s.credit)     // POST
	mux.HandleFunc("/wallet/debit", s.debit)       // POST
	mux.HandleFunc("/wallet/escrow", s.escrow)     // POST
	mux.HandleFunc("/wallet/entries", s.entries)   // GET ?userId=...&limit=
	return mux
}

// ping responde 204 quando o backend do ledger está de pé
func (s *Server) ping(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := ledger.Ping(r.Context(), s.ledger); err != nil {
		s.log.Warn("ledger ping failed", zap.Error(err))
		http.Error(w, "ledger unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getWallet retorna (ou cria) a carteira e saldo do usuário
func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	bal, err := s.ledger.EnsureAccount(r.Context(), userID, s.opening)
	if err != nil {
		s.fail(w, "get wallet", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponse{UserID: userID, Balance: bal})
}

// open cria a carteira com saldo inicial explícito (usado pelo ledger remoto)
func (s *Server) open(w http.ResponseWriter, r *http.Request) {
	var req dto.OpenRequest
	if !decode(w, r, &req) {
		return
	}
	opening := s.opening
	if req.Opening != nil {
		opening = *req.Opening
	}
	if req.UserID == "" || opening < 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	bal, err := s.ledger.EnsureAccount(r.Context(), req.UserID, opening)
	if err != nil {
		s.fail(w, "open wallet", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponse{UserID: req.UserID, Balance: bal})
}

// deposit adiciona saldo à carteira do usuário
func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	s.move(w, r, ledger.ReasonDeposit, true)
}

// withdraw retira saldo; 409 quando não há fundos
func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	s.move(w, r, ledger.ReasonWithdraw, false)
}

func (s *Server) credit(w http.ResponseWriter, r *http.Request) {
	s.move(w, r, ledger.ReasonDeposit, true)
}

func (s *Server) debit(w http.ResponseWriter, r *http.Request) {
	s.move(w, r, ledger.ReasonWithdraw, false)
}

// move aplica um crédito ou débito; o reason do payload sobrescreve o default
func (s *Server) move(w http.ResponseWriter, r *http.Request, reason ledger.Reason, credit bool) {
	var req dto.AmountRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" || req.Amount <= 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.Reason != "" {
		reason = ledger.Reason(req.Reason)
	}

	var (
		bal int64
		err error
	)
	if credit {
		bal, err = s.ledger.Credit(r.Context(), req.UserID, req.Amount, reason, req.Ref)
	} else {
		bal, err = s.ledger.Debit(r.Context(), req.UserID, req.Amount, reason, req.Ref)
	}
	if err != nil {
		s.fail(w, string(reason), err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponse{UserID: req.UserID, Balance: bal})
}

// escrow debita todos os holds de uma vez ou nenhum
func (s *Server) escrow(w http.ResponseWriter, r *http.Request) {
	var req dto.EscrowRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Ref == "" || len(req.Holds) == 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	holds := make([]ledger.Hold, 0, len(req.Holds))
	for _, h := range req.Holds {
		holds = append(holds, ledger.Hold{Identity: h.UserID, Amount: h.Amount, Reason: ledger.Reason(h.Reason)})
	}
	if err := s.ledger.Escrow(r.Context(), req.Ref, holds...); err != nil {
		s.fail(w, "escrow", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.EscrowResponse{Ref: req.Ref, Status: "ESCROWED"})
}

func (s *Server) entries(w http.ResponseWriter, r *http.Request) {
	if s.lister == nil {
		http.Error(w, "not available", http.StatusNotImplemented)
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := s.lister.Entries(r.Context(), userID, limit)
	if err != nil {
		s.fail(w, "entries", err)
		return
	}
	out := make([]dto.EntryResponse, 0, len(list))
	for _, e := range list {
		out = append(out, dto.EntryResponse{Reason: string(e.Reason), Amount: e.Amount, Ref: e.Ref})
	}
	writeJSON(w, http.StatusOK, out)
}

// fail traduz erros do ledger em status HTTP
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrInvalidAmount):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	default:
		s.log.Error("wallet op failed", zap.String("op", op), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return false
	}
	return true
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
