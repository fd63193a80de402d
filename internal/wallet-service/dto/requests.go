package dto

// AmountRequest serve para deposit, withdraw, debit e credit
type AmountRequest struct {
	UserID string `json:"userId"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason,omitempty"` // só em debit/credit; default DEPOSIT/WITHDRAW
	Ref    string `json:"ref,omitempty"`
}

type HoldRequest struct {
	UserID string `json:"userId"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

type EscrowRequest struct {
	Ref   string        `json:"ref"`
	Holds []HoldRequest `json:"holds"`
}

type OpenRequest struct {
	UserID  string `json:"userId"`
	Opening *int64 `json:"opening,omitempty"` // nil = STARTING_BALANCE do serviço
}
