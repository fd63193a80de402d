package dto

type WalletResponse struct {
	UserID  string `json:"userId"`
	Balance int64  `json:"balance"`
}

type EscrowResponse struct {
	Ref    string `json:"ref"`
	Status string `json:"status"`
}

type EntryResponse struct {
	Reason string `json:"reason"`
	Amount int64  `json:"amount"`
	Ref    string `json:"ref"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
