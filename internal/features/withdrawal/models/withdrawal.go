package models

import "time"

// Status is the withdrawal request state machine:
// Requested → Reserved → Submitted → Completed | Failed.
// The balance debit happens at Reserved; Failed implies the compensating
// credit has been applied.
type Status string

const (
	StatusRequested Status = "requested"
	StatusReserved  Status = "reserved"
	StatusSubmitted Status = "submitted"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Withdrawal is one payout request. The amount is debited from the account
// the moment the request is accepted, so a second request cannot spend the
// same balance.
type Withdrawal struct {
	ID            string    `json:"id"`
	TelegramID    int64     `json:"telegram_id"`
	Amount        float64   `json:"amount"`
	WalletAddress string    `json:"wallet_address"`
	Status        Status    `json:"status"`
	FailureReason string    `json:"failure_reason,omitempty"`
	Compensated   bool      `json:"compensated"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Response is the client-facing view of a withdrawal request.
type Response struct {
	ID            string    `json:"id"`
	Amount        float64   `json:"amount"`
	Status        Status    `json:"status"`
	PointsBalance float64   `json:"points_balance"`
	CreatedAt     time.Time `json:"created_at"`
}
