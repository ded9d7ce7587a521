package domain

import (
	"context"
	"time"
)

// --- Model types ---

// Tip is one entry of a room's append-only tip ledger.
type Tip struct {
	FromParticipant string    `json:"fromParticipant"`
	Amount          float64   `json:"amount"`
	TransactionID   string    `json:"transactionId"`
	Timestamp       time.Time `json:"timestamp"`
}

// Snapshot is one aggregated sentiment reading, appended to the room's
// snapshot log on every scheduler tick that has at least one sample.
type Snapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	Average     float64   `json:"average"`
	SampleCount int       `json:"sampleCount"`
}

// RoomInfo is the immutable identity of a room, fixed at creation.
type RoomInfo struct {
	ID                string
	Title             string
	HostIdentity      string
	PayoutDestination string
	CreatedAt         time.Time
}

// RoomSummary is the read-only projection served to status queries.
type RoomSummary struct {
	Title             string  `json:"title"`
	PayoutDestination string  `json:"payoutDestination"`
	ParticipantCount  int     `json:"participantCount"`
	TotalTips         float64 `json:"totalTips"`
}

// --- Collaborator interfaces ---

// Authorization is the result of a payment authorization attempt.
type Authorization struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId"`
}

// Authorizer is the payment-bridge boundary. The session engine records the
// returned transaction reference verbatim and never inspects payment-network
// details.
type Authorizer interface {
	Authorize(ctx context.Context, recipient string, amount float64) (Authorization, error)
}
