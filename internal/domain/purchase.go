package domain

import (
	"time"

	"github.com/google/uuid"
)

type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "PENDING"
	PurchaseSucceeded PurchaseStatus = "SUCCEEDED"
	PurchaseFailed    PurchaseStatus = "FAILED"
	PurchaseAbandoned PurchaseStatus = "ABANDONED"
)

// Purchase is one checkout attempt, keyed by its transaction reference.
type Purchase struct {
	ID            uuid.UUID      `json:"id"`
	Reference     string         `json:"reference"`
	Email         string         `json:"email"`
	ProductID     int            `json:"product_id"`
	Amount        int64          `json:"amount"`
	Credits       int64          `json:"credits"`
	Status        PurchaseStatus `json:"status"`
	GatewayStatus string         `json:"gateway_status,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Credit is a verified payment ready to be applied to an account.
type Credit struct {
	Reference     string
	Email         string
	Amount        int64
	Credits       int64
	GatewayStatus string
}

type LogEntry struct {
	ID        uuid.UUID `json:"id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
