package models

import (
	"time"

	"github.com/rent-to-earn/internal/types"
)

// Notification is a side effect of a campaign transition addressed to one
// wallet. Delivery is at-least-once; the receiving UI treats it as idempotent.
type Notification struct {
	ID        string                 `json:"id"`
	Wallet    string                 `json:"wallet"`
	Type      types.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}
