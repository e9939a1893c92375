package models

import "time"

// User is a wallet known to the platform. Created on first successful
// sign-in; no PII is attached at this layer.
type User struct {
	Wallet    string    `json:"wallet"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
