// Package auth implements wallet-signature authentication: single-use nonce
// challenges, ed25519 signature verification over a canonical sign-in message,
// and time-bounded revocable sessions.
package auth

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/rent-to-earn/internal/errors"
)

// MessageStatement is the fixed first line of the sign-in message. It domain-
// tags the signature so that a signature produced here never verifies for any
// other purpose.
const MessageStatement = "Sign in to RentToEarn"

// SignInMessage is the parsed canonical sign-in message.
type SignInMessage struct {
	Wallet    string
	Nonce     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// BuildSignInMessage renders the canonical message a wallet signs. The layout
// is line-oriented and human-readable so wallet UIs can display it verbatim.
func BuildSignInMessage(appURL, wallet, nonce string, issuedAt time.Time, validity time.Duration) string {
	expiresAt := issuedAt.Add(validity)

	return fmt.Sprintf(`%s

Domain: %s
Public Key: %s
Nonce: %s
Issued At: %s
Expiration Time: %s`,
		MessageStatement,
		appURL,
		wallet,
		nonce,
		issuedAt.UTC().Format(time.RFC3339),
		expiresAt.UTC().Format(time.RFC3339),
	)
}

// ParseSignInMessage validates and extracts the fields of a presented sign-in
// message. It rejects messages missing the statement line, missing any field,
// or past their expiration time.
func ParseSignInMessage(message string, now time.Time) (*SignInMessage, error) {
	lines := strings.Split(message, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != MessageStatement {
		return nil, apperrors.NewInvalidInputError("malformed sign-in message")
	}

	fields := make(map[string]string)
	for _, line := range lines[1:] {
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		fields[key] = value
	}

	wallet := fields["Public Key"]
	nonce := fields["Nonce"]
	issuedAtStr := fields["Issued At"]
	expiresAtStr := fields["Expiration Time"]

	if wallet == "" || nonce == "" || issuedAtStr == "" || expiresAtStr == "" {
		return nil, apperrors.NewInvalidInputError("sign-in message is missing required fields")
	}

	issuedAt, err := time.Parse(time.RFC3339, issuedAtStr)
	if err != nil {
		return nil, apperrors.NewInvalidInputError("invalid Issued At timestamp")
	}

	expiresAt, err := time.Parse(time.RFC3339, expiresAtStr)
	if err != nil {
		return nil, apperrors.NewInvalidInputError("invalid Expiration Time timestamp")
	}

	if now.After(expiresAt) {
		return nil, apperrors.NewInvalidInputError("sign-in message has expired")
	}

	return &SignInMessage{
		Wallet:    wallet,
		Nonce:     nonce,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}
