package auth

import (
	"crypto/ed25519"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
)

// VerifySignature checks a wallet signature over a message. Solana wallets
// (base58 ed25519 public keys) carry base58 ed25519 signatures; EVM wallets
// (0x hex addresses) carry EIP-191 personal-sign secp256k1 signatures. Pure
// function with no I/O. Fails closed: malformed input of any kind yields
// false, never an error or panic.
func VerifySignature(message, signature, wallet string) bool {
	if common.IsHexAddress(wallet) {
		return verifyPersonalSign(message, signature, wallet)
	}

	pubKey, err := base58.Decode(wallet)
	if err != nil || len(pubKey) != ed25519.PublicKeySize {
		return false
	}

	sig, err := base58.Decode(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}

	return ed25519.Verify(ed25519.PublicKey(pubKey), []byte(message), sig)
}

// verifyPersonalSign recovers the signing address from a hex-encoded EIP-191
// prefixed signature and compares it to the wallet.
func verifyPersonalSign(message, signature, wallet string) bool {
	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return false
	}

	// Wallets emit the legacy 27/28 recovery id.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	hash := crypto.Keccak256([]byte("\x19Ethereum Signed Message:\n" + strconv.Itoa(len(message)) + message))
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return false
	}

	return strings.EqualFold(crypto.PubkeyToAddress(*pub).Hex(), wallet)
}

// IsValidWallet reports whether a string is a wallet the platform accepts: a
// base58 32-byte public key or a 0x-prefixed EVM address.
func IsValidWallet(wallet string) bool {
	if common.IsHexAddress(wallet) {
		return true
	}
	raw, err := base58.Decode(wallet)
	return err == nil && len(raw) == ed25519.PublicKeySize
}

// NormalizeWallet canonicalizes a wallet string. EVM addresses normalize to
// their EIP-55 checksummed form so equality against chain-read addresses is
// exact regardless of the case the caller typed; base58 keys are already
// canonical.
func NormalizeWallet(wallet string) string {
	if common.IsHexAddress(wallet) {
		return common.HexToAddress(wallet).Hex()
	}
	return wallet
}
