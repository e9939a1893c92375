package chain

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const (
	campaignSeed = "campaign"
	vaultSeed    = "vault"

	pdaMarker = "ProgramDerivedAddress"
)

// AccountResolver derives the program-owned escrow account addresses for a
// campaign. Derivation is a pure function of the program id and the chain
// campaign id; the same inputs always resolve to the same addresses.
type AccountResolver struct {
	programID [32]byte
}

// NewAccountResolver creates a resolver for a base58-encoded program id.
func NewAccountResolver(programID string) (*AccountResolver, error) {
	raw, err := base58.Decode(programID)
	if err != nil {
		return nil, fmt.Errorf("invalid program id %q: %w", programID, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("invalid program id %q: expected 32 bytes, got %d", programID, len(raw))
	}

	r := &AccountResolver{}
	copy(r.programID[:], raw)
	return r, nil
}

// DeriveCampaignAccount returns the escrow state account address for a
// chain campaign id, with the bump seed used.
func (r *AccountResolver) DeriveCampaignAccount(chainCampaignID uint64) (string, uint8, error) {
	return r.findProgramAddress([][]byte{[]byte(campaignSeed), u64le(chainCampaignID)})
}

// DeriveVaultAccount returns the escrow vault address holding the deposited
// lamports for a chain campaign id, with the bump seed used.
func (r *AccountResolver) DeriveVaultAccount(chainCampaignID uint64) (string, uint8, error) {
	return r.findProgramAddress([][]byte{[]byte(vaultSeed), u64le(chainCampaignID)})
}

// findProgramAddress searches bump seeds from 255 downward for the first
// candidate hash that is not a valid curve point. Program-owned addresses
// must be off-curve so no private key can ever sign for them.
func (r *AccountResolver) findProgramAddress(seeds [][]byte) (string, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		candidate := r.createProgramAddress(seeds, uint8(bump))
		if isOnCurve(candidate) {
			continue
		}
		return base58.Encode(candidate[:]), uint8(bump), nil
	}
	return "", 0, errors.New("no valid off-curve address for seeds")
}

func (r *AccountResolver) createProgramAddress(seeds [][]byte, bump uint8) [32]byte {
	h := sha256.New()
	for _, seed := range seeds {
		h.Write(seed)
	}
	h.Write([]byte{bump})
	h.Write(r.programID[:])
	h.Write([]byte(pdaMarker))

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// isOnCurve reports whether 32 bytes decode to a valid ed25519 point.
func isOnCurve(b [32]byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b[:])
	return err == nil
}

func u64le(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}
