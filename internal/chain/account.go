package chain

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/mr-tron/base58"
	"github.com/rent-to-earn/internal/types"
)

// campaignDiscriminator tags the escrow program's campaign account type.
// Accounts with a different prefix belong to another account type and are
// rejected rather than misdecoded.
var campaignDiscriminator = [8]byte{50, 40, 49, 11, 157, 220, 229, 192}

// campaignAccountSize is the fixed serialized size of a campaign account:
// 8-byte discriminator, u64 id, two 32-byte pubkeys, u64 amount, u64
// duration, u8 state, two i64 timestamps, two u8 bumps.
const campaignAccountSize = 8 + 8 + 32 + 32 + 8 + 8 + 1 + 8 + 8 + 1 + 1

// chainStateByValue maps the on-chain state enum discriminant to its
// normalized representation. Order matches the program's enum declaration.
var chainStateByValue = map[uint8]types.ChainCampaignState{
	0: types.ChainStateDeposited,
	1: types.ChainStateApproved,
	2: types.ChainStateVerifying,
	3: types.ChainStateLive,
	4: types.ChainStateExpired,
	5: types.ChainStateRefunded,
	6: types.ChainStateCanceledHard,
}

// DecodeCampaignAccount parses the raw account data of an escrow campaign
// account. All integers are little-endian.
func DecodeCampaignAccount(data []byte) (*CampaignAccount, error) {
	if len(data) < campaignAccountSize {
		return nil, fmt.Errorf("campaign account too short: %d bytes, need %d", len(data), campaignAccountSize)
	}

	if [8]byte(data[:8]) != campaignDiscriminator {
		return nil, fmt.Errorf("account discriminator mismatch: not a campaign account")
	}

	offset := 8
	campaignID := binary.LittleEndian.Uint64(data[offset:])
	offset += 8

	sponsor := base58.Encode(data[offset : offset+32])
	offset += 32

	creator := base58.Encode(data[offset : offset+32])
	offset += 32

	amount := binary.LittleEndian.Uint64(data[offset:])
	offset += 8

	duration := binary.LittleEndian.Uint64(data[offset:])
	offset += 8

	stateByte := data[offset]
	offset++

	state, ok := chainStateByValue[stateByte]
	if !ok {
		return nil, fmt.Errorf("unknown campaign state value %d", stateByte)
	}

	startTS := int64(binary.LittleEndian.Uint64(data[offset:]))
	offset += 8

	endTS := int64(binary.LittleEndian.Uint64(data[offset:]))
	offset += 8

	bump := data[offset]
	offset++
	vaultBump := data[offset]

	return &CampaignAccount{
		CampaignID: campaignID,
		Sponsor:    sponsor,
		Creator:    creator,
		Amount:     new(big.Int).SetUint64(amount),
		Duration:   duration,
		State:      state,
		StartTS:    startTS,
		EndTS:      endTS,
		Bump:       bump,
		VaultBump:  vaultBump,
	}, nil
}
