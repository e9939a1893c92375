package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	apperrors "github.com/rent-to-earn/internal/errors"
	"github.com/rent-to-earn/internal/types"
)

// escrowABI covers the read surface of the EVM escrow deployment. The same
// campaign lifecycle ships on an EVM chain with identical state semantics;
// only the account model differs (contract storage instead of derived
// accounts).
const escrowABI = `[
	{
		"inputs": [{"internalType": "uint256", "name": "campaignId", "type": "uint256"}],
		"name": "getCampaign",
		"outputs": [{
			"components": [
				{"internalType": "uint256", "name": "campaignId", "type": "uint256"},
				{"internalType": "address", "name": "sponsor", "type": "address"},
				{"internalType": "address", "name": "creator", "type": "address"},
				{"internalType": "uint256", "name": "amount", "type": "uint256"},
				{"internalType": "uint256", "name": "duration", "type": "uint256"},
				{"internalType": "uint8", "name": "state", "type": "uint8"},
				{"internalType": "uint64", "name": "startTs", "type": "uint64"},
				{"internalType": "uint64", "name": "endTs", "type": "uint64"}
			],
			"internalType": "struct Campaign",
			"name": "",
			"type": "tuple"
		}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// evmCampaign mirrors the tuple returned by getCampaign for ABI unpacking.
type evmCampaign struct {
	CampaignId *big.Int
	Sponsor    common.Address
	Creator    common.Address
	Amount     *big.Int
	Duration   *big.Int
	State      uint8
	StartTs    uint64
	EndTs      uint64
}

// EVMReader reads escrow campaign state from the EVM contract deployment.
// The contract's state enum matches the primary chain program's, so decoded
// states normalize through the same mapping.
type EVMReader struct {
	client   *ethclient.Client
	contract common.Address
	abi      abi.ABI
}

// NewEVMReader dials an EVM RPC endpoint and binds the escrow contract.
func NewEVMReader(rpcURL, contractAddress string) (*EVMReader, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial EVM RPC %s: %w", rpcURL, err)
	}

	parsed, err := abi.JSON(strings.NewReader(escrowABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse escrow ABI: %w", err)
	}

	if !common.IsHexAddress(contractAddress) {
		return nil, fmt.Errorf("invalid escrow contract address %q", contractAddress)
	}

	return &EVMReader{
		client:   client,
		contract: common.HexToAddress(contractAddress),
		abi:      parsed,
	}, nil
}

// ReadCampaignState calls the contract's getCampaign view and normalizes the
// result. A zero-valued campaign (id 0, zero sponsor) means the id was never
// created and reads as not found.
func (r *EVMReader) ReadCampaignState(ctx context.Context, chainCampaignID uint64) (*CampaignAccount, error) {
	data, err := r.abi.Pack("getCampaign", new(big.Int).SetUint64(chainCampaignID))
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode getCampaign call", err)
	}

	output, err := r.client.CallContract(ctx, ethereum.CallMsg{
		To:   &r.contract,
		Data: data,
	}, nil)
	if err != nil {
		return nil, apperrors.NewChainUnavailableError(err)
	}

	var decoded evmCampaign
	if err := r.abi.UnpackIntoInterface(&decoded, "getCampaign", output); err != nil {
		return nil, apperrors.NewChainUnavailableError(fmt.Errorf("failed to decode getCampaign result: %w", err))
	}

	if decoded.CampaignId.Sign() == 0 && decoded.Sponsor == (common.Address{}) {
		return nil, ErrAccountNotFound
	}

	state, ok := chainStateByValue[decoded.State]
	if !ok {
		return nil, apperrors.NewChainUnavailableError(fmt.Errorf("unknown campaign state value %d", decoded.State))
	}

	return &CampaignAccount{
		CampaignID: decoded.CampaignId.Uint64(),
		Sponsor:    decoded.Sponsor.Hex(),
		Creator:    decoded.Creator.Hex(),
		Amount:     decoded.Amount,
		Duration:   decoded.Duration.Uint64(),
		State:      state,
		StartTS:    int64(decoded.StartTs),
		EndTS:      int64(decoded.EndTs),
	}, nil
}

// ReadVaultBalance returns the contract's escrowed balance for a campaign.
// The EVM deployment escrows funds in the contract itself, so the contract
// balance is the upper bound; per-campaign tracking relies on the amount
// recorded in campaign storage.
func (r *EVMReader) ReadVaultBalance(ctx context.Context, chainCampaignID uint64) (*big.Int, error) {
	account, err := r.ReadCampaignState(ctx, chainCampaignID)
	if err != nil {
		return nil, err
	}

	switch account.State {
	case types.ChainStateRefunded, types.ChainStateCanceledHard:
		return big.NewInt(0), nil
	}

	balance, err := r.client.BalanceAt(ctx, r.contract, nil)
	if err != nil {
		return nil, apperrors.NewChainUnavailableError(err)
	}

	if balance.Cmp(account.Amount) > 0 {
		return new(big.Int).Set(account.Amount), nil
	}
	return balance, nil
}
